package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/hoverbird/ingrid-core/pkg/solver"
)

func TestMessageTypes(t *testing.T) {
	types := []MessageType{
		MsgSubscribe, MsgUnsubscribe,
		MsgProgress, MsgRunCompleted, MsgRunFailed, MsgError,
	}

	seen := make(map[MessageType]bool)
	for _, msgType := range types {
		if seen[msgType] {
			t.Errorf("duplicate message type: %s", msgType)
		}
		seen[msgType] = true
	}
}

func TestMessageSerialization(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{
			name: "subscribe message",
			msg: Message{
				Type:    MsgSubscribe,
				Payload: json.RawMessage(`{"runId":"run-1"}`),
			},
		},
		{
			name: "progress message",
			msg: Message{
				Type:    MsgProgress,
				Payload: json.RawMessage(`{"runId":"run-1","states":10,"backtracks":2,"retries":0}`),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.msg)
			if err != nil {
				t.Fatalf("Marshal error: %v", err)
			}

			var decoded Message
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("Unmarshal error: %v", err)
			}

			if decoded.Type != tt.msg.Type {
				t.Errorf("Type = %s, want %s", decoded.Type, tt.msg.Type)
			}
		})
	}
}

func TestPayloadSerialization(t *testing.T) {
	t.Run("SubscribePayload", func(t *testing.T) {
		payload := SubscribePayload{RunID: "run-42"}
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("Marshal error: %v", err)
		}

		var decoded SubscribePayload
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("Unmarshal error: %v", err)
		}

		if decoded.RunID != payload.RunID {
			t.Errorf("RunID = %s, want %s", decoded.RunID, payload.RunID)
		}
	})

	t.Run("ProgressPayload", func(t *testing.T) {
		payload := ProgressPayload{RunID: "run-42", States: 1000, Backtracks: 12, Retries: 1}
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("Marshal error: %v", err)
		}

		var decoded ProgressPayload
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("Unmarshal error: %v", err)
		}

		if decoded.States != payload.States || decoded.Backtracks != payload.Backtracks {
			t.Errorf("decoded = %+v, want %+v", decoded, payload)
		}
	})

	t.Run("RunFailedPayload", func(t *testing.T) {
		payload := RunFailedPayload{RunID: "run-42", Reason: "solver: aborted", Backtracks: 500}
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("Marshal error: %v", err)
		}

		var decoded RunFailedPayload
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("Unmarshal error: %v", err)
		}

		if decoded.Reason != payload.Reason {
			t.Errorf("Reason = %s, want %s", decoded.Reason, payload.Reason)
		}
	})
}

func TestHub_SubscribeAndBroadcastProgress(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := &Client{ConnectionID: "conn-1", Send: make(chan []byte, 8)}
	hub.Register(client)
	waitForRegistration(hub, client.ConnectionID)

	hub.HandleMessage(client, &Message{Type: MsgSubscribe, Payload: json.RawMessage(`{"runId":"run-1"}`)})
	waitForSubscription(hub, "run-1", client.ConnectionID)

	hub.BroadcastProgress("run-1", solver.Statistics{States: 100, Backtracks: 5, Retries: 0})

	select {
	case msg := <-client.Send:
		var decoded Message
		if err := json.Unmarshal(msg, &decoded); err != nil {
			t.Fatalf("failed to decode broadcast message: %v", err)
		}
		if decoded.Type != MsgProgress {
			t.Errorf("Type = %s, want %s", decoded.Type, MsgProgress)
		}
	default:
		t.Error("expected a progress message on client.Send")
	}
}

func TestHub_UnsubscribedClientDoesNotReceiveBroadcast(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := &Client{ConnectionID: "conn-2", Send: make(chan []byte, 8)}
	hub.Register(client)
	waitForRegistration(hub, client.ConnectionID)

	hub.BroadcastProgress("run-does-not-exist", solver.Statistics{States: 1})

	select {
	case <-client.Send:
		t.Error("unsubscribed client should not receive a broadcast")
	default:
	}
}

func TestHub_UnregisterRemovesFromRun(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := &Client{ConnectionID: "conn-3", Send: make(chan []byte, 8)}
	hub.Register(client)
	waitForRegistration(hub, client.ConnectionID)

	hub.HandleMessage(client, &Message{Type: MsgSubscribe, Payload: json.RawMessage(`{"runId":"run-2"}`)})
	waitForSubscription(hub, "run-2", client.ConnectionID)

	hub.Unregister(client)

	for i := 0; i < 1000; i++ {
		hub.mutex.RLock()
		_, exists := hub.runs["run-2"]
		hub.mutex.RUnlock()
		if !exists {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Error("expected run-2 subscriber set to be cleaned up after unregister")
}

func waitForRegistration(hub *Hub, connectionID string) {
	for i := 0; i < 1000; i++ {
		hub.mutex.RLock()
		_, exists := hub.clients[connectionID]
		hub.mutex.RUnlock()
		if exists {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

func waitForSubscription(hub *Hub, runID, connectionID string) {
	for i := 0; i < 1000; i++ {
		hub.mutex.RLock()
		subscribers, exists := hub.runs[runID]
		_, subscribed := subscribers[connectionID]
		hub.mutex.RUnlock()
		if exists && subscribed {
			return
		}
		time.Sleep(time.Millisecond)
	}
}
