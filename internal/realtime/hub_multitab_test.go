package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/hoverbird/ingrid-core/pkg/solver"
)

// TestMultiSubscriberSupport verifies that several connections (e.g. a
// builder's dashboard tab and a separate monitoring client) can watch the
// same run concurrently.
func TestMultiSubscriberSupport(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	runID := "run-multi-1"
	client1 := &Client{ConnectionID: "conn-1", Send: make(chan []byte, 256)}
	client2 := &Client{ConnectionID: "conn-2", Send: make(chan []byte, 256)}

	hub.Register(client1)
	hub.Register(client2)
	waitForRegistration(hub, client1.ConnectionID)
	waitForRegistration(hub, client2.ConnectionID)

	subscribePayload, _ := json.Marshal(SubscribePayload{RunID: runID})
	hub.HandleMessage(client1, &Message{Type: MsgSubscribe, Payload: subscribePayload})
	hub.HandleMessage(client2, &Message{Type: MsgSubscribe, Payload: subscribePayload})
	waitForSubscription(hub, runID, client1.ConnectionID)
	waitForSubscription(hub, runID, client2.ConnectionID)

	hub.mutex.RLock()
	subscribers := len(hub.runs[runID])
	hub.mutex.RUnlock()
	if subscribers != 2 {
		t.Fatalf("expected 2 subscribers for %s, got %d", runID, subscribers)
	}

	// Unregister the first subscriber; the second must remain.
	hub.Unregister(client1)
	for i := 0; i < 1000; i++ {
		hub.mutex.RLock()
		_, stillThere := hub.runs[runID][client1.ConnectionID]
		hub.mutex.RUnlock()
		if !stillThere {
			break
		}
		time.Sleep(time.Millisecond)
	}

	hub.mutex.RLock()
	_, client1Present := hub.runs[runID][client1.ConnectionID]
	_, client2Present := hub.runs[runID][client2.ConnectionID]
	hub.mutex.RUnlock()

	if client1Present {
		t.Error("client1 should have been removed from the run's subscriber set")
	}
	if !client2Present {
		t.Error("client2 should still be subscribed")
	}

	hub.Unregister(client2)
	for i := 0; i < 1000; i++ {
		hub.mutex.RLock()
		_, exists := hub.runs[runID]
		hub.mutex.RUnlock()
		if !exists {
			break
		}
		time.Sleep(time.Millisecond)
	}

	hub.mutex.RLock()
	_, runStillExists := hub.runs[runID]
	hub.mutex.RUnlock()
	if runStillExists {
		t.Error("run should be removed from the hub once its last subscriber disconnects")
	}
}

// TestBroadcastReachesAllSubscribers verifies a progress broadcast reaches
// every subscriber of a run, and none outside it.
func TestBroadcastReachesAllSubscribers(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	runA := "run-a"
	runB := "run-b"

	clientA1 := &Client{ConnectionID: "a1", Send: make(chan []byte, 8)}
	clientA2 := &Client{ConnectionID: "a2", Send: make(chan []byte, 8)}
	clientB := &Client{ConnectionID: "b1", Send: make(chan []byte, 8)}

	for _, c := range []*Client{clientA1, clientA2, clientB} {
		hub.Register(c)
		waitForRegistration(hub, c.ConnectionID)
	}

	subA, _ := json.Marshal(SubscribePayload{RunID: runA})
	subB, _ := json.Marshal(SubscribePayload{RunID: runB})
	hub.HandleMessage(clientA1, &Message{Type: MsgSubscribe, Payload: subA})
	hub.HandleMessage(clientA2, &Message{Type: MsgSubscribe, Payload: subA})
	hub.HandleMessage(clientB, &Message{Type: MsgSubscribe, Payload: subB})
	waitForSubscription(hub, runA, clientA1.ConnectionID)
	waitForSubscription(hub, runA, clientA2.ConnectionID)
	waitForSubscription(hub, runB, clientB.ConnectionID)

	hub.BroadcastCompleted(runA, solver.Statistics{States: 42, Backtracks: 3, Retries: 0})

	for _, c := range []*Client{clientA1, clientA2} {
		select {
		case <-c.Send:
		default:
			t.Errorf("subscriber %s of %s did not receive the broadcast", c.ConnectionID, runA)
		}
	}

	select {
	case <-clientB.Send:
		t.Error("subscriber of a different run should not receive the broadcast")
	default:
	}
}
