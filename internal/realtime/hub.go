package realtime

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/hoverbird/ingrid-core/pkg/solver"
)

// MessageType defines the type of WebSocket message exchanged on a run's
// progress stream.
type MessageType string

const (
	// Client to Server
	MsgSubscribe   MessageType = "subscribe"
	MsgUnsubscribe MessageType = "unsubscribe"

	// Server to Client
	MsgProgress     MessageType = "progress"
	MsgRunCompleted MessageType = "run_completed"
	MsgRunFailed    MessageType = "run_failed"
	MsgError        MessageType = "error"
)

// Message is the envelope for every WebSocket frame.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// SubscribePayload names the fill run a client wants progress updates for.
type SubscribePayload struct {
	RunID string `json:"runId"`
}

// ProgressPayload mirrors solver.Statistics for a run that is still
// searching.
type ProgressPayload struct {
	RunID      string `json:"runId"`
	States     int    `json:"states"`
	Backtracks int    `json:"backtracks"`
	Retries    int    `json:"retries"`
}

// RunCompletedPayload reports a successful fill.
type RunCompletedPayload struct {
	RunID      string `json:"runId"`
	States     int    `json:"states"`
	Backtracks int    `json:"backtracks"`
	Retries    int    `json:"retries"`
}

// RunFailedPayload reports a run that ended in FillFailure.
type RunFailedPayload struct {
	RunID      string `json:"runId"`
	Reason     string `json:"reason"`
	Backtracks int    `json:"backtracks"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// Client is one WebSocket connection. It subscribes to at most one run's
// progress stream at a time.
type Client struct {
	ConnectionID string
	RunID        string
	Send         chan []byte
}

// Hub fans fill-run progress out to every client subscribed to that run.
// A run may have many subscribers (a builder's dashboard tab and a
// monitoring client both watching the same submission).
type Hub struct {
	clients    map[string]*Client            // connectionID -> client
	runs       map[string]map[string]*Client // runID -> connectionID -> client
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		runs:       make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client.ConnectionID] = client
			h.mutex.Unlock()
			log.Printf("realtime: client registered: %s", client.ConnectionID)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client.ConnectionID]; ok {
				delete(h.clients, client.ConnectionID)
				close(client.Send)
			}
			h.mutex.Unlock()

			if client.RunID != "" {
				h.removeFromRun(client)
			}
			log.Printf("realtime: client unregistered: %s", client.ConnectionID)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// HandleMessage dispatches a message received from a client.
func (h *Hub) HandleMessage(client *Client, msg *Message) {
	switch msg.Type {
	case MsgSubscribe:
		h.handleSubscribe(client, msg.Payload)
	case MsgUnsubscribe:
		h.handleUnsubscribe(client)
	default:
		log.Printf("realtime: unknown message type: %s", msg.Type)
	}
}

func (h *Hub) handleSubscribe(client *Client, payload json.RawMessage) {
	var p SubscribePayload
	if err := json.Unmarshal(payload, &p); err != nil || p.RunID == "" {
		h.sendError(client, "invalid subscribe payload")
		return
	}
	h.Subscribe(client, p.RunID)
}

// Subscribe attaches client to runID's progress stream, replacing any
// subscription it already holds.
func (h *Hub) Subscribe(client *Client, runID string) {
	if client.RunID != "" {
		h.removeFromRun(client)
	}

	h.mutex.Lock()
	subscribers, exists := h.runs[runID]
	if !exists {
		subscribers = make(map[string]*Client)
		h.runs[runID] = subscribers
	}
	subscribers[client.ConnectionID] = client
	h.mutex.Unlock()

	client.RunID = runID
}

func (h *Hub) handleUnsubscribe(client *Client) {
	if client.RunID == "" {
		return
	}
	h.removeFromRun(client)
}

func (h *Hub) removeFromRun(client *Client) {
	h.mutex.Lock()
	subscribers, exists := h.runs[client.RunID]
	if exists {
		delete(subscribers, client.ConnectionID)
		if len(subscribers) == 0 {
			delete(h.runs, client.RunID)
		}
	}
	h.mutex.Unlock()
	client.RunID = ""
}

// BroadcastProgress pushes a mid-search statistics snapshot to every client
// subscribed to runID. Called from internal/api while a solver.FindFill
// call is still running.
func (h *Hub) BroadcastProgress(runID string, stats solver.Statistics) {
	h.broadcastToRun(runID, MsgProgress, ProgressPayload{
		RunID:      runID,
		States:     stats.States,
		Backtracks: stats.Backtracks,
		Retries:    stats.Retries,
	})
}

// BroadcastCompleted announces a successful fill.
func (h *Hub) BroadcastCompleted(runID string, stats solver.Statistics) {
	h.broadcastToRun(runID, MsgRunCompleted, RunCompletedPayload{
		RunID:      runID,
		States:     stats.States,
		Backtracks: stats.Backtracks,
		Retries:    stats.Retries,
	})
}

// BroadcastFailed announces that a run ended in solver.FillFailure.
func (h *Hub) BroadcastFailed(runID string, failure *solver.FillFailure) {
	h.broadcastToRun(runID, MsgRunFailed, RunFailedPayload{
		RunID:      runID,
		Reason:     failure.Error(),
		Backtracks: failure.Backtracks,
	})
}

func (h *Hub) broadcastToRun(runID string, msgType MessageType, payload interface{}) {
	h.mutex.RLock()
	subscribers, exists := h.runs[runID]
	h.mutex.RUnlock()
	if !exists {
		return
	}

	msgData, err := encodeMessage(msgType, payload)
	if err != nil {
		return
	}

	h.mutex.RLock()
	for _, client := range subscribers {
		select {
		case client.Send <- msgData:
		default:
			// Channel full, skip message.
		}
	}
	h.mutex.RUnlock()
}

func (h *Hub) sendError(client *Client, message string) {
	msgData, err := encodeMessage(MsgError, ErrorPayload{Message: message})
	if err != nil {
		return
	}
	select {
	case client.Send <- msgData:
	default:
	}
}

func encodeMessage(msgType MessageType, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: msgType, Payload: data})
}
