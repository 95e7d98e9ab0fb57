package realtime

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWs upgrades an HTTP request to a WebSocket connection, registers a
// new Client with the hub, and pumps messages in both directions until the
// connection closes. A non-empty runID subscribes the client to that run
// immediately; either way the client may re-subscribe via messages later.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request, runID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &Client{
		ConnectionID: uuid.New().String(),
		Send:         make(chan []byte, 256),
	}
	hub.Register(client)
	if runID != "" {
		hub.Subscribe(client, runID)
	}

	go writePump(hub, conn, client)
	go readPump(hub, conn, client)
	return nil
}

// readPump relays Subscribe/Unsubscribe messages from the connection to the
// hub until the connection closes, then unregisters the client.
func readPump(hub *Hub, conn *websocket.Conn, client *Client) {
	defer func() {
		hub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("realtime: unexpected close for %s: %v", client.ConnectionID, err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			hub.sendError(client, "malformed message")
			continue
		}
		hub.HandleMessage(client, &msg)
	}
}

// writePump relays the client's Send channel onto the connection, and keeps
// it alive with periodic pings.
func writePump(hub *Hub, conn *websocket.Conn, client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
