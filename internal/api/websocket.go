package api

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/file-uploader/backend/internal/models"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// WebSocket message types for the status protocol
const (
	// Server -> Client messages
	MsgTypeStored = "file:stored"
	MsgTypePong   = "pong"

	// Client -> Server messages
	MsgTypePing = "ping"
)

// WSMessage is the envelope for every status socket frame.
type WSMessage struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

var statusUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// The endpoint accepts cross-origin requests.
		return true
	},
}

// StatusHub broadcasts stored-file events to connected status sockets.
type StatusHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// NewStatusHub creates an empty StatusHub.
func NewStatusHub() *StatusHub {
	return &StatusHub{clients: make(map[*websocket.Conn]bool)}
}

// BroadcastStored notifies all subscribers that a file was stored. Clients
// whose writes fail are dropped.
func (h *StatusHub) BroadcastStored(info *models.StoredFile) {
	msg := WSMessage{
		Type:      MsgTypeStored,
		Payload:   info,
		Timestamp: time.Now().UnixMilli(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteJSON(msg); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// ClientCount returns the number of connected subscribers.
func (h *StatusHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// HandleStatusSocket upgrades the connection and subscribes it to stored-file
// events. The read loop only answers pings; the socket is server-push.
func (h *StatusHub) HandleStatusSocket(c echo.Context) error {
	conn, err := statusUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade: %w", err)
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return nil
		}
		if msg.Type == MsgTypePing {
			pong := WSMessage{Type: MsgTypePong, Timestamp: time.Now().UnixMilli()}
			if err := conn.WriteJSON(pong); err != nil {
				return nil
			}
		}
	}
}
