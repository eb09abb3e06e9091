package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ifarias/examsched/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client is one connected viewer session.
type Client struct {
	ID     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	logger *zap.Logger
}

// previewMessage is the only inbound message kind: another scheduler
// dragging a resize shares it with everyone else. It is rebroadcast, never
// persisted.
type previewMessage struct {
	ReservationID  int64 `json:"reservation_id"`
	NewModuleCount int   `json:"new_module_count"`
}

// ServeWS upgrades the request and registers the session with the hub.
func ServeWS(hub *Hub, logger *zap.Logger, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		ID:     uuid.NewString(),
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 32),
		logger: logger,
	}

	if !hub.registerClient(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("viewer read error",
					zap.String("client_id", c.ID),
					zap.Error(err))
			}
			return
		}

		var msg previewMessage
		if err := json.Unmarshal(raw, &msg); err != nil || msg.ReservationID == 0 {
			c.logger.Warn("ignoring malformed viewer message", zap.String("client_id", c.ID))
			continue
		}

		c.hub.Publish(model.ChangeEvent{
			ID:             uuid.NewString(),
			Kind:           model.EventSpanPreview,
			ReservationID:  msg.ReservationID,
			NewModuleCount: msg.NewModuleCount,
		})
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
