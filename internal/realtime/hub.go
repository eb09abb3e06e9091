package realtime

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/ifarias/examsched/internal/model"
)

// Publisher consumes broadcast change events.
type Publisher interface {
	Publish(evt model.ChangeEvent)
}

// Fanout delivers one event to several publishers (the hub plus any local
// sinks such as the reconciler-backed view cache).
type Fanout []Publisher

func (f Fanout) Publish(evt model.ChangeEvent) {
	for _, p := range f {
		p.Publish(evt)
	}
}

// Hub keeps the set of connected viewer sessions and fans change events out
// to all of them. Delivery per connection is ordered; a client that cannot
// keep up is dropped and reconnects with a fresh snapshot.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan model.ChangeEvent
	done       chan struct{}
	logger     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan model.ChangeEvent, 64),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes registrations and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.logger.Info("viewer connected",
				zap.String("client_id", client.ID),
				zap.Int("viewers", len(h.clients)))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Info("viewer disconnected",
					zap.String("client_id", client.ID),
					zap.Int("viewers", len(h.clients)))
			}

		case evt := <-h.broadcast:
			payload, err := json.Marshal(evt)
			if err != nil {
				h.logger.Error("failed to marshal event", zap.Error(err))
				continue
			}
			for client := range h.clients {
				select {
				case client.send <- payload:
				default:
					// slow consumer, cut it loose
					delete(h.clients, client)
					close(client.send)
					h.logger.Warn("dropped slow viewer", zap.String("client_id", client.ID))
				}
			}

		case <-ctx.Done():
			// pumps still running select on done instead of the channels
			close(h.done)
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.logger.Info("hub stopped")
			return
		}
	}
}

// registerClient admits a session unless the hub already stopped.
func (h *Hub) registerClient(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// unregisterClient hands a session back; after shutdown it is a no-op so
// late-exiting read pumps do not block forever.
func (h *Hub) unregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish queues an event for broadcast without blocking the caller.
func (h *Hub) Publish(evt model.ChangeEvent) {
	select {
	case h.broadcast <- evt:
	default:
		h.logger.Warn("broadcast queue full, dropping event",
			zap.String("kind", evt.Kind),
			zap.String("event_id", evt.ID))
	}
}
