// Package ws pushes job events to WebSocket subscribers.
package ws

import (
	"context"
	"encoding/json"

	"github.com/vddownco/video-downloader-hls/pkg/schemas"
)

// broadcastBuffer bounds pending broadcasts; events are best-effort and
// surplus is dropped rather than blocking producers
const broadcastBuffer = 256

// Hub fans events out to every connected client
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
}

// NewHub creates an empty hub. Run must be started before clients connect.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run owns the client set until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow client, disconnect it
					delete(h.clients, client)
					close(client.send)
				}
			}

		case <-ctx.Done():
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			return
		}
	}
}

// Publish broadcasts an event to all connected clients. Publishing never
// blocks; when the hub is saturated the event is dropped.
func (h *Hub) Publish(event schemas.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	select {
	case h.broadcast <- data:
	default:
	}
}
