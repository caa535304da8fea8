package services

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// NotificationMessage is what websocket clients receive
type NotificationMessage struct {
	Type  string       `json:"type"` // borrow, pong, error
	Event *BorrowEvent `json:"event,omitempty"`
	Error string       `json:"error,omitempty"`
}

// NotificationHub fans borrow events out to connected websocket clients.
// Admins see every event, readers only their own.
type NotificationHub struct {
	clients   map[*NotificationClient]bool
	clientsMu sync.RWMutex

	register   chan *NotificationClient
	unregister chan *NotificationClient
	done       chan struct{}
	closeOnce  sync.Once

	sub *nats.Subscription

	delivered uint64
	dropped   uint64
}

// HubStats describe the connected clients and delivery counters
type HubStats struct {
	Clients   int    `json:"clients"`
	Admins    int    `json:"admins"`
	Delivered uint64 `json:"delivered"`
	Dropped   uint64 `json:"dropped"`
}

// NewNotificationHub creates a hub. Call Run in its own goroutine.
func NewNotificationHub() *NotificationHub {
	return &NotificationHub{
		clients:    make(map[*NotificationClient]bool),
		register:   make(chan *NotificationClient),
		unregister: make(chan *NotificationClient),
		done:       make(chan struct{}),
	}
}

// Attach subscribes the hub to every borrow event on the bus
func (h *NotificationHub) Attach(sub Subscriber) error {
	s, err := sub.Subscribe(BorrowSubjectWildcard, func(msg *nats.Msg) {
		evt, err := DecodeBorrowEvent(msg.Data)
		if err != nil {
			log.Warn().Err(err).Str("subject", msg.Subject).Msg("⚠️ Failed to decode borrow event")
			return
		}
		h.Broadcast(evt)
	})
	if err != nil {
		return err
	}
	h.sub = s
	return nil
}

// Register adds a client to the hub
func (h *NotificationHub) Register(client *NotificationClient) {
	select {
	case h.register <- client:
	case <-h.done:
		client.closeSend()
	}
}

// Unregister removes a client and closes its send channel
func (h *NotificationHub) Unregister(client *NotificationClient) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Run is the hub's main loop. It returns after Shutdown.
func (h *NotificationHub) Run() {
	log.Info().Msg("🔔 Notification hub started")

	for {
		select {
		case client := <-h.register:
			h.clientsMu.Lock()
			h.clients[client] = true
			h.clientsMu.Unlock()
			log.Info().Str("remote", client.remoteAddr).Uint("user_id", client.userID).Bool("admin", client.isAdmin).
				Msg("🔔 Client connected")

		case client := <-h.unregister:
			h.clientsMu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()
			}
			h.clientsMu.Unlock()
			log.Info().Str("remote", client.remoteAddr).Msg("🔔 Client disconnected")

		case <-h.done:
			h.clientsMu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				client.closeSend()
			}
			h.clientsMu.Unlock()
			log.Info().Msg("🔔 Notification hub stopped")
			return
		}
	}
}

// Broadcast delivers an event to every client allowed to see it.
// Clients with a full buffer miss the event.
func (h *NotificationHub) Broadcast(evt BorrowEvent) {
	payload, err := json.Marshal(NotificationMessage{Type: "borrow", Event: &evt})
	if err != nil {
		log.Error().Err(err).Msg("failed to encode notification")
		return
	}

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	for client := range h.clients {
		if !client.accepts(evt) {
			continue
		}
		select {
		case client.send <- payload:
			atomic.AddUint64(&h.delivered, 1)
		default:
			atomic.AddUint64(&h.dropped, 1)
		}
	}
}

// sendTo queues a payload for one registered client. The hub closes send
// channels under clientsMu, so holding the read lock keeps the channel open.
func (h *NotificationHub) sendTo(client *NotificationClient, payload []byte) bool {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	if !h.clients[client] {
		return false
	}
	select {
	case client.send <- payload:
		return true
	default:
		return false
	}
}

// Stats returns hub statistics
func (h *NotificationHub) Stats() HubStats {
	h.clientsMu.RLock()
	stats := HubStats{Clients: len(h.clients)}
	for client := range h.clients {
		if client.isAdmin {
			stats.Admins++
		}
	}
	h.clientsMu.RUnlock()

	stats.Delivered = atomic.LoadUint64(&h.delivered)
	stats.Dropped = atomic.LoadUint64(&h.dropped)
	return stats
}

// Shutdown stops the hub and disconnects every client
func (h *NotificationHub) Shutdown() {
	h.closeOnce.Do(func() {
		if h.sub != nil {
			h.sub.Unsubscribe()
		}
		close(h.done)
	})
}
