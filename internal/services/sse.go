package services

import (
	"sync"
	"time"

	"github.com/jupiterbrains/insight/internal/cache"
)

// ChangeEvent notifies dashboard clients that rows changed in a table. It
// deliberately carries no row payload; consumers re-query instead of trusting
// embedded data.
type ChangeEvent struct {
	Table     string    `json:"table"`
	Operation string    `json:"operation"` // insert, update
	Timestamp time.Time `json:"timestamp"`
}

// SSEHub manages SSE client connections and change-event broadcasting.
type SSEHub struct {
	clients map[string]chan ChangeEvent
	mu      sync.RWMutex
}

// NewSSEHub creates a new SSE hub instance
func NewSSEHub() *SSEHub {
	return &SSEHub{
		clients: make(map[string]chan ChangeEvent),
	}
}

// Subscribe registers a new client and returns a channel for receiving events
func (h *SSEHub) Subscribe(clientID string) <-chan ChangeEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Create buffered channel to prevent blocking
	ch := make(chan ChangeEvent, 100)
	h.clients[clientID] = ch
	return ch
}

// Unsubscribe removes a client from the hub
func (h *SSEHub) Unsubscribe(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.clients[clientID]; ok {
		close(ch)
		delete(h.clients, clientID)
	}
}

// Publish broadcasts an event to all connected clients
func (h *SSEHub) Publish(event ChangeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.clients {
		// Non-blocking send - drop event if client buffer is full
		select {
		case ch <- event:
		default:
			// Client is slow, skip this event
		}
	}
}

// ClientCount returns the number of connected clients
func (h *SSEHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Global SSE Hub instance
var globalSSEHub *SSEHub
var sseHubOnce sync.Once

// GetSSEHub returns the global SSE hub singleton
func GetSSEHub() *SSEHub {
	sseHubOnce.Do(func() {
		globalSSEHub = NewSSEHub()
	})
	return globalSSEHub
}

// ChangeNotifier fans change notifications out to the query cache and to SSE
// clients. Writers call NotifyChange after touching a table; the cache marks
// bound query keys stale and connected dashboards learn to re-fetch.
type ChangeNotifier struct {
	hub   *SSEHub
	store *cache.Store
}

func NewChangeNotifier(hub *SSEHub, store *cache.Store) *ChangeNotifier {
	return &ChangeNotifier{hub: hub, store: store}
}

// NotifyChange publishes one table change to both consumers.
func (n *ChangeNotifier) NotifyChange(table, operation string) {
	now := time.Now()
	if n.store != nil {
		n.store.Invalidate(cache.Notification{Table: table, Operation: operation, Timestamp: now})
	}
	if n.hub != nil {
		n.hub.Publish(ChangeEvent{Table: table, Operation: operation, Timestamp: now})
	}
}
