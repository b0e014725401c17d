// Package gateway serves the REST and WebSocket signal API.
package gateway

import (
	"log"
	"sync"
	"time"

	"signal-servicev1/internal/model"
	"signal-servicev1/internal/state"

	"github.com/gorilla/websocket"
)

// TransitionReader reads recent decision transitions for a symbol.
// Satisfied by the SQLite journal; nil disables the /api/transitions route.
type TransitionReader interface {
	Recent(symbol string, limit int) ([]model.SignalEvent, error)
}

// Hub owns the set of connected WebSocket clients and their subscriptions
// into the signal store.
type Hub struct {
	Store       *state.Store
	Transitions TransitionReader

	// End-to-end latency tracker (tick receipt → signal publish)
	Latency *LatencyTracker

	// OnClientCount is called with the client count after each connect or
	// disconnect. Optional; wired to the ws_clients gauge.
	OnClientCount func(n int)

	mu      sync.RWMutex
	clients map[*Client]bool

	startedAt time.Time
}

// NewHub creates a Hub serving signals from the given store.
func NewHub(store *state.Store, transitions TransitionReader) *Hub {
	return &Hub{
		Store:       store,
		Transitions: transitions,
		Latency:     NewLatencyTracker(10000), // 10k sample ring buffer
		clients:     make(map[*Client]bool),
		startedAt:   time.Now(),
	}
}

// HandleWSConn registers an upgraded connection as a signal stream client
// for one symbol. The caller has already validated the symbol.
func (h *Hub) HandleWSConn(conn *websocket.Conn, symbol string, sub *state.Subscription) {
	client := &Client{
		conn:   conn,
		send:   make(chan []byte, 256),
		hub:    h,
		symbol: symbol,
		sub:    sub,
	}

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	h.notifyClientCount(count)
	log.Printf("[gateway] ws client connected: symbol=%s (%d total)", symbol, count)

	go client.forwardSignals()
	go client.writePump()
	go client.readPump()
}

// RemoveClient detaches a client and closes its subscription.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()

	// Closing the subscription ends forwardSignals, which closes c.send
	// as its sole sender; writePump then shuts the connection down.
	c.sub.Close()
	h.notifyClientCount(count)
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Uptime returns time elapsed since the hub was created.
func (h *Hub) Uptime() time.Duration {
	return time.Since(h.startedAt)
}

func (h *Hub) notifyClientCount(n int) {
	if h.OnClientCount != nil {
		h.OnClientCount(n)
	}
}
