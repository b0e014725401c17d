package gateway

import (
	"encoding/json"
	"log"
	"time"

	"signal-servicev1/internal/model"
	"signal-servicev1/internal/state"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Client represents a single WebSocket peer streaming one symbol's signal.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
	symbol string
	sub    *state.Subscription
}

// forwardSignals pushes subscription deliveries into the send queue.
// The first delivery is the signal current at subscribe time; afterwards
// the subscription only fires on decision changes, but coalescing can
// collapse a change-and-revert into the decision already sent, so dupes
// are suppressed here.
func (c *Client) forwardSignals() {
	defer close(c.send) // sole sender; unblocks writePump on teardown

	first := true
	var lastSent model.Decision

	for sig := range c.sub.C {
		if !first && sig.Decision == lastSent {
			continue
		}
		first = false
		lastSent = sig.Decision

		payload, err := json.Marshal(signalDTO(c.symbol, sig))
		if err != nil {
			continue
		}
		select {
		case c.send <- payload:
		default:
			// Slow reader: writePump's queue is full, drop rather than
			// block the fan-out.
		}
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
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

// readPump discards inbound frames; it exists to service pongs and to
// detect disconnects.
func (c *Client) readPump() {
	defer func() {
		c.hub.RemoveClient(c)
		c.conn.Close()
		log.Printf("[gateway] ws client disconnected: symbol=%s", c.symbol)
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
