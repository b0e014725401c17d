// Package window provides a fixed-capacity rolling price window.
//
// A Window holds the most recent prices for one symbol in insertion order.
// Uses a preallocated circular buffer for zero-allocation pushes; once full,
// each push evicts the oldest price. A Window is owned exclusively by one
// SymbolState and is not safe for concurrent use on its own — the owner
// serializes Push against snapshot reads.
package window

import "fmt"

// Window is a bounded FIFO of float64 prices.
type Window struct {
	buf   []float64
	head  int // index of the oldest element
	count int
}

// New creates a Window with the given capacity.
// Panics if capacity <= 0 — capacities are fixed at construction and a
// non-positive value is a caller programming error.
func New(capacity int) *Window {
	if capacity <= 0 {
		panic(fmt.Sprintf("window: capacity must be > 0, got %d", capacity))
	}
	return &Window{buf: make([]float64, capacity)}
}

// Push appends a price, evicting the oldest when the window is full.
func (w *Window) Push(price float64) {
	if w.count < len(w.buf) {
		w.buf[(w.head+w.count)%len(w.buf)] = price
		w.count++
		return
	}
	// Full: overwrite the oldest slot and advance head.
	w.buf[w.head] = price
	w.head = (w.head + 1) % len(w.buf)
}

// Values appends the window contents in chronological order (oldest first)
// to dst and returns the result. Pass a reused slice to avoid allocation on
// the hot path.
func (w *Window) Values(dst []float64) []float64 {
	for i := 0; i < w.count; i++ {
		dst = append(dst, w.buf[(w.head+i)%len(w.buf)])
	}
	return dst
}

// Last returns the most recently pushed price. ok is false when empty.
func (w *Window) Last() (price float64, ok bool) {
	if w.count == 0 {
		return 0, false
	}
	return w.buf[(w.head+w.count-1)%len(w.buf)], true
}

// Len returns the current number of prices held.
func (w *Window) Len() int { return w.count }

// Cap returns the fixed capacity.
func (w *Window) Cap() int { return len(w.buf) }
