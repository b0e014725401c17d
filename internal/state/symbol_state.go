// Package state owns the per-symbol rolling window and the published signal.
//
// Concurrency discipline: each symbol has a single-writer update transaction
// (mutex-guarded push + recompute) and lock-free reads (the current Signal is
// published via an atomic pointer swap). Readers always observe a Signal that
// was fully produced by one completed update — never a torn window/signal pair.
package state

import (
	"sync"
	"sync/atomic"

	"signal-servicev1/internal/indicator"
	"signal-servicev1/internal/model"
	"signal-servicev1/internal/window"
)

// SymbolState holds one symbol's rolling window plus its latest signal.
// Created once at startup per tracked symbol, never destroyed.
type SymbolState struct {
	mu      sync.Mutex // guards window + scratch; serializes the update transaction
	window  *window.Window
	scratch []float64 // reused snapshot buffer, guarded by mu

	current  atomic.Pointer[model.Signal]
	notifier *Notifier
}

// newSymbolState creates a state with an empty window and a neutral signal.
func newSymbolState(windowCap int) *SymbolState {
	s := &SymbolState{
		window:   window.New(windowCap),
		scratch:  make([]float64, 0, windowCap),
		notifier: newNotifier(),
	}
	sig := model.Neutral()
	s.current.Store(&sig)
	return s
}

// Update runs the update transaction: append price → recompute indicators →
// publish the new signal. The mutex makes concurrent updates mutually
// exclusive; the atomic pointer swap makes the new signal visible to readers
// as a single indivisible step.
//
// Returns the new signal, the previous decision, and whether the decision
// changed. prev is read inside the transaction so concurrent producers see
// consistent transitions.
func (s *SymbolState) Update(price float64) (sig model.Signal, prev model.Decision, changed bool) {
	s.mu.Lock()
	s.window.Push(price)
	s.scratch = s.scratch[:0]
	s.scratch = s.window.Values(s.scratch)
	sig = indicator.Decide(s.scratch)

	prev = s.current.Load().Decision
	s.current.Store(&sig)
	s.mu.Unlock()

	changed = prev != sig.Decision
	if changed {
		// Fire-and-forget relative to subscribers; never blocks ingestion.
		s.notifier.Publish(sig)
	}
	return sig, prev, changed
}

// Signal returns the latest published signal. O(1), never blocks on the
// update transaction.
func (s *SymbolState) Signal() model.Signal {
	return *s.current.Load()
}

// Subscribe registers a change subscriber. The current signal is delivered
// immediately so a subscriber never waits for the first decision change to
// receive data.
func (s *SymbolState) Subscribe() *Subscription {
	return s.notifier.Subscribe(s.Signal())
}

// SubscriberCount reports how many change subscribers are attached.
func (s *SymbolState) SubscriberCount() int {
	return s.notifier.SubscriberCount()
}

// WindowLen reports how many prices the window currently holds.
// Used by the stats endpoint; takes the update lock briefly.
func (s *SymbolState) WindowLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window.Len()
}
