package state

import (
	"errors"
	"strings"
	"time"

	"signal-servicev1/internal/model"
)

// ErrSymbolNotFound is returned by Get and Subscribe for untracked symbols.
var ErrSymbolNotFound = errors.New("symbol not tracked")

const defaultEventBuffer = 1024

// Store maps tracked symbols to their SymbolState. The symbol registry is
// fixed at construction — keys are never added or removed afterwards, so the
// map itself needs no locking; only per-symbol state is synchronized.
type Store struct {
	states  map[string]*SymbolState
	symbols []string // registration order, for listings

	// events receives one SignalEvent per decision transition across all
	// symbols. Emission is non-blocking (drop-on-full) so journal/publish
	// consumers can never stall ingestion.
	events chan model.SignalEvent

	// OnEventDrop is called when the events channel is full and a
	// transition is dropped. Optional; wired to metrics.
	OnEventDrop func()
}

// NewStore creates a store tracking the given symbols, each with a rolling
// window of windowCap prices. Symbols are normalized to upper case.
func NewStore(symbols []string, windowCap int) *Store {
	st := &Store{
		states: make(map[string]*SymbolState, len(symbols)),
		events: make(chan model.SignalEvent, defaultEventBuffer),
	}
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		if _, dup := st.states[sym]; dup {
			continue
		}
		st.states[sym] = newSymbolState(windowCap)
		st.symbols = append(st.symbols, sym)
	}
	return st
}

// Get returns the latest published signal for a symbol.
// O(1): a lookup in the fixed registry plus an atomic pointer load.
func (st *Store) Get(symbol string) (model.Signal, error) {
	s, ok := st.states[strings.ToUpper(symbol)]
	if !ok {
		return model.Signal{}, ErrSymbolNotFound
	}
	return s.Signal(), nil
}

// Ingest routes a tick to the matching symbol's update transaction.
// Ticks for untracked symbols are dropped, not an error — the external feed
// is not scoped to the tracked set. Returns false when dropped.
func (st *Store) Ingest(tick model.Tick) bool {
	s, ok := st.states[strings.ToUpper(tick.Symbol)]
	if !ok {
		return false
	}

	sig, prev, changed := s.Update(tick.Price)
	if changed {
		ev := model.SignalEvent{
			Symbol: strings.ToUpper(tick.Symbol),
			Signal: sig,
			Prev:   prev,
			TS:     time.Now().UTC(),
		}
		select {
		case st.events <- ev:
		default:
			if st.OnEventDrop != nil {
				st.OnEventDrop()
			}
		}
	}
	return true
}

// Subscribe registers a change subscriber for one symbol.
func (st *Store) Subscribe(symbol string) (*Subscription, error) {
	s, ok := st.states[strings.ToUpper(symbol)]
	if !ok {
		return nil, ErrSymbolNotFound
	}
	return s.Subscribe(), nil
}

// Events returns the stream of decision transitions across all symbols.
func (st *Store) Events() <-chan model.SignalEvent {
	return st.events
}

// Symbols returns the tracked symbols in registration order.
func (st *Store) Symbols() []string {
	out := make([]string, len(st.symbols))
	copy(out, st.symbols)
	return out
}

// State returns the SymbolState for a symbol, or nil if untracked.
// Used by the stats endpoint.
func (st *Store) State(symbol string) *SymbolState {
	return st.states[strings.ToUpper(symbol)]
}
