package model

// Tick represents a single price observation for one symbol.
// TS is epoch seconds (float) as produced by the tick feed; Price is the
// last traded price. Ticks are ephemeral — consumed once by a window update.
type Tick struct {
	Symbol string  `json:"symbol"`
	TS     float64 `json:"ts"` // epoch seconds
	Price  float64 `json:"price"`
}
