package model

import (
	"encoding/json"
	"time"
)

// Trend is the direction of the SMA(20)/SMA(50) relationship.
type Trend string

const (
	TrendUp   Trend = "UP"
	TrendDown Trend = "DOWN"
	TrendFlat Trend = "FLAT"
)

// Decision is the trading action derived from trend + RSI.
type Decision string

const (
	DecisionBuy  Decision = "BUY"
	DecisionSell Decision = "SELL"
	DecisionHold Decision = "HOLD"
)

// Signal is the published (trend, decision, rsi) tuple for a symbol.
// Values are immutable once published — a new Signal replaces the old one
// atomically, never field by field.
type Signal struct {
	Trend    Trend    `json:"trend"`
	Decision Decision `json:"decision"`
	RSI      float64  `json:"rsi"` // [0, 100]
}

// Neutral is the signal a symbol carries before any tick arrives.
func Neutral() Signal {
	return Signal{Trend: TrendFlat, Decision: DecisionHold, RSI: 50.0}
}

// SignalEvent records a decision transition for one symbol.
// Emitted on the fan-out path (journal, redis publish, alerts).
type SignalEvent struct {
	Symbol string    `json:"symbol"`
	Signal Signal    `json:"signal"`
	Prev   Decision  `json:"prev_decision"`
	TS     time.Time `json:"ts"` // UTC transition time
}

// JSON returns the JSON-encoded event (ignoring errors for hot-path usage).
func (e *SignalEvent) JSON() []byte {
	b, _ := json.Marshal(e)
	return b
}
