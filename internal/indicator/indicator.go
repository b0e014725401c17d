// Package indicator provides technical indicator calculations over a rolling
// price window snapshot.
//
// All functions are pure: given the same prices they produce bit-identical
// results, which keeps replay and testing deterministic. Computation walks the
// snapshot once per call — the service recomputes on every tick rather than
// carrying incremental state, trading a few hundred float ops for exact
// reproducibility.
package indicator

import (
	"fmt"

	"signal-servicev1/internal/model"
)

// Default periods for the decision rule. Fixed — no config.
const (
	ShortPeriod = 20
	LongPeriod  = 50
	RSIPeriod   = 14
)

// RSI thresholds for the decision rule.
const (
	rsiOversold   = 30.0
	rsiOverbought = 70.0
)

func checkPeriod(period int) {
	if period <= 0 {
		panic(fmt.Sprintf("indicator: period must be > 0, got %d", period))
	}
}

// Decide applies the SMA(20/50) + RSI(14) rule to a window snapshot.
//
//	smaShort > smaLong, rsi < 30  → UP,   BUY  (oversold in uptrend)
//	smaShort > smaLong, rsi ≥ 30  → UP,   HOLD
//	smaShort < smaLong, rsi > 70  → DOWN, SELL (overbought in downtrend)
//	smaShort < smaLong, rsi ≤ 70  → DOWN, HOLD
//	smaShort == smaLong           → FLAT, HOLD
func Decide(prices []float64) model.Signal {
	rsi := RSI(prices, RSIPeriod)
	smaShort := SMA(prices, ShortPeriod)
	smaLong := SMA(prices, LongPeriod)
	return classify(smaShort, smaLong, rsi)
}

func classify(smaShort, smaLong, rsi float64) model.Signal {
	sig := model.Signal{Trend: model.TrendFlat, Decision: model.DecisionHold, RSI: rsi}

	switch {
	case smaShort > smaLong:
		sig.Trend = model.TrendUp
		if rsi < rsiOversold {
			sig.Decision = model.DecisionBuy
		}
	case smaShort < smaLong:
		sig.Trend = model.TrendDown
		if rsi > rsiOverbought {
			sig.Decision = model.DecisionSell
		}
	}
	return sig
}
