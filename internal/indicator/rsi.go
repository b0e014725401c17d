package indicator

// RSI computes the Relative Strength Index using Wilder's smoothing.
//
// The averages are seeded with the simple mean of gains/losses over the first
// `period` deltas, then smoothed across every remaining delta in the snapshot:
//
//	avgGain = (avgGain*(period-1) + gain) / period
//
// The smoothing recurrence depends on all deltas since window start, so
// callers must pass the full retained window, not just the trailing
// period+1 prices.
//
// Fewer than period+1 prices → 50.0 (not enough data to judge
// overbought/oversold). Degenerate averages map to defined neutral values:
// no losses and no gains → 50.0 (flat market), only gains → 100.0, only
// losses → 0.0. The result is clamped to [0, 100].
//
// Panics if period <= 0.
func RSI(prices []float64, period int) float64 {
	checkPeriod(period)

	if len(prices) < period+1 {
		return 50.0
	}

	// Seed averages from the first `period` deltas.
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		d := prices[i] - prices[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	// Wilder smoothing over the remaining deltas, in chronological order.
	p := float64(period)
	for i := period + 1; i < len(prices); i++ {
		gain, loss := 0.0, 0.0
		if d := prices[i] - prices[i-1]; d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
	}

	var rsi float64
	switch {
	case avgLoss == 0 && avgGain == 0:
		rsi = 50.0
	case avgLoss == 0:
		rsi = 100.0
	case avgGain == 0:
		rsi = 0.0
	default:
		rs := avgGain / avgLoss
		rsi = 100.0 - 100.0/(1.0+rs)
	}

	// Clamp against floating error.
	if rsi < 0.0 {
		rsi = 0.0
	} else if rsi > 100.0 {
		rsi = 100.0
	}
	return rsi
}
