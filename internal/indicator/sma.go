package indicator

// SMA computes the Simple Moving Average of the last `period` prices.
//
// With fewer than `period` prices the most recent price is returned as a
// neutral proxy (an empty snapshot returns 0.0). Returning the last price
// preserves the latest market information instead of fabricating zero
// momentum, which would bias trend detection downward.
//
// Panics if period <= 0.
func SMA(prices []float64, period int) float64 {
	checkPeriod(period)

	n := len(prices)
	if n == 0 {
		return 0.0
	}
	if n < period {
		return prices[n-1]
	}

	total := 0.0
	for _, p := range prices[n-period:] {
		total += p
	}
	return total / float64(period)
}
