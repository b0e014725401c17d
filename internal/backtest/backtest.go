// Package backtest runs a deterministic SMA-crossover backtest over
// historical OHLCV bars.
//
// Execution model: fixed size per signal, 1-tick slippage per order, fees
// charged on notional, positions flattened at each day boundary and at the
// end of the run. Equity is marked to market at every bar close.
package backtest

import (
	"fmt"
	"math"
	"sort"
	"time"

	"signal-servicev1/internal/window"
)

// Config holds backtest parameters.
type Config struct {
	Fast     int     // fast SMA period, e.g. 20
	Slow     int     // slow SMA period, e.g. 50
	FeeBps   float64 // fee in basis points of notional, e.g. 1.0
	TickSize float64 // slippage per order, e.g. 0.01
	Size     float64 // units per signal, e.g. 1.0
}

func (c *Config) defaults() {
	if c.Fast == 0 {
		c.Fast = 20
	}
	if c.Slow == 0 {
		c.Slow = 50
	}
	if c.FeeBps == 0 {
		c.FeeBps = 1.0
	}
	if c.TickSize == 0 {
		c.TickSize = 0.01
	}
	if c.Size == 0 {
		c.Size = 1.0
	}
}

// Trade is one executed order, fill price including slippage.
type Trade struct {
	TS    time.Time
	Side  string // "BUY" or "SELL"
	Qty   float64
	Price float64
	Fee   float64
}

// EquityPoint is one mark-to-market sample of the equity curve.
type EquityPoint struct {
	TS     time.Time
	Equity float64
}

// Backtester replays bars through an SMA crossover strategy and tracks
// position, cash and equity.
type Backtester struct {
	cfg     Config
	feeRate float64

	fastWin *window.Window
	slowWin *window.Window
	scratch []float64

	position  float64
	cash      float64
	lastClose float64
	haveClose bool

	curDay  time.Time // midnight UTC of the current trading day
	haveDay bool

	trades []Trade
	curve  []EquityPoint
}

// New creates a Backtester. Requires 0 < fast < slow.
func New(cfg Config) (*Backtester, error) {
	cfg.defaults()
	if cfg.Fast <= 0 || cfg.Slow <= 0 || cfg.Fast >= cfg.Slow {
		return nil, fmt.Errorf("backtest: expect 0 < fast < slow, got fast=%d slow=%d", cfg.Fast, cfg.Slow)
	}
	return &Backtester{
		cfg:     cfg,
		feeRate: cfg.FeeBps / 10000.0,
		fastWin: window.New(cfg.Fast),
		slowWin: window.New(cfg.Slow),
		scratch: make([]float64, 0, cfg.Slow),
	}, nil
}

// OnBar processes one bar close in ascending time order.
func (b *Backtester) OnBar(ts time.Time, close float64) {
	b.fastWin.Push(close)
	b.slowWin.Push(close)

	b.maybeEODFlat(ts, close)

	if b.fastWin.Len() == b.fastWin.Cap() && b.slowWin.Len() == b.slowWin.Cap() {
		fast := b.mean(b.fastWin)
		slow := b.mean(b.slowWin)

		switch {
		case b.position <= 0 && fast > slow:
			// Golden cross: go long
			b.exec(ts, "BUY", close, b.cfg.Size)
		case b.position > 0 && fast < slow:
			// Death cross: flat only, no shorting
			b.exec(ts, "SELL", close, b.position)
		}
	}

	b.curve = append(b.curve, EquityPoint{TS: ts, Equity: b.cash + b.position*close})
	b.lastClose = close
	b.haveClose = true
}

// Finalize flattens any open position at the last observed close.
// Call once after the final bar.
func (b *Backtester) Finalize() {
	if b.position == 0 || !b.haveClose {
		return
	}
	ts := time.Now().UTC()
	if len(b.curve) > 0 {
		ts = b.curve[len(b.curve)-1].TS
	}
	side := "SELL"
	if b.position < 0 {
		side = "BUY"
	}
	b.exec(ts, side, b.lastClose, math.Abs(b.position))
	b.curve = append(b.curve, EquityPoint{TS: ts, Equity: b.cash + b.position*b.lastClose})
}

// maybeEODFlat flattens the open position on the first bar of a new
// calendar day (UTC), at that bar's close.
func (b *Backtester) maybeEODFlat(ts time.Time, close float64) {
	day := ts.UTC().Truncate(24 * time.Hour)
	if !b.haveDay {
		b.curDay = day
		b.haveDay = true
		return
	}
	if !day.Equal(b.curDay) {
		if b.position != 0 {
			side := "SELL"
			if b.position < 0 {
				side = "BUY"
			}
			b.exec(ts, side, close, math.Abs(b.position))
		}
		b.curDay = day
	}
}

// exec fills an order with 1-tick slippage against the trade direction
// and charges fees on the slipped notional.
func (b *Backtester) exec(ts time.Time, side string, price, qty float64) {
	var fill float64
	if side == "BUY" {
		fill = price + b.cfg.TickSize
		b.position += qty
		b.cash -= fill * qty
	} else {
		fill = price - b.cfg.TickSize
		b.position -= qty
		b.cash += fill * qty
	}
	fee := math.Abs(fill*qty) * b.feeRate
	b.cash -= fee
	b.trades = append(b.trades, Trade{TS: ts, Side: side, Qty: qty, Price: fill, Fee: fee})
}

func (b *Backtester) mean(w *window.Window) float64 {
	b.scratch = b.scratch[:0]
	b.scratch = w.Values(b.scratch)
	sum := 0.0
	for _, v := range b.scratch {
		sum += v
	}
	return sum / float64(len(b.scratch))
}

// Trades returns all executed trades in order.
func (b *Backtester) Trades() []Trade { return b.trades }

// EquityCurve returns the mark-to-market equity samples.
func (b *Backtester) EquityCurve() []EquityPoint { return b.curve }

// Position returns the current open position.
func (b *Backtester) Position() float64 { return b.position }

// TotalPnL is final equity relative to the zero starting equity.
func (b *Backtester) TotalPnL() float64 {
	if len(b.curve) == 0 {
		return 0
	}
	return b.curve[len(b.curve)-1].Equity
}

// MaxDrawdown is the largest peak-to-trough equity decline.
func (b *Backtester) MaxDrawdown() float64 {
	maxEq := math.Inf(-1)
	maxDD := 0.0
	for _, p := range b.curve {
		if p.Equity > maxEq {
			maxEq = p.Equity
		}
		if dd := maxEq - p.Equity; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// DailySharpe computes the annualized Sharpe ratio of daily equity returns
// (sqrt(252) annualization). Returns 0 with fewer than two trading days.
func (b *Backtester) DailySharpe() float64 {
	if len(b.curve) < 2 {
		return 0
	}

	// Last equity per calendar day
	byDay := make(map[time.Time]float64)
	for _, p := range b.curve {
		byDay[p.TS.UTC().Truncate(24*time.Hour)] = p.Equity
	}
	if len(byDay) < 2 {
		return 0
	}

	days := make([]time.Time, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	rets := make([]float64, 0, len(days)-1)
	for i := 1; i < len(days); i++ {
		prev, cur := byDay[days[i-1]], byDay[days[i]]
		if prev != 0 {
			rets = append(rets, (cur-prev)/math.Abs(prev))
		}
	}
	if len(rets) == 0 {
		return 0
	}

	mean := 0.0
	for _, r := range rets {
		mean += r
	}
	mean /= float64(len(rets))

	variance := 0.0
	if len(rets) > 1 {
		for _, r := range rets {
			variance += (r - mean) * (r - mean)
		}
		variance /= float64(len(rets) - 1)
	}
	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}
	return (mean / std) * math.Sqrt(252)
}
