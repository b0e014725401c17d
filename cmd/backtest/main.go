// cmd/backtest replays historical OHLCV bars through the SMA crossover
// strategy and prints trades, PnL, max drawdown and daily Sharpe.
//
// Usage:
//
//	go run ./cmd/backtest --csv=data/bars.csv --fast=20 --slow=50
package main

import (
	"flag"
	"fmt"
	"log"

	"signal-servicev1/internal/backtest"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	// Flags
	csvPath := flag.String("csv", "data/bars.csv", "Path to OHLCV CSV")
	fast := flag.Int("fast", 20, "Fast SMA period")
	slow := flag.Int("slow", 50, "Slow SMA period")
	feeBps := flag.Float64("fee-bps", 1.0, "Fee in basis points of notional")
	tickSize := flag.Float64("tick-size", 0.01, "Slippage per order")
	size := flag.Float64("size", 1.0, "Units per signal")
	out := flag.String("out", "equity_curve.csv", "Equity curve output path")
	flag.Parse()

	bars, err := backtest.ReadOHLCVCSV(*csvPath)
	if err != nil {
		log.Fatalf("[backtest] csv read failed: %v", err)
	}
	if len(bars) == 0 {
		log.Fatalf("[backtest] no usable bars in %s", *csvPath)
	}
	log.Printf("[backtest] loaded %d bars from %s", len(bars), *csvPath)

	bt, err := backtest.New(backtest.Config{
		Fast:     *fast,
		Slow:     *slow,
		FeeBps:   *feeBps,
		TickSize: *tickSize,
		Size:     *size,
	})
	if err != nil {
		log.Fatalf("[backtest] %v", err)
	}

	for _, bar := range bars {
		bt.OnBar(bar.TS, bar.Close)
	}
	bt.Finalize()

	fmt.Println("Trades:")
	for _, tr := range bt.Trades() {
		fmt.Printf("  %s  %-4s qty=%.2f fill=%.4f fee=%.6f\n",
			tr.TS.Format("2006-01-02 15:04:05"), tr.Side, tr.Qty, tr.Price, tr.Fee)
	}
	fmt.Println()
	fmt.Printf("Bars processed: %d\n", len(bars))
	fmt.Printf("Trades:         %d\n", len(bt.Trades()))
	fmt.Printf("Total PnL:      %.6f\n", bt.TotalPnL())
	fmt.Printf("Max Drawdown:   %.6f\n", bt.MaxDrawdown())
	fmt.Printf("Daily Sharpe:   %.4f\n", bt.DailySharpe())

	if err := backtest.SaveEquityCurve(*out, bt.EquityCurve()); err != nil {
		log.Fatalf("[backtest] equity curve write failed: %v", err)
	}
	log.Printf("[backtest] equity curve written to %s", *out)
}
