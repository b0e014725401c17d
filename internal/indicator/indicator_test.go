package indicator

import (
	"math"
	"testing"

	"signal-servicev1/internal/model"
	"signal-servicev1/internal/window"
)

func TestSMA_Empty(t *testing.T) {
	if got := SMA(nil, 20); got != 0.0 {
		t.Errorf("expected 0.0 for empty snapshot, got %v", got)
	}
}

func TestSMA_InsufficientReturnsLast(t *testing.T) {
	prices := []float64{10, 11, 12}
	if got := SMA(prices, 20); got != 12 {
		t.Errorf("expected last price 12, got %v", got)
	}
}

func TestSMA_ExactAndTrailing(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5}
	if got := SMA(prices, 5); got != 3.0 {
		t.Errorf("expected 3.0, got %v", got)
	}
	// Only the trailing `period` prices count
	if got := SMA(prices, 3); got != 4.0 {
		t.Errorf("expected 4.0 over last 3, got %v", got)
	}
}

func TestSMA_OverRollingWindow(t *testing.T) {
	w := window.New(5)
	for i := 1; i <= 5; i++ {
		w.Push(float64(i))
	}
	if got := SMA(w.Values(nil), 5); got != 3.0 {
		t.Errorf("expected 3.0 over full window, got %v", got)
	}

	// Eviction of 1 shifts the mean: [2,3,4,5,6]
	w.Push(6)
	if got := SMA(w.Values(nil), 5); got != 4.0 {
		t.Errorf("expected 4.0 after eviction, got %v", got)
	}
}

func TestSMA_PanicsOnBadPeriod(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for period 0")
		}
	}()
	SMA([]float64{1}, 0)
}

func TestRSI_InsufficientData(t *testing.T) {
	// period+1 prices are required; 14 is one short
	prices := make([]float64, 14)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	if got := RSI(prices, 14); got != 50.0 {
		t.Errorf("expected 50.0 with insufficient data, got %v", got)
	}
}

func TestRSI_FlatMarket(t *testing.T) {
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 100
	}
	if got := RSI(prices, 14); got != 50.0 {
		t.Errorf("expected 50.0 for flat market, got %v", got)
	}
}

func TestRSI_OnlyGains(t *testing.T) {
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	if got := RSI(prices, 14); got != 100.0 {
		t.Errorf("expected 100.0 for monotonic gains, got %v", got)
	}
}

func TestRSI_OnlyLosses(t *testing.T) {
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 100 - float64(i)
	}
	if got := RSI(prices, 14); got != 0.0 {
		t.Errorf("expected 0.0 for monotonic losses, got %v", got)
	}
}

func TestRSI_SeedOnlyScenario(t *testing.T) {
	// Exactly period+1 prices: the seed averages decide the value.
	// Gains sum to 10, losses to 6 → RSI = 100 * 10/16 = 62.5
	prices := []float64{44, 44, 45, 43, 44, 45, 44, 46, 45, 47, 46, 46, 47, 46, 48}
	got := RSI(prices, 14)
	if math.Abs(got-62.5) > 1e-9 {
		t.Errorf("expected 62.5, got %v", got)
	}
}

func TestRSI_Bounded(t *testing.T) {
	prices := []float64{100, 150, 80, 130, 60, 140, 90, 120, 70, 160, 50, 110, 95, 105, 85, 125}
	got := RSI(prices, 14)
	if got < 0 || got > 100 {
		t.Errorf("RSI out of bounds: %v", got)
	}
}

func TestDecide_Deterministic(t *testing.T) {
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 100 + math.Sin(float64(i)/3)*5
	}

	first := Decide(prices)
	for i := 0; i < 100; i++ {
		if got := Decide(prices); got != first {
			t.Fatalf("nondeterministic result: %+v vs %+v", got, first)
		}
	}
}

func TestDecide_EmptyIsNeutral(t *testing.T) {
	got := Decide(nil)
	if got.Trend != model.TrendFlat || got.Decision != model.DecisionHold || got.RSI != 50.0 {
		t.Errorf("expected neutral signal for empty snapshot, got %+v", got)
	}
}

func TestClassify_DecisionTable(t *testing.T) {
	cases := []struct {
		name               string
		smaShort, smaLong  float64
		rsi                float64
		wantTrend          model.Trend
		wantDecision       model.Decision
	}{
		{"uptrend oversold buys", 10, 8, 25, model.TrendUp, model.DecisionBuy},
		{"uptrend at threshold holds", 10, 8, 30, model.TrendUp, model.DecisionHold},
		{"uptrend overbought holds", 10, 8, 85, model.TrendUp, model.DecisionHold},
		{"downtrend overbought sells", 8, 10, 75, model.TrendDown, model.DecisionSell},
		{"downtrend at threshold holds", 8, 10, 70, model.TrendDown, model.DecisionHold},
		{"downtrend oversold holds", 8, 10, 20, model.TrendDown, model.DecisionHold},
		{"equal averages flat", 9, 9, 95, model.TrendFlat, model.DecisionHold},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(tc.smaShort, tc.smaLong, tc.rsi)
			if got.Trend != tc.wantTrend || got.Decision != tc.wantDecision {
				t.Errorf("classify(%v, %v, %v) = %s/%s, want %s/%s",
					tc.smaShort, tc.smaLong, tc.rsi,
					got.Trend, got.Decision, tc.wantTrend, tc.wantDecision)
			}
			if got.RSI != tc.rsi {
				t.Errorf("classify should carry rsi through, got %v", got.RSI)
			}
		})
	}
}

func TestDecide_RisingTrendIsUp(t *testing.T) {
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	got := Decide(prices)
	if got.Trend != model.TrendUp {
		t.Errorf("expected UP trend, got %+v", got)
	}
	// RSI pinned at 100 in a monotonic rally — no buy into overbought
	if got.Decision != model.DecisionHold {
		t.Errorf("expected HOLD, got %+v", got)
	}
}

func TestDecide_FallingTrendSells(t *testing.T) {
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 200 - float64(i)
	}
	got := Decide(prices)
	if got.Trend != model.TrendDown {
		t.Errorf("expected DOWN trend, got %+v", got)
	}
	// RSI pinned at 0 in a monotonic slide — oversold, not overbought
	if got.Decision != model.DecisionHold {
		t.Errorf("expected HOLD, got %+v", got)
	}
}
