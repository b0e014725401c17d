package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"signal-servicev1/internal/model"
)

type captureNotifier struct {
	mu     sync.Mutex
	alerts []Alert
}

func (c *captureNotifier) Send(ctx context.Context, alert Alert) error {
	c.mu.Lock()
	c.alerts = append(c.alerts, alert)
	c.mu.Unlock()
	return nil
}

func (c *captureNotifier) got() []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Alert, len(c.alerts))
	copy(out, c.alerts)
	return out
}

func TestFromEvent_HoldNotAlertable(t *testing.T) {
	ev := model.SignalEvent{
		Symbol: "XYZ",
		Signal: model.Signal{Trend: model.TrendUp, Decision: model.DecisionHold, RSI: 55},
		Prev:   model.DecisionBuy,
	}
	if _, ok := FromEvent(ev); ok {
		t.Error("HOLD transition should not produce an alert")
	}
}

func TestFromEvent_BuySell(t *testing.T) {
	buy := model.SignalEvent{
		Symbol: "XYZ",
		Signal: model.Signal{Trend: model.TrendUp, Decision: model.DecisionBuy, RSI: 25},
		Prev:   model.DecisionHold,
	}
	alert, ok := FromEvent(buy)
	if !ok {
		t.Fatal("expected BUY alert")
	}
	if alert.Level != AlertInfo || alert.Title != "BUY XYZ" {
		t.Errorf("unexpected alert: %+v", alert)
	}

	sell := buy
	sell.Signal.Decision = model.DecisionSell
	alert, ok = FromEvent(sell)
	if !ok {
		t.Fatal("expected SELL alert")
	}
	if alert.Level != AlertWarning {
		t.Errorf("expected WARNING level for SELL, got %s", alert.Level)
	}
}

func TestDispatcher_DeliversAndSkipsHold(t *testing.T) {
	capture := &captureNotifier{}
	d := NewDispatcher(capture)

	var sent int
	d.OnSent = func() { sent++ }

	events := make(chan model.SignalEvent, 3)
	events <- model.SignalEvent{
		Symbol: "XYZ",
		Signal: model.Signal{Trend: model.TrendUp, Decision: model.DecisionBuy, RSI: 20},
		Prev:   model.DecisionHold,
	}
	events <- model.SignalEvent{
		Symbol: "XYZ",
		Signal: model.Signal{Trend: model.TrendUp, Decision: model.DecisionHold, RSI: 50},
		Prev:   model.DecisionBuy,
	}
	events <- model.SignalEvent{
		Symbol: "ABC",
		Signal: model.Signal{Trend: model.TrendDown, Decision: model.DecisionSell, RSI: 80},
		Prev:   model.DecisionHold,
	}
	close(events)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	d.Run(ctx, events)

	alerts := capture.got()
	if len(alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(alerts))
	}
	if alerts[0].Title != "BUY XYZ" || alerts[1].Title != "SELL ABC" {
		t.Errorf("unexpected alerts: %+v", alerts)
	}
	if sent != 2 {
		t.Errorf("expected OnSent twice, got %d", sent)
	}
}
