package bus

import (
	"context"
	"testing"
	"time"

	"signal-servicev1/internal/model"
)

func TestFanOut_BroadcastsToAll(t *testing.T) {
	fo := New(10)
	out1 := fo.Subscribe()
	out2 := fo.Subscribe()

	input := make(chan model.SignalEvent, 10)
	ctx, cancel := context.WithCancel(context.Background())
	go fo.Run(ctx, input)

	ev := model.SignalEvent{
		Symbol: "XYZ",
		Signal: model.Signal{Trend: model.TrendUp, Decision: model.DecisionBuy, RSI: 25},
		Prev:   model.DecisionHold,
		TS:     time.Now().UTC(),
	}

	input <- ev

	select {
	case got := <-out1:
		if got.Symbol != "XYZ" {
			t.Errorf("out1: expected symbol XYZ, got %s", got.Symbol)
		}
	case <-time.After(time.Second):
		t.Fatal("out1: timed out waiting for event")
	}

	select {
	case got := <-out2:
		if got.Signal.Decision != model.DecisionBuy {
			t.Errorf("out2: expected decision BUY, got %s", got.Signal.Decision)
		}
	case <-time.After(time.Second):
		t.Fatal("out2: timed out waiting for event")
	}

	cancel()
}

func TestFanOut_DropsForSlowConsumer(t *testing.T) {
	fo := New(1) // capacity-1 outputs so the second event overflows
	drops := make(chan int, 10)
	fo.OnDrop = func(idx int) { drops <- idx }

	_ = fo.Subscribe() // never read

	input := make(chan model.SignalEvent, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fo.Run(ctx, input)

	input <- model.SignalEvent{Symbol: "A"}
	input <- model.SignalEvent{Symbol: "B"}

	select {
	case idx := <-drops:
		if idx != 0 {
			t.Errorf("expected drop for subscriber 0, got %d", idx)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for drop callback")
	}
}
