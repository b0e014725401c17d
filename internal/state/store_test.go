package state

import (
	"errors"
	"sync"
	"testing"
	"time"

	"signal-servicev1/internal/model"
)

func TestNewStore_NormalizesSymbols(t *testing.T) {
	st := NewStore([]string{"xyz", " ABC ", "XYZ", ""}, 10)
	syms := st.Symbols()
	if len(syms) != 2 || syms[0] != "XYZ" || syms[1] != "ABC" {
		t.Errorf("unexpected symbols: %v", syms)
	}
}

func TestGet_UnknownSymbol(t *testing.T) {
	st := NewStore([]string{"XYZ"}, 10)
	if _, err := st.Get("NOPE"); !errors.Is(err, ErrSymbolNotFound) {
		t.Errorf("expected ErrSymbolNotFound, got %v", err)
	}
}

func TestGet_NeutralBeforeTicks(t *testing.T) {
	st := NewStore([]string{"XYZ"}, 10)
	sig, err := st.Get("XYZ")
	if err != nil {
		t.Fatal(err)
	}
	if sig != model.Neutral() {
		t.Errorf("expected neutral signal, got %+v", sig)
	}
}

func TestIngest_UntrackedDropped(t *testing.T) {
	st := NewStore([]string{"XYZ"}, 10)
	if st.Ingest(model.Tick{Symbol: "NOPE", Price: 100}) {
		t.Error("expected untracked tick to be dropped")
	}
	if !st.Ingest(model.Tick{Symbol: "xyz", Price: 100}) {
		t.Error("expected tracked tick to be ingested")
	}
}

func TestUpdate_ReadersNeverSeeTornSignal(t *testing.T) {
	st := NewStore([]string{"XYZ"}, 50)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	// Writers hammer the update transaction
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()
			for i := 0; i < 5000; i++ {
				st.Ingest(model.Tick{Symbol: "XYZ", Price: 100 + float64((seed*i)%40)})
			}
		}(w + 1)
	}

	// Readers verify each observed signal is internally consistent
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				sig, err := st.Get("XYZ")
				if err != nil {
					t.Error(err)
					return
				}
				if sig.RSI < 0 || sig.RSI > 100 {
					t.Errorf("rsi out of bounds: %v", sig.RSI)
					return
				}
				switch sig.Trend {
				case model.TrendUp, model.TrendDown, model.TrendFlat:
				default:
					t.Errorf("torn trend: %q", sig.Trend)
					return
				}
				switch sig.Decision {
				case model.DecisionBuy, model.DecisionSell, model.DecisionHold:
				default:
					t.Errorf("torn decision: %q", sig.Decision)
					return
				}
			}
		}()
	}

	// Wait for writers, then stop readers
	done := make(chan struct{})
	go func() {
		defer close(done)
		wg.Wait()
	}()
	time.Sleep(50 * time.Millisecond)
	close(stop)
	<-done
}

func TestSubscribe_InitialDelivery(t *testing.T) {
	st := NewStore([]string{"XYZ"}, 10)

	sub, err := st.Subscribe("XYZ")
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	select {
	case sig := <-sub.C:
		if sig != model.Neutral() {
			t.Errorf("expected neutral initial signal, got %+v", sig)
		}
	case <-time.After(time.Second):
		t.Fatal("initial signal not delivered")
	}
}

func TestSubscribe_UnknownSymbol(t *testing.T) {
	st := NewStore([]string{"XYZ"}, 10)
	if _, err := st.Subscribe("NOPE"); !errors.Is(err, ErrSymbolNotFound) {
		t.Errorf("expected ErrSymbolNotFound, got %v", err)
	}
}

func TestSubscribe_WakesOnDecisionChange(t *testing.T) {
	st := NewStore([]string{"XYZ"}, 50)

	sub, err := st.Subscribe("XYZ")
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()
	<-sub.C // drain initial

	// Part-filled rising window pins RSI at 100 with the short average
	// under the last price: HOLD → SELL transition.
	for i := 0; i < 30; i++ {
		st.Ingest(model.Tick{Symbol: "XYZ", Price: 100 + float64(i)})
	}

	select {
	case sig := <-sub.C:
		if sig.Decision != model.DecisionSell {
			t.Errorf("expected SELL after rally, got %+v", sig)
		}
	case <-time.After(time.Second):
		t.Fatal("decision change not delivered")
	}
}

func TestSubscribe_SlowSubscriberCoalesces(t *testing.T) {
	st := NewStore([]string{"XYZ"}, 50)

	sub, err := st.Subscribe("XYZ")
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()
	// Never read: publishes must not block and must keep only the latest.

	for i := 0; i < 30; i++ {
		st.Ingest(model.Tick{Symbol: "XYZ", Price: 100 + float64(i)})
	}
	for i := 0; i < 30; i++ {
		st.Ingest(model.Tick{Symbol: "XYZ", Price: 130 - float64(i)})
	}

	// The pending value reflects the current signal, not a stale one
	current, _ := st.Get("XYZ")
	select {
	case sig := <-sub.C:
		if sig.Decision != current.Decision {
			t.Errorf("expected latest decision %s, got %+v", current.Decision, sig)
		}
	case <-time.After(time.Second):
		t.Fatal("no pending signal for slow subscriber")
	}
}

func TestSubscribe_CloseIsolation(t *testing.T) {
	st := NewStore([]string{"XYZ"}, 50)

	subA, _ := st.Subscribe("XYZ")
	subB, _ := st.Subscribe("XYZ")
	<-subA.C
	<-subB.C

	subA.Close()
	subA.Close() // idempotent

	for i := 0; i < 30; i++ {
		st.Ingest(model.Tick{Symbol: "XYZ", Price: 100 + float64(i)})
	}

	select {
	case sig, ok := <-subB.C:
		if !ok {
			t.Fatal("subB closed by subA.Close")
		}
		if sig.Decision != model.DecisionSell {
			t.Errorf("expected SELL on surviving subscriber, got %+v", sig)
		}
	case <-time.After(time.Second):
		t.Fatal("surviving subscriber starved")
	}

	if _, ok := <-subA.C; ok {
		t.Error("closed subscription should yield no more values")
	}
}

func TestEvents_EmittedOnTransition(t *testing.T) {
	st := NewStore([]string{"XYZ"}, 50)

	for i := 0; i < 30; i++ {
		st.Ingest(model.Tick{Symbol: "XYZ", Price: 100 + float64(i)})
	}

	select {
	case ev := <-st.Events():
		if ev.Symbol != "XYZ" {
			t.Errorf("unexpected symbol: %s", ev.Symbol)
		}
		if ev.Prev != model.DecisionHold || ev.Signal.Decision != model.DecisionSell {
			t.Errorf("expected HOLD→SELL, got %s→%s", ev.Prev, ev.Signal.Decision)
		}
		if ev.TS.IsZero() {
			t.Error("expected transition timestamp")
		}
	case <-time.After(time.Second):
		t.Fatal("no transition event emitted")
	}
}

func TestEvents_DropOnFullCallsHook(t *testing.T) {
	st := NewStore([]string{"XYZ"}, 50)
	var drops int
	st.OnEventDrop = func() { drops++ }

	// Flip the decision back and forth without draining events
	flips := 0
	for round := 0; round < 2000 && drops == 0; round++ {
		for i := 0; i < 25; i++ {
			st.Ingest(model.Tick{Symbol: "XYZ", Price: 100 + float64(i)})
		}
		for i := 0; i < 25; i++ {
			st.Ingest(model.Tick{Symbol: "XYZ", Price: 125 - float64(i)})
		}
		flips++
	}
	if drops == 0 {
		t.Skipf("event queue never filled after %d flip rounds", flips)
	}
}
