package notification

import (
	"context"
	"log"
	"time"

	"signal-servicev1/internal/model"
)

const sendTimeout = 10 * time.Second

// Dispatcher consumes decision transitions and fans alerts out to the
// configured backends. HOLD transitions are not alertable and are skipped.
type Dispatcher struct {
	notifiers []Notifier

	// OnSent / OnError are called per backend delivery. Optional; wired
	// to metrics.
	OnSent  func()
	OnError func()
}

// NewDispatcher creates a dispatcher delivering to the given backends.
func NewDispatcher(notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{notifiers: notifiers}
}

// Run reads transition events and delivers alerts until ctx is cancelled
// or eventCh is closed. Delivery failures are logged, never fatal.
func (d *Dispatcher) Run(ctx context.Context, eventCh <-chan model.SignalEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-eventCh:
			if !ok {
				return
			}
			alert, ok := FromEvent(ev)
			if !ok {
				continue
			}
			d.deliver(ctx, alert)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, alert Alert) {
	for _, n := range d.notifiers {
		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		err := n.Send(sendCtx, alert)
		cancel()
		if err != nil {
			log.Printf("[notify] delivery failed: %v", err)
			if d.OnError != nil {
				d.OnError()
			}
			continue
		}
		if d.OnSent != nil {
			d.OnSent()
		}
	}
}
