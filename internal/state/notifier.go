package state

import (
	"sync"

	"signal-servicev1/internal/model"
)

// Notifier fans decision changes out to any number of subscribers for one
// symbol. Publishing is non-blocking: each subscriber has a capacity-1
// coalescing channel where a new signal replaces an undelivered one
// (drop-stale, keep-latest). A slow or stalled subscriber therefore never
// creates backpressure into the ingestion path.
type Notifier struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

func newNotifier() *Notifier {
	return &Notifier{subs: make(map[*Subscription]struct{})}
}

// Subscription is one subscriber's view of a symbol's signal changes.
// C yields the signal current at subscribe time, then the latest signal
// after each decision change. C is closed by Close.
type Subscription struct {
	C <-chan model.Signal

	ch    chan model.Signal
	n     *Notifier
	close sync.Once
}

// Subscribe registers a new subscriber and immediately delivers current.
func (n *Notifier) Subscribe(current model.Signal) *Subscription {
	ch := make(chan model.Signal, 1)
	ch <- current

	sub := &Subscription{C: ch, ch: ch, n: n}
	n.mu.Lock()
	n.subs[sub] = struct{}{}
	n.mu.Unlock()
	return sub
}

// Publish offers sig to every subscriber without blocking.
func (n *Notifier) Publish(sig model.Signal) {
	n.mu.RLock()
	for sub := range n.subs {
		sub.offer(sig)
	}
	n.mu.RUnlock()
}

// offer places sig in the subscription channel, displacing any undelivered
// signal. Runs under the notifier read lock, so it never races Close.
func (s *Subscription) offer(sig model.Signal) {
	for {
		select {
		case s.ch <- sig:
			return
		default:
		}
		// Channel full: drop the stale pending value and retry.
		select {
		case <-s.ch:
		default:
		}
	}
}

// Close detaches the subscription and closes C. Safe to call more than once;
// other subscribers and the publisher are unaffected.
func (s *Subscription) Close() {
	s.close.Do(func() {
		s.n.mu.Lock()
		delete(s.n.subs, s)
		close(s.ch) // no publisher holds the read lock here
		s.n.mu.Unlock()
	})
}

// SubscriberCount returns the number of active subscriptions.
func (n *Notifier) SubscriberCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}
