package coordinator

import (
	"context"
	"sync"
	"time"
)

// Tracker counts received results and wakes waiters on every change.
type Tracker struct {
	mu      sync.Mutex
	count   int
	changed chan struct{}
}

// NewTracker returns a Tracker at zero.
func NewTracker() *Tracker {
	return &Tracker{changed: make(chan struct{})}
}

// Add increments the counter by n and returns the new value.
func (t *Tracker) Add(n int) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.count += n
	close(t.changed)
	t.changed = make(chan struct{})
	return t.count
}

// Count returns the current value.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

func (t *Tracker) snapshot() (int, <-chan struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count, t.changed
}

// Wait blocks until the count reaches target or ctx is done.
// When interval is positive, onTick is called with the current count every
// interval while waiting. onTick may be nil.
func (t *Tracker) Wait(ctx context.Context, target int, interval time.Duration, onTick func(done, target int)) error {
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		done, changed := t.snapshot()
		if done >= target {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		case <-tick:
			if onTick != nil {
				onTick(done, target)
			}
		}
	}
}
