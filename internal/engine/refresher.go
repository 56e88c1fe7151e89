package engine

import (
	"context"
	"time"
)

// DefaultRefreshInterval is the cadence of refresh ticks while a live view
// is open.
const DefaultRefreshInterval = 3 * time.Second

// StartRefresher enqueues a refresh tick every interval until ctx is done
// or the returned stop function is called. It returns immediately.
func (e *Engine) StartRefresher(ctx context.Context, interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = e.refreshInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if !e.queue.Enqueue(Event{Type: EventTypeRefresh}) {
				return
			}
		}
	}()
	return cancel
}

// Refresh enqueues a single refresh tick.
func (e *Engine) Refresh() bool {
	return e.queue.Enqueue(Event{Type: EventTypeRefresh})
}
