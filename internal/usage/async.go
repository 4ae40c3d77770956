package usage

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Async records events in the background so sink latency never reaches the
// HTTP response. Each event gets its own deadline, detached from the request.
type Async struct {
	inner   Recorder
	log     *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewAsync wraps inner. timeout <= 0 means no per-event deadline.
func NewAsync(inner Recorder, log *slog.Logger, timeout time.Duration) *Async {
	return &Async{inner: inner, log: log, timeout: timeout}
}

// Record schedules ev and returns immediately.
func (a *Async) Record(ctx context.Context, ev Event) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		rctx := context.WithoutCancel(ctx)
		if a.timeout > 0 {
			var cancel context.CancelFunc
			rctx, cancel = context.WithTimeout(rctx, a.timeout)
			defer cancel()
		}
		if err := a.inner.Record(rctx, ev); err != nil {
			a.log.Debug("background usage record failed", "event_id", ev.ID, "err", err)
		}
	}()
	return nil
}

// Close waits for scheduled events to finish.
func (a *Async) Close() error {
	a.wg.Wait()
	return nil
}
