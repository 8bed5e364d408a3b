// Package poll provides the fetch-and-replace primitive behind every
// refresh cycle in the client: while a subscription is held, a task runs
// on a fixed period and replaces the subscriber's state wholesale; when
// the subscription is released the task stops and its in-flight request
// is cancelled.
package poll

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Func performs one fetch-and-replace cycle. Errors are treated as
// transient: the loop logs them and retries on the next tick, leaving
// the subscriber's last-known-good state in place.
type Func func(ctx context.Context) error

// Subscription is the handle on a running poll loop. Releasing it is the
// only cancellation mechanism.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Start launches a poll loop: one immediate cycle, then one per
// interval. Cycles run sequentially within a subscription, so a slow
// fetch delays the next tick rather than overlapping it.
func Start(ctx context.Context, name string, interval time.Duration, fn Func) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		run(ctx, name, fn)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run(ctx, name, fn)
			}
		}
	}()
	return sub
}

// Stop releases the subscription and waits for the loop to exit.
// Safe to call more than once.
func (s *Subscription) Stop() {
	s.cancel()
	<-s.done
}

func run(ctx context.Context, name string, fn Func) {
	if err := fn(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		slog.Warn("poll cycle failed", "resource", name, "error", err)
	}
}
