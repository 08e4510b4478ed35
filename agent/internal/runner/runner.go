// Package runner is the agent's scheduler: it triggers one scrape cycle every
// collect interval and forces a fan-out flush every flush interval. A cycle
// runs to completion before the next tick is handled.
package runner

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
)

// Collector runs one scrape cycle.
type Collector interface {
	Collect(ctx context.Context)
}

// Flusher forces every destination to send what it holds.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Runner drives a Collector and a Flusher on a clock.
type Runner struct {
	collector       Collector
	flusher         Flusher
	collectInterval time.Duration
	flushInterval   time.Duration
	clock           clock.Clock // injectable for tests
}

// New creates a Runner. A zero flushInterval disables the timed flush.
func New(c Collector, f Flusher, collectInterval, flushInterval time.Duration) *Runner {
	return &Runner{
		collector:       c,
		flusher:         f,
		collectInterval: collectInterval,
		flushInterval:   flushInterval,
		clock:           clock.New(),
	}
}

// Run blocks until ctx is cancelled, then flushes once more so batches that
// never filled up still leave the process.
func (r *Runner) Run(ctx context.Context) {
	collect := r.clock.Ticker(r.collectInterval)
	defer collect.Stop()

	var flushC <-chan time.Time
	if r.flushInterval > 0 {
		flush := r.clock.Ticker(r.flushInterval)
		defer flush.Stop()
		flushC = flush.C
	}

	for {
		select {
		case <-ctx.Done():
			r.finalFlush()
			return
		case <-collect.C:
			start := r.clock.Now()
			r.collector.Collect(ctx)
			slog.Debug("runner: collect cycle finished", "took", r.clock.Since(start))
		case <-flushC:
			if err := r.flusher.Flush(ctx); err != nil {
				slog.Debug("runner: timed flush incomplete", "err", err)
			}
		}
	}
}

// finalFlush runs with a fresh context since ctx is already cancelled.
func (r *Runner) finalFlush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.flusher.Flush(ctx); err != nil {
		slog.Warn("runner: final flush incomplete, unsent metrics are lost", "err", err)
	}
}
