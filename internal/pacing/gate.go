package pacing

import (
	"context"
	"fmt"
	"time"

	"flightscraper-backend/internal/components/assert"
	"flightscraper-backend/internal/components/chrono"
	"flightscraper-backend/internal/components/telemetry"

	"golang.org/x/sync/semaphore"
)

const (
	report_gate_acquire  = "gate.acquire"
	report_gate_quota    = "gate.quota-exceeded"
	report_gate_attempts = "gate.attempts"
)

type Options struct {
	MinDelay time.Duration
	MaxDelay time.Duration
	// Limit is the maximum number of attempts inside one Window.
	Limit  int
	Window time.Duration
	// QuotaJitter caps the random extra wait added once the quota is exhausted.
	QuotaJitter time.Duration

	Time   chrono.TimeAPI
	Jitter Jitter
	Tel    telemetry.API
}

// Gate is the one point every outbound fetch passes through. Callers are
// admitted one at a time in arrival order, each one waits out the quota (if
// exhausted) and then a random delay before its attempt is recorded.
type Gate struct {
	sem     *semaphore.Weighted
	tracker *Tracker

	minDelay time.Duration
	maxDelay time.Duration
	time     chrono.TimeAPI
	jitter   Jitter
	tel      telemetry.API
}

func NewGate(opts Options) *Gate {
	assert.NotNil(opts.Time)
	assert.NotNil(opts.Tel)
	assert.Positive("limit", opts.Limit)
	assert.Positive("window", opts.Window)
	if opts.MinDelay < 0 || opts.MaxDelay < opts.MinDelay {
		panic(fmt.Sprintf("invalid delay range [%s, %s]", opts.MinDelay, opts.MaxDelay))
	}

	jitter := opts.Jitter
	if jitter == nil {
		jitter = UniformJitter
	}

	return &Gate{
		sem:      semaphore.NewWeighted(1),
		tracker:  NewTracker(opts.Limit, opts.Window, opts.QuotaJitter, jitter),
		minDelay: opts.MinDelay,
		maxDelay: opts.MaxDelay,
		time:     opts.Time,
		jitter:   jitter,
		tel:      telemetry.NewScopedAPI("pacing", opts.Tel),
	}
}

// Acquire blocks until the caller may fetch. An attempt is recorded only when
// Acquire returns nil, a cancelled ctx leaves the quota untouched.
func (g *Gate) Acquire(ctx context.Context) error {
	err := g.sem.Acquire(ctx, 1)
	if err != nil {
		return fmt.Errorf("acquire gate: %w", err)
	}
	defer g.sem.Release(1)

	wait := g.tracker.Wait(g.time.Now())
	if wait > 0 {
		g.tel.ReportWarning(report_gate_quota, wait.String())
		err = g.time.Sleep(ctx, wait)
		if err != nil {
			return fmt.Errorf("wait for quota: %w", err)
		}
	}

	delay := g.jitter(g.minDelay, g.maxDelay)
	g.tel.ReportDebug(report_gate_acquire, delay.String())
	err = g.time.Sleep(ctx, delay)
	if err != nil {
		return fmt.Errorf("pacing delay: %w", err)
	}

	now := g.time.Now()
	g.tracker.Record(now)
	g.tel.ReportCount(report_gate_attempts, int64(g.tracker.Count(now)))
	return nil
}
