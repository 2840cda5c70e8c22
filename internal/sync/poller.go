// Package sync runs the background loops that keep sessions and the
// catalog current: customer order tracking, courier claim and delivery
// refresh, notification prefetch and the periodic catalog reload.
package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/edostavka/backend/pkg/logger"
	"github.com/edostavka/backend/pkg/metrics"
)

// PollFunc is one unit of poll work.
type PollFunc func(ctx context.Context) error

// Poller runs a PollFunc on a fixed cadence until its context ends.
// Errors are logged and counted, never fatal: the next tick retries.
type Poller struct {
	name     string
	interval time.Duration
	fn       PollFunc
	logg     *logger.Logger
	metrics  *metrics.PollerMetrics
}

func NewPoller(name string, interval time.Duration, fn PollFunc, logg *logger.Logger, m *metrics.PollerMetrics) (*Poller, error) {
	if name == "" {
		return nil, fmt.Errorf("poller name required")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("poller interval must be positive")
	}
	if fn == nil {
		return nil, fmt.Errorf("poller func required")
	}
	if logg == nil {
		return nil, fmt.Errorf("poller logger required")
	}
	return &Poller{name: name, interval: interval, fn: fn, logg: logg, metrics: m}, nil
}

// Run blocks until ctx is canceled. The first cycle runs immediately.
func (p *Poller) Run(ctx context.Context) error {
	ctx = p.logg.WithPoller(ctx, p.name)
	p.cycle(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.cycle(ctx)
		}
	}
}

func (p *Poller) cycle(ctx context.Context) {
	start := time.Now()
	err := p.fn(ctx)
	if p.metrics != nil {
		p.metrics.ObserveDuration(p.name, time.Since(start))
	}
	if err != nil {
		p.logg.Error(p.logg.WithField(ctx, "duration_ms", time.Since(start).Milliseconds()), "poll cycle failed", err)
		if p.metrics != nil {
			p.metrics.IncFailure(p.name)
		}
		return
	}
	if p.metrics != nil {
		p.metrics.IncSuccess(p.name)
	}
}

// SeqGuard orders concurrent poll results. Begin hands out a sequence
// number before the remote call; Commit accepts a result only if nothing
// newer has been applied since.
type SeqGuard struct {
	mu      stdsync.Mutex
	next    uint64
	applied uint64
}

// Begin reserves a sequence number for a poll that is about to start.
func (g *SeqGuard) Begin() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return g.next
}

// Commit reports whether the result for seq is still the newest. A
// rejected commit means a later poll already landed.
func (g *SeqGuard) Commit(seq uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if seq <= g.applied {
		return false
	}
	g.applied = seq
	return true
}

// Debouncer coalesces bursts of triggers into one call after a quiet
// period. Used to fold rapid catalog invalidations into one reload.
type Debouncer struct {
	mu    stdsync.Mutex
	delay time.Duration
	fn    func()
	timer *time.Timer
}

func NewDebouncer(delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger schedules the call, resetting the quiet period.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fn)
}

// Stop cancels any pending call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
