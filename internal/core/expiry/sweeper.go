package expiry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// SweepFunc deletes every record expired at now and returns how many were removed.
type SweepFunc func(ctx context.Context, now time.Time) (int64, error)

// ReportFunc receives the outcome of every sweep.
type ReportFunc func(deleted int64, elapsed time.Duration, err error)

// Sweeper runs a SweepFunc on a fixed period until stopped.
// Sweep failures are logged and reported, never returned.
type Sweeper struct {
	interval time.Duration
	sweep    SweepFunc
	report   ReportFunc
	logger   *slog.Logger
	now      func() time.Time
	timeout  time.Duration

	started  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithReport sets a callback invoked after every sweep.
func WithReport(fn ReportFunc) SweeperOption {
	return func(s *Sweeper) {
		s.report = fn
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) SweeperOption {
	return func(s *Sweeper) {
		s.now = now
	}
}

// WithSweepTimeout bounds a single sweep. Defaults to the interval.
func WithSweepTimeout(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		s.timeout = d
	}
}

// NewSweeper creates a stopped sweeper; call Start to run it.
func NewSweeper(interval time.Duration, sweep SweepFunc, logger *slog.Logger, opts ...SweeperOption) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sweeper{
		interval: interval,
		sweep:    sweep,
		logger:   logger,
		now:      time.Now,
		timeout:  interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the sweep loop. Only the first call has an effect.
func (s *Sweeper) Start() {
	if s.started.CompareAndSwap(false, true) {
		go s.loop()
	}
}

// Stop halts the loop and waits for an in-flight sweep to finish.
// Stop is safe to call more than once, and before Start.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	if s.started.Load() {
		<-s.doneCh
	}
}

func (s *Sweeper) loop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunOnce()
		case <-s.stopCh:
			return
		}
	}
}

// RunOnce performs a single sweep and reports its outcome.
func (s *Sweeper) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	deleted, err := s.safeSweep(ctx)
	elapsed := time.Since(start)

	if err != nil {
		s.logger.Error("expired session sweep failed", "error", err)
	} else if deleted > 0 {
		s.logger.Debug("expired sessions swept", "deleted", deleted, "elapsed", elapsed)
	}
	if s.report != nil {
		s.report(deleted, elapsed, err)
	}
}

func (s *Sweeper) safeSweep(ctx context.Context) (n int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sweep panicked: %v", r)
		}
	}()
	return s.sweep(ctx, s.now())
}
