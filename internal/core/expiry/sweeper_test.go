package expiry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestSweeper_RunsAndStops(t *testing.T) {
	var calls atomic.Int64
	reported := make(chan int64, 16)

	s := NewSweeper(10*time.Millisecond, func(ctx context.Context, now time.Time) (int64, error) {
		calls.Add(1)
		return 2, nil
	}, nil, WithReport(func(deleted int64, _ time.Duration, err error) {
		if err == nil {
			reported <- deleted
		}
	}))
	s.Start()

	select {
	case n := <-reported:
		if n != 2 {
			t.Errorf("reported deleted = %d, want 2", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sweep did not run")
	}

	s.Stop()
	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	if calls.Load() != after {
		t.Error("sweep ran after Stop")
	}

	// Idempotent.
	s.Stop()
}

func TestSweeper_ErrorsAreContained(t *testing.T) {
	var gotErr error
	s := NewSweeper(time.Hour, func(ctx context.Context, now time.Time) (int64, error) {
		return 0, errors.New("boom")
	}, nil, WithReport(func(_ int64, _ time.Duration, err error) {
		gotErr = err
	}))

	s.RunOnce()
	if gotErr == nil || gotErr.Error() != "boom" {
		t.Errorf("reported error = %v, want boom", gotErr)
	}
}

func TestSweeper_PanicIsContained(t *testing.T) {
	var gotErr error
	s := NewSweeper(time.Hour, func(ctx context.Context, now time.Time) (int64, error) {
		panic("closed handle")
	}, nil, WithReport(func(_ int64, _ time.Duration, err error) {
		gotErr = err
	}))

	s.RunOnce()
	if gotErr == nil {
		t.Error("panic should be reported as an error")
	}
}

func TestSweeper_Clock(t *testing.T) {
	fixed := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	var seen time.Time
	s := NewSweeper(time.Hour, func(ctx context.Context, now time.Time) (int64, error) {
		seen = now
		return 0, nil
	}, nil, WithClock(func() time.Time { return fixed }))

	s.RunOnce()
	if !seen.Equal(fixed) {
		t.Errorf("sweep now = %v, want %v", seen, fixed)
	}
}

func TestSweeper_StopBeforeStart(t *testing.T) {
	s := NewSweeper(time.Hour, func(ctx context.Context, now time.Time) (int64, error) {
		return 0, nil
	}, nil)

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop() before Start() blocked")
	}
}
