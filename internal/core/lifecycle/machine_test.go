package lifecycle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/sessmesh/internal/core/domain"
)

type handle struct {
	name     string
	prepared bool
}

func TestMachine_ConnectsOnce(t *testing.T) {
	var connects atomic.Int32
	release := make(chan struct{})

	m := New(Config[*handle]{
		Connect: func(ctx context.Context) (*handle, error) {
			connects.Add(1)
			<-release
			return &handle{name: "h"}, nil
		},
		Prepare: func(ctx context.Context, h *handle) error {
			h.prepared = true
			return nil
		},
	})
	if m.State() != StateInit {
		t.Fatalf("State() = %v, want init", m.State())
	}

	var wg sync.WaitGroup
	results := make([]*handle, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := m.Ready(context.Background())
			if err != nil {
				t.Errorf("Ready() error = %v", err)
			}
			results[i] = h
		}(i)
	}

	time.Sleep(10 * time.Millisecond)
	if m.State() != StateConnecting {
		t.Errorf("State() = %v, want connecting", m.State())
	}
	close(release)
	wg.Wait()

	if connects.Load() != 1 {
		t.Errorf("connect called %d times, want 1", connects.Load())
	}
	for _, h := range results {
		if h == nil || !h.prepared {
			t.Fatalf("Ready() returned unprepared handle %+v", h)
		}
	}
	if m.State() != StateConnected {
		t.Errorf("State() = %v, want connected", m.State())
	}
}

func TestMachine_ConnectFailure(t *testing.T) {
	var transitions []State
	var mu sync.Mutex
	boom := errors.New("dial failed")

	m := New(Config[*handle]{
		Connect: func(ctx context.Context) (*handle, error) {
			return nil, boom
		},
		OnTransition: func(to State, err error) {
			mu.Lock()
			transitions = append(transitions, to)
			mu.Unlock()
		},
	})

	for i := 0; i < 2; i++ {
		_, err := m.Ready(context.Background())
		if !errors.Is(err, domain.ErrNotConnected) {
			t.Fatalf("Ready() error = %v, want ErrNotConnected", err)
		}
		if !errors.Is(err, boom) {
			t.Errorf("Ready() error should wrap the connect failure, got %v", err)
		}
	}
	if m.State() != StateDisconnected {
		t.Errorf("State() = %v, want disconnected", m.State())
	}

	mu.Lock()
	defer mu.Unlock()
	want := []State{StateConnecting, StateDisconnected}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transitions[%d] = %v, want %v", i, transitions[i], want[i])
		}
	}
}

func TestMachine_PrepareFailure(t *testing.T) {
	m := New(Config[*handle]{
		Connect: func(ctx context.Context) (*handle, error) {
			return &handle{}, nil
		},
		Prepare: func(ctx context.Context, h *handle) error {
			return errors.New("index creation failed")
		},
	})

	if _, err := m.Ready(context.Background()); !errors.Is(err, domain.ErrNotConnected) {
		t.Fatalf("Ready() error = %v, want ErrNotConnected", err)
	}
	if m.State() != StateDisconnected {
		t.Errorf("State() = %v, want disconnected", m.State())
	}
}

func TestMachine_Close(t *testing.T) {
	m := New(Config[*handle]{
		Connect: func(ctx context.Context) (*handle, error) {
			return &handle{name: "h"}, nil
		},
	})
	if _, err := m.Ready(context.Background()); err != nil {
		t.Fatalf("Ready() error = %v", err)
	}

	var released *handle
	if err := m.Close(func(h *handle) error {
		released = h
		return nil
	}); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if released == nil || released.name != "h" {
		t.Errorf("Close() released %+v", released)
	}
	if _, err := m.Ready(context.Background()); !errors.Is(err, domain.ErrNotConnected) {
		t.Errorf("Ready() after Close error = %v, want ErrNotConnected", err)
	}

	calls := 0
	if err := m.Close(func(*handle) error { calls++; return nil }); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if calls != 0 {
		t.Error("second Close() released again")
	}
}

func TestMachine_CloseWhileConnecting(t *testing.T) {
	started := make(chan struct{})
	m := New(Config[*handle]{
		Connect: func(ctx context.Context) (*handle, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	})
	m.Start()
	<-started

	waitErr := make(chan error, 1)
	go func() {
		_, err := m.Ready(context.Background())
		waitErr <- err
	}()

	if err := m.Close(nil); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	select {
	case err := <-waitErr:
		if !errors.Is(err, domain.ErrNotConnected) {
			t.Errorf("pending Ready() error = %v, want ErrNotConnected", err)
		}
	case <-time.After(time.Second):
		t.Fatal("pending Ready() hung after Close")
	}
}

func TestMachine_ReadyHonorsContext(t *testing.T) {
	m := New(Config[*handle]{
		Connect: func(ctx context.Context) (*handle, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	})
	defer m.Close(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := m.Ready(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Ready() error = %v, want DeadlineExceeded", err)
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateInit:         "init",
		StateConnecting:   "connecting",
		StateConnected:    "connected",
		StateDisconnected: "disconnected",
		State(9):          "State(9)",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("State(%d).String() = %q, want %q", int32(s), s.String(), want)
		}
	}
}
