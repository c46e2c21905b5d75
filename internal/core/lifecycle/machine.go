// Package lifecycle implements the connection state machine that stands
// between a store and its collection handle.
//
// A Machine moves init -> connecting -> connected | disconnected exactly
// once. Callers of Ready block until the outcome is known; all of them
// share a single wait. Once disconnected, the machine never reconnects.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yndnr/sessmesh/internal/core/domain"
)

// State is the connection state.
type State int32

const (
	StateInit State = iota
	StateConnecting
	StateConnected
	StateDisconnected
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// DefaultConnectTimeout bounds connect plus prepare.
const DefaultConnectTimeout = 30 * time.Second

// ConnectFunc acquires the handle.
type ConnectFunc[H any] func(ctx context.Context) (H, error)

// PrepareFunc runs once on a fresh handle before any caller sees it.
// A failure moves the machine to disconnected.
type PrepareFunc[H any] func(ctx context.Context, h H) error

// TransitionFunc observes state changes. err is set on a failed connect.
type TransitionFunc func(to State, err error)

// Config configures a Machine.
type Config[H any] struct {
	Connect      ConnectFunc[H]
	Prepare      PrepareFunc[H]
	OnTransition TransitionFunc
	Timeout      time.Duration
}

// Machine guards a lazily acquired handle.
type Machine[H any] struct {
	cfg Config[H]

	mu     sync.Mutex
	state  State
	handle H
	err    error
	closed bool

	ready  chan struct{}
	done   chan struct{}
	cancel context.CancelFunc
}

// New creates a machine in the init state.
func New[H any](cfg Config[H]) *Machine[H] {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConnectTimeout
	}
	return &Machine[H]{
		cfg:   cfg,
		state: StateInit,
		ready: make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// State returns the current state.
func (m *Machine[H]) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start begins connecting. Only the first call has an effect.
func (m *Machine[H]) Start() {
	m.mu.Lock()
	if m.state != StateInit {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Timeout)
	m.cancel = cancel
	m.state = StateConnecting
	m.mu.Unlock()

	m.notify(StateConnecting, nil)
	go m.run(ctx)
}

func (m *Machine[H]) run(ctx context.Context) {
	defer close(m.done)
	defer m.cancel()

	h, err := m.cfg.Connect(ctx)
	if err == nil && m.cfg.Prepare != nil {
		if perr := m.cfg.Prepare(ctx, h); perr != nil {
			err = fmt.Errorf("prepare collection: %w", perr)
		}
	}

	m.mu.Lock()
	switch {
	case m.closed:
		// Close won the race; the handle belongs to nobody else.
		m.mu.Unlock()
		if err == nil {
			m.releaseOrphan(h)
		}
		return
	case err != nil:
		m.state = StateDisconnected
		m.err = err
	default:
		m.state = StateConnected
		m.handle = h
	}
	state := m.state
	close(m.ready)
	m.mu.Unlock()

	m.notify(state, err)
}

// releaseOrphan closes a handle acquired after Close.
func (m *Machine[H]) releaseOrphan(h H) {
	if c, ok := any(h).(interface{ Close(context.Context) error }); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.Close(ctx)
	}
}

// Ready waits for the connection outcome and returns the handle. It starts
// the machine if needed. Once disconnected it fails with domain.ErrNotConnected.
func (m *Machine[H]) Ready(ctx context.Context) (H, error) {
	var zero H
	m.Start()

	select {
	case <-m.ready:
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateConnected {
		if m.err != nil {
			return zero, domain.ErrNotConnected.WithCause(m.err)
		}
		return zero, domain.ErrNotConnected
	}
	return m.handle, nil
}

// Close moves the machine to disconnected. A connect attempt in flight is
// cancelled. release is called with the handle if one was acquired and runs
// after the machine stops handing it out. Close is idempotent.
func (m *Machine[H]) Close(release func(H) error) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	prev := m.state
	h := m.handle
	var zero H
	m.handle = zero
	m.state = StateDisconnected
	if m.err == nil {
		m.err = errClosed
	}
	if prev == StateInit || prev == StateConnecting {
		close(m.ready)
	}
	cancel := m.cancel
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if prev != StateDisconnected {
		m.notify(StateDisconnected, nil)
	}
	if prev == StateConnected && release != nil {
		return release(h)
	}
	return nil
}

var errClosed = errors.New("store closed")

func (m *Machine[H]) notify(s State, err error) {
	if m.cfg.OnTransition != nil {
		m.cfg.OnTransition(s, err)
	}
}
