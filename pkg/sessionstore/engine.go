package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/yndnr/sessmesh/internal/core/domain"
	"github.com/yndnr/sessmesh/internal/core/expiry"
	"github.com/yndnr/sessmesh/internal/core/lifecycle"
	"github.com/yndnr/sessmesh/internal/core/throttle"
	"github.com/yndnr/sessmesh/internal/storage"
)

// Engine persists sessions into a collection.
//
// An Engine starts connecting as soon as it is created. Every operation
// waits until the connection is ready, the context is done, or the
// connection has failed, in which case it returns ErrNotConnected.
type Engine struct {
	cfg     *settings
	machine *lifecycle.Machine[storage.Collection]
	events  *emitter

	mu      sync.Mutex
	closing bool
	sweeper *expiry.Sweeper
}

// New validates opts and starts connecting. Configuration errors are
// returned here; connection errors surface from operations.
func New(opts Options) (*Engine, error) {
	cfg, err := opts.resolve()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:    cfg,
		events: newEmitter(cfg.logger),
	}
	e.machine = lifecycle.New(lifecycle.Config[storage.Collection]{
		Connect: func(ctx context.Context) (storage.Collection, error) {
			return cfg.strategy.connect(ctx, cfg.logger)
		},
		Prepare:      e.prepare,
		OnTransition: e.transition,
		Timeout:      cfg.timeout,
	})

	cfg.logger.Debug("session store configured",
		"source", cfg.strategy.name(),
		"eviction", string(cfg.policy.Mode),
		"transform", cfg.pipeline.Mode().String(),
		"encrypted", cfg.crypto != nil,
		"touch_after", cfg.throttle.Interval())

	e.machine.Start()
	return e, nil
}

// prepare installs the eviction mechanism before the engine reports connected.
func (e *Engine) prepare(ctx context.Context, coll storage.Collection) error {
	switch e.cfg.policy.Mode {
	case expiry.ModeNative:
		return coll.EnsureExpiryIndex(ctx)
	case expiry.ModeInterval:
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.closing {
			return errors.New("store closed")
		}
		e.sweeper = expiry.NewSweeper(e.cfg.policy.SweepInterval,
			func(ctx context.Context, now time.Time) (int64, error) {
				return coll.DeleteExpired(ctx, now, storage.BestEffort)
			},
			e.cfg.logger,
			expiry.WithClock(e.cfg.now),
			expiry.WithReport(func(deleted int64, elapsed time.Duration, err error) {
				e.events.record(OpSweep, elapsed, err)
				e.events.emit(Event{Name: EventSweep, Count: deleted, Err: err})
			}),
		)
		e.sweeper.Start()
	}
	return nil
}

func (e *Engine) transition(to lifecycle.State, err error) {
	switch to {
	case lifecycle.StateConnecting:
		e.cfg.logger.Debug("session store connecting", "source", e.cfg.strategy.name())
	case lifecycle.StateConnected:
		e.cfg.logger.Info("session store connected")
		e.events.emit(Event{Name: EventConnected})
	case lifecycle.StateDisconnected:
		if err != nil {
			e.cfg.logger.Error("session store connection failed", "error", err)
		} else {
			e.cfg.logger.Info("session store disconnected")
		}
		e.events.emit(Event{Name: EventDisconnected, Err: err})
	}
}

// On registers a listener for name and returns a function that removes it.
func (e *Engine) On(name EventName, fn Listener) (unsubscribe func()) {
	return e.events.on(name, fn)
}

// Observe registers an operation observer and returns a function that
// removes it.
func (e *Engine) Observe(fn OpObserver) (remove func()) {
	return e.events.observe(fn)
}

// State returns the connection state.
func (e *Engine) State() State {
	return e.machine.State()
}

// Ready waits until the engine is connected.
func (e *Engine) Ready(ctx context.Context) error {
	_, err := e.machine.Ready(ctx)
	return err
}

// Get returns the session stored under id. A missing or expired session
// yields (nil, nil).
func (e *Engine) Get(ctx context.Context, id string) (s Session, err error) {
	defer e.track(OpGet, time.Now(), &err)

	coll, err := e.machine.Ready(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := coll.FindOne(ctx, e.cfg.transformID(id), e.cfg.now())
	if err != nil {
		return nil, storageErr("find", err)
	}
	if rec != nil {
		if s, err = e.decode(ctx, rec); err != nil {
			return nil, err
		}
	}

	e.events.emit(Event{Name: EventGet, SessionID: id})
	return s, nil
}

// Set upserts the session under id, replacing any previous payload.
func (e *Engine) Set(ctx context.Context, id string, s Session) (err error) {
	defer e.track(OpSet, time.Now(), &err)

	coll, err := e.machine.Ready(ctx)
	if err != nil {
		return err
	}

	now := e.cfg.now()
	expires := e.cfg.policy.ExpiresAt(s, now)
	rec := &Record{ID: e.cfg.transformID(id), Expires: &expires}

	visible := s
	if e.cfg.throttle.Enabled() {
		visible = throttle.Strip(s)
		lm := now.UTC()
		rec.LastModified = &lm
	}

	if rec.Session, err = e.encode(ctx, visible); err != nil {
		return err
	}

	inserted, err := coll.Upsert(ctx, rec, e.cfg.wo)
	if err != nil {
		return storageErr("upsert", err)
	}

	if inserted {
		e.events.emit(Event{Name: EventCreate, SessionID: id})
	} else {
		e.events.emit(Event{Name: EventUpdate, SessionID: id})
	}
	e.events.emit(Event{Name: EventSet, SessionID: id})
	return nil
}

// Touch extends the expiry of the session stored under id without
// rewriting its payload. With throttling enabled, a touch within the
// interval of the previous one is skipped. Touching a missing session
// returns ErrSessionNotFound.
func (e *Engine) Touch(ctx context.Context, id string, s Session) (err error) {
	defer e.track(OpTouch, time.Now(), &err)

	coll, err := e.machine.Ready(ctx)
	if err != nil {
		return err
	}

	now := e.cfg.now()
	if !e.cfg.throttle.ShouldWrite(s, now) {
		return nil
	}

	var lastModified *time.Time
	if e.cfg.throttle.Enabled() {
		lm := now.UTC()
		lastModified = &lm
	}

	matched, err := coll.UpdateExpiry(ctx, e.cfg.transformID(id), e.cfg.policy.ExpiresAt(s, now), lastModified, e.cfg.wo)
	if err != nil {
		return storageErr("update expiry", err)
	}
	if !matched {
		return domain.ErrSessionNotFound.WithDetails(id)
	}

	e.events.emit(Event{Name: EventTouch, SessionID: id, Session: s})
	return nil
}

// Destroy removes the session stored under id. Destroying a missing
// session succeeds.
func (e *Engine) Destroy(ctx context.Context, id string) (err error) {
	defer e.track(OpDestroy, time.Now(), &err)

	coll, err := e.machine.Ready(ctx)
	if err != nil {
		return err
	}
	if err := coll.DeleteOne(ctx, e.cfg.transformID(id), e.cfg.wo); err != nil {
		return storageErr("delete", err)
	}

	e.events.emit(Event{Name: EventDestroy, SessionID: id})
	return nil
}

// All returns every session that has not expired.
func (e *Engine) All(ctx context.Context) (sessions []Session, err error) {
	defer e.track(OpAll, time.Now(), &err)

	coll, err := e.machine.Ready(ctx)
	if err != nil {
		return nil, err
	}

	recs, err := coll.Find(ctx, e.cfg.now())
	if err != nil {
		return nil, storageErr("find", err)
	}

	sessions = make([]Session, 0, len(recs))
	for _, rec := range recs {
		s, err := e.decode(ctx, rec)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	e.events.emit(Event{Name: EventAll, Sessions: sessions})
	return sessions, nil
}

// Length returns the number of stored records. Records that have expired
// but not yet been evicted are counted.
func (e *Engine) Length(ctx context.Context) (n int64, err error) {
	defer e.track(OpLength, time.Now(), &err)

	coll, err := e.machine.Ready(ctx)
	if err != nil {
		return 0, err
	}
	n, err = coll.Count(ctx)
	if err != nil {
		return 0, storageErr("count", err)
	}
	return n, nil
}

// Clear removes every stored session. Native expiry stays installed.
func (e *Engine) Clear(ctx context.Context) (err error) {
	defer e.track(OpClear, time.Now(), &err)

	coll, err := e.machine.Ready(ctx)
	if err != nil {
		return err
	}
	if err := coll.Drop(ctx); err != nil {
		return storageErr("drop", err)
	}
	return nil
}

// Sweep removes expired records now and returns how many were removed.
// It works in every eviction mode.
func (e *Engine) Sweep(ctx context.Context) (n int64, err error) {
	defer e.track(OpSweep, time.Now(), &err)

	coll, err := e.machine.Ready(ctx)
	if err != nil {
		return 0, err
	}
	n, err = coll.DeleteExpired(ctx, e.cfg.now(), e.cfg.wo)
	if err != nil {
		return 0, storageErr("delete expired", err)
	}
	e.events.emit(Event{Name: EventSweep, Count: n})
	return n, nil
}

// Close stops the eviction sweep and releases the collection. Operations
// after Close return ErrNotConnected. Close is idempotent.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	e.closing = true
	sw := e.sweeper
	e.sweeper = nil
	e.mu.Unlock()

	if sw != nil {
		sw.Stop()
	}

	return e.machine.Close(func(coll storage.Collection) error {
		if err := coll.Close(ctx); err != nil {
			return storageErr("close", err)
		}
		return nil
	})
}

func (e *Engine) track(op string, start time.Time, err *error) {
	e.events.record(op, time.Since(start), *err)
}

// encode serializes s and encrypts the result when crypto is enabled.
// Nothing is written when encode fails.
func (e *Engine) encode(ctx context.Context, s Session) (any, error) {
	payload, err := e.cfg.pipeline.Serialize(s)
	if err != nil {
		return nil, err
	}
	if e.cfg.crypto == nil {
		return payload, nil
	}

	plaintext, err := json.Marshal(payload)
	if err != nil {
		return nil, domain.ErrTransform.WithDetails("encode payload for encryption").WithCause(err)
	}
	ciphertext, err := e.cfg.crypto.Encrypt(ctx, string(plaintext))
	if err != nil {
		return nil, domain.ErrCrypto.WithDetails("encrypt").WithCause(err)
	}
	return ciphertext, nil
}

// decode reverses encode for a stored record and merges throttle
// bookkeeping into the result.
func (e *Engine) decode(ctx context.Context, rec *Record) (Session, error) {
	payload := rec.Session
	if e.cfg.crypto != nil {
		ciphertext, ok := payload.(string)
		if !ok {
			return nil, domain.ErrCrypto.WithDetails("encrypted payload is not a string")
		}
		plaintext, err := e.cfg.crypto.Decrypt(ctx, ciphertext)
		if err != nil {
			return nil, domain.ErrCrypto.WithDetails("decrypt").WithCause(err)
		}
		payload = parsePlaintext(plaintext)
	}

	s, err := e.cfg.pipeline.Unserialize(payload)
	if err != nil {
		return nil, err
	}
	if s == nil {
		// A stored record always reads back as a session, so a nil
		// payload stays distinguishable from a missing one.
		s = Session{}
	}
	if e.cfg.throttle.Enabled() {
		s = throttle.Merge(s, rec.LastModified)
	}
	return s, nil
}

// parsePlaintext returns the JSON value held by plaintext, or plaintext
// itself when it is not JSON.
func parsePlaintext(plaintext string) any {
	var v any
	if err := json.Unmarshal([]byte(plaintext), &v); err != nil {
		return plaintext
	}
	return v
}

func storageErr(op string, err error) error {
	var de *domain.DomainError
	if errors.As(err, &de) {
		return err
	}
	return domain.ErrStorage.WithDetails(op).WithCause(err)
}
