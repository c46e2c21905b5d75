package sessionstore

import (
	"log/slog"
	"sync"
	"time"
)

// Listener receives engine events. Listeners run synchronously on the
// goroutine that produced the event and must not block.
type Listener func(Event)

// OpObserver is called after every public operation with its outcome.
// op is one of the Op constants.
type OpObserver func(op string, elapsed time.Duration, err error)

// Operation names passed to an OpObserver.
const (
	OpGet     = "get"
	OpSet     = "set"
	OpTouch   = "touch"
	OpDestroy = "destroy"
	OpAll     = "all"
	OpLength  = "length"
	OpClear   = "clear"
	OpSweep   = "sweep"
)

type subscription[F any] struct {
	fn F
}

// emitter fans events out to listeners. A panicking listener is logged
// and does not affect the others or the operation that emitted.
type emitter struct {
	logger *slog.Logger

	mu        sync.RWMutex
	listeners map[EventName][]*subscription[Listener]
	observers []*subscription[OpObserver]
}

func newEmitter(logger *slog.Logger) *emitter {
	return &emitter{
		logger:    logger,
		listeners: make(map[EventName][]*subscription[Listener]),
	}
}

func (em *emitter) on(name EventName, fn Listener) func() {
	sub := &subscription[Listener]{fn: fn}
	em.mu.Lock()
	em.listeners[name] = append(em.listeners[name], sub)
	em.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			em.mu.Lock()
			defer em.mu.Unlock()
			em.listeners[name] = without(em.listeners[name], sub)
		})
	}
}

func (em *emitter) observe(fn OpObserver) func() {
	sub := &subscription[OpObserver]{fn: fn}
	em.mu.Lock()
	em.observers = append(em.observers, sub)
	em.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			em.mu.Lock()
			defer em.mu.Unlock()
			em.observers = without(em.observers, sub)
		})
	}
}

func without[F any](subs []*subscription[F], target *subscription[F]) []*subscription[F] {
	out := make([]*subscription[F], 0, len(subs))
	for _, s := range subs {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}

func (em *emitter) emit(ev Event) {
	em.mu.RLock()
	subs := em.listeners[ev.Name]
	em.mu.RUnlock()

	for _, sub := range subs {
		em.call(string(ev.Name), func() { sub.fn(ev) })
	}
}

func (em *emitter) record(op string, elapsed time.Duration, err error) {
	em.mu.RLock()
	subs := em.observers
	em.mu.RUnlock()

	for _, sub := range subs {
		em.call(op, func() { sub.fn(op, elapsed, err) })
	}
}

func (em *emitter) call(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			em.logger.Error("session store listener panicked", "event", name, "panic", r)
		}
	}()
	fn()
}
