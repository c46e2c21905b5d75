package ttlmap

import (
	"hash/maphash"
	"sync"
	"time"
)

// DefaultShards is the shard count used by New.
const DefaultShards = 16

// Map is a sharded map from string keys to values with deadlines.
type Map[V any] struct {
	shards []*shard[V]
	mask   uint64
	seed   maphash.Seed
}

type item[V any] struct {
	value    V
	deadline time.Time
}

// live reports whether the item is visible at now. A zero deadline
// never expires.
func (it item[V]) live(now time.Time) bool {
	return it.deadline.IsZero() || it.deadline.After(now)
}

type shard[V any] struct {
	mu    sync.RWMutex
	items map[string]item[V]
}

// New returns an empty map with DefaultShards shards.
func New[V any]() *Map[V] {
	return NewSharded[V](DefaultShards)
}

// NewSharded returns an empty map with n shards. n is rounded up to a
// power of two; values below one select DefaultShards.
func NewSharded[V any](n int) *Map[V] {
	if n < 1 {
		n = DefaultShards
	}
	size := 1
	for size < n {
		size <<= 1
	}

	m := &Map[V]{
		shards: make([]*shard[V], size),
		mask:   uint64(size - 1),
		seed:   maphash.MakeSeed(),
	}
	for i := range m.shards {
		m.shards[i] = &shard[V]{items: make(map[string]item[V])}
	}
	return m
}

func (m *Map[V]) shardFor(key string) *shard[V] {
	return m.shards[maphash.String(m.seed, key)&m.mask]
}

// Shards returns the number of shards.
func (m *Map[V]) Shards() int {
	return len(m.shards)
}

// Load returns the value stored under key if it is live at now.
func (m *Map[V]) Load(key string, now time.Time) (V, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	it, ok := s.items[key]
	s.mu.RUnlock()
	if !ok || !it.live(now) {
		var zero V
		return zero, false
	}
	return it.value, true
}

// Peek returns the value and deadline stored under key whether or not it
// has expired.
func (m *Map[V]) Peek(key string) (value V, deadline time.Time, ok bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	it, ok := s.items[key]
	s.mu.RUnlock()
	return it.value, it.deadline, ok
}

// Store sets key to value until deadline and reports whether an entry,
// live or expired, was replaced.
func (m *Map[V]) Store(key string, value V, deadline time.Time) (replaced bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	_, replaced = s.items[key]
	s.items[key] = item[V]{value: value, deadline: deadline}
	s.mu.Unlock()
	return replaced
}

// Update rewrites the entry under key while holding its shard lock. fn
// sees the current value and deadline and returns the replacement;
// returning ok=false leaves the entry untouched. Update reports whether
// the entry was rewritten and is a no-op for missing keys.
func (m *Map[V]) Update(key string, fn func(value V, deadline time.Time) (V, time.Time, bool)) bool {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[key]
	if !ok {
		return false
	}
	value, deadline, ok := fn(it.value, it.deadline)
	if !ok {
		return false
	}
	s.items[key] = item[V]{value: value, deadline: deadline}
	return true
}

// Delete removes key and reports whether it was present.
func (m *Map[V]) Delete(key string) bool {
	s := m.shardFor(key)
	s.mu.Lock()
	_, ok := s.items[key]
	delete(s.items, key)
	s.mu.Unlock()
	return ok
}

// Len returns the number of entries, expired ones included.
func (m *Map[V]) Len() int {
	n := 0
	for _, s := range m.shards {
		s.mu.RLock()
		n += len(s.items)
		s.mu.RUnlock()
	}
	return n
}

// Purge removes every entry.
func (m *Map[V]) Purge() {
	for _, s := range m.shards {
		s.mu.Lock()
		clear(s.items)
		s.mu.Unlock()
	}
}
