package ttlmap

import "time"

// Walk calls fn for every entry live at now until fn returns false.
// Shards are visited one at a time, so concurrent writers may or may not
// be observed.
func (m *Map[V]) Walk(now time.Time, fn func(key string, value V) bool) {
	for _, s := range m.shards {
		s.mu.RLock()
		for k, it := range s.items {
			if !it.live(now) {
				continue
			}
			if !fn(k, it.value) {
				s.mu.RUnlock()
				return
			}
		}
		s.mu.RUnlock()
	}
}

// ExpireKey removes key if its deadline has passed at now.
func (m *Map[V]) ExpireKey(key string, now time.Time) bool {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[key]
	if !ok || it.live(now) {
		return false
	}
	delete(s.items, key)
	return true
}

// Expire removes every entry whose deadline has passed at now and
// returns how many were removed.
func (m *Map[V]) Expire(now time.Time) int {
	removed := 0
	for _, s := range m.shards {
		s.mu.Lock()
		for k, it := range s.items {
			if !it.live(now) {
				delete(s.items, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}
