// Package ttlmap provides a concurrent string-keyed map whose entries
// carry an optional deadline.
//
// Keys are spread over shards by hash, each guarded by its own RWMutex.
// Expired entries stay in the map until Expire, ExpireKey or Purge
// removes them, so callers decide whether expiry is eager or lazy.
//
//	m := ttlmap.New[[]byte]()
//	m.Store("sid", data, time.Now().Add(time.Hour))
//	v, ok := m.Load("sid", time.Now())
package ttlmap
