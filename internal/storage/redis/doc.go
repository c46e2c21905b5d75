// Package redis stores session records in Redis.
//
// Each record is a JSON value under prefix+id. A sorted set at
// prefix+"index" holds every id scored by expiry in Unix milliseconds
// (records without expiry score +inf), which backs Find, Count and the
// eviction sweep without scanning the keyspace.
//
// Native expiry sets PEXPIREAT on every written key. Index members of
// keys Redis already evicted are pruned lazily.
package redis
