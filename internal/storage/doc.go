// Package storage defines the narrow collection interface session stores
// persist records through.
//
// Backends live in subpackages:
//
//   - mongodb: MongoDB collection (TTL index eviction)
//   - redis: one key per record (PEXPIREAT eviction)
//   - badger: embedded Badger database (entry TTL eviction)
//   - memory: sharded in-process map (lazy eviction)
//
// storagetest holds a contract suite every backend runs in its tests.
package storage
