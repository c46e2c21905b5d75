// Package expiry computes record expiry timestamps and runs the periodic
// eviction sweep.
//
// Three eviction modes exist and are chosen once per store:
//
//   - native: the backend evicts expired records itself (TTL index, key TTL)
//   - interval: a Sweeper deletes expired records on a fixed period
//   - disabled: records live until destroyed
//
// Regardless of mode, reads filter out records whose expiry has passed.
package expiry
