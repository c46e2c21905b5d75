// Package memory provides an in-process session collection.
//
// Records are kept encoded in a sharded concurrent map, so reads never
// alias a caller's payload. Native expiry purges an expired record on the
// first access that observes it.
package memory
