// Package badger stores session records in an embedded Badger database.
//
// Records are JSON values under "<collection>/<id>". Native expiry sets
// the entry TTL so Badger hides and compacts expired records itself. A
// background loop runs value log GC.
package badger
