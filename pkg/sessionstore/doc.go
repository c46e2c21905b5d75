// Package sessionstore persists web sessions in a document collection.
//
// An Engine exposes the operations a session middleware needs (Get, Set,
// Touch, Destroy, All, Length, Clear) on top of MongoDB, Redis, Badger or
// an in-memory collection. It takes care of:
//
//   - connection lifecycle: operations issued before the connection is
//     ready wait for it; once disconnected every operation fails
//   - expiry: each record expires at the cookie expiry or now plus TTL,
//     evicted natively, by a periodic sweep, or never
//   - transforms: sessions are stored as JSON text, raw sub-documents or
//     through custom serialize/unserialize functions
//   - encryption: payloads can be sealed by a CryptoAdapter
//   - touch throttling: touches within TouchAfter of the last one are skipped
//
// Usage:
//
//	store, err := sessionstore.New(sessionstore.Options{
//		URL: "mongodb://localhost:27017/app",
//		TTL: 3600,
//	})
//	if err != nil {
//		return err
//	}
//	defer store.Close(context.Background())
//
//	err = store.Set(ctx, "sid", sessionstore.Session{"user": "alice"})
//	s, err := store.Get(ctx, "sid")
package sessionstore
