// Package domain defines the core domain models for sessmesh.
//
// Domain models are pure values without any IO dependencies.
// This package contains:
//
//   - Session: the application-visible session object and its cookie metadata
//   - Record: the persisted shape of a session in a document collection
//   - Event: notifications emitted by the session store
//   - Errors: structured error codes shared by every layer
package domain
