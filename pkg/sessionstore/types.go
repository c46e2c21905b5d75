package sessionstore

import (
	"github.com/yndnr/sessmesh/internal/core/domain"
	"github.com/yndnr/sessmesh/internal/core/expiry"
	"github.com/yndnr/sessmesh/internal/core/lifecycle"
	"github.com/yndnr/sessmesh/internal/core/transform"
	"github.com/yndnr/sessmesh/internal/storage"
)

type (
	// Session is the application-visible session object.
	Session = domain.Session

	// Cookie is the cookie metadata a middleware attaches under "cookie".
	Cookie = domain.Cookie

	// Record is one persisted session document.
	Record = domain.Record

	// CryptoAdapter encrypts and decrypts serialized payloads.
	CryptoAdapter = domain.CryptoAdapter

	// Collection is the storage interface an Engine writes through.
	Collection = storage.Collection

	// WriteOptions is passed through to backend writes.
	WriteOptions = storage.WriteOptions

	// SerializeFunc converts a session into its stored payload.
	SerializeFunc = transform.SerializeFunc

	// UnserializeFunc converts a stored payload back into a session.
	UnserializeFunc = transform.UnserializeFunc

	// EvictionMode selects how expired records are removed.
	EvictionMode = expiry.Mode

	// State is the connection state of an Engine.
	State = lifecycle.State

	// Event is delivered to listeners registered with On.
	Event = domain.Event

	// EventName identifies an event.
	EventName = domain.EventName
)

// Eviction modes.
const (
	EvictionNative   = expiry.ModeNative
	EvictionInterval = expiry.ModeInterval
	EvictionDisabled = expiry.ModeDisabled
)

// Connection states.
const (
	StateInit         = lifecycle.StateInit
	StateConnecting   = lifecycle.StateConnecting
	StateConnected    = lifecycle.StateConnected
	StateDisconnected = lifecycle.StateDisconnected
)

// Events.
const (
	EventConnected    = domain.EventConnected
	EventDisconnected = domain.EventDisconnected
	EventCreate       = domain.EventCreate
	EventUpdate       = domain.EventUpdate
	EventSet          = domain.EventSet
	EventGet          = domain.EventGet
	EventTouch        = domain.EventTouch
	EventDestroy      = domain.EventDestroy
	EventAll          = domain.EventAll
	EventSweep        = domain.EventSweep
)

// Errors returned by Engine. Compare with errors.Is.
var (
	ErrInvalidConfig   = domain.ErrInvalidConfig
	ErrNotConnected    = domain.ErrNotConnected
	ErrSessionNotFound = domain.ErrSessionNotFound
	ErrTransform       = domain.ErrTransform
	ErrCrypto          = domain.ErrCrypto
	ErrStorage         = domain.ErrStorage
)

// CookieKey is the session entry holding cookie metadata.
const CookieKey = domain.CookieKey

// NewCookie creates cookie metadata expiring after maxAge.
var NewCookie = domain.NewCookie

// Bool returns a pointer to v, for optional boolean options.
func Bool(v bool) *bool {
	return &v
}
