package storage

import (
	"context"
	"time"

	"github.com/yndnr/sessmesh/internal/core/domain"
)

// Collection is a document collection of session records keyed by id.
//
// Implementations must be safe for concurrent use.
type Collection interface {
	// FindOne returns the record with id, or nil when it does not exist or
	// has expired at now.
	FindOne(ctx context.Context, id string, now time.Time) (*domain.Record, error)

	// Find returns every record not expired at now.
	Find(ctx context.Context, now time.Time) ([]*domain.Record, error)

	// Upsert replaces the record with rec.ID, inserting it if missing.
	// inserted reports whether no record existed before.
	Upsert(ctx context.Context, rec *domain.Record, wo WriteOptions) (inserted bool, err error)

	// UpdateExpiry sets expires, and lastModified when non-nil, on an
	// existing record. matched is false when no record has id.
	UpdateExpiry(ctx context.Context, id string, expires time.Time, lastModified *time.Time, wo WriteOptions) (matched bool, err error)

	// DeleteOne removes the record with id. Deleting a missing id succeeds.
	DeleteOne(ctx context.Context, id string, wo WriteOptions) error

	// DeleteExpired removes every record expired at now. It backs the
	// interval eviction sweep and may use a best-effort write.
	DeleteExpired(ctx context.Context, now time.Time, wo WriteOptions) (int64, error)

	// Count returns the number of stored records, expired or not.
	Count(ctx context.Context) (int64, error)

	// Drop removes every record. It succeeds on an empty or missing
	// namespace and keeps any expiry index in place.
	Drop(ctx context.Context) error

	// EnsureExpiryIndex installs native expiry eviction. It is idempotent.
	EnsureExpiryIndex(ctx context.Context) error

	// Close releases resources owned by the collection.
	Close(ctx context.Context) error
}

// WriteOptions is passed through to backend writes. Backends without an
// equivalent ignore it.
type WriteOptions struct {
	// Majority requests majority acknowledgement. It takes precedence over W.
	Majority bool

	// W is the number of acknowledging nodes. Zero keeps the backend default.
	W int

	// Journal requests journal acknowledgement.
	Journal bool

	// Timeout bounds acknowledgement.
	Timeout time.Duration

	// Unacknowledged requests fire-and-forget writes.
	Unacknowledged bool
}

// IsZero reports whether no option is set.
func (wo WriteOptions) IsZero() bool {
	return wo == WriteOptions{}
}

// BestEffort is the write option used by the eviction sweep.
var BestEffort = WriteOptions{Unacknowledged: true}
