package memory

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/yndnr/sessmesh/internal/core/domain"
	"github.com/yndnr/sessmesh/internal/storage"
	"github.com/yndnr/sessmesh/pkg/ttlmap"
)

// Store is an in-memory storage.Collection. Records are held encoded,
// keyed by id, with their expiry as the entry deadline.
type Store struct {
	records *ttlmap.Map[[]byte]
	native  atomic.Bool
	closed  atomic.Bool
}

// Option configures the Store.
type Option func(*Store)

// WithShards sets the shard count. It is rounded up to a power of two.
func WithShards(n int) Option {
	return func(s *Store) {
		s.records = ttlmap.NewSharded[[]byte](n)
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		records: ttlmap.New[[]byte](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ storage.Collection = (*Store)(nil)

func (s *Store) check() error {
	if s.closed.Load() {
		return domain.ErrStorage.WithDetails("memory collection closed")
	}
	return nil
}

// FindOne returns the live record with id.
func (s *Store) FindOne(_ context.Context, id string, now time.Time) (*domain.Record, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	data, ok := s.records.Load(id, now)
	if !ok {
		if s.native.Load() {
			s.records.ExpireKey(id, now)
		}
		return nil, nil
	}
	return storage.DecodeRecord(data)
}

// Find returns every live record, ordered by id.
func (s *Store) Find(_ context.Context, now time.Time) ([]*domain.Record, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if s.native.Load() {
		s.records.Expire(now)
	}

	var (
		out     []*domain.Record
		lastErr error
	)
	s.records.Walk(now, func(_ string, data []byte) bool {
		rec, err := storage.DecodeRecord(data)
		if err != nil {
			lastErr = err
			return false
		}
		out = append(out, rec)
		return true
	})
	if lastErr != nil {
		return nil, lastErr
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Upsert stores rec, replacing any previous record.
func (s *Store) Upsert(_ context.Context, rec *domain.Record, _ storage.WriteOptions) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	data, err := storage.EncodeRecord(rec)
	if err != nil {
		return false, err
	}
	return !s.records.Store(rec.ID, data, deadline(rec.Expires)), nil
}

// UpdateExpiry rewrites the expiry fields of an existing record.
func (s *Store) UpdateExpiry(_ context.Context, id string, expires time.Time, lastModified *time.Time, _ storage.WriteOptions) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	var decodeErr error
	matched := s.records.Update(id, func(data []byte, old time.Time) ([]byte, time.Time, bool) {
		rec, err := storage.DecodeRecord(data)
		if err != nil {
			decodeErr = err
			return data, old, false
		}
		rec.Expires = &expires
		if lastModified != nil {
			rec.LastModified = lastModified
		}
		next, err := storage.EncodeRecord(rec)
		if err != nil {
			decodeErr = err
			return data, old, false
		}
		return next, expires, true
	})
	if decodeErr != nil {
		return false, decodeErr
	}
	return matched, nil
}

// DeleteOne removes the record with id.
func (s *Store) DeleteOne(_ context.Context, id string, _ storage.WriteOptions) error {
	if err := s.check(); err != nil {
		return err
	}
	s.records.Delete(id)
	return nil
}

// DeleteExpired removes every record expired at now.
func (s *Store) DeleteExpired(_ context.Context, now time.Time, _ storage.WriteOptions) (int64, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	return int64(s.records.Expire(now)), nil
}

// Count returns the number of stored records, expired or not.
func (s *Store) Count(_ context.Context) (int64, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	return int64(s.records.Len()), nil
}

// Drop removes every record.
func (s *Store) Drop(_ context.Context) error {
	if err := s.check(); err != nil {
		return err
	}
	s.records.Purge()
	return nil
}

// EnsureExpiryIndex enables lazy purging of expired records.
func (s *Store) EnsureExpiryIndex(_ context.Context) error {
	if err := s.check(); err != nil {
		return err
	}
	s.native.Store(true)
	return nil
}

// Close marks the store closed. Later calls fail.
func (s *Store) Close(_ context.Context) error {
	s.closed.Store(true)
	return nil
}

// deadline maps a record expiry to a map deadline; nil never expires.
func deadline(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
