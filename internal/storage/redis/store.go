package redis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync/atomic"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/yndnr/sessmesh/internal/core/domain"
	"github.com/yndnr/sessmesh/internal/storage"
)

// DefaultPrefix namespaces keys when no prefix is configured.
const DefaultPrefix = "sessmesh:sessions:"

// maxWatchRetries bounds optimistic retries of UpdateExpiry.
const maxWatchRetries = 8

// Store implements storage.Collection on Redis.
type Store struct {
	client backend.UniversalClient
	prefix string
	native atomic.Bool
	owned  bool
}

// Option configures the Store.
type Option func(*Store)

// WithPrefix sets the key prefix, typically "<app>:<collection>:".
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithOwnedClient makes Close close the client.
func WithOwnedClient() Option {
	return func(s *Store) {
		s.owned = true
	}
}

// New connects to a redis:// or rediss:// URL. tlsConfig, when set,
// replaces the TLS settings derived from the URL. The returned store owns
// the client.
func New(ctx context.Context, url string, tlsConfig *tls.Config, opts ...Option) (*Store, error) {
	o, err := backend.ParseURL(url)
	if err != nil {
		return nil, domain.ErrInvalidConfig.WithDetails("redis url").WithCause(err)
	}
	if tlsConfig != nil {
		o.TLSConfig = tlsConfig
	}
	client := backend.NewClient(o)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewFromClient(client, append([]Option{WithOwnedClient()}, opts...)...), nil
}

// NewFromClient creates a store on an existing client.
func NewFromClient(client backend.UniversalClient, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ storage.Collection = (*Store)(nil)

// Records live under <prefix>s:<id> and the expiry index under
// <prefix>idx, so no session id can collide with the index.
func (s *Store) key(id string) string {
	return s.prefix + "s:" + id
}

func (s *Store) indexKey() string {
	return s.prefix + "idx"
}

func score(exp *time.Time) float64 {
	if exp == nil {
		return math.Inf(1)
	}
	return float64(exp.UnixMilli())
}

func scoreArg(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func wrap(op string, err error) error {
	return domain.ErrStorage.WithDetails("redis " + op).WithCause(err)
}

// FindOne returns the live record with id.
func (s *Store) FindOne(ctx context.Context, id string, now time.Time) (*domain.Record, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("get", err)
	}
	rec, err := storage.DecodeRecord(data)
	if err != nil {
		return nil, err
	}
	if rec.IsExpired(now) {
		return nil, nil
	}
	return rec, nil
}

// Find returns every live record, ordered by expiry.
func (s *Store) Find(ctx context.Context, now time.Time) ([]*domain.Record, error) {
	ids, err := s.client.ZRangeByScore(ctx, s.indexKey(), &backend.ZRangeBy{
		Min: "(" + scoreArg(now),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, wrap("zrangebyscore", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, wrap("mget", err)
	}

	out := make([]*domain.Record, 0, len(values))
	var stale []any
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		rec, err := storage.DecodeRecord([]byte(str))
		if err != nil {
			return nil, err
		}
		if !rec.IsExpired(now) {
			out = append(out, rec)
		}
	}
	if len(stale) > 0 {
		// Keys evicted by Redis itself.
		_ = s.client.ZRem(ctx, s.indexKey(), stale...).Err()
	}
	return out, nil
}

// Upsert writes rec and reports whether the key was new.
func (s *Store) Upsert(ctx context.Context, rec *domain.Record, _ storage.WriteOptions) (bool, error) {
	data, err := storage.EncodeRecord(rec)
	if err != nil {
		return false, err
	}

	var exists *backend.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		exists = pipe.Exists(ctx, s.key(rec.ID))
		pipe.Set(ctx, s.key(rec.ID), data, 0)
		if s.native.Load() && rec.Expires != nil {
			pipe.PExpireAt(ctx, s.key(rec.ID), *rec.Expires)
		}
		pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score(rec.Expires), Member: rec.ID})
		return nil
	})
	if err != nil {
		return false, wrap("upsert", err)
	}
	return exists.Val() == 0, nil
}

// UpdateExpiry rewrites the expiry fields of an existing record using
// optimistic locking on the key.
func (s *Store) UpdateExpiry(ctx context.Context, id string, expires time.Time, lastModified *time.Time, _ storage.WriteOptions) (bool, error) {
	key := s.key(id)
	matched := false

	txf := func(tx *backend.Tx) error {
		matched = false
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, backend.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		rec, err := storage.DecodeRecord(data)
		if err != nil {
			return err
		}
		rec.Expires = &expires
		if lastModified != nil {
			rec.LastModified = lastModified
		}
		updated, err := storage.EncodeRecord(rec)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Set(ctx, key, updated, backend.KeepTTL)
			if s.native.Load() {
				pipe.PExpireAt(ctx, key, expires)
			}
			pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score(&expires), Member: id})
			return nil
		})
		if err == nil {
			matched = true
		}
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, backend.TxFailedErr) {
			continue
		}
		if err != nil {
			return false, wrap("update expiry", err)
		}
		return matched, nil
	}
	return false, wrap("update expiry", fmt.Errorf("key %q changed concurrently %d times", id, maxWatchRetries))
}

// DeleteOne removes the record with id.
func (s *Store) DeleteOne(ctx context.Context, id string, _ storage.WriteOptions) error {
	_, err := s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Del(ctx, s.key(id))
		pipe.ZRem(ctx, s.indexKey(), id)
		return nil
	})
	if err != nil {
		return wrap("delete", err)
	}
	return nil
}

// DeleteExpired removes every record whose indexed expiry is at or before now.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time, _ storage.WriteOptions) (int64, error) {
	ids, err := s.client.ZRangeByScore(ctx, s.indexKey(), &backend.ZRangeBy{
		Min: "-inf",
		Max: scoreArg(now),
	}).Result()
	if err != nil {
		return 0, wrap("zrangebyscore", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return s.deleteIDs(ctx, ids)
}

func (s *Store) deleteIDs(ctx context.Context, ids []string) (int64, error) {
	keys := make([]string, len(ids))
	members := make([]any, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
		members[i] = id
	}

	var del *backend.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		del = pipe.Del(ctx, keys...)
		pipe.ZRem(ctx, s.indexKey(), members...)
		return nil
	})
	if err != nil {
		return 0, wrap("delete", err)
	}
	return del.Val(), nil
}

// Count returns the number of indexed records, expired or not. Under
// native expiry, index members whose keys Redis has already evicted are
// pruned first; records that still exist are never removed here.
func (s *Store) Count(ctx context.Context) (int64, error) {
	if s.native.Load() {
		if err := s.pruneEvicted(ctx); err != nil {
			return 0, err
		}
	}
	n, err := s.client.ZCard(ctx, s.indexKey()).Result()
	if err != nil {
		return 0, wrap("zcard", err)
	}
	return n, nil
}

// pruneEvicted drops index members with a past score whose key is gone.
func (s *Store) pruneEvicted(ctx context.Context) error {
	ids, err := s.client.ZRangeByScore(ctx, s.indexKey(), &backend.ZRangeBy{
		Min: "-inf",
		Max: scoreArg(time.Now()),
	}).Result()
	if err != nil {
		return wrap("zrangebyscore", err)
	}
	if len(ids) == 0 {
		return nil
	}

	cmds := make([]*backend.IntCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe backend.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.Exists(ctx, s.key(id))
		}
		return nil
	})
	if err != nil {
		return wrap("exists", err)
	}

	var gone []any
	for i, cmd := range cmds {
		if cmd.Val() == 0 {
			gone = append(gone, ids[i])
		}
	}
	if len(gone) == 0 {
		return nil
	}
	if err := s.client.ZRem(ctx, s.indexKey(), gone...).Err(); err != nil {
		return wrap("zrem", err)
	}
	return nil
}

// Drop removes every record in the namespace.
func (s *Store) Drop(ctx context.Context) error {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return wrap("zrange", err)
	}
	if len(ids) > 0 {
		if _, err := s.deleteIDs(ctx, ids); err != nil {
			return err
		}
	}
	return nil
}

// EnsureExpiryIndex enables PEXPIREAT on subsequent writes.
func (s *Store) EnsureExpiryIndex(_ context.Context) error {
	s.native.Store(true)
	return nil
}

// Close closes the client if the store owns it.
func (s *Store) Close(_ context.Context) error {
	if !s.owned {
		return nil
	}
	if err := s.client.Close(); err != nil {
		return wrap("close", err)
	}
	return nil
}
