package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/sessmesh/internal/core/domain"
	"github.com/yndnr/sessmesh/internal/storage"
)

// Store implements storage.Collection on Badger.
type Store struct {
	db     *badger.DB
	cfg    Config
	prefix []byte
	logger *slog.Logger
	native atomic.Bool

	lastGCTime atomic.Int64 // Unix milliseconds
	gcRuns     atomic.Uint64

	closeOnce sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// Open opens (or creates) the database in cfg.Dir.
func Open(cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.Dir == "" {
		return nil, domain.ErrInvalidConfig.WithDetails("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()

	opts := badger.DefaultOptions(cfg.Dir)
	opts.Logger = &badgerLogger{logger: logger}
	opts.BlockCacheSize = cfg.CacheSize
	opts.ValueLogFileSize = cfg.ValueLogFileSize
	opts.NumMemtables = cfg.NumMemtables
	opts.SyncWrites = cfg.SyncWrites

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	s := &Store{
		db:     db,
		cfg:    cfg,
		prefix: []byte(cfg.Collection + "/"),
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go s.gcLoop()

	logger.Info("badger collection opened",
		"dir", cfg.Dir,
		"collection", cfg.Collection,
		"gc_interval", cfg.GCInterval)

	return s, nil
}

var _ storage.Collection = (*Store)(nil)

func (s *Store) key(id string) []byte {
	k := make([]byte, 0, len(s.prefix)+len(id))
	k = append(k, s.prefix...)
	return append(k, id...)
}

func wrap(op string, err error) error {
	return domain.ErrStorage.WithDetails("badger " + op).WithCause(err)
}

// entry builds a write entry, attaching a TTL under native expiry.
// Badger expiry has second resolution, so it is rounded up.
func (s *Store) entry(id string, data []byte, expires *time.Time) *badger.Entry {
	e := badger.NewEntry(s.key(id), data)
	if s.native.Load() && expires != nil {
		at := expires.Unix()
		if expires.Nanosecond() > 0 {
			at++
		}
		if at < 1 {
			at = 1
		}
		e.ExpiresAt = uint64(at)
	}
	return e
}

// FindOne returns the live record with id.
func (s *Store) FindOne(_ context.Context, id string, now time.Time) (*domain.Record, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
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

// scan calls fn for every record in the collection, in key order.
func (s *Store) scan(keysOnly bool, fn func(item *badger.Item) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = s.prefix
		opts.PrefetchValues = !keysOnly
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := fn(it.Item()); err != nil {
				return err
			}
		}
		return nil
	})
}

// Find returns every live record, ordered by id.
func (s *Store) Find(ctx context.Context, now time.Time) ([]*domain.Record, error) {
	var out []*domain.Record
	err := s.scan(false, func(item *badger.Item) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			rec, err := storage.DecodeRecord(val)
			if err != nil {
				return err
			}
			if !rec.IsExpired(now) {
				out = append(out, rec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, wrap("scan", err)
	}
	return out, nil
}

// Upsert writes rec and reports whether the key was new.
func (s *Store) Upsert(_ context.Context, rec *domain.Record, _ storage.WriteOptions) (bool, error) {
	data, err := storage.EncodeRecord(rec)
	if err != nil {
		return false, err
	}

	inserted := false
	err = s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(s.key(rec.ID))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			inserted = true
		case err != nil:
			return err
		}
		return txn.SetEntry(s.entry(rec.ID, data, rec.Expires))
	})
	if err != nil {
		return false, wrap("upsert", err)
	}
	return inserted, nil
}

// UpdateExpiry rewrites the expiry fields of an existing record.
func (s *Store) UpdateExpiry(_ context.Context, id string, expires time.Time, lastModified *time.Time, _ storage.WriteOptions) (bool, error) {
	matched := false
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		data, err := item.ValueCopy(nil)
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
		matched = true
		return txn.SetEntry(s.entry(id, updated, &expires))
	})
	if err != nil {
		return false, wrap("update expiry", err)
	}
	return matched, nil
}

// DeleteOne removes the record with id.
func (s *Store) DeleteOne(_ context.Context, id string, _ storage.WriteOptions) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.key(id))
	})
	if err != nil {
		return wrap("delete", err)
	}
	return nil
}

// DeleteExpired removes every record expired at now.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time, _ storage.WriteOptions) (int64, error) {
	var expired [][]byte
	err := s.scan(false, func(item *badger.Item) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			rec, err := storage.DecodeRecord(val)
			if err != nil {
				return err
			}
			if rec.IsExpired(now) {
				expired = append(expired, item.KeyCopy(nil))
			}
			return nil
		})
	})
	if err != nil {
		return 0, wrap("scan", err)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range expired {
		if err := wb.Delete(k); err != nil {
			return 0, wrap("delete expired", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, wrap("delete expired", err)
	}
	return int64(len(expired)), nil
}

// Count returns the number of stored records.
func (s *Store) Count(_ context.Context) (int64, error) {
	var n int64
	err := s.scan(true, func(*badger.Item) error {
		n++
		return nil
	})
	if err != nil {
		return 0, wrap("count", err)
	}
	return n, nil
}

// Drop removes every record of the collection.
func (s *Store) Drop(_ context.Context) error {
	if err := s.db.DropPrefix(s.prefix); err != nil {
		return wrap("drop", err)
	}
	return nil
}

// EnsureExpiryIndex enables entry TTLs on subsequent writes.
func (s *Store) EnsureExpiryIndex(_ context.Context) error {
	s.native.Store(true)
	return nil
}

// GC runs value log garbage collection until nothing is left to rewrite
// and returns the number of rewrite rounds.
func (s *Store) GC(ctx context.Context) (int, error) {
	startTime := time.Now()
	rounds := 0
	for ctx.Err() == nil {
		err := s.db.RunValueLogGC(s.cfg.GCThreshold)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
			break
		}
		if err != nil {
			return rounds, fmt.Errorf("gc: %w", err)
		}
		rounds++
	}

	s.lastGCTime.Store(time.Now().UnixMilli())
	s.gcRuns.Add(1)
	s.logger.Debug("badger gc completed", "rounds", rounds, "elapsed", time.Since(startTime))
	return rounds, nil
}

// Close stops the GC loop and closes the database. It is idempotent.
func (s *Store) Close(_ context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopCh)
		<-s.doneCh
		if cerr := s.db.Close(); cerr != nil {
			err = wrap("close", cerr)
		}
		s.logger.Info("badger collection closed", "dir", s.cfg.Dir)
	})
	return err
}

// RegisterMetrics registers database size and GC metrics with reg.
func (s *Store) RegisterMetrics(reg prometheus.Registerer) error {
	size := func(pick func(lsm, vlog int64) int64) func() float64 {
		return func() float64 {
			lsm, vlog := s.db.Size()
			return float64(pick(lsm, vlog))
		}
	}
	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "sessmesh",
			Subsystem: "badger",
			Name:      "lsm_size_bytes",
			Help:      "Badger LSM tree size in bytes",
		}, size(func(lsm, _ int64) int64 { return lsm })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "sessmesh",
			Subsystem: "badger",
			Name:      "value_log_size_bytes",
			Help:      "Badger value log size in bytes",
		}, size(func(_, vlog int64) int64 { return vlog })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "sessmesh",
			Subsystem: "badger",
			Name:      "last_gc_timestamp_seconds",
			Help:      "Unix timestamp of the last Badger GC run",
		}, func() float64 { return float64(s.lastGCTime.Load()) / 1000.0 }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "sessmesh",
			Subsystem: "badger",
			Name:      "gc_runs_total",
			Help:      "Completed Badger value log GC runs",
		}, func() float64 { return float64(s.gcRuns.Load()) }),
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) gcLoop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			if _, err := s.GC(ctx); err != nil {
				s.logger.Error("badger auto gc failed", "error", err)
			}
			cancel()

		case <-s.stopCh:
			return
		}
	}
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
