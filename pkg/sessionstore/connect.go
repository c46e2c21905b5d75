package sessionstore

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/yndnr/sessmesh/internal/storage"
	"github.com/yndnr/sessmesh/internal/storage/badger"
	"github.com/yndnr/sessmesh/internal/storage/memory"
	"github.com/yndnr/sessmesh/internal/storage/mongodb"
	"github.com/yndnr/sessmesh/internal/storage/redis"
)

// strategy acquires the collection an engine writes through. Exactly one
// is selected per engine.
type strategy interface {
	name() string
	connect(ctx context.Context, logger *slog.Logger) (storage.Collection, error)
}

func selectStrategy(opts Options) (strategy, error) {
	var found []strategy
	if opts.URL != "" {
		st, err := newURLStrategy(opts)
		if err != nil {
			return nil, err
		}
		found = append(found, st)
	}
	if opts.Client != nil {
		found = append(found, &clientStrategy{client: opts.Client, db: opts.DatabaseName, coll: opts.CollectionName})
	}
	if opts.ClientFunc != nil {
		found = append(found, &pendingClientStrategy{fn: opts.ClientFunc, db: opts.DatabaseName, coll: opts.CollectionName})
	}
	if opts.Collection != nil {
		found = append(found, &collectionStrategy{coll: opts.Collection})
	}

	switch len(found) {
	case 0:
		return nil, invalid("one of URL, Client, ClientFunc or Collection is required")
	case 1:
		return found[0], nil
	default:
		names := make([]string, len(found))
		for i, st := range found {
			names[i] = st.name()
		}
		return nil, invalid("only one connection source may be set, got %s", strings.Join(names, ", "))
	}
}

type backendKind int

const (
	backendMongo backendKind = iota
	backendRedis
	backendBadger
	backendMemory
)

// urlStrategy dials the backend named by the URL scheme.
type urlStrategy struct {
	raw  string
	kind backendKind
	opts Options
}

func newURLStrategy(opts Options) (*urlStrategy, error) {
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, invalid("malformed url: %v", err)
	}

	st := &urlStrategy{raw: opts.URL, opts: opts}
	switch strings.ToLower(u.Scheme) {
	case "mongodb", "mongodb+srv":
		st.kind = backendMongo
	case "redis", "rediss":
		st.kind = backendRedis
	case "badger":
		if u.Path == "" || u.Path == "/" {
			return nil, invalid("badger url needs a directory, as in badger:///var/lib/sessmesh")
		}
		st.kind = backendBadger
	case "memory":
		st.kind = backendMemory
	default:
		return nil, invalid("unsupported url scheme %q", u.Scheme)
	}
	return st, nil
}

func (s *urlStrategy) name() string {
	return "URL"
}

func (s *urlStrategy) collectionName() string {
	if s.opts.CollectionName != "" {
		return s.opts.CollectionName
	}
	return mongodb.DefaultCollection
}

func (s *urlStrategy) connect(ctx context.Context, logger *slog.Logger) (storage.Collection, error) {
	switch s.kind {
	case backendMongo:
		return mongodb.Connect(ctx, s.raw, mongodb.Config{
			Database:   s.opts.DatabaseName,
			Collection: s.opts.CollectionName,
			TLS:        s.opts.TLS,
			AppName:    "sessmesh",
		})
	case backendRedis:
		db := s.opts.DatabaseName
		if db == "" {
			db = "sessmesh"
		}
		return redis.New(ctx, s.raw, s.opts.TLS, redis.WithPrefix(db+":"+s.collectionName()+":"))
	case backendBadger:
		u, err := url.Parse(s.raw)
		if err != nil {
			return nil, err
		}
		cfg := badger.DefaultConfig(u.Path)
		cfg.Collection = s.collectionName()
		return badger.Open(cfg, logger)
	case backendMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown backend %d", s.kind)
	}
}

// clientStrategy uses a pre-built MongoDB client. The engine disconnects
// it on Close.
type clientStrategy struct {
	client *mongo.Client
	db     string
	coll   string
}

func (s *clientStrategy) name() string {
	return "Client"
}

func (s *clientStrategy) connect(ctx context.Context, _ *slog.Logger) (storage.Collection, error) {
	return mongodb.NewFromClient(s.client, s.db, s.coll).TakeOwnership(), nil
}

// pendingClientStrategy waits for a MongoDB client produced elsewhere.
type pendingClientStrategy struct {
	fn   func(ctx context.Context) (*mongo.Client, error)
	db   string
	coll string
}

func (s *pendingClientStrategy) name() string {
	return "ClientFunc"
}

func (s *pendingClientStrategy) connect(ctx context.Context, _ *slog.Logger) (storage.Collection, error) {
	client, err := s.fn(ctx)
	if err != nil {
		return nil, fmt.Errorf("client func: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("client func returned no client")
	}
	return mongodb.NewFromClient(client, s.db, s.coll).TakeOwnership(), nil
}

// collectionStrategy uses an existing collection as is.
type collectionStrategy struct {
	coll storage.Collection
}

func (s *collectionStrategy) name() string {
	return "Collection"
}

func (s *collectionStrategy) connect(context.Context, *slog.Logger) (storage.Collection, error) {
	return s.coll, nil
}
