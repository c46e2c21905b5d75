package mongodb

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/yndnr/sessmesh/internal/core/domain"
	"github.com/yndnr/sessmesh/internal/storage"
)

const (
	// DefaultCollection is used when no collection name is configured.
	DefaultCollection = "sessions"

	// DefaultDatabase is used when neither the options nor the connection
	// string name a database.
	DefaultDatabase = "test"
)

// Config selects the namespace and client settings.
type Config struct {
	Database   string
	Collection string

	// TLS overrides the TLS configuration derived from the URL.
	TLS *tls.Config

	// AppName is reported to the server.
	AppName string
}

// Store implements storage.Collection on a MongoDB collection.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	owned  bool
}

// Connect dials uri and returns a store owning the client.
func Connect(ctx context.Context, uri string, cfg Config) (*Store, error) {
	if _, err := url.Parse(uri); err != nil {
		return nil, domain.ErrInvalidConfig.WithDetails("mongodb url").WithCause(err)
	}
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, domain.ErrInvalidConfig.WithDetails("mongodb url").WithCause(err)
	}
	if cfg.Database == "" {
		cfg.Database = cs.Database
	}

	opts := options.Client().ApplyURI(uri)
	if cfg.TLS != nil {
		opts.SetTLSConfig(cfg.TLS)
	}
	if cfg.AppName != "" {
		opts.SetAppName(cfg.AppName)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	return NewFromClient(client, cfg.Database, cfg.Collection).TakeOwnership(), nil
}

// NewFromClient creates a store on an existing client. Close leaves the
// client connected unless TakeOwnership is called.
func NewFromClient(client *mongo.Client, database, collection string) *Store {
	if database == "" {
		database = DefaultDatabase
	}
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{
		client: client,
		coll:   client.Database(database).Collection(collection),
	}
}

// TakeOwnership makes Close disconnect the client.
func (s *Store) TakeOwnership() *Store {
	s.owned = true
	return s
}

// NewFromCollection creates a store on an existing collection handle.
func NewFromCollection(coll *mongo.Collection) *Store {
	return &Store{client: coll.Database().Client(), coll: coll}
}

var _ storage.Collection = (*Store)(nil)

// Namespace returns "<database>.<collection>".
func (s *Store) Namespace() string {
	return s.coll.Database().Name() + "." + s.coll.Name()
}

func wrap(op string, err error) error {
	return domain.ErrStorage.WithDetails("mongodb " + op).WithCause(err)
}

// liveFilter matches documents without expiry or expiring after now.
func liveFilter(now time.Time) bson.A {
	return bson.A{
		bson.D{{Key: "expires", Value: bson.D{{Key: "$exists", Value: false}}}},
		bson.D{{Key: "expires", Value: bson.D{{Key: "$gt", Value: now}}}},
	}
}

// writeColl returns the collection with wo applied as its write concern.
func (s *Store) writeColl(wo storage.WriteOptions) *mongo.Collection {
	wc := writeConcern(wo)
	if wc == nil {
		return s.coll
	}
	return s.coll.Database().Collection(s.coll.Name(), options.Collection().SetWriteConcern(wc))
}

func writeConcern(wo storage.WriteOptions) *writeconcern.WriteConcern {
	if wo.IsZero() {
		return nil
	}
	if wo.Unacknowledged {
		return writeconcern.Unacknowledged()
	}
	wc := &writeconcern.WriteConcern{WTimeout: wo.Timeout}
	switch {
	case wo.Majority:
		wc.W = "majority"
	case wo.W > 0:
		wc.W = wo.W
	}
	if wo.Journal {
		j := true
		wc.Journal = &j
	}
	return wc
}

// document mirrors the stored shape with a raw payload.
type document struct {
	ID           string        `bson:"_id"`
	Session      bson.RawValue `bson:"session"`
	Expires      *time.Time    `bson:"expires,omitempty"`
	LastModified *time.Time    `bson:"lastModified,omitempty"`
}

func (d *document) record() (*domain.Record, error) {
	payload, err := decodePayload(d.Session)
	if err != nil {
		return nil, fmt.Errorf("decode session %q: %w", d.ID, err)
	}
	return &domain.Record{
		ID:           d.ID,
		Session:      payload,
		Expires:      utc(d.Expires),
		LastModified: utc(d.LastModified),
	}, nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// decodePayload converts the stored payload into plain Go values: a
// string, or maps, slices, float64, bool, time.Time and nil.
func decodePayload(rv bson.RawValue) (any, error) {
	switch rv.Type {
	case 0, bson.TypeNull, bson.TypeUndefined:
		return nil, nil
	case bson.TypeString:
		return rv.StringValue(), nil
	}
	var v any
	if err := rv.Unmarshal(&v); err != nil {
		return nil, err
	}
	return normalize(v), nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case primitive.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case primitive.M:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	case primitive.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC()
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case primitive.Decimal128:
		return t.String()
	case primitive.ObjectID:
		return t.Hex()
	default:
		return v
	}
}

// FindOne returns the live record with id.
func (s *Store) FindOne(ctx context.Context, id string, now time.Time) (*domain.Record, error) {
	var doc document
	err := s.coll.FindOne(ctx, bson.D{
		{Key: "_id", Value: id},
		{Key: "$or", Value: liveFilter(now)},
	}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("find one", err)
	}
	return doc.record()
}

// Find returns every live record.
func (s *Store) Find(ctx context.Context, now time.Time) ([]*domain.Record, error) {
	cur, err := s.coll.Find(ctx, bson.D{{Key: "$or", Value: liveFilter(now)}})
	if err != nil {
		return nil, wrap("find", err)
	}
	defer cur.Close(ctx)

	var out []*domain.Record
	for cur.Next(ctx) {
		var doc document
		if err := cur.Decode(&doc); err != nil {
			return nil, wrap("decode", err)
		}
		rec, err := doc.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := cur.Err(); err != nil {
		return nil, wrap("find", err)
	}
	return out, nil
}

// Upsert replaces the document with rec.ID, inserting it if missing.
func (s *Store) Upsert(ctx context.Context, rec *domain.Record, wo storage.WriteOptions) (bool, error) {
	res, err := s.writeColl(wo).ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: rec.ID}},
		rec,
		options.Replace().SetUpsert(true),
	)
	if errors.Is(err, mongo.ErrUnacknowledgedWrite) {
		return false, nil
	}
	if err != nil {
		return false, wrap("upsert", err)
	}
	return res.UpsertedCount > 0, nil
}

// UpdateExpiry sets expires, and lastModified when non-nil.
func (s *Store) UpdateExpiry(ctx context.Context, id string, expires time.Time, lastModified *time.Time, wo storage.WriteOptions) (bool, error) {
	set := bson.D{{Key: "expires", Value: expires}}
	if lastModified != nil {
		set = append(set, bson.E{Key: "lastModified", Value: *lastModified})
	}
	res, err := s.writeColl(wo).UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: set}},
	)
	if errors.Is(err, mongo.ErrUnacknowledgedWrite) {
		return true, nil
	}
	if err != nil {
		return false, wrap("update expiry", err)
	}
	return res.MatchedCount > 0, nil
}

// DeleteOne removes the document with id.
func (s *Store) DeleteOne(ctx context.Context, id string, wo storage.WriteOptions) error {
	_, err := s.writeColl(wo).DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil && !errors.Is(err, mongo.ErrUnacknowledgedWrite) {
		return wrap("delete", err)
	}
	return nil
}

// DeleteExpired removes every document whose expiry is before now. With an
// unacknowledged write concern the count is unknown and reported as zero.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time, wo storage.WriteOptions) (int64, error) {
	res, err := s.writeColl(wo).DeleteMany(ctx, bson.D{
		{Key: "expires", Value: bson.D{{Key: "$lte", Value: now}}},
	})
	if errors.Is(err, mongo.ErrUnacknowledgedWrite) {
		return 0, nil
	}
	if err != nil {
		return 0, wrap("delete expired", err)
	}
	return res.DeletedCount, nil
}

// Count returns the number of documents.
func (s *Store) Count(ctx context.Context) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, wrap("count", err)
	}
	return n, nil
}

// Drop deletes every document. Unlike dropping the collection this keeps
// the TTL index, and it succeeds on a missing namespace.
func (s *Store) Drop(ctx context.Context) error {
	if _, err := s.coll.DeleteMany(ctx, bson.D{}); err != nil {
		return wrap("drop", err)
	}
	return nil
}

// EnsureExpiryIndex creates the TTL index on expires in the background.
// Servers from 4.2 on ignore the background flag. Creating an identical
// index again is a no-op on the server.
func (s *Store) EnsureExpiryIndex(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, expiryIndex())
	if err != nil {
		return wrap("create ttl index", err)
	}
	return nil
}

// expiryIndex removes a document as soon as its expires time passes.
func expiryIndex() mongo.IndexModel {
	return mongo.IndexModel{
		Keys:    bson.D{{Key: "expires", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0).SetBackground(true),
	}
}

// Close disconnects the client if the store owns it.
func (s *Store) Close(ctx context.Context) error {
	if !s.owned {
		return nil
	}
	if err := s.client.Disconnect(ctx); err != nil && !errors.Is(err, mongo.ErrClientDisconnected) {
		return wrap("disconnect", err)
	}
	return nil
}
