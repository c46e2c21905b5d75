package mongodb

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/yndnr/sessmesh/internal/core/domain"
	"github.com/yndnr/sessmesh/internal/storage"
	"github.com/yndnr/sessmesh/internal/storage/storagetest"
)

// mongoURL returns the test server URL or skips the test.
func mongoURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("SESSMESH_TEST_MONGO_URL")
	if url == "" {
		t.Skip("SESSMESH_TEST_MONGO_URL not set")
	}
	return url
}

func connectTest(t *testing.T) *Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := Connect(ctx, mongoURL(t), Config{
		Database:   "sessmesh_test",
		Collection: "c" + strings.ToLower(storagetest.NewID()),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx := context.Background()
		_ = s.coll.Drop(ctx)
		_ = s.Close(ctx)
	})
	return s
}

func TestStore_Contract(t *testing.T) {
	mongoURL(t)
	storagetest.RunCollectionContract(t, func(t *testing.T) storage.Collection {
		return connectTest(t)
	})
}

func TestStore_TTLIndex(t *testing.T) {
	ctx := context.Background()
	s := connectTest(t)

	require.NoError(t, s.EnsureExpiryIndex(ctx))
	require.NoError(t, s.EnsureExpiryIndex(ctx))

	cur, err := s.coll.Indexes().List(ctx)
	require.NoError(t, err)
	var indexes []bson.M
	require.NoError(t, cur.All(ctx, &indexes))

	found := false
	for _, idx := range indexes {
		if idx["name"] == "expires_1" {
			found = true
			assert.EqualValues(t, 0, idx["expireAfterSeconds"])
		}
	}
	assert.True(t, found, "ttl index on expires should exist")

	require.NoError(t, s.Drop(ctx))
	cur, err = s.coll.Indexes().List(ctx)
	require.NoError(t, err)
	indexes = nil
	require.NoError(t, cur.All(ctx, &indexes))
	assert.Len(t, indexes, 2, "drop keeps _id and ttl indexes")
}

func TestConnect_InvalidURL(t *testing.T) {
	for _, uri := range []string{"mongodb://[bad", "http://x", "mongodb://"} {
		t.Run(uri, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			_, err := Connect(ctx, uri, Config{})
			assert.ErrorIs(t, err, domain.ErrInvalidConfig)
		})
	}
}

func TestExpiryIndex(t *testing.T) {
	idx := expiryIndex()
	assert.Equal(t, bson.D{{Key: "expires", Value: 1}}, idx.Keys)
	require.NotNil(t, idx.Options.ExpireAfterSeconds)
	assert.Equal(t, int32(0), *idx.Options.ExpireAfterSeconds)
	require.NotNil(t, idx.Options.Background)
	assert.True(t, *idx.Options.Background)
}

func TestWriteConcern(t *testing.T) {
	assert.Nil(t, writeConcern(storage.WriteOptions{}))

	wc := writeConcern(storage.WriteOptions{Majority: true, W: 3, Journal: true, Timeout: time.Second})
	require.NotNil(t, wc)
	assert.Equal(t, "majority", wc.W)
	require.NotNil(t, wc.Journal)
	assert.True(t, *wc.Journal)
	assert.Equal(t, time.Second, wc.WTimeout)

	wc = writeConcern(storage.WriteOptions{W: 2})
	assert.Equal(t, 2, wc.W)

	wc = writeConcern(storage.BestEffort)
	assert.False(t, wc.Acknowledged())
}

func TestNormalize(t *testing.T) {
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	in := primitive.D{
		{Key: "foo", Value: "bar"},
		{Key: "n", Value: int32(7)},
		{Key: "big", Value: int64(9)},
		{Key: "at", Value: primitive.NewDateTimeFromTime(now)},
		{Key: "nested", Value: primitive.M{"list": primitive.A{"x", int32(1)}}},
	}

	got := normalize(in)
	want := map[string]any{
		"foo":    "bar",
		"n":      float64(7),
		"big":    float64(9),
		"at":     now,
		"nested": map[string]any{"list": []any{"x", float64(1)}},
	}
	assert.Equal(t, want, got)
}

func TestDecodePayload(t *testing.T) {
	_, raw, err := bson.MarshalValue("stringified")
	require.NoError(t, err)
	v, err := decodePayload(bson.RawValue{Type: bson.TypeString, Value: raw})
	require.NoError(t, err)
	assert.Equal(t, "stringified", v)

	v, err = decodePayload(bson.RawValue{})
	require.NoError(t, err)
	assert.Nil(t, v)

	typ, raw, err := bson.MarshalValue(bson.D{{Key: "a", Value: true}})
	require.NoError(t, err)
	v, err = decodePayload(bson.RawValue{Type: typ, Value: raw})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": true}, v)
}
