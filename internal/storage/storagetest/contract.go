// Package storagetest provides a contract suite for storage.Collection
// implementations.
package storagetest

import (
	"context"
	"crypto/rand"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/sessmesh/internal/core/domain"
	"github.com/yndnr/sessmesh/internal/storage"
)

// Factory returns a fresh, empty collection. It is called once per subtest.
type Factory func(t *testing.T) storage.Collection

// NewID returns a unique record id.
func NewID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// at returns a millisecond-precision UTC time, the precision every backend keeps.
func at(d time.Duration) time.Time {
	return time.Now().Add(d).UTC().Truncate(time.Millisecond)
}

// RunCollectionContract verifies that a Collection adheres to the interface contract.
func RunCollectionContract(t *testing.T, newCollection Factory) {
	ctx := context.Background()

	t.Run("FindOne Missing", func(t *testing.T) {
		c := newCollection(t)
		rec, err := c.FindOne(ctx, NewID(), time.Now())
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("Upsert Insert Then Replace", func(t *testing.T) {
		c := newCollection(t)
		id := NewID()
		exp := at(time.Hour)

		inserted, err := c.Upsert(ctx, &domain.Record{ID: id, Session: `{"foo":"bar"}`, Expires: &exp}, storage.WriteOptions{})
		require.NoError(t, err)
		assert.True(t, inserted, "first upsert should insert")

		inserted, err = c.Upsert(ctx, &domain.Record{ID: id, Session: `{"foo":"baz"}`, Expires: &exp}, storage.WriteOptions{})
		require.NoError(t, err)
		assert.False(t, inserted, "second upsert should replace")

		rec, err := c.FindOne(ctx, id, time.Now())
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, id, rec.ID)
		assert.Equal(t, `{"foo":"baz"}`, rec.Session)
		require.NotNil(t, rec.Expires)
		assert.True(t, exp.Equal(*rec.Expires), "expires = %v, want %v", rec.Expires, exp)
		assert.Nil(t, rec.LastModified)

		n, err := c.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("Structured Payload", func(t *testing.T) {
		c := newCollection(t)
		id := NewID()
		exp := at(time.Hour)
		payload := map[string]any{
			"foo":    "bar",
			"n":      1.5,
			"ok":     true,
			"nested": map[string]any{"a": "b"},
			"list":   []any{"x", "y"},
		}

		_, err := c.Upsert(ctx, &domain.Record{ID: id, Session: payload, Expires: &exp}, storage.WriteOptions{})
		require.NoError(t, err)

		rec, err := c.FindOne(ctx, id, time.Now())
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, payload, rec.Session)
	})

	t.Run("Expired Records Are Hidden But Counted", func(t *testing.T) {
		c := newCollection(t)
		live, dead := NewID(), NewID()
		future, past := at(time.Hour), at(-time.Hour)

		_, err := c.Upsert(ctx, &domain.Record{ID: live, Session: "live", Expires: &future}, storage.WriteOptions{})
		require.NoError(t, err)
		_, err = c.Upsert(ctx, &domain.Record{ID: dead, Session: "dead", Expires: &past}, storage.WriteOptions{})
		require.NoError(t, err)

		rec, err := c.FindOne(ctx, dead, time.Now())
		require.NoError(t, err)
		assert.Nil(t, rec, "expired record must read as missing")

		recs, err := c.Find(ctx, time.Now())
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, live, recs[0].ID)

		n, err := c.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n, "count is a raw record count")
	})

	t.Run("UpdateExpiry", func(t *testing.T) {
		c := newCollection(t)
		id := NewID()
		exp := at(time.Minute)

		matched, err := c.UpdateExpiry(ctx, NewID(), exp, nil, storage.WriteOptions{})
		require.NoError(t, err)
		assert.False(t, matched, "missing id must not match")

		_, err = c.Upsert(ctx, &domain.Record{ID: id, Session: "payload", Expires: &exp}, storage.WriteOptions{})
		require.NoError(t, err)

		later, touched := at(2*time.Hour), at(0)
		matched, err = c.UpdateExpiry(ctx, id, later, &touched, storage.WriteOptions{})
		require.NoError(t, err)
		assert.True(t, matched)

		rec, err := c.FindOne(ctx, id, time.Now())
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "payload", rec.Session, "touch must not rewrite the payload")
		require.NotNil(t, rec.Expires)
		assert.True(t, later.Equal(*rec.Expires))
		require.NotNil(t, rec.LastModified)
		assert.True(t, touched.Equal(*rec.LastModified))

		// Without lastModified the previous value is kept.
		latest := at(3 * time.Hour)
		matched, err = c.UpdateExpiry(ctx, id, latest, nil, storage.WriteOptions{})
		require.NoError(t, err)
		assert.True(t, matched)
		rec, err = c.FindOne(ctx, id, time.Now())
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.True(t, latest.Equal(*rec.Expires))
		require.NotNil(t, rec.LastModified)
		assert.True(t, touched.Equal(*rec.LastModified))
	})

	t.Run("DeleteOne", func(t *testing.T) {
		c := newCollection(t)
		id := NewID()
		exp := at(time.Hour)

		require.NoError(t, c.DeleteOne(ctx, id, storage.WriteOptions{}), "deleting a missing id succeeds")

		_, err := c.Upsert(ctx, &domain.Record{ID: id, Session: "x", Expires: &exp}, storage.WriteOptions{})
		require.NoError(t, err)
		require.NoError(t, c.DeleteOne(ctx, id, storage.WriteOptions{}))

		rec, err := c.FindOne(ctx, id, time.Now())
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("DeleteExpired", func(t *testing.T) {
		c := newCollection(t)
		future, past := at(time.Hour), at(-time.Hour)
		for i := 0; i < 3; i++ {
			_, err := c.Upsert(ctx, &domain.Record{ID: NewID(), Session: "dead", Expires: &past}, storage.WriteOptions{})
			require.NoError(t, err)
		}
		_, err := c.Upsert(ctx, &domain.Record{ID: NewID(), Session: "live", Expires: &future}, storage.WriteOptions{})
		require.NoError(t, err)
		_, err = c.Upsert(ctx, &domain.Record{ID: NewID(), Session: "forever"}, storage.WriteOptions{})
		require.NoError(t, err)

		_, err = c.DeleteExpired(ctx, time.Now(), storage.BestEffort)
		require.NoError(t, err)

		assert.Eventually(t, func() bool {
			n, err := c.Count(ctx)
			return err == nil && n == 2
		}, 5*time.Second, 20*time.Millisecond, "only unexpired records should remain")
	})

	t.Run("Drop Is Idempotent And Keeps Index", func(t *testing.T) {
		c := newCollection(t)
		require.NoError(t, c.Drop(ctx), "drop on an empty collection succeeds")

		require.NoError(t, c.EnsureExpiryIndex(ctx))
		require.NoError(t, c.EnsureExpiryIndex(ctx), "index creation is idempotent")

		exp := at(time.Hour)
		for i := 0; i < 3; i++ {
			_, err := c.Upsert(ctx, &domain.Record{ID: NewID(), Session: "x", Expires: &exp}, storage.WriteOptions{})
			require.NoError(t, err)
		}

		require.NoError(t, c.Drop(ctx))
		require.NoError(t, c.Drop(ctx))
		n, err := c.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)

		require.NoError(t, c.EnsureExpiryIndex(ctx), "index creation after drop succeeds")
	})

	t.Run("Native Expiry Still Serves Live Records", func(t *testing.T) {
		c := newCollection(t)
		require.NoError(t, c.EnsureExpiryIndex(ctx))

		id := NewID()
		exp := at(time.Hour)
		_, err := c.Upsert(ctx, &domain.Record{ID: id, Session: "x", Expires: &exp}, storage.WriteOptions{})
		require.NoError(t, err)

		later := at(2 * time.Hour)
		matched, err := c.UpdateExpiry(ctx, id, later, nil, storage.WriteOptions{})
		require.NoError(t, err)
		assert.True(t, matched)

		rec, err := c.FindOne(ctx, id, time.Now())
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.True(t, later.Equal(*rec.Expires))
	})
}
