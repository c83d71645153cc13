package memory

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/jobpulse/listing"
	"github.com/teranos/jobpulse/store"
)

func TestSnapshotStoreReadThrough(t *testing.T) {
	ctx := context.Background()
	seed := NewSnapshotStore(nil)
	require.NoError(t, seed.Save(ctx, "a/b", listing.Snapshot{{ID: "1", Term: listing.Season("S")}}))

	s := NewSnapshotStore(seed)
	snap, found, err := s.Load(ctx, "a/b")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Len(t, snap, 1)

	require.NoError(t, s.Save(ctx, "a/b", listing.Snapshot{}))

	snap, found, err = s.Load(ctx, "a/b")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, snap)

	seeded, _, err := seed.Load(ctx, "a/b")
	require.NoError(t, err)
	assert.Len(t, seeded, 1, "writes must not reach the seed store")
}

func TestSnapshotStoreMissing(t *testing.T) {
	snap, found, err := NewSnapshotStore(nil).Load(context.Background(), "none")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, snap)
}

func TestAlertStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewAlertStore()
	slug := listing.AlertSlug("a/b/acme/1")

	require.NoError(t, s.Append(ctx, slug, store.AlertRecord{Handle: "m1", Payload: json.RawMessage(`{}`)}))
	require.NoError(t, s.Append(ctx, slug, store.AlertRecord{Handle: "m2", Payload: json.RawMessage(`{}`)}))

	recs, err := s.History(ctx, slug)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "m1", recs[0].Handle)
	assert.False(t, recs[0].CreatedAt.IsZero())

	slugs, err := s.Slugs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []listing.AlertSlug{slug}, slugs)

	require.NoError(t, s.Clear(ctx, slug))
	require.NoError(t, s.Clear(ctx, slug), "clear is idempotent")

	recs, err = s.History(ctx, slug)
	require.NoError(t, err)
	assert.Empty(t, recs)
}
