package engagement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kindPtr(k ReactionKind) *ReactionKind {
	return &k
}

// snapshotWith builds a snapshot with the given counts and own reaction.
func snapshotWith(counts map[ReactionKind]int64, own *ReactionKind) Snapshot {
	snap := NewSnapshot()
	for k, v := range counts {
		snap.Counts[k] = v
	}
	snap.OwnReaction = own
	return snap
}

func TestBeginMutationSwitchesKind(t *testing.T) {
	cache := NewCache()
	ok := cache.ApplyAuthoritative("p1", snapshotWith(
		map[ReactionKind]int64{KindLike: 3, KindHeart: 1}, kindPtr(KindLike)))
	require.True(t, ok)

	// like -> heart: previous kind decrements, new kind increments
	snap, dispatch, err := cache.BeginMutation("p1", kindPtr(KindHeart))
	require.NoError(t, err)
	assert.True(t, dispatch)
	assert.Equal(t, int64(2), snap.Counts[KindLike])
	assert.Equal(t, int64(2), snap.Counts[KindHeart])
	require.NotNil(t, snap.OwnReaction)
	assert.Equal(t, KindHeart, *snap.OwnReaction)
}

func TestBeginMutationOnUncachedPhoto(t *testing.T) {
	cache := NewCache()

	snap, dispatch, err := cache.BeginMutation("p1", kindPtr(KindWow))
	require.NoError(t, err)
	assert.True(t, dispatch)
	assert.Equal(t, int64(1), snap.Counts[KindWow])
	require.NotNil(t, snap.OwnReaction)
	assert.Equal(t, KindWow, *snap.OwnReaction)
}

func TestBeginMutationSameKindIsNoOp(t *testing.T) {
	cache := NewCache()
	cache.ApplyAuthoritative("p1", snapshotWith(
		map[ReactionKind]int64{KindLike: 5}, kindPtr(KindLike)))

	snap, dispatch, err := cache.BeginMutation("p1", kindPtr(KindLike))
	require.NoError(t, err)
	assert.False(t, dispatch, "re-selecting the current reaction must not dispatch")
	assert.Equal(t, int64(5), snap.Counts[KindLike])
	assert.False(t, cache.HasPending("p1"))
}

func TestRemoveWithoutReactionIsNoOp(t *testing.T) {
	cache := NewCache()
	cache.ApplyAuthoritative("p1", snapshotWith(map[ReactionKind]int64{KindLike: 2}, nil))

	snap, dispatch, err := cache.BeginMutation("p1", nil)
	require.NoError(t, err)
	assert.False(t, dispatch)
	assert.Equal(t, int64(2), snap.Counts[KindLike])
	assert.False(t, cache.HasPending("p1"))
}

func TestBeginMutationRejectsUnknownKind(t *testing.T) {
	cache := NewCache()
	bogus := ReactionKind("sparkle")

	_, _, err := cache.BeginMutation("p1", &bogus)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestSecondMutationRejectedWhilePending(t *testing.T) {
	cache := NewCache()

	_, dispatch, err := cache.BeginMutation("p1", kindPtr(KindLike))
	require.NoError(t, err)
	require.True(t, dispatch)

	_, _, err = cache.BeginMutation("p1", kindPtr(KindHeart))
	assert.ErrorIs(t, err, ErrMutationPending)

	// Other photos are unaffected
	_, dispatch, err = cache.BeginMutation("p2", kindPtr(KindHeart))
	require.NoError(t, err)
	assert.True(t, dispatch)
}

func TestResolveFailureRestoresExactSnapshot(t *testing.T) {
	cache := NewCache()
	before := snapshotWith(
		map[ReactionKind]int64{KindLike: 7, KindHaha: 2}, kindPtr(KindHaha))
	cache.ApplyAuthoritative("p1", before)

	_, dispatch, err := cache.BeginMutation("p1", nil)
	require.NoError(t, err)
	require.True(t, dispatch)

	restored, ok := cache.Resolve("p1", false)
	require.True(t, ok)
	assert.True(t, restored.Equal(before), "rollback must restore the pre-mutation snapshot exactly")
	assert.False(t, cache.HasPending("p1"))
}

func TestResolveSuccessKeepsOptimisticValue(t *testing.T) {
	cache := NewCache()
	cache.ApplyAuthoritative("p1", snapshotWith(map[ReactionKind]int64{KindLike: 1}, nil))

	optimistic, dispatch, err := cache.BeginMutation("p1", kindPtr(KindLike))
	require.NoError(t, err)
	require.True(t, dispatch)

	confirmed, ok := cache.Resolve("p1", true)
	require.True(t, ok)
	assert.True(t, confirmed.Equal(optimistic))
	assert.False(t, cache.HasPending("p1"))
}

func TestAuthoritativeRefusedWhilePending(t *testing.T) {
	cache := NewCache()

	optimistic, _, err := cache.BeginMutation("p1", kindPtr(KindLike))
	require.NoError(t, err)

	stale := snapshotWith(map[ReactionKind]int64{KindLike: 99}, nil)
	assert.False(t, cache.ApplyAuthoritative("p1", stale))
	assert.False(t, cache.Drop("p1"))

	got, ok := cache.Snapshot("p1")
	require.True(t, ok)
	assert.True(t, got.Equal(optimistic), "pending entry must not be overwritten by reconciliation")
}

func TestCountsNeverGoNegative(t *testing.T) {
	cache := NewCache()
	// An inconsistent server snapshot: own reaction set but count zero
	cache.ApplyAuthoritative("p1", snapshotWith(map[ReactionKind]int64{KindLike: 0}, kindPtr(KindLike)))

	snap, dispatch, err := cache.BeginMutation("p1", nil)
	require.NoError(t, err)
	assert.True(t, dispatch)
	assert.Equal(t, int64(0), snap.Counts[KindLike])
	assert.Nil(t, snap.OwnReaction)
}

func TestSnapshotReturnsCopy(t *testing.T) {
	cache := NewCache()
	cache.ApplyAuthoritative("p1", snapshotWith(map[ReactionKind]int64{KindLike: 1}, nil))

	snap, ok := cache.Snapshot("p1")
	require.True(t, ok)
	snap.Counts[KindLike] = 100

	again, _ := cache.Snapshot("p1")
	assert.Equal(t, int64(1), again.Counts[KindLike])
}

func TestResolveWithoutPendingIsNoOp(t *testing.T) {
	cache := NewCache()
	_, ok := cache.Resolve("p1", true)
	assert.False(t, ok)
}
