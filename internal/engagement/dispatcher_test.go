package engagement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apierrors "github.com/pinlens/backend/internal/errors"
)

// slowSender blocks until its context expires.
type slowSender struct{}

func (slowSender) UpsertReaction(ctx context.Context, photoID, userID string, kind ReactionKind) (*MutationResult, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (slowSender) RemoveReaction(ctx context.Context, photoID, userID string) (*MutationResult, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type recordingSender struct {
	upserts int
	removes int
	kind    ReactionKind
}

func (r *recordingSender) UpsertReaction(ctx context.Context, photoID, userID string, kind ReactionKind) (*MutationResult, error) {
	r.upserts++
	r.kind = kind
	return &MutationResult{OwnerID: "owner"}, nil
}

func (r *recordingSender) RemoveReaction(ctx context.Context, photoID, userID string) (*MutationResult, error) {
	r.removes++
	return &MutationResult{OwnerID: "owner"}, nil
}

func TestDispatchRoutesByTarget(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, time.Second, zap.NewNop())

	kind := KindWow
	res, err := d.Dispatch(context.Background(), "p1", "u1", &kind)
	require.NoError(t, err)
	assert.Equal(t, "owner", res.OwnerID)
	assert.Equal(t, KindWow, sender.kind)

	_, err = d.Dispatch(context.Background(), "p1", "u1", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, sender.upserts)
	assert.Equal(t, 1, sender.removes)
}

func TestDispatchTimeoutBecomesAPIError(t *testing.T) {
	d := NewDispatcher(slowSender{}, 10*time.Millisecond, zap.NewNop())

	kind := KindLike
	res, err := d.Dispatch(context.Background(), "p1", "u1", &kind)
	assert.Nil(t, res)
	require.Error(t, err)
	assert.Equal(t, apierrors.ErrTimeout, apierrors.CodeOf(err))
	assert.False(t, errors.Is(err, context.DeadlineExceeded))
}

func TestDispatchZeroTimeoutUsesDefault(t *testing.T) {
	d := NewDispatcher(&recordingSender{}, 0, zap.NewNop())
	assert.Equal(t, DefaultDispatchTimeout, d.timeout)
}
