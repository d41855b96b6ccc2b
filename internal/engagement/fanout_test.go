package engagement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pinlens/backend/internal/pubsub"
)

func collectEvents(t *testing.T, broker *pubsub.MemoryBroker, topic string) *[]pubsub.Event {
	t.Helper()
	var events []pubsub.Event
	unsub, err := broker.Subscribe(topic, func(ev pubsub.Event) {
		events = append(events, ev)
	})
	require.NoError(t, err)
	t.Cleanup(unsub)
	return &events
}

func TestPublishReactionNotifiesOwner(t *testing.T) {
	broker := pubsub.NewMemoryBroker()
	fanout := NewFanout(broker, zap.NewNop())
	events := collectEvents(t, broker, pubsub.UserTopic("owner"))

	fanout.PublishReaction(context.Background(), "p1", "actor", "owner", KindHeart, "Ada", "Sunset at the pier")

	require.Len(t, *events, 1)
	ev := (*events)[0]
	assert.Equal(t, pubsub.EventReaction, ev.Type)
	assert.Equal(t, "p1", ev.PhotoID)
	assert.Equal(t, "heart", ev.Kind)
	assert.Equal(t, "Ada", ev.ActorName)
	assert.Equal(t, "Sunset at the pier", ev.ContentHint)
}

func TestSelfReactionIsNeverPublished(t *testing.T) {
	broker := pubsub.NewMemoryBroker()
	fanout := NewFanout(broker, zap.NewNop())
	events := collectEvents(t, broker, pubsub.UserTopic("owner"))

	fanout.PublishReaction(context.Background(), "p1", "owner", "owner", KindLike, "Ada", "")
	fanout.PublishReaction(context.Background(), "p1", "actor", "", KindLike, "Ada", "")

	assert.Empty(t, *events, "self-reactions and unknown owners produce no notification")
}

func TestPublishInvalidation(t *testing.T) {
	broker := pubsub.NewMemoryBroker()
	fanout := NewFanout(broker, zap.NewNop())
	events := collectEvents(t, broker, pubsub.PhotoTopic("p1"))

	fanout.PublishInvalidation(context.Background(), "p1")

	require.Len(t, *events, 1)
	assert.Equal(t, pubsub.EventInvalidate, (*events)[0].Type)
	assert.Equal(t, "p1", (*events)[0].PhotoID)
}
