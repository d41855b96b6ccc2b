// Package pubsub abstracts the push-notification transport behind a minimal
// capability interface. Delivery is best-effort everywhere: no ordering, no
// exactly-once. Consumers must tolerate duplicates and missed events.
package pubsub

import (
	"context"
	"time"
)

// Event is the payload carried on engagement topics. Invalidation events set
// only PhotoID; owner notifications carry the actor and content hint too.
type Event struct {
	Type        string    `json:"type"` // "invalidate" or "reaction"
	PhotoID     string    `json:"photo_id"`
	ActorName   string    `json:"actor_name,omitempty"`
	Kind        string    `json:"kind,omitempty"`
	ContentHint string    `json:"content_hint,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Event type values.
const (
	EventInvalidate = "invalidate"
	EventReaction   = "reaction"
)

// Handler processes one delivered event. Handlers must not block.
type Handler func(Event)

// Broker is the minimal pub/sub capability the engagement layer needs.
type Broker interface {
	// Subscribe attaches handler to topic and returns an unsubscribe func.
	Subscribe(topic string, handler Handler) (func(), error)
	// Publish sends event to topic. Best-effort: an error means the event
	// was not handed to the transport, never that delivery failed downstream.
	Publish(ctx context.Context, topic string, event Event) error
}

// PhotoTopic is the invalidation topic for one photo.
func PhotoTopic(photoID string) string {
	return "engagement:photo:" + photoID
}

// UserTopic is the notification topic scoped to one photo owner.
func UserTopic(userID string) string {
	return "engagement:user:" + userID
}
