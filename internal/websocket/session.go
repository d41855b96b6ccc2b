package websocket

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pinlens/backend/internal/engagement"
	"github.com/pinlens/backend/internal/pubsub"
	"go.uber.org/zap"
)

// Session owns the engagement engine for one connected device. Each
// connection is an independent viewer scope: its own optimistic cache,
// invalidation listener, and fallback poller. The session also forwards
// owner-topic fan-out events down the socket as notifications.
type Session struct {
	client  *Client
	service *engagement.Service
	log     *zap.Logger

	mu        sync.Mutex
	watched   map[string]func()
	ownerStop func()
	closed    bool
}

// SessionConfig carries the shared dependencies sessions are built from.
type SessionConfig struct {
	Reader          engagement.BatchReader
	Sender          engagement.MutationSender
	Broker          pubsub.Broker
	PollInterval    time.Duration
	DispatchTimeout time.Duration
	Logger          *zap.Logger
}

// NewSession builds and starts the engagement engine for client.
func NewSession(client *Client, cfg SessionConfig) *Session {
	s := &Session{
		client:  client,
		log:     cfg.Logger,
		watched: make(map[string]func()),
	}

	s.service = engagement.NewService(engagement.Options{
		ViewerID:        client.UserID,
		Reader:          cfg.Reader,
		Sender:          cfg.Sender,
		Broker:          cfg.Broker,
		PollInterval:    cfg.PollInterval,
		DispatchTimeout: cfg.DispatchTimeout,
		Logger:          cfg.Logger,
		OnUpdate:        s.pushSnapshot,
		OnMutationError: s.pushMutationError,
	})
	s.service.Start()

	// Owner notifications: reactions on this user's photos from others.
	if client.UserID != "" {
		stop, err := cfg.Broker.Subscribe(pubsub.UserTopic(client.UserID), s.pushNotification)
		if err != nil {
			cfg.Logger.Warn("Failed to subscribe to owner topic",
				zap.String("user_id", client.UserID),
				zap.Error(err),
			)
		} else {
			s.ownerStop = stop
		}
	}

	return s
}

// Handle processes one client message.
func (s *Session) Handle(message *Message) error {
	switch message.Type {
	case MessageTypeSubscribe:
		var payload SubscribePayload
		if err := message.ParsePayload(&payload); err != nil {
			return fmt.Errorf("invalid subscribe payload: %w", err)
		}
		s.subscribe(payload.PhotoIDs)
		return nil

	case MessageTypeUnsubscribe:
		var payload SubscribePayload
		if err := message.ParsePayload(&payload); err != nil {
			return fmt.Errorf("invalid unsubscribe payload: %w", err)
		}
		s.unsubscribe(payload.PhotoIDs)
		return nil

	case MessageTypeReact:
		var payload ReactPayload
		if err := message.ParsePayload(&payload); err != nil {
			return fmt.Errorf("invalid react payload: %w", err)
		}
		kind, ok := engagement.ParseKind(payload.Kind)
		if !ok {
			return fmt.Errorf("unknown reaction kind: %q", payload.Kind)
		}
		return s.mutate(payload.PhotoID, &kind)

	case MessageTypeUnreact:
		var payload ReactPayload
		if err := message.ParsePayload(&payload); err != nil {
			return fmt.Errorf("invalid unreact payload: %w", err)
		}
		return s.mutate(payload.PhotoID, nil)
	}

	return fmt.Errorf("unknown message type: %s", message.Type)
}

func (s *Session) subscribe(photoIDs []string) {
	ids := engagement.FilterIDs(photoIDs)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for _, id := range ids {
		if _, ok := s.watched[id]; ok {
			continue
		}
		s.watched[id] = s.service.Subscribe([]string{id})
	}
}

func (s *Session) unsubscribe(photoIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range engagement.FilterIDs(photoIDs) {
		if release, ok := s.watched[id]; ok {
			release()
			delete(s.watched, id)
		}
	}
}

func (s *Session) mutate(photoID string, kind *engagement.ReactionKind) error {
	err := s.service.Mutate(context.Background(), photoID, kind)
	if errors.Is(err, engagement.ErrMutationPending) {
		// Recoverable; the client retries once the in-flight change lands.
		return fmt.Errorf("reaction change already in flight for %s", photoID)
	}
	return err
}

// pushSnapshot sends a snapshot update down the socket.
func (s *Session) pushSnapshot(photoID string, snap engagement.Snapshot, exists bool) {
	payload := EngagementPayload{PhotoID: photoID, Exists: exists}
	if exists {
		payload.Snapshot = snap
	}
	_ = s.client.Send(NewMessage(MessageTypeEngagement, payload))
}

// pushMutationError surfaces a rolled-back mutation as a transient error.
func (s *Session) pushMutationError(photoID string, err error) {
	_ = s.client.Send(NewMessage(MessageTypeError, ErrorPayload{
		Code:    "mutation_failed",
		Message: err.Error(),
		PhotoID: photoID,
	}))
}

// pushNotification forwards an owner-topic fan-out event.
func (s *Session) pushNotification(ev pubsub.Event) {
	if ev.Type != pubsub.EventReaction {
		return
	}
	_ = s.client.Send(NewMessage(MessageTypeNotification, NotificationPayload{
		PhotoID:     ev.PhotoID,
		ActorName:   ev.ActorName,
		Kind:        ev.Kind,
		ContentHint: ev.ContentHint,
		Timestamp:   ev.Timestamp,
	}))
}

// Close releases every subscription and stops the engagement engine.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	releases := make([]func(), 0, len(s.watched))
	for id, release := range s.watched {
		releases = append(releases, release)
		delete(s.watched, id)
	}
	ownerStop := s.ownerStop
	s.mu.Unlock()

	for _, release := range releases {
		release()
	}
	if ownerStop != nil {
		ownerStop()
	}
	s.service.Stop()
}
