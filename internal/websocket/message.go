// Package websocket delivers engagement updates and owner notifications to
// connected devices. Built on github.com/coder/websocket, the context-aware
// WebSocket library.
package websocket

import (
	"encoding/json"
	"time"
)

// Message types exchanged with clients.
const (
	// Client → server
	MessageTypeSubscribe   = "subscribe"
	MessageTypeUnsubscribe = "unsubscribe"
	MessageTypeReact       = "react"
	MessageTypeUnreact     = "unreact"
	MessageTypePing        = "ping"

	// Server → client
	MessageTypeEngagement   = "engagement"
	MessageTypeNotification = "notification"
	MessageTypePong         = "pong"
	MessageTypeError        = "error"
	MessageTypeSystem       = "system"
)

// Message is the wire envelope in both directions.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
}

// NewMessage builds an envelope around payload.
func NewMessage(msgType string, payload interface{}) *Message {
	raw, _ := json.Marshal(payload)
	return &Message{
		Type:      msgType,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	}
}

// ParsePayload decodes the payload into v.
func (m *Message) ParsePayload(v interface{}) error {
	if len(m.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}

// SubscribePayload carries the photo ids a client wants engagement updates
// for (or wants to stop watching).
type SubscribePayload struct {
	PhotoIDs []string `json:"photo_ids"`
}

// ReactPayload carries a reaction change request.
type ReactPayload struct {
	PhotoID string `json:"photo_id"`
	Kind    string `json:"kind,omitempty"`
}

// EngagementPayload pushes one photo's snapshot to the client. Exists is
// false when the photo was deleted and the client should drop it.
type EngagementPayload struct {
	PhotoID  string      `json:"photo_id"`
	Exists   bool        `json:"exists"`
	Snapshot interface{} `json:"snapshot,omitempty"`
}

// NotificationPayload surfaces a fan-out event to the photo owner.
type NotificationPayload struct {
	PhotoID     string    `json:"photo_id"`
	ActorName   string    `json:"actor_name"`
	Kind        string    `json:"kind"`
	ContentHint string    `json:"content_hint,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// ErrorPayload reports a recoverable failure to the client.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	PhotoID string `json:"photo_id,omitempty"`
}

// NewErrorMessage builds an error envelope.
func NewErrorMessage(code, message string) *Message {
	return NewMessage(MessageTypeError, ErrorPayload{Code: code, Message: message})
}
