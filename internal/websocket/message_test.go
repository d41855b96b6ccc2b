package websocket

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRoundTrip(t *testing.T) {
	msg := NewMessage(MessageTypeSubscribe, SubscribePayload{PhotoIDs: []string{"p1", "p2"}})

	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded Message
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, MessageTypeSubscribe, decoded.Type)

	var payload SubscribePayload
	require.NoError(t, decoded.ParsePayload(&payload))
	assert.Equal(t, []string{"p1", "p2"}, payload.PhotoIDs)
}

func TestParsePayloadEmptyIsNoOp(t *testing.T) {
	msg := &Message{Type: MessageTypePing}

	var payload ReactPayload
	require.NoError(t, msg.ParsePayload(&payload))
	assert.Empty(t, payload.PhotoID)
}

func TestNewErrorMessage(t *testing.T) {
	msg := NewErrorMessage("invalid_json", "Failed to parse message")
	assert.Equal(t, MessageTypeError, msg.Type)

	var payload ErrorPayload
	require.NoError(t, msg.ParsePayload(&payload))
	assert.Equal(t, "invalid_json", payload.Code)
	assert.Equal(t, "Failed to parse message", payload.Message)
}
