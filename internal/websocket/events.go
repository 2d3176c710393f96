package websocket

import (
	"encoding/json"

	"ai-chat-be/internal/dto"

	"github.com/google/uuid"
)

// Client -> server events.
const (
	EventSendMessage  = "sendMessage"
	EventJoinSession  = "joinSession"
	EventLeaveSession = "leaveSession"
	EventPing         = "ping"
)

// Server -> client events.
const (
	EventMessageReceived = "messageReceived"
	EventTypingStart     = "typingStart"
	EventTypingStop      = "typingStop"
	EventStreamStart     = "streamStart"
	EventChunk           = "chunk"
	EventStreamComplete  = "streamComplete"
	EventStreamError     = "streamError"
	EventUserJoined      = "userJoined"
	EventUserLeft        = "userLeft"
	EventPong            = "pong"
	EventError           = "error"
)

// Envelope is the wire format in both directions: an event name plus an
// event-specific payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope serializes an outbound event. Payload types here are all
// marshal-safe, an error means a programming bug, so it collapses to an
// empty-data envelope instead of propagating.
func NewEnvelope(event string, data interface{}) []byte {
	var raw json.RawMessage
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			raw = b
		}
	}
	out, _ := json.Marshal(Envelope{Event: event, Data: raw})
	return out
}

type SendMessagePayload struct {
	ChatSessionId uuid.UUID `json:"chat_session_id"`
	Chat          string    `json:"chat"`
}

type SessionPayload struct {
	ChatSessionId uuid.UUID `json:"chat_session_id"`
}

type MessageReceivedPayload struct {
	ChatSessionId uuid.UUID                `json:"chat_session_id"`
	Message       *dto.ChatMessageResponse `json:"message"`
}

type TypingPayload struct {
	ChatSessionId uuid.UUID `json:"chat_session_id"`
}

type StreamStartPayload struct {
	StreamId      uuid.UUID `json:"stream_id"`
	ChatSessionId uuid.UUID `json:"chat_session_id"`
}

type ChunkPayload struct {
	StreamId uuid.UUID `json:"stream_id"`
	Index    int       `json:"index"`
	Text     string    `json:"text"`
}

type StreamCompletePayload struct {
	StreamId         uuid.UUID                `json:"stream_id"`
	ChatSessionId    uuid.UUID                `json:"chat_session_id"`
	Message          *dto.ChatMessageResponse `json:"message"`
	TokensUsed       int                      `json:"tokens_used"`
	ProcessingTimeMs int64                    `json:"processing_time_ms"`
}

type StreamErrorPayload struct {
	StreamId      uuid.UUID `json:"stream_id"`
	ChatSessionId uuid.UUID `json:"chat_session_id"`
	Message       string    `json:"message"`
}

type PongPayload struct {
	Timestamp int64 `json:"timestamp"`
}

type PresencePayload struct {
	ChatSessionId uuid.UUID `json:"chat_session_id"`
	UserId        uuid.UUID `json:"user_id"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
