package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateSessionRequest struct {
	Title       string  `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

type CreateSessionResponse struct {
	Id uuid.UUID `json:"id"`
}

type SessionResponse struct {
	Id          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

type ChatMessageResponse struct {
	Id        uuid.UUID  `json:"id"`
	Role      string     `json:"role"`
	Chat      string     `json:"chat"`
	CreatedAt time.Time  `json:"created_at"`
	IsEdited  bool       `json:"is_edited,omitempty"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
}

type SendChatRequest struct {
	ChatSessionId uuid.UUID `json:"chat_session_id" validate:"required"`
	Chat          string    `json:"chat" validate:"required"`
}

// SendChatResponse carries the persisted user message even when the AI call
// failed: the user's own message is never lost to a provider failure.
type SendChatResponse struct {
	ChatSessionId    uuid.UUID            `json:"chat_session_id"`
	Sent             *ChatMessageResponse `json:"sent"`
	Reply            *ChatMessageResponse `json:"reply,omitempty"`
	TokensUsed       int                  `json:"tokens_used,omitempty"`
	ProcessingTimeMs int64                `json:"processing_time_ms,omitempty"`
	Error            string               `json:"error,omitempty"`
}

type EditMessageRequest struct {
	Chat string `json:"chat" validate:"required"`
}
