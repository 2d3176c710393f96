package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is an append-only entry in a session's log. Chronological
// creation order is the canonical order; rows are never resequenced.
type ChatMessage struct {
	Id            uuid.UUID
	ChatSessionId uuid.UUID
	UserId        uuid.UUID
	Role          string
	Chat          string
	CreatedAt     time.Time
	IsEdited      bool
	EditedAt      *time.Time
}
