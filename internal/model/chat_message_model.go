package model

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessage struct {
	Id            uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChatSessionId uuid.UUID  `gorm:"type:uuid;not null;index"`
	UserId        uuid.UUID  `gorm:"type:uuid;not null;index"`
	Role          string     `gorm:"type:varchar(50);not null"`
	Chat          string     `gorm:"type:text;not null"`
	CreatedAt     time.Time  `gorm:"autoCreateTime;index"`
	IsEdited      bool       `gorm:"not null;default:false"`
	EditedAt      *time.Time `gorm:""`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
