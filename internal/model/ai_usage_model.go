package model

import (
	"time"

	"github.com/google/uuid"
)

type AIUsage struct {
	Id               uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId           uuid.UUID  `gorm:"type:uuid;not null;index"`
	ChatSessionId    *uuid.UUID `gorm:"type:uuid;index"` // weak reference, survives session deletion
	Model            string     `gorm:"type:varchar(64);not null"`
	Prompt           string     `gorm:"type:text;not null"`
	Response         string     `gorm:"type:text;not null;default:''"`
	PromptTokens     int        `gorm:"not null;default:0"`
	CompletionTokens int        `gorm:"not null;default:0"`
	TokensUsed       int        `gorm:"not null;default:0"`
	ProcessingTimeMs int64      `gorm:"not null;default:0"`
	Success          bool       `gorm:"not null;default:false"`
	ErrorMessage     *string    `gorm:"type:text"`
	CreatedAt        time.Time  `gorm:"autoCreateTime;index"`
}

func (AIUsage) TableName() string {
	return "ai_usages"
}
