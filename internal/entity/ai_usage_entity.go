package entity

import (
	"time"

	"github.com/google/uuid"
)

// AIUsage records exactly one logical provider call, success or failure.
// ChatSessionId is a weak reference: usage rows outlive session deletion.
type AIUsage struct {
	Id               uuid.UUID
	UserId           uuid.UUID
	ChatSessionId    *uuid.UUID
	Model            string
	Prompt           string
	Response         string
	PromptTokens     int
	CompletionTokens int
	TokensUsed       int
	ProcessingTimeMs int64
	Success          bool
	ErrorMessage     *string
	CreatedAt        time.Time
}

// AIUsageAggregate is a read-side projection over recorded usage rows.
type AIUsageAggregate struct {
	TotalRequests   int64
	TodayRequests   int64
	TotalTokens     int64
	TodayTokens     int64
	AvgProcessingMs float64
}

type AIUsageModelAggregate struct {
	Model    string
	Requests int64
	Tokens   int64
}
