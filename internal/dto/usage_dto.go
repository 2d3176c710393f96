package dto

import (
	"time"

	"github.com/google/uuid"
)

// RecordUsageParams describes one resolved provider call for metering.
type RecordUsageParams struct {
	UserId           uuid.UUID
	ChatSessionId    *uuid.UUID
	Model            string
	Prompt           string
	Response         string
	PromptTokens     int
	CompletionTokens int
	ProcessingTime   time.Duration
	Success          bool
	ErrorMessage     *string
}

// UsageRecordedMessage is the pubsub payload emitted after a usage row is
// persisted, consumed for event fan-out.
type UsageRecordedMessage struct {
	UserId     uuid.UUID `json:"user_id"`
	Model      string    `json:"model"`
	TokensUsed int       `json:"tokens_used"`
}

type ModelUsageResponse struct {
	Model    string `json:"model"`
	Requests int64  `json:"requests"`
	Tokens   int64  `json:"tokens"`
}

type UsageStatsResponse struct {
	TotalRequests   int64                `json:"total_requests"`
	TodayRequests   int64                `json:"today_requests"`
	TotalTokens     int64                `json:"total_tokens"`
	TodayTokens     int64                `json:"today_tokens"`
	AvgProcessingMs float64              `json:"avg_processing_ms"`
	Models          []ModelUsageResponse `json:"models"`
}
