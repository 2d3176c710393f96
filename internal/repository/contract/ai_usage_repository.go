package contract

import (
	"context"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type AIUsageRepository interface {
	Create(ctx context.Context, usage *entity.AIUsage) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AIUsage, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// Aggregate computes request/token totals and the average processing time.
	// A nil userId aggregates system-wide.
	Aggregate(ctx context.Context, userId *uuid.UUID) (*entity.AIUsageAggregate, error)

	// AggregateByModel breaks recorded usage down per model identifier.
	AggregateByModel(ctx context.Context, userId *uuid.UUID) ([]*entity.AIUsageModelAggregate, error)
}
