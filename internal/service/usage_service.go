package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ai-chat-be/internal/constant"
	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type IUsageService interface {
	// Record persists exactly one usage row for one logical provider call,
	// success or failure alike.
	Record(ctx context.Context, params *dto.RecordUsageParams) error

	// GetStats projects aggregates straight off the stored rows. No caching:
	// every read reflects the latest recorded data. A nil userId reads the
	// system-wide view.
	GetStats(ctx context.Context, userId *uuid.UUID) (*dto.UsageStatsResponse, error)
}

type usageService struct {
	uowFactory       unitofwork.RepositoryFactory
	publisherService IPublisherService
}

func NewUsageService(
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
) IUsageService {
	return &usageService{
		uowFactory:       uowFactory,
		publisherService: publisherService,
	}
}

func (us *usageService) Record(ctx context.Context, params *dto.RecordUsageParams) error {
	uow := us.uowFactory.NewUnitOfWork(ctx)

	prompt := params.Prompt
	if len(prompt) > constant.UsagePromptMaxLen {
		prompt = prompt[:constant.UsagePromptMaxLen]
	}

	usage := entity.AIUsage{
		Id:               uuid.New(),
		UserId:           params.UserId,
		ChatSessionId:    params.ChatSessionId,
		Model:            params.Model,
		Prompt:           prompt,
		Response:         params.Response,
		PromptTokens:     params.PromptTokens,
		CompletionTokens: params.CompletionTokens,
		TokensUsed:       params.PromptTokens + params.CompletionTokens,
		ProcessingTimeMs: params.ProcessingTime.Milliseconds(),
		Success:          params.Success,
		ErrorMessage:     params.ErrorMessage,
		CreatedAt:        time.Now(),
	}

	if err := uow.AIUsageRepository().Create(ctx, &usage); err != nil {
		return err
	}

	// Downstream consumers fan the event out to the cluster bus.
	// The row is already committed, a publish failure must not undo it.
	msgPayload := dto.UsageRecordedMessage{
		UserId:     usage.UserId,
		Model:      usage.Model,
		TokensUsed: usage.TokensUsed,
	}
	msgJson, err := json.Marshal(msgPayload)
	if err != nil {
		return nil
	}
	if err := us.publisherService.Publish(ctx, msgJson); err != nil {
		fmt.Printf("[WARN] Failed to publish usage recorded message: %v\n", err)
	}

	return nil
}

func (us *usageService) GetStats(ctx context.Context, userId *uuid.UUID) (*dto.UsageStatsResponse, error) {
	uow := us.uowFactory.NewUnitOfWork(ctx)

	agg, err := uow.AIUsageRepository().Aggregate(ctx, userId)
	if err != nil {
		return nil, err
	}

	modelAggs, err := uow.AIUsageRepository().AggregateByModel(ctx, userId)
	if err != nil {
		return nil, err
	}

	models := make([]dto.ModelUsageResponse, 0, len(modelAggs))
	for _, m := range modelAggs {
		models = append(models, dto.ModelUsageResponse{
			Model:    m.Model,
			Requests: m.Requests,
			Tokens:   m.Tokens,
		})
	}

	return &dto.UsageStatsResponse{
		TotalRequests:   agg.TotalRequests,
		TodayRequests:   agg.TodayRequests,
		TotalTokens:     agg.TotalTokens,
		TodayTokens:     agg.TodayTokens,
		AvgProcessingMs: agg.AvgProcessingMs,
		Models:          models,
	}, nil
}
