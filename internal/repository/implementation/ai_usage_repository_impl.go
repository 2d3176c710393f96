package implementation

import (
	"context"
	"time"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/mapper"
	"ai-chat-be/internal/model"
	"ai-chat-be/internal/repository/contract"
	"ai-chat-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AIUsageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.UsageMapper
}

func NewAIUsageRepository(db *gorm.DB) contract.AIUsageRepository {
	return &AIUsageRepositoryImpl{
		db:     db,
		mapper: mapper.NewUsageMapper(),
	}
}

func (r *AIUsageRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *AIUsageRepositoryImpl) Create(ctx context.Context, usage *entity.AIUsage) error {
	m := r.mapper.AIUsageToModel(usage)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*usage = *r.mapper.AIUsageToEntity(m)
	return nil
}

func (r *AIUsageRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AIUsage, error) {
	var models []*model.AIUsage
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.AIUsage, len(models))
	for i, m := range models {
		entities[i] = r.mapper.AIUsageToEntity(m)
	}
	return entities, nil
}

func (r *AIUsageRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.AIUsage{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

type usageTotalsRow struct {
	Requests        int64
	Tokens          int64
	AvgProcessingMs float64
}

func (r *AIUsageRepositoryImpl) Aggregate(ctx context.Context, userId *uuid.UUID) (*entity.AIUsageAggregate, error) {
	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&model.AIUsage{})
		if userId != nil {
			q = q.Where("user_id = ?", *userId)
		}
		return q
	}

	var total usageTotalsRow
	err := base().
		Select("COUNT(*) AS requests, COALESCE(SUM(tokens_used), 0) AS tokens, COALESCE(AVG(processing_time_ms), 0) AS avg_processing_ms").
		Scan(&total).Error
	if err != nil {
		return nil, err
	}

	// "Today" rolls over at local midnight, not the UTC epoch day.
	now := time.Now()
	year, month, day := now.Date()
	startOfDay := specification.CreatedSince{Since: time.Date(year, month, day, 0, 0, 0, 0, now.Location())}

	var today usageTotalsRow
	err = startOfDay.Apply(base()).
		Select("COUNT(*) AS requests, COALESCE(SUM(tokens_used), 0) AS tokens, COALESCE(AVG(processing_time_ms), 0) AS avg_processing_ms").
		Scan(&today).Error
	if err != nil {
		return nil, err
	}

	return &entity.AIUsageAggregate{
		TotalRequests:   total.Requests,
		TodayRequests:   today.Requests,
		TotalTokens:     total.Tokens,
		TodayTokens:     today.Tokens,
		AvgProcessingMs: total.AvgProcessingMs,
	}, nil
}

func (r *AIUsageRepositoryImpl) AggregateByModel(ctx context.Context, userId *uuid.UUID) ([]*entity.AIUsageModelAggregate, error) {
	q := r.db.WithContext(ctx).Model(&model.AIUsage{})
	if userId != nil {
		q = q.Where("user_id = ?", *userId)
	}

	var rows []*entity.AIUsageModelAggregate
	err := q.
		Select("model, COUNT(*) AS requests, COALESCE(SUM(tokens_used), 0) AS tokens").
		Group("model").
		Order("requests DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
