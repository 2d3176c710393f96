package mapper

import (
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/model"
)

type UsageMapper struct{}

func NewUsageMapper() *UsageMapper {
	return &UsageMapper{}
}

func (m *UsageMapper) AIUsageToEntity(u *model.AIUsage) *entity.AIUsage {
	if u == nil {
		return nil
	}

	return &entity.AIUsage{
		Id:               u.Id,
		UserId:           u.UserId,
		ChatSessionId:    u.ChatSessionId,
		Model:            u.Model,
		Prompt:           u.Prompt,
		Response:         u.Response,
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TokensUsed:       u.TokensUsed,
		ProcessingTimeMs: u.ProcessingTimeMs,
		Success:          u.Success,
		ErrorMessage:     u.ErrorMessage,
		CreatedAt:        u.CreatedAt,
	}
}

func (m *UsageMapper) AIUsageToModel(u *entity.AIUsage) *model.AIUsage {
	if u == nil {
		return nil
	}

	return &model.AIUsage{
		Id:               u.Id,
		UserId:           u.UserId,
		ChatSessionId:    u.ChatSessionId,
		Model:            u.Model,
		Prompt:           u.Prompt,
		Response:         u.Response,
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TokensUsed:       u.TokensUsed,
		ProcessingTimeMs: u.ProcessingTimeMs,
		Success:          u.Success,
		ErrorMessage:     u.ErrorMessage,
		CreatedAt:        u.CreatedAt,
	}
}
