package gateway

import (
	"context"
	"strings"
	"time"

	"ai-chat-be/internal/constant"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/pkg/llm"
)

// Result carries the generated reply plus the metering numbers callers
// record against the usage log.
type Result struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	ProcessingTime   time.Duration
}

type Gateway struct {
	provider llm.Provider
	logger   logger.ILogger

	baseBackoff time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewGateway(provider llm.Provider, log logger.ILogger) *Gateway {
	return &Gateway{
		provider:    provider,
		logger:      log,
		baseBackoff: time.Second,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (g *Gateway) Model() string {
	return g.provider.Model()
}

// Generate runs the provider with retries. Unavailable failures back off
// 2^attempt seconds, rate limits 2^(attempt+2) seconds; after the third
// failed attempt the last error is returned as-is. Fatal classifications
// (auth, quota, bad request) never retry.
func (g *Gateway) Generate(ctx context.Context, history []llm.Message, chat string) (*Result, error) {
	prompt := BuildPrompt(history, chat)
	promptTokens := EstimateTokens(prompt)

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= constant.MaxGenerateAttempts; attempt++ {
		text, err := g.provider.Generate(ctx, prompt)
		if err == nil {
			return &Result{
				Text:             text,
				PromptTokens:     promptTokens,
				CompletionTokens: EstimateTokens(text),
				ProcessingTime:   time.Since(start),
			}, nil
		}
		lastErr = err

		kind := llm.KindOf(err)
		if !kind.Retryable() || attempt == constant.MaxGenerateAttempts {
			break
		}

		backoff := g.backoffFor(kind, attempt)
		g.logger.Warn("AIGateway", "generate failed, retrying", map[string]interface{}{
			"kind":    kind.String(),
			"attempt": attempt,
			"backoff": backoff.String(),
			"error":   err.Error(),
		})
		if err := g.sleep(ctx, backoff); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

func (g *Gateway) backoffFor(kind llm.Kind, attempt int) time.Duration {
	if kind == llm.KindRateLimited {
		return g.baseBackoff << (attempt + 2)
	}
	return g.baseBackoff << attempt
}

// BuildPrompt flattens the recent history into a labeled transcript and
// appends the new user turn plus a cue for the model to continue.
func BuildPrompt(history []llm.Message, chat string) string {
	var sb strings.Builder
	for _, msg := range history {
		sb.WriteString(constant.RoleLabel(msg.Role))
		sb.WriteString(": ")
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
	}
	sb.WriteString(constant.RoleLabel(constant.ChatMessageRoleUser))
	sb.WriteString(": ")
	sb.WriteString(chat)
	sb.WriteString("\n")
	sb.WriteString(constant.RoleLabel(constant.ChatMessageRoleAssistant))
	sb.WriteString(":")
	return sb.String()
}

// EstimateTokens approximates the token count of text as ceil(len/4),
// the usual rough bytes-per-token ratio for latin text.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
