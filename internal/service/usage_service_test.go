package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"ai-chat-be/internal/constant"
	"ai-chat-be/internal/dto"

	"github.com/google/uuid"
)

func recordUsage(t *testing.T, f *fixture, userId uuid.UUID, promptTokens, completionTokens int) {
	t.Helper()
	err := f.usage.Record(context.Background(), &dto.RecordUsageParams{
		UserId:           userId,
		Model:            "test-model",
		Prompt:           "prompt",
		Response:         "response",
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		ProcessingTime:   50 * time.Millisecond,
		Success:          true,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
}

func TestGetStatsReflectsEveryRecord(t *testing.T) {
	f := newFixture()
	userId := uuid.New()
	ctx := context.Background()

	// Interleave records and reads: each read must see all rows recorded so
	// far, with no stale snapshot surviving a subsequent record.
	for i := 1; i <= 3; i++ {
		recordUsage(t, f, userId, 10, 5)

		stats, err := f.usage.GetStats(ctx, &userId)
		if err != nil {
			t.Fatalf("GetStats after record %d: %v", i, err)
		}
		if stats.TotalRequests != int64(i) {
			t.Errorf("after record %d: TotalRequests = %d, want %d", i, stats.TotalRequests, i)
		}
		if stats.TotalTokens != int64(i*15) {
			t.Errorf("after record %d: TotalTokens = %d, want %d", i, stats.TotalTokens, i*15)
		}
	}
}

func TestGetStatsSystemWideSpansUsers(t *testing.T) {
	f := newFixture()
	alice := uuid.New()
	bob := uuid.New()
	ctx := context.Background()

	recordUsage(t, f, alice, 10, 5)
	recordUsage(t, f, bob, 20, 10)

	mine, err := f.usage.GetStats(ctx, &alice)
	if err != nil {
		t.Fatalf("GetStats(alice): %v", err)
	}
	if mine.TotalRequests != 1 || mine.TotalTokens != 15 {
		t.Errorf("alice stats = %d requests / %d tokens, want 1 / 15", mine.TotalRequests, mine.TotalTokens)
	}

	system, err := f.usage.GetStats(ctx, nil)
	if err != nil {
		t.Fatalf("GetStats(system): %v", err)
	}
	if system.TotalRequests != 2 || system.TotalTokens != 45 {
		t.Errorf("system stats = %d requests / %d tokens, want 2 / 45", system.TotalRequests, system.TotalTokens)
	}
}

func TestRecordCapsPromptLength(t *testing.T) {
	f := newFixture()
	userId := uuid.New()

	err := f.usage.Record(context.Background(), &dto.RecordUsageParams{
		UserId:         userId,
		Model:          "test-model",
		Prompt:         strings.Repeat("x", constant.UsagePromptMaxLen+500),
		ProcessingTime: time.Millisecond,
		Success:        true,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	if got := len(f.store.usages); got != 1 {
		t.Fatalf("usage rows = %d, want 1", got)
	}
	if got := len(f.store.usages[0].Prompt); got != constant.UsagePromptMaxLen {
		t.Errorf("stored prompt length = %d, want %d", got, constant.UsagePromptMaxLen)
	}
}
