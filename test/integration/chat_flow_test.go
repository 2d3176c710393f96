package integration

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"ai-chat-be/internal/constant"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/repository/specification"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatPersistenceFlow(t *testing.T) {
	// Load .env from root
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	require.NoError(t, err, "Failed to connect to DB")

	uowFactory := unitofwork.NewRepositoryFactory(gormDB)
	ctx := context.Background()
	uow := uowFactory.NewUnitOfWork(ctx)

	assert.NotNil(t, uow.ChatSessionRepository())
	assert.NotNil(t, uow.ChatMessageRepository())
	assert.NotNil(t, uow.AIUsageRepository())

	sqlDB, _ := gormDB.DB()
	require.NoError(t, sqlDB.Ping())

	userId := uuid.New()
	sessionId := uuid.New()

	t.Run("Create Session With Messages", func(t *testing.T) {
		require.NoError(t, uow.Begin(ctx))
		defer uow.Rollback()

		session := &entity.ChatSession{
			Id:        sessionId,
			UserId:    userId,
			Title:     "Integration session",
			IsActive:  true,
			CreatedAt: time.Now(),
		}
		require.NoError(t, uow.ChatSessionRepository().Create(ctx, session))

		for i, chat := range []string{"first", "second", "third"} {
			msg := &entity.ChatMessage{
				Id:            uuid.New(),
				ChatSessionId: sessionId,
				UserId:        userId,
				Role:          constant.ChatMessageRoleUser,
				Chat:          chat,
				CreatedAt:     time.Now().Add(time.Duration(i) * time.Millisecond),
			}
			require.NoError(t, uow.ChatMessageRepository().Create(ctx, msg))
		}

		require.NoError(t, uow.Commit())
	})

	t.Run("Recent Window Is Ascending", func(t *testing.T) {
		recent, err := uow.ChatMessageRepository().FindRecentBySession(ctx, sessionId, 2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, "second", recent[0].Chat)
		assert.Equal(t, "third", recent[1].Chat)
	})

	t.Run("Ownership Filter", func(t *testing.T) {
		found, err := uow.ChatSessionRepository().FindOne(ctx,
			specification.ByID{ID: sessionId},
			specification.UserOwnedBy{UserID: uuid.New()},
		)
		require.NoError(t, err)
		assert.Nil(t, found, "foreign user must not see the session")
	})

	t.Run("Usage Aggregation", func(t *testing.T) {
		usage := &entity.AIUsage{
			Id:               uuid.New(),
			UserId:           userId,
			ChatSessionId:    &sessionId,
			Model:            "integration-model",
			Prompt:           "p",
			Response:         "r",
			PromptTokens:     8,
			CompletionTokens: 4,
			TokensUsed:       12,
			ProcessingTimeMs: 100,
			Success:          true,
			CreatedAt:        time.Now(),
		}
		require.NoError(t, uow.AIUsageRepository().Create(ctx, usage))

		agg, err := uow.AIUsageRepository().Aggregate(ctx, &userId)
		require.NoError(t, err)
		assert.EqualValues(t, 1, agg.TotalRequests)
		assert.EqualValues(t, 12, agg.TotalTokens)
		// Rows written just now fall after local midnight, whatever the
		// server timezone.
		assert.EqualValues(t, 1, agg.TodayRequests)
		assert.EqualValues(t, 12, agg.TodayTokens)

		models, err := uow.AIUsageRepository().AggregateByModel(ctx, &userId)
		require.NoError(t, err)
		require.Len(t, models, 1)
		assert.Equal(t, "integration-model", models[0].Model)
	})

	// Cleanup
	t.Cleanup(func() {
		_ = uow.ChatMessageRepository().DeleteByChatSessionId(ctx, sessionId)
		_ = uow.ChatSessionRepository().Delete(ctx, sessionId)
		gormDB.Exec("DELETE FROM ai_usages WHERE user_id = ?", userId)
	})
}
