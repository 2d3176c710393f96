package websocket

import (
	"context"
	"strings"
	"time"

	"ai-chat-be/internal/constant"
	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/pkg/apperrors"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/service"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// TurnService is the slice of the chat service the coordinator drives.
type TurnService interface {
	AuthorizeSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error
	BeginTurn(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*service.Turn, error)
	ResolveTurn(ctx context.Context, turn *service.Turn) (*service.TurnResult, error)
	CommitAssistantMessage(ctx context.Context, turn *service.Turn, text string) (*dto.ChatMessageResponse, error)
}

// Emitter abstracts delivery so the protocol can be tested without sockets.
type Emitter interface {
	// EmitSession delivers to every member of the session group.
	EmitSession(sessionId uuid.UUID, data []byte)

	// EmitClient delivers to the requesting connection only.
	EmitClient(data []byte)
}

// StreamCoordinator runs the turn protocol over a session group:
// messageReceived, typingStart, streamStart, word chunks, then
// streamComplete or streamError. typingStop closes the exchange on
// every path.
type StreamCoordinator struct {
	turns  TurnService
	logger logger.ILogger

	// Active stream registry: stream id -> session id. Entries expire in
	// case a stream goroutine dies without cleaning up.
	streams *gocache.Cache

	chunkDelay time.Duration
}

func NewStreamCoordinator(turns TurnService, log logger.ILogger) *StreamCoordinator {
	return &StreamCoordinator{
		turns:      turns,
		logger:     log,
		streams:    gocache.New(5*time.Minute, 10*time.Minute),
		chunkDelay: 30 * time.Millisecond,
	}
}

// ActiveStreams returns the number of streams currently in flight.
func (sc *StreamCoordinator) ActiveStreams() int {
	return sc.streams.ItemCount()
}

// HandleSendMessage executes one full streamed turn.
func (sc *StreamCoordinator) HandleSendMessage(ctx context.Context, userId uuid.UUID, payload *SendMessagePayload, em Emitter) {
	if payload.ChatSessionId == uuid.Nil {
		em.EmitClient(NewEnvelope(EventError, ErrorPayload{Message: constant.MsgInvalidSessionId}))
		return
	}
	if strings.TrimSpace(payload.Chat) == "" {
		em.EmitClient(NewEnvelope(EventError, ErrorPayload{Message: constant.MsgEmptyMessage}))
		return
	}

	turn, err := sc.turns.BeginTurn(ctx, userId, &dto.SendChatRequest{
		ChatSessionId: payload.ChatSessionId,
		Chat:          payload.Chat,
	})
	if err != nil {
		em.EmitClient(NewEnvelope(EventError, ErrorPayload{Message: apperrors.UserMessage(err)}))
		return
	}

	sessionId := turn.Session.Id

	em.EmitSession(sessionId, NewEnvelope(EventMessageReceived, MessageReceivedPayload{
		ChatSessionId: sessionId,
		Message: &dto.ChatMessageResponse{
			Id:        turn.UserMessage.Id,
			Role:      turn.UserMessage.Role,
			Chat:      turn.UserMessage.Chat,
			CreatedAt: turn.UserMessage.CreatedAt,
		},
	}))

	em.EmitSession(sessionId, NewEnvelope(EventTypingStart, TypingPayload{ChatSessionId: sessionId}))
	// The typing indicator must clear no matter how the turn ends.
	defer em.EmitSession(sessionId, NewEnvelope(EventTypingStop, TypingPayload{ChatSessionId: sessionId}))

	streamId := uuid.New()
	sc.streams.Set(streamId.String(), sessionId, gocache.DefaultExpiration)
	defer sc.streams.Delete(streamId.String())

	em.EmitSession(sessionId, NewEnvelope(EventStreamStart, StreamStartPayload{
		StreamId:      streamId,
		ChatSessionId: sessionId,
	}))

	result, err := sc.turns.ResolveTurn(ctx, turn)
	if err != nil {
		sc.logger.Warn("StreamCoordinator", "Turn resolution failed", map[string]interface{}{
			"session_id": sessionId,
			"stream_id":  streamId,
			"error":      err.Error(),
		})
		em.EmitSession(sessionId, NewEnvelope(EventStreamError, StreamErrorPayload{
			StreamId:      streamId,
			ChatSessionId: sessionId,
			Message:       apperrors.UserMessage(err),
		}))
		return
	}

	for i, chunk := range SplitChunks(result.Text, constant.StreamChunkWords) {
		em.EmitSession(sessionId, NewEnvelope(EventChunk, ChunkPayload{
			StreamId: streamId,
			Index:    i,
			Text:     chunk,
		}))
		if sc.chunkDelay > 0 {
			time.Sleep(sc.chunkDelay)
		}
	}

	reply, err := sc.turns.CommitAssistantMessage(ctx, turn, result.Text)
	if err != nil {
		sc.logger.Error("StreamCoordinator", "Failed to persist assistant message", map[string]interface{}{
			"session_id": sessionId,
			"stream_id":  streamId,
			"error":      err.Error(),
		})
		em.EmitSession(sessionId, NewEnvelope(EventStreamError, StreamErrorPayload{
			StreamId:      streamId,
			ChatSessionId: sessionId,
			Message:       apperrors.UserMessage(err),
		}))
		return
	}

	em.EmitSession(sessionId, NewEnvelope(EventStreamComplete, StreamCompletePayload{
		StreamId:         streamId,
		ChatSessionId:    sessionId,
		Message:          reply,
		TokensUsed:       result.TokensUsed,
		ProcessingTimeMs: result.ProcessingTimeMs,
	}))
}

// Authorize checks session ownership for join requests.
func (sc *StreamCoordinator) Authorize(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error {
	return sc.turns.AuthorizeSession(ctx, userId, sessionId)
}
