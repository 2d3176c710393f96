package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"ai-chat-be/internal/constant"
	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/apperrors"
	"ai-chat-be/internal/service"

	"github.com/google/uuid"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

type fakeTurnService struct {
	beginErr   error
	resolveErr error
	commitErr  error
	replyText  string
}

func (f *fakeTurnService) AuthorizeSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error {
	return nil
}

func (f *fakeTurnService) BeginTurn(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*service.Turn, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	return &service.Turn{
		Session: &entity.ChatSession{
			Id:       request.ChatSessionId,
			UserId:   userId,
			IsActive: true,
		},
		UserMessage: &entity.ChatMessage{
			Id:            uuid.New(),
			ChatSessionId: request.ChatSessionId,
			UserId:        userId,
			Role:          constant.ChatMessageRoleUser,
			Chat:          request.Chat,
			CreatedAt:     time.Now(),
		},
	}, nil
}

func (f *fakeTurnService) ResolveTurn(ctx context.Context, turn *service.Turn) (*service.TurnResult, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return &service.TurnResult{
		Text:             f.replyText,
		TokensUsed:       42,
		ProcessingTimeMs: 120,
	}, nil
}

func (f *fakeTurnService) CommitAssistantMessage(ctx context.Context, turn *service.Turn, text string) (*dto.ChatMessageResponse, error) {
	if f.commitErr != nil {
		return nil, f.commitErr
	}
	return &dto.ChatMessageResponse{
		Id:        uuid.New(),
		Role:      constant.ChatMessageRoleAssistant,
		Chat:      text,
		CreatedAt: time.Now(),
	}, nil
}

type recordedEvent struct {
	target string // "session" or "client"
	event  string
	data   json.RawMessage
}

type recordingEmitter struct {
	events []recordedEvent
}

func (r *recordingEmitter) record(target string, data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		panic(err)
	}
	r.events = append(r.events, recordedEvent{target: target, event: env.Event, data: env.Data})
}

func (r *recordingEmitter) EmitSession(sessionId uuid.UUID, data []byte) { r.record("session", data) }
func (r *recordingEmitter) EmitClient(data []byte)                       { r.record("client", data) }

func (r *recordingEmitter) eventNames() []string {
	names := make([]string, 0, len(r.events))
	for _, e := range r.events {
		names = append(names, e.event)
	}
	return names
}

func newTestCoordinator(turns TurnService) *StreamCoordinator {
	sc := NewStreamCoordinator(turns, nopLogger{})
	sc.chunkDelay = 0
	return sc
}

func assertSequence(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("event sequence = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event[%d] = %s, want %s (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestHandleSendMessageSuccess(t *testing.T) {
	turns := &fakeTurnService{replyText: "one two three four five"}
	sc := newTestCoordinator(turns)
	em := &recordingEmitter{}

	sc.HandleSendMessage(context.Background(), uuid.New(), &SendMessagePayload{
		ChatSessionId: uuid.New(),
		Chat:          "hello",
	}, em)

	assertSequence(t, em.eventNames(), []string{
		EventMessageReceived,
		EventTypingStart,
		EventStreamStart,
		EventChunk, // "one two three"
		EventChunk, // "four five"
		EventStreamComplete,
		EventTypingStop,
	})

	// Chunks reference the stream announced by streamStart.
	var start StreamStartPayload
	if err := json.Unmarshal(em.events[2].data, &start); err != nil {
		t.Fatal(err)
	}
	var first ChunkPayload
	if err := json.Unmarshal(em.events[3].data, &first); err != nil {
		t.Fatal(err)
	}
	if first.StreamId != start.StreamId {
		t.Errorf("chunk stream id = %s, want %s", first.StreamId, start.StreamId)
	}
	if first.Index != 0 || first.Text != "one two three" {
		t.Errorf("first chunk = %+v", first)
	}

	var complete StreamCompletePayload
	if err := json.Unmarshal(em.events[5].data, &complete); err != nil {
		t.Fatal(err)
	}
	if complete.StreamId != start.StreamId {
		t.Errorf("complete stream id = %s, want %s", complete.StreamId, start.StreamId)
	}
	if complete.Message == nil || complete.Message.Chat != "one two three four five" {
		t.Errorf("complete message = %+v", complete.Message)
	}
	if complete.TokensUsed != 42 {
		t.Errorf("tokens used = %d, want 42", complete.TokensUsed)
	}

	if sc.ActiveStreams() != 0 {
		t.Errorf("active streams = %d, want 0", sc.ActiveStreams())
	}
}

func TestHandleSendMessageResolveFailure(t *testing.T) {
	turns := &fakeTurnService{
		resolveErr: apperrors.E(apperrors.CodeUnavailable, "test", constant.MsgAIUnavailable, nil),
	}
	sc := newTestCoordinator(turns)
	em := &recordingEmitter{}

	sc.HandleSendMessage(context.Background(), uuid.New(), &SendMessagePayload{
		ChatSessionId: uuid.New(),
		Chat:          "hello",
	}, em)

	// The user message still reached the group and the typing indicator
	// cleared after the failure.
	assertSequence(t, em.eventNames(), []string{
		EventMessageReceived,
		EventTypingStart,
		EventStreamStart,
		EventStreamError,
		EventTypingStop,
	})

	var streamErr StreamErrorPayload
	if err := json.Unmarshal(em.events[3].data, &streamErr); err != nil {
		t.Fatal(err)
	}
	if streamErr.Message != constant.MsgAIUnavailable {
		t.Errorf("stream error message = %q", streamErr.Message)
	}
}

func TestHandleSendMessageCommitFailure(t *testing.T) {
	turns := &fakeTurnService{
		replyText: "short reply",
		commitErr: apperrors.E(apperrors.CodeInternal, "test", "internal server error", nil),
	}
	sc := newTestCoordinator(turns)
	em := &recordingEmitter{}

	sc.HandleSendMessage(context.Background(), uuid.New(), &SendMessagePayload{
		ChatSessionId: uuid.New(),
		Chat:          "hello",
	}, em)

	assertSequence(t, em.eventNames(), []string{
		EventMessageReceived,
		EventTypingStart,
		EventStreamStart,
		EventChunk,
		EventStreamError,
		EventTypingStop,
	})
}

func TestHandleSendMessageBeginFailure(t *testing.T) {
	turns := &fakeTurnService{
		beginErr: apperrors.E(apperrors.CodeNotFound, "test", constant.MsgSessionNotFound, nil),
	}
	sc := newTestCoordinator(turns)
	em := &recordingEmitter{}

	sc.HandleSendMessage(context.Background(), uuid.New(), &SendMessagePayload{
		ChatSessionId: uuid.New(),
		Chat:          "hello",
	}, em)

	// Nothing reaches the group when the turn never started.
	assertSequence(t, em.eventNames(), []string{EventError})
	if em.events[0].target != "client" {
		t.Errorf("error target = %s, want client", em.events[0].target)
	}
}

func TestHandleSendMessageValidation(t *testing.T) {
	tests := []struct {
		name    string
		payload SendMessagePayload
		wantMsg string
	}{
		{
			name:    "missing session id",
			payload: SendMessagePayload{Chat: "hello"},
			wantMsg: constant.MsgInvalidSessionId,
		},
		{
			name:    "blank chat",
			payload: SendMessagePayload{ChatSessionId: uuid.New(), Chat: "   "},
			wantMsg: constant.MsgEmptyMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := newTestCoordinator(&fakeTurnService{replyText: "x"})
			em := &recordingEmitter{}

			sc.HandleSendMessage(context.Background(), uuid.New(), &tt.payload, em)

			assertSequence(t, em.eventNames(), []string{EventError})
			var ep ErrorPayload
			if err := json.Unmarshal(em.events[0].data, &ep); err != nil {
				t.Fatal(err)
			}
			if ep.Message != tt.wantMsg {
				t.Errorf("error message = %q, want %q", ep.Message, tt.wantMsg)
			}
		})
	}
}
