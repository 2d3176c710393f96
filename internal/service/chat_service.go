// FILE: internal/service/chat_service.go
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ai-chat-be/internal/constant"
	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/apperrors"
	"ai-chat-be/internal/repository/specification"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/pkg/ai/gateway"
	"ai-chat-be/pkg/events"
	"ai-chat-be/pkg/llm"

	"github.com/google/uuid"
)

// AIGateway abstracts the retrying provider front so tests can script replies.
type AIGateway interface {
	Generate(ctx context.Context, history []llm.Message, chat string) (*gateway.Result, error)
	Model() string
}

// EventPublisher fans lifecycle events out to the cluster bus. Satisfied by
// the NATS publisher; nil disables fan-out.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Turn carries the state of an in-flight conversation turn between the three
// phases. The user message inside is already committed and will survive any
// downstream failure.
type Turn struct {
	Session     *entity.ChatSession
	UserMessage *entity.ChatMessage
}

// TurnResult is the resolved provider output for one turn.
type TurnResult struct {
	Text             string
	TokensUsed       int
	ProcessingTimeMs int64
}

type IChatService interface {
	CreateSession(ctx context.Context, userId uuid.UUID, request *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error)
	GetAllSessions(ctx context.Context, userId uuid.UUID, activeOnly bool) ([]*dto.SessionResponse, error)

	// GetChatHistory returns the ordered message log. A limit of 0 returns
	// the whole log; a positive limit pages with the given offset.
	GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, limit, offset int) ([]*dto.ChatMessageResponse, error)

	// SendChat runs a full turn: persist the user message, resolve the AI
	// reply, persist it. A provider failure still returns the sent message.
	SendChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*dto.SendChatResponse, error)

	// AuthorizeSession checks that the session exists and belongs to the user.
	AuthorizeSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error

	// Three-phase variant used by the streaming path.
	BeginTurn(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*Turn, error)
	ResolveTurn(ctx context.Context, turn *Turn) (*TurnResult, error)
	CommitAssistantMessage(ctx context.Context, turn *Turn, text string) (*dto.ChatMessageResponse, error)

	EditMessage(ctx context.Context, userId uuid.UUID, messageId uuid.UUID, request *dto.EditMessageRequest) error
	DeleteMessage(ctx context.Context, userId uuid.UUID, messageId uuid.UUID) error
	DeleteSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error
	DeactivateSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error
}

type chatService struct {
	uowFactory     unitofwork.RepositoryFactory
	aiGateway      AIGateway
	usageService   IUsageService
	eventPublisher EventPublisher
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	aiGateway AIGateway,
	usageService IUsageService,
	eventPublisher EventPublisher,
) IChatService {
	return &chatService{
		uowFactory:     uowFactory,
		aiGateway:      aiGateway,
		usageService:   usageService,
		eventPublisher: eventPublisher,
	}
}

// CreateSession creates a new chat session seeded with the assistant greeting.
func (cs *chatService) CreateSession(ctx context.Context, userId uuid.UUID, request *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	now := time.Now()

	title := constant.DefaultSessionTitle
	var description *string
	if request != nil {
		if t := strings.TrimSpace(request.Title); t != "" {
			title = truncateTitle(t)
		}
		description = request.Description
	}

	chatSession := entity.ChatSession{
		Id:          uuid.New(),
		UserId:      userId,
		Title:       title,
		Description: description,
		IsActive:    true,
		CreatedAt:   now,
	}

	chatMessage := entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: chatSession.Id,
		UserId:        userId,
		Role:          constant.ChatMessageRoleAssistant,
		Chat:          constant.SessionGreeting,
		CreatedAt:     now,
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.ChatSessionRepository().Create(ctx, &chatSession); err != nil {
		return nil, err
	}
	if err := uow.ChatMessageRepository().Create(ctx, &chatMessage); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	// Notification fan-out is auxiliary, a failure must not fail the request
	if cs.eventPublisher != nil {
		evt := events.NewChatSessionCreated(chatSession.Id.String(), userId.String())
		if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
			fmt.Printf("[WARN] Failed to publish CHAT_SESSION_CREATED event: %v\n", err)
		}
	}

	return &dto.CreateSessionResponse{Id: chatSession.Id}, nil
}

// GetAllSessions retrieves the user's sessions, newest first. Deactivated
// sessions stay listed unless the caller filters them out.
func (cs *chatService) GetAllSessions(ctx context.Context, userId uuid.UUID, activeOnly bool) ([]*dto.SessionResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	specs := []specification.Specification{
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	}
	if activeOnly {
		specs = append(specs, specification.ActiveOnly{})
	}

	chatSessions, err := uow.ChatSessionRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.SessionResponse, 0, len(chatSessions))
	for _, s := range chatSessions {
		response = append(response, &dto.SessionResponse{
			Id:          s.Id,
			Title:       s.Title,
			Description: s.Description,
			IsActive:    s.IsActive,
			CreatedAt:   s.CreatedAt,
			UpdatedAt:   s.UpdatedAt,
		})
	}

	return response, nil
}

// GetChatHistory retrieves the ordered message log for a session.
func (cs *chatService) GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, limit, offset int) ([]*dto.ChatMessageResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	if _, err := cs.verifySession(ctx, uow, userId, sessionId, false); err != nil {
		return nil, err
	}

	specs := []specification.Specification{
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: false},
	}
	if limit > 0 {
		specs = append(specs, specification.Pagination{Limit: limit, Offset: offset})
	}

	chatMessages, err := uow.ChatMessageRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	resp := make([]*dto.ChatMessageResponse, 0, len(chatMessages))
	for _, msg := range chatMessages {
		resp = append(resp, toMessageResponse(msg))
	}

	return resp, nil
}

func (cs *chatService) AuthorizeSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	_, err := cs.verifySession(ctx, uow, userId, sessionId, false)
	return err
}

// SendChat is the synchronous path: all three phases back to back.
func (cs *chatService) SendChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	turn, err := cs.BeginTurn(ctx, userId, request)
	if err != nil {
		return nil, err
	}

	response := &dto.SendChatResponse{
		ChatSessionId: turn.Session.Id,
		Sent:          toMessageResponse(turn.UserMessage),
	}

	result, err := cs.ResolveTurn(ctx, turn)
	if err != nil {
		// The user message is committed and stays. Surface the failure in
		// the payload instead of failing the whole request.
		response.Error = apperrors.UserMessage(err)
		return response, nil
	}

	reply, err := cs.CommitAssistantMessage(ctx, turn, result.Text)
	if err != nil {
		return nil, err
	}

	response.Reply = reply
	response.TokensUsed = result.TokensUsed
	response.ProcessingTimeMs = result.ProcessingTimeMs
	return response, nil
}

// BeginTurn validates the session and commits the user message in its own
// transaction. Whatever happens afterwards, this message is never rolled back.
func (cs *chatService) BeginTurn(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*Turn, error) {
	const op = "ChatService.BeginTurn"

	chat := strings.TrimSpace(request.Chat)
	if chat == "" {
		return nil, apperrors.E(apperrors.CodeInvalidArgument, op, constant.MsgEmptyMessage, nil)
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	chatSession, err := cs.verifySession(ctx, uow, userId, request.ChatSessionId, true)
	if err != nil {
		return nil, err
	}

	// First user message of the session names it.
	updateTitle := false
	if chatSession.Title == constant.DefaultSessionTitle {
		userCount, err := uow.ChatMessageRepository().Count(ctx,
			specification.ByChatSessionID{ChatSessionID: chatSession.Id},
			specification.ByRole{Role: constant.ChatMessageRoleUser},
		)
		if err != nil {
			return nil, err
		}
		updateTitle = userCount == 0
	}

	now := time.Now()
	userMessage := entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: chatSession.Id,
		UserId:        userId,
		Role:          constant.ChatMessageRoleUser,
		Chat:          chat,
		CreatedAt:     now,
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.ChatMessageRepository().Create(ctx, &userMessage); err != nil {
		return nil, err
	}

	if updateTitle {
		chatSession.Title = truncateTitle(chat)
		chatSession.UpdatedAt = &now
		if err := uow.ChatSessionRepository().Update(ctx, chatSession); err != nil {
			return nil, err
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	return &Turn{
		Session:     chatSession,
		UserMessage: &userMessage,
	}, nil
}

// ResolveTurn loads the context window, calls the provider and meters the
// call. Exactly one usage row is written whether the call succeeded or not.
func (cs *chatService) ResolveTurn(ctx context.Context, turn *Turn) (*TurnResult, error) {
	const op = "ChatService.ResolveTurn"

	history, err := cs.loadContextWindow(ctx, turn)
	if err != nil {
		return nil, err
	}

	result, genErr := cs.aiGateway.Generate(ctx, history, turn.UserMessage.Chat)

	sessionId := turn.Session.Id
	params := &dto.RecordUsageParams{
		UserId:        turn.Session.UserId,
		ChatSessionId: &sessionId,
		Model:         cs.aiGateway.Model(),
		Prompt:        gateway.BuildPrompt(history, turn.UserMessage.Chat),
	}

	if genErr != nil {
		msg := aiFailureMessage(genErr)
		params.Success = false
		params.ErrorMessage = &msg
		if err := cs.usageService.Record(ctx, params); err != nil {
			fmt.Printf("[WARN] Failed to record usage: %v\n", err)
		}
		cs.publishTurnCompleted(ctx, turn, false)
		return nil, apperrors.E(aiFailureCode(genErr), op, msg, genErr)
	}

	params.Success = true
	params.Response = result.Text
	params.PromptTokens = result.PromptTokens
	params.CompletionTokens = result.CompletionTokens
	params.ProcessingTime = result.ProcessingTime
	if err := cs.usageService.Record(ctx, params); err != nil {
		fmt.Printf("[WARN] Failed to record usage: %v\n", err)
	}

	return &TurnResult{
		Text:             result.Text,
		TokensUsed:       result.PromptTokens + result.CompletionTokens,
		ProcessingTimeMs: result.ProcessingTime.Milliseconds(),
	}, nil
}

// CommitAssistantMessage persists the resolved reply as the assistant turn.
func (cs *chatService) CommitAssistantMessage(ctx context.Context, turn *Turn, text string) (*dto.ChatMessageResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	assistantMessage := entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: turn.Session.Id,
		UserId:        turn.Session.UserId,
		Role:          constant.ChatMessageRoleAssistant,
		Chat:          text,
		CreatedAt:     time.Now(),
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.ChatMessageRepository().Create(ctx, &assistantMessage); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	// Both delivery paths converge here, so the lifecycle event fires for
	// streamed and non-streamed turns alike.
	cs.publishTurnCompleted(ctx, turn, true)

	return toMessageResponse(&assistantMessage), nil
}

// EditMessage rewrites the text of a user-authored message.
func (cs *chatService) EditMessage(ctx context.Context, userId uuid.UUID, messageId uuid.UUID, request *dto.EditMessageRequest) error {
	const op = "ChatService.EditMessage"

	chat := strings.TrimSpace(request.Chat)
	if chat == "" {
		return apperrors.E(apperrors.CodeInvalidArgument, op, constant.MsgEmptyMessage, nil)
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	msg, err := uow.ChatMessageRepository().FindOne(ctx,
		specification.ByID{ID: messageId},
		specification.UserOwnedBy{UserID: userId},
		specification.ByRole{Role: constant.ChatMessageRoleUser},
	)
	if err != nil {
		return err
	}
	if msg == nil {
		return apperrors.E(apperrors.CodeNotFound, op, constant.MsgMessageNotFound, nil)
	}

	now := time.Now()
	msg.Chat = chat
	msg.IsEdited = true
	msg.EditedAt = &now

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatMessageRepository().Update(ctx, msg); err != nil {
		return err
	}

	return uow.Commit()
}

// DeleteMessage removes a single user-authored message from the log.
func (cs *chatService) DeleteMessage(ctx context.Context, userId uuid.UUID, messageId uuid.UUID) error {
	const op = "ChatService.DeleteMessage"

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	msg, err := uow.ChatMessageRepository().FindOne(ctx,
		specification.ByID{ID: messageId},
		specification.UserOwnedBy{UserID: userId},
		specification.ByRole{Role: constant.ChatMessageRoleUser},
	)
	if err != nil {
		return err
	}
	if msg == nil {
		return apperrors.E(apperrors.CodeNotFound, op, constant.MsgMessageNotFound, nil)
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatMessageRepository().Delete(ctx, messageId); err != nil {
		return err
	}

	return uow.Commit()
}

// DeleteSession removes a session together with its message log. Usage rows
// survive, they are the billing record.
func (cs *chatService) DeleteSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	if _, err := cs.verifySession(ctx, uow, userId, sessionId, false); err != nil {
		return err
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatSessionRepository().Delete(ctx, sessionId); err != nil {
		return err
	}
	if err := uow.ChatMessageRepository().DeleteByChatSessionId(ctx, sessionId); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return err
	}

	if cs.eventPublisher != nil {
		evt := events.NewChatSessionDeleted(sessionId.String(), userId.String())
		if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
			fmt.Printf("[WARN] Failed to publish CHAT_SESSION_DELETED event: %v\n", err)
		}
	}

	return nil
}

// DeactivateSession archives a session: history stays readable, new turns
// are rejected.
func (cs *chatService) DeactivateSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	chatSession, err := cs.verifySession(ctx, uow, userId, sessionId, false)
	if err != nil {
		return err
	}

	now := time.Now()
	chatSession.IsActive = false
	chatSession.UpdatedAt = &now

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatSessionRepository().Update(ctx, chatSession); err != nil {
		return err
	}

	return uow.Commit()
}

// --- helpers ---

func (cs *chatService) verifySession(
	ctx context.Context,
	uow unitofwork.UnitOfWork,
	userId uuid.UUID,
	sessionId uuid.UUID,
	requireActive bool,
) (*entity.ChatSession, error) {
	const op = "ChatService.verifySession"

	chatSession, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if chatSession == nil {
		return nil, apperrors.E(apperrors.CodeNotFound, op, constant.MsgSessionNotFound, nil)
	}
	if requireActive && !chatSession.IsActive {
		return nil, apperrors.E(apperrors.CodeInvalidArgument, op, constant.MsgSessionInactive, nil)
	}
	return chatSession, nil
}

// loadContextWindow returns the last messages before the in-flight user turn,
// oldest first, capped at the window size.
func (cs *chatService) loadContextWindow(ctx context.Context, turn *Turn) ([]llm.Message, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	// Fetch one extra: the just-committed user message is usually the newest
	// row and must not appear in the window twice.
	recent, err := uow.ChatMessageRepository().FindRecentBySession(ctx, turn.Session.Id, constant.ContextWindowSize+1)
	if err != nil {
		return nil, err
	}

	history := make([]llm.Message, 0, len(recent))
	for _, msg := range recent {
		if msg.Id == turn.UserMessage.Id {
			continue
		}
		history = append(history, llm.Message{
			Role:    msg.Role,
			Content: msg.Chat,
		})
	}
	if len(history) > constant.ContextWindowSize {
		history = history[len(history)-constant.ContextWindowSize:]
	}
	return history, nil
}

func (cs *chatService) publishTurnCompleted(ctx context.Context, turn *Turn, success bool) {
	if cs.eventPublisher == nil {
		return
	}
	evt := events.NewChatTurnCompleted(turn.Session.Id.String(), turn.Session.UserId.String(), success)
	if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
		fmt.Printf("[WARN] Failed to publish CHAT_TURN_COMPLETED event: %v\n", err)
	}
}

func toMessageResponse(msg *entity.ChatMessage) *dto.ChatMessageResponse {
	return &dto.ChatMessageResponse{
		Id:        msg.Id,
		Role:      msg.Role,
		Chat:      msg.Chat,
		CreatedAt: msg.CreatedAt,
		IsEdited:  msg.IsEdited,
		EditedAt:  msg.EditedAt,
	}
}

func truncateTitle(chat string) string {
	title := strings.TrimSpace(chat)
	if len(title) > constant.SessionTitleMaxLen {
		title = title[:constant.SessionTitleMaxLen]
	}
	return title
}

func aiFailureMessage(err error) string {
	switch llm.KindOf(err) {
	case llm.KindUnavailable:
		return constant.MsgAIUnavailable
	case llm.KindRateLimited:
		return constant.MsgAIRateLimited
	case llm.KindAuth:
		return constant.MsgAIAuthFailed
	case llm.KindQuota:
		return constant.MsgAIQuotaExceeded
	case llm.KindBadRequest:
		return constant.MsgAIBadRequest
	default:
		return constant.MsgAIUnknown
	}
}

func aiFailureCode(err error) apperrors.Code {
	switch llm.KindOf(err) {
	case llm.KindUnavailable:
		return apperrors.CodeUnavailable
	case llm.KindRateLimited:
		return apperrors.CodeRateLimited
	default:
		return apperrors.CodeInternal
	}
}
