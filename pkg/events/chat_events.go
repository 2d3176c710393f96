package events

const (
	TypeChatSessionCreated = "CHAT_SESSION_CREATED"
	TypeChatSessionDeleted = "CHAT_SESSION_DELETED"
	TypeChatTurnCompleted  = "CHAT_TURN_COMPLETED"
	TypeAIUsageRecorded    = "AI_USAGE_RECORDED"
)

func NewChatSessionCreated(sessionId, userId string) Event {
	return newBase(TypeChatSessionCreated, map[string]interface{}{
		"session_id": sessionId,
		"user_id":    userId,
	})
}

func NewChatSessionDeleted(sessionId, userId string) Event {
	return newBase(TypeChatSessionDeleted, map[string]interface{}{
		"session_id": sessionId,
		"user_id":    userId,
	})
}

func NewChatTurnCompleted(sessionId, userId string, success bool) Event {
	return newBase(TypeChatTurnCompleted, map[string]interface{}{
		"session_id": sessionId,
		"user_id":    userId,
		"success":    success,
	})
}

func NewAIUsageRecorded(userId, model string, tokensUsed int) Event {
	return newBase(TypeAIUsageRecorded, map[string]interface{}{
		"user_id":     userId,
		"model":       model,
		"tokens_used": tokensUsed,
	})
}
