package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
)

const (
	// ContextWindowSize bounds how many prior messages accompany a new turn.
	// Deliberate trade: bounded latency/cost over long-term memory.
	ContextWindowSize = 10

	// StreamChunkWords is the number of words delivered per stream chunk.
	StreamChunkWords = 3

	// MaxGenerateAttempts caps provider tries per logical call (first try included).
	MaxGenerateAttempts = 3

	// UsagePromptMaxLen caps the prompt text stored on a usage row.
	UsagePromptMaxLen = 2000

	// SessionTitleMaxLen caps the auto-generated session title.
	SessionTitleMaxLen = 50
)

const (
	DefaultSessionTitle = "Unnamed session"
	SessionGreeting     = "Hi, how can I help you ?"
)

// User-facing failure messages. These are the only provider-error texts that
// cross the service boundary.
const (
	MsgAIUnavailable   = "AI service temporarily unavailable, please retry shortly"
	MsgAIRateLimited   = "AI rate limit exceeded, please wait a moment before retrying"
	MsgAIAuthFailed    = "AI service rejected the configured credentials"
	MsgAIQuotaExceeded = "AI usage quota exhausted"
	MsgAIBadRequest    = "AI service could not process this request"
	MsgAIUnknown       = "AI service failed to produce a response"

	MsgSessionNotFound  = "session not found or access denied"
	MsgSessionInactive  = "session is deactivated"
	MsgMessageNotFound  = "message not found or access denied"
	MsgEmptyMessage     = "message text must not be empty"
	MsgInvalidSessionId = "invalid session id"
)

// RoleLabel renders a stored role for the flattened provider prompt.
func RoleLabel(role string) string {
	if role == ChatMessageRoleAssistant {
		return "Assistant"
	}
	return "User"
}
