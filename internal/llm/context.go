package llm

import "context"

type contextKey string

const (
	purposeKey contextKey = "llm_purpose"
	threadKey  contextKey = "llm_thread"
	ownsKey    contextKey = "llm_owns_contract"
)

// WithPurpose attaches a purpose label to the context for event logging.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom extracts the purpose label from the context.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok {
		return v
	}
	return "unknown"
}

// WithThread binds the context to a conversation thread. Exchanges on the
// same thread are ordered; see threads.Serialize.
func WithThread(ctx context.Context, threadID string) context.Context {
	return context.WithValue(ctx, threadKey, threadID)
}

// ThreadFrom returns the conversation thread bound to ctx, or "" if none.
func ThreadFrom(ctx context.Context) string {
	if v, ok := ctx.Value(threadKey).(string); ok {
		return v
	}
	return ""
}

// WithContractRetry marks ctx as belonging to a caller that retries invalid
// responses itself. RetryProvider then returns ErrInvalidResponse at once,
// so each caller attempt is exactly one oracle exchange.
func WithContractRetry(ctx context.Context) context.Context {
	return context.WithValue(ctx, ownsKey, true)
}

// OwnsContractRetry reports whether ctx was marked by WithContractRetry.
func OwnsContractRetry(ctx context.Context) bool {
	v, _ := ctx.Value(ownsKey).(bool)
	return v
}
