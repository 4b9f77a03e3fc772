package threads

import (
	"context"
	"fmt"

	"github.com/abhisek/mcqforge/internal/llm"
)

// SerializedProvider holds the thread lock of the request context for the
// duration of each exchange. Requests without a thread run unlocked.
type SerializedProvider struct {
	inner  llm.Provider
	locker Locker
}

// Serialize wraps p so that exchanges sharing a thread id never overlap.
func Serialize(p llm.Provider, locker Locker) llm.Provider {
	return &SerializedProvider{inner: p, locker: locker}
}

func (s *SerializedProvider) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	id := llm.ThreadFrom(ctx)
	if id == "" {
		return s.inner.Generate(ctx, req)
	}
	release, err := s.locker.Acquire(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("wait for thread %s: %w", id, err)
	}
	defer release()
	return s.inner.Generate(ctx, req)
}

func (s *SerializedProvider) ModelID() string {
	return s.inner.ModelID()
}
