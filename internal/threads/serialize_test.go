package threads

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/mcqforge/internal/llm"
)

// concurrencyProvider records the peak number of overlapping calls per thread.
type concurrencyProvider struct {
	mu     sync.Mutex
	active map[string]int
	peak   map[string]int
	total  atomic.Int32
	delay  time.Duration
}

func newConcurrencyProvider(delay time.Duration) *concurrencyProvider {
	return &concurrencyProvider{active: map[string]int{}, peak: map[string]int{}, delay: delay}
}

func (p *concurrencyProvider) Generate(ctx context.Context, _ llm.Request) (*llm.Response, error) {
	id := llm.ThreadFrom(ctx)
	p.mu.Lock()
	p.active[id]++
	p.peak[id] = max(p.peak[id], p.active[id])
	p.mu.Unlock()

	p.total.Add(1)
	time.Sleep(p.delay)

	p.mu.Lock()
	p.active[id]--
	p.mu.Unlock()
	return &llm.Response{Content: json.RawMessage(`{}`), Model: "counting"}, nil
}

func (p *concurrencyProvider) ModelID() string { return "counting" }

func TestSerialize_OneExchangePerThread(t *testing.T) {
	inner := newConcurrencyProvider(3 * time.Millisecond)
	p := Serialize(inner, NewMemoryLocker())

	var wg sync.WaitGroup
	for _, id := range []string{"w0", "w1", "w2"} {
		for range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := p.Generate(llm.WithThread(context.Background(), id), llm.Request{})
				assert.NoError(t, err)
			}()
		}
	}
	wg.Wait()

	assert.Equal(t, int32(12), inner.total.Load())
	for _, id := range []string{"w0", "w1", "w2"} {
		assert.Equal(t, 1, inner.peak[id], "thread %s overlapped", id)
	}
	assert.Equal(t, "counting", p.ModelID())
}

func TestSerialize_NoThreadRunsUnlocked(t *testing.T) {
	l := NewMemoryLocker()
	p := Serialize(newConcurrencyProvider(0), l)
	_, err := p.Generate(context.Background(), llm.Request{})
	require.NoError(t, err)
	assert.Equal(t, 0, l.Len())
}

func TestSerialize_CancelledWhileWaiting(t *testing.T) {
	l := NewMemoryLocker()
	release, err := l.Acquire(context.Background(), "held")
	require.NoError(t, err)
	defer release()

	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{}`)})
	ctx, cancel := context.WithTimeout(llm.WithThread(context.Background(), "held"), 10*time.Millisecond)
	defer cancel()

	_, err = Serialize(mock, l).Generate(ctx, llm.Request{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, mock.CallCount())
}
