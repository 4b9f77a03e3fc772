// Package threads enforces at most one in-flight oracle exchange per
// conversation thread.
package threads

import (
	"context"
	"sync"
)

// Locker grants exclusive ownership of a thread id. Acquire blocks until
// the thread is free or ctx is done; the returned release must be called
// exactly once.
type Locker interface {
	Acquire(ctx context.Context, threadID string) (func(), error)
}

// MemoryLocker is an in-process Locker. Each busy thread id owns a
// one-slot channel that waiters block on; idle ids are dropped.
type MemoryLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewMemoryLocker returns an empty MemoryLocker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{slots: make(map[string]*slot)}
}

func (l *MemoryLocker) Acquire(ctx context.Context, threadID string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[threadID]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[threadID] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(threadID, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.unref(threadID, s)
		})
	}, nil
}

func (l *MemoryLocker) unref(threadID string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, threadID)
	}
}

// Len returns the number of thread ids currently held or waited on.
func (l *MemoryLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
