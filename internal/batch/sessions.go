package batch

import (
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Session is one running or finished production.
type Session struct {
	ID        string
	Request   Request
	StartedAt time.Time

	cancelled atomic.Bool
	done      chan struct{}
	closeOnce sync.Once

	mu   sync.Mutex
	last Progress
}

// Cancel asks the producer to stop before its next item. An item already
// talking to the oracle is allowed to finish.
func (s *Session) Cancel() {
	s.cancelled.Store(true)
}

// Cancelled reports whether Cancel was called.
func (s *Session) Cancelled() bool {
	return s.cancelled.Load()
}

// Done is closed when the session has finished.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Last returns the most recent progress event.
func (s *Session) Last() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Session) record(p Progress) {
	s.mu.Lock()
	s.last = p
	s.mu.Unlock()
}

func (s *Session) finish() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Sessions is the registry of productions started by this process.
type Sessions struct {
	mu sync.RWMutex
	m  map[string]*Session
}

// NewSessions returns an empty registry.
func NewSessions() *Sessions {
	return &Sessions{m: make(map[string]*Session)}
}

// Start registers a new session for req.
func (r *Sessions) Start(req Request) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		Request:   req,
		StartedAt: time.Now().UTC(),
		done:      make(chan struct{}),
	}
	s.last = Progress{Session: s.ID, Status: StatusProgress, Requested: req.Count, Time: s.StartedAt}

	r.mu.Lock()
	r.m[s.ID] = s
	r.mu.Unlock()
	return s
}

// Get returns the session with id.
func (r *Sessions) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.m[id]
	return s, ok
}

// Cancel sets the cancel flag of id. It reports false for unknown ids.
func (r *Sessions) Cancel(id string) bool {
	s, ok := r.Get(id)
	if !ok {
		return false
	}
	s.Cancel()
	return true
}

// CancelAll flags every session, used on shutdown.
func (r *Sessions) CancelAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.m {
		s.Cancel()
	}
}

// List returns all sessions, oldest first.
func (r *Sessions) List() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.m))
	for _, s := range r.m {
		out = append(out, s)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Session) int {
		if c := a.StartedAt.Compare(b.StartedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// Prune removes finished sessions that started before cutoff.
func (r *Sessions) Prune(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, s := range r.m {
		select {
		case <-s.done:
			if s.StartedAt.Before(cutoff) {
				delete(r.m, id)
				n++
			}
		default:
		}
	}
	return n
}
