package batch

import (
	"sync"

	"github.com/abhisek/mcqforge/internal/logger"
)

// subscriberBuffer is the per-subscriber queue length. Events beyond it are
// dropped for that subscriber.
const subscriberBuffer = 64

// AllSessions subscribes to events of every session.
const AllSessions = ""

// Publisher accepts progress events.
type Publisher interface {
	Publish(p Progress)
}

// Hub fans progress events out to subscribers keyed by session id.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan Progress]struct{}
	log  *logger.Logger
}

// NewHub creates an empty Hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		subs: make(map[string]map[chan Progress]struct{}),
		log:  logger.OrNop(log).With("component", "batch.Hub"),
	}
}

// Subscribe returns a channel receiving events for session (or AllSessions)
// and a function that ends the subscription. The channel is closed after a
// terminal event of that session, or when the subscription ends.
func (h *Hub) Subscribe(session string) (<-chan Progress, func()) {
	ch := make(chan Progress, subscriberBuffer)

	h.mu.Lock()
	set, ok := h.subs[session]
	if !ok {
		set = make(map[chan Progress]struct{})
		h.subs[session] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() { h.remove(session, ch) }
}

func (h *Hub) remove(session string, ch chan Progress) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subs[session]
	if !ok {
		return
	}
	if _, ok := set[ch]; !ok {
		return
	}
	delete(set, ch)
	close(ch)
	if len(set) == 0 {
		delete(h.subs, session)
	}
}

// Publish delivers p to its session's subscribers and to AllSessions
// subscribers without blocking.
func (h *Hub) Publish(p Progress) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, key := range []string{p.Session, AllSessions} {
		for ch := range h.subs[key] {
			select {
			case ch <- p:
			default:
				h.log.Warn("dropping progress event; subscriber buffer full", "session", p.Session)
			}
		}
		if key == AllSessions {
			break
		}
	}

	if !p.Status.Terminal() || p.Session == AllSessions {
		return
	}
	for ch := range h.subs[p.Session] {
		close(ch)
	}
	delete(h.subs, p.Session)
}

// Subscribers returns the number of live subscriptions for session.
func (h *Hub) Subscribers(session string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[session])
}

// Publishers fans events out to several publishers.
type Publishers []Publisher

func (ps Publishers) Publish(p Progress) {
	for _, pub := range ps {
		if pub != nil {
			pub.Publish(p)
		}
	}
}
