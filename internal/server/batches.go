package server

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/mcqforge/internal/batch"
	"github.com/abhisek/mcqforge/internal/store"
)

type sessionView struct {
	ID        string         `json:"id"`
	Request   batch.Request  `json:"request"`
	StartedAt time.Time      `json:"startedAt"`
	Cancelled bool           `json:"cancelled"`
	Progress  batch.Progress `json:"progress"`
}

func viewOf(sess *batch.Session) sessionView {
	return sessionView{
		ID:        sess.ID,
		Request:   sess.Request,
		StartedAt: sess.StartedAt,
		Cancelled: sess.Cancelled(),
		Progress:  sess.Last(),
	}
}

func (s *Server) session(c *gin.Context) (*batch.Session, bool) {
	id := c.Param("id")
	sess, ok := s.deps.Producer.Sessions().Get(id)
	if !ok {
		respondErr(c, fmt.Errorf("session %s: %w", id, store.ErrNotFound))
		return nil, false
	}
	return sess, true
}

// POST /api/batches
func (s *Server) startBatch(c *gin.Context) {
	var req batch.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	sess, err := s.deps.Producer.Start(c.Request.Context(), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"session": viewOf(sess)})
}

// GET /api/batches
func (s *Server) listBatches(c *gin.Context) {
	sessions := s.deps.Producer.Sessions().List()
	out := make([]sessionView, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, viewOf(sess))
	}
	respondOK(c, gin.H{"sessions": out})
}

// GET /api/batches/:id
func (s *Server) getBatch(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	respondOK(c, gin.H{"session": viewOf(sess)})
}

// DELETE /api/batches/:id
//
// Cancellation is cooperative: the item in flight finishes and is saved.
func (s *Server) cancelBatch(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	sess.Cancel()
	respondOK(c, gin.H{"session": viewOf(sess)})
}

// GET /api/batches/:id/events
//
// Streams progress as server-sent events. The current state is sent first;
// the stream ends after the terminal event.
func (s *Server) batchEvents(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	events, stop := s.deps.Hub.Subscribe(sess.ID)
	defer stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	last := sess.Last()
	c.SSEvent(string(last.Status), last)
	c.Writer.Flush()
	select {
	case <-sess.Done():
		// The terminal event may have been published before we subscribed.
		return
	default:
	}

	heartbeat := time.NewTicker(s.cfg.Heartbeat)
	defer heartbeat.Stop()
	ctx := c.Request.Context()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			return true
		case p, ok := <-events:
			if !ok {
				final := sess.Last()
				if final.Status.Terminal() && final.Time.After(last.Time) {
					c.SSEvent(string(final.Status), final)
				}
				return false
			}
			last = p
			c.SSEvent(string(p.Status), p)
			return !p.Status.Terminal()
		case <-sess.Done():
			final := sess.Last()
			if final.Time.After(last.Time) {
				c.SSEvent(string(final.Status), final)
			}
			return false
		}
	})
}
