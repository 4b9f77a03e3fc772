package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/mcqforge/internal/evaluation"
	"github.com/abhisek/mcqforge/internal/mcq"
	"github.com/abhisek/mcqforge/internal/statements"
	"github.com/abhisek/mcqforge/internal/store"
)

type statementsRequest struct {
	Category string `json:"category" binding:"required"`
	Chapter  string `json:"chapter" binding:"required"`
	// Node is optional; a random node of the stored chapter is used when empty.
	Node       string `json:"node"`
	FalseCount int    `json:"falseCount"`
}

// POST /api/statements
func (s *Server) generateStatements(c *gin.Context) {
	var req statementsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	node := req.Node
	if node == "" {
		if s.deps.Mappings == nil {
			respondError(c, http.StatusBadRequest, "invalid_request", errors.New("node is required"))
			return
		}
		tree, err := s.loadTree(c, chapterKey{Category: req.Category, Chapter: req.Chapter})
		if err != nil {
			respondErr(c, err)
			return
		}
		if node, err = s.selector.Select(tree); err != nil {
			respondErr(c, err)
			return
		}
	}

	tc := statements.TopicContext{Category: req.Category, Chapter: req.Chapter, Node: node}
	b, err := s.deps.Statements.Generate(c.Request.Context(), tc, req.FalseCount)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"batch": b})
}

type transformRequest struct {
	Statements []statements.Statement `json:"statements"`
	// StatementCount fixes how many statements are shown (2-4). Zero
	// lets the transformer choose.
	StatementCount int `json:"statementCount"`
}

// POST /api/mcq/transform
func (s *Server) transform(c *gin.Context) {
	var req transformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	b := &statements.Batch{Statements: req.Statements}
	var (
		q   *mcq.MCQ
		err error
	)
	if req.StatementCount == 0 {
		q, err = s.deps.Transformer.Transform(b)
	} else {
		q, err = s.deps.Transformer.TransformWithCount(b, req.StatementCount)
	}
	if err != nil {
		var batchErr *mcq.InvalidBatchError
		if !errors.As(err, &batchErr) {
			respondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
		respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"mcq": q})
}

type evaluateRequest struct {
	// ID reviews a stored question and records the outcome.
	ID  string   `json:"id"`
	MCQ *mcq.MCQ `json:"mcq"`
}

// POST /api/mcq/evaluate
func (s *Server) evaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	ctx := c.Request.Context()

	q := req.MCQ
	if req.ID != "" {
		if s.deps.MCQs == nil {
			respondError(c, http.StatusBadRequest, "invalid_request", errors.New("stored questions are not available"))
			return
		}
		rec, err := s.deps.MCQs.GetMCQ(ctx, req.ID)
		if err != nil {
			respondErr(c, err)
			return
		}
		q = rec.MCQ
	}
	if q == nil {
		respondError(c, http.StatusBadRequest, "invalid_request", errors.New("id or mcq is required"))
		return
	}
	if err := q.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_mcq", err)
		return
	}

	out, err := s.deps.Reviewer.Run(ctx, q)
	if err != nil {
		respondErr(c, err)
		return
	}
	if req.ID != "" {
		if err := s.deps.MCQs.UpdateMCQ(ctx, req.ID, out.Stage, out.Revisions, out.MCQ); err != nil {
			respondErr(c, err)
			return
		}
	}
	respondOK(c, gin.H{"outcome": out})
}

// GET /api/catalog
func (s *Server) catalog(c *gin.Context) {
	type family struct {
		Name      string         `json:"name"`
		Templates []mcq.Template `json:"templates"`
	}
	var families []family
	for _, name := range s.deps.Catalog.Families() {
		families = append(families, family{Name: name, Templates: s.deps.Catalog.Templates(name)})
	}
	layouts := map[string][]mcq.Layout{}
	for _, k := range mcq.Counts {
		layouts[strconv.Itoa(k)] = s.deps.Catalog.Layouts(k)
	}
	respondOK(c, gin.H{"families": families, "layouts": layouts})
}

// GET /api/mcqs
func (s *Server) listMCQs(c *gin.Context) {
	f := store.MCQFilter{
		Category: c.Query("category"),
		Chapter:  c.Query("chapter"),
		Session:  c.Query("session"),
		Stage:    evaluation.Stage(c.Query("stage")),
	}
	if f.Stage != "" && !f.Stage.Valid() {
		respondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("unknown stage %q", f.Stage))
		return
	}
	var err error
	if f.Limit, err = intQuery(c, "limit", 50); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if f.Offset, err = intQuery(c, "offset", 0); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	recs, err := s.deps.MCQs.ListMCQs(c.Request.Context(), f)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"mcqs": recs})
}

// GET /api/mcqs/:id
func (s *Server) getMCQ(c *gin.Context) {
	rec, err := s.deps.MCQs.GetMCQ(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"mcq": rec})
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}
