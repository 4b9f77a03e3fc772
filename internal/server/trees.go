package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/mcqforge/internal/contenttree"
	"github.com/abhisek/mcqforge/internal/store"
)

type chapterKey struct {
	Category string
	Chapter  string
}

func chapterParams(c *gin.Context) chapterKey {
	return chapterKey{Category: c.Param("category"), Chapter: c.Param("chapter")}
}

// loadTree returns the stored tree or store.ErrNotFound.
func (s *Server) loadTree(c *gin.Context, key chapterKey) (*contenttree.Tree, error) {
	tree, err := s.deps.Mappings.FindMapping(c.Request.Context(), key.Category, key.Chapter)
	if err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, fmt.Errorf("chapter %s/%s: %w", key.Category, key.Chapter, store.ErrNotFound)
	}
	return tree, nil
}

// GET /api/trees
func (s *Server) listTrees(c *gin.Context) {
	chapters, err := s.deps.Mappings.ListChapters(c.Request.Context(), c.Query("category"))
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"chapters": chapters})
}

// GET /api/trees/:category/:chapter
func (s *Server) getTree(c *gin.Context) {
	tree, err := s.loadTree(c, chapterParams(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"tree": tree, "nodes": tree.NodeCount(), "depth": tree.Depth()})
}

// PUT /api/trees/:category/:chapter
func (s *Server) putTree(c *gin.Context) {
	var tree contenttree.Tree
	if err := c.ShouldBindJSON(&tree); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := tree.Validate(); err != nil && !errors.Is(err, contenttree.ErrEmptyTree) {
		respondError(c, http.StatusBadRequest, "invalid_tree", err)
		return
	}

	key := chapterParams(c)
	if err := s.deps.Mappings.SaveMapping(c.Request.Context(), key.Category, key.Chapter, &tree); err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"tree": &tree})
}

// DELETE /api/trees/:category/:chapter
func (s *Server) deleteTree(c *gin.Context) {
	key := chapterParams(c)
	if err := s.deps.Mappings.DeleteMapping(c.Request.Context(), key.Category, key.Chapter); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type outlineRequest struct {
	Notes string `json:"notes"`
}

// POST /api/trees/:category/:chapter/generate
func (s *Server) generateTree(c *gin.Context) {
	var req outlineRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	key := chapterParams(c)
	in := contenttree.ChapterInput{Category: key.Category, Chapter: key.Chapter, Notes: req.Notes}

	tree, err := s.deps.Outliner.Build(c.Request.Context(), in)
	if err != nil {
		respondErr(c, err)
		return
	}
	if err := s.deps.Mappings.SaveMapping(c.Request.Context(), key.Category, key.Chapter, tree); err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"tree": tree})
}

// POST /api/trees/:category/:chapter/expand
func (s *Server) expandTree(c *gin.Context) {
	var req outlineRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	key := chapterParams(c)
	current, err := s.loadTree(c, key)
	if err != nil {
		respondErr(c, err)
		return
	}

	in := contenttree.ChapterInput{Category: key.Category, Chapter: key.Chapter, Notes: req.Notes}
	merged, mergeErr := s.deps.Outliner.Expand(c.Request.Context(), current, in)
	if merged == nil {
		respondErr(c, mergeErr)
		return
	}
	if err := s.deps.Mappings.SaveMapping(c.Request.Context(), key.Category, key.Chapter, merged); err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"tree": merged, "skipped": skipped(mergeErr)})
}

// POST /api/trees/:category/:chapter/merge
//
// Applies a batch of new entries. Entries with bad paths are skipped and
// reported; the rest are saved.
func (s *Server) mergeTree(c *gin.Context) {
	var entries contenttree.NewEntries
	if err := c.ShouldBindJSON(&entries); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	key := chapterParams(c)
	current, err := s.deps.Mappings.FindMapping(c.Request.Context(), key.Category, key.Chapter)
	if err != nil {
		respondErr(c, err)
		return
	}

	merged, mergeErr := contenttree.MergeNewEntries(current, entries)
	if err := s.deps.Mappings.SaveMapping(c.Request.Context(), key.Category, key.Chapter, merged); err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"tree": merged, "skipped": skipped(mergeErr)})
}

// GET /api/trees/:category/:chapter/random-node
func (s *Server) randomNode(c *gin.Context) {
	tree, err := s.loadTree(c, chapterParams(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	node, err := s.selector.Select(tree)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"node": node})
}

// skipped flattens a joined merge error into messages.
func skipped(err error) []string {
	if err == nil {
		return []string{}
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}

// bindOptionalJSON binds a JSON body when one was sent.
func bindOptionalJSON(c *gin.Context, v any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(v)
}
