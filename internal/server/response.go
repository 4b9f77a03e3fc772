package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/mcqforge/internal/contenttree"
	"github.com/abhisek/mcqforge/internal/llm"
	"github.com/abhisek/mcqforge/internal/mcq"
	"github.com/abhisek/mcqforge/internal/statements"
	"github.com/abhisek/mcqforge/internal/store"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func respondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func respondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// respondErr maps err to a status and code from the error taxonomy.
func respondErr(c *gin.Context, err error) {
	status, code := classify(err)
	respondError(c, status, code, err)
}

func classify(err error) (int, string) {
	var (
		pathErr      *contenttree.InvalidPathError
		batchErr     *mcq.InvalidBatchError
		exhausted    *statements.GenerationExhaustedError
		violation    *statements.ContractViolationError
		invalidResp  *llm.ErrInvalidResponse
		rateLimit    *llm.ErrRateLimit
		unavailable  *llm.ErrProviderUnavailable
		maxTokensErr *llm.ErrMaxTokensExceeded
		rejected     *llm.ErrRequestRejected
	)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &pathErr):
		return http.StatusBadRequest, "invalid_path"
	case errors.As(err, &batchErr):
		return http.StatusBadRequest, "invalid_batch"
	case errors.Is(err, statements.ErrFalseCount):
		return http.StatusBadRequest, "invalid_false_count"
	case errors.Is(err, contenttree.ErrEmptyTree):
		return http.StatusUnprocessableEntity, "empty_tree"
	case errors.As(err, &exhausted), errors.As(err, &violation):
		return http.StatusBadGateway, "generation_exhausted"
	case errors.As(err, &rejected):
		return http.StatusBadGateway, "oracle_rejected"
	case errors.As(err, &rateLimit):
		return http.StatusBadGateway, "oracle_rate_limited"
	case errors.As(err, &invalidResp), errors.As(err, &unavailable), errors.As(err, &maxTokensErr):
		return http.StatusBadGateway, "oracle_error"
	}
	return http.StatusInternalServerError, "internal"
}
