package statements

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFalseCount is returned for a requested false count outside 0..BatchSize.
var ErrFalseCount = errors.New("false count must be between 0 and 4")

// ContractViolationError describes an oracle response that broke the batch
// contract. Every violation found in the response is listed.
type ContractViolationError struct {
	Attempt    int
	Violations []string
}

func (e *ContractViolationError) Error() string {
	return fmt.Sprintf("contract violation on attempt %d: %s", e.Attempt, strings.Join(e.Violations, "; "))
}

// GenerationExhaustedError is returned when every attempt violated the
// contract. Last is the final violation.
type GenerationExhaustedError struct {
	Attempts int
	Last     *ContractViolationError
}

func (e *GenerationExhaustedError) Error() string {
	return fmt.Sprintf("statement generation exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *GenerationExhaustedError) Unwrap() error {
	if e.Last == nil {
		return nil
	}
	return e.Last
}
