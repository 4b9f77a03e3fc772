package contenttree

import (
	"errors"
	"fmt"
)

// ErrEmptyTree is returned when a tree has no topics or no labelled nodes.
var ErrEmptyTree = errors.New("content tree has no traversable nodes")

// InvalidPathError reports a malformed or unresolvable tree address.
type InvalidPathError struct {
	Path   string
	Reason string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid tree path %q: %s", e.Path, e.Reason)
}
