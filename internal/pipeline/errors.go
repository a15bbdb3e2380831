package pipeline

import (
	"errors"
	"fmt"
)

// ErrNoArticlesFound is returned by the fetch stage when the article source
// answered with an empty list. The message is surfaced verbatim on the job.
var ErrNoArticlesFound = errors.New("No articles found")

// UpstreamError wraps a failure of one of the network collaborators so the
// terminal job error names the service that broke.
type UpstreamError struct {
	Collaborator string
	Err          error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Collaborator, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func NewUpstreamError(collaborator string, err error) *UpstreamError {
	return &UpstreamError{Collaborator: collaborator, Err: err}
}
