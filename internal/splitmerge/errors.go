package splitmerge

import (
	"fmt"
	"strings"

	"splitmerge/internal/dispatch"
)

// ChunkFailure records why one chunk did not complete. Number is 1-based.
type ChunkFailure struct {
	Number  int
	Outcome dispatch.Outcome
	Err     error
}

func (f ChunkFailure) reason() string {
	if f.Err != nil {
		return f.Err.Error()
	}
	return f.Outcome.String()
}

// ChunkFailureError is returned when at least one chunk did not complete.
// The merge step is never attempted in that case.
type ChunkFailureError struct {
	Total    int
	Failures []ChunkFailure
}

func (e *ChunkFailureError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("chunk %d: %s", f.Number, f.reason()))
	}
	return fmt.Sprintf("%d of %d chunks did not complete (%s)", len(e.Failures), e.Total, strings.Join(parts, "; "))
}

// Unwrap exposes the underlying chunk errors to errors.Is and errors.As.
func (e *ChunkFailureError) Unwrap() []error {
	var errs []error
	for _, f := range e.Failures {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}

// Numbers returns the 1-based numbers of the failed chunks.
func (e *ChunkFailureError) Numbers() []int {
	out := make([]int, 0, len(e.Failures))
	for _, f := range e.Failures {
		out = append(out, f.Number)
	}
	return out
}
