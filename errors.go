package connmock

import (
	"fmt"
	"strings"
)

// NoMatchError is returned through the transport when no registered case
// matches an incoming request.
type NoMatchError struct {
	// Request is the reconstructed request that failed to match.
	Request *Request
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no registered case matches %s %s", e.Request.Method, e.Request.URL)
}

// MatcherError wraps an error returned by a case's matcher or predicate.
// It is a dispatch failure, not a mismatch.
type MatcherError struct {
	CaseID string
	Err    error
}

func (e *MatcherError) Error() string {
	return fmt.Sprintf("case %s: matcher failed: %v", e.CaseID, e.Err)
}

func (e *MatcherError) Unwrap() error { return e.Err }

// ResponderError wraps an error returned by a case's responder.
type ResponderError struct {
	CaseID string
	Err    error
}

func (e *ResponderError) Error() string {
	return fmt.Sprintf("case %s: responder failed: %v", e.CaseID, e.Err)
}

func (e *ResponderError) Unwrap() error { return e.Err }

// InvalidStatusError reports a response status code outside the valid
// 3-digit HTTP range.
type InvalidStatusError struct {
	Code int
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid HTTP status code %d", e.Code)
}

// CountMismatch records one case whose observed call count differs from
// its declared expectation.
type CountMismatch struct {
	CaseID   string
	Expected int
	Got      int
}

func (m CountMismatch) String() string {
	return fmt.Sprintf("%s: expected %d calls, got %d", m.CaseID, m.Expected, m.Got)
}

// CheckpointError aggregates every violated call count expectation. It is
// only returned from Checkpoint, never from dispatch.
type CheckpointError struct {
	Mismatches []CountMismatch
}

func (e *CheckpointError) Error() string {
	parts := make([]string, len(e.Mismatches))
	for i, m := range e.Mismatches {
		parts[i] = m.String()
	}
	return fmt.Sprintf("call count mismatch for %d case(s): %s",
		len(e.Mismatches), strings.Join(parts, "; "))
}
