package ai

import "fmt"

// UpstreamError means the language service could not be reached or answered
// with a server-side failure, after the retry budget was spent. The request
// may be retried later by the caller.
type UpstreamError struct {
	Op     string
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: upstream returned status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: upstream unreachable: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// MalformedError means the language service answered, but with a payload
// that does not honor its contract. Retrying would send the same input to
// the same broken endpoint, so these are never retried.
type MalformedError struct {
	Op     string
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("%s: malformed upstream response: %s", e.Op, e.Reason)
}
