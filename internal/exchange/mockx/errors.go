package mockx

import (
	"errors"
	"fmt"
)

// FailureKind classifies an API failure so the refresh driver can surface
// a meaningful indicator without inspecting transport details.
type FailureKind int

const (
	FailureConnection FailureKind = iota + 1 // network unreachable or timeout
	FailureAuth                              // 401/403
	FailureServer                            // 5xx (and any other unexpected status)
	FailureMalformed                         // 2xx body that does not parse into the expected shape
)

func (k FailureKind) String() string {
	switch k {
	case FailureConnection:
		return "connection"
	case FailureAuth:
		return "auth"
	case FailureServer:
		return "server"
	case FailureMalformed:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// APIError is the typed failure returned by every client call.
type APIError struct {
	Kind     FailureKind
	Endpoint string
	Status   int
	Err      error
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("mockexchange %s: %s failure (status %d): %v", e.Endpoint, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("mockexchange %s: %s failure: %v", e.Endpoint, e.Kind, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// KindOf extracts the failure kind from an error chain, 0 if none.
func KindOf(err error) FailureKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}
