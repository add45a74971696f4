package transport

import (
	"errors"
	"fmt"
)

// Kind classifies terminal API call outcomes.
type Kind int

const (
	// KindTransport is a network or connection failure.
	KindTransport Kind = iota
	// KindUpstream is an error reported by the API itself (404, 500, or an
	// explicit error payload).
	KindUpstream
	// KindAuthExpired is an upstream error whose message indicates the
	// current access token is no longer valid. Callers must drop the
	// authenticated session and force re-authentication.
	KindAuthExpired
)

// APIError is the error type for all failed API calls.
type APIError struct {
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("APIError %s: %v", e.Message, e.Err)
	}
	return "APIError " + e.Message
}

func (e *APIError) Unwrap() error { return e.Err }

// Message extracts the user-facing text of an API error. For non-API
// errors it falls back to Error().
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		if apiErr.Err != nil {
			return apiErr.Err.Error()
		}
	}
	return err.Error()
}

// IsAuthExpired reports whether err signals an expired access token.
func IsAuthExpired(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindAuthExpired
}

// IsUpstream reports whether err was reported by the API rather than the
// network.
func IsUpstream(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind != KindTransport
}
