package transport

import (
	"fmt"
	"strings"
)

// Method is the closed set of HTTP methods the harness exercises.
type Method int

const (
	MethodGet Method = iota
	MethodPost
	MethodPut
	MethodDelete
)

// ParseMethod maps a method string (any case) onto a Method.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "get":
		return MethodGet, nil
	case "post":
		return MethodPost, nil
	case "put":
		return MethodPut, nil
	case "delete":
		return MethodDelete, nil
	}
	return 0, fmt.Errorf("unsupported method %q", s)
}

func (m Method) String() string {
	switch m {
	case MethodGet:
		return "GET"
	case MethodPost:
		return "POST"
	case MethodPut:
		return "PUT"
	case MethodDelete:
		return "DELETE"
	}
	return "GET"
}

// Lower returns the method as it appears in description documents.
func (m Method) Lower() string {
	return strings.ToLower(m.String())
}

// ExpectedStatus returns the status code a successful call is expected to
// produce, absent a description-declared override.
func (m Method) ExpectedStatus() int {
	switch m {
	case MethodGet:
		return 200
	case MethodPost:
		return 201
	case MethodPut:
		return 200
	case MethodDelete:
		return 204
	}
	return 200
}

// HasBody reports whether the method carries a JSON request body.
func (m Method) HasBody() bool {
	return m == MethodPost || m == MethodPut
}
