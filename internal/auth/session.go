// Package auth holds the shared session plumbing for the concrete
// authentication schemes in its subpackages. An authenticated session
// is an *http.Client that injects an Authorization header on every
// request.
package auth

import (
	"net/http"
	"time"
)

type headerTransport struct {
	authorization string
	base          http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", t.authorization)
	return t.base.RoundTrip(clone)
}

// NewSession returns an HTTP client that sends the given Authorization
// header value with every request.
func NewSession(authorization string, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &headerTransport{
			authorization: authorization,
			base:          http.DefaultTransport,
		},
	}
}
