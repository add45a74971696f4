// Package directlogin exchanges username, password and consumer key for
// a DirectLogin token and yields an authenticated session.
package directlogin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openbank/apitester/internal/auth"
)

const loginPath = "/my/logins/direct"

// Authenticator performs the DirectLogin token exchange against the API
// host (not the versioned API root).
type Authenticator struct {
	host    string
	timeout time.Duration
	token   string
	logger  *slog.Logger
}

func New(host string, timeout time.Duration, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		host:    strings.TrimRight(host, "/"),
		timeout: timeout,
		logger:  logger,
	}
}

// Login obtains a token for the given credentials. The consumer key
// identifies the registered API consumer, not the user.
func (a *Authenticator) Login(ctx context.Context, username, password, consumerKey string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.host+loginPath, nil)
	if err != nil {
		return fmt.Errorf("creating login request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf(
		`DirectLogin username=%q, password=%q, consumer_key=%q`,
		username, password, consumerKey))

	client := &http.Client{Timeout: a.timeout}
	resp, err := client.Do(req)
	if err != nil {
		a.logger.Error("directlogin failed", "host", a.host, "error", err)
		return fmt.Errorf("directlogin: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("directlogin: reading response: %w", err)
	}

	var payload struct {
		Token   string `json:"token"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("directlogin: status %d, non-JSON response", resp.StatusCode)
	}
	if payload.Token == "" {
		msg := payload.Message
		if msg == "" {
			msg = payload.Error
		}
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		a.logger.Error("directlogin rejected", "host", a.host, "status", resp.StatusCode, "message", msg)
		return errors.New("directlogin: " + msg)
	}

	a.token = payload.Token
	a.logger.Info("directlogin ok", "host", a.host, "username", username)
	return nil
}

// Token returns the current token, empty before a successful Login.
func (a *Authenticator) Token() string { return a.token }

// SetToken restores a previously obtained token, e.g. from a stored
// session, without a fresh exchange.
func (a *Authenticator) SetToken(token string) { a.token = token }

// Session returns an HTTP client that authenticates every request with
// the current token.
func (a *Authenticator) Session() *http.Client {
	return auth.NewSession(fmt.Sprintf(`DirectLogin token=%q`, a.token), a.timeout)
}
