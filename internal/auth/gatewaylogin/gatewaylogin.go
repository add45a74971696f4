// Package gatewaylogin mints a GatewayLogin JWT locally and yields an
// authenticated session. No round trip is needed; the API validates the
// token against the shared secret on first use.
package gatewaylogin

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/openbank/apitester/internal/auth"
)

// Authenticator signs GatewayLogin tokens with the secret shared with
// the API instance.
type Authenticator struct {
	secret  string
	timeout time.Duration
	now     func() time.Time
	token   string
}

func New(secret string, timeout time.Duration) *Authenticator {
	return &Authenticator{
		secret:  secret,
		timeout: timeout,
		now:     time.Now,
	}
}

// Login mints an HS256 token for the given user.
func (a *Authenticator) Login(username string) error {
	claims := jwt.MapClaims{
		"login_user_name": username,
		"is_first":        false,
		"app_id":          "123",
		"app_name":        "apitester",
		"time_stamp":      a.now().Format(time.ANSIC),
		"cbs_token":       "",
		"cbs_id":          "",
		"session_id":      "",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.secret))
	if err != nil {
		return fmt.Errorf("gatewaylogin: signing token: %w", err)
	}
	a.token = token
	return nil
}

// Token returns the current token, empty before a successful Login.
func (a *Authenticator) Token() string { return a.token }

// Session returns an HTTP client that authenticates every request with
// the current token.
func (a *Authenticator) Session() *http.Client {
	return auth.NewSession(fmt.Sprintf(`GatewayLogin token=%q`, a.token), a.timeout)
}
