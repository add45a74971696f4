package gatewaylogin

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestLoginMintsVerifiableToken(t *testing.T) {
	a := New("sekrit", 5*time.Second)
	a.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	if err := a.Login("felixsmith"); err != nil {
		t.Fatal(err)
	}

	parsed, err := jwt.Parse(a.Token(), func(tok *jwt.Token) (any, error) {
		return []byte("sekrit"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		t.Fatal(err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatalf("claims type %T", parsed.Claims)
	}
	if claims["login_user_name"] != "felixsmith" {
		t.Fatalf("login_user_name = %v", claims["login_user_name"])
	}
	if claims["is_first"] != false {
		t.Fatalf("is_first = %v", claims["is_first"])
	}
}

func TestLoginRejectsWrongSecret(t *testing.T) {
	a := New("sekrit", 5*time.Second)
	if err := a.Login("felixsmith"); err != nil {
		t.Fatal(err)
	}

	_, err := jwt.Parse(a.Token(), func(tok *jwt.Token) (any, error) {
		return []byte("other"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err == nil {
		t.Fatal("token verified with wrong secret")
	}
}

func TestSessionInjectsToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	a := New("sekrit", 5*time.Second)
	if err := a.Login("felixsmith"); err != nil {
		t.Fatal(err)
	}

	resp, err := a.Session().Get(srv.URL + "/banks")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if !strings.HasPrefix(gotAuth, `GatewayLogin token="`) {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if !strings.Contains(gotAuth, a.Token()) {
		t.Fatal("Authorization does not carry the minted token")
	}
}
