package directlogin

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoginExchangesCredentialsForToken(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Write([]byte(`{"token": "abc123"}`))
	}))
	defer srv.Close()

	a := New(srv.URL, 5*time.Second, discardLogger())
	if err := a.Login(context.Background(), "felixsmith", "hunter2", "ckey"); err != nil {
		t.Fatal(err)
	}

	if gotPath != "/my/logins/direct" {
		t.Fatalf("path = %q", gotPath)
	}
	if !strings.HasPrefix(gotAuth, "DirectLogin ") {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	for _, part := range []string{`username="felixsmith"`, `password="hunter2"`, `consumer_key="ckey"`} {
		if !strings.Contains(gotAuth, part) {
			t.Fatalf("Authorization %q missing %q", gotAuth, part)
		}
	}
	if a.Token() != "abc123" {
		t.Fatalf("Token = %q", a.Token())
	}
}

func TestLoginRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		w.Write([]byte(`{"message": "Invalid credentials"}`))
	}))
	defer srv.Close()

	a := New(srv.URL, 5*time.Second, discardLogger())
	err := a.Login(context.Background(), "felixsmith", "wrong", "ckey")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "Invalid credentials") {
		t.Fatalf("err = %v", err)
	}
	if a.Token() != "" {
		t.Fatalf("Token = %q after failed login", a.Token())
	}
}

func TestSessionInjectsToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	a := New(srv.URL, 5*time.Second, discardLogger())
	a.SetToken("abc123")

	resp, err := a.Session().Get(srv.URL + "/banks")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if gotAuth != `DirectLogin token="abc123"` {
		t.Fatalf("Authorization = %q", gotAuth)
	}
}
