package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/openbank/apitester/internal/config"
	"github.com/openbank/apitester/internal/core/profile"
	"github.com/openbank/apitester/internal/core/registry"
	"github.com/openbank/apitester/internal/runner"
	"github.com/openbank/apitester/internal/swagger"
	"github.com/openbank/apitester/internal/transport"
)

const upstreamDoc = `{
  "swagger": "2.0",
  "paths": {
    "/banks/BANK_ID": {
      "get": {
        "operationId": "getBank",
        "summary": "Get Bank",
        "responses": {"200": {"description": "ok"}}
      }
    }
  },
  "definitions": {}
}`

func newTestServer(t *testing.T) *Server {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/resource-docs/") {
			w.Write([]byte(upstreamDoc))
			return
		}
		w.Write([]byte(`{"id": "bank1"}`))
	}))
	t.Cleanup(upstream.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.DefaultConfig()
	cfg.APIRoot = upstream.URL

	api := transport.New(nil, upstream.URL, logger)
	cache := swagger.NewCache(api, time.Hour)

	profiles, err := profile.NewStore(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { profiles.Close() })
	store, err := registry.NewStore(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	service := registry.NewService(store, profiles, cache, logger)
	run := runner.New(api, service, profiles, cache, cfg.TruncateLength, logger)
	return New(cfg, profiles, service, run, cache, logger)
}

func doJSON(t *testing.T, s *Server, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = strings.NewReader(string(data))
	}
	req := httptest.NewRequest(method, path, reader)
	if user != "" {
		req.Header.Set("X-Remote-User", user)
	}
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func doForm(t *testing.T, s *Server, path, user string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if user != "" {
		req.Header.Set("X-Remote-User", user)
	}
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func createConfig(t *testing.T, s *Server, user, name string) int64 {
	t.Helper()
	w := doJSON(t, s, "POST", "/testconfigs/", user, map[string]any{
		"name":        name,
		"api_version": "OBPv4.1.0",
		"bank_id":     "bank1",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create config: status %d, body %s", w.Code, w.Body.String())
	}
	var created struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	return created.ID
}

func TestConfigCRUD(t *testing.T) {
	s := newTestServer(t)
	id := createConfig(t, s, "simon", "sandbox")

	w := doJSON(t, s, "GET", "/testconfigs/"+itoa(id), "simon", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: status %d", w.Code)
	}
	var got struct {
		Name  string `json:"name"`
		Owner string `json:"owner"`
	}
	json.Unmarshal(w.Body.Bytes(), &got)
	if got.Name != "sandbox" || got.Owner != "simon" {
		t.Fatalf("got %+v", got)
	}

	// Another user cannot see it, and cannot tell it exists.
	w = doJSON(t, s, "GET", "/testconfigs/"+itoa(id), "hongwei", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("foreign get: status %d", w.Code)
	}

	w = doJSON(t, s, "DELETE", "/testconfigs/"+itoa(id), "simon", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: status %d", w.Code)
	}
	w = doJSON(t, s, "GET", "/testconfigs/"+itoa(id), "simon", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("get after delete: status %d", w.Code)
	}
}

func TestCreateConfigRejectsBadVersion(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, "POST", "/testconfigs/", "simon", map[string]any{
		"name":        "bad",
		"api_version": "not-a-version",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d", w.Code)
	}
}

func TestCreateConfigDuplicateName(t *testing.T) {
	s := newTestServer(t)
	createConfig(t, s, "simon", "sandbox")
	w := doJSON(t, s, "POST", "/testconfigs/", "hongwei", map[string]any{
		"name":        "sandbox",
		"api_version": "OBPv4.1.0",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
}

func TestListOperations(t *testing.T) {
	s := newTestServer(t)
	id := createConfig(t, s, "simon", "sandbox")

	w := doJSON(t, s, "GET", "/runtests/"+itoa(id), "simon", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var got struct {
		Calls    []registry.ResolvedCall `json:"calls"`
		Messages []string                `json:"messages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Calls) != 1 || got.Calls[0].OperationID != "getBank" {
		t.Fatalf("calls = %+v", got.Calls)
	}
	if got.Calls[0].URLPath != "/banks/bank1" {
		t.Fatalf("urlpath = %q", got.Calls[0].URLPath)
	}
	if len(got.Messages) != 0 {
		t.Fatalf("messages = %v", got.Messages)
	}
}

func TestRunOperation(t *testing.T) {
	s := newTestServer(t)
	id := createConfig(t, s, "simon", "sandbox")
	doJSON(t, s, "GET", "/runtests/"+itoa(id), "simon", nil) // bind

	w := doForm(t, s, "/runtests/"+itoa(id)+"/getBank/1/run", "simon", url.Values{})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
	var res runner.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if res.StatusCode != 200 {
		t.Fatalf("status code = %d", res.StatusCode)
	}
}

func TestSaveCopyDelete(t *testing.T) {
	s := newTestServer(t)
	id := createConfig(t, s, "simon", "sandbox")
	doJSON(t, s, "GET", "/runtests/"+itoa(id), "simon", nil) // bind

	form := url.Values{
		"profile_id":   {itoa(id)},
		"operation_id": {"getBank"},
		"replica_id":   {"1"},
		"urlpath":      {"/banks/BANK_ID"},
		"method":       {"get"},
		"order":        {"50"},
		"remark":       {"edited"},
	}
	w := doForm(t, s, "/runtests/save", "simon", form)
	if w.Code != http.StatusOK {
		t.Fatalf("save: status %d, body %s", w.Code, w.Body.String())
	}

	w = doForm(t, s, "/runtests/copy", "simon", form)
	if w.Code != http.StatusOK {
		t.Fatalf("copy: status %d, body %s", w.Code, w.Body.String())
	}
	var copied struct {
		ReplicaID int `json:"replica_id"`
	}
	json.Unmarshal(w.Body.Bytes(), &copied)
	if copied.ReplicaID != 2 {
		t.Fatalf("replica_id = %d", copied.ReplicaID)
	}

	w = doForm(t, s, "/runtests/delete", "simon", form)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: status %d", w.Code)
	}

	// Deleting a triple that never existed is a denial, not a crash.
	form.Set("operation_id", "ghost")
	w = doForm(t, s, "/runtests/delete", "simon", form)
	if w.Code != http.StatusForbidden {
		t.Fatalf("delete missing: status %d", w.Code)
	}
}

func TestSaveCopyDeleteForeignOwnerDenied(t *testing.T) {
	s := newTestServer(t)
	id := createConfig(t, s, "simon", "sandbox")
	doJSON(t, s, "GET", "/runtests/"+itoa(id), "simon", nil) // bind

	form := url.Values{
		"profile_id":   {itoa(id)},
		"operation_id": {"getBank"},
		"replica_id":   {"1"},
		"urlpath":      {"/hijacked"},
		"method":       {"get"},
	}
	for _, caller := range []string{"hongwei", ""} {
		for _, path := range []string{"/runtests/save", "/runtests/copy", "/runtests/delete"} {
			w := doForm(t, s, path, caller, form)
			if w.Code != http.StatusForbidden {
				t.Fatalf("%s as %q: status %d, want 403", path, caller, w.Code)
			}
		}
	}

	// The owner's binding survives untouched.
	w := doJSON(t, s, "GET", "/runtests/"+itoa(id), "simon", nil)
	var got struct {
		Calls []registry.ResolvedCall `json:"calls"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Calls) != 1 || got.Calls[0].URLPath != "/banks/bank1" {
		t.Fatalf("owner's calls after foreign writes = %+v", got.Calls)
	}
}

func TestRunAuthExpiredForcesLogout(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/resource-docs/") {
			w.Write([]byte(upstreamDoc))
			return
		}
		w.WriteHeader(400)
		w.Write([]byte(`{"error": "OBP-20001: Invalid or expired access token"}`))
	}))
	defer upstream.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.DefaultConfig()
	api := transport.New(nil, upstream.URL, logger)
	cache := swagger.NewCache(api, time.Hour)
	profiles, _ := profile.NewStore(":memory:")
	defer profiles.Close()
	store, _ := registry.NewStore(":memory:")
	defer store.Close()
	service := registry.NewService(store, profiles, cache, logger)
	run := runner.New(api, service, profiles, cache, cfg.TruncateLength, logger)
	s := New(cfg, profiles, service, run, cache, logger)

	id := createConfig(t, s, "simon", "sandbox")
	doJSON(t, s, "GET", "/runtests/"+itoa(id), "simon", nil)

	w := doForm(t, s, "/runtests/"+itoa(id)+"/getBank/1/run", "simon", url.Values{})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
	var got struct {
		Logout bool `json:"logout"`
	}
	json.Unmarshal(w.Body.Bytes(), &got)
	if !got.Logout {
		t.Fatal("logout flag not set")
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
