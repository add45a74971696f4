// Package runner executes one resolved call against the live API and
// validates the observed status code against the expected one.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tidwall/pretty"

	"github.com/openbank/apitester/internal/core/profile"
	"github.com/openbank/apitester/internal/core/registry"
	"github.com/openbank/apitester/internal/resolve"
	"github.com/openbank/apitester/internal/swagger"
	"github.com/openbank/apitester/internal/transport"
)

// State tracks a run through its phases. Runs are synchronous; the
// state exists for logging, not coordination.
type State int

const (
	StatePending State = iota
	StateResolving
	StateExecuting
	StateValidating
	StateDone
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateResolving:
		return "RESOLVING"
	case StateExecuting:
		return "EXECUTING"
	case StateValidating:
		return "VALIDATING"
	case StateDone:
		return "DONE"
	}
	return "UNKNOWN"
}

// Request identifies one stored binding to run. URLPath and JSONBody,
// when set, override the saved row's values without persisting them.
type Request struct {
	ProfileID   int64
	Owner       string
	OperationID string
	ReplicaID   int
	Method      transport.Method
	URLPath     string
	JSONBody    string
}

// Result is the outcome of one run, shaped for the consuming boundary.
type Result struct {
	ID            string   `json:"id"`
	Found         bool     `json:"found"`
	Method        string   `json:"method"`
	StatusCode    int      `json:"status_code"`
	Summary       string   `json:"summary"`
	URLPath       string   `json:"urlpath"`
	OperationID   string   `json:"operation_id"`
	ProfileID     int64    `json:"profile_id"`
	Payload       any      `json:"payload"`
	Text          string   `json:"text"`
	ExecutionTime int64    `json:"execution_time"`
	Messages      []string `json:"messages"`
	Success       bool     `json:"success"`

	// AuthExpired tells the boundary to drop the session and force a
	// fresh login. Not part of the response shape.
	AuthExpired bool `json:"-"`
}

// Runner drives one operation at a time through the transport.
type Runner struct {
	api      *transport.Client
	registry *registry.Service
	profiles *profile.Store
	cache    *swagger.Cache
	truncate int
	logger   *slog.Logger
}

func New(api *transport.Client, reg *registry.Service, profiles *profile.Store, cache *swagger.Cache, truncate int, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		api:      api,
		registry: reg,
		profiles: profiles,
		cache:    cache,
		truncate: truncate,
		logger:   logger,
	}
}

// Run executes one call synchronously. It never returns an error: every
// failure mode lands in the result's messages with success set false.
func (r *Runner) Run(ctx context.Context, req Request) Result {
	result := Result{
		ID:          uuid.NewString(),
		Method:      req.Method.Lower(),
		OperationID: req.OperationID,
		ProfileID:   req.ProfileID,
		URLPath:     req.URLPath,
		Messages:    []string{},
	}
	state := StatePending
	r.logger.Debug("run", "id", result.ID, "state", state.String(), "operation_id", req.OperationID)

	state = StateResolving
	tc, err := r.profiles.Get(req.ProfileID, req.Owner)
	if err != nil {
		result.Messages = append(result.Messages, "Test configuration not found!")
		return result
	}

	doc, err := r.cache.Description(ctx, tc.APIVersion, tc.ResourceDocParams)
	if err != nil {
		r.logger.Error("description fetch failed",
			"id", result.ID, "state", state.String(), "error", err)
		result.Messages = append(result.Messages, transport.Message(err))
		return result
	}

	urlpath, body := req.URLPath, req.JSONBody
	if row, err := r.registry.Store().Get(req.ProfileID, req.OperationID, req.ReplicaID); err == nil && !row.IsDeleted {
		if urlpath == "" {
			urlpath = row.URLPath
		}
		if body == "" {
			body = row.JSONBody
		}
	}

	op := findOperation(doc, req.OperationID)
	if op == nil && urlpath == "" {
		result.Messages = append(result.Messages,
			fmt.Sprintf("Test %s %s is not configured!", req.Method.Lower(), req.URLPath))
		return result
	}
	if op != nil {
		result.Found = true
		result.Summary = op.Summary
		if urlpath == "" {
			urlpath = op.path
		}
		if body == "" && req.Method.HasBody() {
			body = resolve.Body(&op.Operation, doc, tc.AttributeValues())
		}
	}

	urlpath = resolve.Path(urlpath, tc.TokenValues())
	result.URLPath = urlpath

	expected := req.Method.ExpectedStatus()
	if op != nil {
		if code, ok := op.DeclaredSuccessCode(); ok {
			expected = code
		}
	}

	state = StateExecuting
	var payload any
	if req.Method.HasBody() && strings.TrimSpace(body) != "" {
		if err := json.Unmarshal([]byte(body), &payload); err != nil {
			// The call proceeds without a body; silent drops here have
			// bitten users before, so shout.
			r.logger.Warn("request body is not valid JSON, sending without body",
				"id", result.ID, "operation_id", req.OperationID, "error", err)
			payload = nil
		}
	}

	resp, err := r.api.Call(ctx, req.Method, r.api.URL(urlpath), payload)
	if err != nil {
		r.logger.Error("run failed",
			"id", result.ID, "state", state.String(), "urlpath", urlpath, "error", err)
		result.Messages = append(result.Messages, transport.Message(err))
		return result
	}

	result.StatusCode = resp.StatusCode
	result.ExecutionTime = resp.ExecutionTime
	result.Text = r.renderText(resp.Text)
	if data, err := r.api.HandleResponse(resp); err != nil {
		result.AuthExpired = transport.IsAuthExpired(err)
		result.Messages = append(result.Messages, transport.Message(err))
	} else {
		result.Payload = data
	}

	state = StateValidating
	if resp.StatusCode == expected {
		result.Success = true
	} else {
		result.Messages = append(result.Messages,
			fmt.Sprintf("Wrong status code (%d != %d)!", expected, resp.StatusCode))
	}

	state = StateDone
	r.logger.Info("run done",
		"id", result.ID,
		"state", state.String(),
		"method", req.Method.String(),
		"urlpath", urlpath,
		"status", resp.StatusCode,
		"expected", expected,
		"took_ms", resp.ExecutionTime,
		"success", result.Success,
	)
	return result
}

// renderText pretty-prints JSON response text and truncates long output
// with a visible marker. Validation never looks at this text.
func (r *Runner) renderText(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		text = string(pretty.Pretty([]byte(text)))
	}
	if r.truncate > 0 && len(text) > r.truncate {
		cut := r.truncate
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + " ..."
	}
	return text
}

// pathOperation pairs an operation with the path template it lives
// under, so the runner can fall back to the template when no row or
// caller-supplied path exists.
type pathOperation struct {
	swagger.Operation
	path string
}

func findOperation(doc *swagger.Document, operationID string) *pathOperation {
	var found *pathOperation
	doc.Walk(func(path string, method transport.Method, op swagger.Operation) {
		if found != nil {
			return
		}
		if op.ID(path, method) == operationID {
			found = &pathOperation{Operation: op, path: path}
		}
	})
	return found
}
