// Package swagger models the Swagger 2.0 description document published
// by the banking API and memoizes fetched versions.
package swagger

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/openbank/apitester/internal/transport"
)

const definitionsPrefix = "#/definitions/"

// Document is one parsed API description. It is never mutated after
// parsing.
type Document struct {
	Swagger     string                `json:"swagger"`
	Info        Info                  `json:"info"`
	BasePath    string                `json:"basePath"`
	Paths       map[string]PathItem   `json:"paths"`
	Definitions map[string]Definition `json:"definitions"`
}

// Info identifies the described API.
type Info struct {
	Title   string `json:"title"`
	Version string `json:"version"`
}

// PathItem maps a lowercase HTTP method onto its operation.
type PathItem map[string]Operation

// Operation is one (path, method) entry of the description.
type Operation struct {
	OperationID string              `json:"operationId"`
	Summary     string              `json:"summary"`
	Parameters  []Parameter         `json:"parameters"`
	Responses   map[string]Response `json:"responses"`
}

// Parameter is a declared operation parameter. Body parameters carry a
// schema reference into the definitions table.
type Parameter struct {
	Name     string     `json:"name"`
	In       string     `json:"in"`
	Required bool       `json:"required"`
	Schema   *SchemaRef `json:"schema"`
}

// SchemaRef is a JSON reference to a definition.
type SchemaRef struct {
	Ref string `json:"$ref"`
}

// DefinitionName resolves the reference to a definitions-table key,
// or "" when the reference has an unexpected shape.
func (s *SchemaRef) DefinitionName() string {
	if s == nil || !strings.HasPrefix(s.Ref, definitionsPrefix) {
		return ""
	}
	return strings.TrimPrefix(s.Ref, definitionsPrefix)
}

// Response is a declared response of an operation.
type Response struct {
	Description string `json:"description"`
}

// Definition is a named schema in the definitions table.
type Definition struct {
	Required   []string            `json:"required"`
	Properties map[string]Property `json:"properties"`
}

// Property is one field of a definition.
type Property struct {
	Type    string `json:"type"`
	Example any    `json:"example"`
}

// methodOrder fixes the iteration order over a path's operations.
var methodOrder = []transport.Method{
	transport.MethodGet,
	transport.MethodPost,
	transport.MethodPut,
	transport.MethodDelete,
}

// Operation looks up the operation for a path and method.
func (d *Document) Operation(path string, method transport.Method) (*Operation, bool) {
	item, ok := d.Paths[path]
	if !ok {
		return nil, false
	}
	op, ok := item[method.Lower()]
	if !ok {
		return nil, false
	}
	return &op, true
}

// Walk visits every operation in deterministic order: paths sorted
// lexically, methods in GET/POST/PUT/DELETE order.
func (d *Document) Walk(fn func(path string, method transport.Method, op Operation)) {
	paths := make([]string, 0, len(d.Paths))
	for p := range d.Paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		item := d.Paths[p]
		for _, m := range methodOrder {
			if op, ok := item[m.Lower()]; ok {
				fn(p, m, op)
			}
		}
	}
}

// DeclaredSuccessCode returns the operation's declared 2xx response code
// when it declares exactly one; the per-method default applies otherwise.
func (op *Operation) DeclaredSuccessCode() (int, bool) {
	var codes []int
	for key := range op.Responses {
		code, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		if code >= 200 && code < 300 {
			codes = append(codes, code)
		}
	}
	if len(codes) == 1 {
		return codes[0], true
	}
	return 0, false
}

// ID returns the operation id, synthesizing one from method and path for
// descriptions that omit it.
func (op *Operation) ID(path string, method transport.Method) string {
	if op.OperationID != "" {
		return op.OperationID
	}
	return method.Lower() + strings.NewReplacer("/", "_", "{", "", "}", "").Replace(path)
}

// Parse decodes a description document. A payload without the expected
// top-level path mapping is treated as an upstream error carrying the
// provider's own code and message.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &transport.APIError{
			Kind:    transport.KindUpstream,
			Message: "description is not valid JSON",
			Err:     err,
		}
	}
	if len(doc.Paths) == 0 {
		return nil, providerError(data)
	}
	return &doc, nil
}

// providerError digs the provider's error code/message out of a payload
// that is not a description document.
func providerError(data []byte) error {
	var payload struct {
		Code    any    `json:"code"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(data, &payload)

	switch {
	case payload.Code != nil && payload.Message != "":
		return &transport.APIError{
			Kind:    transport.KindUpstream,
			Message: fmt.Sprintf("%v %s", normalizeCode(payload.Code), payload.Message),
		}
	case payload.Error != "":
		return &transport.APIError{Kind: transport.KindUpstream, Message: payload.Error}
	case payload.Message != "":
		return &transport.APIError{Kind: transport.KindUpstream, Message: payload.Message}
	}
	return &transport.APIError{Kind: transport.KindUpstream, Message: "description has no paths"}
}

// normalizeCode renders numeric JSON codes without a trailing ".0".
func normalizeCode(code any) string {
	if f, ok := code.(float64); ok && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return fmt.Sprintf("%v", code)
}
