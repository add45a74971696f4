package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Response is the raw outcome of one API call, before classification.
type Response struct {
	StatusCode    int
	Text          string
	ExecutionTime int64 // milliseconds
	Size          int64
}

// Client is the low-level API call wrapper. It rides on a caller-supplied
// authenticated *http.Client; credential acquisition happens elsewhere.
type Client struct {
	session *http.Client
	apiRoot string
	logger  *slog.Logger
}

// New creates a client for the API rooted at apiRoot. A nil session falls
// back to a plain HTTP client with a 30s timeout.
func New(session *http.Client, apiRoot string, logger *slog.Logger) *Client {
	if session == nil {
		session = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		session: session,
		apiRoot: strings.TrimRight(apiRoot, "/"),
		logger:  logger,
	}
}

// URL returns the absolute URL for an API-root-relative path.
func (c *Client) URL(urlpath string) string {
	if strings.HasPrefix(urlpath, "http://") || strings.HasPrefix(urlpath, "https://") {
		return urlpath
	}
	if !strings.HasPrefix(urlpath, "/") {
		urlpath = "/" + urlpath
	}
	return c.apiRoot + urlpath
}

// Call issues one HTTP request and measures wall-clock elapsed time.
// payload, when non-nil, is sent as a JSON body. Network failures come
// back as a transport-kind APIError; HTTP-level outcomes are returned
// raw for HandleResponse to classify.
func (c *Client) Call(ctx context.Context, method Method, url string, payload any) (*Response, error) {
	c.logger.Info("api call", "method", method.String(), "url", url)

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, &APIError{Kind: KindTransport, Message: "encoding payload", Err: err}
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method.String(), url, body)
	if err != nil {
		return nil, &APIError{Kind: KindTransport, Message: "creating request", Err: err}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.session.Do(req)
	if err != nil {
		c.logger.Error("api call failed", "method", method.String(), "url", url, "error", err)
		return nil, &APIError{Kind: KindTransport, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		c.logger.Error("reading response failed", "method", method.String(), "url", url, "error", err)
		return nil, &APIError{Kind: KindTransport, Message: err.Error(), Err: err}
	}

	c.logger.Info("api call done",
		"method", method.String(),
		"url", url,
		"status", resp.StatusCode,
		"took_ms", elapsed,
		"size", humanize.Bytes(uint64(len(text))),
	)

	return &Response{
		StatusCode:    resp.StatusCode,
		Text:          string(text),
		ExecutionTime: elapsed,
		Size:          int64(len(text)),
	}, nil
}

// Get fetches data from an API-root-relative path.
func (c *Client) Get(ctx context.Context, urlpath string) (any, error) {
	resp, err := c.Call(ctx, MethodGet, c.URL(urlpath), nil)
	if err != nil {
		return nil, err
	}
	return c.HandleResponse(resp)
}

// Post sends payload to an API-root-relative path.
func (c *Client) Post(ctx context.Context, urlpath string, payload any) (any, error) {
	resp, err := c.Call(ctx, MethodPost, c.URL(urlpath), payload)
	if err != nil {
		return nil, err
	}
	return c.HandleResponse(resp)
}

// Put puts payload on an API-root-relative path.
func (c *Client) Put(ctx context.Context, urlpath string, payload any) (any, error) {
	resp, err := c.Call(ctx, MethodPut, c.URL(urlpath), payload)
	if err != nil {
		return nil, err
	}
	return c.HandleResponse(resp)
}

// Delete deletes an API-root-relative path.
func (c *Client) Delete(ctx context.Context, urlpath string) (any, error) {
	resp, err := c.Call(ctx, MethodDelete, c.URL(urlpath), nil)
	if err != nil {
		return nil, err
	}
	return c.HandleResponse(resp)
}

// HandleResponse classifies an HTTP outcome: upstream failures become
// APIErrors, 204 passes the raw text through, and everything else is
// parsed as JSON. A response with no valid JSON body becomes a nil
// payload, not an error.
func (c *Client) HandleResponse(resp *Response) (any, error) {
	switch resp.StatusCode {
	case http.StatusNotFound:
		msg := fmt.Sprintf("%d: %s", resp.StatusCode, htmlBodySnippet(resp.Text))
		c.logger.Error("api error", "status", resp.StatusCode, "message", msg)
		return nil, &APIError{Kind: KindUpstream, StatusCode: resp.StatusCode, Message: msg}
	case http.StatusInternalServerError:
		msg := fmt.Sprintf("%d: %s", resp.StatusCode, resp.Text)
		c.logger.Error("api error", "status", resp.StatusCode, "message", msg)
		return nil, &APIError{Kind: KindUpstream, StatusCode: resp.StatusCode, Message: msg}
	case http.StatusNoContent:
		return resp.Text, nil
	}

	var data any
	if err := json.Unmarshal([]byte(resp.Text), &data); err != nil {
		return nil, nil
	}

	if obj, ok := data.(map[string]any); ok {
		if errVal, ok := obj["error"]; ok {
			msg := fmt.Sprintf("%v", errVal)
			kind := KindUpstream
			if strings.Contains(msg, "Invalid or expired access token") {
				kind = KindAuthExpired
			}
			c.logger.Error("api error", "status", resp.StatusCode, "message", msg)
			return nil, &APIError{Kind: kind, StatusCode: resp.StatusCode, Message: msg}
		}
	}
	return data, nil
}

// htmlBodySnippet extracts the inner <body> of an HTML error page,
// falling back to the full text.
func htmlBodySnippet(text string) string {
	start := strings.Index(text, "<body>")
	if start == -1 {
		return strings.TrimSpace(text)
	}
	rest := text[start+len("<body>"):]
	end := strings.Index(rest, "</body>")
	if end == -1 {
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(rest[:end])
}
