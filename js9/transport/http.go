package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// HTTP is the stateless request/response transport: every call is one POST
// to the helper's /msg endpoint and carries no state between calls.
type HTTP struct {
	log  *zap.SugaredLogger
	base string

	client                   *http.Client
	customizeRetryableClient func(*retryablehttp.Client)
}

type HTTPOption func(t *HTTP)

func WithHTTPLogger(l *zap.Logger) HTTPOption {
	return func(t *HTTP) {
		t.log = l.Named("js9_http").Sugar()
	}
}

// WithHTTPClient replaces the underlying HTTP client entirely.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(t *HTTP) {
		t.client = c
	}
}

// WithCustomizeRetryableClient adjusts the underlying retryable client
// before it is wrapped. Retries stay off unless the caller turns them on
// here; a call is never retried on the transport's own initiative.
func WithCustomizeRetryableClient(f func(r *retryablehttp.Client)) HTTPOption {
	return func(t *HTTP) {
		t.customizeRetryableClient = f
	}
}

type logAdapter struct {
	*zap.SugaredLogger
}

func (a *logAdapter) Printf(msg string, args ...interface{}) { a.Debugf(msg, args...) }

// NewHTTP builds the request/response transport for the given endpoint,
// e.g. "http://localhost:2718".
func NewHTTP(endpoint string, opts ...HTTPOption) *HTTP {
	t := &HTTP{
		log:  zap.NewNop().Sugar(),
		base: strings.TrimRight(endpoint, "/"),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.client == nil {
		retryClient := retryablehttp.NewClient()
		retryClient.RetryMax = 0
		retryClient.Logger = &logAdapter{SugaredLogger: t.log}
		if t.customizeRetryableClient != nil {
			t.customizeRetryableClient(retryClient)
		}
		t.client = retryClient.StandardClient()
	}
	return t
}

func (t *HTTP) Call(ctx context.Context, cmd *Command) (json.RawMessage, error) {
	return t.post(ctx, "/msg", cmd)
}

func (t *HTTP) Alive(ctx context.Context, cmd *Command) (json.RawMessage, error) {
	return t.post(ctx, "/alive", cmd)
}

// Ops returns nil: the request/response transport never learns what the
// page supports.
func (t *HTTP) Ops() []string { return nil }

func (t *HTTP) Close() error { return nil }

func (t *HTTP) post(ctx context.Context, path string, cmd *Command) (json.RawMessage, error) {
	b, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("encoding command: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.base+path, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Add("Content-Type", "application/json")

	t.log.Debugw("posting command", "URL", t.base+path, "Cmd", cmd.Cmd)
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, wrapNetErr(err, t.base)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ConnectionError{Endpoint: t.base, cause: fmt.Errorf("reading response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ConnectionError{
			Endpoint: t.base,
			cause:    fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}
	return normalize(body), nil
}

// normalize hands the body back as JSON. The helper answers with JSON when
// the page returned a value and with plain text otherwise; plain text comes
// back trimmed, as a JSON string.
func normalize(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		return json.RawMessage(append([]byte(nil), trimmed...))
	}
	s, _ := json.Marshal(strings.TrimSpace(string(body)))
	return s
}
