package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/contract"
	"github.com/goliatone/go-formflow/pkg/faults"
)

const (
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 1 << 20
)

// Option configures the shared HTTP transport of an adapter.
type Option func(*transport)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(t *transport) {
		if client != nil {
			t.http = client
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(t *transport) {
		if timeout > 0 {
			t.timeout = timeout
		}
	}
}

// WithToken authenticates requests with a static bearer token.
func WithToken(token string) Option {
	return WithTokenSource(func() string { return token })
}

// WithTokenSource authenticates requests with the token returned by fn.
func WithTokenSource(fn func() string) Option {
	return func(t *transport) {
		t.token = fn
	}
}

// WithContract checks request and response bodies against c.
func WithContract(c *contract.Contract) Option {
	return func(t *transport) {
		t.contract = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(t *transport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

type transport struct {
	http     *http.Client
	timeout  time.Duration
	token    func() string
	contract *contract.Contract
	logger   *zap.Logger
}

func newTransport(opts []Option) *transport {
	t := &transport{
		timeout: defaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	if t.http == nil {
		t.http = &http.Client{Timeout: t.timeout}
	}
	return t
}

// call describes one request.
type call struct {
	method         string
	url            string
	body           any
	requestSchema  string
	responseSchema string
	authenticated  bool
}

// do sends c and decodes the response into out. Failures are faults.
func (t *transport) do(ctx context.Context, c call, out any) error {
	var reader io.Reader
	if c.body != nil {
		if c.requestSchema != "" {
			if err := t.contract.Validate(c.requestSchema, c.body); err != nil {
				return faults.Wrap(faults.KindTransport, "", fmt.Errorf("client: %s %s: %w", c.method, c.url, err))
			}
		}
		raw, err := json.Marshal(c.body)
		if err != nil {
			return faults.Wrap(faults.KindTransport, "", fmt.Errorf("client: encode body: %w", err))
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, c.method, c.url, reader)
	if err != nil {
		return faults.Wrap(faults.KindTransport, "", fmt.Errorf("client: build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authenticated && t.token != nil {
		if token := strings.TrimSpace(t.token()); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := t.http.Do(req)
	if err != nil {
		t.logger.Warn("request failed", zap.String("method", c.method), zap.String("url", c.url), zap.Error(err))
		return transportFault(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return transportFault(err)
	}
	t.logger.Debug("request completed",
		zap.String("method", c.method),
		zap.String("url", c.url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		return classify(resp.StatusCode, body)
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if c.responseSchema != "" {
		if err := t.contract.ValidateJSON(c.responseSchema, body); err != nil {
			return faults.Wrap(faults.KindTransport, "", fmt.Errorf("client: %s %s: %w", c.method, c.url, err))
		}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return faults.Wrap(faults.KindTransport, "", fmt.Errorf("client: decode response: %w", err))
	}
	return nil
}

func transportFault(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return faults.Wrap(faults.KindTimeout, "", err)
	}
	return faults.Wrap(faults.KindTransport, "", err)
}

func join(base, path string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/") + "/" + strings.TrimLeft(path, "/")
}
