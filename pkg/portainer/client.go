// Package portainer implements the stack backend on top of the Portainer
// REST API.
package portainer

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

	"github.com/hashicorp/go-cleanhttp"
	"go.uber.org/zap"

	"github.com/stack-sync/stack-sync/pkg/envfile"
	"github.com/stack-sync/stack-sync/pkg/errdefs"
)

// APIKeyHeader carries the Portainer access token.
const APIKeyHeader = "X-API-Key"

// Client is a minimal Portainer API client. It is safe for concurrent use.
type Client struct {
	host    string
	baseURL string
	apiKey  string
	http    *http.Client
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every API call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// NewClient returns a client for the Portainer server at host.
func NewClient(host, apiKey string, opts ...Option) *Client {
	c := &Client{
		host:    host,
		baseURL: strings.TrimRight(host, "/") + "/api",
		apiKey:  apiKey,
		http:    cleanhttp.DefaultPooledClient(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root, e.g. https://portainer.example.com/api.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do sends a request and decodes a JSON response into out when out is not
// nil. op names the capability for error messages.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	backendErr := func(status int, err error) error {
		return &errdefs.BackendError{Op: op, Target: c.host, Method: method, Path: path, Status: status, Err: err}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s payload: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return backendErr(0, err)
	}
	req.Header.Set(APIKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := zap.L().With(zap.String("method", method), zap.String("path", path))
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Debug("Portainer request failed", zap.Error(err))
		return backendErr(0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return backendErr(resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}
	log.Debug("Portainer request", zap.Int("status", resp.StatusCode), zap.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var cause error
		if msg := decodeErrorMessage(data); msg != "" {
			cause = errors.New(msg)
		}
		return backendErr(resp.StatusCode, cause)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return backendErr(resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

// ListStacks returns every stack visible to the API key.
func (c *Client) ListStacks(ctx context.Context) ([]Stack, error) {
	var stacks []Stack
	if err := c.do(ctx, "list stacks", http.MethodGet, "/stacks", nil, &stacks); err != nil {
		return nil, err
	}
	return stacks, nil
}

// FindStack returns the stack called name, or nil when there is none. The
// API has no name filter, so the full list is scanned.
func (c *Client) FindStack(ctx context.Context, name string) (*Stack, error) {
	stacks, err := c.ListStacks(ctx)
	if err != nil {
		return nil, err
	}
	for i := range stacks {
		if stacks[i].Name == name {
			return &stacks[i], nil
		}
	}
	return nil, nil
}

// StackFile returns the compose content of stack id.
func (c *Client) StackFile(ctx context.Context, id int64) (string, error) {
	var resp stackFileResponse
	path := fmt.Sprintf("/stacks/%d/file", id)
	if err := c.do(ctx, "get stack file", http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}
	return resp.StackFileContent, nil
}

// CreateStack creates a standalone compose stack on endpointID.
func (c *Client) CreateStack(ctx context.Context, endpointID uint64, name, compose string, env []envfile.Var) (*Stack, error) {
	payload := createStackPayload{Name: name, StackFileContent: compose, Env: env}
	path := fmt.Sprintf("/stacks/create/standalone/string?endpointId=%d", endpointID)
	var stack Stack
	if err := c.do(ctx, "create", http.MethodPost, path, payload, &stack); err != nil {
		return nil, err
	}
	return &stack, nil
}

// UpdateStack replaces the compose content and env of stack id.
func (c *Client) UpdateStack(ctx context.Context, id int64, endpointID uint64, compose string, env []envfile.Var, pullImage bool) (*Stack, error) {
	payload := updateStackPayload{StackFileContent: compose, Env: env, PullImage: pullImage}
	path := fmt.Sprintf("/stacks/%d?endpointId=%d", id, endpointID)
	var stack Stack
	if err := c.do(ctx, "update", http.MethodPut, path, payload, &stack); err != nil {
		return nil, err
	}
	return &stack, nil
}

// StartStack starts stack id.
func (c *Client) StartStack(ctx context.Context, id int64, endpointID uint64) error {
	path := fmt.Sprintf("/stacks/%d/start?endpointId=%d", id, endpointID)
	return c.do(ctx, "start", http.MethodPost, path, nil, nil)
}

// StopStack stops stack id.
func (c *Client) StopStack(ctx context.Context, id int64, endpointID uint64) error {
	path := fmt.Sprintf("/stacks/%d/stop?endpointId=%d", id, endpointID)
	return c.do(ctx, "stop", http.MethodPost, path, nil, nil)
}
