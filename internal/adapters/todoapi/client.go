// Package todoapi talks to the remote REST todo service.
package todoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	charmLog "github.com/charmbracelet/log"

	"github.com/hylla/lanes/internal/app"
)

// DefaultTimeout bounds each request when no timeout is configured.
const DefaultTimeout = 15 * time.Second

const maxResponseBytes = 4 << 20

// ErrMissingBaseURL reports a client built without a base URL.
var ErrMissingBaseURL = errors.New("todo api base url is required")

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *charmLog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client is the single REST client for the remote todo service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *charmLog.Logger
}

var _ app.TodoAPI = (*Client)(nil)

// NewClient builds a client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrMissingBaseURL
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     charmLog.New(io.Discard),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

type listResponse struct {
	Todos []app.RemoteTodo `json:"todos"`
	Total int              `json:"total"`
	Skip  int              `json:"skip"`
	Limit int              `json:"limit"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// ListTodos fetches every todo.
func (c *Client) ListTodos(ctx context.Context) ([]app.RemoteTodo, error) {
	var out listResponse
	if err := c.do(ctx, http.MethodGet, "/", nil, &out); err != nil {
		return nil, err
	}
	if out.Todos == nil {
		return []app.RemoteTodo{}, nil
	}
	return out.Todos, nil
}

// CreateTodo creates one todo.
func (c *Client) CreateTodo(ctx context.Context, in app.CreateTodoInput) (app.RemoteTodo, error) {
	var out app.RemoteTodo
	if err := c.do(ctx, http.MethodPost, "/add", in, &out); err != nil {
		return app.RemoteTodo{}, err
	}
	return out, nil
}

// UpdateTodo sends the non-nil patch fields for id.
func (c *Client) UpdateTodo(ctx context.Context, id int, patch app.TodoPatch) (app.RemoteTodo, error) {
	var out app.RemoteTodo
	if err := c.do(ctx, http.MethodPut, "/"+strconv.Itoa(id), patch, &out); err != nil {
		return app.RemoteTodo{}, err
	}
	return out, nil
}

// DeleteTodo deletes id. The response body is ignored.
func (c *Client) DeleteTodo(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "/"+strconv.Itoa(id), nil, nil)
}

// do sends one JSON request and decodes a 2xx body into result when non-nil.
// Non-2xx responses become *app.APIError carrying the server message.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("todo api request failed", "method", method, "path", path, "err", err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	c.logger.Debug("todo api request", "method", method, "path", path, "status", resp.StatusCode, "elapsed", time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &app.APIError{StatusCode: resp.StatusCode}
		var envelope errorResponse
		if json.Unmarshal(respBody, &envelope) == nil {
			apiErr.Message = strings.TrimSpace(envelope.Message)
		}
		return apiErr
	}
	if result == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}
