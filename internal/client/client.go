// Package client talks to a dealflow server over its HTTP API
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/thenoetrevino/dealflow/internal/models"
)

const (
	defaultTimeout  = 15 * time.Second
	defaultRetryMax = 2
)

// ErrInvalidBaseURL is returned by New for URLs without scheme or host
var ErrInvalidBaseURL = errors.New("server URL must be an absolute http or https URL")

// APIError is a non-2xx answer from the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server answered %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("server answered %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps status codes onto the shared domain errors so callers can
// use errors.Is exactly as they would against the local services
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return models.ErrNotFound
	case http.StatusConflict:
		return models.ErrAlreadyInColumn
	}
	return nil
}

// Client is a typed wrapper around the REST API
type Client struct {
	base   *url.URL
	token  string
	http   *retryablehttp.Client
	stream *http.Client
	logger *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithToken sends token as a bearer token on every request
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithLogger routes retry logging through logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
			c.http.Logger = logger
		}
	}
}

// WithRetry overrides the retry count and the backoff bounds
func WithRetry(max int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.http.RetryMax = max
		c.http.RetryWaitMin = waitMin
		c.http.RetryWaitMax = waitMax
	}
}

// WithTimeout bounds each request attempt
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.HTTPClient.Timeout = d }
}

// New creates a client for the server at baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = defaultRetryMax
	rc.HTTPClient.Timeout = defaultTimeout
	rc.Logger = slog.Default()
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{
		base:   u,
		http:   rc,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	// event streams stay open, so they must not inherit the request timeout
	c.stream = &http.Client{Transport: rc.HTTPClient.Transport}
	return c, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = c.base.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = sonic.Marshal(body); err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
	}

	var raw any
	if payload != nil {
		raw = payload
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.endpoint(path, query), raw)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var msg struct {
			Message string `json:"message"`
		}
		if sonic.Unmarshal(data, &msg) == nil {
			apiErr.Message = msg.Message
		}
		return apiErr
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func pageQuery(query string, page, pageSize int) url.Values {
	q := url.Values{}
	if query != "" {
		q.Set("q", query)
	}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		q.Set("pageSize", strconv.Itoa(pageSize))
	}
	return q
}

// Health checks that the server is reachable
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, nil)
}

// ListStages returns the pipeline stages in board order
func (c *Client) ListStages(ctx context.Context) ([]*models.Stage, error) {
	var stages []*models.Stage
	if err := c.do(ctx, http.MethodGet, "/api/stages", nil, nil, &stages); err != nil {
		return nil, err
	}
	return stages, nil
}

// ListByStage returns one page of a stage's opportunities
func (c *Client) ListByStage(ctx context.Context, stageID int, query string, page, pageSize int) (*models.PageResult[*models.OpportunitySummary], error) {
	q := pageQuery(query, page, pageSize)
	q.Set("stageId", strconv.Itoa(stageID))

	var result models.PageResult[*models.OpportunitySummary]
	if err := c.do(ctx, http.MethodGet, "/api/opportunities", q, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// MoveOpportunity moves an opportunity to another stage
func (c *Client) MoveOpportunity(ctx context.Context, id, stageID int) error {
	body := map[string]int{"stageId": stageID}
	return c.do(ctx, http.MethodPatch, "/api/opportunities/"+strconv.Itoa(id), nil, body, nil)
}

// ListStatuses returns the task board's statuses
func (c *Client) ListStatuses(ctx context.Context) ([]models.TaskStatusInfo, error) {
	var statuses []models.TaskStatusInfo
	if err := c.do(ctx, http.MethodGet, "/api/task-statuses", nil, nil, &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

// ListByStatus returns one page of tasks in a status column
func (c *Client) ListByStatus(ctx context.Context, status models.TaskStatus, query string, page, pageSize int) (*models.PageResult[*models.Task], error) {
	q := pageQuery(query, page, pageSize)
	q.Set("status", string(status))

	var result models.PageResult[*models.Task]
	if err := c.do(ctx, http.MethodGet, "/api/tasks", q, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// MoveTask moves a task to another status
func (c *Client) MoveTask(ctx context.Context, taskID int, status models.TaskStatus) error {
	body := map[string]models.TaskStatus{"status": status}
	return c.do(ctx, http.MethodPatch, "/api/tasks/"+strconv.Itoa(taskID), nil, body, nil)
}

// Chat sends a conversation to the server's assistant
func (c *Client) Chat(ctx context.Context, messages []models.ChatMessage) (*models.ChatMessage, error) {
	var resp struct {
		Message *models.ChatMessage `json:"message"`
	}
	body := map[string]any{"messages": messages}
	if err := c.do(ctx, http.MethodPost, "/api/chat", nil, body, &resp); err != nil {
		return nil, err
	}
	return resp.Message, nil
}
