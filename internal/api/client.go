// Package api is the HTTP client for the remote task service. Responses are
// checked against the declared shapes before they reach the caller.
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"tasktracker/internal/task"
)

// DefaultTimeout bounds every request when no timeout is configured.
const DefaultTimeout = 10 * time.Second

const maxBodySize = 4 << 20

// Client talks to GET/POST /tasks, PATCH /tasks/{id} and GET /insights.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// New creates a client for baseURL, e.g. "http://localhost:5000".
func New(baseURL string, timeout time.Duration) (*Client, error) {
	return NewWithHTTPClient(baseURL, timeout, &http.Client{})
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(baseURL string, timeout time.Duration, hc *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid api url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api url %q: scheme must be http or https", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		http:    hc,
		timeout: timeout,
	}, nil
}

// ListTasks returns the tasks matching q. An empty result is an empty slice.
func (c *Client) ListTasks(ctx context.Context, q task.Query) ([]task.Task, error) {
	const op = "list tasks"
	path := "/tasks"
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}
	var raw []wireTask
	status, err := c.do(ctx, op, http.MethodGet, path, nil, &raw)
	if err != nil {
		return nil, err
	}
	tasks := make([]task.Task, 0, len(raw))
	for i, w := range raw {
		t, err := w.toTask()
		if err != nil {
			return nil, malformed(op, status, "task %d: %v", i, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// Insights fetches the aggregate summary.
func (c *Client) Insights(ctx context.Context) (task.Insights, error) {
	const op = "get insights"
	var raw wireInsights
	status, err := c.do(ctx, op, http.MethodGet, "/insights", nil, &raw)
	if err != nil {
		return task.Insights{}, err
	}
	ins, err := raw.toInsights()
	if err != nil {
		return task.Insights{}, malformed(op, status, "%v", err)
	}
	return ins, nil
}

// CreateTask posts d and returns the created task.
func (c *Client) CreateTask(ctx context.Context, d task.Draft) (task.Task, error) {
	const op = "create task"
	var raw wireTask
	status, err := c.do(ctx, op, http.MethodPost, "/tasks", d, &raw)
	if err != nil {
		return task.Task{}, err
	}
	t, err := raw.toTask()
	if err != nil {
		return task.Task{}, malformed(op, status, "%v", err)
	}
	return t, nil
}

// UpdateTask sends exactly the non-nil fields of p.
func (c *Client) UpdateTask(ctx context.Context, id string, p task.Patch) (task.Task, error) {
	const op = "update task"
	var raw wireTask
	status, err := c.do(ctx, op, http.MethodPatch, "/tasks/"+url.PathEscape(id), p, &raw)
	if err != nil {
		return task.Task{}, err
	}
	t, err := raw.toTask()
	if err != nil {
		return task.Task{}, malformed(op, status, "%v", err)
	}
	return t, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := sonic.ConfigStd.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("%s: encode body: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, &NetworkError{Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, &ServerError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(resp.StatusCode, data)}
	}
	if out == nil {
		return resp.StatusCode, nil
	}
	if err := sonic.ConfigStd.Unmarshal(data, out); err != nil {
		return resp.StatusCode, malformed(op, resp.StatusCode, "%v", err)
	}
	return resp.StatusCode, nil
}

func errorMessage(status int, body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := sonic.ConfigStd.Unmarshal(body, &e); err == nil && strings.TrimSpace(e.Error) != "" {
		return e.Error
	}
	if text := strings.TrimSpace(string(body)); text != "" && len(text) < 200 && !strings.HasPrefix(text, "{") {
		return text
	}
	return http.StatusText(status)
}
