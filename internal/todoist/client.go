// Package todoist is the task queue adapter over the Todoist REST API v1.
package todoist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"taskrelay/internal/httpclient"
)

// DefaultBaseURL is the Todoist REST API v1 root.
const DefaultBaseURL = "https://api.todoist.com/api/v1"

const pageLimit = 200

// ErrProjectNotFound is returned by FindProject when no project matches.
var ErrProjectNotFound = errors.New("project not found")

// Project is the subset of a Todoist project the worker needs.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Task is the subset of a Todoist task the worker reads and rewrites.
type Task struct {
	ID          string   `json:"id"`
	ProjectID   string   `json:"project_id"`
	Content     string   `json:"content"`
	Description string   `json:"description"`
	Labels      []string `json:"labels"`
}

type page[T any] struct {
	Results    []T     `json:"results"`
	NextCursor *string `json:"next_cursor"`
}

// Client talks to Todoist on behalf of one API token.
type Client struct {
	http *httpclient.Client
}

// Option customizes a Client.
type Option func(*httpclient.Config)

// WithBaseURL points the client at another API root (tests, proxies).
func WithBaseURL(base string) Option {
	return func(cfg *httpclient.Config) { cfg.BaseURL = base }
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *httpclient.Config) { cfg.HTTPClient = c }
}

// New creates a Client authenticated with token.
func New(token string, opts ...Option) *Client {
	cfg := httpclient.Config{
		Service:      "Todoist",
		BaseURL:      DefaultBaseURL,
		Header:       http.Header{"Authorization": []string{"Bearer " + token}},
		Limiter:      httpclient.PerSecond(4),
		ErrorMessage: errorMessage,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Client{http: httpclient.New(cfg)}
}

// ListProjects returns every project the token can see.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	projects, err := listAll[Project](ctx, c, "/projects", nil)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// FindProject returns the ID of the project whose name matches name
// case-insensitively.
func (c *Client) FindProject(ctx context.Context, name string) (string, error) {
	projects, err := c.ListProjects(ctx)
	if err != nil {
		return "", err
	}
	for _, p := range projects {
		if strings.EqualFold(p.Name, name) {
			return p.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrProjectNotFound, name)
}

// ListTasks returns every active task in the project, following pagination.
func (c *Client) ListTasks(ctx context.Context, projectID string) ([]Task, error) {
	tasks, err := listAll[Task](ctx, c, "/tasks", url.Values{"project_id": []string{projectID}})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// AddComment appends a comment to a task.
func (c *Client) AddComment(ctx context.Context, taskID, text string) error {
	err := c.http.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/comments",
		Body:   map[string]string{"task_id": taskID, "content": text},
		Header: requestID(),
	}, nil)
	if err != nil {
		return fmt.Errorf("add comment to %s: %w", taskID, err)
	}
	return nil
}

// SetLabels replaces the task's label set.
func (c *Client) SetLabels(ctx context.Context, taskID string, labels []string) error {
	if labels == nil {
		labels = []string{}
	}
	err := c.http.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/tasks/" + url.PathEscape(taskID),
		Body:   map[string][]string{"labels": labels},
		Header: requestID(),
	}, nil)
	if err != nil {
		return fmt.Errorf("update labels on %s: %w", taskID, err)
	}
	return nil
}

func listAll[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	params := url.Values{}
	for k, v := range query {
		params[k] = v
	}
	params.Set("limit", fmt.Sprint(pageLimit))

	var all []T
	for {
		var p page[T]
		if err := c.http.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: path, Query: params}, &p); err != nil {
			return nil, err
		}
		all = append(all, p.Results...)
		if p.NextCursor == nil || *p.NextCursor == "" {
			return all, nil
		}
		params.Set("cursor", *p.NextCursor)
	}
}

// requestID lets Todoist drop duplicate writes if a request is replayed.
func requestID() http.Header {
	return http.Header{"X-Request-Id": []string{uuid.NewString()}}
}

func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return "Unknown error"
}
