// Package api talks to the remote todo HTTP API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/idilsaglam/todo-client/internal/model"
)

const (
	todosPath       = "/api/todos"
	requestIDHeader = "X-Request-ID"
)

// StatusError is returned when the server answers with a non-2xx status.
// Anything else coming out of Client is a transport or decode failure.
type StatusError struct {
	Method string
	Path   string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d %s", e.Method, e.Path, e.Code, http.StatusText(e.Code))
}

// IsStatus reports whether err carries a non-2xx response.
func IsStatus(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}

// Todos is the subset of the API the sync layer depends on.
type Todos interface {
	List(ctx context.Context) ([]model.Item, error)
	Create(ctx context.Context, title string) (model.Item, error)
	SetCompleted(ctx context.Context, id string, completed bool) error
	Delete(ctx context.Context, id string) error
}

// Client is the HTTP implementation of Todos.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *log.Logger
}

// Option tunes a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for per-request debug lines.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New builds a client for the API rooted at baseURL (e.g. http://localhost:5000).
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base url %q: missing host", baseURL)
	}
	c := &Client{
		base:   u,
		http:   http.DefaultClient,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string { return c.base.String() }

type createRequest struct {
	Title string `json:"title"`
}

type updateRequest struct {
	Completed bool `json:"completed"`
}

// List fetches the full collection in server order.
func (c *Client) List(ctx context.Context) ([]model.Item, error) {
	var items []model.Item
	if err := c.do(ctx, http.MethodGet, todosPath, nil, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Item{}
	}
	return items, nil
}

// Create posts a new item and returns it with the server-assigned fields.
func (c *Client) Create(ctx context.Context, title string) (model.Item, error) {
	var it model.Item
	if err := c.do(ctx, http.MethodPost, todosPath, createRequest{Title: title}, &it); err != nil {
		return model.Item{}, err
	}
	if it.ID == "" {
		return model.Item{}, fmt.Errorf("create: response has no _id")
	}
	return it, nil
}

// SetCompleted sends the new completed flag. The response body is ignored.
func (c *Client) SetCompleted(ctx context.Context, id string, completed bool) error {
	return c.do(ctx, http.MethodPut, itemPath(id), updateRequest{Completed: completed}, nil)
}

// Delete removes the item on the server.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, itemPath(id), nil, nil)
}

func itemPath(id string) string {
	return todosPath + "/" + url.PathEscape(id)
}

// do sends one request. body is JSON-encoded when non-nil; out is decoded
// from a 2xx response when non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("json marshal: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, rd)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	rid := uuid.NewString()
	req.Header.Set(requestIDHeader, rid)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", method, "path", path, "request_id", rid, "err", err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("request", "method", method, "path", path, "request_id", rid, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: json decode: %w", method, path, err)
	}
	return nil
}
