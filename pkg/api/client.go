// Package api is the HTTP client of the task REST API.
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
	"time"

	"github.com/harrisonrobin/tasktree/pkg/model"
)

// ErrStatus is wrapped by every error caused by a non-success response.
var ErrStatus = errors.New("unexpected response status")

// StatusError carries the status of a failed call.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: %d %s", ErrStatus, e.Code, strings.TrimSpace(e.Body))
}

func (e *StatusError) Unwrap() error { return ErrStatus }

// Client talks to /api/tasks on a base URL.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client. A zero timeout means no timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// List fetches the whole nested tree.
func (c *Client) List(ctx context.Context) ([]*model.TaskNode, error) {
	var roots []*model.TaskNode
	if err := c.do(ctx, http.MethodGet, "/api/tasks", nil, &roots); err != nil {
		return nil, err
	}
	return roots, nil
}

// ReplaceAll overwrites the remote tree.
func (c *Client) ReplaceAll(ctx context.Context, roots []*model.TaskNode) error {
	if roots == nil {
		roots = []*model.TaskNode{}
	}
	return c.do(ctx, http.MethodPost, "/api/tasks", roots, nil)
}

// Update applies a partial update to one task.
func (c *Client) Update(ctx context.Context, id string, patch model.TaskPatch) error {
	return c.do(ctx, http.MethodPut, "/api/tasks/"+url.PathEscape(id), patch, nil)
}

// Delete removes one task.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil, nil)
}

// Clear removes every task.
func (c *Client) Clear(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: %w", method, path, &StatusError{Code: resp.StatusCode, Body: string(b)})
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}
