// Package client is a small HTTP client for the mcpherd daemon API. The
// CLI uses it for every command except serve.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to a running mcpherd daemon.
type Client struct {
	baseURL string
	client  *http.Client
}

// Config holds client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig returns the default daemon address.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:7466/api",
		Timeout: 10 * time.Second,
	}
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Client{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Status mirrors the daemon's status JSON.
type Status struct {
	ID        string `json:"id"`
	State     string `json:"state"`
	PID       int    `json:"pid,omitempty"`
	Port      int    `json:"port,omitempty"`
	ExitCode  *int   `json:"exit_code,omitempty"`
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	HasStderr bool   `json:"has_stderr"`
}

// OutputLine mirrors the daemon's output JSON.
type OutputLine struct {
	Seq    int    `json:"seq"`
	Text   string `json:"text"`
	Source string `json:"source"`
}

// ServerEntry mirrors one element of the list response.
type ServerEntry struct {
	ID     string          `json:"id"`
	Config json.RawMessage `json:"config"`
	Status Status          `json:"status"`
}

func (c *Client) Start(ctx context.Context, id string) (Status, error) {
	return c.postStatus(ctx, "/servers/"+id+"/start")
}

func (c *Client) Stop(ctx context.Context, id string) (Status, error) {
	return c.postStatus(ctx, "/servers/"+id+"/stop")
}

func (c *Client) Kill(ctx context.Context, id string) (Status, error) {
	return c.postStatus(ctx, "/servers/"+id+"/kill")
}

func (c *Client) Status(ctx context.Context, id string) (Status, error) {
	var st Status
	err := c.do(ctx, http.MethodGet, "/servers/"+id+"/status", nil, &st)
	return st, err
}

func (c *Client) Output(ctx context.Context, id string) ([]OutputLine, error) {
	var lines []OutputLine
	err := c.do(ctx, http.MethodGet, "/servers/"+id+"/output", nil, &lines)
	return lines, err
}

func (c *Client) List(ctx context.Context) ([]ServerEntry, error) {
	var entries []ServerEntry
	err := c.do(ctx, http.MethodGet, "/servers", nil, &entries)
	return entries, err
}

// Add registers a server definition with the daemon's config store.
func (c *Client) Add(ctx context.Context, id string, cfg any) error {
	body := map[string]any{"id": id, "config": cfg}
	return c.do(ctx, http.MethodPost, "/servers", body, nil)
}

func (c *Client) Remove(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/servers/"+id, nil, nil)
}

func (c *Client) postStatus(ctx context.Context, path string) (Status, error) {
	var st Status
	err := c.do(ctx, http.MethodPost, path, nil, &st)
	return st, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("daemon not reachable at %s: %w", c.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var er struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &er) == nil && er.Error != "" {
			return fmt.Errorf("daemon error: %s", er.Error)
		}
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}
