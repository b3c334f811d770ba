package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/okian/turnlat/internal/adapters/repository"
	"github.com/okian/turnlat/internal/domain/ingest"
)

// Backpressure retry policy for POST /events.
const (
	maxRetries   = 5
	retryBackoff = 20 * time.Millisecond
)

// Client talks to a running turnlat server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// OpenSession registers id with POST /sessions.
func (c *Client) OpenSession(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodPost, "/sessions", map[string]string{"session_id": id})
	if err != nil {
		return err
	}
	return expectStatus(resp, http.StatusCreated)
}

// PostEvent submits one event, retrying while the server reports backpressure.
// It returns the number of retries spent.
func (c *Client) PostEvent(ctx context.Context, ev ingest.RawEvent) (int, error) {
	for attempt := 0; ; attempt++ {
		resp, err := c.do(ctx, http.MethodPost, "/events", ev)
		if err != nil {
			return attempt, err
		}
		if resp.StatusCode != http.StatusTooManyRequests || attempt == maxRetries {
			return attempt, expectStatus(resp, http.StatusAccepted)
		}
		_ = drain(resp)

		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-time.After(retryBackoff * time.Duration(attempt+1)):
		}
	}
}

// CloseSession closes id and returns the final report.
func (c *Client) CloseSession(ctx context.Context, id string) (repository.Report, error) {
	return c.report(ctx, http.MethodDelete, "/sessions/"+url.PathEscape(id))
}

// Report fetches the stored report for a closed session.
func (c *Client) Report(ctx context.Context, id string) (repository.Report, error) {
	return c.report(ctx, http.MethodGet, "/reports/"+url.PathEscape(id))
}

func (c *Client) report(ctx context.Context, method, path string) (repository.Report, error) {
	var rep repository.Report
	resp, err := c.do(ctx, method, path, nil)
	if err != nil {
		return rep, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return rep, fmt.Errorf("%w: %s %s: %d %s", ErrUnexpectedStatus, method, path, resp.StatusCode, bytes.TrimSpace(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		return rep, fmt.Errorf("decode report: %w", err)
	}
	return rep, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}

func expectStatus(resp *http.Response, want int) error {
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == want {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, bytes.TrimSpace(body))
}

func drain(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()
	_, err := io.Copy(io.Discard, resp.Body)
	return err
}
