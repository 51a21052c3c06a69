package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	model "github.com/okian/armpredict/internal/domain/model"
	"github.com/okian/armpredict/internal/domain/types"
)

// ErrUnhealthy is returned when /healthz does not answer 200.
var ErrUnhealthy = errors.New("probe: server unhealthy")

// APIError is a non-2xx answer carrying the server's error envelope.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("probe: status %d", e.Status)
	}
	return fmt.Sprintf("probe: status %d: %s: %s", e.Status, e.Code, e.Message)
}

// Client is a thin JSON client for the armpredict API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Health checks that the server answers /healthz.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// Analyze posts a matchup and returns the new session.
func (c *Client) Analyze(ctx context.Context, req types.AnalyzeRequest) (*types.SessionView, error) {
	var out types.SessionView
	if err := c.call(ctx, http.MethodPost, "/analysis", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StartReview starts a review; a nil request reviews the session's own matchup.
func (c *Client) StartReview(ctx context.Context, id string, req *model.ReviewRequest) (*types.ReviewStarted, error) {
	var body any
	if req != nil {
		body = req
	}
	var out types.ReviewStarted
	if err := c.call(ctx, http.MethodPost, "/sessions/"+url.PathEscape(id)+"/review", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Session polls a session, returning only history after since.
func (c *Client) Session(ctx context.Context, id string, since uint64) (*types.SessionView, error) {
	path := "/sessions/" + url.PathEscape(id)
	if since > 0 {
		path += "?since=" + strconv.FormatUint(since, 10)
	}
	var out types.SessionView
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteSession removes a session.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/sessions/"+url.PathEscape(id), nil, nil)
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	resp, err := c.do(ctx, method, path, in)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("probe: read %s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		return apiErr
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("probe: decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("probe: marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("probe: build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("probe: %s %s: %w", method, path, err)
	}
	return resp, nil
}
