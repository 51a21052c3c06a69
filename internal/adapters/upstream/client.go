// Package upstream is the HTTP client for the remote analysis service.
package upstream

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

	model "github.com/okian/armpredict/internal/domain/model"
	"github.com/okian/armpredict/pkg/logger"
	"github.com/okian/armpredict/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// Endpoint paths on the analysis service.
const (
	PathPredict          = "/predict/"
	PathReview           = "/ai-review/"
	PathMatchPredictions = "/match-predictions/"
	PathHealth           = "/health"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 8 << 20
)

// Config holds the settings needed to construct a Client.
type Config struct {
	// BaseURL is the root URL of the analysis service, e.g. "http://localhost:5000".
	BaseURL string
	// HTTPClient is optional. If nil, a client with Timeout is used.
	HTTPClient *http.Client
	// Timeout applies to predict and match-predictions calls. Review calls are
	// bounded by their context instead. Defaults to 30 seconds.
	Timeout time.Duration
	Logger  logger.Logger
}

// Client calls the analysis service. Safe for concurrent use.
type Client struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	log     logger.Logger
	group   singleflight.Group
}

// NewClient creates a Client from cfg.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("upstream: BaseURL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  httpClient,
		timeout: timeout,
		log:     log,
	}, nil
}

// Predict fetches the base prediction. Identical concurrent calls share one request.
func (c *Client) Predict(ctx context.Context, req model.PredictRequest) (*model.PredictResponse, error) {
	key, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("upstream: marshal predict request: %w", err)
	}
	v, err, shared := c.group.Do(string(key), func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		raw, err := c.post(ctx, "predict", PathPredict, req)
		if err != nil {
			return nil, err
		}
		var resp model.PredictResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, model.NewValidationError("predict", "decode response: %v", err)
		}
		return &resp, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.log.Debug(ctx, "predict call coalesced", logger.String("athlete1", req.Athlete1), logger.String("athlete2", req.Athlete2))
	}
	return v.(*model.PredictResponse), nil
}

// Review requests an AI review and returns the raw response body. The body is
// validated by the caller. ctx bounds the call.
func (c *Client) Review(ctx context.Context, req model.ReviewRequest) ([]byte, error) {
	return c.post(ctx, "review", PathReview, req)
}

// MatchPredictions fetches expert predictions for a match.
func (c *Client) MatchPredictions(ctx context.Context, req model.MatchPredictionsRequest) (*model.MatchPredictionsResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	raw, err := c.post(ctx, "match-predictions", PathMatchPredictions, req)
	if err != nil {
		return nil, err
	}
	var resp model.MatchPredictionsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, model.NewValidationError("match_predictions", "decode response: %v", err)
	}
	return &resp, nil
}

// Health checks the analysis service and returns its status payload.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+PathHealth, nil)
	if err != nil {
		return nil, fmt.Errorf("upstream: create request: %w", err)
	}
	raw, err := c.do(ctx, "health", req)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, model.NewValidationError("health", "decode response: %v", err)
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, op, path string, body any) ([]byte, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("upstream: marshal %s request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("upstream: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(ctx, op, req)
}

// do sends req and returns the body of a 2xx response. Everything else is a
// *model.TransportError.
func (c *Client) do(ctx context.Context, op string, req *http.Request) ([]byte, error) {
	start := time.Now()
	outcome := "ok"
	defer func() {
		metrics.RecordUpstreamRequest(op, outcome, float64(time.Since(start).Milliseconds()))
	}()

	resp, err := c.client.Do(req)
	if err != nil {
		outcome = "network_error"
		c.log.Warn(ctx, "upstream call failed", logger.String("op", op), logger.Error(err))
		return nil, &model.TransportError{Op: op, Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		outcome = "network_error"
		return nil, &model.TransportError{Op: op, StatusCode: resp.StatusCode, Cause: fmt.Errorf("read response body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = fmt.Sprintf("http_%d", resp.StatusCode)
		c.log.Warn(ctx, "upstream returned error status",
			logger.String("op", op), logger.Int("status", resp.StatusCode))
		return nil, model.NewStatusError(op, resp.StatusCode, raw)
	}
	return raw, nil
}
