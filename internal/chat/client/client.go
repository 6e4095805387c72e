package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/vendorscope/internal/chat/domain"
	"github.com/smallbiznis/vendorscope/internal/config"
	"github.com/smallbiznis/vendorscope/internal/retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	processQueryPath = "/process-query"
	apiKeyHeader     = "X-API-Key"
	maxErrorBody     = 512
)

type processQueryRequest struct {
	Question string         `json:"question"`
	Context  map[string]any `json:"context,omitempty"`
}

type processQueryResponse struct {
	SQL         string           `json:"sql"`
	Explanation string           `json:"explanation"`
	Results     []map[string]any `json:"results"`
}

type Params struct {
	fx.In

	Cfg config.Config
	Log *zap.Logger
}

// Client calls the AI service over HTTP and retries transient failures.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	retry   retry.Config
	log     *zap.Logger
}

func Provide(p Params) domain.AIClient {
	return New(p.Cfg, p.Log)
}

func New(cfg config.Config, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.AIServiceURL), "/"),
		apiKey:  strings.TrimSpace(cfg.AIServiceAPIKey),
		http:    &http.Client{Timeout: cfg.AIServiceTimeout},
		log:     log.Named("chat.client"),
	}
	c.retry = retry.Config{
		Attempts: cfg.AIServiceRetryAttempts,
		Delay:    cfg.AIServiceRetryDelay,
		OnRetry: func(attempt int, err error) {
			c.log.Warn("ai service call failed, retrying",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		},
	}
	return c
}

func (c *Client) ProcessQuery(ctx context.Context, question string, queryContext map[string]any) (*domain.QueryResult, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("%w: ai service url is not configured", domain.ErrAIServiceUnavailable)
	}

	body, err := json.Marshal(processQueryRequest{Question: question, Context: queryContext})
	if err != nil {
		return nil, err
	}

	resp, err := retry.DoValue(ctx, c.retry, func(ctx context.Context) (processQueryResponse, error) {
		return c.post(ctx, processQueryPath, body)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAIServiceUnavailable, err)
	}

	results := resp.Results
	if results == nil {
		results = []map[string]any{}
	}
	return &domain.QueryResult{
		SQL:         resp.SQL,
		Explanation: resp.Explanation,
		Results:     results,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) (processQueryResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return processQueryResponse{}, retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return processQueryResponse{}, err
	}
	defer resp.Body.Close()

	c.log.Debug("ai service responded",
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(started)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return processQueryResponse{}, &retry.StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	var out processQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return processQueryResponse{}, retry.Permanent(fmt.Errorf("decode ai service response: %w", err))
	}
	return out, nil
}
