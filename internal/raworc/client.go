package raworc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dyike/stockdesk/internal/metrics"
	"github.com/dyike/stockdesk/models"
	"github.com/dyike/stockdesk/pkg/logger"
)

const defaultListLimit = 100

// Options configures a Client.
type Options struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// RateLimit caps outgoing requests per second. Zero disables limiting.
	RateLimit float64

	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Client talks to the agent orchestration HTTP API.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(opts.BaseURL, "/"))
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")
	client.SetHeader("User-Agent", "stockdesk/1.0")
	if opts.APIKey != "" {
		client.SetAuthToken(opts.APIKey)
	}

	c := &Client{
		http:    client,
		logger:  logger.OrNop(opts.Logger),
		metrics: opts.Metrics,
	}
	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return c
}

// GetAgent fetches an agent by name.
func (c *Client) GetAgent(ctx context.Context, name string) (*models.Agent, error) {
	var agent models.Agent
	if err := c.do(ctx, "get_agent", http.MethodGet, "/agents/{name}", params{"name": name}, nil, nil, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

// RemixAgent clones template into a new agent described by req.
func (c *Client) RemixAgent(ctx context.Context, template string, req models.RemixRequest) (*models.Agent, error) {
	var agent models.Agent
	if err := c.do(ctx, "remix_agent", http.MethodPost, "/agents/{name}/remix", params{"name": template}, nil, req, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

// WakeAgent asks the service to wake name. Already-awake agents may answer
// with a client error.
func (c *Client) WakeAgent(ctx context.Context, name string) error {
	return c.do(ctx, "wake_agent", http.MethodPost, "/agents/{name}/wake", params{"name": name}, nil, struct{}{}, nil)
}

// ListAgents returns up to limit agents. limit <= 0 uses the service default of 100.
func (c *Client) ListAgents(ctx context.Context, limit int) ([]*models.Agent, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "list_agents", http.MethodGet, "/agents", nil, listQuery(limit), nil, &raw); err != nil {
		return nil, err
	}
	var agents []*models.Agent
	if err := decodeList(raw, "agents", &agents); err != nil {
		return nil, fmt.Errorf("decode agents: %w", err)
	}
	return agents, nil
}

// ListResponses returns up to limit responses of agent.
func (c *Client) ListResponses(ctx context.Context, agent string, limit int) ([]*models.ResponseRecord, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "list_responses", http.MethodGet, "/agents/{name}/responses", params{"name": agent}, listQuery(limit), nil, &raw); err != nil {
		return nil, err
	}
	var responses []*models.ResponseRecord
	if err := decodeList(raw, "responses", &responses); err != nil {
		return nil, fmt.Errorf("decode responses: %w", err)
	}
	return responses, nil
}

// CreateResponse submits a task to agent.
func (c *Client) CreateResponse(ctx context.Context, agent string, req models.CreateResponseRequest) (*models.ResponseRecord, error) {
	var resp models.ResponseRecord
	if err := c.do(ctx, "create_response", http.MethodPost, "/agents/{name}/responses", params{"name": agent}, nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetResponse fetches one response of agent.
func (c *Client) GetResponse(ctx context.Context, agent, id string) (*models.ResponseRecord, error) {
	var resp models.ResponseRecord
	if err := c.do(ctx, "get_response", http.MethodGet, "/agents/{name}/responses/{id}", params{"name": agent, "id": id}, nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type params map[string]string

func listQuery(limit int) params {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return params{"limit": strconv.Itoa(limit)}
}

func (c *Client) do(ctx context.Context, op, method, path string, pathParams, query params, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("raworc %s: %w", op, err)
		}
	}

	req := c.http.R().SetContext(ctx)
	if len(pathParams) > 0 {
		req.SetPathParams(pathParams)
	}
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		c.metrics.ObserveUpstream(op, "transport_error", time.Since(start))
		c.logger.Debug("raworc request failed", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("raworc %s: %w", op, err)
	}
	c.metrics.ObserveUpstream(op, strconv.Itoa(resp.StatusCode()), time.Since(start))
	c.logger.Debug("raworc request",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("elapsed", resp.Time()),
	)

	if resp.IsError() || resp.StatusCode() >= http.StatusMultipleChoices {
		return &APIError{Op: op, StatusCode: resp.StatusCode(), Body: strings.TrimSpace(resp.String())}
	}
	if out == nil {
		return nil
	}
	data := bytes.TrimSpace(resp.Body())
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("raworc %s: decode body: %w", op, err)
	}
	return nil
}

// decodeList accepts either a bare array or an object wrapping it under key.
// Anything else decodes to an empty list.
func decodeList(raw json.RawMessage, key string, out any) error {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0:
		return json.Unmarshal([]byte("[]"), out)
	case raw[0] == '[':
		return json.Unmarshal(raw, out)
	case raw[0] == '{':
		var wrapped map[string]json.RawMessage
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return err
		}
		if inner, ok := wrapped[key]; ok && len(bytes.TrimSpace(inner)) > 0 && bytes.TrimSpace(inner)[0] == '[' {
			return json.Unmarshal(inner, out)
		}
	}
	return json.Unmarshal([]byte("[]"), out)
}
