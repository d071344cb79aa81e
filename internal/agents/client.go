package agents

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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const instrumentationName = "github.com/fyrsmithlabs/agentchat/internal/agents"

// Config configures the agents service client.
type Config struct {
	// Endpoint is the base URL of the agents service (required).
	Endpoint string

	// APIVersion is sent as the api-version query parameter.
	APIVersion string

	// APIKey authenticates via the api-key header when no TokenSource is set.
	APIKey string

	// TokenSource supplies bearer tokens; takes precedence over APIKey.
	TokenSource oauth2.TokenSource

	// PollInterval is the delay between run status checks (default 1s).
	PollInterval time.Duration

	// RequestsPerSecond caps outgoing requests, covering run polling
	// (default 5).
	RequestsPerSecond float64

	// HTTPClient overrides the default client (used by tests).
	HTTPClient *http.Client
}

// DefaultConfig returns sensible defaults; Endpoint must still be set.
func DefaultConfig() *Config {
	return &Config{
		APIVersion:        "v1",
		PollInterval:      time.Second,
		RequestsPerSecond: 5,
	}
}

// Client talks to the agents service. All calls are synchronous
// request/response; the only blocking operation is WaitForRun, which polls
// until the run reaches a terminal status.
type Client struct {
	endpoint     string
	apiVersion   string
	apiKey       string
	tokenSource  oauth2.TokenSource
	pollInterval time.Duration
	limiter      *rate.Limiter
	httpClient   *http.Client
	logger       *zap.Logger
	tracer       trace.Tracer
}

// NewClient creates an agents service client.
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, errors.New("agents endpoint is required")
	}
	if _, err := url.Parse(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("invalid agents endpoint: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = "v1"
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		endpoint:     strings.TrimRight(cfg.Endpoint, "/"),
		apiVersion:   apiVersion,
		apiKey:       cfg.APIKey,
		tokenSource:  cfg.TokenSource,
		pollInterval: pollInterval,
		limiter:      rate.NewLimiter(rate.Limit(rps), 1),
		httpClient:   httpClient,
		logger:       logger,
		tracer:       otel.Tracer(instrumentationName),
	}, nil
}

// CreateAgent creates a hosted agent with the given toolset.
func (c *Client) CreateAgent(ctx context.Context, model, name, instructions string, tools []Tool) (*Agent, error) {
	ctx, span := c.tracer.Start(ctx, "agents.create_agent")
	defer span.End()
	span.SetAttributes(attribute.String("model", model))

	body := map[string]any{
		"model":        model,
		"name":         name,
		"instructions": instructions,
	}
	if len(tools) > 0 {
		body["tools"] = tools
	}

	var agent Agent
	if err := c.do(ctx, http.MethodPost, "/assistants", nil, body, &agent); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}
	c.logger.Debug("created agent", zap.String("id", agent.ID), zap.String("name", agent.Name))
	return &agent, nil
}

// DeleteAgent removes a hosted agent. Callers treat failures as
// best-effort cleanup.
func (c *Client) DeleteAgent(ctx context.Context, agentID string) error {
	ctx, span := c.tracer.Start(ctx, "agents.delete_agent")
	defer span.End()
	span.SetAttributes(attribute.String("agent_id", agentID))

	if err := c.do(ctx, http.MethodDelete, "/assistants/"+agentID, nil, nil, nil); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete agent: %w", err)
	}
	c.logger.Debug("deleted agent", zap.String("id", agentID))
	return nil
}

// CreateThread creates a new remote conversation thread.
func (c *Client) CreateThread(ctx context.Context) (*Thread, error) {
	ctx, span := c.tracer.Start(ctx, "agents.create_thread")
	defer span.End()

	var thread Thread
	if err := c.do(ctx, http.MethodPost, "/threads", nil, map[string]any{}, &thread); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create thread: %w", err)
	}
	c.logger.Debug("created thread", zap.String("id", thread.ID))
	return &thread, nil
}

// CreateMessage posts a message to a thread and returns the remote record
// with its service-assigned identifier.
func (c *Client) CreateMessage(ctx context.Context, threadID, role, content string) (*Message, error) {
	ctx, span := c.tracer.Start(ctx, "agents.create_message")
	defer span.End()
	span.SetAttributes(attribute.String("thread_id", threadID), attribute.String("role", role))

	body := map[string]any{
		"role":    role,
		"content": content,
	}
	var msg Message
	if err := c.do(ctx, http.MethodPost, "/threads/"+threadID+"/messages", nil, body, &msg); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	return &msg, nil
}

// ListMessages returns a thread's messages, newest first when desc is set.
func (c *Client) ListMessages(ctx context.Context, threadID string, desc bool) ([]Message, error) {
	ctx, span := c.tracer.Start(ctx, "agents.list_messages")
	defer span.End()
	span.SetAttributes(attribute.String("thread_id", threadID))

	query := url.Values{}
	if desc {
		query.Set("order", "desc")
	} else {
		query.Set("order", "asc")
	}

	var list listResponse[Message]
	if err := c.do(ctx, http.MethodGet, "/threads/"+threadID+"/messages", query, nil, &list); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return list.Data, nil
}

// CreateRun starts a run of the given agent against the thread.
func (c *Client) CreateRun(ctx context.Context, threadID, agentID string, tools []Tool) (*Run, error) {
	ctx, span := c.tracer.Start(ctx, "agents.create_run")
	defer span.End()
	span.SetAttributes(attribute.String("thread_id", threadID), attribute.String("agent_id", agentID))

	body := map[string]any{
		"assistant_id": agentID,
	}
	if len(tools) > 0 {
		body["tools"] = tools
	}

	var run Run
	if err := c.do(ctx, http.MethodPost, "/threads/"+threadID+"/runs", nil, body, &run); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	c.logger.Debug("created run", zap.String("id", run.ID), zap.String("status", string(run.Status)))
	return &run, nil
}

// GetRun fetches the current state of a run.
func (c *Client) GetRun(ctx context.Context, threadID, runID string) (*Run, error) {
	var run Run
	if err := c.do(ctx, http.MethodGet, "/threads/"+threadID+"/runs/"+runID, nil, nil, &run); err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// WaitForRun polls until the run reaches a terminal status. No local
// timeout is enforced beyond ctx; the request limiter keeps polling polite.
func (c *Client) WaitForRun(ctx context.Context, threadID, runID string) (*Run, error) {
	ctx, span := c.tracer.Start(ctx, "agents.wait_for_run")
	defer span.End()
	span.SetAttributes(attribute.String("run_id", runID))

	for {
		run, err := c.GetRun(ctx, threadID, runID)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if run.Status.Terminal() {
			span.SetAttributes(attribute.String("status", string(run.Status)))
			return run, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

// RunAndWait starts a run and blocks until it reaches a terminal status.
// This is the single blocking call the interaction loop sees per turn.
func (c *Client) RunAndWait(ctx context.Context, threadID, agentID string, tools []Tool) (*Run, error) {
	run, err := c.CreateRun(ctx, threadID, agentID, tools)
	if err != nil {
		return nil, err
	}
	if run.Status.Terminal() {
		return run, nil
	}
	return c.WaitForRun(ctx, threadID, run.ID)
}

// ListRunSteps returns the steps of a run, including tool-call records.
func (c *Client) ListRunSteps(ctx context.Context, threadID, runID string) ([]RunStep, error) {
	ctx, span := c.tracer.Start(ctx, "agents.list_run_steps")
	defer span.End()
	span.SetAttributes(attribute.String("run_id", runID))

	var list listResponse[RunStep]
	path := "/threads/" + threadID + "/runs/" + runID + "/steps"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &list); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list run steps: %w", err)
	}
	return list.Data, nil
}

type listResponse[T any] struct {
	Data []T `json:"data"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// do performs one request against the service. Exactly one attempt: any
// failure is returned to the caller, which owns turn-level recovery.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set("api-version", c.apiVersion)
	reqURL := c.endpoint + path + "?" + query.Encode()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := c.authorize(req); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		var envelope errorResponse
		if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error.Message != "" {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) authorize(req *http.Request) error {
	if c.tokenSource != nil {
		token, err := c.tokenSource.Token()
		if err != nil {
			return fmt.Errorf("failed to acquire token: %w", err)
		}
		token.SetAuthHeader(req)
		return nil
	}
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
	return nil
}
