// Package client is the request layer for the IdeaForge REST API.
//
// Every method is a single synchronous round trip. The client holds no
// dashboard state; callers decide whether a failure is fatal.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/ashita-ai/ideaforge/internal/model"
	"github.com/ashita-ai/ideaforge/internal/telemetry"
)

const defaultUserAgent = "ideaforge-go/0.1.0"

// maxErrorBody bounds how much of an error response is kept as Detail.
const maxErrorBody = 4 << 10

// Config holds the settings needed to construct a Client.
type Config struct {
	// BaseURL is the API root, e.g. "http://localhost:8000/api/v1".
	BaseURL string

	// HTTPClient is an optional custom HTTP client. If nil, a client with
	// Timeout is used.
	HTTPClient *http.Client

	// Timeout applies to individual API requests. Defaults to 30 seconds.
	Timeout time.Duration

	// UserAgent overrides the default User-Agent header.
	UserAgent string
}

// Client is an HTTP client for the IdeaForge API.
// All methods are safe for concurrent use.
type Client struct {
	baseURL   string
	userAgent string
	sessionID uuid.UUID
	client    *http.Client
	tracer    trace.Tracer
}

// New creates a Client from the given configuration.
// Returns an error if BaseURL is empty or not an absolute URL.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("client: BaseURL is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("client: BaseURL %q is not an absolute URL", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: ua,
		sessionID: uuid.New(),
		client:    httpClient,
		tracer:    telemetry.Tracer("github.com/ashita-ai/ideaforge/internal/client"),
	}, nil
}

// SessionID identifies this client instance in the X-Ideaforge-Session header.
func (c *Client) SessionID() uuid.UUID { return c.sessionID }

// ---------------------------------------------------------------------------
// Research
// ---------------------------------------------------------------------------

// StartResearch launches a new research run.
func (c *Client) StartResearch(ctx context.Context, req model.StartResearchRequest) (*model.Run, error) {
	var run model.Run
	if err := c.do(ctx, http.MethodPost, "/research", req, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// CancelResearch asks the backend to stop a run. Failure is expected when the
// run has already finished.
func (c *Client) CancelResearch(ctx context.Context, runID string) error {
	return c.do(ctx, http.MethodPost, "/research/"+url.PathEscape(runID)+"/cancel", nil, nil)
}

// ListIdeas returns one page of discovered ideas. Non-positive limit means 20.
func (c *Client) ListIdeas(ctx context.Context, skip, limit int) (*model.IdeaList, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = 20
	}
	params := url.Values{}
	params.Set("skip", strconv.Itoa(skip))
	params.Set("limit", strconv.Itoa(limit))

	var list model.IdeaList
	if err := c.do(ctx, http.MethodGet, "/ideas?"+params.Encode(), nil, &list); err != nil {
		return nil, err
	}
	if list.Items == nil {
		list.Items = []model.Idea{}
	}
	return &list, nil
}

// GetIdea fetches a single idea by ID.
func (c *Client) GetIdea(ctx context.Context, id int64) (*model.Idea, error) {
	var idea model.Idea
	if err := c.do(ctx, http.MethodGet, "/ideas/"+strconv.FormatInt(id, 10), nil, &idea); err != nil {
		return nil, err
	}
	return &idea, nil
}

// ---------------------------------------------------------------------------
// Agents
// ---------------------------------------------------------------------------

// ListAgents returns every registered data-source agent.
func (c *Client) ListAgents(ctx context.Context) ([]model.AgentInfo, error) {
	var agents []model.AgentInfo
	if err := c.do(ctx, http.MethodGet, "/agents", nil, &agents); err != nil {
		return nil, err
	}
	return agents, nil
}

// AgentRuns returns the persisted per-agent statuses of a run.
func (c *Client) AgentRuns(ctx context.Context, runID string) ([]model.AgentStatus, error) {
	var statuses []model.AgentStatus
	if err := c.do(ctx, http.MethodGet, "/agents/runs/"+url.PathEscape(runID), nil, &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

// LLMSettings returns the active provider and the selectable providers.
func (c *Client) LLMSettings(ctx context.Context) (*model.LLMSettings, error) {
	var s model.LLMSettings
	if err := c.do(ctx, http.MethodGet, "/settings/llm", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SetLLMProvider switches the active provider. The backend answers unknown
// providers with 200 and an "error" field, which is surfaced as an error.
func (c *Client) SetLLMProvider(ctx context.Context, provider string) error {
	var resp struct {
		Status   string `json:"status"`
		Provider string `json:"provider"`
		Error    string `json:"error"`
	}
	if err := c.do(ctx, http.MethodPut, "/settings/llm", model.LLMUpdateRequest{Provider: provider}, &resp); err != nil {
		return err
	}
	if resp.Error != "" {
		return fmt.Errorf("client: set llm provider: %s", resp.Error)
	}
	return nil
}

// AgentSettings returns the enabled flag of every agent keyed by agent ID.
func (c *Client) AgentSettings(ctx context.Context) (map[string]bool, error) {
	var m map[string]bool
	if err := c.do(ctx, http.MethodGet, "/settings/agents", nil, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateAgentSettings enables or disables agents and returns the resulting
// full settings map. Unknown IDs are ignored by the backend.
func (c *Client) UpdateAgentSettings(ctx context.Context, agents map[string]bool) (map[string]bool, error) {
	var m map[string]bool
	if err := c.do(ctx, http.MethodPut, "/settings/agents", model.AgentToggleRequest{Agents: agents}, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Health checks the backend. The health route lives at the server root, not
// under the API prefix, so it is resolved against the base URL's host.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("client: parse base url: %w", err)
	}
	u.Path = "/health"
	u.RawQuery = ""

	var resp HealthResponse
	if err := c.doURL(ctx, http.MethodGet, u.String(), "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ---------------------------------------------------------------------------
// HTTP transport
// ---------------------------------------------------------------------------

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	route := path
	if i := strings.IndexByte(route, '?'); i >= 0 {
		route = route[:i]
	}
	return c.doURL(ctx, method, c.baseURL+path, route, body, dest)
}

func (c *Client) doURL(ctx context.Context, method, target, route string, body, dest any) (err error) {
	ctx, span := c.tracer.Start(ctx, method+" "+route,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", route),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: marshal request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("client: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Ideaforge-Session", c.sessionID.String())
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, route, err)
	}
	defer func() { _ = resp.Body.Close() }()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	return handleResponse(resp, dest)
}

func handleResponse(resp *http.Response, dest any) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{StatusCode: resp.StatusCode, Detail: parseDetail(detail)}
	}

	if resp.StatusCode == http.StatusNoContent || dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}

// parseDetail extracts FastAPI's {"detail": ...} message when present and
// falls back to the raw body.
func parseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Detail) > 0 {
		var s string
		if err := json.Unmarshal(envelope.Detail, &s); err == nil {
			return s
		}
		return string(envelope.Detail)
	}
	return strings.TrimSpace(string(body))
}
