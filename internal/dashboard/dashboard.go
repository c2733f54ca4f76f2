// Package dashboard ties the request layer, the push-event channel and the
// run state store together. It owns the event-to-state reconciliation and
// the user actions the views expose.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ashita-ai/ideaforge/internal/channel"
	"github.com/ashita-ai/ideaforge/internal/model"
	"github.com/ashita-ai/ideaforge/internal/store"
)

// Validation errors returned by user actions.
var (
	ErrEmptyQuery   = errors.New("dashboard: query is required")
	ErrNoSources    = errors.New("dashboard: at least one source is required")
	ErrNoRun        = errors.New("dashboard: no current run")
	ErrUnknownAgent = errors.New("dashboard: unknown agent")
)

// Messages shown when a failure event carries no error text.
const (
	DefaultAgentError    = "Agent failed"
	DefaultResearchError = "Research failed"
)

const (
	defaultFallbackLimit = 20
	defaultFetchTimeout  = 30 * time.Second
)

// API is the part of the request layer the dashboard calls.
type API interface {
	StartResearch(ctx context.Context, req model.StartResearchRequest) (*model.Run, error)
	CancelResearch(ctx context.Context, runID string) error
	ListIdeas(ctx context.Context, skip, limit int) (*model.IdeaList, error)
	AgentRuns(ctx context.Context, runID string) ([]model.AgentStatus, error)
	LLMSettings(ctx context.Context) (*model.LLMSettings, error)
	SetLLMProvider(ctx context.Context, provider string) error
	ListAgents(ctx context.Context) ([]model.AgentInfo, error)
	UpdateAgentSettings(ctx context.Context, agents map[string]bool) (map[string]bool, error)
}

// Channel is the part of the push-event client the dashboard drives.
type Channel interface {
	Connect(ctx context.Context)
	Disconnect()
	Connected() bool
	On(eventType string, h channel.Handler) (off func())
	OnConnection(h channel.ConnectionHandler) (off func())
}

// History records runs and their delivered ideas. Optional.
type History interface {
	RecordRun(ctx context.Context, run model.Run) error
	SetRunStatus(ctx context.Context, runID string, status model.RunStatus, errMsg string) error
	RecordIdeas(ctx context.Context, runID string, ideas []model.Idea) error
}

// Deps are the collaborators of a Dashboard. Client and Store are required.
type Deps struct {
	Client   API
	Channel  Channel
	Store    *store.Store
	Settings *store.Settings
	Agents   *store.Agents
	History  History
	Logger   *slog.Logger

	// FallbackLimit is the page size of the idea fetch issued after
	// research_completed. Defaults to 20.
	FallbackLimit int
	// FetchTimeout bounds background fetches. Defaults to 30s.
	FetchTimeout time.Duration
	// Now is the clock used for the elapsed-time anchor. Defaults to time.Now.
	Now func() time.Time
}

// Dashboard is safe for concurrent use.
type Dashboard struct {
	api      API
	ch       Channel
	store    *store.Store
	settings *store.Settings
	agents   *store.Agents
	history  History
	logger   *slog.Logger

	fallbackLimit int
	fetchTimeout  time.Duration
	now           func() time.Time

	sf singleflight.Group
	wg sync.WaitGroup

	mu      sync.Mutex
	baseCtx context.Context
	cancel  context.CancelFunc
	offs    []func()
	dropped bool
	closed  bool
}

// New builds a Dashboard. It panics if Client or Store is nil.
func New(deps Deps) *Dashboard {
	if deps.Client == nil || deps.Store == nil {
		panic("dashboard: Client and Store are required")
	}
	d := &Dashboard{
		api:           deps.Client,
		ch:            deps.Channel,
		store:         deps.Store,
		settings:      deps.Settings,
		agents:        deps.Agents,
		history:       deps.History,
		logger:        deps.Logger,
		fallbackLimit: deps.FallbackLimit,
		fetchTimeout:  deps.FetchTimeout,
		now:           deps.Now,
	}
	if d.settings == nil {
		d.settings = store.NewSettings("")
	}
	if d.agents == nil {
		d.agents = store.NewAgents()
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.fallbackLimit <= 0 {
		d.fallbackLimit = defaultFallbackLimit
	}
	if d.fetchTimeout <= 0 {
		d.fetchTimeout = defaultFetchTimeout
	}
	if d.now == nil {
		d.now = time.Now
	}
	d.baseCtx, d.cancel = context.WithCancel(context.Background())
	return d
}

// Store returns the run state store the dashboard writes to.
func (d *Dashboard) Store() *store.Store { return d.store }

// Settings returns the LLM settings store.
func (d *Dashboard) Settings() *store.Settings { return d.settings }

// Agents returns the agent catalog store.
func (d *Dashboard) Agents() *store.Agents { return d.agents }

// Connected reports whether the push-event channel is open.
func (d *Dashboard) Connected() bool {
	return d.ch != nil && d.ch.Connected()
}

// Start subscribes to the push-event channel and connects it. Calling Start
// twice, or after Close, is a no-op.
func (d *Dashboard) Start(ctx context.Context) {
	if d.ch == nil {
		return
	}
	d.mu.Lock()
	if d.closed || len(d.offs) > 0 {
		d.mu.Unlock()
		return
	}
	d.offs = append(d.offs,
		d.ch.On(channel.Wildcard, d.handleEvent),
		d.ch.OnConnection(d.handleConnection),
	)
	d.mu.Unlock()

	d.ch.Connect(ctx)
}

// Close removes the dashboard's handlers, disconnects the channel and waits
// for background fetches. It never cancels a run on the backend, and a
// closed Dashboard is not restarted.
func (d *Dashboard) Close() {
	d.mu.Lock()
	offs := d.offs
	d.offs = nil
	d.closed = true
	d.mu.Unlock()

	for _, off := range offs {
		off()
	}
	if d.ch != nil {
		d.ch.Disconnect()
	}
	d.cancel()
	d.wg.Wait()
}

// Wait blocks until background fetches started so far have finished.
func (d *Dashboard) Wait() { d.wg.Wait() }

// handleConnection logs transitions and, when the channel comes back while a
// run is in flight, re-reads the persisted agent statuses to cover events
// missed during the outage.
func (d *Dashboard) handleConnection(connected bool) {
	d.mu.Lock()
	reconnect := connected && d.dropped
	if !connected {
		d.dropped = true
	}
	d.mu.Unlock()

	if !connected {
		d.logger.Warn("dashboard: event channel down, reconnecting")
		return
	}
	d.logger.Info("dashboard: event channel up")

	if reconnect && d.store.Snapshot().Loading {
		d.goFetch(func(ctx context.Context) {
			if err := d.LoadAgentStatuses(ctx); err != nil {
				d.logger.Debug("dashboard: catch-up agent statuses", "error", err)
			}
		})
	}
}

// goFetch runs fn in a tracked goroutine with a bounded context.
func (d *Dashboard) goFetch(fn func(ctx context.Context)) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(d.baseCtx, d.fetchTimeout)
		defer cancel()
		fn(ctx)
	}()
}
