package dashboard

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashita-ai/ideaforge/internal/model"
)

// StartResearch validates the request, clears the previous run's state and
// launches a new run. An empty provider means the settings store's current
// provider. On failure the error is both stored for display and returned.
func (d *Dashboard) StartResearch(ctx context.Context, query string, sources []string, provider string) (*model.Run, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	if provider == "" {
		provider = d.settings.CurrentProvider()
	}

	d.store.ResetForNewRun()
	d.store.SetLoading(true)
	d.store.SetError("")

	run, err := d.api.StartResearch(ctx, model.StartResearchRequest{
		Query:       query,
		Sources:     append([]string(nil), sources...),
		LLMProvider: provider,
	})
	if err != nil {
		d.store.SetError(err.Error())
		d.store.SetLoading(false)
		return nil, err
	}

	d.store.SetCurrentRun(run)
	d.logger.Info("dashboard: research started", "run_id", run.RunID, "sources", len(sources), "provider", provider)
	if d.history != nil {
		if err := d.history.RecordRun(ctx, *run); err != nil {
			d.logger.Warn("dashboard: history run", "run_id", run.RunID, "error", err)
		}
	}
	return run, nil
}

// CancelResearch asks the backend to stop the current run. The request is
// best effort: a failure (typically a run that already finished) is logged
// and loading is cleared either way. Returns ErrNoRun without a current run.
func (d *Dashboard) CancelResearch(ctx context.Context) error {
	runID := d.store.CurrentRunID()
	if runID == "" {
		return ErrNoRun
	}
	if err := d.api.CancelResearch(ctx, runID); err != nil {
		d.logger.Info("dashboard: cancel request failed", "run_id", runID, "error", err)
	}
	d.store.SetLoading(false)
	return nil
}

// LoadIdeas fetches one page of ideas and replaces the store's idea list.
func (d *Dashboard) LoadIdeas(ctx context.Context, skip, limit int) (*model.IdeaList, error) {
	list, err := d.api.ListIdeas(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("dashboard: load ideas: %w", err)
	}
	d.store.ReplaceIdeas(list.Items, list.Total)
	return list, nil
}

// LoadAgentStatuses reads the persisted per-agent statuses of the current run
// and merges them into the store. A stored row never reverts an agent the
// stream already reported as finished.
func (d *Dashboard) LoadAgentStatuses(ctx context.Context) error {
	runID := d.store.CurrentRunID()
	if runID == "" {
		return ErrNoRun
	}
	statuses, err := d.api.AgentRuns(ctx, runID)
	if err != nil {
		return fmt.Errorf("dashboard: load agent statuses: %w", err)
	}
	for _, s := range statuses {
		if s.AgentName == "" {
			continue
		}
		if !d.store.MergeAgentStatus(s) {
			d.logger.Debug("dashboard: stale agent status skipped", "agent", s.AgentName, "status", s.Status)
		}
	}
	return nil
}

// LoadSettings refreshes the provider list and the active provider.
func (d *Dashboard) LoadSettings(ctx context.Context) error {
	s, err := d.api.LLMSettings(ctx)
	if err != nil {
		return fmt.Errorf("dashboard: load settings: %w", err)
	}
	d.settings.SetProviders(s.Providers)
	if s.CurrentProvider != "" {
		d.settings.SetCurrentProvider(s.CurrentProvider)
	}
	return nil
}

// SelectProvider switches the backend's LLM provider. The local selection
// only changes once the backend accepted it.
func (d *Dashboard) SelectProvider(ctx context.Context, provider string) error {
	if err := d.api.SetLLMProvider(ctx, provider); err != nil {
		return fmt.Errorf("dashboard: select provider %s: %w", provider, err)
	}
	d.settings.SetCurrentProvider(provider)
	return nil
}

// LoadAgents refreshes the agent catalog.
func (d *Dashboard) LoadAgents(ctx context.Context) error {
	agents, err := d.api.ListAgents(ctx)
	if err != nil {
		return fmt.Errorf("dashboard: load agents: %w", err)
	}
	d.agents.SetAgents(agents)
	return nil
}

// ToggleAgent flips an agent locally and persists the new value. If the
// backend rejects it, the local flag is restored.
func (d *Dashboard) ToggleAgent(ctx context.Context, id string) (bool, error) {
	enabled, ok := d.agents.Toggle(id)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownAgent, id)
	}
	if _, err := d.api.UpdateAgentSettings(ctx, map[string]bool{id: enabled}); err != nil {
		d.agents.SetEnabled(id, !enabled)
		return !enabled, fmt.Errorf("dashboard: toggle agent %s: %w", id, err)
	}
	return enabled, nil
}

// SetAgentEnabled persists an explicit enabled flag for agents and mirrors the
// backend's resulting settings into the local catalog.
func (d *Dashboard) SetAgentEnabled(ctx context.Context, enabled bool, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	req := make(map[string]bool, len(ids))
	for _, id := range ids {
		req[id] = enabled
	}
	result, err := d.api.UpdateAgentSettings(ctx, req)
	if err != nil {
		return fmt.Errorf("dashboard: update agents: %w", err)
	}
	for id, on := range result {
		d.agents.SetEnabled(id, on)
	}
	return nil
}
