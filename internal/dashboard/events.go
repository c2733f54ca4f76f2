package dashboard

import (
	"context"
	"encoding/json"

	"github.com/ashita-ai/ideaforge/internal/channel"
	"github.com/ashita-ai/ideaforge/internal/model"
)

// handleEvent applies one push event to the store. It runs on the channel's
// delivery goroutine.
func (d *Dashboard) handleEvent(ev channel.Event) {
	switch model.EventType(ev.Type) {
	case model.EventResearchStarted:
		d.store.MarkRunStarted(d.now())

	case model.EventAgentStarted, model.EventAgentCompleted, model.EventAgentFailed:
		d.applyAgentEvent(ev)

	case model.EventResearchCompleted:
		d.store.SetLoading(false)
		d.recordStatus(d.stringField(ev, "run_id"), model.RunStatusCompleted, "")
		d.fetchFallbackIdeas()

	case model.EventResearchFailed:
		d.store.SetLoading(false)
		msg := d.stringField(ev, "error")
		if msg == "" {
			msg = DefaultResearchError
		}
		d.store.SetError(msg)
		d.recordStatus(d.stringField(ev, "run_id"), model.RunStatusFailed, msg)

	case model.EventResearchCancelled:
		d.store.SetLoading(false)
		d.store.SetError("")
		d.recordStatus(d.stringField(ev, "run_id"), model.RunStatusCancelled, "")

	case model.EventTokenUsage:
		var usage model.TokenUsage
		if !d.decode(ev, &usage) {
			return
		}
		d.store.SetTokenUsage(&usage)

	case model.EventResearchResults:
		// Terminal: loading clears even when the idea list is unusable.
		d.store.SetLoading(false)
		var p model.ResearchResultsPayload
		if !d.decode(ev, &p) {
			return
		}
		ideas := p.Ideas
		if ideas == nil {
			ideas = []model.Idea{}
		}
		d.store.ReplaceIdeas(ideas, len(ideas))
		d.recordIdeas(d.stringField(ev, "run_id"), ideas)

	default:
		d.logger.Debug("dashboard: unhandled event", "type", ev.Type)
	}
}

func (d *Dashboard) applyAgentEvent(ev channel.Event) {
	var p model.AgentEventPayload
	if !d.decode(ev, &p) {
		return
	}
	if p.AgentName == "" {
		d.logger.Warn("dashboard: agent event without agent name", "type", ev.Type)
		return
	}

	status := model.AgentStatus{AgentName: p.AgentName}
	switch model.EventType(ev.Type) {
	case model.EventAgentStarted:
		status.Status = model.AgentRunning
	case model.EventAgentCompleted:
		status.Status = model.AgentCompleted
		status.ResultSummary = p.Summary
	case model.EventAgentFailed:
		status.Status = model.AgentFailed
		msg := DefaultAgentError
		if p.Error != nil && *p.Error != "" {
			msg = *p.Error
		}
		status.ErrorMessage = &msg
	}
	d.store.UpsertAgentStatus(status)
}

// decode unmarshals the event into v. Payloads with the wrong shape are
// logged and skipped.
func (d *Dashboard) decode(ev channel.Event, v any) bool {
	if err := ev.Decode(v); err != nil {
		d.logger.Warn("dashboard: ignoring malformed payload", "type", ev.Type, "error", err)
		return false
	}
	return true
}

// stringField reads one string field of the event, independently of the
// rest of the payload. Missing or non-string values yield "".
func (d *Dashboard) stringField(ev channel.Event, key string) string {
	var fields map[string]json.RawMessage
	if err := ev.Decode(&fields); err != nil {
		return ""
	}
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		d.logger.Warn("dashboard: ignoring malformed field", "type", ev.Type, "field", key, "error", err)
		return ""
	}
	return v
}

// fetchFallbackIdeas refreshes the idea list after research_completed in case
// research_results never arrives. Errors are expected while the backend is
// still persisting and are dropped. Concurrent completions share one request.
func (d *Dashboard) fetchFallbackIdeas() {
	d.goFetch(func(ctx context.Context) {
		_, err, _ := d.sf.Do("fallback-ideas", func() (any, error) {
			list, err := d.api.ListIdeas(ctx, 0, d.fallbackLimit)
			if err != nil {
				return nil, err
			}
			d.store.ReplaceIdeas(list.Items, list.Total)
			return nil, nil
		})
		if err != nil {
			d.logger.Debug("dashboard: fallback idea fetch", "error", err)
		}
	})
}

func (d *Dashboard) runIDOr(runID string) string {
	if runID != "" {
		return runID
	}
	return d.store.CurrentRunID()
}

func (d *Dashboard) recordStatus(runID string, status model.RunStatus, msg string) {
	if d.history == nil {
		return
	}
	runID = d.runIDOr(runID)
	if runID == "" {
		return
	}
	if err := d.history.SetRunStatus(d.baseCtx, runID, status, msg); err != nil {
		d.logger.Debug("dashboard: history status", "run_id", runID, "error", err)
	}
}

func (d *Dashboard) recordIdeas(runID string, ideas []model.Idea) {
	if d.history == nil {
		return
	}
	runID = d.runIDOr(runID)
	if runID == "" {
		return
	}
	if err := d.history.RecordIdeas(d.baseCtx, runID, ideas); err != nil {
		d.logger.Warn("dashboard: history ideas", "run_id", runID, "error", err)
	}
}
