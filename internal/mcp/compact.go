package mcp

import (
	"fmt"
	"math"
	"time"

	"github.com/ashita-ai/ideaforge/internal/history"
	"github.com/ashita-ai/ideaforge/internal/model"
	"github.com/ashita-ai/ideaforge/internal/store"
)

const maxCompactSummary = 200

// compactIdea returns a minimal representation of an idea for MCP responses.
// Unscored dimensions are omitted rather than reported as zero.
func compactIdea(i model.Idea) map[string]any {
	m := map[string]any{
		"id":     i.ID,
		"title":  i.Title,
		"source": i.Source,
	}
	if i.Summary != "" {
		m["summary"] = truncate(i.Summary, maxCompactSummary)
	}
	if i.SourceURL != nil && *i.SourceURL != "" {
		m["source_url"] = *i.SourceURL
	}
	if i.Status != "" {
		m["status"] = i.Status
	}
	scores := map[string]any{}
	for name, v := range map[string]*float64{
		"composite":          i.CompositeScore,
		"business_potential": i.BusinessPotential,
		"market_size":        i.MarketSizeScore,
		"competition":        i.CompetitionScore,
		"sentiment":          i.SentimentScore,
	} {
		if v != nil {
			scores[name] = math.Round(*v*1000) / 1000 // 3 decimal places
		}
	}
	if len(scores) > 0 {
		m["scores"] = scores
	}
	return m
}

func compactIdeas(ideas []model.Idea) []map[string]any {
	out := make([]map[string]any, len(ideas))
	for i := range ideas {
		out[i] = compactIdea(ideas[i])
	}
	return out
}

func compactAgent(a model.AgentStatus) map[string]any {
	m := map[string]any{
		"agent": a.AgentName,
		"state": a.Status,
	}
	if a.ResultSummary != nil {
		m["summary"] = truncate(*a.ResultSummary, maxCompactSummary)
	}
	if a.ErrorMessage != nil {
		m["error"] = *a.ErrorMessage
	}
	if a.DurationSeconds != nil {
		m["duration_seconds"] = *a.DurationSeconds
	}
	return m
}

// compactRunStatus summarises the store for ideaforge_run_status.
func compactRunStatus(st store.State, connected bool, now time.Time) map[string]any {
	agents := make([]map[string]any, len(st.AgentStatuses))
	for i, a := range st.AgentStatuses {
		agents[i] = compactAgent(a)
	}
	m := map[string]any{
		"connected":   connected,
		"loading":     st.Loading,
		"agents":      agents,
		"ideas_count": len(st.Ideas),
	}
	if st.CurrentRun != nil {
		m["run_id"] = st.CurrentRun.RunID
		m["query"] = st.CurrentRun.Query
		m["sources"] = st.CurrentRun.Sources
		m["llm_provider"] = st.CurrentRun.LLMProvider
	}
	if st.Error != "" {
		m["error"] = st.Error
	}
	if d := st.Elapsed(now); d > 0 {
		m["elapsed_seconds"] = int64(d / time.Second)
	}
	if u := st.TokenUsage; u != nil {
		usage := map[string]any{
			"provider":     u.Provider,
			"total_tokens": u.TotalTokens,
			"llm_calls":    u.LLMCalls,
			"rate_status":  u.RateStatus(),
		}
		if u.TPMLimit != nil {
			usage["tpm_limit"] = *u.TPMLimit
		}
		m["token_usage"] = usage
	}
	m["summary"] = runSummary(st)
	return m
}

// runSummary produces a one-line description of where the run stands.
// Rules are evaluated in priority order; first match wins.
func runSummary(st store.State) string {
	switch {
	case st.CurrentRun == nil && st.Error != "":
		return "The last start attempt failed: " + st.Error
	case st.CurrentRun == nil:
		return "No research run has been started."
	case st.Error != "":
		return "Run " + st.CurrentRun.RunID + " failed: " + st.Error
	case st.Loading:
		done, failed := 0, 0
		for _, a := range st.AgentStatuses {
			switch a.Status {
			case model.AgentCompleted:
				done++
			case model.AgentFailed:
				failed++
			}
		}
		return fmt.Sprintf("%s reporting, %d completed, %d failed. Call again to follow progress.",
			plural(len(st.AgentStatuses), "agent"), done, failed)
	default:
		return "Run " + st.CurrentRun.RunID + " finished with " + plural(len(st.Ideas), "idea") + "."
	}
}

func compactRun(r history.RunRecord) map[string]any {
	m := map[string]any{
		"run_id":     r.RunID,
		"status":     r.Status,
		"query":      r.Query,
		"ideas":      r.IdeaCount,
		"created_at": r.CreatedAt,
	}
	if r.Error != "" {
		m["error"] = r.Error
	}
	return m
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
