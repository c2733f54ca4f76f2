// Package model defines the domain types exchanged with the IdeaForge backend.
//
// Types mirror the REST response bodies and push-event payloads one to one.
// Optional backend fields are pointers so that "absent" and "zero" stay
// distinguishable after a round trip.
package model

import "time"

// RunStatus is the backend-reported lifecycle state of a research run.
type RunStatus string

const (
	RunStatusStarted   RunStatus = "started"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run is one invocation of the research process. Identity is fixed for its
// lifetime; a new run supersedes the previous one rather than mutating it.
type Run struct {
	RunID       string    `json:"run_id"`
	Status      RunStatus `json:"status"`
	Query       string    `json:"query"`
	Sources     []string  `json:"sources"`
	LLMProvider string    `json:"llm_provider"`
	CreatedAt   time.Time `json:"created_at"`
}

// StartResearchRequest is the body of POST /research.
type StartResearchRequest struct {
	Query       string   `json:"query"`
	Sources     []string `json:"sources"`
	LLMProvider string   `json:"llm_provider"`
}

// Clone returns a copy that shares no slices with r.
func (r *Run) Clone() *Run {
	if r == nil {
		return nil
	}
	out := *r
	out.Sources = append([]string(nil), r.Sources...)
	return &out
}
