package model

// EventType is the `type` discriminator of a push-channel message.
type EventType string

const (
	EventResearchStarted   EventType = "research_started"
	EventAgentStarted      EventType = "agent_started"
	EventAgentCompleted    EventType = "agent_completed"
	EventAgentFailed       EventType = "agent_failed"
	EventResearchCompleted EventType = "research_completed"
	EventResearchFailed    EventType = "research_failed"
	EventResearchCancelled EventType = "research_cancelled"
	EventTokenUsage        EventType = "token_usage"
	EventResearchResults   EventType = "research_results"
)

// Known reports whether t is one of the event types the dashboard reconciles.
func (t EventType) Known() bool {
	switch t {
	case EventResearchStarted, EventAgentStarted, EventAgentCompleted, EventAgentFailed,
		EventResearchCompleted, EventResearchFailed, EventResearchCancelled,
		EventTokenUsage, EventResearchResults:
		return true
	}
	return false
}

// ResearchStartedPayload is the payload of research_started.
type ResearchStartedPayload struct {
	RunID   string   `json:"run_id"`
	Query   string   `json:"query"`
	Sources []string `json:"sources"`
}

// AgentEventPayload covers agent_started, agent_completed and agent_failed.
// Summary is only set on completion, Error only on failure.
type AgentEventPayload struct {
	RunID     string  `json:"run_id"`
	AgentName string  `json:"agent_name"`
	Summary   *string `json:"summary"`
	Error     *string `json:"error"`
}

// ResearchResultsPayload is the authoritative terminal result set of a run.
// The event's run_id is read on its own so a bad id cannot discard the ideas.
type ResearchResultsPayload struct {
	Ideas []Idea `json:"ideas"`
}
