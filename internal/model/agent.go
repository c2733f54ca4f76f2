package model

// AgentState is the per-run state of a data-source agent.
type AgentState string

const (
	AgentPending   AgentState = "pending"
	AgentRunning   AgentState = "running"
	AgentCompleted AgentState = "completed"
	AgentFailed    AgentState = "failed"
)

// Valid reports whether s is one of the four known states.
func (s AgentState) Valid() bool {
	switch s {
	case AgentPending, AgentRunning, AgentCompleted, AgentFailed:
		return true
	}
	return false
}

// Terminal reports whether s is a final state for the run.
func (s AgentState) Terminal() bool {
	return s == AgentCompleted || s == AgentFailed
}

// AgentStatus is one row of the per-run agent status table.
// AgentName is the key; the table never holds two rows with the same name.
type AgentStatus struct {
	AgentName       string     `json:"agent_name"`
	Status          AgentState `json:"status"`
	DurationSeconds *float64   `json:"duration_seconds"`
	ResultSummary   *string    `json:"result_summary"`
	ErrorMessage    *string    `json:"error_message"`
}

// Clone returns a deep copy of s.
func (s AgentStatus) Clone() AgentStatus {
	s.DurationSeconds = clonePtr(s.DurationSeconds)
	s.ResultSummary = clonePtr(s.ResultSummary)
	s.ErrorMessage = clonePtr(s.ErrorMessage)
	return s
}

// AgentInfo describes a backend data-source agent as returned by GET /agents.
type AgentInfo struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Cost        string  `json:"cost"`
	Description string  `json:"description"`
	Limits      string  `json:"limits"`
	RequiresKey *string `json:"requires_key"`
	Enabled     bool    `json:"enabled"`
	HasAPIKey   bool    `json:"has_api_key"`
}

// IsFree reports whether the agent's data source costs nothing to query.
func (a AgentInfo) IsFree() bool { return a.Cost == "free" }

// Clone returns a deep copy of a.
func (a AgentInfo) Clone() AgentInfo {
	a.RequiresKey = clonePtr(a.RequiresKey)
	return a
}

// AgentCategories is the display order of agent categories.
var AgentCategories = []string{"search_trends", "social", "content", "tech", "news", "economy"}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
