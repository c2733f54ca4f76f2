// Package store holds the dashboard's client-side state: the current run,
// its per-agent statuses, delivered ideas and token usage, plus the settings
// and agent catalog. State is only changed through the exported mutators, and
// readers get deep copies via Snapshot.
package store

import (
	"sync"
	"time"

	"github.com/ashita-ai/ideaforge/internal/model"
)

// State is a point-in-time copy of the run state.
type State struct {
	CurrentRun    *model.Run
	AgentStatuses []model.AgentStatus
	Ideas         []model.Idea
	TotalIdeas    int
	Loading       bool
	Error         string
	TokenUsage    *model.TokenUsage
	// StartedAt is when research_started arrived for the current run; zero
	// until then.
	StartedAt time.Time
}

// Elapsed returns the time since StartedAt, or zero if the run has not
// reported a start.
func (s State) Elapsed(now time.Time) time.Duration {
	if s.StartedAt.IsZero() || now.Before(s.StartedAt) {
		return 0
	}
	return now.Sub(s.StartedAt)
}

// Agent returns the status row for name, if one exists.
func (s State) Agent(name string) (model.AgentStatus, bool) {
	for _, a := range s.AgentStatuses {
		if a.AgentName == name {
			return a, true
		}
	}
	return model.AgentStatus{}, false
}

// Store is the run state store. The zero value is not usable; call New.
type Store struct {
	mu    sync.Mutex
	state State
	subs  *broker
}

// New returns an empty store.
func New() *Store {
	return &Store{
		state: State{AgentStatuses: []model.AgentStatus{}, Ideas: []model.Idea{}},
		subs:  newBroker(),
	}
}

var (
	defaultOnce  sync.Once
	defaultStore *Store
)

// Default returns the process-wide store shared by every view.
func Default() *Store {
	defaultOnce.Do(func() { defaultStore = New() })
	return defaultStore
}

// Subscribe returns a channel that receives a value after state changes.
// Notifications coalesce; receivers re-read Snapshot. Call Unsubscribe when done.
func (s *Store) Subscribe() <-chan struct{} { return s.subs.subscribe() }

// Unsubscribe stops notifications on ch and closes it.
func (s *Store) Unsubscribe(ch <-chan struct{}) { s.subs.unsubscribe(ch) }

// update applies fn under the lock and notifies subscribers afterwards.
func (s *Store) update(fn func(st *State)) {
	s.mu.Lock()
	fn(&s.state)
	s.mu.Unlock()
	s.subs.broadcast()
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	st.CurrentRun = s.state.CurrentRun.Clone()
	st.AgentStatuses = make([]model.AgentStatus, len(s.state.AgentStatuses))
	for i, a := range s.state.AgentStatuses {
		st.AgentStatuses[i] = a.Clone()
	}
	st.Ideas = model.CloneIdeas(s.state.Ideas)
	st.TokenUsage = s.state.TokenUsage.Clone()
	return st
}

// SetCurrentRun replaces the current run; nil clears it.
func (s *Store) SetCurrentRun(run *model.Run) {
	run = run.Clone()
	s.update(func(st *State) { st.CurrentRun = run })
}

// CurrentRunID returns the ID of the current run, or "" if there is none.
func (s *Store) CurrentRunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.CurrentRun == nil {
		return ""
	}
	return s.state.CurrentRun.RunID
}

// UpsertAgentStatus replaces the row with the same agent name in place, or
// appends a new row. Row order is the order agents were first seen.
func (s *Store) UpsertAgentStatus(status model.AgentStatus) {
	status = status.Clone()
	s.update(func(st *State) {
		for i := range st.AgentStatuses {
			if st.AgentStatuses[i].AgentName == status.AgentName {
				st.AgentStatuses[i] = status
				return
			}
		}
		st.AgentStatuses = append(st.AgentStatuses, status)
	})
}

// MergeAgentStatus is UpsertAgentStatus for rows read back from the backend
// after the fact: it never moves a row from a terminal state back to a
// non-terminal one. Reports whether the row was applied.
func (s *Store) MergeAgentStatus(status model.AgentStatus) bool {
	status = status.Clone()
	applied := true
	s.update(func(st *State) {
		for i := range st.AgentStatuses {
			if st.AgentStatuses[i].AgentName != status.AgentName {
				continue
			}
			if st.AgentStatuses[i].Status.Terminal() && !status.Status.Terminal() {
				applied = false
				return
			}
			st.AgentStatuses[i] = status
			return
		}
		st.AgentStatuses = append(st.AgentStatuses, status)
	})
	return applied
}

// ReplaceIdeas swaps in a new idea list and total.
func (s *Store) ReplaceIdeas(ideas []model.Idea, total int) {
	ideas = model.CloneIdeas(ideas)
	s.update(func(st *State) {
		st.Ideas = ideas
		st.TotalIdeas = total
	})
}

// SetLoading sets whether a run is in flight.
func (s *Store) SetLoading(loading bool) {
	s.update(func(st *State) { st.Loading = loading })
}

// SetError sets the user-visible error; "" clears it.
func (s *Store) SetError(msg string) {
	s.update(func(st *State) { st.Error = msg })
}

// SetTokenUsage replaces the token usage snapshot wholesale; nil clears it.
func (s *Store) SetTokenUsage(usage *model.TokenUsage) {
	usage = usage.Clone()
	s.update(func(st *State) { st.TokenUsage = usage })
}

// MarkRunStarted records the elapsed-time anchor of the current run.
func (s *Store) MarkRunStarted(at time.Time) {
	s.update(func(st *State) { st.StartedAt = at })
}

// ResetForNewRun clears everything that belongs to the previous run in one
// transition. The current run, loading flag and error are left to the caller.
func (s *Store) ResetForNewRun() {
	s.update(func(st *State) {
		st.AgentStatuses = []model.AgentStatus{}
		st.Ideas = []model.Idea{}
		st.TotalIdeas = 0
		st.TokenUsage = nil
		st.StartedAt = time.Time{}
	})
}
