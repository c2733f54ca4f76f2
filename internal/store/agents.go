package store

import (
	"sync"

	"github.com/ashita-ai/ideaforge/internal/model"
)

// Agents is the local copy of the agent catalog.
type Agents struct {
	mu     sync.Mutex
	agents []model.AgentInfo
	subs   *broker
}

func NewAgents() *Agents {
	return &Agents{agents: []model.AgentInfo{}, subs: newBroker()}
}

func (a *Agents) Subscribe() <-chan struct{}     { return a.subs.subscribe() }
func (a *Agents) Unsubscribe(ch <-chan struct{}) { a.subs.unsubscribe(ch) }

// SetAgents replaces the catalog.
func (a *Agents) SetAgents(agents []model.AgentInfo) {
	cp := make([]model.AgentInfo, len(agents))
	for i, ag := range agents {
		cp[i] = ag.Clone()
	}
	a.mu.Lock()
	a.agents = cp
	a.mu.Unlock()
	a.subs.broadcast()
}

// Toggle flips the enabled flag of agent id and returns the new value.
// ok is false when no agent has that ID.
func (a *Agents) Toggle(id string) (enabled bool, ok bool) {
	a.mu.Lock()
	for i := range a.agents {
		if a.agents[i].ID == id {
			a.agents[i].Enabled = !a.agents[i].Enabled
			enabled, ok = a.agents[i].Enabled, true
			break
		}
	}
	a.mu.Unlock()
	if ok {
		a.subs.broadcast()
	}
	return enabled, ok
}

// SetEnabled sets the enabled flag of agent id. It reports whether the agent exists.
func (a *Agents) SetEnabled(id string, enabled bool) bool {
	a.mu.Lock()
	found := false
	for i := range a.agents {
		if a.agents[i].ID == id {
			a.agents[i].Enabled = enabled
			found = true
			break
		}
	}
	a.mu.Unlock()
	if found {
		a.subs.broadcast()
	}
	return found
}

// List returns a copy of the catalog in the order it was set.
func (a *Agents) List() []model.AgentInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]model.AgentInfo, len(a.agents))
	for i, ag := range a.agents {
		out[i] = ag.Clone()
	}
	return out
}

// Enabled returns the IDs of enabled agents in catalog order.
func (a *Agents) Enabled() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var ids []string
	for _, ag := range a.agents {
		if ag.Enabled {
			ids = append(ids, ag.ID)
		}
	}
	return ids
}
