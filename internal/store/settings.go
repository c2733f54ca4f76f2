package store

import (
	"sync"

	"github.com/ashita-ai/ideaforge/internal/model"
)

// SettingsState is a copy of the LLM settings.
type SettingsState struct {
	CurrentProvider string
	Providers       []model.LLMProviderInfo
}

// Settings holds the active LLM provider and the selectable providers.
type Settings struct {
	mu    sync.Mutex
	state SettingsState
	subs  *broker
}

// NewSettings returns settings with the default provider selected. An empty
// provider falls back to model.DefaultLLMProvider.
func NewSettings(provider string) *Settings {
	if provider == "" {
		provider = model.DefaultLLMProvider
	}
	return &Settings{
		state: SettingsState{CurrentProvider: provider, Providers: []model.LLMProviderInfo{}},
		subs:  newBroker(),
	}
}

func (s *Settings) Subscribe() <-chan struct{}     { return s.subs.subscribe() }
func (s *Settings) Unsubscribe(ch <-chan struct{}) { s.subs.unsubscribe(ch) }

// CurrentProvider returns the selected provider ID.
func (s *Settings) CurrentProvider() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentProvider
}

func (s *Settings) SetCurrentProvider(provider string) {
	s.mu.Lock()
	s.state.CurrentProvider = provider
	s.mu.Unlock()
	s.subs.broadcast()
}

func (s *Settings) SetProviders(providers []model.LLMProviderInfo) {
	cp := append([]model.LLMProviderInfo{}, providers...)
	s.mu.Lock()
	s.state.Providers = cp
	s.mu.Unlock()
	s.subs.broadcast()
}

func (s *Settings) Snapshot() SettingsState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SettingsState{
		CurrentProvider: s.state.CurrentProvider,
		Providers:       append([]model.LLMProviderInfo{}, s.state.Providers...),
	}
}
