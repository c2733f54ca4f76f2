package model

// DefaultLLMProvider is the provider selected before settings are loaded.
const DefaultLLMProvider = "groq"

// LLMProviderInfo describes one selectable LLM provider.
type LLMProviderInfo struct {
	ID          string `json:"id"`
	Model       string `json:"model"`
	Cost        string `json:"cost"`
	Speed       string `json:"speed"`
	Description string `json:"description"`
	HasAPIKey   bool   `json:"has_api_key"`
	IsActive    bool   `json:"is_active"`
}

// LLMSettings is the response of GET /settings/llm.
type LLMSettings struct {
	CurrentProvider string            `json:"current_provider"`
	Providers       []LLMProviderInfo `json:"providers"`
}

// LLMUpdateRequest is the body of PUT /settings/llm.
type LLMUpdateRequest struct {
	Provider string `json:"provider"`
}

// AgentToggleRequest is the body of PUT /settings/agents.
type AgentToggleRequest struct {
	Agents map[string]bool `json:"agents"`
}
