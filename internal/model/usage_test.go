package model_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/ideaforge/internal/model"
)

func ptr[T any](v T) *T { return &v }

func TestTokenUsageRateStatus(t *testing.T) {
	tests := []struct {
		name  string
		total int64
		limit *int64
		want  model.RateStatus
	}{
		{"no limit", 10_000, nil, model.RateOK},
		{"zero limit", 10, ptr(int64(0)), model.RateOK},
		{"well below", 500, ptr(int64(1000)), model.RateOK},
		{"at seventy percent", 700, ptr(int64(1000)), model.RateApproaching},
		{"at limit", 1000, ptr(int64(1000)), model.RateExceeded},
		{"over limit", 1500, ptr(int64(1000)), model.RateExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := model.TokenUsage{TotalTokens: tt.total, TPMLimit: tt.limit}
			assert.Equal(t, tt.want, u.RateStatus())
		})
	}
}

func TestTokenUsagePercentCapped(t *testing.T) {
	u := model.TokenUsage{TotalTokens: 750, TPMLimit: ptr(int64(1000))}
	assert.InDelta(t, 75.0, u.Percent(), 0.001)

	u.TotalTokens = 5000
	assert.InDelta(t, 100.0, u.Percent(), 0.001)

	u.TPMLimit = nil
	assert.Zero(t, u.Percent())
}

func TestTokenUsageCloneIsIndependent(t *testing.T) {
	u := &model.TokenUsage{Provider: "groq", TotalTokens: 1, TPMLimit: ptr(int64(1000))}
	c := u.Clone()
	*c.TPMLimit = 5
	assert.Equal(t, int64(1000), *u.TPMLimit)

	var nilUsage *model.TokenUsage
	assert.Nil(t, nilUsage.Clone())
}

func TestTokenUsageDecodesBackendSnapshot(t *testing.T) {
	raw := `{"type":"token_usage","run_id":"ab12cd34","provider":"groq","prompt_tokens":300,
		"completion_tokens":200,"total_tokens":500,"llm_calls":2,"tpm_limit":null}`
	var u model.TokenUsage
	require.NoError(t, json.Unmarshal([]byte(raw), &u))
	assert.Equal(t, int64(500), u.TotalTokens)
	assert.Equal(t, int64(2), u.LLMCalls)
	assert.Nil(t, u.TPMLimit)
}

func TestAgentStateValid(t *testing.T) {
	assert.True(t, model.AgentRunning.Valid())
	assert.False(t, model.AgentState("paused").Valid())
}

func TestAgentStateTerminal(t *testing.T) {
	assert.True(t, model.AgentCompleted.Terminal())
	assert.True(t, model.AgentFailed.Terminal())
	assert.False(t, model.AgentRunning.Terminal())
	assert.False(t, model.AgentPending.Terminal())
}

func TestEventTypeKnown(t *testing.T) {
	assert.True(t, model.EventResearchResults.Known())
	assert.False(t, model.EventType("heartbeat").Known())
}

func TestCloneIdeasDeepCopies(t *testing.T) {
	ideas := []model.Idea{{ID: 1, Title: "a", CompositeScore: ptr(0.5)}}
	c := model.CloneIdeas(ideas)
	*c[0].CompositeScore = 0.9
	assert.InDelta(t, 0.5, *ideas[0].CompositeScore, 0.0001)

	assert.NotNil(t, model.CloneIdeas(nil))
}
