package store_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/ideaforge/internal/model"
	"github.com/ashita-ai/ideaforge/internal/store"
)

func ptr[T any](v T) *T { return &v }

func TestNewStoreIsEmpty(t *testing.T) {
	st := store.New().Snapshot()
	assert.Nil(t, st.CurrentRun)
	assert.Empty(t, st.AgentStatuses)
	assert.NotNil(t, st.Ideas)
	assert.Equal(t, 0, st.TotalIdeas)
	assert.False(t, st.Loading)
	assert.Empty(t, st.Error)
	assert.Nil(t, st.TokenUsage)
	assert.True(t, st.StartedAt.IsZero())
}

func TestDefaultIsSingleton(t *testing.T) {
	assert.Same(t, store.Default(), store.Default())
}

func TestUpsertKeepsOneRowPerAgentInFirstSeenOrder(t *testing.T) {
	s := store.New()
	s.UpsertAgentStatus(model.AgentStatus{AgentName: "reddit", Status: model.AgentRunning})
	s.UpsertAgentStatus(model.AgentStatus{AgentName: "hackernews", Status: model.AgentRunning})
	s.UpsertAgentStatus(model.AgentStatus{AgentName: "reddit", Status: model.AgentCompleted, ResultSummary: ptr("Found 3")})
	s.UpsertAgentStatus(model.AgentStatus{AgentName: "reddit", Status: model.AgentFailed, ErrorMessage: ptr("timeout")})

	st := s.Snapshot()
	require.Len(t, st.AgentStatuses, 2)
	assert.Equal(t, "reddit", st.AgentStatuses[0].AgentName)
	assert.Equal(t, model.AgentFailed, st.AgentStatuses[0].Status)
	assert.Nil(t, st.AgentStatuses[0].ResultSummary)
	assert.Equal(t, "timeout", *st.AgentStatuses[0].ErrorMessage)
	assert.Equal(t, "hackernews", st.AgentStatuses[1].AgentName)
}

func TestMergeAgentStatusNeverRevertsTerminalRow(t *testing.T) {
	s := store.New()
	s.UpsertAgentStatus(model.AgentStatus{AgentName: "reddit", Status: model.AgentCompleted, ResultSummary: ptr("Found 3")})
	s.UpsertAgentStatus(model.AgentStatus{AgentName: "arxiv", Status: model.AgentRunning})

	assert.False(t, s.MergeAgentStatus(model.AgentStatus{AgentName: "reddit", Status: model.AgentRunning}))
	assert.True(t, s.MergeAgentStatus(model.AgentStatus{AgentName: "arxiv", Status: model.AgentFailed, ErrorMessage: ptr("timeout")}))
	assert.True(t, s.MergeAgentStatus(model.AgentStatus{AgentName: "github", Status: model.AgentPending}))

	st := s.Snapshot()
	require.Len(t, st.AgentStatuses, 3)
	reddit, _ := st.Agent("reddit")
	assert.Equal(t, model.AgentCompleted, reddit.Status)
	assert.Equal(t, "Found 3", *reddit.ResultSummary)
	arxiv, _ := st.Agent("arxiv")
	assert.Equal(t, model.AgentFailed, arxiv.Status)
	github, _ := st.Agent("github")
	assert.Equal(t, model.AgentPending, github.Status)
}

func TestResetForNewRunClearsRunScopedState(t *testing.T) {
	s := store.New()
	s.SetCurrentRun(&model.Run{RunID: "old"})
	s.UpsertAgentStatus(model.AgentStatus{AgentName: "reddit", Status: model.AgentCompleted})
	s.ReplaceIdeas([]model.Idea{{ID: 1, Title: "A"}}, 1)
	s.SetTokenUsage(&model.TokenUsage{TotalTokens: 500})
	s.MarkRunStarted(time.Now())
	s.SetError("previous")

	s.ResetForNewRun()

	st := s.Snapshot()
	assert.Empty(t, st.AgentStatuses)
	assert.Empty(t, st.Ideas)
	assert.Equal(t, 0, st.TotalIdeas)
	assert.Nil(t, st.TokenUsage)
	assert.True(t, st.StartedAt.IsZero())
	// Left for the caller.
	assert.Equal(t, "old", st.CurrentRun.RunID)
	assert.Equal(t, "previous", st.Error)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := store.New()
	s.UpsertAgentStatus(model.AgentStatus{AgentName: "reddit", ResultSummary: ptr("x")})
	s.ReplaceIdeas([]model.Idea{{ID: 1, Title: "A", CompositeScore: ptr(0.5)}}, 1)
	s.SetTokenUsage(&model.TokenUsage{TotalTokens: 10, TPMLimit: ptr(int64(100))})
	s.SetCurrentRun(&model.Run{RunID: "r1", Sources: []string{"reddit"}})

	st := s.Snapshot()
	*st.AgentStatuses[0].ResultSummary = "mutated"
	st.Ideas[0].Title = "mutated"
	*st.Ideas[0].CompositeScore = 9
	*st.TokenUsage.TPMLimit = 1
	st.CurrentRun.Sources[0] = "mutated"

	again := s.Snapshot()
	assert.Equal(t, "x", *again.AgentStatuses[0].ResultSummary)
	assert.Equal(t, "A", again.Ideas[0].Title)
	assert.Equal(t, 0.5, *again.Ideas[0].CompositeScore)
	assert.Equal(t, int64(100), *again.TokenUsage.TPMLimit)
	assert.Equal(t, "reddit", again.CurrentRun.Sources[0])
}

func TestTokenUsageReplacedWholesale(t *testing.T) {
	s := store.New()
	s.SetTokenUsage(&model.TokenUsage{TotalTokens: 500, LLMCalls: 2, TPMLimit: ptr(int64(6000))})
	s.SetTokenUsage(&model.TokenUsage{TotalTokens: 750, LLMCalls: 3})

	u := s.Snapshot().TokenUsage
	require.NotNil(t, u)
	assert.Equal(t, int64(750), u.TotalTokens)
	assert.Equal(t, int64(3), u.LLMCalls)
	assert.Nil(t, u.TPMLimit)
}

func TestCurrentRunID(t *testing.T) {
	s := store.New()
	assert.Empty(t, s.CurrentRunID())
	s.SetCurrentRun(&model.Run{RunID: "r1"})
	assert.Equal(t, "r1", s.CurrentRunID())
	s.SetCurrentRun(nil)
	assert.Empty(t, s.CurrentRunID())
}

func TestElapsed(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Zero(t, store.State{}.Elapsed(start))
	st := store.State{StartedAt: start}
	assert.Equal(t, 90*time.Second, st.Elapsed(start.Add(90*time.Second)))
	assert.Zero(t, st.Elapsed(start.Add(-time.Second)))
}

func TestSubscribeCoalescesNotifications(t *testing.T) {
	s := store.New()
	ch := s.Subscribe()
	defer s.Unsubscribe(ch)

	s.SetLoading(true)
	s.SetError("x")
	s.SetLoading(false)

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no notification")
	}
	select {
	case <-ch:
		t.Fatal("notifications were not coalesced")
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	s := store.New()
	ch := s.Subscribe()
	s.Unsubscribe(ch)
	s.Unsubscribe(ch) // unknown channel is ignored

	_, open := <-ch
	assert.False(t, open)
	s.SetLoading(true) // no panic sending to a removed subscriber
}

func TestConcurrentMutations(t *testing.T) {
	s := store.New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := []string{"reddit", "hackernews", "google_trends"}[i%3]
			s.UpsertAgentStatus(model.AgentStatus{AgentName: name, Status: model.AgentRunning})
			_ = s.Snapshot()
		}(i)
	}
	wg.Wait()
	assert.Len(t, s.Snapshot().AgentStatuses, 3)
}
