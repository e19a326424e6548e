package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigia/sentinela/agentrt"
	"github.com/vigia/sentinela/core"
)

func newTestPool(t *testing.T) *agentrt.Pool {
	pool := agentrt.NewPool(2, nil)
	pool.Register("communicator", func() agentrt.Agent { return agentrt.NewCommunicatorAgent() })
	pool.Register("analyst", func() agentrt.Agent { return agentrt.NewAnalystAgent() })
	pool.Register("reporter", func() agentrt.Agent { return agentrt.NewReporterAgent() })
	return pool
}

func TestRouter_Dispatch_SuggestedAgentTakesPriorityOverTable(t *testing.T) {
	pool := newTestPool(t)
	r := NewRouter(DefaultTable(), pool, nil)

	intent := &core.Intent{Type: core.IntentGreeting, SuggestedAgentID: "communicator"}
	candidates := r.candidates(intent)

	require.NotEmpty(t, candidates)
	assert.Equal(t, "communicator", candidates[0])
}

func TestRouter_Dispatch_RecordsOrchestrationBreadcrumb(t *testing.T) {
	pool := newTestPool(t)
	r := NewRouter(DefaultTable(), pool, nil)

	intent := &core.Intent{Type: core.IntentInvestigate}
	resp, err := r.Dispatch(context.Background(), intent, map[string]interface{}{}, &core.AgentContext{})

	require.NoError(t, err)
	require.NotNil(t, resp)
	orch, ok := resp.Metadata["orchestration"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, orch, "agent_id")
	assert.Contains(t, orch, "fallback_rank")
}

func TestRouter_Dispatch_ErrorsWhenNoCandidatesForIntent(t *testing.T) {
	pool := newTestPool(t)
	r := NewRouter(Table{}, pool, nil)

	_, err := r.Dispatch(context.Background(), &core.Intent{Type: core.IntentUnknown}, nil, &core.AgentContext{})

	require.Error(t, err)
	assert.True(t, core.IsAgentError(err))
}

func TestRouter_Candidates_SuggestedPrimaryStaysFirstDespiteHigherUtilizationThanFallback(t *testing.T) {
	pool := newTestPool(t)
	h, _ := pool.Acquire(context.Background(), "analyst")
	defer h.Release()

	r := NewRouter(Table{core.IntentInvestigate: {"analyst", "communicator"}}, pool, nil)
	intent := &core.Intent{Type: core.IntentInvestigate, SuggestedAgentID: "analyst"}
	candidates := r.candidates(intent)

	// analyst is busier than communicator (0.5 vs 0.0 utilization) but was
	// explicitly suggested and never failed, so it must not be demoted
	// behind an idle fallback.
	require.NotEmpty(t, candidates)
	assert.Equal(t, "analyst", candidates[0])
}

func TestRouter_Candidates_TieBreaksOnUtilizationThenLexicographic(t *testing.T) {
	pool := newTestPool(t)
	h, _ := pool.Acquire(context.Background(), "analyst")
	defer h.Release()

	r := NewRouter(Table{core.IntentAnalyze: {"analyst", "communicator"}}, pool, nil)
	candidates := r.candidates(&core.Intent{Type: core.IntentAnalyze})

	// analyst has nonzero utilization now, communicator has zero, so
	// communicator sorts first despite appearing second in the table.
	assert.Equal(t, "communicator", candidates[0])
}
