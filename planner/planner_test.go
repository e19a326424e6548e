package planner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigia/sentinela/ai"
	"github.com/vigia/sentinela/core"
)

func newTestPlanner() *Planner {
	table := map[core.IntentType]string{
		core.IntentGreeting:    "communicator",
		core.IntentInvestigate: "analyst",
	}
	return NewPlanner(ai.NewLexiconClassifier(), table, nil)
}

func TestPlanner_ClassifyIntent_Greeting(t *testing.T) {
	p := newTestPlanner()
	intent := p.ClassifyIntent(context.Background(), &core.Query{Text: "olá, bom dia"})

	assert.Equal(t, core.IntentGreeting, intent.Type)
	assert.Equal(t, "communicator", intent.SuggestedAgentID)
	assert.GreaterOrEqual(t, intent.Confidence, 0.0)
	assert.LessOrEqual(t, intent.Confidence, 1.0)
}

func TestPlanner_Plan_InvestigateWithOrganizationProducesAggregateStep(t *testing.T) {
	p := newTestPlanner()
	intent := &core.Intent{
		Type:     core.IntentInvestigate,
		Entities: map[core.EntityKind][]string{core.EntityOrganization: {"ministério da saúde"}},
	}

	plan, err := p.Plan(intent, time.Now().Add(10*time.Second))

	require.NoError(t, err)
	require.Len(t, plan.Steps, 2)
	assert.Equal(t, core.StrategyAggregate, plan.Steps[0].Strategy)
}

func TestPlanner_Plan_FailsWithPlanErrorWhenNoCapabilityMapping(t *testing.T) {
	p := newTestPlanner()
	intent := &core.Intent{Type: core.IntentInvestigate, Entities: map[core.EntityKind][]string{}}

	_, err := p.Plan(intent, time.Now().Add(time.Second))

	require.Error(t, err)
	assert.True(t, core.IsPlanError(err))
}

func TestPlanner_Plan_NonInvestigationIntentReturnsEmptyPlan(t *testing.T) {
	p := newTestPlanner()
	intent := &core.Intent{Type: core.IntentGreeting}

	plan, err := p.Plan(intent, time.Now().Add(time.Second))

	require.NoError(t, err)
	assert.Empty(t, plan.Steps)
}

func TestPlanner_Plan_ReportRequestUsesFastestStrategy(t *testing.T) {
	p := newTestPlanner()
	intent := &core.Intent{
		Type:     core.IntentReportRequest,
		Entities: map[core.EntityKind][]string{core.EntityOrganization: {"ministério da educação"}},
	}

	plan, err := p.Plan(intent, time.Now().Add(time.Second))

	require.NoError(t, err)
	require.NotEmpty(t, plan.Steps)
	assert.Equal(t, core.StrategyFastest, plan.Steps[0].Strategy)
}
