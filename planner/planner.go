// Package planner implements the Query Planner: intent classification,
// entity extraction, and execution planning over the declared source
// capabilities.
package planner

import (
	"context"
	"time"

	"github.com/vigia/sentinela/ai"
	"github.com/vigia/sentinela/core"
)

// ClassifyTimeout bounds the intent classification stage; on expiry the
// intent defaults to unknown at confidence 0, per spec §4.4.
const ClassifyTimeout = 3 * time.Second

// Planner turns a Query into an Intent and an ExecutionPlan.
type Planner struct {
	classifier ai.IntentClassifier
	extractor  *EntityExtractor
	logger     core.Logger

	agentTable map[core.IntentType]string
}

// NewPlanner wires classifier as the pluggable intent-classification
// backend and agentTable as the intent-to-agent default mapping used to
// populate Intent.SuggestedAgentID.
func NewPlanner(classifier ai.IntentClassifier, agentTable map[core.IntentType]string, logger core.Logger) *Planner {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	if caw, ok := logger.(core.ComponentAwareLogger); ok {
		logger = caw.WithComponent("planner")
	}
	return &Planner{
		classifier: classifier,
		extractor:  NewEntityExtractor(),
		agentTable: agentTable,
		logger:     logger,
	}
}

// ClassifyIntent runs stage 1. It never errors: a timeout or backend
// failure degrades to IntentUnknown at confidence 0.
func (p *Planner) ClassifyIntent(ctx context.Context, q *core.Query) *core.Intent {
	intentType, confidence := ai.ClassifyWithTimeout(ctx, p.classifier, q.Text, ClassifyTimeout)
	entities := p.extractor.Extract(q.Text, intentType)

	return &core.Intent{
		Type:             intentType,
		Entities:         entities,
		Confidence:       confidence,
		SuggestedAgentID: p.agentTable[intentType],
	}
}

// Plan runs stage 3, building an ExecutionPlan from intent and its
// entities. Returns a PlanError when an investigation-class intent
// lacks a capability mapping the entities can drive — the coordinator
// surfaces this as a clarifying prompt, not a hard error.
func (p *Planner) Plan(intent *core.Intent, deadline time.Time) (*core.ExecutionPlan, error) {
	if intent.Type != core.IntentInvestigate && intent.Type != core.IntentAnalyze && intent.Type != core.IntentReportRequest {
		return &core.ExecutionPlan{}, nil
	}

	capabilities := capabilitiesFor(intent.Entities)
	if len(capabilities) == 0 {
		return nil, core.NewError("Plan", core.KindPlan, "", "no capability mapping for extracted entities", nil)
	}

	filters := filtersFrom(intent.Entities)
	strategy := core.StrategyAggregate
	if timeCritical(intent) {
		strategy = core.StrategyFastest
	}

	steps := make([]core.PlanStep, 0, len(capabilities))
	for _, cap := range capabilities {
		steps = append(steps, core.PlanStep{
			Capability: cap,
			Strategy:   strategy,
			Filters:    filters,
			Deadline:   deadline,
		})
	}
	return &core.ExecutionPlan{Steps: steps}, nil
}

// timeCritical decides strategy selection: report requests need a
// single fast pass more than exhaustive aggregation.
func timeCritical(intent *core.Intent) bool {
	return intent.Type == core.IntentReportRequest
}

// capabilitiesFor maps extracted entity kinds onto the capabilities a
// plan step should target. An organization entity without further
// qualification defaults to contracts+expenses, the two most commonly
// requested capabilities in an investigation.
func capabilitiesFor(entities map[core.EntityKind][]string) []core.Capability {
	var caps []core.Capability
	if _, ok := entities[core.EntityOrganization]; ok {
		caps = append(caps, core.CapabilityContracts, core.CapabilityExpenses)
	}
	if _, ok := entities[core.EntityGeographicArea]; ok {
		caps = append(caps, core.CapabilityGeographic)
	}
	return dedupeCapabilities(caps)
}

func dedupeCapabilities(caps []core.Capability) []core.Capability {
	seen := make(map[core.Capability]bool, len(caps))
	var out []core.Capability
	for _, c := range caps {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

func filtersFrom(entities map[core.EntityKind][]string) map[string]interface{} {
	filters := make(map[string]interface{})
	if orgs, ok := entities[core.EntityOrganization]; ok && len(orgs) > 0 {
		filters["organization"] = orgs
	}
	if dates, ok := entities[core.EntityDateRange]; ok && len(dates) > 0 {
		filters["date_range"] = dates
	}
	if values, ok := entities[core.EntityValueRange]; ok && len(values) > 0 {
		filters["value_range"] = values
	}
	return filters
}
