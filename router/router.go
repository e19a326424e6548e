// Package router implements the Router/Dispatcher: mapping an Intent to
// an ordered list of candidate agents and driving dispatch with
// fallback.
package router

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vigia/sentinela/agentrt"
	"github.com/vigia/sentinela/core"
	"github.com/vigia/sentinela/telemetry"
)

// SecondaryConfidenceThreshold is θ_secondary: a response below this
// confidence triggers dispatch to the next fallback target.
const SecondaryConfidenceThreshold = 0.5

// Table is the static intent -> agent fallback list, the single
// authoritative routing table the spec's open question asks for.
type Table map[core.IntentType][]string

// DefaultTable is Sentinela's authoritative intent-to-agent mapping.
func DefaultTable() Table {
	return Table{
		core.IntentGreeting:      {"communicator"},
		core.IntentHelpRequest:   {"communicator"},
		core.IntentInvestigate:   {"analyst", "detective", "communicator"},
		core.IntentAnalyze:       {"analyst", "communicator"},
		core.IntentReportRequest: {"reporter", "communicator"},
		core.IntentUnknown:       {"communicator"},
	}
}

// Router dispatches an Intent through the agent pool, observing
// responses and falling back per the static table.
type Router struct {
	table  Table
	pool   *agentrt.Pool
	logger core.Logger
	tel    *telemetry.Telemetry
}

func NewRouter(table Table, pool *agentrt.Pool, logger core.Logger) *Router {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	if caw, ok := logger.(core.ComponentAwareLogger); ok {
		logger = caw.WithComponent("router")
	}
	return &Router{table: table, pool: pool, logger: logger}
}

// SetTelemetry wires dispatch-latency recording. Optional: a Router with
// no telemetry set simply skips recording.
func (r *Router) SetTelemetry(tel *telemetry.Telemetry) {
	r.tel = tel
}

// candidates builds the ordered list of eligible agent ids: the
// suggested agent stays pinned first whenever present — it is the
// primary target, not one more option to rank by load — and only the
// static table's remainder is sorted by pool utilization, ties broken
// lexicographically.
func (r *Router) candidates(intent *core.Intent) []string {
	table := r.table[intent.Type]
	rest := make([]string, 0, len(table))
	seen := make(map[string]bool)

	if intent.SuggestedAgentID != "" {
		seen[intent.SuggestedAgentID] = true
	}
	for _, id := range table {
		if !seen[id] {
			rest = append(rest, id)
			seen[id] = true
		}
	}

	sort.SliceStable(rest, func(i, j int) bool {
		ui, uj := r.pool.Utilization(rest[i]), r.pool.Utilization(rest[j])
		if ui != uj {
			return ui < uj
		}
		return rest[i] < rest[j]
	})

	if intent.SuggestedAgentID == "" {
		return rest
	}
	ordered := make([]string, 0, len(rest)+1)
	ordered = append(ordered, intent.SuggestedAgentID)
	ordered = append(ordered, rest...)
	return ordered
}

// Dispatch tries each candidate in order, building an AgentMessage per
// attempt and stopping at the first response with status=completed and
// confidence >= SecondaryConfidenceThreshold; the last candidate's
// completed response is accepted whatever its confidence. The winning response
// carries an orchestration trace breadcrumb for debugging which
// fallback rank actually resolved the dispatch.
func (r *Router) Dispatch(ctx context.Context, intent *core.Intent, payload map[string]interface{}, agentCtx *core.AgentContext) (*core.AgentResponse, error) {
	started := time.Now()
	if r.tel != nil {
		defer func() { r.tel.RecordDispatchLatency(ctx, float64(time.Since(started).Milliseconds())) }()
	}

	candidates := r.candidates(intent)
	if len(candidates) == 0 {
		return nil, core.NewError("Dispatch", core.KindAgent, "", "no agent candidates for intent", nil)
	}

	var lastErr error
	for rank, agentID := range candidates {
		handle, err := r.pool.Acquire(ctx, agentID)
		if err != nil {
			lastErr = err
			continue
		}

		msg := &core.AgentMessage{
			MessageID: uuid.NewString(),
			Sender:    "router",
			Recipient: agentID,
			Action:    string(intent.Type),
			Payload:   payload,
			Context:   agentCtx,
			Timestamp: time.Now(),
		}

		resp, procErr := agentrt.DispatchWithReflection(ctx, handle.Agent, msg, agentCtx, agentrt.DefaultMaxReflectionCycles)
		handle.Release()

		if procErr != nil || resp.Status != core.AgentStatusCompleted {
			lastErr = procErr
			continue
		}
		confidence, _ := resp.Metadata["confidence"].(float64)
		if confidence < SecondaryConfidenceThreshold && rank < len(candidates)-1 {
			continue
		}

		resp.Metadata["orchestration"] = map[string]interface{}{
			"agent_id":                     agentID,
			"fallback_rank":                rank,
			"pool_utilization_at_dispatch": r.pool.Utilization(agentID),
		}
		return resp, nil
	}

	return nil, core.NewError("Dispatch", core.KindAgent, "", "all candidates exhausted", lastErr)
}
