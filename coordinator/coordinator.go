// Package coordinator implements the Investigation Coordinator: the
// phase state machine that drives one investigation end to end,
// persisting progress at every transition and owning cancellation.
package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vigia/sentinela/core"
	"github.com/vigia/sentinela/federation"
	"github.com/vigia/sentinela/memory"
	"github.com/vigia/sentinela/planner"
	"github.com/vigia/sentinela/router"
	"github.com/vigia/sentinela/sources"
	"github.com/vigia/sentinela/streaming"
)

// Checkpoints are the fixed progress values at phase boundaries.
// Intermediate updates within a phase are informational only and never
// move progress backward.
var Checkpoints = map[string]float64{
	"pending":    0.0,
	"planning":   0.1,
	"collecting": 0.4,
	"analyzing":  0.8,
	"terminal":   1.0,
}

// StaleAfterRestart is the threshold past which a running investigation
// found at startup is marked failed instead of resumed, avoiding
// double-side-effects from resuming a partially executed phase.
const StaleAfterRestart = 10 * time.Minute

// Store persists an Investigation at every transition. A real deployment
// backs this with the persistent layer named in spec §6; Sentinela ships
// an in-memory implementation since persistent storage backing is an
// explicit spec Non-goal.
type Store interface {
	Save(ctx context.Context, inv *core.Investigation) error
	Get(ctx context.Context, id string) (*core.Investigation, bool)
	ListRunningOlderThan(ctx context.Context, age time.Duration) []*core.Investigation
}

// Coordinator drives one investigation's pipeline: planning, collecting
// (via the federation executor), analyzing/synthesizing (via the
// router), emitting stream events throughout.
type Coordinator struct {
	store    Store
	planner  *planner.Planner
	executor *federation.Executor
	router   *router.Router
	episodic *memory.EpisodicStore
	semantic memory.SemanticStore
	logger   core.Logger

	mu        sync.Mutex
	cancelFns map[string]context.CancelFunc
}

func NewCoordinator(store Store, pl *planner.Planner, exec *federation.Executor, r *router.Router, episodic *memory.EpisodicStore, logger core.Logger) *Coordinator {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	if caw, ok := logger.(core.ComponentAwareLogger); ok {
		logger = caw.WithComponent("coordinator")
	}
	return &Coordinator{
		store:     store,
		planner:   pl,
		executor:  exec,
		router:    r,
		episodic:  episodic,
		logger:    logger,
		cancelFns: make(map[string]context.CancelFunc),
	}
}

// Start creates a new Investigation in pending status and returns it
// together with the run context, bounded by timeout; the pipeline runs
// asynchronously via Run.
func (c *Coordinator) Start(ctx context.Context, q *core.Query, timeout time.Duration) (*core.Investigation, context.Context) {
	inv := &core.Investigation{
		ID:        uuid.NewString(),
		Status:    core.StatusPending,
		Progress:  Checkpoints["pending"],
		CreatedAt: time.Now(),
		Metadata:  make(map[string]interface{}),
	}
	c.save(ctx, inv)

	runCtx, cancel := context.WithTimeout(context.Background(), timeout)
	c.mu.Lock()
	c.cancelFns[inv.ID] = cancel
	c.mu.Unlock()

	return inv, runCtx
}

// GetInvestigation returns a snapshot read of the investigation record.
func (c *Coordinator) GetInvestigation(ctx context.Context, id string) (*core.Investigation, bool) {
	return c.store.Get(ctx, id)
}

// SetSemanticStore wires cross-investigation recall: Run consults it for
// related past queries before dispatch and records the finished
// investigation into it on completion. Optional: a Coordinator with no
// semantic store set simply skips both.
func (c *Coordinator) SetSemanticStore(s memory.SemanticStore) {
	c.semantic = s
}

// History returns the durable episodic trail recorded for id across its
// phase transitions, for post-hoc audit and reflection per spec §4.9.
func (c *Coordinator) History(ctx context.Context, id string) ([]memory.EpisodicRecord, error) {
	if c.episodic == nil {
		return nil, nil
	}
	return c.episodic.Load(ctx, id)
}

func (c *Coordinator) recordEpisodic(ctx context.Context, inv *core.Investigation, key string, payload map[string]interface{}) {
	if c.episodic == nil {
		return
	}
	if err := c.episodic.Store(ctx, memory.EpisodicRecord{InvestigationID: inv.ID, Key: key, Payload: payload}); err != nil {
		c.logger.Warn("episodic write failed", map[string]interface{}{"investigation_id": inv.ID, "key": key, "error": err.Error()})
	}
}

// Cancel propagates a cancel signal to an investigation's run context,
// its in-flight source fetches, and any agent currently processing.
func (c *Coordinator) Cancel(investigationID string) {
	c.mu.Lock()
	cancel, ok := c.cancelFns[investigationID]
	c.mu.Unlock()
	if ok {
		cancel()
	}
}

func (c *Coordinator) save(ctx context.Context, inv *core.Investigation) {
	if err := c.store.Save(ctx, inv); err != nil {
		c.logger.Error("failed to persist investigation", map[string]interface{}{"investigation_id": inv.ID, "error": err.Error()})
	}
}

// Run drives the full phase state machine for inv, emitting StreamEvents
// on emit as it progresses. It observes ctx cancellation at every phase
// boundary and terminates promptly with status=cancelled.
func (c *Coordinator) Run(ctx context.Context, inv *core.Investigation, q *core.Query, emit func(streaming.StreamEvent) bool) {
	defer func() {
		c.mu.Lock()
		delete(c.cancelFns, inv.ID)
		c.mu.Unlock()
	}()

	emit(streaming.NewStart(q.SessionID))

	inv.Status = core.StatusRunning
	inv.StartedAt = time.Now()
	c.advance(ctx, inv, "planning", emit)

	if ctx.Err() != nil {
		c.cancel(ctx, inv, emit)
		return
	}

	intent := c.planner.ClassifyIntent(ctx, q)
	emit(streaming.NewIntent(string(intent.Type), intent.Confidence))

	if intent.Type == core.IntentGreeting || intent.Type == core.IntentHelpRequest || intent.Type == core.IntentUnknown {
		c.fastPath(ctx, inv, intent, q, emit)
		return
	}

	plan, err := c.planner.Plan(intent, time.Now().Add(10*time.Second))
	if err != nil {
		c.fail(ctx, inv, "plan_error", err, emit)
		return
	}

	c.advance(ctx, inv, "collecting", emit)
	if ctx.Err() != nil {
		c.cancel(ctx, inv, emit)
		return
	}

	collected, missingAny := c.collect(ctx, plan, q, emit)
	if ctx.Err() != nil {
		c.cancel(ctx, inv, emit)
		return
	}
	if collected.allUnavailable {
		c.fail(ctx, inv, "all_sources_unavailable", core.NewError("Run", core.KindSource, "", "all sources circuit_open", core.ErrUnavailable), emit)
		return
	}

	c.advance(ctx, inv, "analyzing", emit)
	if ctx.Err() != nil {
		c.cancel(ctx, inv, emit)
		return
	}

	agentCtx := &core.AgentContext{InvestigationID: inv.ID, UserID: q.UserID, SessionID: q.SessionID, RequestID: inv.ID, Metadata: map[string]interface{}{}}
	c.attachRelatedMemories(ctx, q, agentCtx)

	resp, err := c.router.Dispatch(ctx, intent, map[string]interface{}{
		"total_records_analyzed": collected.totalRecords,
	}, agentCtx)
	if err != nil {
		c.fail(ctx, inv, "agent_unresponsive", err, emit)
		return
	}
	emit(streaming.NewAgentSelected(resp.AgentName))

	inv.TotalRecordsAnalyzed = collected.totalRecords
	if n, ok := resp.Result["anomalies_found"].(int); ok {
		inv.AnomaliesFound = n
	}
	if missingAny {
		inv.Metadata["partial"] = true
		inv.Metadata["missing_sources"] = collected.missingSources
	}
	if lowConf, _ := resp.Metadata["low_confidence"].(bool); lowConf {
		inv.Metadata["low_confidence"] = true
	}

	c.advance(ctx, inv, "synthesizing", emit)
	if ctx.Err() != nil {
		c.cancel(ctx, inv, emit)
		return
	}

	reportResp, err := c.router.Dispatch(ctx, &core.Intent{Type: core.IntentReportRequest}, map[string]interface{}{
		"total_records_analyzed": inv.TotalRecordsAnalyzed,
		"anomalies_found":        inv.AnomaliesFound,
	}, agentCtx)
	summary := summaryText(resp)
	if err == nil {
		summary = summaryText(reportResp)
	}

	for _, chunk := range streaming.ChunkText(summary, 5) {
		if !emit(streaming.NewText(chunk)) {
			return
		}
	}

	inv.Summary = summary
	c.complete(ctx, inv, q, emit)
}

// attachRelatedMemories recalls prior investigations whose stored
// summary overlaps q's text, so the dispatched agent can reference past
// findings instead of starting from nothing.
func (c *Coordinator) attachRelatedMemories(ctx context.Context, q *core.Query, agentCtx *core.AgentContext) {
	if c.semantic == nil {
		return
	}
	related, err := c.semantic.Recall(ctx, q.Text, 3)
	if err != nil || len(related) == 0 {
		return
	}
	agentCtx.Metadata["related_memories"] = related
}

func summaryText(resp *core.AgentResponse) string {
	if s, ok := resp.Result["summary"].(string); ok {
		return s
	}
	if s, ok := resp.Result["message"].(string); ok {
		return s
	}
	return "Investigação concluída."
}

func (c *Coordinator) fastPath(ctx context.Context, inv *core.Investigation, intent *core.Intent, q *core.Query, emit func(streaming.StreamEvent) bool) {
	agentCtx := &core.AgentContext{InvestigationID: inv.ID, UserID: q.UserID, SessionID: q.SessionID, RequestID: inv.ID, Metadata: map[string]interface{}{}}
	resp, err := c.router.Dispatch(ctx, intent, nil, agentCtx)
	if err != nil {
		c.fail(ctx, inv, "agent_unresponsive", err, emit)
		return
	}
	emit(streaming.NewAgentSelected(resp.AgentName))
	inv.Summary = summaryText(resp)
	for _, chunk := range streaming.ChunkText(inv.Summary, 5) {
		if !emit(streaming.NewText(chunk)) {
			return
		}
	}
	c.complete(ctx, inv, q, emit)
}

type collectResult struct {
	totalRecords   int
	missingSources []string
	allUnavailable bool
}

// collect runs every plan step through the federation executor,
// aggregating record counts and missing-source annotations.
func (c *Coordinator) collect(ctx context.Context, plan *core.ExecutionPlan, q *core.Query, emit func(streaming.StreamEvent) bool) (collectResult, bool) {
	var out collectResult
	circuitOpenCount, totalSteps := 0, 0

	for _, step := range plan.Steps {
		totalSteps++
		result, err := c.executor.Execute(ctx, step.Capability, sources.Filters{}, step.Filters, step.Strategy, step.Deadline)
		if err != nil {
			continue
		}
		out.totalRecords += result.TotalRecordsAnalyzed
		if result.Partial {
			out.missingSources = append(out.missingSources, result.MissingSources...)
		}

		openCount := 0
		for _, po := range result.PerSource {
			if po.Outcome == core.OutcomeCircuitOpen {
				openCount++
			}
		}
		if len(result.PerSource) > 0 && openCount == len(result.PerSource) {
			circuitOpenCount++
		}
	}

	out.allUnavailable = totalSteps > 0 && circuitOpenCount == totalSteps
	return out, len(out.missingSources) > 0
}

// checkpointFor resolves phase's fixed progress value. synthesizing is a
// sub-step within the analyzing->terminal span, not a distinct
// checkpoint, so it reuses analyzing's value rather than extending the
// fixed checkpoint set {0.0, 0.1, 0.4, 0.8, 1.0}.
func checkpointFor(phase string) float64 {
	if phase == "synthesizing" {
		return Checkpoints["analyzing"]
	}
	return Checkpoints[phase]
}

// advance moves the investigation to the named phase at its fixed
// checkpoint, persisting the transition and recording it to the
// episodic trail.
func (c *Coordinator) advance(ctx context.Context, inv *core.Investigation, phase string, emit func(streaming.StreamEvent) bool) {
	inv.CurrentPhase = core.Phase(phase)
	inv.Progress = checkpointFor(phase)
	c.save(ctx, inv)
	emit(streaming.NewProgress(inv.Progress, phase))
	c.recordEpisodic(ctx, inv, phase, map[string]interface{}{"progress": inv.Progress})
}

func (c *Coordinator) complete(ctx context.Context, inv *core.Investigation, q *core.Query, emit func(streaming.StreamEvent) bool) {
	inv.Status = core.StatusCompleted
	inv.Progress = Checkpoints["terminal"]
	inv.CompletedAt = time.Now()
	c.save(ctx, inv)
	c.recordEpisodic(ctx, inv, "completed", map[string]interface{}{
		"summary":                inv.Summary,
		"total_records_analyzed": inv.TotalRecordsAnalyzed,
		"anomalies_found":        inv.AnomaliesFound,
	})
	if c.semantic != nil && inv.Summary != "" {
		// Index the original query text alongside the summary: recall
		// matches future queries against what was asked, not just the
		// templated wording of how it was answered.
		indexed := q.Text + " " + inv.Summary
		if err := c.semantic.Store(ctx, inv.ID, indexed, map[string]interface{}{"investigation_id": inv.ID, "summary": inv.Summary}); err != nil {
			c.logger.Warn("semantic store write failed", map[string]interface{}{"investigation_id": inv.ID, "error": err.Error()})
		}
	}
	emit(streaming.NewDone())
}

func (c *Coordinator) fail(ctx context.Context, inv *core.Investigation, reason string, cause error, emit func(streaming.StreamEvent) bool) {
	inv.Status = core.StatusFailed
	inv.FailureReason = reason
	inv.CompletedAt = time.Now()
	c.save(ctx, inv)
	c.recordEpisodic(ctx, inv, "failed", map[string]interface{}{"reason": reason})
	msg := cause.Error()
	if core.IsPlanError(cause) {
		emit(streaming.NewWarning("Não entendi completamente sua pergunta; pode detalhar o que deseja investigar?"))
		msg = "plan_error"
	}
	emit(streaming.NewError(reason, msg))
}

func (c *Coordinator) cancel(ctx context.Context, inv *core.Investigation, emit func(streaming.StreamEvent) bool) {
	inv.Status = core.StatusCancelled
	inv.CompletedAt = time.Now()
	c.save(context.Background(), inv)
	c.recordEpisodic(context.Background(), inv, "cancelled", nil)
	emit(streaming.NewError("cancelled", "investigação cancelada"))
}

// RecoverStale marks any running investigation older than
// StaleAfterRestart as failed with reason stale_after_restart. It must
// be called once at startup, before any new investigation is accepted;
// by design there is no automatic resume, to avoid double-side-effects
// from re-running a partially executed phase.
func (c *Coordinator) RecoverStale(ctx context.Context) {
	for _, inv := range c.store.ListRunningOlderThan(ctx, StaleAfterRestart) {
		inv.Status = core.StatusFailed
		inv.FailureReason = "stale_after_restart"
		inv.CompletedAt = time.Now()
		c.save(ctx, inv)
	}
}
