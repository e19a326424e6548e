// Package federation implements the Data-Federation Executor: running N
// source fetches under one of four scheduling strategies, with
// deduplication and deadline-bounded partial-result semantics.
package federation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vigia/sentinela/core"
	"github.com/vigia/sentinela/resilience"
	"github.com/vigia/sentinela/sources"
)

// PerSourceOutcome is the classified result of one source's attempted
// fetch, surfaced in provenance regardless of strategy.
type PerSourceOutcome struct {
	SourceID string
	Outcome  core.SourceOutcome
	Records  []sources.Record
}

// FederatedResult is the return value of Executor.Execute. For
// aggregate/fallback/fastest it carries Records; for parallel it carries
// BySource grouping instead.
type FederatedResult struct {
	Strategy             core.Strategy
	Records              []sources.Record
	BySource             map[string][]sources.Record
	TotalRecordsAnalyzed int
	PerSource            []PerSourceOutcome
	Partial              bool
	MissingSources       []string
}

// Executor runs federated fetches against sources resolved from the
// registry, each call guarded by that source's circuit breaker and
// retry policy.
type Executor struct {
	registry *sources.Registry
	client   *sources.Client
	retry    *resilience.RetryPolicy
	logger   core.Logger
}

func NewExecutor(registry *sources.Registry, client *sources.Client, retry *resilience.RetryPolicy, logger core.Logger) *Executor {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	if caw, ok := logger.(core.ComponentAwareLogger); ok {
		logger = caw.WithComponent("federation/executor")
	}
	return &Executor{registry: registry, client: client, retry: retry, logger: logger}
}

// Execute runs capability's resolved sources under strategy, honoring
// deadline. Any source still in flight at the deadline is cancelled; a
// fully empty result is success, not failure — "no data" is a valid
// answer.
func (e *Executor) Execute(ctx context.Context, capability core.Capability, filters sources.Filters, filterValues map[string]interface{}, strategy core.Strategy, deadline time.Time) (*FederatedResult, error) {
	candidates := e.registry.Resolve(capability, filters)

	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	switch strategy {
	case core.StrategyFallback:
		return e.runFallback(ctx, candidates, filterValues)
	case core.StrategyFastest:
		return e.runFastest(ctx, candidates, filterValues)
	case core.StrategyParallel:
		return e.runParallel(ctx, candidates, filterValues)
	default:
		return e.runAggregate(ctx, candidates, filterValues)
	}
}

func (e *Executor) fetchOne(ctx context.Context, src *core.Source, filterValues map[string]interface{}) ([]sources.Record, core.SourceOutcome) {
	cb := e.registry.Breaker(src.ID)
	if cb == nil || !cb.Allow() {
		return nil, core.OutcomeCircuitOpen
	}

	var records []sources.Record
	err := e.retry.Do(ctx, func(ctx context.Context) error {
		r, fetchErr := e.client.Fetch(ctx, src, filterValues)
		if fetchErr != nil {
			return fetchErr
		}
		records = r
		return nil
	})

	if err != nil {
		outcome := classifyOutcome(ctx, err)
		e.registry.Report(src.ID, outcome)
		return nil, outcome
	}
	e.registry.Report(src.ID, core.OutcomeOK)
	return records, core.OutcomeOK
}

func classifyOutcome(ctx context.Context, err error) core.SourceOutcome {
	if ctx.Err() != nil {
		return core.OutcomeTimeout
	}
	if core.IsRetryable(err) {
		return core.OutcomeTransientFailure
	}
	return core.OutcomePermanentFailure
}

// runFallback tries candidates in priority order, stopping at first
// success.
func (e *Executor) runFallback(ctx context.Context, candidates []*core.Source, filterValues map[string]interface{}) (*FederatedResult, error) {
	result := &FederatedResult{Strategy: core.StrategyFallback}
	for _, src := range candidates {
		records, outcome := e.fetchOne(ctx, src, filterValues)
		result.PerSource = append(result.PerSource, PerSourceOutcome{SourceID: src.ID, Outcome: outcome, Records: records})
		if outcome == core.OutcomeOK {
			result.Records = records
			result.TotalRecordsAnalyzed = len(records)
			return result, nil
		}
	}
	result.Partial = true
	for _, src := range candidates {
		result.MissingSources = append(result.MissingSources, src.ID)
	}
	return result, nil
}

// runFastest starts every candidate concurrently and returns the first
// success, cancelling the rest.
func (e *Executor) runFastest(ctx context.Context, candidates []*core.Source, filterValues map[string]interface{}) (*FederatedResult, error) {
	result := &FederatedResult{Strategy: core.StrategyFastest}
	if len(candidates) == 0 {
		return result, nil
	}

	type outcomeMsg struct {
		src     *core.Source
		records []sources.Record
		outcome core.SourceOutcome
	}

	sub, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan outcomeMsg, len(candidates))
	var wg sync.WaitGroup
	for _, src := range candidates {
		wg.Add(1)
		go func(src *core.Source) {
			defer wg.Done()
			records, outcome := e.fetchOne(sub, src, filterValues)
			if sub.Err() != nil {
				return
			}
			ch <- outcomeMsg{src, records, outcome}
		}(src)
	}
	go func() { wg.Wait(); close(ch) }()

	var mu sync.Mutex
	for msg := range ch {
		mu.Lock()
		result.PerSource = append(result.PerSource, PerSourceOutcome{SourceID: msg.src.ID, Outcome: msg.outcome, Records: msg.records})
		mu.Unlock()
		if msg.outcome == core.OutcomeOK && result.Records == nil {
			result.Records = msg.records
			result.TotalRecordsAnalyzed = len(msg.records)
			cancel()
		}
	}

	if result.Records == nil {
		result.Partial = true
		for _, src := range candidates {
			found := false
			for _, po := range result.PerSource {
				if po.SourceID == src.ID && po.Outcome == core.OutcomeOK {
					found = true
				}
			}
			if !found {
				result.MissingSources = append(result.MissingSources, src.ID)
			}
		}
	}
	return result, nil
}

// runAggregate starts every candidate concurrently, waits for all or the
// deadline, then dedupes and merges.
func (e *Executor) runAggregate(ctx context.Context, candidates []*core.Source, filterValues map[string]interface{}) (*FederatedResult, error) {
	result := &FederatedResult{Strategy: core.StrategyAggregate}
	perSource, missing := e.fetchAllBounded(ctx, candidates, filterValues)
	result.PerSource = perSource

	bySource := make(map[string][]sources.Record, len(candidates))
	priorityBySource := make(map[string]int, len(candidates))
	for _, src := range candidates {
		priorityBySource[src.ID] = src.Priority
	}
	for _, po := range perSource {
		if po.Outcome == core.OutcomeOK {
			bySource[po.SourceID] = po.Records
		}
	}

	merged := dedupe(bySource, priorityBySource)
	result.Records = merged
	result.TotalRecordsAnalyzed = len(merged)
	if len(missing) > 0 {
		result.Partial = true
		result.MissingSources = missing
	}
	return result, nil
}

// runParallel starts every candidate concurrently, waits for all, and
// keeps per-source grouping instead of merging.
func (e *Executor) runParallel(ctx context.Context, candidates []*core.Source, filterValues map[string]interface{}) (*FederatedResult, error) {
	result := &FederatedResult{Strategy: core.StrategyParallel, BySource: make(map[string][]sources.Record)}
	perSource, missing := e.fetchAllBounded(ctx, candidates, filterValues)
	result.PerSource = perSource

	total := 0
	for _, po := range perSource {
		if po.Outcome == core.OutcomeOK {
			result.BySource[po.SourceID] = po.Records
			total += len(po.Records)
		}
	}
	result.TotalRecordsAnalyzed = total
	if len(missing) > 0 {
		result.Partial = true
		result.MissingSources = missing
	}
	return result, nil
}

// fetchAllBounded runs every candidate concurrently and collects
// per-source outcomes, recording as missing every source whose outcome
// is not ok (circuit_open, a failure, or a timeout at ctx's deadline).
func (e *Executor) fetchAllBounded(ctx context.Context, candidates []*core.Source, filterValues map[string]interface{}) ([]PerSourceOutcome, []string) {
	type result struct {
		po PerSourceOutcome
	}
	ch := make(chan result, len(candidates))
	var wg sync.WaitGroup
	for _, src := range candidates {
		wg.Add(1)
		go func(src *core.Source) {
			defer wg.Done()
			records, outcome := e.fetchOne(ctx, src, filterValues)
			ch <- result{PerSourceOutcome{SourceID: src.ID, Outcome: outcome, Records: records}}
		}(src)
	}
	go func() { wg.Wait(); close(ch) }()

	seen := make(map[string]bool, len(candidates))
	var outcomes []PerSourceOutcome
	for r := range ch {
		outcomes = append(outcomes, r.po)
		seen[r.po.SourceID] = true
	}

	var missing []string
	for _, src := range candidates {
		if !seen[src.ID] {
			missing = append(missing, src.ID)
			continue
		}
		for _, po := range outcomes {
			if po.SourceID == src.ID && po.Outcome != core.OutcomeOK {
				missing = append(missing, src.ID)
			}
		}
	}
	sort.Strings(missing)
	return outcomes, missing
}
