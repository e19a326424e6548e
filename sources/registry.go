// Package sources implements the Source Registry: a static catalog of
// government data sources with their capabilities and priorities, plus
// the dynamic health state each carries as reported outcomes arrive.
package sources

import (
	"context"
	"sort"
	"sync"

	"github.com/vigia/sentinela/core"
	"github.com/vigia/sentinela/resilience"
)

// Filters narrow a resolve() call to a subset of eligible sources.
type Filters struct {
	Family SourceFamilyFilter
}

// SourceFamilyFilter restricts resolve() to sources of the named family
// when non-empty.
type SourceFamilyFilter string

// Registry is the single owning component for the source table and
// their breaker-backed health. Sources never reference each other;
// health is a map owned by the Registry, not a per-source object graph.
type Registry struct {
	logger core.Logger

	mu       sync.RWMutex
	sources  map[string]*core.Source
	breakers map[string]*resilience.CircuitBreaker
	bcfg     resilience.BreakerConfig
}

func NewRegistry(bcfg resilience.BreakerConfig, logger core.Logger) *Registry {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	if caw, ok := logger.(core.ComponentAwareLogger); ok {
		logger = caw.WithComponent("sources/registry")
	}
	return &Registry{
		logger:   logger,
		sources:  make(map[string]*core.Source),
		breakers: make(map[string]*resilience.CircuitBreaker),
		bcfg:     bcfg,
	}
}

// Declare adds a source to the catalog at startup. Sources are never
// removed once declared.
func (r *Registry) Declare(s *core.Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[s.ID] = s
	r.breakers[s.ID] = resilience.NewCircuitBreaker(s.ID, r.bcfg, r.logger)
}

// Breaker returns the circuit breaker owning a source's health; the
// Federation Executor checks its Allow before each fetch.
func (r *Registry) Breaker(sourceID string) *resilience.CircuitBreaker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.breakers[sourceID]
}

// Get returns the declared Source by id.
func (r *Registry) Get(sourceID string) (*core.Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[sourceID]
	return s, ok
}

// Resolve returns sources advertising capability, filtered by family,
// sorted healthy-first then by ascending priority; equal priority breaks
// tie by lexicographic source id for reproducible traces.
func (r *Registry) Resolve(capability core.Capability, filters Filters) []*core.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*core.Source
	for _, s := range r.sources {
		if !s.HasCapability(capability) {
			continue
		}
		if filters.Family != "" && string(s.Family) != string(filters.Family) {
			continue
		}
		matched = append(matched, s)
	}

	healthy := func(id string) bool {
		cb, ok := r.breakers[id]
		return ok && cb.State() != core.BreakerOpen
	}

	sort.Slice(matched, func(i, j int) bool {
		hi, hj := healthy(matched[i].ID), healthy(matched[j].ID)
		if hi != hj {
			return hi
		}
		if matched[i].Priority != matched[j].Priority {
			return matched[i].Priority < matched[j].Priority
		}
		return matched[i].ID < matched[j].ID
	})
	return matched
}

// Report records the outcome of a call against a source, updating its
// circuit breaker. Healthy is a function of breaker state, not a
// separate stored flag.
func (r *Registry) Report(sourceID string, outcome core.SourceOutcome) {
	r.mu.Lock()
	cb, ok := r.breakers[sourceID]
	s := r.sources[sourceID]
	r.mu.Unlock()
	if !ok {
		return
	}

	switch outcome {
	case core.OutcomeOK:
		cb.RecordSuccess()
	default:
		cb.RecordFailure()
		if s != nil {
			r.mu.Lock()
			s.Health.FailureCount++
			r.mu.Unlock()
		}
	}
}

// Snapshot returns the current breaker state for every declared source,
// used by the GET /sources operability endpoint.
func (r *Registry) Snapshot(ctx context.Context) map[string]core.BreakerState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]core.BreakerState, len(r.breakers))
	for id, cb := range r.breakers {
		out[id] = cb.State()
	}
	return out
}
