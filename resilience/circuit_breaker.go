// Package resilience provides the composable failure-handling primitives
// every call to an external source goes through: a per-source circuit
// breaker, a retry policy, and a fallback chain.
package resilience

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/vigia/sentinela/core"
)

// BreakerConfig tunes a CircuitBreaker's thresholds.
type BreakerConfig struct {
	FailureThreshold float64       // fraction of failures in Window that trips the breaker
	Window           time.Duration // sliding window over which failures are counted
	MinSamples       int           // minimum samples in Window before the threshold applies
	Cooldown         time.Duration // time spent open before probing half-open
	MaxCooldown      time.Duration // cap on cooldown after repeated half-open failures
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 0.5,
		Window:           30 * time.Second,
		MinSamples:       5,
		Cooldown:         30 * time.Second,
		MaxCooldown:      5 * time.Minute,
	}
}

type sample struct {
	at      time.Time
	success bool
}

// CircuitBreaker guards a single source. States: closed -> open ->
// half_open -> closed. A half-open probe is single-in-flight: only one
// caller at a time is allowed to dial out while the breaker is deciding
// whether the source has recovered.
type CircuitBreaker struct {
	id     string
	cfg    BreakerConfig
	logger core.Logger

	mu       sync.Mutex
	samples  []sample
	state    atomic.Int32 // core.BreakerState
	openedAt time.Time
	cooldown time.Duration
	probing  atomic.Bool

	nowFn func() time.Time
}

func NewCircuitBreaker(id string, cfg BreakerConfig, logger core.Logger) *CircuitBreaker {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	if caw, ok := logger.(core.ComponentAwareLogger); ok {
		logger = caw.WithComponent("resilience/circuit_breaker")
	}
	cb := &CircuitBreaker{
		id:       id,
		cfg:      cfg,
		logger:   logger,
		cooldown: cfg.Cooldown,
		nowFn:    time.Now,
	}
	cb.state.Store(int32(core.BreakerClosed))
	return cb
}

// State returns the breaker's current gate position, resolving an
// expired open window into half_open on read.
func (cb *CircuitBreaker) State() core.BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stateLocked()
}

func (cb *CircuitBreaker) stateLocked() core.BreakerState {
	st := core.BreakerState(cb.state.Load())
	if st == core.BreakerOpen && cb.nowFn().Sub(cb.openedAt) >= cb.cooldown {
		cb.state.Store(int32(core.BreakerHalfOpen))
		return core.BreakerHalfOpen
	}
	return st
}

// Allow reports whether a call may proceed, and for half_open also
// claims the single in-flight probe slot. Callers that get false must
// not dial out; the result of their attempted call should not be
// reported via RecordSuccess/RecordFailure.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	st := cb.stateLocked()
	cb.mu.Unlock()

	switch st {
	case core.BreakerClosed:
		return true
	case core.BreakerOpen:
		return false
	case core.BreakerHalfOpen:
		return cb.probing.CompareAndSwap(false, true)
	default:
		return false
	}
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	st := cb.stateLocked()
	if st == core.BreakerHalfOpen {
		cb.state.Store(int32(core.BreakerClosed))
		cb.samples = nil
		cb.cooldown = cb.cfg.Cooldown
		cb.probing.Store(false)
		cb.logger.Info("circuit closed after successful probe", map[string]interface{}{"source_id": cb.id})
		return
	}
	cb.samples = append(cb.samples, sample{at: cb.nowFn(), success: true})
	cb.trim()
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	st := cb.stateLocked()
	if st == core.BreakerHalfOpen {
		cb.openCircuit()
		cb.backoffCooldown()
		cb.probing.Store(false)
		return
	}

	cb.samples = append(cb.samples, sample{at: cb.nowFn(), success: false})
	cb.trim()

	if len(cb.samples) < cb.cfg.MinSamples {
		return
	}
	failures := 0
	for _, s := range cb.samples {
		if !s.success {
			failures++
		}
	}
	if float64(failures)/float64(len(cb.samples)) >= cb.cfg.FailureThreshold {
		cb.openCircuit()
	}
}

func (cb *CircuitBreaker) openCircuit() {
	cb.state.Store(int32(core.BreakerOpen))
	cb.openedAt = cb.nowFn()
	cb.logger.Warn("circuit opened", map[string]interface{}{"source_id": cb.id})
}

// backoffCooldown doubles the cooldown window on repeated half-open
// failure, capped at MaxCooldown.
func (cb *CircuitBreaker) backoffCooldown() {
	next := cb.cooldown * 2
	if next > cb.cfg.MaxCooldown {
		next = cb.cfg.MaxCooldown
	}
	cb.cooldown = next
}

func (cb *CircuitBreaker) trim() {
	cutoff := cb.nowFn().Add(-cb.cfg.Window)
	i := 0
	for i < len(cb.samples) && cb.samples[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		cb.samples = cb.samples[i:]
	}
}

// ForceOpen and ForceClosed are manual operator overrides, bypassing the
// sliding window entirely.
func (cb *CircuitBreaker) ForceOpen() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.openCircuit()
}

func (cb *CircuitBreaker) ForceClosed() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state.Store(int32(core.BreakerClosed))
	cb.samples = nil
	cb.cooldown = cb.cfg.Cooldown
	cb.probing.Store(false)
}
