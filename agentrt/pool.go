package agentrt

import (
	"context"
	"sync"

	"github.com/vigia/sentinela/core"
)

// Factory lazily constructs an Agent instance for a given agent type.
type Factory func() Agent

// Handle is a scoped lease on a pooled agent, guaranteeing Release on
// every exit path via defer.
type Handle struct {
	pool  *Pool
	kind  string
	Agent Agent
}

func (h *Handle) Release() {
	h.pool.release(h.kind, h.Agent)
}

// Pool is a bounded, lazily populated registry of agents keyed by type.
// Stateless agents are returned to the pool for reuse; stateful agents
// are singleton within the process and always handed back the same
// instance.
type Pool struct {
	mu         sync.Mutex
	logger     core.Logger
	maxPerType int
	factories  map[string]Factory
	idle       map[string][]Agent
	inUse      map[string]int
	singleton  map[string]Agent
	waiters    map[string][]chan struct{}
}

func NewPool(maxPerType int, logger core.Logger) *Pool {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	if caw, ok := logger.(core.ComponentAwareLogger); ok {
		logger = caw.WithComponent("agentrt/pool")
	}
	return &Pool{
		maxPerType: maxPerType,
		logger:     logger,
		factories:  make(map[string]Factory),
		idle:       make(map[string][]Agent),
		inUse:      make(map[string]int),
		singleton:  make(map[string]Agent),
		waiters:    make(map[string][]chan struct{}),
	}
}

// Register declares a lazily-constructed agent type.
func (p *Pool) Register(kind string, factory Factory) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.factories[kind] = factory
}

// Acquire returns a scoped Handle for kind, blocking until either an
// idle instance exists, the pool has room to create one under
// maxPerType, or ctx is cancelled.
func (p *Pool) Acquire(ctx context.Context, kind string) (*Handle, error) {
	for {
		p.mu.Lock()
		if singleton, ok := p.singleton[kind]; ok {
			p.mu.Unlock()
			return &Handle{pool: p, kind: kind, Agent: singleton}, nil
		}
		if idle := p.idle[kind]; len(idle) > 0 {
			agent := idle[len(idle)-1]
			p.idle[kind] = idle[:len(idle)-1]
			p.inUse[kind]++
			p.mu.Unlock()
			return &Handle{pool: p, kind: kind, Agent: agent}, nil
		}
		if p.inUse[kind] < p.maxPerType {
			factory, ok := p.factories[kind]
			if !ok {
				p.mu.Unlock()
				return nil, core.NewError("Acquire", core.KindAgent, kind, "no factory registered", core.ErrNotFound)
			}
			p.inUse[kind]++
			p.mu.Unlock()

			agent := factory()
			if err := agent.Initialize(ctx); err != nil {
				p.mu.Lock()
				p.inUse[kind]--
				p.wakeWaiter(kind)
				p.mu.Unlock()
				p.logger.Warn("agent initialization failed, not entering pool", map[string]interface{}{"kind": kind, "error": err.Error()})
				return nil, core.NewError("Acquire", core.KindAgent, kind, "initialize failed", err)
			}

			return &Handle{pool: p, kind: kind, Agent: agent}, nil
		}

		waiter := make(chan struct{})
		p.waiters[kind] = append(p.waiters[kind], waiter)
		p.mu.Unlock()

		select {
		case <-waiter:
		case <-ctx.Done():
			p.removeWaiter(kind, waiter)
			return nil, core.NewError("Acquire", core.KindResource, kind, "pool exhausted", core.ErrPoolExhausted)
		}
	}
}

// removeWaiter drops waiter from kind's wait list without closing it,
// used when ctx is cancelled before release() ever signals it.
func (p *Pool) removeWaiter(kind string, waiter chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	waiters := p.waiters[kind]
	for i, w := range waiters {
		if w == waiter {
			p.waiters[kind] = append(waiters[:i], waiters[i+1:]...)
			return
		}
	}
}

// RegisterSingleton installs a singleton agent: acquisitions of kind
// always return the same already-initialized instance, and Release is a
// no-op for it.
func (p *Pool) RegisterSingleton(ctx context.Context, kind string, agent Agent) error {
	if err := agent.Initialize(ctx); err != nil {
		return core.NewError("RegisterSingleton", core.KindAgent, kind, "initialize failed", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.singleton[kind] = agent
	return nil
}

func (p *Pool) release(kind string, agent Agent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.singleton[kind]; ok {
		return
	}
	p.inUse[kind]--
	p.idle[kind] = append(p.idle[kind], agent)
	p.wakeWaiter(kind)
}

// wakeWaiter signals the longest-waiting Acquire call for kind, if any,
// so it re-checks the idle/create path instead of blocking out the
// remainder of its caller's timeout.
func (p *Pool) wakeWaiter(kind string) {
	waiters := p.waiters[kind]
	if len(waiters) == 0 {
		return
	}
	close(waiters[0])
	p.waiters[kind] = waiters[1:]
}

// Utilization returns the fraction of maxPerType currently in use for
// kind, used by the router for tie-break on equally eligible agents.
func (p *Pool) Utilization(kind string) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.maxPerType == 0 {
		return 0
	}
	return float64(p.inUse[kind]) / float64(p.maxPerType)
}

// Shutdown tears down every singleton and idle instance.
func (p *Pool) Shutdown(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, a := range p.singleton {
		a.Shutdown(ctx)
	}
	for _, agents := range p.idle {
		for _, a := range agents {
			a.Shutdown(ctx)
		}
	}
}
