// Package agentrt implements the Agent Runtime: the Agent capability
// contract, the reflective retry loop, and the bounded lazy agent pool.
package agentrt

import (
	"context"

	"github.com/vigia/sentinela/core"
)

// QualityScore is reflect's verdict on a prior AgentResponse.
type QualityScore struct {
	Confidence float64
	Acceptable bool
	Reason     string
}

// Agent is the capability set every specialist worker implements. Its
// concrete work under Process is opaque to the runtime; only the
// contract shape is binding.
type Agent interface {
	ID() string
	Process(ctx context.Context, msg *core.AgentMessage, agentCtx *core.AgentContext) (*core.AgentResponse, error)
	Reflect(ctx context.Context, resp *core.AgentResponse) QualityScore
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Stateful agents (memory, for example) are singleton within the
// process; the pool never creates a second instance for them.
type Stateful interface {
	Agent
	Stateless() bool
}

// ReflectionThreshold is the confidence below which a response is sent
// back through reflect. DefaultMaxReflectionCycles bounds how many
// times a single dispatch may loop through reflect-and-retry.
const (
	ReflectionThreshold        = 0.6
	DefaultMaxReflectionCycles = 1
)

// DispatchWithReflection runs agent.Process, and if a completed
// response's metadata.confidence falls below ReflectionThreshold,
// invokes Reflect and retries Process up to maxCycles times. The result
// is not structurally validated; a response without a numeric
// confidence, or one that did not complete, is never reflected on.
// The final response carries metadata.reflection_cycles recording how
// many retries actually happened.
func DispatchWithReflection(ctx context.Context, agent Agent, msg *core.AgentMessage, agentCtx *core.AgentContext, maxCycles int) (*core.AgentResponse, error) {
	resp, err := agent.Process(ctx, msg, agentCtx)
	if err != nil {
		return nil, err
	}

	cycles := 0
	for cycles < maxCycles && needsReflection(resp) {
		score := agent.Reflect(ctx, resp)
		if score.Acceptable {
			break
		}
		retried, err := agent.Process(ctx, msg, agentCtx)
		if err != nil {
			return nil, err
		}
		resp = retried
		cycles++
	}

	if resp.Metadata == nil {
		resp.Metadata = make(map[string]interface{})
	}
	resp.Metadata["reflection_cycles"] = cycles
	if cycles >= maxCycles && needsReflection(resp) {
		resp.Metadata["low_confidence"] = true
	}
	return resp, nil
}

func needsReflection(resp *core.AgentResponse) bool {
	if resp.Status != core.AgentStatusCompleted {
		return false
	}
	conf, ok := resp.Metadata["confidence"].(float64)
	if !ok {
		return false
	}
	return conf < ReflectionThreshold
}
