// Package ai provides the pluggable LLM-backed intent classification
// backend: a common port plus a Bedrock-backed primary implementation
// and an Anthropic-backed backup, selected by LLM_PROVIDER.
package ai

import (
	"context"
	"time"

	"github.com/vigia/sentinela/core"
)

// IntentClassifier is the pluggable backend behind the Query Planner's
// intent-classification stage. Implementations must return within a
// bounded time; callers enforce the timeout via ctx, not the
// implementation itself.
type IntentClassifier interface {
	Classify(ctx context.Context, text string) (core.IntentType, float64, error)
}

// ClassifyWithTimeout wraps any IntentClassifier with the contractual
// "unknown at confidence 0 on timeout" fallback from spec §4.4.
func ClassifyWithTimeout(ctx context.Context, c IntentClassifier, text string, timeout time.Duration) (core.IntentType, float64) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		intent core.IntentType
		conf   float64
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		intent, conf, err := c.Classify(ctx, text)
		ch <- result{intent, conf, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return core.IntentUnknown, 0
		}
		return r.intent, r.conf
	case <-ctx.Done():
		return core.IntentUnknown, 0
	}
}
