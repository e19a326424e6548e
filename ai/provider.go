package ai

import (
	"context"

	"github.com/vigia/sentinela/core"
)

// Select builds the configured intent classifier backend. provider is
// config.LLMProvider ("primary" selects Bedrock, "backup" selects
// Anthropic directly); construction failure of the requested backend
// falls back to the lexicon classifier rather than leaving the planner
// without one, since intent classification must never be unavailable.
func Select(ctx context.Context, provider string, logger core.Logger) IntentClassifier {
	switch provider {
	case "backup":
		if c, err := NewAnthropicClassifier("", logger); err == nil {
			return c
		}
	default:
		if c, err := NewBedrockClassifier(ctx, "", logger); err == nil {
			return c
		}
	}
	if logger != nil {
		logger.Warn("llm classifier backend unavailable, using lexicon fallback", map[string]interface{}{"provider": provider})
	}
	return NewLexiconClassifier()
}
