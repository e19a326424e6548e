package ai

import (
	"context"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/vigia/sentinela/core"
)

// AnthropicClassifier is the backup (LLM_PROVIDER=backup) intent
// classification backend, calling the Anthropic API directly instead of
// through Bedrock. Selected only when LLM_PROVIDER=backup; it is not
// used as a fallback for an unreachable Bedrock backend.
type AnthropicClassifier struct {
	client *anthropic.Client
	model  anthropic.Model
	logger core.Logger
}

func NewAnthropicClassifier(apiKey string, logger core.Logger) (*AnthropicClassifier, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, core.NewError("NewAnthropicClassifier", core.KindConfiguration, "", "ANTHROPIC_API_KEY not set", core.ErrNotConfigured)
	}
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicClassifier{client: &client, model: anthropic.ModelClaude3_5HaikuLatest, logger: logger}, nil
}

func (c *AnthropicClassifier) Classify(ctx context.Context, text string) (core.IntentType, float64, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 64,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(classificationPrompt(text))),
		},
	})
	if err != nil {
		return core.IntentUnknown, 0, core.NewError("Classify", core.KindSystem, "anthropic", "anthropic call failed", err)
	}
	if len(msg.Content) == 0 {
		return core.IntentUnknown, 0, core.NewError("Classify", core.KindSystem, "anthropic", "empty anthropic response", nil)
	}
	return parseClassification(msg.Content[0].Text)
}

var _ IntentClassifier = (*AnthropicClassifier)(nil)
