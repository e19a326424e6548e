package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/vigia/sentinela/core"
)

// BedrockClassifier is the primary (LLM_PROVIDER=primary) intent
// classification backend, calling an Anthropic Claude model hosted on
// AWS Bedrock.
type BedrockClassifier struct {
	client  *bedrockruntime.Client
	modelID string
	logger  core.Logger
}

// NewBedrockClassifier builds a classifier from the process's default
// AWS credential chain. Returns an error if no region/credentials are
// resolvable, matching the teacher's fail-fast construction style for
// external clients.
func NewBedrockClassifier(ctx context.Context, modelID string, logger core.Logger) (*BedrockClassifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, core.NewError("NewBedrockClassifier", core.KindConfiguration, "", "load aws config", err)
	}
	if modelID == "" {
		modelID = "anthropic.claude-3-haiku-20240307-v1:0"
	}
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	return &BedrockClassifier{
		client:  bedrockruntime.NewFromConfig(cfg),
		modelID: modelID,
		logger:  logger,
	}, nil
}

type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	Messages         []bedrockMessage `json:"messages"`
}

type bedrockMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type bedrockResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (c *BedrockClassifier) Classify(ctx context.Context, text string) (core.IntentType, float64, error) {
	prompt := classificationPrompt(text)
	body, err := json.Marshal(bedrockRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        64,
		Messages:         []bedrockMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return core.IntentUnknown, 0, err
	}

	out, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return core.IntentUnknown, 0, core.NewError("Classify", core.KindSystem, c.modelID, "bedrock invoke failed", err)
	}

	var resp bedrockResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil || len(resp.Content) == 0 {
		return core.IntentUnknown, 0, core.NewError("Classify", core.KindSystem, c.modelID, "malformed bedrock response", err)
	}
	return parseClassification(resp.Content[0].Text)
}

func classificationPrompt(text string) string {
	return fmt.Sprintf(`Classifique a intenção da mensagem abaixo em uma das categorias:
greeting, help_request, investigate, analyze, report_request, unknown.
Responda apenas no formato "categoria|confianca" (confianca entre 0 e 1).

Mensagem: %q`, text)
}

func parseClassification(raw string) (core.IntentType, float64, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), "|", 2)
	if len(parts) != 2 {
		return core.IntentUnknown, 0, fmt.Errorf("ai: unparsable classification response %q", raw)
	}
	conf, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		conf = 0.5
	}
	return core.IntentType(strings.TrimSpace(parts[0])), conf, nil
}

var _ IntentClassifier = (*BedrockClassifier)(nil)
