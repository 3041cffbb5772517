package openai

import (
	"context"
	"fmt"
	"math"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/domain/answer"
	"github.com/kailas-cloud/docqa/internal/metrics"
)

// Response formats accepted by ChatConfig.ResponseFormat.
const (
	FormatJSONSchema = "json_schema"
	FormatJSONObject = "json_object"
	FormatText       = "text"
)

// ChatConfig holds the chat model settings.
type ChatConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Temperature    float32
	MaxTokens      int
	ResponseFormat string
	Provider       string
	Logger         *zap.Logger
}

// Chat is a chat completion client for OpenAI-compatible endpoints (vLLM, OpenAI, Nebius).
type Chat struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	format      *openai.ChatCompletionResponseFormat
	provider    string
	logger      *zap.Logger
}

// NewChat creates a chat completion client.
func NewChat(cfg *ChatConfig) (*Chat, error) {
	format, err := responseFormat(cfg.ResponseFormat)
	if err != nil {
		return nil, err
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Chat{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: wireTemperature(cfg.Temperature),
		maxTokens:   cfg.MaxTokens,
		format:      format,
		provider:    cfg.Provider,
		logger:      cfg.Logger,
	}, nil
}

// Complete sends a system and a user message and returns the raw content of the first choice.
func (c *Chat) Complete(ctx context.Context, system, user string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature:    c.temperature,
		MaxTokens:      c.maxTokens,
		ResponseFormat: c.format,
	}

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		c.recordError("api_error")
		return "", parseAPIError(err, "chat", domain.ErrLLMProviderError)
	}

	if len(resp.Choices) == 0 {
		c.recordError("empty_response")
		return "", fmt.Errorf("chat completion returned no choices: %w", domain.ErrLLMProviderError)
	}

	metrics.LLMRequestsTotal.WithLabelValues(c.provider, c.model, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(c.provider, c.model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.LLMTokensTotal.WithLabelValues(c.provider, c.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.LLMTokensTotal.WithLabelValues(c.provider, c.model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}
	domain.UsageFromContext(ctx).AddCompletionTokens(resp.Usage.TotalTokens)

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonLength {
		c.logger.Warn("Chat completion truncated by max_tokens",
			zap.String("model", c.model), zap.Int("max_tokens", c.maxTokens))
	}

	return choice.Message.Content, nil
}

// wireTemperature keeps a configured zero on the wire: the request field is
// omitempty, and a missing temperature means the provider default.
func wireTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

func (c *Chat) recordError(kind string) {
	metrics.LLMRequestsTotal.WithLabelValues(c.provider, c.model, "error").Inc()
	metrics.LLMErrorsTotal.WithLabelValues(c.provider, c.model, kind).Inc()
}

func responseFormat(name string) (*openai.ChatCompletionResponseFormat, error) {
	switch name {
	case "", FormatJSONSchema:
		schema := AnswerSchema()
		return &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "answer",
				Schema: &schema,
				Strict: true,
			},
		}, nil
	case FormatJSONObject:
		return &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}, nil
	case FormatText:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown response format %q", name)
	}
}

// AnswerSchema is the strict JSON schema of an answer payload.
func AnswerSchema() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"answer": {
				Type:        jsonschema.String,
				Description: "Answer grounded in the provided context",
			},
			"category": {
				Type: jsonschema.String,
				Enum: categoryNames(),
			},
			"confidence": {
				Type:        jsonschema.Number,
				Description: "Confidence between 0 and 1",
			},
			"sources": {
				Type: jsonschema.Array,
				Items: &jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"doc":     {Type: jsonschema.String},
						"snippet": {Type: jsonschema.String},
					},
					Required:             []string{"doc", "snippet"},
					AdditionalProperties: false,
				},
			},
		},
		Required:             []string{"answer", "category", "confidence", "sources"},
		AdditionalProperties: false,
	}
}

func categoryNames() []string {
	names := make([]string, len(answer.Categories))
	for i, c := range answer.Categories {
		names[i] = string(c)
	}
	return names
}
