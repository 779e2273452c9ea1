package openai

import (
	"context"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	modelpkg "github.com/rajit-b/agentic-app/pkg/model"
	"github.com/rajit-b/agentic-app/pkg/telemetry"
)

// DefaultModel is used when the config leaves the model name empty.
const DefaultModel = "gpt-4o-mini"

var _ modelpkg.Model = (*SDKModel)(nil)

// SDKModel wraps the official OpenAI SDK.
type SDKModel struct {
	client    openaisdk.Client
	model     openaisdk.ChatModel
	maxTokens int
}

// NewSDKModel creates a model backed by the official OpenAI SDK.
func NewSDKModel(apiKey, model, baseURL string, maxTokens int) (*SDKModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("openai: %w", modelpkg.ErrMissingAPIKey)
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &SDKModel{
		client:    openaisdk.NewClient(opts...),
		model:     openaisdk.ChatModel(model),
		maxTokens: maxTokens,
	}, nil
}

// Generate performs a blocking chat completion.
func (m *SDKModel) Generate(ctx context.Context, messages []modelpkg.Message) (_ modelpkg.Message, err error) {
	ctx, span := telemetry.StartSpan(ctx, "model.openai.sdk.generate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(telemetry.SanitizeAttributes(
			attribute.String("llm.provider", "openai"),
			attribute.String("llm.model", string(m.model)),
		)...),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	params := openaisdk.ChatCompletionNewParams{
		Messages: convertMessages(messages),
		Model:    m.model,
	}
	if m.maxTokens > 0 {
		params.MaxTokens = openaisdk.Int(int64(m.maxTokens))
	}

	completion, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return modelpkg.Message{}, fmt.Errorf("openai sdk call: %w", err)
	}
	if len(completion.Choices) == 0 {
		return modelpkg.Message{}, fmt.Errorf("openai: no choices in response")
	}
	content := completion.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return modelpkg.Message{}, modelpkg.ErrEmptyResponse
	}
	return modelpkg.Message{Role: modelpkg.RoleAssistant, Content: content}, nil
}
