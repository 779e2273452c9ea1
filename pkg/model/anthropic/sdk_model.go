package anthropic

import (
	"context"
	"fmt"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	modelpkg "github.com/rajit-b/agentic-app/pkg/model"
	"github.com/rajit-b/agentic-app/pkg/telemetry"
)

const (
	defaultMaxTokens = 1024
	// DefaultModel is used when the config leaves the model name empty.
	DefaultModel = string(anthropicsdk.ModelClaudeSonnet4_5_20250929)
)

var _ modelpkg.Model = (*SDKModel)(nil)

// SDKModel wraps the official Anthropic SDK.
type SDKModel struct {
	client    *anthropicsdk.Client
	model     anthropicsdk.Model
	maxTokens int
}

// NewSDKModel creates a model backed by the official Anthropic SDK.
func NewSDKModel(apiKey, model, baseURL string, maxTokens int) (*SDKModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("anthropic: %w", modelpkg.ErrMissingAPIKey)
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := anthropicsdk.NewClient(opts...)
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &SDKModel{
		client:    &client,
		model:     anthropicsdk.Model(model),
		maxTokens: maxTokens,
	}, nil
}

// Generate performs a blocking Messages call.
func (m *SDKModel) Generate(ctx context.Context, messages []modelpkg.Message) (_ modelpkg.Message, err error) {
	ctx, span := telemetry.StartSpan(ctx, "model.anthropic.sdk.generate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(telemetry.SanitizeAttributes(
			attribute.String("llm.provider", "anthropic"),
			attribute.String("llm.model", string(m.model)),
		)...),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	system, turns := modelpkg.SplitSystem(messages)
	maxTokens := m.maxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	params := anthropicsdk.MessageNewParams{
		Model:     m.model,
		MaxTokens: int64(maxTokens),
		Messages:  convertMessages(turns),
	}
	if system != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: system}}
	}

	message, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return modelpkg.Message{}, fmt.Errorf("anthropic sdk call: %w", err)
	}

	var b strings.Builder
	for _, block := range message.Content {
		if text, ok := block.AsAny().(anthropicsdk.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}
	if b.Len() == 0 {
		return modelpkg.Message{}, modelpkg.ErrEmptyResponse
	}
	return modelpkg.Message{Role: modelpkg.RoleAssistant, Content: b.String()}, nil
}

func convertMessages(messages []modelpkg.Message) []anthropicsdk.MessageParam {
	out := make([]anthropicsdk.MessageParam, 0, len(messages))
	for _, msg := range messages {
		block := anthropicsdk.NewTextBlock(msg.Content)
		if msg.Role == modelpkg.RoleAssistant {
			out = append(out, anthropicsdk.NewAssistantMessage(block))
			continue
		}
		out = append(out, anthropicsdk.NewUserMessage(block))
	}
	return out
}

// Provider registers the Anthropic backend.
type Provider struct{}

var _ modelpkg.Provider = Provider{}

// Name returns "anthropic".
func (Provider) Name() string { return "anthropic" }

// NewModel builds a model from cfg.
func (Provider) NewModel(_ context.Context, cfg modelpkg.ModelConfig) (modelpkg.Model, error) {
	return NewSDKModel(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens)
}
