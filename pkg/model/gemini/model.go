// Package gemini backs model.Model with the Google Gen AI SDK.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	modelpkg "github.com/rajit-b/agentic-app/pkg/model"
	"github.com/rajit-b/agentic-app/pkg/telemetry"
)

// DefaultModel is used when the config leaves the model name empty.
const DefaultModel = "gemini-2.5-flash"

var _ modelpkg.Model = (*SDKModel)(nil)

// SDKModel calls the Gemini API through google.golang.org/genai.
type SDKModel struct {
	client    *genai.Client
	model     string
	maxTokens int
}

// NewSDKModel creates a Gemini-backed model.
func NewSDKModel(ctx context.Context, apiKey, model, baseURL string, maxTokens int) (*SDKModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini: %w", modelpkg.ErrMissingAPIKey)
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions.BaseURL = baseURL
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &SDKModel{client: client, model: model, maxTokens: maxTokens}, nil
}

// Generate sends the conversation as a single request.
func (m *SDKModel) Generate(ctx context.Context, messages []modelpkg.Message) (_ modelpkg.Message, err error) {
	ctx, span := telemetry.StartSpan(ctx, "model.gemini.generate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(telemetry.SanitizeAttributes(
			attribute.String("llm.provider", "gemini"),
			attribute.String("llm.model", m.model),
		)...),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	system, turns := modelpkg.SplitSystem(messages)
	contents := make([]*genai.Content, 0, len(turns))
	for _, msg := range turns {
		role := genai.Role(genai.RoleUser)
		if msg.Role == modelpkg.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}

	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if m.maxTokens > 0 {
		cfg.MaxOutputTokens = int32(m.maxTokens)
	}

	resp, err := m.client.Models.GenerateContent(ctx, m.model, contents, cfg)
	if err != nil {
		return modelpkg.Message{}, fmt.Errorf("gemini generate: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return modelpkg.Message{}, modelpkg.ErrEmptyResponse
	}
	return modelpkg.Message{Role: modelpkg.RoleAssistant, Content: text}, nil
}

// Provider registers the Gemini backend.
type Provider struct{}

var _ modelpkg.Provider = Provider{}

// Name returns "gemini".
func (Provider) Name() string { return "gemini" }

// NewModel builds a model from cfg.
func (Provider) NewModel(ctx context.Context, cfg modelpkg.ModelConfig) (modelpkg.Model, error) {
	return NewSDKModel(ctx, cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens)
}
