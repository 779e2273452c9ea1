package openai

import (
	"context"
	"strings"

	modelpkg "github.com/rajit-b/agentic-app/pkg/model"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Provider wires OpenAI-backed models into the provider registry.
type Provider struct{}

var _ modelpkg.Provider = Provider{}

// Name advertises the provider identifier used by the registry.
func (Provider) Name() string {
	return "openai"
}

// NewModel builds a model configured according to cfg.
func (Provider) NewModel(ctx context.Context, cfg modelpkg.ModelConfig) (modelpkg.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return NewSDKModel(cfg.APIKey, strings.TrimSpace(cfg.Model), sanitizeBaseURL(cfg.BaseURL), cfg.MaxTokens)
}

func sanitizeBaseURL(base string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(base), "/")
	if trimmed == "" || trimmed == defaultBaseURL {
		return ""
	}
	return trimmed
}
