package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Roles understood by every backend.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrMissingAPIKey reports a backend constructed without credentials.
var ErrMissingAPIKey = errors.New("model: api key is required")

// ErrEmptyResponse reports a backend reply without any text.
var ErrEmptyResponse = errors.New("model: empty response")

// Message is a single text turn exchanged with a model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Model is the text-in/text-out boundary to a hosted language model.
// Generate is a unary request/response call with no retries.
type Model interface {
	Generate(ctx context.Context, messages []Message) (Message, error)
}

// Func adapts an ordinary function to the Model interface.
type Func func(ctx context.Context, messages []Message) (Message, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, messages []Message) (Message, error) {
	return f(ctx, messages)
}

// ModelConfig selects and configures a backend.
type ModelConfig struct {
	Provider  string
	Model     string
	APIKey    string
	BaseURL   string
	MaxTokens int
}

// Provider builds models for one backend family.
type Provider interface {
	Name() string
	NewModel(ctx context.Context, cfg ModelConfig) (Model, error)
}

// Complete sends an optional system prompt and a user prompt and returns the
// trimmed reply text.
func Complete(ctx context.Context, m Model, system, prompt string) (string, error) {
	if m == nil {
		return "", errors.New("model: nil model")
	}
	messages := make([]Message, 0, 2)
	if strings.TrimSpace(system) != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: system})
	}
	messages = append(messages, Message{Role: RoleUser, Content: prompt})
	reply, err := m.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("model generate: %w", err)
	}
	text := strings.TrimSpace(reply.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// SplitSystem separates system turns from the conversation. Multiple system
// messages are joined with blank lines.
func SplitSystem(messages []Message) (string, []Message) {
	var (
		system []string
		rest   = make([]Message, 0, len(messages))
	)
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			if s := strings.TrimSpace(msg.Content); s != "" {
				system = append(system, s)
			}
			continue
		}
		rest = append(rest, msg)
	}
	return strings.Join(system, "\n\n"), rest
}
