// Package decision asks a model which tool to call for a user context.
package decision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/rajit-b/agentic-app/pkg/llmjson"
	"github.com/rajit-b/agentic-app/pkg/model"
	"github.com/rajit-b/agentic-app/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultSystemPrompt frames the model as a music recommendation agent.
const DefaultSystemPrompt = `You are a music recommendation agent that helps users discover the perfect music for their current mood, activity, time, and location.

Your role is to:
1. Analyze the user's context (mood, activity, time, location)
2. Determine which MCP tool to call based on the context
3. Provide thoughtful recommendations

When making decisions:
- Prioritize the user's emotional state and current activity
- Consider the time of day and location when relevant
- Be empathetic and understanding
- Provide clear reasoning for your recommendations

Available tools:
- recommend_music: Recommends music based on mood, activity, and tags

Always respond in a friendly, helpful manner and explain your reasoning.`

const defaultToolLine = "- recommend_music: Recommends music based on mood, activity, and tags"

// ErrNotConfigured is returned by NewMaker without a model. Callers map a
// missing API key onto it.
var ErrNotConfigured = errors.New("decision: model is not configured")

// Decision is the model's choice of tool.
type Decision struct {
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments"`
	Reasoning string         `json:"reasoning"`
}

// Result is either Success or Failure.
type Result interface {
	isResult()
}

// Success carries a parsed decision and the model's raw reply.
type Success struct {
	Decision Decision
	Raw      string
}

// Failure carries the reason and whatever raw text the model produced.
type Failure struct {
	Err string
	Raw string
}

func (Success) isResult() {}
func (Failure) isResult() {}

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// ToolSet is what the caller knows about the tools on offer. A non-empty
// Description is used verbatim.
type ToolSet struct {
	Names       []string
	Description string
}

// Maker prompts the model for decisions.
type Maker struct {
	model  model.Model
	logger *slog.Logger

	mu     sync.RWMutex
	system string
	tools  map[string]ToolInfo
}

// Option customises a Maker.
type Option func(*Maker)

// WithLogger sets the logger used for recovered errors.
func WithLogger(l *slog.Logger) Option {
	return func(m *Maker) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithSystemPrompt replaces the default system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(m *Maker) { m.system = prompt }
}

// NewMaker builds a Maker around m.
func NewMaker(m model.Model, opts ...Option) (*Maker, error) {
	if m == nil {
		return nil, ErrNotConfigured
	}
	maker := &Maker{
		model:  m,
		logger: slog.Default(),
		system: DefaultSystemPrompt,
		tools:  map[string]ToolInfo{},
	}
	for _, opt := range opts {
		opt(maker)
	}
	return maker, nil
}

// SystemPrompt returns the prompt currently in use.
func (m *Maker) SystemPrompt() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.system
}

// SetSystemPrompt replaces the system prompt.
func (m *Maker) SetSystemPrompt(prompt string) {
	m.mu.Lock()
	m.system = prompt
	m.mu.Unlock()
}

// ResetSystemPrompt restores DefaultSystemPrompt.
func (m *Maker) ResetSystemPrompt() {
	m.SetSystemPrompt(DefaultSystemPrompt)
}

// RegisterTool records a description used when the caller supplies names only.
func (m *Maker) RegisterTool(info ToolInfo) {
	m.mu.Lock()
	m.tools[info.Name] = info
	m.mu.Unlock()
}

// RegisteredTools lists registered tool names in sorted order.
func (m *Maker) RegisteredTools() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.tools))
	for name := range m.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Decide asks the model to pick a tool for userContext. It never returns an
// error; failures come back as Failure so callers can fall back.
func (m *Maker) Decide(ctx context.Context, userContext string, tools ToolSet) Result {
	ctx, span := telemetry.StartSpan(ctx, "decision.decide")
	var spanErr error
	defer func() { telemetry.EndSpan(span, spanErr) }()

	prompt := m.Prompt(userContext, tools)
	raw, err := model.Complete(ctx, m.model, "", prompt)
	if err != nil {
		spanErr = err
		m.logger.Warn("decision model call failed", "error", err)
		return Failure{Err: err.Error()}
	}

	var decision Decision
	if err := llmjson.Decode(raw, &decision); err != nil {
		spanErr = err
		m.logger.Warn("decision reply is not valid JSON", "error", err)
		return Failure{Err: fmt.Sprintf("failed to parse decision: %v", err), Raw: raw}
	}
	if strings.TrimSpace(decision.ToolName) == "" {
		spanErr = errors.New("decision: tool_name missing")
		return Failure{Err: "decision has no tool_name", Raw: raw}
	}
	if decision.Arguments == nil {
		decision.Arguments = map[string]any{}
	}
	span.SetAttributes(telemetry.SanitizeAttributes(attribute.String("decision.tool", decision.ToolName))...)
	return Success{Decision: decision, Raw: raw}
}

// Prompt assembles the decision prompt.
func (m *Maker) Prompt(userContext string, tools ToolSet) string {
	return fmt.Sprintf(`%s

User Context:
%s

Available Tools:
%s

Based on the user context, determine:
1. Which tool should be called?
2. What arguments should be passed?
3. Why is this the right decision?

Respond in JSON format with this structure:
{
    "tool_name": "tool_to_call",
    "arguments": {"arg1": "value1", "arg2": "value2"},
    "reasoning": "Explanation of why this decision was made"
}`, m.SystemPrompt(), userContext, m.describe(tools))
}

func (m *Maker) describe(tools ToolSet) string {
	if desc := strings.TrimSpace(tools.Description); desc != "" {
		return desc
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var lines []string
	for _, name := range tools.Names {
		if info, ok := m.tools[name]; ok {
			lines = append(lines, fmt.Sprintf("- %s: %s", info.Name, info.Description))
		}
	}
	if len(lines) == 0 {
		return defaultToolLine
	}
	return strings.Join(lines, "\n")
}
