// Package agent sequences one recommendation run: perceive, remember,
// decide, act and format.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rajit-b/agentic-app/pkg/action"
	"github.com/rajit-b/agentic-app/pkg/decision"
	"github.com/rajit-b/agentic-app/pkg/mcp"
	"github.com/rajit-b/agentic-app/pkg/memory"
	"github.com/rajit-b/agentic-app/pkg/perception"
	"github.com/rajit-b/agentic-app/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// DefaultCallTimeout bounds each model or tool call.
	DefaultCallTimeout = 60 * time.Second
	// FallbackTool is called when the decision step fails.
	FallbackTool = "recommend_music"

	defaultRecentLimit = 5
	recentContextLimit = 3
	fallbackReasoning  = "Based on your mood and activity"
)

// ErrMissingInput is returned when mood or activity is blank.
var ErrMissingInput = errors.New("agent: mood and activity are required")

// ToolChannel is the remote tool surface; *mcp.Client satisfies it.
type ToolChannel interface {
	ListTools(ctx context.Context) ([]mcp.ToolDescriptor, error)
	InvokeTool(ctx context.Context, name string, args map[string]any) (*mcp.ToolCallResult, error)
}

// Decider picks a tool; *decision.Maker satisfies it.
type Decider interface {
	Decide(ctx context.Context, userContext string, tools decision.ToolSet) decision.Result
}

// Perceiver normalizes input with a model; *perception.ModelPerceiver
// satisfies it.
type Perceiver interface {
	Perceive(ctx context.Context, req perception.Request) perception.Perception
}

// Config wires an Agent. Perceiver is optional.
type Config struct {
	Memory      *memory.Store
	Decider     Decider
	Tools       ToolChannel
	Perceiver   Perceiver
	CallTimeout time.Duration
	Logger      *slog.Logger
	Now         func() time.Time
}

// Validate reports missing collaborators.
func (c Config) Validate() error {
	var errs []error
	if c.Memory == nil {
		errs = append(errs, errors.New("memory store is required"))
	}
	if c.Decider == nil {
		errs = append(errs, errors.New("decider is required"))
	}
	if c.Tools == nil {
		errs = append(errs, errors.New("tool channel is required"))
	}
	if c.CallTimeout < 0 {
		errs = append(errs, fmt.Errorf("call timeout must be positive, got %s", c.CallTimeout))
	}
	if len(errs) > 0 {
		return fmt.Errorf("agent: invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Request is one user turn.
type Request struct {
	Location string
	Mood     string
	Activity string
	Tags     []string
}

// Stop reasons reported in Result.
const (
	StopRecommended       = "recommended"
	StopNoRecommendations = "no_recommendations"
)

// Result is everything a run produced.
type Result struct {
	RunID           string
	Input           perception.Input
	Context         string
	Tags            []string
	Perception      *perception.Perception
	Tools           []mcp.ToolDescriptor
	Decision        decision.Decision
	DecisionFailure *decision.Failure
	Payload         any
	Recommendations []action.Recommendation
	Output          string
	StopReason      string
	MemoryIDs       []string
	Duration        time.Duration
}

// Agent runs the pipeline. Runs are expected to be sequential.
type Agent struct {
	cfg        Config
	logger     *slog.Logger
	perception *perception.Manager
	invoker    *action.Invoker
}

// New validates cfg and builds an Agent.
func New(cfg Config) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		cfg:        cfg,
		logger:     logger,
		perception: perception.NewManager(cfg.Now),
		invoker:    &action.Invoker{Caller: cfg.Tools, Logger: logger},
	}, nil
}

// Memory exposes the store the agent writes to.
func (a *Agent) Memory() *memory.Store {
	return a.cfg.Memory
}

// Run executes one recommendation pass. Upstream failures degrade the result
// instead of failing the run; only invalid input and a cancelled context
// return errors.
func (a *Agent) Run(ctx context.Context, req Request) (*Result, error) {
	mood := strings.TrimSpace(req.Mood)
	activity := strings.TrimSpace(req.Activity)
	if mood == "" || activity == "" {
		return nil, ErrMissingInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	started := a.cfg.Now()
	tags := cleanTags(req.Tags)
	location := strings.TrimSpace(req.Location)

	res := &Result{RunID: uuid.NewString()}
	ctx, span := telemetry.StartSpan(ctx, "agent.run")
	span.SetAttributes(attribute.String("agent.run_id", res.RunID))
	var runErr error
	defer func() { telemetry.EndSpan(span, runErr) }()

	logger := a.logger.With("run_id", res.RunID)
	meta := func(extra map[string]any) map[string]any {
		out := map[string]any{"run_id": res.RunID}
		for k, v := range extra {
			out[k] = v
		}
		return out
	}

	recent := a.cfg.Memory.Get(memory.Query{Kind: memory.KindConversation, Limit: recentContextLimit})

	id := a.cfg.Memory.AddConversation(
		fmt.Sprintf("Mood: %s; Activity: %s; Tags: %s", mood, activity, strings.Join(tags, ", ")),
		memory.WithTags(tags...),
		memory.WithMetadata(meta(map[string]any{"source": "cli", "location": location})),
	)
	res.MemoryIDs = append(res.MemoryIDs, id)
	logger.Info("stored user input", "memory_id", id)

	var loc *perception.Location
	if location != "" || len(tags) > 0 {
		loc = &perception.Location{Text: location, Tags: tags}
	}
	res.Input = a.perception.Perceive(mood, activity, time.Time{}, loc)
	res.Tags = perception.DeriveTags(res.Input)
	res.Context = perception.FormatContext(res.Input)

	observation := res.Context
	if a.cfg.Perceiver != nil {
		callCtx, cancel := a.callContext(ctx)
		p := a.cfg.Perceiver.Perceive(callCtx, perception.Request{Mood: mood, Activity: activity, Tags: tags, Location: loc})
		cancel()
		res.Perception = &p
		if p.Summary != "" {
			observation = p.Summary
		}
		logger.Info("model perception", "summary", p.Summary, "fallback", p.Fallback)
	}
	id = a.cfg.Memory.AddObservation(observation,
		memory.WithTags(res.Tags...),
		memory.WithMetadata(meta(nil)),
	)
	res.MemoryIDs = append(res.MemoryIDs, id)

	if err := ctx.Err(); err != nil {
		runErr = err
		return nil, err
	}

	callCtx, cancel := a.callContext(ctx)
	tools, err := a.cfg.Tools.ListTools(callCtx)
	cancel()
	if err != nil {
		logger.Warn("listing tools failed", "error", err)
	}
	res.Tools = tools
	logger.Info("available tools", "tools", mcp.Names(tools))

	callCtx, cancel = a.callContext(ctx)
	outcome := a.cfg.Decider.Decide(callCtx, decisionContext(res.Context, recent), decision.ToolSet{
		Names:       mcp.Names(tools),
		Description: describe(tools),
	})
	cancel()
	switch o := outcome.(type) {
	case decision.Success:
		res.Decision = o.Decision
		if len(tools) > 0 && !hasTool(tools, o.Decision.ToolName) {
			failure := decision.Failure{Err: fmt.Sprintf("unknown tool %q", o.Decision.ToolName), Raw: o.Raw}
			res.DecisionFailure = &failure
		}
	case decision.Failure:
		res.DecisionFailure = &o
	default:
		res.DecisionFailure = &decision.Failure{Err: fmt.Sprintf("unexpected decision result %T", outcome)}
	}
	if res.DecisionFailure != nil {
		logger.Warn("decision failed, falling back", "tool", FallbackTool, "error", res.DecisionFailure.Err)
		res.Decision = fallbackDecision(mood, activity, location, tags)
	}
	id = a.cfg.Memory.AddDecision(
		fmt.Sprintf("Tool: %s; Arguments: %v; Reasoning: %s", res.Decision.ToolName, res.Decision.Arguments, res.Decision.Reasoning),
		memory.WithTags(res.Decision.ToolName),
		memory.WithMetadata(meta(map[string]any{"fallback": res.DecisionFailure != nil})),
	)
	res.MemoryIDs = append(res.MemoryIDs, id)
	logger.Info("decision", "tool", res.Decision.ToolName, "arguments", res.Decision.Arguments, "reasoning", res.Decision.Reasoning)

	if err := ctx.Err(); err != nil {
		runErr = err
		return nil, err
	}

	callCtx, cancel = a.callContext(ctx)
	res.Payload = a.invoker.Invoke(callCtx, res.Decision.ToolName, res.Decision.Arguments)
	cancel()
	res.Recommendations = action.Recommendations(res.Payload)
	id = a.cfg.Memory.Add(
		fmt.Sprintf("Called %s; %d recommendation(s)", res.Decision.ToolName, len(res.Recommendations)),
		memory.KindAction,
		memory.WithImportance(1.5),
		memory.WithTags(res.Decision.ToolName),
		memory.WithMetadata(meta(map[string]any{"recommendations": len(res.Recommendations)})),
	)
	res.MemoryIDs = append(res.MemoryIDs, id)

	res.Output = decision.FormatFinalResponse(res.Decision, res.Recommendations)
	res.StopReason = StopRecommended
	if len(res.Recommendations) == 0 {
		res.StopReason = StopNoRecommendations
	}
	res.Duration = a.cfg.Now().Sub(started)
	span.SetAttributes(
		attribute.String("agent.tool", res.Decision.ToolName),
		attribute.Int("agent.recommendations", len(res.Recommendations)),
	)
	logger.Info("run complete", "stop_reason", res.StopReason, "recommendations", len(res.Recommendations))
	return res, nil
}

// RecentConversations returns stored user inputs, most important and newest
// first. A non-positive limit defaults to 5.
func (a *Agent) RecentConversations(limit int) []memory.Record {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	return a.cfg.Memory.Get(memory.Query{Kind: memory.KindConversation, Limit: limit})
}

func (a *Agent) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.cfg.CallTimeout)
}

func fallbackDecision(mood, activity, location string, tags []string) decision.Decision {
	args := map[string]any{"mood": mood, "activity": activity}
	if location != "" {
		args["location"] = location
	}
	if len(tags) > 0 {
		args["tags"] = tags
	}
	return decision.Decision{ToolName: FallbackTool, Arguments: args, Reasoning: fallbackReasoning}
}

func decisionContext(current string, recent []memory.Record) string {
	if len(recent) == 0 {
		return current
	}
	var b strings.Builder
	b.WriteString(current)
	b.WriteString("\n\nRecent requests:")
	for _, rec := range recent {
		fmt.Fprintf(&b, "\n- %s", rec.Content)
	}
	return b.String()
}

func describe(tools []mcp.ToolDescriptor) string {
	if len(tools) == 0 {
		return ""
	}
	return mcp.DescribeTools(tools)
}

func hasTool(tools []mcp.ToolDescriptor, name string) bool {
	for _, t := range tools {
		if t.Name == name {
			return true
		}
	}
	return false
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// ParseTags splits a comma separated list, or a whitespace separated one
// when there is no comma, dropping empty entries.
func ParseTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}
	if strings.Contains(raw, ",") {
		return cleanTags(strings.Split(raw, ","))
	}
	return cleanTags(strings.Fields(raw))
}
