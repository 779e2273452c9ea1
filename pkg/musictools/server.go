// Package musictools is the MCP tool server backing the recommendation
// pipeline. It exposes add, get_current_time and recommend_music.
package musictools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rajit-b/agentic-app/pkg/action"
	"github.com/rajit-b/agentic-app/pkg/llmjson"
	"github.com/rajit-b/agentic-app/pkg/model"
	"github.com/rajit-b/agentic-app/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

const (
	ServerName    = "MusicRecommendationTools"
	ServerVersion = "v0.1.0"

	maxRecommendations = 3
)

// ErrNoModel is reported by recommend_music when no model credential is
// configured.
var ErrNoModel = errors.New("musictools: no model configured; set GEMINI_API_KEY or api_key in the config file")

// AddArgs are the arguments of the add tool.
type AddArgs struct {
	A int `json:"a" jsonschema:"first addend"`
	B int `json:"b" jsonschema:"second addend"`
}

// RecommendArgs are the arguments of the recommend_music tool.
type RecommendArgs struct {
	Mood     string   `json:"mood" jsonschema:"Current mood (e.g., happy, calm, energetic, melancholic)"`
	Activity string   `json:"activity" jsonschema:"Current activity (e.g., working, exercising, relaxing)"`
	Location string   `json:"location,omitempty" jsonschema:"Current location (e.g., home, office, gym, park)"`
	Tags     []string `json:"tags,omitempty" jsonschema:"Optional additional context tags"`
}

// Server holds the state behind the tools. The model may be swapped at
// runtime when the configuration is reloaded.
type Server struct {
	logger *slog.Logger
	now    func() time.Time

	mu    sync.RWMutex
	model model.Model
}

// Option customises a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the clock used by get_current_time.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a server. m may be nil; recommend_music then fails at call time.
func New(m model.Model, opts ...Option) *Server {
	s := &Server{logger: slog.Default(), now: time.Now, model: m}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetModel replaces the model used by recommend_music.
func (s *Server) SetModel(m model.Model) {
	s.mu.Lock()
	s.model = m
	s.mu.Unlock()
}

func (s *Server) currentModel() model.Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// MCPServer builds the MCP server with every tool registered.
func (s *Server) MCPServer() *sdk.Server {
	server := sdk.NewServer(&sdk.Implementation{Name: ServerName, Version: ServerVersion}, nil)
	sdk.AddTool(server, &sdk.Tool{Name: "add", Description: "Add two numbers"}, s.handleAdd)
	sdk.AddTool(server, &sdk.Tool{
		Name:        "get_current_time",
		Description: "Get the current time in ISO 8601 format",
	}, s.handleCurrentTime)
	sdk.AddTool(server, &sdk.Tool{
		Name:        "recommend_music",
		Description: "Recommend music based on mood, activity, location, and tags",
	}, s.handleRecommend)
	return server
}

func (s *Server) handleAdd(ctx context.Context, req *sdk.CallToolRequest, in AddArgs) (*sdk.CallToolResult, any, error) {
	s.logger.Debug("tool called", "tool", "add", "a", in.A, "b", in.B)
	return textResult(strconv.Itoa(in.A + in.B)), nil, nil
}

func (s *Server) handleCurrentTime(ctx context.Context, req *sdk.CallToolRequest, _ struct{}) (*sdk.CallToolResult, any, error) {
	s.logger.Debug("tool called", "tool", "get_current_time")
	return textResult(s.now().Format(time.RFC3339Nano)), nil, nil
}

func (s *Server) handleRecommend(ctx context.Context, req *sdk.CallToolRequest, in RecommendArgs) (*sdk.CallToolResult, any, error) {
	s.logger.Info("tool called", "tool", "recommend_music", "mood", in.Mood, "activity", in.Activity, "location", in.Location)
	recs, err := s.Recommend(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	data, err := json.Marshal(recs)
	if err != nil {
		return nil, nil, fmt.Errorf("musictools: encode recommendations: %w", err)
	}
	return textResult(string(data)), nil, nil
}

// Recommend asks the model for recommendations and returns at most three.
// Model and parse failures yield the single default recommendation; only a
// missing model is an error.
func (s *Server) Recommend(ctx context.Context, in RecommendArgs) ([]action.Recommendation, error) {
	m := s.currentModel()
	if m == nil {
		return nil, ErrNoModel
	}
	ctx, span := telemetry.StartSpan(ctx, "musictools.recommend")
	var spanErr error
	defer func() { telemetry.EndSpan(span, spanErr) }()

	text, err := model.Complete(ctx, m, "", RecommendPrompt(in))
	if err != nil {
		spanErr = err
		s.logger.Warn("recommendation model call failed", "error", err)
		return []action.Recommendation{fallback("Default recommendation due to error: " + err.Error())}, nil
	}
	var reply struct {
		Recommendations []action.Recommendation `json:"recommendations"`
	}
	if err := llmjson.Decode(text, &reply); err != nil {
		spanErr = err
		s.logger.Warn("recommendation reply is not valid JSON", "error", err)
		return []action.Recommendation{fallback("Universal calming track - default recommendation due to API parsing error")}, nil
	}
	if len(reply.Recommendations) == 0 {
		spanErr = errors.New("no recommendations returned from model")
		s.logger.Warn("recommendation reply was empty")
		return []action.Recommendation{fallback("Default recommendation due to error: " + spanErr.Error())}, nil
	}
	recs := reply.Recommendations
	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	span.SetAttributes(attribute.Int("musictools.recommendations", len(recs)))
	return recs, nil
}

// RecommendPrompt builds the prompt sent to the model.
func RecommendPrompt(in RecommendArgs) string {
	location := in.Location
	if strings.TrimSpace(location) == "" {
		location = "Not specified"
	}
	tags := ""
	if len(in.Tags) > 0 {
		tags = " with context: " + strings.Join(in.Tags, ", ")
	}
	const item = `    {
      "song": "Song Title",
      "artist": "Artist Name",
      "genre": "Genre",
      "energy_level": "low/medium/high/very low/very high",
      "reason": "Brief explanation of why this song fits"
    }`
	return fmt.Sprintf(`You are a music recommendation expert. Generate 3 personalized music recommendations based on the user's context.

User Context:
- Mood: %s
- Activity: %s
- Location: %s%s

Requirements:
1. Recommend exactly 3 diverse songs that match the user's mood, activity, and location
2. Consider how location might influence music choice (e.g., gym vs. library, home vs. office)
3. Each recommendation should include:
   - A real, existing song title
   - The actual artist name
   - An appropriate genre
   - An energy level (very low, low, medium, high, very high)
   - A specific reason explaining why this song fits their context

Return ONLY valid JSON in this exact format (no markdown, no code fences, just JSON):
{
  "recommendations": [
%s,
%s,
%s
  ]
}`, in.Mood, in.Activity, location, tags, item, item, item)
}

// DefaultRecommendation is returned whenever the model cannot be used.
func DefaultRecommendation() action.Recommendation {
	return fallback("Universal calming track")
}

func fallback(reason string) action.Recommendation {
	return action.Recommendation{
		Song:        "Weightless",
		Artist:      "Marconi Union",
		Genre:       "Ambient",
		EnergyLevel: "very low",
		Reason:      reason,
	}
}

func textResult(text string) *sdk.CallToolResult {
	return &sdk.CallToolResult{Content: []sdk.Content{&sdk.TextContent{Text: text}}}
}
