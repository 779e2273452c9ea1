package perception

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/rajit-b/agentic-app/pkg/llmjson"
	"github.com/rajit-b/agentic-app/pkg/model"
	"github.com/rajit-b/agentic-app/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

const maxFallbackTags = 10

// Request is the raw input handed to the model-assisted perceiver.
type Request struct {
	Mood     string
	Activity string
	Tags     []string
	Location *Location
}

// PerceivedLocation echoes the location the model saw.
type PerceivedLocation struct {
	Lat          *float64 `json:"lat"`
	Lon          *float64 `json:"lon"`
	ProvidedText *string  `json:"provided_text"`
}

// Perception is the normalized view of a request.
type Perception struct {
	MoodNormalized     string            `json:"mood_normalized"`
	ActivityNormalized string            `json:"activity_normalized"`
	SemanticTags       []string          `json:"semantic_tags"`
	TimeContext        string            `json:"time_context"`
	Location           PerceivedLocation `json:"location"`
	Summary            string            `json:"summary"`
	// Fallback is set when the local rendition replaced the model output.
	Fallback bool `json:"-"`
}

// ModelPerceiver normalizes input with a hosted model and falls back to a
// local rendition when the model fails or answers with something other
// than JSON.
type ModelPerceiver struct {
	Model  model.Model
	Logger *slog.Logger
	Now    func() time.Time
}

// Perceive never fails; errors are logged and replaced by the fallback.
func (p *ModelPerceiver) Perceive(ctx context.Context, req Request) Perception {
	ctx, span := telemetry.StartSpan(ctx, "perception.model")
	var spanErr error
	defer func() { telemetry.EndSpan(span, spanErr) }()

	out, err := p.ask(ctx, req)
	if err != nil {
		spanErr = err
		p.logger().Warn("model perception failed, using local fallback", "error", err)
		out = fallbackPerception(req)
	}
	fillLocation(&out, req.Location)
	if out.SemanticTags == nil {
		out.SemanticTags = []string{}
	}
	span.SetAttributes(telemetry.SanitizeAttributes(
		attribute.Bool("perception.fallback", out.Fallback),
		attribute.String("perception.summary", out.Summary),
	)...)
	return out
}

func (p *ModelPerceiver) ask(ctx context.Context, req Request) (Perception, error) {
	if p == nil || p.Model == nil {
		return Perception{}, fmt.Errorf("perception: no model configured")
	}
	text, err := model.Complete(ctx, p.Model, "", p.prompt(req))
	if err != nil {
		return Perception{}, err
	}
	var raw struct {
		MoodNormalized     string         `json:"mood_normalized"`
		ActivityNormalized string         `json:"activity_normalized"`
		SemanticTags       []any          `json:"semantic_tags"`
		TimeContext        string         `json:"time_context"`
		Location           map[string]any `json:"location"`
		Summary            string         `json:"summary"`
	}
	if err := llmjson.Decode(text, &raw); err != nil {
		return Perception{}, err
	}
	out := Perception{
		MoodNormalized:     raw.MoodNormalized,
		ActivityNormalized: raw.ActivityNormalized,
		TimeContext:        raw.TimeContext,
		Summary:            raw.Summary,
		SemanticTags:       make([]string, 0, len(raw.SemanticTags)),
	}
	for _, tag := range raw.SemanticTags {
		if s, ok := tag.(string); ok && s != "" {
			out.SemanticTags = append(out.SemanticTags, s)
		}
	}
	if loc := raw.Location; loc != nil {
		out.Location.Lat = asFloat(loc["lat"])
		out.Location.Lon = asFloat(loc["lon"])
		if s, ok := loc["provided_text"].(string); ok {
			out.Location.ProvidedText = &s
		}
	}
	return out, nil
}

func (p *ModelPerceiver) prompt(req Request) string {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	tags, _ := json.Marshal(nonNil(req.Tags))
	loc := "{}"
	if req.Location != nil {
		if data, err := json.Marshal(req.Location); err == nil {
			loc = string(data)
		}
	}
	return fmt.Sprintf(`You are a perception module. Normalize inputs and infer semantic tags.
Return ONLY valid JSON, no extra text.

Inputs:
- mood: %s
- activity: %s
- tags: %s
- location: %s
- timestamp: %s

Requirements:
- Normalize mood and activity to short phrases.
- Provide 5-10 semantic tags (lowercase, hyphenated).
- Include a concise time_context (e.g., "weekday morning", "late night").
- If location has lat/lon, keep them; if text present, echo it as provided_text.
- Provide a compact summary string.

JSON schema:
{
  "mood_normalized": "string",
  "activity_normalized": "string",
  "semantic_tags": ["string", "..."],
  "time_context": "string",
  "location": {
     "lat": "number|null",
     "lon": "number|null",
     "provided_text": "string|null"
  },
  "summary": "string"
}`, req.Mood, req.Activity, tags, loc, now().Format(time.RFC3339))
}

func (p *ModelPerceiver) logger() *slog.Logger {
	if p != nil && p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func fallbackPerception(req Request) Perception {
	tags := nonNil(req.Tags)
	if len(tags) > maxFallbackTags {
		tags = tags[:maxFallbackTags]
	}
	return Perception{
		MoodNormalized:     strings.ToLower(strings.TrimSpace(req.Mood)),
		ActivityNormalized: strings.ToLower(strings.TrimSpace(req.Activity)),
		SemanticTags:       append([]string{}, tags...),
		TimeContext:        "unknown",
		Summary:            fmt.Sprintf("mood=%s; activity=%s; tags=[%s]", req.Mood, req.Activity, strings.Join(req.Tags, ", ")),
		Fallback:           true,
	}
}

// fillLocation copies request coordinates and text into keys the model left
// empty.
func fillLocation(out *Perception, loc *Location) {
	if loc == nil {
		return
	}
	if out.Location.Lat == nil {
		out.Location.Lat = loc.Lat
	}
	if out.Location.Lon == nil {
		out.Location.Lon = loc.Lon
	}
	if out.Location.ProvidedText == nil && loc.Text != "" {
		text := loc.Text
		out.Location.ProvidedText = &text
	}
}

func asFloat(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		return &f
	}
	return nil
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
