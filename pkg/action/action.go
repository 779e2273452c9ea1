// Package action executes the chosen tool and turns its payload into
// recommendations.
package action

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/rajit-b/agentic-app/pkg/mcp"
	"github.com/rajit-b/agentic-app/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Caller is the tool channel the invoker drives; *mcp.Client satisfies it.
type Caller interface {
	InvokeTool(ctx context.Context, name string, args map[string]any) (*mcp.ToolCallResult, error)
}

// Invoker calls tools and decodes their text payloads.
type Invoker struct {
	Caller Caller
	Logger *slog.Logger
}

// Invoke calls the tool and returns its first text block decoded as JSON.
// Undecodable text comes back as a one-element list holding the raw string;
// failed calls and empty results come back as an empty list. It never fails.
func (i *Invoker) Invoke(ctx context.Context, name string, args map[string]any) any {
	ctx, span := telemetry.StartSpan(ctx, "action.invoke")
	span.SetAttributes(attribute.String("tool.name", name))
	var spanErr error
	defer func() { telemetry.EndSpan(span, spanErr) }()

	if i == nil || i.Caller == nil {
		spanErr = errors.New("action: no tool channel")
		return []any{}
	}
	res, err := i.Caller.InvokeTool(ctx, name, args)
	if err != nil {
		spanErr = err
		i.logger().Warn("tool call failed", "tool", name, "error", err)
		return []any{}
	}
	raw := strings.TrimSpace(res.FirstText())
	if raw == "" {
		return []any{}
	}
	var payload any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		i.logger().Warn("tool payload is not JSON", "tool", name, "error", err)
		return []any{raw}
	}
	return payload
}

func (i *Invoker) logger() *slog.Logger {
	if i != nil && i.Logger != nil {
		return i.Logger
	}
	return slog.Default()
}

// Normalize coerces a payload into a list: lists pass through, nil becomes
// empty and anything else is wrapped.
func Normalize(payload any) []any {
	switch v := payload.(type) {
	case nil:
		return []any{}
	case []any:
		return v
	case []map[string]any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out
	default:
		return []any{v}
	}
}

// Recommendation is one suggested track.
type Recommendation struct {
	Song        string `json:"song"`
	Artist      string `json:"artist"`
	Genre       string `json:"genre"`
	EnergyLevel string `json:"energy_level"`
	Reason      string `json:"reason"`
}

const (
	unknown  = "Unknown"
	noReason = "No reason provided"
)

// Recommendations extracts every object entry of the normalized payload.
// Missing fields read "Unknown", a missing reason "No reason provided".
func Recommendations(payload any) []Recommendation {
	items := Normalize(payload)
	out := make([]Recommendation, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, Recommendation{
			Song:        field(obj, "song", unknown),
			Artist:      field(obj, "artist", unknown),
			Genre:       field(obj, "genre", unknown),
			EnergyLevel: field(obj, "energy_level", unknown),
			Reason:      field(obj, "reason", noReason),
		})
	}
	return out
}

// SearchURL links to YouTube search results for the track.
func (r Recommendation) SearchURL() string {
	return "https://www.youtube.com/results?search_query=" + url.QueryEscape(r.Song+" "+r.Artist)
}

func field(obj map[string]any, key, fallback string) string {
	v, ok := obj[key]
	if !ok || v == nil {
		return fallback
	}
	if s, ok := v.(string); ok {
		if strings.TrimSpace(s) == "" {
			return fallback
		}
		return s
	}
	return fmt.Sprint(v)
}
