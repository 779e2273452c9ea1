// Package telemetry wraps OpenTelemetry tracing for model, tool and pipeline
// calls. Without a configured Manager spans go to the global (no-op by
// default) tracer provider.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/rajit-b/agentic-app"
	maxAttributeLength  = 256
	redacted            = "***REDACTED***"
)

// Config describes how spans are exported.
type Config struct {
	ServiceName    string
	ServiceVersion string
	// Endpoint is an OTLP/HTTP collector, either host:port or a full URL.
	// Empty disables export.
	Endpoint string
	Insecure bool
	// SpanProcessor is appended to the provider; tests use a span recorder.
	SpanProcessor sdktrace.SpanProcessor
}

// Manager owns a tracer provider and its exporter.
type Manager struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewManager builds a tracer provider according to cfg.
func NewManager(ctx context.Context, cfg Config) (*Manager, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "moodtunes"
	}
	res := resource.NewSchemaless(
		attribute.String("service.name", name),
		attribute.String("service.version", cfg.ServiceVersion),
	)
	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}

	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		var exportOpts []otlptracehttp.Option
		if strings.Contains(endpoint, "://") {
			exportOpts = append(exportOpts, otlptracehttp.WithEndpointURL(endpoint))
		} else {
			exportOpts = append(exportOpts, otlptracehttp.WithEndpoint(endpoint))
		}
		if cfg.Insecure {
			exportOpts = append(exportOpts, otlptracehttp.WithInsecure())
		}
		exporter, err := otlptracehttp.New(ctx, exportOpts...)
		if err != nil {
			return nil, fmt.Errorf("telemetry: create otlp exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}
	if cfg.SpanProcessor != nil {
		opts = append(opts, sdktrace.WithSpanProcessor(cfg.SpanProcessor))
	}

	provider := sdktrace.NewTracerProvider(opts...)
	return &Manager{
		provider: provider,
		tracer:   provider.Tracer(instrumentationName),
	}, nil
}

// StartSpan starts a span on the manager's tracer.
func (m *Manager) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if m == nil || m.tracer == nil {
		return otel.Tracer(instrumentationName).Start(ctx, name, opts...)
	}
	return m.tracer.Start(ctx, name, opts...)
}

// Shutdown flushes pending spans and stops the provider.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}

var defaultManager atomic.Pointer[Manager]

// SetDefault makes m the manager used by the package-level helpers. Passing
// nil restores the global tracer provider.
func SetDefault(m *Manager) {
	defaultManager.Store(m)
}

// StartSpan starts a span on the default manager.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return defaultManager.Load().StartSpan(ctx, name, opts...)
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// SanitizeAttributes masks credential-like keys and truncates long strings.
func SanitizeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, kv := range attrs {
		if kv.Value.Type() == attribute.STRING {
			key := strings.ToLower(string(kv.Key))
			value := kv.Value.AsString()
			switch {
			case strings.Contains(key, "api_key"), strings.Contains(key, "token"), strings.Contains(key, "secret"):
				value = redacted
			case len(value) > maxAttributeLength:
				value = value[:maxAttributeLength] + "..."
			}
			kv = attribute.String(string(kv.Key), value)
		}
		out = append(out, kv)
	}
	return out
}
