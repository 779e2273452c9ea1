package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rajit-b/agentic-app/pkg/mcp"
)

// Validator enforces constraints on Config.
type Validator interface {
	Validate(*Config) error
}

// DefaultValidator applies structural checks. It does not require an API
// key; commands call RequireAPIKey where a model is actually needed.
type DefaultValidator struct{}

// Validate checks ranges and enumerations.
func (DefaultValidator) Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	if strings.TrimSpace(cfg.Provider) == "" {
		errs = append(errs, errors.New("provider is required"))
	}
	if cfg.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("max_tokens must be >= 0, got %d", cfg.MaxTokens))
	}
	if cfg.CallTimeout < 0 {
		errs = append(errs, fmt.Errorf("call_timeout must be positive, got %s", cfg.CallTimeout))
	}
	if cfg.Memory.MaxRecords < 0 {
		errs = append(errs, fmt.Errorf("memory.max_records must be >= 0, got %d", cfg.Memory.MaxRecords))
	}
	if cfg.Memory.RetentionHours < 0 {
		errs = append(errs, fmt.Errorf("memory.retention_hours must be >= 0, got %g", cfg.Memory.RetentionHours))
	}
	switch cfg.ToolServer.Transport {
	case "", mcp.TransportStdio, mcp.TransportHTTP, mcp.TransportSSE:
	default:
		errs = append(errs, fmt.Errorf("tool_server.transport %q is not one of stdio, http, sse", cfg.ToolServer.Transport))
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid config: %w", errors.Join(errs...))
}

// ParseLevel maps debug, info, warn and error onto slog levels. Empty means info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log_level %q", name)
	}
}
