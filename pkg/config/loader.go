// Package config loads the moodtunes configuration from an optional YAML
// file, a .env file and environment overrides.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/rajit-b/agentic-app/pkg/mcp"
	"github.com/rajit-b/agentic-app/pkg/memory"
	"github.com/rajit-b/agentic-app/pkg/model"
	"gopkg.in/yaml.v3"
)

const (
	configDirName  = ".moodtunes"
	configFileName = "config.yaml"

	DefaultProvider    = "gemini"
	DefaultCallTimeout = 60 * time.Second
	DefaultToolCommand = "musictools"
)

// Environment variables consulted by the loader.
const (
	EnvConfig       = "MOODTUNES_CONFIG"
	EnvProvider     = "MOODTUNES_PROVIDER"
	EnvModel        = "MOODTUNES_MODEL"
	EnvToolServer   = "MOODTUNES_TOOL_SERVER"
	EnvLogLevel     = "MOODTUNES_LOG_LEVEL"
	EnvGeminiKey    = "GEMINI_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
	EnvOpenAIKey    = "OPENAI_API_KEY"
)

// ErrMissingAPIKey reports that no credential is configured for the selected
// provider.
var ErrMissingAPIKey = errors.New("config: api key is not set")

var providerKeyEnv = map[string]string{
	"gemini":    EnvGeminiKey,
	"anthropic": EnvAnthropicKey,
	"openai":    EnvOpenAIKey,
}

// Config is the full runtime configuration.
type Config struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	MaxTokens   int           `yaml:"max_tokens"`
	ToolServer  ToolServer    `yaml:"tool_server"`
	Memory      Memory        `yaml:"memory"`
	CallTimeout time.Duration `yaml:"call_timeout"`
	LogLevel    string        `yaml:"log_level"`
	Telemetry   Telemetry     `yaml:"telemetry"`

	SourcePath string `yaml:"-"`
	SourceHash string `yaml:"-"`
}

// ToolServer locates the MCP tool server.
type ToolServer struct {
	Transport string   `yaml:"transport"`
	Command   string   `yaml:"command"`
	Args      []string `yaml:"args"`
	URL       string   `yaml:"url"`
}

// Memory sizes the short-term memory store. A zero MaxRecords or
// RetentionHours selects the pipeline default.
type Memory struct {
	MaxRecords     int     `yaml:"max_records"`
	RetentionHours float64 `yaml:"retention_hours"`
	SnapshotPath   string  `yaml:"snapshot_path"`
}

// Telemetry configures span export.
type Telemetry struct {
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

// Normalize trims strings and fills defaults.
func (c *Config) Normalize() {
	if c == nil {
		return
	}
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	c.Model = strings.TrimSpace(c.Model)
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.CallTimeout == 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	c.ToolServer.Transport = strings.ToLower(strings.TrimSpace(c.ToolServer.Transport))
	c.ToolServer.Command = strings.TrimSpace(c.ToolServer.Command)
	c.ToolServer.URL = strings.TrimSpace(c.ToolServer.URL)
	if c.ToolServer.Command == "" && c.ToolServer.URL == "" {
		c.ToolServer.Command = DefaultToolCommand
	}
	if c.Memory.MaxRecords == 0 {
		c.Memory.MaxRecords = memory.DefaultMaxRecords
	}
	if c.Memory.RetentionHours == 0 {
		c.Memory.RetentionHours = memory.DefaultRetention.Hours()
	}
	c.Memory.SnapshotPath = strings.TrimSpace(c.Memory.SnapshotPath)
	if c.Memory.SnapshotPath != "" {
		c.Memory.SnapshotPath = filepath.Clean(c.Memory.SnapshotPath)
	}
}

// ModelConfig projects the model settings.
func (c *Config) ModelConfig() model.ModelConfig {
	return model.ModelConfig{
		Provider:  c.Provider,
		Model:     c.Model,
		APIKey:    c.APIKey,
		BaseURL:   c.BaseURL,
		MaxTokens: c.MaxTokens,
	}
}

// RequireAPIKey fails with ErrMissingAPIKey when no credential is set.
func (c *Config) RequireAPIKey() error {
	if c.APIKey != "" {
		return nil
	}
	if env, ok := providerKeyEnv[c.Provider]; ok {
		return fmt.Errorf("%w: set %s or api_key in the config file", ErrMissingAPIKey, env)
	}
	return fmt.Errorf("%w for provider %q", ErrMissingAPIKey, c.Provider)
}

// ServerSpec converts the tool server block.
func (c *Config) ServerSpec() mcp.ServerSpec {
	return mcp.ServerSpec{
		Transport: c.ToolServer.Transport,
		Command:   c.ToolServer.Command,
		Args:      append([]string(nil), c.ToolServer.Args...),
		URL:       c.ToolServer.URL,
	}
}

// Retention returns the memory retention window.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Memory.RetentionHours * float64(time.Hour))
}

// DefaultPath returns $MOODTUNES_CONFIG or ~/.moodtunes/config.yaml.
func DefaultPath() string {
	if p := strings.TrimSpace(os.Getenv(EnvConfig)); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(configDirName, configFileName)
	}
	return filepath.Join(home, configDirName, configFileName)
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none)
// without overriding variables already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: load %s: %w", p, err)
		}
	}
	return nil
}

// Loader loads, validates and caches configuration state.
type Loader struct {
	path      string
	validator Validator
	lookupEnv func(string) (string, bool)

	mu   sync.Mutex
	last atomic.Pointer[Config]
}

// LoaderOption customizes loader behaviour.
type LoaderOption func(*Loader)

// WithValidator injects a custom Validator.
func WithValidator(v Validator) LoaderOption {
	return func(l *Loader) {
		l.validator = v
	}
}

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(fn func(string) (string, bool)) LoaderOption {
	return func(l *Loader) {
		if fn != nil {
			l.lookupEnv = fn
		}
	}
}

// NewLoader wires a loader for the config file at path. An empty path
// selects DefaultPath. The file itself is optional.
func NewLoader(path string, opts ...LoaderOption) *Loader {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath()
	}
	l := &Loader{
		path:      path,
		validator: DefaultValidator{},
		lookupEnv: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the config file location.
func (l *Loader) Path() string {
	return l.path
}

// Last returns the most recent valid configuration.
func (l *Loader) Last() (*Config, bool) {
	cfg := l.last.Load()
	if cfg == nil {
		return nil, false
	}
	return cfg, true
}

// Load reads the file, applies env overrides and validates the result.
func (l *Loader) Load() (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cfg, err := l.loadOnce()
	if err != nil {
		return nil, err
	}
	l.last.Store(cfg)
	return cfg, nil
}

// Reload attempts to refresh configuration keeping the last good state on error.
func (l *Loader) Reload() (*Config, error) {
	prev, _ := l.Last()
	cfg, err := l.Load()
	if err != nil {
		if prev != nil {
			return prev, fmt.Errorf("reload failed, keeping last good config: %w", err)
		}
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) loadOnce() (*Config, error) {
	raw, err := os.ReadFile(l.path)
	cfg := &Config{}
	switch {
	case err == nil:
		if cfg, err = Parse(raw); err != nil {
			return nil, fmt.Errorf("config: %s: %w", l.path, err)
		}
		cfg.SourcePath = l.path
	case errors.Is(err, fs.ErrNotExist):
		raw = nil
	default:
		return nil, fmt.Errorf("config: read %s: %w", l.path, err)
	}
	l.applyEnv(cfg)
	cfg.Normalize()
	l.applyKeyEnv(cfg)
	if l.validator != nil {
		if err := l.validator.Validate(cfg); err != nil {
			return nil, err
		}
	}
	cfg.SourceHash = computeConfigHash(raw)
	return cfg, nil
}

func (l *Loader) applyEnv(cfg *Config) {
	if v, ok := l.env(EnvProvider); ok {
		cfg.Provider = v
	}
	if v, ok := l.env(EnvModel); ok {
		cfg.Model = v
	}
	if v, ok := l.env(EnvLogLevel); ok {
		cfg.LogLevel = v
	}
	if v, ok := l.env(EnvToolServer); ok {
		if spec, err := mcp.ParseServerSpec(v); err == nil {
			cfg.ToolServer = ToolServer{Transport: spec.Transport, Command: spec.Command, Args: spec.Args, URL: spec.URL}
		}
	}
}

// applyKeyEnv fills the API key from the provider's variable when the file
// left it empty.
func (l *Loader) applyKeyEnv(cfg *Config) {
	if cfg.APIKey != "" {
		return
	}
	if name, ok := providerKeyEnv[cfg.Provider]; ok {
		if v, ok := l.env(name); ok {
			cfg.APIKey = v
		}
	}
}

func (l *Loader) env(key string) (string, bool) {
	v, ok := l.lookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// Parse decodes a YAML document. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return cfg, nil
	}
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

func computeConfigHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
