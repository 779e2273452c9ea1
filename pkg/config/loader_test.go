package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rajit-b/agentic-app/pkg/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	l := NewLoader(filepath.Join(t.TempDir(), "absent.yaml"), WithLookupEnv(envMap(nil)))
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultProvider, cfg.Provider)
	assert.Equal(t, DefaultCallTimeout, cfg.CallTimeout)
	assert.Equal(t, 50, cfg.Memory.MaxRecords)
	assert.Equal(t, 12*time.Hour, cfg.Retention())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, mcp.ServerSpec{Command: DefaultToolCommand}, cfg.ServerSpec())
	assert.Empty(t, cfg.SourcePath)

	err = cfg.RequireAPIKey()
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Contains(t, err.Error(), EnvGeminiKey)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
provider: anthropic
model: claude-test
max_tokens: 512
call_timeout: 15s
log_level: DEBUG
tool_server:
  command: ./musictools
  args: [serve]
memory:
  max_records: 5
  retention_hours: 1.5
  snapshot_path: /tmp/moodtunes/../memory.json
telemetry:
  endpoint: localhost:4318
`)
	l := NewLoader(path, WithLookupEnv(envMap(map[string]string{
		EnvModel:        "claude-override",
		EnvAnthropicKey: "sk-ant",
		EnvGeminiKey:    "ignored",
	})))
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "claude-override", cfg.Model)
	assert.Equal(t, "sk-ant", cfg.APIKey)
	assert.NoError(t, cfg.RequireAPIKey())
	assert.Equal(t, 15*time.Second, cfg.CallTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5, cfg.Memory.MaxRecords)
	assert.Equal(t, 90*time.Minute, cfg.Retention())
	assert.Equal(t, "/tmp/memory.json", cfg.Memory.SnapshotPath)
	assert.Equal(t, "localhost:4318", cfg.Telemetry.Endpoint)
	assert.Equal(t, path, cfg.SourcePath)
	assert.Len(t, cfg.SourceHash, 64)

	mc := cfg.ModelConfig()
	assert.Equal(t, "anthropic", mc.Provider)
	assert.Equal(t, 512, mc.MaxTokens)
	assert.Equal(t, []string{"serve"}, cfg.ServerSpec().Args)

	last, ok := l.Last()
	require.True(t, ok)
	assert.Same(t, cfg, last)
}

func TestEnvProviderAndToolServer(t *testing.T) {
	l := NewLoader(filepath.Join(t.TempDir(), "none.yaml"), WithLookupEnv(envMap(map[string]string{
		EnvProvider:   " OpenAI ",
		EnvOpenAIKey:  "sk-openai",
		EnvToolServer: "http://localhost:8090/mcp",
	})))
	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "sk-openai", cfg.APIKey)
	assert.Equal(t, mcp.ServerSpec{Transport: mcp.TransportHTTP, URL: "http://localhost:8090/mcp"}, cfg.ServerSpec())
}

func TestFileKeyWinsOverEnv(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "api_key: from-file\n")
	cfg, err := NewLoader(path, WithLookupEnv(envMap(map[string]string{EnvGeminiKey: "from-env"}))).Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.APIKey)
}

func TestLoadRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"unknown key":   "providr: gemini\n",
		"bad yaml":      "provider: [\n",
		"bad transport": "tool_server:\n  transport: smoke\n",
		"bad level":     "log_level: loud\n",
		"negative mem":  "memory:\n  max_records: -1\n",
	} {
		t.Run(name, func(t *testing.T) {
			path := writeConfig(t, dir, body)
			_, err := NewLoader(path, WithLookupEnv(envMap(nil))).Load()
			assert.Error(t, err)
		})
	}
}

func TestReloadKeepsLastGood(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "model: first\n")
	l := NewLoader(path, WithLookupEnv(envMap(nil)))
	first, err := l.Load()
	require.NoError(t, err)

	writeConfig(t, dir, "model: [broken\n")
	cfg, err := l.Reload()
	require.Error(t, err)
	assert.Same(t, first, cfg)

	writeConfig(t, dir, "model: second\n")
	cfg, err = l.Reload()
	require.NoError(t, err)
	assert.Equal(t, "second", cfg.Model)
}

type rejectAll struct{}

func (rejectAll) Validate(*Config) error { return errors.New("nope") }

func TestCustomValidator(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "x.yaml"), WithValidator(rejectAll{}), WithLookupEnv(envMap(nil))).Load()
	assert.EqualError(t, err, "nope")
}

func TestDefaultPath(t *testing.T) {
	t.Setenv(EnvConfig, "/etc/moodtunes.yaml")
	assert.Equal(t, "/etc/moodtunes.yaml", DefaultPath())
	assert.Equal(t, "/etc/moodtunes.yaml", NewLoader("").Path())

	t.Setenv(EnvConfig, "")
	assert.True(t, strings.HasSuffix(DefaultPath(), filepath.Join(configDirName, configFileName)))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("MOODTUNES_TEST_DOTENV=loaded\n"), 0o600))
	t.Setenv("MOODTUNES_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("MOODTUNES_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(envFile, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "loaded", os.Getenv("MOODTUNES_TEST_DOTENV"))
}

func TestParseLevel(t *testing.T) {
	for _, name := range []string{"", "info", "debug", "warn", "warning", "error", "ERROR"} {
		_, err := ParseLevel(name)
		assert.NoError(t, err, name)
	}
	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}
