package main

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rajit-b/agentic-app/pkg/mcp"
	"github.com/rajit-b/agentic-app/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitForAddress(t *testing.T, buf *syncBuffer, timeout time.Duration) string {
	t.Helper()
	const marker = "musictools listening on "
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		output := buf.String()
		if idx := strings.Index(output, marker); idx >= 0 {
			rest := output[idx+len(marker):]
			if end := strings.Index(rest, "\n"); end >= 0 {
				return rest[:end]
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server did not report its address; output: %s", buf.String())
	return ""
}

func TestServeHTTP(t *testing.T) {
	orig := modelFactory
	modelFactory = func(ctx context.Context, cfg model.ModelConfig) (model.Model, error) {
		return model.Func(func(ctx context.Context, _ []model.Message) (model.Message, error) {
			return model.Message{Content: `{"recommendations":[{"song":"Happy","artist":"Pharrell Williams"}]}`}, nil
		}), nil
	}
	t.Cleanup(func() { modelFactory = orig })

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("api_key: test\nlog_level: error\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	out := &syncBuffer{}
	cmd := newRootCmd(out, &syncBuffer{})
	cmd.SetArgs([]string{"--config", cfgPath, "--http", "127.0.0.1:0", "--no-watch"})
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	endpoint := waitForAddress(t, out, 5*time.Second)
	base := strings.TrimSuffix(endpoint, "/mcp")

	resp, err := http.Get(base + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	callCtx, callCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer callCancel()
	client, err := mcp.Dial(callCtx, mcp.ServerSpec{URL: endpoint})
	require.NoError(t, err)
	res, err := client.InvokeTool(callCtx, "recommend_music", map[string]any{"mood": "happy", "activity": "dancing"})
	require.NoError(t, err)
	assert.Contains(t, res.FirstText(), "Pharrell Williams")
	require.NoError(t, client.Close())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRejectsArgs(t *testing.T) {
	cmd := newRootCmd(&bytes.Buffer{}, &bytes.Buffer{})
	cmd.SetArgs([]string{"extra"})
	assert.Error(t, cmd.Execute())
}
