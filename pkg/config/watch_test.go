package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "model: first\n")
	l := NewLoader(path, WithLookupEnv(envMap(nil)))
	_, err := l.Load()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, l, nil, func(cfg *Config) {
			select {
			case changes <- cfg:
			default:
			}
		})
	}()

	// Let the watcher register before writing.
	time.Sleep(100 * time.Millisecond)
	writeConfig(t, dir, "model: second\n")

	// A truncating write can surface an intermediate empty file first.
	deadline := time.After(5 * time.Second)
	for seen := false; !seen; {
		select {
		case cfg := <-changes:
			seen = cfg.Model == "second"
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
	last, ok := l.Last()
	require.True(t, ok)
	assert.Equal(t, "second", last.Model)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
