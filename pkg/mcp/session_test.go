package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inMemoryDialer(t *testing.T, dials *int) func(context.Context, ServerSpec) (*Client, error) {
	t.Helper()
	return func(ctx context.Context, spec ServerSpec) (*Client, error) {
		*dials++
		serverTransport, clientTransport := sdk.NewInMemoryTransports()
		serverSession, err := newTestServer().Connect(ctx, serverTransport, nil)
		if err != nil {
			return nil, err
		}
		t.Cleanup(func() { _ = serverSession.Close() })
		return Connect(ctx, clientTransport)
	}
}

func TestSessionCacheReuseAndExpiry(t *testing.T) {
	dials := 0
	cache := NewSessionCache(time.Minute, inMemoryDialer(t, &dials))
	now := time.Unix(0, 0)
	cache.now = func() time.Time { return now }
	t.Cleanup(func() { _ = cache.CloseAll() })

	spec := ServerSpec{Command: "musictools"}
	ctx := context.Background()

	first, reused, err := cache.Get(ctx, spec)
	require.NoError(t, err)
	assert.False(t, reused)

	second, reused, err := cache.Get(ctx, spec)
	require.NoError(t, err)
	assert.True(t, reused)
	assert.Same(t, first, second)
	assert.Equal(t, 1, dials)

	now = now.Add(2 * time.Minute)
	third, reused, err := cache.Get(ctx, spec)
	require.NoError(t, err)
	assert.False(t, reused)
	assert.NotSame(t, first, third)
	assert.Equal(t, 2, dials)

	_, err = first.ListTools(ctx)
	assert.ErrorIs(t, err, ErrClientClosed, "expired session should be closed")
}

func TestSessionCacheCloseIdleAndEvict(t *testing.T) {
	dials := 0
	cache := NewSessionCache(time.Minute, inMemoryDialer(t, &dials))
	now := time.Unix(0, 0)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	stale := ServerSpec{Command: "stale"}
	fresh := ServerSpec{URL: "http://fresh"}
	_, _, err := cache.Get(ctx, stale)
	require.NoError(t, err)
	now = now.Add(90 * time.Second)
	_, _, err = cache.Get(ctx, fresh)
	require.NoError(t, err)

	require.NoError(t, cache.CloseIdle())
	assert.Equal(t, 1, cache.Len())

	require.NoError(t, cache.Evict(fresh))
	require.NoError(t, cache.Evict(fresh))
	assert.Equal(t, 0, cache.Len())
}

func TestSessionCacheDialError(t *testing.T) {
	boom := errors.New("boom")
	cache := NewSessionCache(0, func(context.Context, ServerSpec) (*Client, error) { return nil, boom })

	_, _, err := cache.Get(context.Background(), ServerSpec{Command: "x"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, cache.Len())
	assert.NoError(t, cache.CloseAll())
}
