package mcp

import (
	"context"
	"errors"
	"sync"
	"time"
)

type cachedClient struct {
	client   *Client
	lastUsed time.Time
}

// SessionCache keeps one live Client per server spec so repeated pipeline
// runs reuse the same tool server process or HTTP session.
type SessionCache struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	dial  func(context.Context, ServerSpec) (*Client, error)
	items map[string]*cachedClient
}

// NewSessionCache creates a cache with the provided TTL. Zero TTL disables
// expiry. A nil dial selects Dial.
func NewSessionCache(ttl time.Duration, dial func(context.Context, ServerSpec) (*Client, error)) *SessionCache {
	if dial == nil {
		dial = Dial
	}
	return &SessionCache{
		ttl:   ttl,
		now:   time.Now,
		dial:  dial,
		items: make(map[string]*cachedClient),
	}
}

// Get returns the cached client for spec, dialing a new one when it is
// missing or idle past the TTL. The boolean reports reuse.
func (c *SessionCache) Get(ctx context.Context, spec ServerSpec) (*Client, bool, error) {
	key := spec.Key()

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.items[key]; ok {
		if !c.expired(entry) {
			entry.lastUsed = c.now()
			return entry.client, true, nil
		}
		_ = entry.client.Close()
		delete(c.items, key)
	}

	client, err := c.dial(ctx, spec)
	if err != nil {
		return nil, false, err
	}
	c.items[key] = &cachedClient{client: client, lastUsed: c.now()}
	return client, false, nil
}

// Evict closes and forgets the session for spec, typically after a
// transport failure.
func (c *SessionCache) Evict(spec ServerSpec) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.items[spec.Key()]
	if !ok {
		return nil
	}
	delete(c.items, spec.Key())
	return entry.client.Close()
}

// CloseIdle closes sessions unused for longer than the TTL.
func (c *SessionCache) CloseIdle() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for key, entry := range c.items {
		if !c.expired(entry) {
			continue
		}
		if err := entry.client.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(c.items, key)
	}
	return errors.Join(errs...)
}

// CloseAll tears down every cached session.
func (c *SessionCache) CloseAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for key, entry := range c.items {
		if err := entry.client.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(c.items, key)
	}
	return errors.Join(errs...)
}

// Len reports the number of cached sessions.
func (c *SessionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *SessionCache) expired(entry *cachedClient) bool {
	if c.ttl <= 0 {
		return false
	}
	return entry.lastUsed.Add(c.ttl).Before(c.now())
}
