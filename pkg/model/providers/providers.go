// Package providers resolves a model configuration to a concrete backend.
package providers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	modelpkg "github.com/rajit-b/agentic-app/pkg/model"
	"github.com/rajit-b/agentic-app/pkg/model/anthropic"
	"github.com/rajit-b/agentic-app/pkg/model/gemini"
	"github.com/rajit-b/agentic-app/pkg/model/openai"
)

// DefaultProvider is used when a config names no provider.
const DefaultProvider = "gemini"

// Registry maps provider names to factories.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]modelpkg.Provider
}

// NewRegistry returns a registry pre-populated with the given providers.
func NewRegistry(providers ...modelpkg.Provider) *Registry {
	r := &Registry{providers: make(map[string]modelpkg.Provider)}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Default returns a registry with the Gemini, Anthropic and OpenAI backends.
func Default() *Registry {
	return NewRegistry(gemini.Provider{}, anthropic.Provider{}, openai.Provider{})
}

// Register adds or replaces a provider.
func (r *Registry) Register(p modelpkg.Provider) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[strings.ToLower(p.Name())] = p
}

// Names lists registered providers in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds a model for cfg.Provider, falling back to DefaultProvider.
func (r *Registry) New(ctx context.Context, cfg modelpkg.ModelConfig) (modelpkg.Model, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name == "" {
		name = DefaultProvider
	}
	r.mu.RLock()
	p, ok := r.providers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("providers: unknown provider %q (known: %s)", name, strings.Join(r.Names(), ", "))
	}
	m, err := p.NewModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("providers: %s: %w", name, err)
	}
	return m, nil
}
