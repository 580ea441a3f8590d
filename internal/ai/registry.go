package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

type ProviderFactory func(ctx context.Context, model string) (Provider, error)

// Registry routes a (provider, model) pair to a concrete Provider. Empty names
// fall back to the configured default provider and model.
type Registry struct {
	mu           sync.RWMutex
	factories    map[string]ProviderFactory
	defaultName  string
	defaultModel string
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ProviderFactory)}
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (r *Registry) Register(name string, f ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[normalize(name)] = f
}

// SetDefault sets the provider and model used when a caller does not name one.
func (r *Registry) SetDefault(name, model string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultName = normalize(name)
	r.defaultModel = strings.TrimSpace(model)
}

// Default returns the configured default provider name and model.
func (r *Registry) Default() (string, string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultName, r.defaultModel
}

// Has reports whether a provider is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[normalize(name)]
	return ok
}

// Names lists registered providers in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Get(ctx context.Context, name string, model string) (Provider, error) {
	name = normalize(name)
	model = strings.TrimSpace(model)

	r.mu.RLock()
	if name == "" {
		name = r.defaultName
		if model == "" {
			model = r.defaultModel
		}
	}
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown ai provider: %q", name)
	}
	return f(ctx, model)
}
