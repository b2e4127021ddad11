// Package routing resolves client-visible model aliases to provider
// bindings and selects credentials from the pool.
package routing

import (
	"sort"
	"sync"

	"github.com/MiXaiLL76/auto-ai-router/pkg/config"
	"github.com/MiXaiLL76/auto-ai-router/pkg/credential"
)

// Binding is the resolved form of a configured model binding.
type Binding struct {
	// Alias is the client-facing model id.
	Alias string

	// Provider is the provider tag.
	Provider string

	// Model is the provider-native model id.
	Model string

	// Capability flags.
	SupportsStreaming bool
	SupportsTools     bool
	SupportsVision    bool
	ImageGeneration   bool
	Embedding         bool
	ImageModality     bool
}

// Router maps model aliases to bindings and picks credentials. The binding
// table is swapped atomically on configuration reload; the credential store
// carries its own synchronization.
type Router struct {
	mu       sync.RWMutex
	bindings map[string]Binding
	store    *credential.Store
}

// NewRouter builds a router over the given bindings and credential store.
func NewRouter(models []config.ModelBinding, store *credential.Store) *Router {
	r := &Router{store: store}
	r.SetBindings(models)
	return r
}

// SetBindings replaces the binding table.
func (r *Router) SetBindings(models []config.ModelBinding) {
	bindings := make(map[string]Binding, len(models))
	for _, m := range models {
		bindings[m.Alias] = Binding{
			Alias:             m.Alias,
			Provider:          m.Provider,
			Model:             m.NativeModel(),
			SupportsStreaming: m.HasCapability(config.CapStreaming),
			SupportsTools:     m.HasCapability(config.CapTools),
			SupportsVision:    m.HasCapability(config.CapVision),
			ImageGeneration:   m.HasCapability(config.CapImageGeneration),
			Embedding:         m.HasCapability(config.CapEmbedding),
			ImageModality:     m.HasCapability(config.CapImageModality),
		}
	}

	r.mu.Lock()
	r.bindings = bindings
	r.mu.Unlock()
}

// Resolve looks up the binding for a model alias.
func (r *Router) Resolve(alias string) (Binding, error) {
	r.mu.RLock()
	b, ok := r.bindings[alias]
	r.mu.RUnlock()
	if !ok {
		return Binding{}, &UnknownModelError{Model: alias}
	}
	return b, nil
}

// Pick resolves the binding and selects an eligible credential.
func (r *Router) Pick(alias string) (Binding, *credential.Credential, error) {
	b, err := r.Resolve(alias)
	if err != nil {
		return Binding{}, nil, err
	}
	cred, err := r.store.Pick(alias)
	if err != nil {
		return Binding{}, nil, err
	}
	return b, cred, nil
}

// Store exposes the credential pool for ban/success bookkeeping.
func (r *Router) Store() *credential.Store {
	return r.store
}

// Bindings returns all bindings sorted by alias, for the models endpoint.
func (r *Router) Bindings() []Binding {
	r.mu.RLock()
	out := make([]Binding, 0, len(r.bindings))
	for _, b := range r.bindings {
		out = append(out, b)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Alias < out[j].Alias })
	return out
}
