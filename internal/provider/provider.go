// Package provider implements the backend adapters of the intelligence
// plane.
//
// Every adapter satisfies contracts.Provider and differs only in wire
// protocol and pricing:
//   - anthropic: high-reasoning hosted backend (Anthropic Messages API)
//   - openai:    fast code-oriented hosted backend (Chat Completions API)
//   - together:  open-source hosted backend (OpenAI-compatible wire)
//   - ollama:    zero-cost local backend (OpenAI-compatible wire)
//   - mock:      deterministic canned output, no network I/O
//
// Adapters classify every failure into the taxonomy in errors.go and
// compute cost from the static pricing table. They never mutate the
// episode and never retry; retries belong to the resilience executor.
package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/opsmind/intelplane/pkg/contracts"
	"github.com/rs/zerolog/log"
)

// Registry holds the configured providers, keyed by id. It is populated
// once at startup and read-only on the request path.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]contracts.Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]contracts.Provider)}
}

// Register adds a provider. Registering the same id twice replaces the
// earlier entry, which tests use to install mocks.
func (r *Registry) Register(p contracts.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
	log.Info().Str("provider", p.Name()).Str("model", p.Capabilities().Model).Msg("provider registered")
}

// Get returns the provider with the given id.
func (r *Registry) Get(name string) (contracts.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", name)
	}
	return p, nil
}

// Has reports whether the provider id is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[name]
	return ok
}

// Names returns the registered provider ids, sorted.
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

// HealthCheck probes every registered provider and returns a per-id
// status string. Probe failures update nothing; they are advisory.
func (r *Registry) HealthCheck(ctx context.Context) map[string]string {
	r.mu.RLock()
	providers := make(map[string]contracts.Provider, len(r.providers))
	for name, p := range r.providers {
		providers[name] = p
	}
	r.mu.RUnlock()

	result := make(map[string]string, len(providers))
	for name, p := range providers {
		if err := p.HealthCheck(ctx); err != nil {
			result[name] = "unhealthy: " + err.Error()
			continue
		}
		result[name] = "healthy"
	}
	return result
}
