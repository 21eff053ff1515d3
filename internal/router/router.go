// Package router maps episode kinds to ordered provider chains.
//
// The table is static per process: built-in defaults merged once with
// configuration overrides at construction. SelectChain is pure given an
// unchanged registry, so identical episodes always get identical chains.
package router

import (
	"fmt"

	"github.com/opsmind/intelplane/internal/config"
	"github.com/opsmind/intelplane/internal/provider"
	"github.com/opsmind/intelplane/pkg/models"
	"github.com/rs/zerolog/log"
)

// builtinChains is the default routing table. The primary provider for
// each kind reflects the backend's strength: reasoning-heavy kinds lead
// with anthropic, code with openai, privacy-sensitive kinds stay local
// first.
var builtinChains = map[models.EpisodeKind][]string{
	models.KindPolicyReview:     {"anthropic", "ollama"},
	models.KindCodeGeneration:   {"openai", "together", "anthropic"},
	models.KindAnomalyDetection: {"openai", "anthropic", "ollama"},
	models.KindRootCause:        {"anthropic", "openai", "ollama"},
	models.KindPrivacyReview:    {"ollama", "anthropic"},
}

// builtinDefault serves unmapped kinds.
var builtinDefault = []string{"anthropic", "openai", "ollama"}

// UnknownProviderError reports a forced provider that is not registered.
type UnknownProviderError struct {
	Name string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider %q", e.Name)
}

// Router selects the provider chain for each episode.
type Router struct {
	registry     *provider.Registry
	chains       map[models.EpisodeKind][]string
	defaultChain []string
}

// New builds the router, merging configuration overrides over the
// built-in table.
func New(registry *provider.Registry, cfg config.RoutingConfig) *Router {
	chains := make(map[models.EpisodeKind][]string, len(builtinChains))
	for kind, chain := range builtinChains {
		chains[kind] = chain
	}
	for kind, chain := range cfg.Chains {
		chains[models.EpisodeKind(kind)] = chain
		log.Info().Str("kind", kind).Strs("chain", chain).Msg("routing chain overridden")
	}

	defaultChain := builtinDefault
	if len(cfg.Default) > 0 {
		defaultChain = cfg.Default
	}

	return &Router{
		registry:     registry,
		chains:       chains,
		defaultChain: defaultChain,
	}
}

// SelectChain returns the ordered provider chain for the episode. A
// forced provider in opts short-circuits the table after validation
// against the registry. Chain entries whose provider is not registered
// (e.g. a hosted backend with no credentials) are skipped.
func (r *Router) SelectChain(episode models.Episode, opts models.RequestOptions) ([]string, error) {
	if opts.ForceProvider != "" {
		if !r.registry.Has(opts.ForceProvider) {
			return nil, &UnknownProviderError{Name: opts.ForceProvider}
		}
		return []string{opts.ForceProvider}, nil
	}

	chain, ok := r.chains[episode.Kind]
	if !ok {
		chain = r.defaultChain
	}

	selected := r.registered(chain)
	if len(selected) == 0 {
		// Nothing in the kind-specific chain is available; fall back to
		// whatever the default chain still offers.
		selected = r.registered(r.defaultChain)
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no registered providers for kind %q", episode.Kind)
	}
	return selected, nil
}

func (r *Router) registered(chain []string) []string {
	out := make([]string, 0, len(chain))
	for _, name := range chain {
		if r.registry.Has(name) {
			out = append(out, name)
		}
	}
	return out
}
