// Package service implements the analysis facade, the single entry
// point the surrounding coordination layer calls.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opsmind/intelplane/internal/executor"
	"github.com/opsmind/intelplane/internal/router"
	"github.com/opsmind/intelplane/pkg/contracts"
	"github.com/opsmind/intelplane/pkg/models"
	"github.com/rs/zerolog/log"
)

// Service glues routing and execution together behind
// contracts.AnalysisService. It holds no per-request state.
type Service struct {
	router   *router.Router
	executor *executor.Executor
}

// New creates the service facade.
func New(r *router.Router, x *executor.Executor) *Service {
	return &Service{router: r, executor: x}
}

var _ contracts.AnalysisService = (*Service)(nil)

// Analyze selects the provider chain for the episode and executes it
// with the full resilience policy.
func (s *Service) Analyze(ctx context.Context, episode models.Episode, opts models.RequestOptions) (*models.AnalysisResult, error) {
	episode = withDefaults(episode)

	chain, err := s.router.SelectChain(episode, opts)
	if err != nil {
		return nil, fmt.Errorf("select chain: %w", err)
	}

	log.Info().
		Str("episode", episode.ID).
		Str("kind", string(episode.Kind)).
		Str("priority", string(episode.Priority)).
		Strs("chain", chain).
		Msg("analysis request routed")

	return s.executor.Analyze(ctx, episode, opts, chain)
}

// Generate routes a plain generation. A forced provider is honored;
// otherwise the default chain applies.
func (s *Service) Generate(ctx context.Context, messages []models.ChatMessage, opts models.RequestOptions) (*models.GenerationResult, error) {
	chain, err := s.router.SelectChain(models.Episode{}, opts)
	if err != nil {
		return nil, fmt.Errorf("select chain: %w", err)
	}
	return s.executor.Generate(ctx, messages, opts, chain, models.PriorityMedium)
}

// Embed routes an embedding request to the first chain provider that
// supports it; providers without embedding support fail terminally and
// the executor falls through to the next.
func (s *Service) Embed(ctx context.Context, text string, opts models.RequestOptions) (*models.EmbeddingResult, error) {
	chain, err := s.router.SelectChain(models.Episode{}, opts)
	if err != nil {
		return nil, fmt.Errorf("select chain: %w", err)
	}
	return s.executor.Embed(ctx, text, opts, chain, models.PriorityMedium)
}

// withDefaults fills in the fields the coordination layer may omit. The
// input episode is copied, never mutated.
func withDefaults(episode models.Episode) models.Episode {
	if episode.ID == "" {
		episode.ID = uuid.New().String()
	}
	if episode.Priority == "" {
		episode.Priority = models.PriorityMedium
	}
	if episode.CreatedAt.IsZero() {
		episode.CreatedAt = time.Now().UTC()
	}
	return episode
}
