package provider

import (
	"context"
	"time"

	"github.com/opsmind/intelplane/internal/config"
	"github.com/opsmind/intelplane/internal/normalize"
	"github.com/opsmind/intelplane/pkg/models"
)

// Together is the open-source hosted backend. It speaks the
// OpenAI-compatible wire format against the Together inference API.
type Together struct {
	cfg    config.ProviderConfig
	client *compatClient
	caps   models.Capabilities
}

// NewTogether creates the Together adapter from its immutable config.
func NewTogether(cfg config.ProviderConfig) *Together {
	return &Together{
		cfg:    cfg,
		client: newCompatClient("together", cfg, true),
		caps: models.Capabilities{
			Provider:        "together",
			Model:           cfg.Model,
			Modes:           []models.Mode{models.ModeChat, models.ModeJSON},
			Strengths:       []string{"open-source", "cost-efficiency"},
			MaxOutputTokens: cfg.MaxTokens,
			ContextWindow:   131_072,
		},
	}
}

func (p *Together) Name() string { return "together" }

func (p *Together) Capabilities() models.Capabilities { return p.caps }

func (p *Together) Analyze(ctx context.Context, episode models.Episode, opts models.RequestOptions) (*models.AnalysisResult, error) {
	start := time.Now()
	text, tokens, err := p.client.chat(ctx, analysisMessages(episode), opts)
	if err != nil {
		return nil, err
	}
	usage := models.Usage{CostUSD: cost(p.cfg.Model, tokens), LatencyMs: time.Since(start).Milliseconds()}
	return normalize.Analysis(p.Name(), p.cfg.Model, text, tokens, usage), nil
}

func (p *Together) Generate(ctx context.Context, messages []models.ChatMessage, opts models.RequestOptions) (*models.GenerationResult, error) {
	start := time.Now()
	text, tokens, err := p.client.chat(ctx, messages, opts)
	if err != nil {
		return nil, err
	}
	return &models.GenerationResult{
		Provider: p.Name(),
		Model:    p.cfg.Model,
		Text:     text,
		Tokens:   tokens,
		Usage:    models.Usage{CostUSD: cost(p.cfg.Model, tokens), LatencyMs: time.Since(start).Milliseconds()},
	}, nil
}

func (p *Together) Embed(ctx context.Context, text string, opts models.RequestOptions) (*models.EmbeddingResult, error) {
	return nil, unsupported(p.Name(), "embedding")
}

func (p *Together) HealthCheck(ctx context.Context) error {
	return p.client.healthCheck(ctx, "/models")
}
