package provider

import (
	"context"
	"time"

	"github.com/opsmind/intelplane/internal/config"
	"github.com/opsmind/intelplane/internal/normalize"
	"github.com/opsmind/intelplane/pkg/models"
)

// OpenAI is the fast, code-oriented hosted backend.
type OpenAI struct {
	cfg        config.ProviderConfig
	client     *compatClient
	embedModel string
	caps       models.Capabilities
}

// NewOpenAI creates the OpenAI adapter from its immutable config.
func NewOpenAI(cfg config.ProviderConfig) *OpenAI {
	return &OpenAI{
		cfg:        cfg,
		client:     newCompatClient("openai", cfg, true),
		embedModel: "text-embedding-3-small",
		caps: models.Capabilities{
			Provider:        "openai",
			Model:           cfg.Model,
			Modes:           []models.Mode{models.ModeChat, models.ModeToolUse, models.ModeJSON, models.ModeEmbedding},
			Strengths:       []string{"code-generation", "speed", "structured-output"},
			MaxOutputTokens: cfg.MaxTokens,
			ContextWindow:   128_000,
		},
	}
}

func (p *OpenAI) Name() string { return "openai" }

func (p *OpenAI) Capabilities() models.Capabilities { return p.caps }

func (p *OpenAI) Analyze(ctx context.Context, episode models.Episode, opts models.RequestOptions) (*models.AnalysisResult, error) {
	start := time.Now()
	text, tokens, err := p.client.chat(ctx, analysisMessages(episode), opts)
	if err != nil {
		return nil, err
	}
	usage := models.Usage{CostUSD: cost(p.cfg.Model, tokens), LatencyMs: time.Since(start).Milliseconds()}
	return normalize.Analysis(p.Name(), p.cfg.Model, text, tokens, usage), nil
}

func (p *OpenAI) Generate(ctx context.Context, messages []models.ChatMessage, opts models.RequestOptions) (*models.GenerationResult, error) {
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

func (p *OpenAI) Embed(ctx context.Context, text string, opts models.RequestOptions) (*models.EmbeddingResult, error) {
	start := time.Now()
	vec, tokens, err := p.client.embed(ctx, p.embedModel, text, opts)
	if err != nil {
		return nil, err
	}
	return &models.EmbeddingResult{
		Provider:  p.Name(),
		Model:     p.embedModel,
		Embedding: vec,
		Tokens:    tokens,
		Usage:     models.Usage{CostUSD: cost(p.embedModel, tokens), LatencyMs: time.Since(start).Milliseconds()},
	}, nil
}

func (p *OpenAI) HealthCheck(ctx context.Context) error {
	return p.client.healthCheck(ctx, "/models")
}
