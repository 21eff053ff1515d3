package provider

import (
	"context"
	"time"

	"github.com/opsmind/intelplane/internal/config"
	"github.com/opsmind/intelplane/internal/normalize"
	"github.com/opsmind/intelplane/pkg/models"
)

// Ollama is the zero-cost local backend. Ollama exposes an
// OpenAI-compatible surface under /v1, which keeps this adapter a thin
// wrapper around the shared compat client. No API key, no cost.
type Ollama struct {
	cfg        config.ProviderConfig
	client     *compatClient
	embedModel string
	caps       models.Capabilities
}

// NewOllama creates the Ollama adapter from its immutable config. The
// configured BaseURL is the daemon root (e.g. http://localhost:11434);
// the OpenAI-compatible prefix is appended here.
func NewOllama(cfg config.ProviderConfig) *Ollama {
	compatCfg := cfg
	compatCfg.BaseURL = cfg.BaseURL + "/v1"
	return &Ollama{
		cfg:        cfg,
		client:     newCompatClient("ollama", compatCfg, false),
		embedModel: "nomic-embed-text",
		caps: models.Capabilities{
			Provider:        "ollama",
			Model:           cfg.Model,
			Modes:           []models.Mode{models.ModeChat, models.ModeJSON, models.ModeEmbedding},
			Strengths:       []string{"zero-cost", "data-locality", "privacy"},
			MaxOutputTokens: cfg.MaxTokens,
			ContextWindow:   32_768,
		},
	}
}

func (p *Ollama) Name() string { return "ollama" }

func (p *Ollama) Capabilities() models.Capabilities { return p.caps }

func (p *Ollama) Analyze(ctx context.Context, episode models.Episode, opts models.RequestOptions) (*models.AnalysisResult, error) {
	start := time.Now()
	text, tokens, err := p.client.chat(ctx, analysisMessages(episode), opts)
	if err != nil {
		return nil, err
	}
	// Local inference is free; only latency is tracked.
	usage := models.Usage{LatencyMs: time.Since(start).Milliseconds()}
	return normalize.Analysis(p.Name(), p.cfg.Model, text, tokens, usage), nil
}

func (p *Ollama) Generate(ctx context.Context, messages []models.ChatMessage, opts models.RequestOptions) (*models.GenerationResult, error) {
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
		Usage:    models.Usage{LatencyMs: time.Since(start).Milliseconds()},
	}, nil
}

func (p *Ollama) Embed(ctx context.Context, text string, opts models.RequestOptions) (*models.EmbeddingResult, error) {
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
		Usage:     models.Usage{LatencyMs: time.Since(start).Milliseconds()},
	}, nil
}

func (p *Ollama) HealthCheck(ctx context.Context) error {
	return p.client.healthCheck(ctx, "/models")
}
