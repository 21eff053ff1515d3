package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/opsmind/intelplane/internal/normalize"
	"github.com/opsmind/intelplane/pkg/models"
)

// Mock is the deterministic offline backend. It performs no network
// I/O, costs nothing and always answers with a well-formed structured
// payload derived from the episode, so tests and offline development
// exercise the full normalization path.
type Mock struct {
	caps models.Capabilities
}

// NewMock creates the mock adapter.
func NewMock() *Mock {
	return &Mock{
		caps: models.Capabilities{
			Provider:        "mock",
			Model:           "mock-analyst-1",
			Modes:           []models.Mode{models.ModeChat, models.ModeJSON, models.ModeEmbedding},
			Strengths:       []string{"deterministic", "offline"},
			MaxOutputTokens: 4096,
			ContextWindow:   32_768,
		},
	}
}

func (p *Mock) Name() string { return "mock" }

func (p *Mock) Capabilities() models.Capabilities { return p.caps }

func (p *Mock) Analyze(ctx context.Context, episode models.Episode, opts models.RequestOptions) (*models.AnalysisResult, error) {
	payload := map[string]interface{}{
		"summary":     fmt.Sprintf("Deterministic analysis of episode %q (%s).", episode.Title, episode.Kind),
		"root_causes": []string{"insufficient data for a real diagnosis (mock backend)"},
		"sop_suggestions": []models.SOPSuggestion{{
			Title:       "Review episode " + episode.ID,
			Category:    string(episode.Kind),
			Priority:    string(episode.Priority),
			Description: "Canned suggestion produced by the mock backend.",
			Triggers:    []string{string(episode.Kind)},
			Actions:     []string{"inspect episode data", "confirm with a hosted backend"},
		}},
		"recommendations": []models.Recommendation{{
			Type:      "verification",
			Action:    "re-run against a hosted provider",
			Rationale: "mock output is canned",
		}},
		"risk_level":      "low",
		"learning_points": []string{"mock backend exercised the full normalization path"},
	}
	raw, _ := json.Marshal(payload)

	tokens := models.TokenUsage{Input: len(episode.Data) / 4, Output: len(raw) / 4}
	return normalize.Analysis(p.Name(), p.caps.Model, string(raw), tokens, models.Usage{}), nil
}

func (p *Mock) Generate(ctx context.Context, messages []models.ChatMessage, opts models.RequestOptions) (*models.GenerationResult, error) {
	last := ""
	if len(messages) > 0 {
		last = messages[len(messages)-1].Content
	}
	text := "mock: " + last
	return &models.GenerationResult{
		Provider: p.Name(),
		Model:    p.caps.Model,
		Text:     text,
		Tokens:   models.TokenUsage{Input: len(last) / 4, Output: len(text) / 4},
	}, nil
}

// Embed returns a fixed-dimension vector derived from the text bytes,
// stable across calls for the same input.
func (p *Mock) Embed(ctx context.Context, text string, opts models.RequestOptions) (*models.EmbeddingResult, error) {
	const dim = 16
	vec := make([]float64, dim)
	for i, b := range []byte(text) {
		vec[i%dim] += float64(b) / 255
	}
	return &models.EmbeddingResult{
		Provider:  p.Name(),
		Model:     p.caps.Model,
		Embedding: vec,
		Tokens:    models.TokenUsage{Input: len(text) / 4},
	}, nil
}

func (p *Mock) HealthCheck(ctx context.Context) error { return nil }
