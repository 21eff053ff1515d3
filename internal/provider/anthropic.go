package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/opsmind/intelplane/internal/config"
	"github.com/opsmind/intelplane/internal/normalize"
	"github.com/opsmind/intelplane/pkg/models"
)

const anthropicVersion = "2023-06-01"

// Anthropic is the high-reasoning hosted backend, speaking the
// Anthropic Messages API. Unlike the OpenAI-compatible backends it
// carries the system prompt in a dedicated field and returns content
// as typed blocks.
type Anthropic struct {
	cfg    config.ProviderConfig
	client *http.Client
	caps   models.Capabilities
}

// NewAnthropic creates the Anthropic adapter from its immutable config.
func NewAnthropic(cfg config.ProviderConfig) *Anthropic {
	return &Anthropic{
		cfg:    cfg,
		client: &http.Client{},
		caps: models.Capabilities{
			Provider:        "anthropic",
			Model:           cfg.Model,
			Modes:           []models.Mode{models.ModeChat, models.ModeToolUse, models.ModeJSON, models.ModeReasoning},
			Strengths:       []string{"reasoning", "policy-analysis", "long-context"},
			MaxOutputTokens: cfg.MaxTokens,
			ContextWindow:   200_000,
		},
	}
}

func (p *Anthropic) Name() string { return "anthropic" }

func (p *Anthropic) Capabilities() models.Capabilities { return p.caps }

type anthropicRequest struct {
	Model       string               `json:"model"`
	System      string               `json:"system,omitempty"`
	Messages    []models.ChatMessage `json:"messages"`
	MaxTokens   int                  `json:"max_tokens"`
	Temperature float64              `json:"temperature,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (p *Anthropic) Analyze(ctx context.Context, episode models.Episode, opts models.RequestOptions) (*models.AnalysisResult, error) {
	start := time.Now()
	text, tokens, err := p.chat(ctx, analysisMessages(episode), opts)
	if err != nil {
		return nil, err
	}
	usage := models.Usage{CostUSD: cost(p.cfg.Model, tokens), LatencyMs: time.Since(start).Milliseconds()}
	return normalize.Analysis(p.Name(), p.cfg.Model, text, tokens, usage), nil
}

func (p *Anthropic) Generate(ctx context.Context, messages []models.ChatMessage, opts models.RequestOptions) (*models.GenerationResult, error) {
	start := time.Now()
	text, tokens, err := p.chat(ctx, messages, opts)
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

func (p *Anthropic) Embed(ctx context.Context, text string, opts models.RequestOptions) (*models.EmbeddingResult, error) {
	return nil, unsupported(p.Name(), "embedding")
}

// HealthCheck lists models, which validates both reachability and the
// API key without consuming completion tokens.
func (p *Anthropic) HealthCheck(ctx context.Context) error {
	if p.cfg.APIKey == "" {
		return missingCredentials(p.Name())
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/v1/models", nil)
	if err != nil {
		return &Error{Provider: p.Name(), Kind: ErrClientError, Message: err.Error()}
	}
	p.setHeaders(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return classifyTransport(p.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return classifyStatus(p.Name(), resp.StatusCode, string(b), resp.Header)
	}
	return nil
}

// chat performs one Messages API call. The leading system message, if
// any, moves into the dedicated system field.
func (p *Anthropic) chat(ctx context.Context, messages []models.ChatMessage, opts models.RequestOptions) (string, models.TokenUsage, error) {
	if p.cfg.APIKey == "" {
		return "", models.TokenUsage{}, missingCredentials(p.Name())
	}

	system := ""
	if len(messages) > 0 && messages[0].Role == "system" {
		system = messages[0].Content
		messages = messages[1:]
	}

	maxTokens := p.cfg.MaxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}
	temperature := p.cfg.Temperature
	if opts.Temperature > 0 {
		temperature = opts.Temperature
	}

	body, _ := json.Marshal(anthropicRequest{
		Model:       p.cfg.Model,
		System:      system,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})

	timeout := p.cfg.Timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", models.TokenUsage{}, &Error{Provider: p.Name(), Kind: ErrClientError, Message: err.Error()}
	}
	p.setHeaders(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", models.TokenUsage{}, classifyTransport(p.Name(), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", models.TokenUsage{}, classifyTransport(p.Name(), err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", models.TokenUsage{}, classifyStatus(p.Name(), resp.StatusCode, string(respBody), resp.Header)
	}

	var decoded anthropicResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", models.TokenUsage{}, &Error{Provider: p.Name(), Kind: ErrServerError, Message: "undecodable response body: " + err.Error()}
	}

	text := ""
	for _, block := range decoded.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	tokens := models.TokenUsage{Input: decoded.Usage.InputTokens, Output: decoded.Usage.OutputTokens}
	return text, tokens, nil
}

func (p *Anthropic) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)
}
