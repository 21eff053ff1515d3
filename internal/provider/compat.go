package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/opsmind/intelplane/internal/config"
	"github.com/opsmind/intelplane/pkg/models"
)

// compatClient speaks the OpenAI-compatible chat/embeddings wire format
// shared by OpenAI, Together and Ollama. The adapter owns classification:
// every failure leaving this client is already a *Error.
type compatClient struct {
	name       string
	cfg        config.ProviderConfig
	client     *http.Client
	requireKey bool
}

func newCompatClient(name string, cfg config.ProviderConfig, requireKey bool) *compatClient {
	return &compatClient{
		name:       name,
		cfg:        cfg,
		// No client-level timeout: the per-attempt context deadline is
		// the single source of truth for aborting a call.
		client:     &http.Client{},
		requireKey: requireKey,
	}
}

type compatChatRequest struct {
	Model       string               `json:"model"`
	Messages    []models.ChatMessage `json:"messages"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
	Temperature float64              `json:"temperature,omitempty"`
}

type compatChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// chat performs one chat completion call.
func (c *compatClient) chat(ctx context.Context, messages []models.ChatMessage, opts models.RequestOptions) (string, models.TokenUsage, error) {
	if c.requireKey && c.cfg.APIKey == "" {
		return "", models.TokenUsage{}, missingCredentials(c.name)
	}

	maxTokens := c.cfg.MaxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}
	temperature := c.cfg.Temperature
	if opts.Temperature > 0 {
		temperature = opts.Temperature
	}

	body, _ := json.Marshal(compatChatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})

	respBody, err := c.post(ctx, "/chat/completions", body, c.timeout(opts))
	if err != nil {
		return "", models.TokenUsage{}, err
	}

	var resp compatChatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", models.TokenUsage{}, &Error{Provider: c.name, Kind: ErrServerError, Message: "undecodable response body: " + err.Error()}
	}

	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}
	tokens := models.TokenUsage{Input: resp.Usage.PromptTokens, Output: resp.Usage.CompletionTokens}
	return content, tokens, nil
}

type compatEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type compatEmbedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
	} `json:"usage"`
}

// embed performs one embedding call against the /embeddings endpoint.
func (c *compatClient) embed(ctx context.Context, model, text string, opts models.RequestOptions) ([]float64, models.TokenUsage, error) {
	if c.requireKey && c.cfg.APIKey == "" {
		return nil, models.TokenUsage{}, missingCredentials(c.name)
	}

	body, _ := json.Marshal(compatEmbedRequest{Model: model, Input: text})

	respBody, err := c.post(ctx, "/embeddings", body, c.timeout(opts))
	if err != nil {
		return nil, models.TokenUsage{}, err
	}

	var resp compatEmbedResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, models.TokenUsage{}, &Error{Provider: c.name, Kind: ErrServerError, Message: "undecodable response body: " + err.Error()}
	}
	if len(resp.Data) == 0 {
		return nil, models.TokenUsage{}, &Error{Provider: c.name, Kind: ErrServerError, Message: "empty embedding response"}
	}
	return resp.Data[0].Embedding, models.TokenUsage{Input: resp.Usage.PromptTokens}, nil
}

// healthCheck issues a cheap GET against the models listing endpoint.
func (c *compatClient) healthCheck(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return &Error{Provider: c.name, Kind: ErrClientError, Message: err.Error()}
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyTransport(c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return classifyStatus(c.name, resp.StatusCode, string(b), resp.Header)
	}
	return nil
}

// post sends the request with the attempt deadline applied and returns
// the raw body of a 200 response, or a classified error.
func (c *compatClient) post(ctx context.Context, path string, body []byte, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Provider: c.name, Kind: ErrClientError, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransport(c.name, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(c.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(c.name, resp.StatusCode, string(respBody), resp.Header)
	}
	return respBody, nil
}

func (c *compatClient) timeout(opts models.RequestOptions) time.Duration {
	if opts.Timeout > 0 {
		return opts.Timeout
	}
	if c.cfg.Timeout > 0 {
		return c.cfg.Timeout
	}
	return 60 * time.Second
}
