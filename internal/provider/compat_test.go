package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/opsmind/intelplane/internal/config"
	"github.com/opsmind/intelplane/pkg/models"
)

func compatConfig(baseURL string) config.ProviderConfig {
	return config.ProviderConfig{
		Model:       "gpt-4o-mini",
		BaseURL:     baseURL,
		APIKey:      "test-key",
		MaxTokens:   1024,
		Temperature: 0.2,
		Timeout:     5 * time.Second,
	}
}

func chatResponse(content string, in, out int) []byte {
	b, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"content": content}},
		},
		"usage": map[string]int{"prompt_tokens": in, "completion_tokens": out},
	})
	return b
}

func TestCompatChat(t *testing.T) {
	var gotAuth string
	var gotReq compatChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write(chatResponse("analysis text", 120, 40))
	}))
	defer srv.Close()

	c := newCompatClient("openai", compatConfig(srv.URL), true)
	text, tokens, err := c.chat(context.Background(), []models.ChatMessage{{Role: "user", Content: "hi"}}, models.RequestOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if text != "analysis text" {
		t.Errorf("text = %q", text)
	}
	if tokens.Input != 120 || tokens.Output != 40 {
		t.Errorf("tokens = %+v", tokens)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotReq.Model != "gpt-4o-mini" || gotReq.MaxTokens != 1024 {
		t.Errorf("request = %+v", gotReq)
	}
}

func TestCompatChatOptionOverrides(t *testing.T) {
	var gotReq compatChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write(chatResponse("ok", 1, 1))
	}))
	defer srv.Close()

	c := newCompatClient("openai", compatConfig(srv.URL), true)
	_, _, err := c.chat(context.Background(), []models.ChatMessage{{Role: "user", Content: "hi"}}, models.RequestOptions{MaxTokens: 99, Temperature: 0.9})
	if err != nil {
		t.Fatal(err)
	}
	if gotReq.MaxTokens != 99 {
		t.Errorf("max tokens = %d, want per-request override", gotReq.MaxTokens)
	}
	if gotReq.Temperature != 0.9 {
		t.Errorf("temperature = %v", gotReq.Temperature)
	}
}

func TestCompatChatMissingKey(t *testing.T) {
	cfg := compatConfig("http://127.0.0.1:1")
	cfg.APIKey = ""

	c := newCompatClient("openai", cfg, true)
	_, _, err := c.chat(context.Background(), nil, models.RequestOptions{})

	var pe *Error
	if !errors.As(err, &pe) || pe.Kind != ErrMissingCredentials {
		t.Fatalf("err = %v, want missing_credentials before any I/O", err)
	}
}

func TestCompatChatClassifiesStatus(t *testing.T) {
	tests := []struct {
		status int
		kind   ErrorKind
	}{
		{http.StatusUnauthorized, ErrMissingCredentials},
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusInternalServerError, ErrServerError},
		{http.StatusBadRequest, ErrClientError},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tt.status == http.StatusTooManyRequests {
				w.Header().Set("Retry-After", "5")
			}
			w.WriteHeader(tt.status)
			w.Write([]byte("upstream error"))
		}))

		c := newCompatClient("openai", compatConfig(srv.URL), true)
		_, _, err := c.chat(context.Background(), nil, models.RequestOptions{})
		srv.Close()

		var pe *Error
		if !errors.As(err, &pe) {
			t.Fatalf("status %d: err = %v, want classified", tt.status, err)
		}
		if pe.Kind != tt.kind {
			t.Errorf("status %d: kind = %s, want %s", tt.status, pe.Kind, tt.kind)
		}
		if tt.status == http.StatusTooManyRequests && pe.RetryAfter != 5*time.Second {
			t.Errorf("RetryAfter = %v, want 5s", pe.RetryAfter)
		}
	}
}

func TestCompatChatTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write(chatResponse("late", 1, 1))
	}))
	defer srv.Close()

	c := newCompatClient("openai", compatConfig(srv.URL), true)
	_, _, err := c.chat(context.Background(), nil, models.RequestOptions{Timeout: 20 * time.Millisecond})

	var pe *Error
	if !errors.As(err, &pe) || pe.Kind != ErrTimeout {
		t.Fatalf("err = %v, want timeout", err)
	}
}

func TestCompatChatUndecodableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	c := newCompatClient("openai", compatConfig(srv.URL), true)
	_, _, err := c.chat(context.Background(), nil, models.RequestOptions{})

	var pe *Error
	if !errors.As(err, &pe) || pe.Kind != ErrServerError {
		t.Fatalf("err = %v, want server_error for undecodable body", err)
	}
}

func TestCompatEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data":  []map[string]interface{}{{"embedding": []float64{0.1, 0.2}}},
			"usage": map[string]int{"prompt_tokens": 7},
		})
	}))
	defer srv.Close()

	c := newCompatClient("openai", compatConfig(srv.URL), true)
	vec, tokens, err := c.embed(context.Background(), "text-embedding-3-small", "hello", models.RequestOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 2 {
		t.Errorf("vec = %v", vec)
	}
	if tokens.Input != 7 {
		t.Errorf("tokens = %+v", tokens)
	}
}

func TestTogetherEmbedUnsupported(t *testing.T) {
	p := NewTogether(compatConfig("http://127.0.0.1:1"))
	_, err := p.Embed(context.Background(), "hello", models.RequestOptions{})

	var pe *Error
	if !errors.As(err, &pe) || pe.Kind != ErrUnsupportedCapability {
		t.Fatalf("err = %v, want unsupported_capability", err)
	}
}

func TestOpenAIAnalyzeNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(chatResponse(`{"summary": "all good", "risk_level": "low"}`, 1000, 500))
	}))
	defer srv.Close()

	p := NewOpenAI(compatConfig(srv.URL))
	result, err := p.Analyze(context.Background(), models.Episode{Kind: models.KindRootCause, Data: "logs"}, models.RequestOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Summary != "all good" {
		t.Errorf("summary = %q", result.Summary)
	}
	if result.Confidence < 0.7 {
		t.Errorf("confidence = %v, want structured parse", result.Confidence)
	}
	if result.Usage.CostUSD <= 0 {
		t.Error("hosted call must carry a cost")
	}
}

func TestOllamaZeroCost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s, want the /v1 prefix", r.URL.Path)
		}
		w.Write(chatResponse("local answer", 10, 20))
	}))
	defer srv.Close()

	cfg := config.ProviderConfig{Model: "llama3.1:8b", BaseURL: srv.URL, Timeout: 5 * time.Second}
	p := NewOllama(cfg)

	result, err := p.Generate(context.Background(), []models.ChatMessage{{Role: "user", Content: "hi"}}, models.RequestOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Usage.CostUSD != 0 {
		t.Errorf("cost = %v, local backend is free", result.Usage.CostUSD)
	}
	if result.Tokens.Output != 20 {
		t.Errorf("tokens = %+v", result.Tokens)
	}
}
