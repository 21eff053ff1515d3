package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opsmind/intelplane/internal/breaker"
	"github.com/opsmind/intelplane/internal/budget"
	"github.com/opsmind/intelplane/internal/config"
	"github.com/opsmind/intelplane/internal/executor"
	"github.com/opsmind/intelplane/internal/provider"
	"github.com/opsmind/intelplane/internal/router"
	"github.com/opsmind/intelplane/pkg/models"
)

// capturingProvider records the episode it was asked to analyze.
type capturingProvider struct {
	name string
	last models.Episode
}

func (c *capturingProvider) Name() string { return c.name }
func (c *capturingProvider) Capabilities() models.Capabilities {
	return models.Capabilities{Provider: c.name}
}
func (c *capturingProvider) Analyze(ctx context.Context, episode models.Episode, opts models.RequestOptions) (*models.AnalysisResult, error) {
	c.last = episode
	return &models.AnalysisResult{Provider: c.name, Text: "ok"}, nil
}
func (c *capturingProvider) Generate(ctx context.Context, messages []models.ChatMessage, opts models.RequestOptions) (*models.GenerationResult, error) {
	return &models.GenerationResult{Provider: c.name, Text: "ok"}, nil
}
func (c *capturingProvider) Embed(ctx context.Context, text string, opts models.RequestOptions) (*models.EmbeddingResult, error) {
	return &models.EmbeddingResult{Provider: c.name, Embedding: []float64{1}}, nil
}
func (c *capturingProvider) HealthCheck(ctx context.Context) error { return nil }

func newTestService(t *testing.T, providers ...*capturingProvider) (*Service, *capturingProvider) {
	t.Helper()

	registry := provider.NewRegistry()
	for _, p := range providers {
		registry.Register(p)
	}

	breakers := breaker.NewRegistry(config.BreakerConfig{FailureThreshold: 5, CoolDown: time.Second, CoolDownCap: time.Minute})
	budgets := budget.NewManager(config.BudgetConfig{Limit: 100, Window: time.Hour})
	exec := executor.New(registry, breakers, budgets, nil, config.ExecutorConfig{
		MaxRetries:          3,
		MaxRateLimitRetries: 2,
		RateLimitWait:       time.Second,
		BackoffBaseHosted:   time.Millisecond,
		BackoffBaseLocal:    time.Millisecond,
		BackoffCap:          time.Millisecond,
	})

	svc := New(router.New(registry, config.RoutingConfig{}), exec)
	var first *capturingProvider
	if len(providers) > 0 {
		first = providers[0]
	}
	return svc, first
}

func TestAnalyzeFillsDefaults(t *testing.T) {
	svc, p := newTestService(t, &capturingProvider{name: "anthropic"})

	_, err := svc.Analyze(context.Background(), models.Episode{Kind: models.KindRootCause, Data: "logs"}, models.RequestOptions{})
	if err != nil {
		t.Fatal(err)
	}

	if p.last.ID == "" {
		t.Error("episode ID must be generated when absent")
	}
	if p.last.Priority != models.PriorityMedium {
		t.Errorf("priority = %q, want medium default", p.last.Priority)
	}
	if p.last.CreatedAt.IsZero() {
		t.Error("CreatedAt must be stamped")
	}
}

func TestAnalyzePreservesCallerFields(t *testing.T) {
	svc, p := newTestService(t, &capturingProvider{name: "anthropic"})

	created := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	episode := models.Episode{
		ID:        "caller-id",
		Kind:      models.KindPolicyReview,
		Priority:  models.PriorityCritical,
		CreatedAt: created,
		Data:      "policy diff",
	}
	if _, err := svc.Analyze(context.Background(), episode, models.RequestOptions{}); err != nil {
		t.Fatal(err)
	}

	if p.last.ID != "caller-id" || p.last.Priority != models.PriorityCritical || !p.last.CreatedAt.Equal(created) {
		t.Errorf("caller fields overwritten: %+v", p.last)
	}
}

func TestAnalyzeUnknownForcedProvider(t *testing.T) {
	svc, _ := newTestService(t, &capturingProvider{name: "anthropic"})

	_, err := svc.Analyze(context.Background(), models.Episode{Data: "x"}, models.RequestOptions{ForceProvider: "nope"})
	var unknown *router.UnknownProviderError
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v, want UnknownProviderError", err)
	}
}

func TestGenerateAndEmbedUseDefaultChain(t *testing.T) {
	svc, _ := newTestService(t, &capturingProvider{name: "ollama"})

	gen, err := svc.Generate(context.Background(), []models.ChatMessage{{Role: "user", Content: "hi"}}, models.RequestOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if gen.Provider != "ollama" {
		t.Errorf("provider = %q", gen.Provider)
	}

	emb, err := svc.Embed(context.Background(), "hello", models.RequestOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(emb.Embedding) == 0 {
		t.Error("embedding empty")
	}
}
