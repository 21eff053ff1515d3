package router

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/opsmind/intelplane/internal/config"
	"github.com/opsmind/intelplane/internal/provider"
	"github.com/opsmind/intelplane/pkg/models"
)

// stubProvider is the minimal registry entry for routing tests.
type stubProvider struct{ name string }

func (s *stubProvider) Name() string { return s.name }
func (s *stubProvider) Capabilities() models.Capabilities {
	return models.Capabilities{Provider: s.name}
}
func (s *stubProvider) Analyze(ctx context.Context, episode models.Episode, opts models.RequestOptions) (*models.AnalysisResult, error) {
	return nil, errors.New("not implemented")
}
func (s *stubProvider) Generate(ctx context.Context, messages []models.ChatMessage, opts models.RequestOptions) (*models.GenerationResult, error) {
	return nil, errors.New("not implemented")
}
func (s *stubProvider) Embed(ctx context.Context, text string, opts models.RequestOptions) (*models.EmbeddingResult, error) {
	return nil, errors.New("not implemented")
}
func (s *stubProvider) HealthCheck(ctx context.Context) error { return nil }

func testRegistry(names ...string) *provider.Registry {
	r := provider.NewRegistry()
	for _, name := range names {
		r.Register(&stubProvider{name: name})
	}
	return r
}

func TestSelectChainByKind(t *testing.T) {
	r := New(testRegistry("anthropic", "openai", "together", "ollama"), config.RoutingConfig{})

	tests := []struct {
		kind    models.EpisodeKind
		primary string
	}{
		{models.KindPolicyReview, "anthropic"},
		{models.KindCodeGeneration, "openai"},
		{models.KindAnomalyDetection, "openai"},
		{models.KindRootCause, "anthropic"},
		{models.KindPrivacyReview, "ollama"},
		{"unmapped-kind", "anthropic"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			chain, err := r.SelectChain(models.Episode{Kind: tt.kind}, models.RequestOptions{})
			if err != nil {
				t.Fatalf("SelectChain: %v", err)
			}
			if len(chain) == 0 {
				t.Fatal("chain is empty")
			}
			if chain[0] != tt.primary {
				t.Errorf("primary = %q, want %q", chain[0], tt.primary)
			}
		})
	}
}

func TestSelectChainIdempotent(t *testing.T) {
	r := New(testRegistry("anthropic", "openai", "ollama"), config.RoutingConfig{})
	episode := models.Episode{Kind: models.KindRootCause}

	first, err := r.SelectChain(episode, models.RequestOptions{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.SelectChain(episode, models.RequestOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("chains differ: %v vs %v", first, second)
	}
}

func TestSelectChainSkipsUnregistered(t *testing.T) {
	// No openai or together credentials: code-generation falls through to
	// the registered tail of its chain.
	r := New(testRegistry("anthropic", "ollama"), config.RoutingConfig{})

	chain, err := r.SelectChain(models.Episode{Kind: models.KindCodeGeneration}, models.RequestOptions{})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"anthropic"}
	if !reflect.DeepEqual(chain, want) {
		t.Errorf("chain = %v, want %v", chain, want)
	}
}

func TestSelectChainFallsBackToDefault(t *testing.T) {
	// Privacy-review maps to [ollama anthropic]; with neither registered
	// the default chain's survivors are used.
	r := New(testRegistry("openai"), config.RoutingConfig{})

	chain, err := r.SelectChain(models.Episode{Kind: models.KindPrivacyReview}, models.RequestOptions{})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"openai"}
	if !reflect.DeepEqual(chain, want) {
		t.Errorf("chain = %v, want %v", chain, want)
	}
}

func TestSelectChainForceProvider(t *testing.T) {
	r := New(testRegistry("anthropic", "ollama"), config.RoutingConfig{})

	chain, err := r.SelectChain(models.Episode{Kind: models.KindRootCause}, models.RequestOptions{ForceProvider: "ollama"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(chain, []string{"ollama"}) {
		t.Errorf("chain = %v, want forced provider only", chain)
	}
}

func TestSelectChainForceUnknownProvider(t *testing.T) {
	r := New(testRegistry("anthropic"), config.RoutingConfig{})

	_, err := r.SelectChain(models.Episode{}, models.RequestOptions{ForceProvider: "bedrock"})
	var unknown *UnknownProviderError
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v, want UnknownProviderError", err)
	}
	if unknown.Name != "bedrock" {
		t.Errorf("unknown.Name = %q", unknown.Name)
	}
}

func TestConfigOverridesChain(t *testing.T) {
	cfg := config.RoutingConfig{
		Chains:  map[string][]string{"policy-review": {"ollama"}},
		Default: []string{"ollama", "anthropic"},
	}
	r := New(testRegistry("anthropic", "ollama"), cfg)

	chain, err := r.SelectChain(models.Episode{Kind: models.KindPolicyReview}, models.RequestOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(chain, []string{"ollama"}) {
		t.Errorf("override not applied: %v", chain)
	}

	chain, err = r.SelectChain(models.Episode{Kind: "other"}, models.RequestOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(chain, []string{"ollama", "anthropic"}) {
		t.Errorf("default override not applied: %v", chain)
	}
}
