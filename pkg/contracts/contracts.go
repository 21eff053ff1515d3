// Package contracts defines the service interfaces of the intelligence plane.
//
// The coordination layer that produces episodes talks to exactly one
// interface, AnalysisService. Backend integrations implement Provider.
// Swapping a concrete implementation (for tests, or for a managed
// deployment) is a single line change in the wiring code (main.go).
package contracts

import (
	"context"

	"github.com/opsmind/intelplane/pkg/models"
)

// ── Analysis Service ────────────────────────────────────────

// AnalysisService is the sole inbound entry point of the core. The
// surrounding coordination layer produces Episodes from upstream
// operational signals and consumes the AnalysisResult.
type AnalysisService interface {
	// Analyze routes the episode to a provider chain and returns the
	// normalized result of the first provider that completes.
	Analyze(ctx context.Context, episode models.Episode, opts models.RequestOptions) (*models.AnalysisResult, error)

	// Generate runs a plain text generation through the same routing and
	// resilience machinery.
	Generate(ctx context.Context, messages []models.ChatMessage, opts models.RequestOptions) (*models.GenerationResult, error)

	// Embed produces a vector embedding for the given text.
	Embed(ctx context.Context, text string, opts models.RequestOptions) (*models.EmbeddingResult, error)
}

// ── Provider ────────────────────────────────────────────────

// Provider is the uniform contract every backend adapter implements.
//
// Adapters must not mutate the episode, must classify failures into the
// provider error taxonomy, and must compute cost from their static
// pricing table. HealthCheck is a cheap liveness probe and is never
// charged against any budget.
type Provider interface {
	// Name returns the provider identifier used in routing chains
	// (e.g. "anthropic", "ollama").
	Name() string

	// Capabilities returns the static descriptor. Pure, no I/O.
	Capabilities() models.Capabilities

	// Analyze performs one network call asking the backend for the
	// structured analysis of the episode.
	Analyze(ctx context.Context, episode models.Episode, opts models.RequestOptions) (*models.AnalysisResult, error)

	// Generate performs one chat completion call.
	Generate(ctx context.Context, messages []models.ChatMessage, opts models.RequestOptions) (*models.GenerationResult, error)

	// Embed produces an embedding, or fails with UnsupportedCapability
	// if the backend has no embedding support.
	Embed(ctx context.Context, text string, opts models.RequestOptions) (*models.EmbeddingResult, error)

	// HealthCheck verifies the backend is reachable.
	HealthCheck(ctx context.Context) error
}

// ── Telemetry Emitter ───────────────────────────────────────

// Emitter pushes request lifecycle events to the external observability
// collaborator. Implementations must be fire-and-forget: an emitter
// failure never fails the request being observed.
type Emitter interface {
	Emit(ctx context.Context, event models.TelemetryEvent)
}
