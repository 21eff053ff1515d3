// Package executor drives provider chains with resilience.
//
// One call into the executor is one request: a single budget admission,
// then chain traversal. For each provider the executor consults the
// circuit breaker, attempts the call with bounded retries (rate-limit
// retries honor the server-provided wait; other transient failures use
// capped exponential backoff with jitter), and records exactly one
// breaker outcome. Terminal failures move straight to the next provider.
//
// Backoff sleeps run on the request's own goroutine and respect the
// request context, so one request's backoff never delays another.
package executor

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/opsmind/intelplane/internal/breaker"
	"github.com/opsmind/intelplane/internal/budget"
	"github.com/opsmind/intelplane/internal/config"
	"github.com/opsmind/intelplane/internal/provider"
	"github.com/opsmind/intelplane/pkg/contracts"
	"github.com/opsmind/intelplane/pkg/models"
	"github.com/rs/zerolog/log"
)

// AnalysisPool is the shared budget pool all analysis requests draw
// from, regardless of which provider serves them.
const AnalysisPool = "analysis"

// ErrBudgetExhausted is returned before any network I/O when the
// admission pool rejects the request.
var ErrBudgetExhausted = errors.New("budget exhausted")

// ErrCircuitOpen marks a provider skipped because its circuit is open.
// It appears in per-provider attempt records, never as a chain-level
// failure on its own.
var ErrCircuitOpen = errors.New("circuit open")

// AttemptRecord is the outcome of one provider in the chain.
type AttemptRecord struct {
	Provider string `json:"provider"`
	Attempts int    `json:"attempts"`
	Err      error  `json:"-"`
	Reason   string `json:"reason"`
}

// ExhaustedError is returned when every provider in the chain failed or
// was skipped. Records preserve chain order for diagnosis.
type ExhaustedError struct {
	Records []AttemptRecord
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Records))
	for _, r := range e.Records {
		parts = append(parts, fmt.Sprintf("%s: %v", r.Provider, r.Err))
	}
	return "all providers exhausted: " + strings.Join(parts, "; ")
}

// Executor owns the per-request resilience policy. The only state it
// shares across requests is the breaker registry and the budget pools,
// both internally synchronized.
type Executor struct {
	registry *provider.Registry
	breakers *breaker.Registry
	budgets  *budget.Manager
	emitter  contracts.Emitter
	cfg      config.ExecutorConfig

	// sleep is swapped out in tests to avoid real waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates the executor.
func New(registry *provider.Registry, breakers *breaker.Registry, budgets *budget.Manager, emitter contracts.Emitter, cfg config.ExecutorConfig) *Executor {
	return &Executor{
		registry: registry,
		breakers: breakers,
		budgets:  budgets,
		emitter:  emitter,
		cfg:      cfg,
		sleep:    sleepCtx,
	}
}

// Analyze runs the episode against the chain and returns the first
// normalized result.
func (x *Executor) Analyze(ctx context.Context, episode models.Episode, opts models.RequestOptions, chain []string) (*models.AnalysisResult, error) {
	return run(x, ctx, chain, episode.Kind, episode.Priority, func(p contracts.Provider) (*models.AnalysisResult, error) {
		return p.Analyze(ctx, episode, opts)
	})
}

// Generate runs a plain generation through the same machinery.
func (x *Executor) Generate(ctx context.Context, messages []models.ChatMessage, opts models.RequestOptions, chain []string, priority models.Priority) (*models.GenerationResult, error) {
	return run(x, ctx, chain, "", priority, func(p contracts.Provider) (*models.GenerationResult, error) {
		return p.Generate(ctx, messages, opts)
	})
}

// Embed runs an embedding request through the same machinery.
func (x *Executor) Embed(ctx context.Context, text string, opts models.RequestOptions, chain []string, priority models.Priority) (*models.EmbeddingResult, error) {
	return run(x, ctx, chain, "", priority, func(p contracts.Provider) (*models.EmbeddingResult, error) {
		return p.Embed(ctx, text, opts)
	})
}

// run is the chain-traversal core shared by all request types.
func run[T any](x *Executor, ctx context.Context, chain []string, kind models.EpisodeKind, priority models.Priority, call func(contracts.Provider) (*T, error)) (*T, error) {
	// Budget is consumed exactly once per request, before any network
	// I/O, independent of retries and fallbacks.
	if !x.budgets.Pool(AnalysisPool).Admit(priority) {
		x.emitFailure(ctx, "", kind, ErrBudgetExhausted)
		return nil, fmt.Errorf("pool %q: %w", AnalysisPool, ErrBudgetExhausted)
	}

	var records []AttemptRecord

	for _, name := range chain {
		br := x.breakers.For(name)
		if !br.Allow() {
			log.Debug().Str("provider", name).Msg("provider skipped, circuit open")
			records = append(records, AttemptRecord{Provider: name, Err: ErrCircuitOpen, Reason: ErrCircuitOpen.Error()})
			continue
		}

		p, err := x.registry.Get(name)
		if err != nil {
			records = append(records, AttemptRecord{Provider: name, Err: err, Reason: err.Error()})
			continue
		}

		x.emit(ctx, models.TelemetryEvent{
			Name:        models.EventRequestStarted,
			Provider:    name,
			EpisodeKind: kind,
		})

		result, attempts, err := attempt(x, ctx, name, call, p)
		if err == nil {
			br.RecordSuccess()
			x.emitSuccess(ctx, name, kind, result)
			return result, nil
		}
		if ctx.Err() != nil {
			// The request deadline expired; nothing further to try.
			br.RecordFailure()
			x.emitFailure(ctx, name, kind, err)
			return nil, err
		}

		br.RecordFailure()
		x.emitFailure(ctx, name, kind, err)
		records = append(records, AttemptRecord{Provider: name, Attempts: attempts, Err: err, Reason: err.Error()})
	}

	exhausted := &ExhaustedError{Records: records}
	x.emitFailure(ctx, "", kind, exhausted)
	return nil, exhausted
}

// attempt runs the retry loop against one provider. It returns the
// number of attempts made alongside the final outcome.
func attempt[T any](x *Executor, ctx context.Context, name string, call func(contracts.Provider) (*T, error), p contracts.Provider) (*T, int, error) {
	attempts := 0
	rateLimitRetries := 0

	for {
		attempts++
		result, err := call(p)
		if err == nil {
			return result, attempts, nil
		}

		pe, classified := provider.AsError(err)
		if !classified {
			// Unclassified failures are treated as terminal: an adapter
			// bug should surface, not burn retries.
			return nil, attempts, err
		}

		switch {
		case pe.Kind == provider.ErrRateLimited && rateLimitRetries < x.cfg.MaxRateLimitRetries:
			rateLimitRetries++
			wait := pe.RetryAfter
			if wait <= 0 {
				wait = x.cfg.RateLimitWait
			}
			log.Debug().Str("provider", name).Dur("wait", wait).Msg("rate limited, honoring retry-after")
			if serr := x.sleep(ctx, wait); serr != nil {
				return nil, attempts, err
			}

		case pe.Transient() && pe.Kind != provider.ErrRateLimited && attempts < x.cfg.MaxRetries:
			wait := x.backoff(name, attempts)
			log.Debug().
				Str("provider", name).
				Int("attempt", attempts).
				Dur("backoff", wait).
				Str("kind", string(pe.Kind)).
				Msg("transient failure, backing off")
			if serr := x.sleep(ctx, wait); serr != nil {
				return nil, attempts, err
			}

		default:
			// Terminal, or retries exhausted: fall back to the next
			// provider in the chain.
			return nil, attempts, err
		}
	}
}

// backoff computes the exponential delay for the given attempt. Local
// backends get a longer base than hosted APIs; both are capped and
// jittered by ±20%.
func (x *Executor) backoff(name string, attempt int) time.Duration {
	base := x.cfg.BackoffBaseHosted
	if providerClass(name) == classLocal {
		base = x.cfg.BackoffBaseLocal
	}

	d := base << (attempt - 1)
	if d > x.cfg.BackoffCap || d <= 0 {
		d = x.cfg.BackoffCap
	}

	jitter := 0.8 + 0.4*rand.Float64()
	return time.Duration(float64(d) * jitter)
}

type class int

const (
	classHosted class = iota
	classLocal
)

func providerClass(name string) class {
	switch name {
	case "ollama", "mock":
		return classLocal
	default:
		return classHosted
	}
}

func (x *Executor) emit(ctx context.Context, event models.TelemetryEvent) {
	if x.emitter != nil {
		x.emitter.Emit(ctx, event)
	}
}

// emitSuccess extracts tokens and latency from whichever result type
// completed the request.
func (x *Executor) emitSuccess(ctx context.Context, name string, kind models.EpisodeKind, result interface{}) {
	event := models.TelemetryEvent{
		Name:         models.EventRequestSucceeded,
		Provider:     name,
		EpisodeKind:  kind,
		Measurements: map[string]float64{"count": 1},
	}
	switch r := result.(type) {
	case *models.AnalysisResult:
		event.Model = r.Model
		event.Measurements["tokens"] = float64(r.Tokens.Input + r.Tokens.Output)
		event.Measurements["latency_ms"] = float64(r.Usage.LatencyMs)
	case *models.GenerationResult:
		event.Model = r.Model
		event.Measurements["tokens"] = float64(r.Tokens.Input + r.Tokens.Output)
		event.Measurements["latency_ms"] = float64(r.Usage.LatencyMs)
	case *models.EmbeddingResult:
		event.Model = r.Model
		event.Measurements["tokens"] = float64(r.Tokens.Input)
		event.Measurements["latency_ms"] = float64(r.Usage.LatencyMs)
	}
	x.emit(ctx, event)
}

func (x *Executor) emitFailure(ctx context.Context, name string, kind models.EpisodeKind, err error) {
	x.emit(ctx, models.TelemetryEvent{
		Name:         models.EventRequestFailed,
		Provider:     name,
		EpisodeKind:  kind,
		Measurements: map[string]float64{"count": 1},
		Metadata:     map[string]interface{}{"reason": err.Error()},
	})
}

// sleepCtx waits for d or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
