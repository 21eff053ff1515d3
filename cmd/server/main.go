// Intelplane — the intelligence-routing layer of the operations platform.
//
// This is the main entry point for the intelplane server. It provides:
//   - Provider registry (Anthropic, OpenAI, Together, Ollama, mock)
//   - Per-episode-kind routing with operator overrides
//   - Resilient execution (retries, circuit breakers, budget admission)
//   - Response normalization into operator-ready recommendations
//   - HTTP API for analysis, generation and embedding requests

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opsmind/intelplane/internal/api"
	"github.com/opsmind/intelplane/internal/api/handlers"
	"github.com/opsmind/intelplane/internal/breaker"
	"github.com/opsmind/intelplane/internal/budget"
	"github.com/opsmind/intelplane/internal/config"
	"github.com/opsmind/intelplane/internal/executor"
	"github.com/opsmind/intelplane/internal/provider"
	"github.com/opsmind/intelplane/internal/router"
	"github.com/opsmind/intelplane/internal/service"
	"github.com/opsmind/intelplane/internal/telemetry"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	log.Info().Msg("intelplane starting...")

	cfg, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()
	shutdownTelemetry, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize telemetry")
	}
	defer shutdownTelemetry(ctx)

	registry := buildRegistry(cfg)
	breakers := breaker.NewRegistry(cfg.Breaker)
	budgets := budget.NewManager(cfg.Budget)
	emitter := telemetry.NewEmitter()

	exec := executor.New(registry, breakers, budgets, emitter, cfg.Executor)
	svc := service.New(router.New(registry, cfg.Routing), exec)
	h := handlers.New(svc, registry, budgets, breakers)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.NewRouter(cfg, h),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info().
		Int("port", cfg.Port).
		Strs("providers", registry.Names()).
		Msg("intelplane ready")

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// buildRegistry constructs the adapters for every enabled provider. The
// mock provider is always registered so the plane stays usable without
// credentials.
func buildRegistry(cfg *config.Config) *provider.Registry {
	registry := provider.NewRegistry()

	for name, pc := range cfg.Providers {
		if !pc.Enabled {
			log.Debug().Str("provider", name).Msg("provider disabled")
			continue
		}
		switch name {
		case "anthropic":
			registry.Register(provider.NewAnthropic(pc))
		case "openai":
			registry.Register(provider.NewOpenAI(pc))
		case "together":
			registry.Register(provider.NewTogether(pc))
		case "ollama":
			registry.Register(provider.NewOllama(pc))
		default:
			log.Warn().Str("provider", name).Msg("unknown provider in config, skipping")
		}
	}

	registry.Register(provider.NewMock())
	return registry
}
