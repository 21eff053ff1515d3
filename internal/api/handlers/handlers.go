// Package handlers implements the HTTP handlers of the intelligence
// plane. The analyze/generate/embed handlers are thin adapters over the
// AnalysisService; the status handlers expose budget and breaker
// snapshots for operators.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/opsmind/intelplane/internal/breaker"
	"github.com/opsmind/intelplane/internal/budget"
	"github.com/opsmind/intelplane/internal/executor"
	"github.com/opsmind/intelplane/internal/provider"
	"github.com/opsmind/intelplane/internal/router"
	"github.com/opsmind/intelplane/pkg/contracts"
	"github.com/opsmind/intelplane/pkg/models"
	"github.com/rs/zerolog/log"
)

// Handlers holds all handler dependencies.
type Handlers struct {
	Service  contracts.AnalysisService
	Registry *provider.Registry
	Budgets  *budget.Manager
	Breakers *breaker.Registry
}

// New creates a Handlers instance.
func New(svc contracts.AnalysisService, reg *provider.Registry, budgets *budget.Manager, breakers *breaker.Registry) *Handlers {
	return &Handlers{Service: svc, Registry: reg, Budgets: budgets, Breakers: breakers}
}

// ── Analysis ────────────────────────────────────────────────

type analyzeRequest struct {
	Episode models.Episode        `json:"episode"`
	Options models.RequestOptions `json:"options"`
}

func (h *Handlers) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Episode.Data == "" && req.Episode.Title == "" {
		respondError(w, http.StatusBadRequest, "episode is empty")
		return
	}

	result, err := h.Service.Analyze(r.Context(), req.Episode, req.Options)
	if err != nil {
		respondAnalysisError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type generateRequest struct {
	Messages []models.ChatMessage  `json:"messages"`
	Options  models.RequestOptions `json:"options"`
}

func (h *Handlers) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		respondError(w, http.StatusBadRequest, "messages are required")
		return
	}

	result, err := h.Service.Generate(r.Context(), req.Messages, req.Options)
	if err != nil {
		respondAnalysisError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type embedRequest struct {
	Text    string                `json:"text"`
	Options models.RequestOptions `json:"options"`
}

func (h *Handlers) Embed(w http.ResponseWriter, r *http.Request) {
	var req embedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	result, err := h.Service.Embed(r.Context(), req.Text, req.Options)
	if err != nil {
		respondAnalysisError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ── Providers ───────────────────────────────────────────────

func (h *Handlers) ListProviders(w http.ResponseWriter, r *http.Request) {
	caps := make([]models.Capabilities, 0)
	for _, name := range h.Registry.Names() {
		p, err := h.Registry.Get(name)
		if err != nil {
			continue
		}
		caps = append(caps, p.Capabilities())
	}
	respondJSON(w, http.StatusOK, caps)
}

func (h *Handlers) ProviderHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Registry.HealthCheck(r.Context()))
}

// ── Budgets & breakers ──────────────────────────────────────

func (h *Handlers) ListBudgets(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Budgets.Statuses())
}

func (h *Handlers) GetBudget(w http.ResponseWriter, r *http.Request) {
	pool := chi.URLParam(r, "pool")
	respondJSON(w, http.StatusOK, h.Budgets.Pool(pool).Status())
}

func (h *Handlers) ResetBudget(w http.ResponseWriter, r *http.Request) {
	pool := chi.URLParam(r, "pool")
	h.Budgets.Pool(pool).Reset()
	log.Info().Str("pool", pool).Msg("budget reset by operator")
	respondJSON(w, http.StatusOK, h.Budgets.Pool(pool).Status())
}

func (h *Handlers) ListBreakers(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Breakers.Statuses())
}

// ── Helpers ─────────────────────────────────────────────────

// respondAnalysisError maps core failures onto HTTP status codes. The
// exhausted error keeps its per-provider records in the response body
// so callers can diagnose the chain.
func respondAnalysisError(w http.ResponseWriter, err error) {
	var unknown *router.UnknownProviderError
	var exhausted *executor.ExhaustedError

	switch {
	case errors.As(err, &unknown):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, executor.ErrBudgetExhausted):
		respondError(w, http.StatusTooManyRequests, err.Error())
	case errors.As(err, &exhausted):
		respondJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":    "all providers exhausted",
			"attempts": exhausted.Records,
		})
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
