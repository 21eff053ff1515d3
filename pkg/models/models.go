// Package models defines the shared data model for the intelligence plane.
//
// Everything here is plain data: no goroutines, no locks, no I/O. Episodes
// are created by the coordination layer, passed by value into the core, and
// never mutated. AnalysisResults are produced once per completed request.
package models

import "time"

// ── Episode ─────────────────────────────────────────────────

// EpisodeKind is the task category of an episode. The routing table maps
// each kind to an ordered provider chain.
type EpisodeKind string

const (
	KindPolicyReview     EpisodeKind = "policy-review"
	KindCodeGeneration   EpisodeKind = "code-generation"
	KindAnomalyDetection EpisodeKind = "anomaly-detection"
	KindRootCause        EpisodeKind = "root-cause"
	KindPrivacyReview    EpisodeKind = "privacy-review"
)

// Priority orders episodes for budget admission. High and critical
// requests may be admitted inside the reserved budget margin.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Elevated reports whether the priority qualifies for the reserved
// budget margin.
func (p Priority) Elevated() bool {
	return p == PriorityHigh || p == PriorityCritical
}

// Episode is an immutable record describing an event or question that
// needs intelligence analysis.
type Episode struct {
	ID        string                 `json:"id"`
	Kind      EpisodeKind            `json:"kind"`
	Title     string                 `json:"title"`
	Data      string                 `json:"data"`
	Priority  Priority               `json:"priority"`
	Source    string                 `json:"source"`
	CreatedAt time.Time              `json:"created_at"`
	Context   map[string]string      `json:"context,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// ── Capabilities ────────────────────────────────────────────

// Mode is an interaction mode a provider supports.
type Mode string

const (
	ModeChat      Mode = "chat"
	ModeToolUse   Mode = "tool-use"
	ModeJSON      Mode = "json"
	ModeReasoning Mode = "reasoning"
	ModeEmbedding Mode = "embedding"
)

// Capabilities is the static descriptor of a provider, computed once at
// registration and read-only thereafter.
type Capabilities struct {
	Provider        string   `json:"provider"`
	Model           string   `json:"model"`
	Modes           []Mode   `json:"modes"`
	Strengths       []string `json:"strengths"`
	MaxOutputTokens int      `json:"max_output_tokens"`
	ContextWindow   int      `json:"context_window"`
}

// Supports reports whether the provider supports the given mode.
func (c Capabilities) Supports(m Mode) bool {
	for _, mode := range c.Modes {
		if mode == m {
			return true
		}
	}
	return false
}

// ── Results ─────────────────────────────────────────────────

// TokenUsage counts tokens consumed by one provider call.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// Usage carries the cost and latency of one provider call.
type Usage struct {
	CostUSD   float64 `json:"cost_usd"`
	LatencyMs int64   `json:"latency_ms"`
}

// SOPSuggestion is a suggested standard operating procedure produced by
// the structured analysis.
type SOPSuggestion struct {
	Title       string   `json:"title"`
	Category    string   `json:"category,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	Description string   `json:"description,omitempty"`
	Triggers    []string `json:"triggers,omitempty"`
	Actions     []string `json:"actions,omitempty"`
}

// Recommendation is a concrete action the analysis recommends.
type Recommendation struct {
	Type         string `json:"type,omitempty"`
	Action       string `json:"action"`
	Rationale    string `json:"rationale,omitempty"`
	TargetSystem string `json:"target_system,omitempty"`
}

// AnalysisResult is the canonical result shape every provider response
// is normalized into. Tokens and Usage are always populated, even when
// the structured fields degrade to a raw-text fallback.
type AnalysisResult struct {
	Provider string     `json:"provider"`
	Model    string     `json:"model"`
	Text     string     `json:"text"`
	Tokens   TokenUsage `json:"tokens"`
	Usage    Usage      `json:"usage"`

	Summary         string           `json:"summary,omitempty"`
	RootCauses      []string         `json:"root_causes,omitempty"`
	SOPSuggestions  []SOPSuggestion  `json:"sop_suggestions,omitempty"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
	RiskLevel       string           `json:"risk_level,omitempty"`
	LearningPoints  []string         `json:"learning_points,omitempty"`

	// Confidence is in [0,1]: ~0.8 for a clean structured parse,
	// ~0.55 for a raw-text fallback.
	Confidence float64 `json:"confidence"`
}

// GenerationResult is the result of a plain text generation call.
type GenerationResult struct {
	Provider string     `json:"provider"`
	Model    string     `json:"model"`
	Text     string     `json:"text"`
	Tokens   TokenUsage `json:"tokens"`
	Usage    Usage      `json:"usage"`
}

// EmbeddingResult is the result of an embedding call.
type EmbeddingResult struct {
	Provider  string     `json:"provider"`
	Model     string     `json:"model"`
	Embedding []float64  `json:"embedding"`
	Tokens    TokenUsage `json:"tokens"`
	Usage     Usage      `json:"usage"`
}

// ── Request options ─────────────────────────────────────────

// ChatMessage is a single message in a generation conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RequestOptions tune a single request. The zero value means "use the
// configured defaults".
type RequestOptions struct {
	// ForceProvider pins the request to a single provider, bypassing the
	// routing table. The router rejects unknown providers.
	ForceProvider string `json:"force_provider,omitempty"`

	// MaxTokens and Temperature override the provider's configured
	// generation parameters when non-zero.
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`

	// Timeout bounds each provider attempt. Zero means the provider's
	// configured timeout.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// ── Shared state snapshots ──────────────────────────────────

// BreakerState is the circuit state of a provider.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// BreakerStatus is a point-in-time snapshot of one provider's circuit.
type BreakerStatus struct {
	Provider            string       `json:"provider"`
	State               BreakerState `json:"state"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
	OpenedAt            time.Time    `json:"opened_at,omitzero"`
	CoolDown            string       `json:"cool_down"`
}

// BudgetStatus is a point-in-time snapshot of one admission pool.
type BudgetStatus struct {
	Pool        string  `json:"pool"`
	Limit       int     `json:"limit"`
	Consumed    int     `json:"consumed"`
	Remaining   int     `json:"remaining"`
	Utilization float64 `json:"utilization"`
	State       string  `json:"state"`
}

// ── Telemetry ───────────────────────────────────────────────

// TelemetryEvent is the outbound observability record for one request
// outcome. Delivery is fire-and-forget: emission failures never fail
// the analysis request.
type TelemetryEvent struct {
	Name         string                 `json:"event_name"`
	Provider     string                 `json:"provider"`
	Model        string                 `json:"model,omitempty"`
	EpisodeKind  EpisodeKind            `json:"episode_kind"`
	Measurements map[string]float64     `json:"measurements,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// Telemetry event names.
const (
	EventRequestStarted   = "request-started"
	EventRequestSucceeded = "request-succeeded"
	EventRequestFailed    = "request-failed"
)
