// Package normalize converts heterogeneous provider output into the
// canonical AnalysisResult shape.
//
// Providers are asked to answer with a structured JSON document
// (summary, root causes, SOP suggestions, recommendations, risk level,
// learning points). Models do not always comply: the payload may be
// wrapped in markdown fences, prefixed with prose, or not JSON at all.
// A clean structured parse yields high confidence; anything else
// degrades to a raw-text fallback rather than failing the request.
package normalize

import (
	"encoding/json"
	"strings"

	"github.com/opsmind/intelplane/pkg/models"
)

// Confidence levels assigned by the normalizer.
const (
	StructuredConfidence = 0.80
	FallbackConfidence   = 0.55
)

// payload is the structured document providers are instructed to return.
type payload struct {
	Summary         string                  `json:"summary"`
	RootCauses      []string                `json:"root_causes"`
	SOPSuggestions  []models.SOPSuggestion  `json:"sop_suggestions"`
	Recommendations []models.Recommendation `json:"recommendations"`
	RiskLevel       string                  `json:"risk_level"`
	LearningPoints  []string                `json:"learning_points"`
}

// Analysis shapes one provider response into an AnalysisResult. Tokens,
// cost and latency are always carried over regardless of parse outcome.
func Analysis(provider, model, raw string, tokens models.TokenUsage, usage models.Usage) *models.AnalysisResult {
	result := &models.AnalysisResult{
		Provider: provider,
		Model:    model,
		Text:     raw,
		Tokens:   tokens,
		Usage:    usage,
	}

	var p payload
	if body, ok := extractJSON(raw); ok && json.Unmarshal([]byte(body), &p) == nil && p.Summary != "" {
		result.Summary = p.Summary
		result.RootCauses = p.RootCauses
		result.SOPSuggestions = p.SOPSuggestions
		result.Recommendations = p.Recommendations
		result.RiskLevel = p.RiskLevel
		result.LearningPoints = p.LearningPoints
		result.Confidence = StructuredConfidence
		return result
	}

	// Decode failure degrades, never fails: keep the raw text as the
	// summary and flag the episode for a human.
	result.Summary = strings.TrimSpace(raw)
	result.SOPSuggestions = []models.SOPSuggestion{{
		Title:       "Manual review required",
		Category:    "triage",
		Priority:    "medium",
		Description: "Provider returned an unstructured response; a human should review the raw analysis text.",
	}}
	result.Confidence = FallbackConfidence
	return result
}

// extractJSON pulls a JSON object out of raw text, tolerating markdown
// code fences and surrounding prose.
func extractJSON(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	// Strip a ```json ... ``` (or plain ```) fence if present.
	if idx := strings.Index(s, "```"); idx >= 0 {
		rest := s[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			s = strings.TrimSpace(rest[:end])
		}
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
