package provider

import "github.com/opsmind/intelplane/pkg/models"

// modelRate is the USD price per one million tokens.
type modelRate struct {
	Input  float64
	Output float64
}

// Known per-model pricing. Models missing from the table cost zero,
// which is correct for local backends and conservative for unknown
// hosted models until the table is updated.
var pricing = map[string]modelRate{
	// Anthropic
	"claude-sonnet-4-20250514":  {Input: 3.0, Output: 15.0},
	"claude-opus-4-20250514":    {Input: 15.0, Output: 75.0},
	"claude-3-5-haiku-20241022": {Input: 0.80, Output: 4.0},

	// OpenAI
	"gpt-4o":                 {Input: 2.50, Output: 10.0},
	"gpt-4o-mini":            {Input: 0.15, Output: 0.60},
	"text-embedding-3-small": {Input: 0.02, Output: 0},

	// Together (open-source hosted)
	"meta-llama/Llama-3.3-70B-Instruct-Turbo": {Input: 0.88, Output: 0.88},
	"Qwen/Qwen2.5-Coder-32B-Instruct":         {Input: 0.80, Output: 0.80},
}

// cost computes the USD cost of one call from the static pricing table.
func cost(model string, tokens models.TokenUsage) float64 {
	rate, ok := pricing[model]
	if !ok {
		return 0
	}
	return float64(tokens.Input)/1e6*rate.Input + float64(tokens.Output)/1e6*rate.Output
}
