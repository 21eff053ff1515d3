package provider

import (
	"fmt"
	"sort"
	"strings"

	"github.com/opsmind/intelplane/pkg/models"
)

// analysisSystemPrompt is the fixed analytical instruction sent with
// every episode. Providers are asked to answer with the structured
// document the normalizer knows how to parse.
const analysisSystemPrompt = `You are the analysis engine of an operational control platform.
Analyze the reported episode and respond with a single JSON object, no prose
before or after, with exactly these fields:

{
  "summary": "one-paragraph summary of what happened and why it matters",
  "root_causes": ["most likely root causes, ordered by likelihood"],
  "sop_suggestions": [{"title": "", "category": "", "priority": "low|medium|high", "description": "", "triggers": [], "actions": []}],
  "recommendations": [{"type": "", "action": "", "rationale": "", "target_system": ""}],
  "risk_level": "low|medium|high|critical",
  "learning_points": ["what the organization should learn from this episode"]
}`

// analysisMessages builds the conversation for one episode analysis.
func analysisMessages(episode models.Episode) []models.ChatMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "Episode %s (%s, priority %s)\n", episode.ID, episode.Kind, episode.Priority)
	fmt.Fprintf(&b, "Title: %s\n", episode.Title)
	if episode.Source != "" {
		fmt.Fprintf(&b, "Source: %s\n", episode.Source)
	}
	if len(episode.Context) > 0 {
		b.WriteString("Context:\n")
		keys := make([]string, 0, len(episode.Context))
		for k := range episode.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s: %s\n", k, episode.Context[k])
		}
	}
	b.WriteString("\nData:\n")
	b.WriteString(episode.Data)

	return []models.ChatMessage{
		{Role: "system", Content: analysisSystemPrompt},
		{Role: "user", Content: b.String()},
	}
}
