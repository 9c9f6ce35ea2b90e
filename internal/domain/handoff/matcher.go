package handoff

import (
	"strings"
	"unicode/utf8"

	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/agent"
)

// CapabilityMatcher scores free-text intent against one agent's declared
// capabilities, category and description. Implementations must be
// deterministic and return a value in [0,100].
type CapabilityMatcher interface {
	Match(intent string, a *agent.Agent) int
}

// Keyword matcher weights.
const (
	descriptionWordScore = 15
	capabilityScore      = 25
	categoryScore        = 20
	minIntentWordLen     = 4
	maxMatchScore        = 100
)

// KeywordMatcher is the substring heuristic: intent words found in the
// description, capability tags found in the intent, and the category name
// found in the intent all add to the score.
type KeywordMatcher struct{}

// Match implements CapabilityMatcher.
func (KeywordMatcher) Match(intent string, a *agent.Agent) int {
	text := strings.ToLower(intent)
	description := strings.ToLower(a.Description)
	score := 0

	// Repeated words count once per occurrence.
	for _, word := range strings.Fields(text) {
		if utf8.RuneCountInString(word) >= minIntentWordLen && strings.Contains(description, word) {
			score += descriptionWordScore
		}
	}

	for _, capability := range a.Capabilities {
		c := strings.ToLower(strings.TrimSpace(capability))
		if c != "" && strings.Contains(text, c) {
			score += capabilityScore
		}
	}

	if category := strings.ToLower(strings.TrimSpace(a.Category)); category != "" && strings.Contains(text, category) {
		score += categoryScore
	}

	return min(score, maxMatchScore)
}
