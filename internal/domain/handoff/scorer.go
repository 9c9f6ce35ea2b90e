package handoff

import (
	"fmt"
	"math"
	"strings"

	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/agent"
)

// Confidence weights.
const (
	complementaryCategoryBonus = 30.0
	capabilityWeight           = 0.4
	preferredBonus             = 20.0
	avoidedPenalty             = -30.0
	tierCompatibleBonus        = 10.0
	tierIncompatiblePenalty    = -50.0
	successRateWeight          = 0.1

	// DefaultSuccessRate is used when no historical rate is known for an agent.
	DefaultSuccessRate = 80.0
)

// SuccessRates maps agent id to historical success percentage (0-100).
type SuccessRates map[string]float64

// For returns the rate for agentID and whether it was known.
func (r SuccessRates) For(agentID string, fallback float64) (float64, bool) {
	if v, ok := r[agentID]; ok {
		return v, true
	}
	return fallback, false
}

// Score is the confidence of one candidate with its human-readable trace.
type Score struct {
	Confidence int
	Reasoning  string
}

// Scorer combines the weighted signals into a bounded confidence.
type Scorer struct {
	matcher            CapabilityMatcher
	defaultSuccessRate float64
}

// NewScorer creates a Scorer. A nil matcher selects KeywordMatcher and a
// non-positive default rate selects DefaultSuccessRate.
func NewScorer(matcher CapabilityMatcher, defaultSuccessRate float64) *Scorer {
	if matcher == nil {
		matcher = KeywordMatcher{}
	}
	if defaultSuccessRate <= 0 {
		defaultSuccessRate = DefaultSuccessRate
	}
	return &Scorer{matcher: matcher, defaultSuccessRate: defaultSuccessRate}
}

// Score rates how well candidate fits the work described by hc after source.
// It fails with agent.ErrInvalidTier when either tier cannot be ranked.
func (s *Scorer) Score(hc *Context, source, candidate *agent.Agent, rates SuccessRates) (Score, error) {
	eligible, err := agent.AtLeast(hc.Session.UserTier, candidate.RequiredTier)
	if err != nil {
		return Score{}, fmt.Errorf("score %s: %w", candidate.ID, err)
	}

	var (
		total   float64
		reasons []string
	)

	if !source.SameCategory(candidate) {
		total += complementaryCategoryBonus
		reasons = append(reasons, fmt.Sprintf("complementary %s expertise after %s", candidate.Category, source.Category))
	}

	if match := s.matcher.Match(hc.UserIntent, candidate); match > 0 {
		total += float64(match) * capabilityWeight
		reasons = append(reasons, fmt.Sprintf("capability match %d/100 for the request", match))
	}

	if hc.Preferences.Prefers(candidate.ID) {
		total += preferredBonus
		reasons = append(reasons, "preferred by user")
	}
	if hc.Preferences.Avoids(candidate.ID) {
		total += avoidedPenalty
		reasons = append(reasons, "avoided by user")
	}

	if eligible {
		total += tierCompatibleBonus
		reasons = append(reasons, fmt.Sprintf("available on %s tier", hc.Session.UserTier))
	} else {
		total += tierIncompatiblePenalty
		reasons = append(reasons, fmt.Sprintf("requires %s tier (user has %s)", candidate.RequiredTier, hc.Session.UserTier))
	}

	rate, known := rates.For(candidate.ID, s.defaultSuccessRate)
	total += rate * successRateWeight
	if known {
		reasons = append(reasons, fmt.Sprintf("%.0f%% historical success", rate))
	} else {
		reasons = append(reasons, fmt.Sprintf("%.0f%% default success rate", rate))
	}

	return Score{
		Confidence: clampConfidence(total),
		Reasoning:  strings.Join(reasons, "; "),
	}, nil
}

// clampConfidence rounds half away from zero and bounds the result to [0,100].
func clampConfidence(v float64) int {
	r := int(math.Round(v))
	return max(0, min(100, r))
}
