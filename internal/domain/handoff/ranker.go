package handoff

import (
	"errors"
	"fmt"
	"sort"

	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/agent"
)

// Ranking defaults.
const (
	DefaultThreshold          = 30
	DefaultMaxRecommendations = 8
	DefaultMaxAlternatives    = 3
)

// RankerConfig bounds the recommendation list.
type RankerConfig struct {
	Threshold          int
	MaxRecommendations int
	MaxAlternatives    int
}

func (c RankerConfig) withDefaults() RankerConfig {
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.MaxRecommendations <= 0 {
		c.MaxRecommendations = DefaultMaxRecommendations
	}
	if c.MaxAlternatives < 0 {
		c.MaxAlternatives = 0
	} else if c.MaxAlternatives == 0 {
		c.MaxAlternatives = DefaultMaxAlternatives
	}
	return c
}

// Ranking is the ordered outcome of one analysis.
type Ranking struct {
	// Recommendations are sorted by confidence desc, then agent id asc.
	Recommendations []Recommendation
	// Exclusions lists candidates that could not be scored.
	Exclusions []Exclusion
	// Target is the explicitly requested agent when it survived ranking. It
	// never changes the order of Recommendations.
	Target *Recommendation

	maxAlternatives int
}

// Best returns the top recommendation, or nil when the ranking is empty.
func (r *Ranking) Best() *Recommendation {
	if len(r.Recommendations) == 0 {
		return nil
	}
	best := r.Recommendations[0]
	return &best
}

// Alternatives returns up to MaxAlternatives entries following the best one.
func (r *Ranking) Alternatives() []Recommendation {
	if len(r.Recommendations) <= 1 {
		return nil
	}
	end := min(len(r.Recommendations), 1+r.maxAlternatives)
	return append([]Recommendation(nil), r.Recommendations[1:end]...)
}

// AgentIDs returns the ids of all ranked recommendations.
func (r *Ranking) AgentIDs() []string {
	ids := make([]string, len(r.Recommendations))
	for i := range r.Recommendations {
		ids[i] = r.Recommendations[i].AgentID
	}
	return ids
}

// Ranker scores every eligible candidate and keeps the strongest ones.
type Ranker struct {
	scorer *Scorer
	cfg    RankerConfig
}

// NewRanker creates a Ranker. Zero config values select the defaults.
func NewRanker(scorer *Scorer, cfg RankerConfig) *Ranker {
	if scorer == nil {
		scorer = NewScorer(nil, 0)
	}
	return &Ranker{scorer: scorer, cfg: cfg.withDefaults()}
}

// Rank excludes the source agent and every previously visited agent, scores
// the rest and returns those at or above the threshold. The returned Ranking
// is never nil, so exclusions can be reported even when Rank fails with
// ErrNoCandidate.
func (r *Ranker) Rank(hc *Context, source *agent.Agent, candidates []agent.Agent, rates SuccessRates) (*Ranking, error) {
	ranking := &Ranking{maxAlternatives: r.cfg.MaxAlternatives}
	style := hc.workflowStyle()

	for i := range candidates {
		c := &candidates[i]
		if c.ID == source.ID || hc.Session.Visited(c.ID) {
			continue
		}

		score, err := r.scorer.Score(hc, source, c, rates)
		if err != nil {
			if errors.Is(err, agent.ErrInvalidTier) {
				ranking.Exclusions = append(ranking.Exclusions, Exclusion{AgentID: c.ID, Reason: err.Error()})
				continue
			}
			return ranking, err
		}
		if score.Confidence < r.cfg.Threshold {
			continue
		}

		profile := ProfileFor(c.ID)
		ranking.Recommendations = append(ranking.Recommendations, Recommendation{
			AgentID:           c.ID,
			AgentName:         c.Name,
			SuperheroName:     c.DisplayName(),
			Confidence:        score.Confidence,
			Reasoning:         score.Reasoning,
			EstimatedDuration: EstimatedDuration(c.Category),
			RequiredTier:      c.RequiredTier,
			HandoffType:       DetermineHandoffType(style, c),
			Prerequisites:     profile.Prerequisites,
			ExpectedOutputs:   profile.ExpectedOutputs,
		})
	}

	if len(ranking.Recommendations) == 0 {
		return ranking, fmt.Errorf("%w: none of %d candidates reached %d", ErrNoCandidate, len(candidates), r.cfg.Threshold)
	}

	sort.SliceStable(ranking.Recommendations, func(i, j int) bool {
		a, b := ranking.Recommendations[i], ranking.Recommendations[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.AgentID < b.AgentID
	})
	if len(ranking.Recommendations) > r.cfg.MaxRecommendations {
		ranking.Recommendations = ranking.Recommendations[:r.cfg.MaxRecommendations]
	}

	ranking.Target = ranking.find(hc.TargetAgentID)
	return ranking, nil
}

// find returns a copy of the recommendation for agentID, or nil.
func (r *Ranking) find(agentID string) *Recommendation {
	if agentID == "" {
		return nil
	}
	for i := range r.Recommendations {
		if r.Recommendations[i].AgentID == agentID {
			rec := r.Recommendations[i]
			return &rec
		}
	}
	return nil
}
