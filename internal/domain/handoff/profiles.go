package handoff

import (
	"strings"

	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/agent"
)

const defaultDurationMinutes = 10

// categoryDurations holds the typical run time in minutes per agent category.
var categoryDurations = map[string]int{
	"content":      15,
	"seo":          12,
	"social media": 10,
	"branding":     20,
	"analytics":    12,
	"strategy":     25,
	"payments":     5,
	"advertising":  15,
	"web design":   30,
	"video":        30,
	"publishing":   20,
	"sales":        15,
}

// conditionalCategories run only once upstream results justify them.
var conditionalCategories = map[string]bool{
	"analytics": true,
	"strategy":  true,
}

// Profile lists what an agent needs before it starts and what it hands back.
type Profile struct {
	Prerequisites   []string
	ExpectedOutputs []string
}

var agentProfiles = map[string]Profile{
	"content-creator": {
		Prerequisites:   []string{"topic or brief", "target audience"},
		ExpectedOutputs: []string{"draft article", "headline variants"},
	},
	"seo-specialist": {
		Prerequisites:   []string{"published or draft content", "target keywords"},
		ExpectedOutputs: []string{"keyword map", "on-page recommendations", "meta descriptions"},
	},
	"social-media-manager": {
		Prerequisites:   []string{"content to promote", "active social accounts"},
		ExpectedOutputs: []string{"post calendar", "platform-specific captions"},
	},
	"branding-agent": {
		Prerequisites:   []string{"business description", "audience profile"},
		ExpectedOutputs: []string{"brand guide", "logo concepts", "voice and tone notes"},
	},
	"analytics-agent": {
		Prerequisites:   []string{"connected data sources"},
		ExpectedOutputs: []string{"performance report", "trend insights"},
	},
	"biz-strategy": {
		Prerequisites:   []string{"business goals", "current metrics"},
		ExpectedOutputs: []string{"growth plan", "prioritised initiatives"},
	},
	"payments-manager": {
		Prerequisites:   []string{"product catalog", "payment provider account"},
		ExpectedOutputs: []string{"checkout links", "pricing table"},
	},
	"ad-creative": {
		Prerequisites:   []string{"campaign brief", "brand assets"},
		ExpectedOutputs: []string{"ad copy set", "creative variants"},
	},
	"sitegen": {
		Prerequisites:   []string{"brand guide", "site content"},
		ExpectedOutputs: []string{"landing page", "site map"},
	},
	"video-content": {
		Prerequisites:   []string{"script or storyboard"},
		ExpectedOutputs: []string{"video script", "shot list"},
	},
	"publishing": {
		Prerequisites:   []string{"manuscript"},
		ExpectedOutputs: []string{"formatted book", "distribution checklist"},
	},
	"proposal-generator": {
		Prerequisites:   []string{"client requirements", "pricing"},
		ExpectedOutputs: []string{"proposal document"},
	},
}

// EstimatedDuration returns the expected minutes for an agent of category.
func EstimatedDuration(category string) int {
	if d, ok := categoryDurations[strings.ToLower(strings.TrimSpace(category))]; ok {
		return d
	}
	return defaultDurationMinutes
}

// DetermineHandoffType derives how the target runs. An explicit "fast" style
// wins; otherwise analytic categories are conditional and the rest sequential.
func DetermineHandoffType(style WorkflowStyle, a *agent.Agent) HandoffType {
	if style == StyleFast {
		return TypeParallel
	}
	if conditionalCategories[strings.ToLower(strings.TrimSpace(a.Category))] {
		return TypeConditional
	}
	return TypeSequential
}

// ProfileFor returns the static profile of agentID. Unknown agents get empty
// (non-nil) lists.
func ProfileFor(agentID string) Profile {
	p, ok := agentProfiles[agentID]
	if !ok {
		return Profile{Prerequisites: []string{}, ExpectedOutputs: []string{}}
	}
	return Profile{
		Prerequisites:   append([]string(nil), p.Prerequisites...),
		ExpectedOutputs: append([]string(nil), p.ExpectedOutputs...),
	}
}
