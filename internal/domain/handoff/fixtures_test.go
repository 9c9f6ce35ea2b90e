package handoff

import "github.com/SKRBLAI/skrblai-live-sub001/internal/domain/agent"

func testAgents() []agent.Agent {
	return []agent.Agent{
		{
			ID: "content-creator", Name: "Content Creator", SuperheroName: "ContentCarltig",
			Category: "Content", Description: "Writes blog articles and long-form copy",
			Capabilities: []string{"blog", "copywriting"}, RequiredTier: agent.TierGateway,
		},
		{
			ID: "seo-specialist", Name: "SEO Specialist", SuperheroName: "SEO Sage",
			Category: "SEO", Description: "Optimises content for search ranking and keyword research",
			Capabilities: []string{"keywords", "seo"}, RequiredTier: agent.TierStarter,
		},
		{
			ID: "social-media-manager", Name: "Social Media Manager", SuperheroName: "SocialNino",
			Category: "Social Media", Description: "Schedules and promotes posts across social media channels",
			Capabilities: []string{"social media", "scheduling"}, RequiredTier: agent.TierStarter,
		},
		{
			ID: "analytics-agent", Name: "Analytics Agent", SuperheroName: "The Don of Data",
			Category: "Analytics", Description: "Reports on campaign performance metrics",
			Capabilities: []string{"reporting", "metrics"}, RequiredTier: agent.TierStar,
		},
		{
			ID: "payments-manager", Name: "Payments Manager",
			Category: "Payments", Description: "Handles invoices and checkout",
			Capabilities: []string{"invoicing"}, RequiredTier: agent.TierAllStar,
		},
	}
}

func findAgent(agents []agent.Agent, id string) *agent.Agent {
	for i := range agents {
		if agents[i].ID == id {
			return &agents[i]
		}
	}
	return nil
}

func testContext(source, intent string, tier agent.Tier) *Context {
	return &Context{
		SourceAgentID: source,
		UserIntent:    intent,
		Session: SessionContext{
			UserID:    "user-1",
			SessionID: "session-1",
			UserTier:  tier,
		},
	}
}
