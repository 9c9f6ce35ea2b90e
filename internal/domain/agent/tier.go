package agent

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTier is returned when a tier string is not one of the known tiers.
var ErrInvalidTier = errors.New("invalid tier")

// Tier is an access level gating which agents and chains a user may invoke.
type Tier string

// Tiers in ascending order of privilege.
const (
	TierGateway Tier = "gateway"
	TierStarter Tier = "starter"
	TierStar    Tier = "star"
	TierAllStar Tier = "all_star"
)

// tierRanks is the single source of truth for tier ordering.
var tierRanks = map[Tier]int{
	TierGateway: 0,
	TierStarter: 1,
	TierStar:    2,
	TierAllStar: 3,
}

// ParseTier normalises s and returns the matching Tier.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := tierRanks[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidTier, s)
	}
	return t, nil
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	_, ok := tierRanks[t]
	return ok
}

// Rank returns the ordinal of t. Unknown tiers never yield a rank.
func (t Tier) Rank() (int, error) {
	r, ok := tierRanks[t]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTier, string(t))
	}
	return r, nil
}

// AtLeast reports whether user grants access to something that requires
// required. Both sides must be valid tiers.
func AtLeast(user, required Tier) (bool, error) {
	u, err := user.Rank()
	if err != nil {
		return false, fmt.Errorf("user tier: %w", err)
	}
	r, err := required.Rank()
	if err != nil {
		return false, fmt.Errorf("required tier: %w", err)
	}
	return u >= r, nil
}
