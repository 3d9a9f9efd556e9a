// Package progression maps accumulated experience points to named tiers.
package progression

// Tier is a named progression rank derived solely from XP.
type Tier string

const (
	TierBronze   Tier = "Bronze"
	TierSilver   Tier = "Silver"
	TierGold     Tier = "Gold"
	TierPlatinum Tier = "Platinum"
	TierDiamond  Tier = "Diamond"
)

// tiers lists every tier in ascending order.
var tiers = []Tier{TierBronze, TierSilver, TierGold, TierPlatinum, TierDiamond}

var thresholds = map[Tier]int{
	TierBronze:   0,
	TierSilver:   300,
	TierGold:     600,
	TierPlatinum: 1200,
	TierDiamond:  2000,
}

// TierForXP returns the highest tier whose threshold is <= xp.
// Every non-negative xp maps to exactly one tier.
func TierForXP(xp int) Tier {
	current := TierBronze
	for _, tier := range tiers {
		if xp >= thresholds[tier] {
			current = tier
		}
	}
	return current
}

// Threshold returns the XP at which the given tier is entered.
func Threshold(tier Tier) int {
	return thresholds[tier]
}

// NextTierThreshold returns the XP required for the tier after the given
// one. It saturates at Diamond's threshold rather than erroring.
func NextTierThreshold(tier Tier) int {
	for i, t := range tiers {
		if t == tier {
			if i == len(tiers)-1 {
				return thresholds[TierDiamond]
			}
			return thresholds[tiers[i+1]]
		}
	}
	return thresholds[TierDiamond]
}

// Progress reports percentage progress from the given tier toward the
// next one, clamped to [0,100]. Diamond is terminal and always reports 100.
func Progress(xp int, tier Tier) float64 {
	if tier == TierDiamond {
		return 100
	}
	current := thresholds[tier]
	next := NextTierThreshold(tier)
	progress := float64(xp-current) / float64(next-current) * 100
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}

// Rank returns the ordinal position of the tier, Bronze being 0. Useful
// for comparing tiers without string ordering.
func Rank(tier Tier) int {
	for i, t := range tiers {
		if t == tier {
			return i
		}
	}
	return 0
}
