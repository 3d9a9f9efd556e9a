// Package badges evaluates badge eligibility against profile stats.
package badges

import "time"

// PredicateKind tags the special eligibility condition of a badge
// definition. Badges without a special condition use KindNone and are
// gated purely by RequiredXP.
type PredicateKind string

const (
	KindNone           PredicateKind = "none"
	KindFirstLogin     PredicateKind = "first-login"
	KindStreak         PredicateKind = "streak"
	KindGroupCount     PredicateKind = "group-count"
	KindChallengeCount PredicateKind = "challenge-count"
)

// Definition describes a badge in the catalog.
type Definition struct {
	ID          string
	Name        string
	Description string
	Icon        string
	// RequiredXp gates the badge on total XP when greater than zero. A
	// zero value means no XP gate; the badge then needs a matching
	// special predicate to ever be awarded.
	RequiredXp int
	Kind       PredicateKind
	// Min is the threshold for streak, group-count, and challenge-count
	// predicates.
	Min int
}

// Badge is an earned badge on a profile.
type Badge struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	RequiredXp  int       `json:"required_xp"`
	EarnedAt    time.Time `json:"earned_at"`
}

// Stats is the slice of profile state the engine reads. It decouples
// eligibility checks from the aggregate itself.
type Stats struct {
	XP                  int
	StreakCount         int
	JoinedGroups        int
	CompletedChallenges int
}

// NewlyEarned returns the badges from catalog that the stats newly
// qualify for, each stamped with earnedAt = now. Already-earned ids are
// skipped, so running the engine twice against unchanged stats returns
// nothing the second time.
func NewlyEarned(stats Stats, earned map[string]struct{}, catalog []Definition, now time.Time) []Badge {
	var out []Badge
	for _, def := range catalog {
		if _, ok := earned[def.ID]; ok {
			continue
		}
		if !eligible(stats, def) {
			continue
		}
		out = append(out, Badge{
			ID:          def.ID,
			Name:        def.Name,
			Description: def.Description,
			Icon:        def.Icon,
			RequiredXp:  def.RequiredXp,
			EarnedAt:    now,
		})
	}
	return out
}

func eligible(stats Stats, def Definition) bool {
	if def.RequiredXp > 0 && stats.XP >= def.RequiredXp {
		return true
	}

	switch def.Kind {
	case KindStreak:
		return stats.StreakCount >= def.Min
	case KindGroupCount:
		return stats.JoinedGroups >= def.Min
	case KindChallengeCount:
		return stats.CompletedChallenges >= def.Min
	default:
		// KindFirstLogin badges are granted once at profile creation and
		// never awarded by the engine.
		return false
	}
}
