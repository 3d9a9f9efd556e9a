package domain

import (
	"time"

	"github.com/namanaggarwal76/YouMatter/internal/badges"
	"github.com/namanaggarwal76/YouMatter/internal/progression"
)

// Profile is the aggregate root for a user's gamification state. Tier is
// always derived from XP and badges are only ever appended; both are
// maintained exclusively by recalculate, which every mutating service
// path runs after changing coins or XP.
type Profile struct {
	ID          string
	TenantID    string
	Email       string
	DisplayName string

	Coins       int
	XP          int
	Tier        progression.Tier
	StreakCount int
	LastLoginAt *time.Time

	Badges       []badges.Badge
	JoinedGroups []string
	// Challenges holds at most one entry per challenge id.
	Challenges map[string]UserChallenge

	// Version supports optimistic concurrency at the storage boundary.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserChallenge tracks one user's progress toward a catalog challenge.
type UserChallenge struct {
	ChallengeID string     `json:"challenge_id"`
	Progress    int        `json:"progress"`
	Completed   bool       `json:"completed"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// CooldownUntil is set on completion of repeatable challenges; the
	// challenge cannot be re-armed before it passes.
	CooldownUntil *time.Time `json:"cooldown_until,omitempty"`
	// LastProgressAt guards day-count challenges against crediting more
	// than one day per calendar day.
	LastProgressAt *time.Time `json:"last_progress_at,omitempty"`
	// TimesCompleted survives re-arming of repeatable challenges so the
	// completed-challenge count never regresses.
	TimesCompleted int `json:"times_completed"`
}

// stats snapshots the fields the badge engine reads.
func (p *Profile) stats() badges.Stats {
	return badges.Stats{
		XP:                  p.XP,
		StreakCount:         p.StreakCount,
		JoinedGroups:        len(p.JoinedGroups),
		CompletedChallenges: p.CompletedChallengeCount(),
	}
}

// CompletedChallengeCount reports how many distinct challenges the user
// has completed at least once.
func (p *Profile) CompletedChallengeCount() int {
	count := 0
	for _, c := range p.Challenges {
		if c.Completed || c.TimesCompleted > 0 {
			count++
		}
	}
	return count
}

// HasBadge reports whether the badge id has been earned.
func (p *Profile) HasBadge(id string) bool {
	for _, b := range p.Badges {
		if b.ID == id {
			return true
		}
	}
	return false
}

// InGroup reports membership of the given group id.
func (p *Profile) InGroup(groupID string) bool {
	for _, id := range p.JoinedGroups {
		if id == groupID {
			return true
		}
	}
	return false
}

// recalculate re-derives the tier from XP and runs the badge engine,
// appending any newly earned badges. It returns the previous tier and
// the new badges so the caller can emit events for the transitions.
func (p *Profile) recalculate(catalog []badges.Definition, now time.Time) (progression.Tier, []badges.Badge) {
	previousTier := p.Tier
	p.Tier = progression.TierForXP(p.XP)

	earned := make(map[string]struct{}, len(p.Badges))
	for _, b := range p.Badges {
		earned[b.ID] = struct{}{}
	}

	newBadges := badges.NewlyEarned(p.stats(), earned, catalog, now)
	p.Badges = append(p.Badges, newBadges...)
	p.UpdatedAt = now
	return previousTier, newBadges
}

// clone returns a deep copy so service paths can mutate freely and hand
// the repository a complete new value.
func (p *Profile) clone() *Profile {
	out := *p
	out.Badges = append([]badges.Badge(nil), p.Badges...)
	out.JoinedGroups = append([]string(nil), p.JoinedGroups...)
	out.Challenges = make(map[string]UserChallenge, len(p.Challenges))
	for id, c := range p.Challenges {
		out.Challenges[id] = c
	}
	if p.LastLoginAt != nil {
		t := *p.LastLoginAt
		out.LastLoginAt = &t
	}
	return &out
}
