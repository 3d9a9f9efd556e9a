// Package catalog holds the read-only challenge and badge reference data.
package catalog

import (
	"errors"
	"time"

	"github.com/namanaggarwal76/YouMatter/internal/badges"
)

// ErrChallengeNotFound is returned when a challenge id is unknown.
var ErrChallengeNotFound = errors.New("challenge not found")

// Repeat classifies how often a challenge can be re-completed.
type Repeat string

const (
	RepeatOnce   Repeat = "once"
	RepeatHourly Repeat = "hourly"
	RepeatDaily  Repeat = "daily"
	RepeatWeekly Repeat = "weekly"
)

// Cooldown returns the interval that must elapse after a completion
// before the challenge can be restarted. Zero means not repeatable.
func (r Repeat) Cooldown() time.Duration {
	switch r {
	case RepeatHourly:
		return time.Hour
	case RepeatDaily:
		return 24 * time.Hour
	case RepeatWeekly:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// Challenge is externally defined reference data; the gamification core
// only consumes it to compute completion thresholds and rewards.
type Challenge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	// Type names the wellness metric the challenge tracks (walking,
	// hydration, sleep, meditation, insurance).
	Type        string `json:"type"`
	TargetValue int    `json:"target_value"`
	// Unit is the domain unit of TargetValue: "days" for day-count
	// challenges, otherwise a cumulative unit such as "steps".
	Unit         string `json:"unit"`
	RewardCoins  int    `json:"reward_coins"`
	RewardXp     int    `json:"reward_xp"`
	DurationDays int    `json:"duration_days"`
	Repeat       Repeat `json:"repeat"`
}

// Cumulative reports whether progress accumulates raw metric values
// instead of counting qualifying days.
func (c Challenge) Cumulative() bool {
	return c.Unit != "days"
}

// Challenges exposes the challenge catalog.
type Challenges interface {
	Get(id string) (*Challenge, error)
	List() []Challenge
}

// Badges exposes the ordered badge catalog.
type Badges interface {
	ListBadges() []badges.Definition
	FirstLoginBadge(now time.Time) badges.Badge
}

// InMemory serves the seeded reference catalogs.
type InMemory struct {
	challenges []Challenge
	byID       map[string]Challenge
	badgeDefs  []badges.Definition
}

// NewInMemory constructs the catalog with the standard seed data.
func NewInMemory() *InMemory {
	c := &InMemory{
		challenges: seedChallenges(),
		badgeDefs:  seedBadges(),
	}
	c.byID = make(map[string]Challenge, len(c.challenges))
	for _, challenge := range c.challenges {
		c.byID[challenge.ID] = challenge
	}
	return c
}

// Get implements Challenges.
func (c *InMemory) Get(id string) (*Challenge, error) {
	challenge, ok := c.byID[id]
	if !ok {
		return nil, ErrChallengeNotFound
	}
	return &challenge, nil
}

// List implements Challenges.
func (c *InMemory) List() []Challenge {
	out := make([]Challenge, len(c.challenges))
	copy(out, c.challenges)
	return out
}

// ListBadges implements Badges.
func (c *InMemory) ListBadges() []badges.Definition {
	out := make([]badges.Definition, len(c.badgeDefs))
	copy(out, c.badgeDefs)
	return out
}

func seedChallenges() []Challenge {
	return []Challenge{
		{ID: "1", Name: "7-Day Meditation Streak", Description: "Meditate for 10 minutes daily for 7 consecutive days", Type: "meditation", TargetValue: 7, Unit: "days", RewardCoins: 100, RewardXp: 50, DurationDays: 7, Repeat: RepeatOnce},
		{ID: "2", Name: "30-Day Walking Challenge", Description: "Walk at least 10,000 steps daily for 30 days", Type: "walking", TargetValue: 30, Unit: "days", RewardCoins: 500, RewardXp: 200, DurationDays: 30, Repeat: RepeatOnce},
		{ID: "3", Name: "Hydration Hero", Description: "Drink 8 glasses of water daily for 14 days", Type: "hydration", TargetValue: 14, Unit: "days", RewardCoins: 150, RewardXp: 75, DurationDays: 14, Repeat: RepeatOnce},
		{ID: "4", Name: "Sleep Master", Description: "Get 8 hours of sleep for 7 nights", Type: "sleep", TargetValue: 7, Unit: "days", RewardCoins: 120, RewardXp: 60, DurationDays: 7, Repeat: RepeatOnce},
		{ID: "5", Name: "Insurance Saver", Description: "Walk 100,000 steps this month for 2% off insurance renewal", Type: "walking", TargetValue: 100000, Unit: "steps", RewardCoins: 1000, RewardXp: 500, DurationDays: 30, Repeat: RepeatOnce},
		{ID: "6", Name: "Daily Mindful Minutes", Description: "Fit in 10 mindful minutes today", Type: "meditation", TargetValue: 1, Unit: "days", RewardCoins: 15, RewardXp: 10, DurationDays: 1, Repeat: RepeatDaily},
		{ID: "7", Name: "Weekly Step Sprint", Description: "Walk 70,000 steps this week", Type: "walking", TargetValue: 70000, Unit: "steps", RewardCoins: 200, RewardXp: 90, DurationDays: 7, Repeat: RepeatWeekly},
	}
}

func seedBadges() []badges.Definition {
	return []badges.Definition{
		{ID: "1", Name: "Welcome Warrior", Description: "Complete your first login", Icon: "award", RequiredXp: 0, Kind: badges.KindFirstLogin},
		{ID: "2", Name: "Bronze Champion", Description: "Reach Bronze tier", Icon: "medal", RequiredXp: 100, Kind: badges.KindNone},
		{ID: "3", Name: "Silver Star", Description: "Reach Silver tier", Icon: "star", RequiredXp: 300, Kind: badges.KindNone},
		{ID: "4", Name: "Gold Legend", Description: "Reach Gold tier", Icon: "trophy", RequiredXp: 600, Kind: badges.KindNone},
		{ID: "5", Name: "Streak Master", Description: "Maintain a 7-day streak", Icon: "flame", RequiredXp: 200, Kind: badges.KindStreak, Min: 7},
		{ID: "6", Name: "Community Builder", Description: "Join 3 groups", Icon: "users", RequiredXp: 150, Kind: badges.KindGroupCount, Min: 3},
		{ID: "7", Name: "Challenge Crusher", Description: "Complete 5 challenges", Icon: "target", RequiredXp: 400, Kind: badges.KindChallengeCount, Min: 5},
		{ID: "8", Name: "Wellness Guru", Description: "Reach 1000 XP", Icon: "heart", RequiredXp: 1000, Kind: badges.KindNone},
	}
}

// FirstLoginBadge implements Badges. The returned badge is pre-granted
// when a profile is created, stamped with the creation time.
func (c *InMemory) FirstLoginBadge(now time.Time) badges.Badge {
	def := c.badgeDefs[0]
	for _, d := range c.badgeDefs {
		if d.Kind == badges.KindFirstLogin {
			def = d
			break
		}
	}
	return badges.Badge{
		ID:          def.ID,
		Name:        def.Name,
		Description: def.Description,
		Icon:        def.Icon,
		RequiredXp:  def.RequiredXp,
		EarnedAt:    now,
	}
}
