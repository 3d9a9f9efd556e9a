// Package events defines the payloads emitted by the gamification core.
package events

import "time"

// Event types routed through the outbox.
const (
	TypeBadgeEarned        = "gamification.badge_earned"
	TypeTierChanged        = "gamification.tier_changed"
	TypeChallengeCompleted = "gamification.challenge_completed"
	TypeStreakUpdated      = "gamification.streak_updated"
)

// Envelope pairs a payload with its routing metadata. The persistence
// layer records envelopes in the outbox inside the profile-save
// transaction; the dispatcher delivers them to Kafka.
type Envelope struct {
	Type         string
	PartitionKey string
	Payload      any
}

// BadgeEarned is emitted once per badge the engine awards.
type BadgeEarned struct {
	TenantID  string    `json:"tenant_id"`
	UserID    string    `json:"user_id"`
	BadgeID   string    `json:"badge_id"`
	BadgeName string    `json:"badge_name"`
	EarnedAt  time.Time `json:"earned_at"`
}

// TierChanged is emitted when recalculated XP moves the profile to a new tier.
type TierChanged struct {
	TenantID   string    `json:"tenant_id"`
	UserID     string    `json:"user_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	XP         int       `json:"xp"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ChallengeCompleted is emitted on the single false-to-true completion
// transition of a user challenge.
type ChallengeCompleted struct {
	TenantID    string    `json:"tenant_id"`
	UserID      string    `json:"user_id"`
	ChallengeID string    `json:"challenge_id"`
	RewardCoins int       `json:"reward_coins"`
	RewardXp    int       `json:"reward_xp"`
	CompletedAt time.Time `json:"completed_at"`
}

// StreakUpdated is emitted when login accounting lands on a new calendar day.
type StreakUpdated struct {
	TenantID   string    `json:"tenant_id"`
	UserID     string    `json:"user_id"`
	Streak     int       `json:"streak"`
	Broken     bool      `json:"broken"`
	OccurredAt time.Time `json:"occurred_at"`
}
