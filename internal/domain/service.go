// Package domain implements the gamification rules around the Profile
// aggregate: streak accounting, the challenge lifecycle, and group
// membership, each funnelled through a single tier/badge-preserving
// update path.
package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/namanaggarwal76/YouMatter/internal/badges"
	"github.com/namanaggarwal76/YouMatter/internal/catalog"
	"github.com/namanaggarwal76/YouMatter/internal/events"
	"github.com/namanaggarwal76/YouMatter/internal/observability"
	"github.com/namanaggarwal76/YouMatter/internal/progression"
	"github.com/namanaggarwal76/YouMatter/internal/streak"
)

var (
	// ErrProfileNotFound is returned when a profile cannot be located.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrProfileExists is returned when creating a profile that already exists.
	ErrProfileExists = errors.New("profile already exists")
	// ErrChallengeNotStarted is returned when progress is reported for a
	// challenge the user has not started.
	ErrChallengeNotStarted = errors.New("challenge not started")
	// ErrChallengeCooldown is returned when a repeatable challenge is
	// restarted before its cooldown has elapsed.
	ErrChallengeCooldown = errors.New("challenge is cooling down")
	// ErrValidation flags malformed input rejected before any engine runs.
	ErrValidation = errors.New("validation failed")
	// ErrVersionConflict is surfaced by repositories when a concurrent
	// save won the optimistic-concurrency race.
	ErrVersionConflict = errors.New("profile version conflict")
)

// Initial state granted to every new profile on first login.
const (
	initialCoins  = 10
	initialXP     = 5
	initialStreak = 1
)

// Rewards credited when joining a group.
const (
	groupJoinCoins = 20
	groupJoinXP    = 10
)

// ProfileRepository captures persistence operations. Save must apply the
// whole profile atomically and record the provided events with it.
type ProfileRepository interface {
	Get(ctx context.Context, tenantID, userID string) (*Profile, error)
	Create(ctx context.Context, profile Profile) error
	Save(ctx context.Context, profile Profile, evts []events.Envelope) error
	TopByCoins(ctx context.Context, tenantID string, limit int) ([]LeaderboardEntry, error)
}

// LeaderboardEntry is a coin-ranked row of the tenant leaderboard.
type LeaderboardEntry struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Coins       int    `json:"coins"`
	XP          int    `json:"xp"`
	Rank        int    `json:"rank"`
}

// RewardConfig tunes the once-per-day login reward.
type RewardConfig struct {
	DailyLoginCoins int
	DailyLoginXP    int
}

// Service orchestrates gamification workflows.
type Service struct {
	repo       ProfileRepository
	challenges catalog.Challenges
	badgeDefs  catalog.Badges
	rewards    RewardConfig
	loc        *time.Location
	now        func() time.Time
}

// Option configures optional Service behaviour.
type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation pins the calendar-day location used by streak accounting.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// NewService constructs a Service.
func NewService(repo ProfileRepository, challenges catalog.Challenges, badgeDefs catalog.Badges, rewards RewardConfig, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		challenges: challenges,
		badgeDefs:  badgeDefs,
		rewards:    rewards,
		loc:        time.UTC,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewProfileInput carries identity for profile creation.
type NewProfileInput struct {
	TenantID    string
	UserID      string
	Email       string
	DisplayName string
}

// LoginResult reports the outcome of RecordLogin.
type LoginResult struct {
	Profile      *Profile
	Created      bool
	IsNewDay     bool
	StreakBroken bool
	RewardCoins  int
	RewardXP     int
	NewBadges    []badges.Badge
}

// RecordLogin accounts for a login: on first contact it creates the
// profile with its starting grants, otherwise it applies the streak
// engine and, at most once per calendar day, credits the login reward
// plus the streak bonus before re-deriving tier and badges.
func (s *Service) RecordLogin(ctx context.Context, input NewProfileInput) (*LoginResult, error) {
	if input.TenantID == "" || input.UserID == "" {
		return nil, fmt.Errorf("%w: tenant and user are required", ErrValidation)
	}

	existing, err := s.repo.Get(ctx, input.TenantID, input.UserID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		profile, err := s.createProfile(ctx, input)
		if err != nil {
			return nil, err
		}
		observability.RecordLogin("created")
		return &LoginResult{
			Profile:  profile,
			Created:  true,
			IsNewDay: true,
		}, nil
	}

	now := s.now()
	profile := existing.clone()

	result, err := streak.AccountForLogin(profile.LastLoginAt, profile.StreakCount, now, s.loc)
	if err != nil {
		return nil, fmt.Errorf("streak accounting: %w", err)
	}

	grantReward := streak.ShouldGrantDailyReward(profile.LastLoginAt, now, s.loc)
	login := &LoginResult{
		IsNewDay:     result.IsNewDay,
		StreakBroken: result.StreakBroken,
	}

	profile.StreakCount = result.NewStreak
	profile.LastLoginAt = &now

	var evts []events.Envelope
	if result.IsNewDay {
		evts = append(evts, events.Envelope{
			Type:         events.TypeStreakUpdated,
			PartitionKey: partitionKey(profile),
			Payload: events.StreakUpdated{
				TenantID:   profile.TenantID,
				UserID:     profile.ID,
				Streak:     profile.StreakCount,
				Broken:     result.StreakBroken,
				OccurredAt: now,
			},
		})
	}

	if grantReward {
		login.RewardCoins = s.rewards.DailyLoginCoins + streak.Bonus(profile.StreakCount)
		login.RewardXP = s.rewards.DailyLoginXP
		profile.Coins += login.RewardCoins
		profile.XP += login.RewardXP
	}

	evts = append(evts, s.applyRecalculation(profile, now, &login.NewBadges)...)

	if err := s.repo.Save(ctx, *profile, evts); err != nil {
		return nil, err
	}

	outcome := "same_day"
	if result.IsNewDay {
		outcome = "returning"
	}
	observability.RecordLogin(outcome)

	login.Profile = profile
	return login, nil
}

func (s *Service) createProfile(ctx context.Context, input NewProfileInput) (*Profile, error) {
	now := s.now()
	profile := Profile{
		ID:           input.UserID,
		TenantID:     input.TenantID,
		Email:        input.Email,
		DisplayName:  input.DisplayName,
		Coins:        initialCoins,
		XP:           initialXP,
		Tier:         progression.TierForXP(initialXP),
		StreakCount:  initialStreak,
		LastLoginAt:  &now,
		JoinedGroups: []string{},
		Challenges:   map[string]UserChallenge{},
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	profile.Badges = []badges.Badge{s.badgeDefs.FirstLoginBadge(now)}

	if err := s.repo.Create(ctx, profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetProfile fetches a profile.
func (s *Service) GetProfile(ctx context.Context, tenantID, userID string) (*Profile, error) {
	profile, err := s.repo.Get(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}

// StartChallenge adds a challenge entry to the profile. Starting a
// challenge that is already in progress is a no-op. Completed repeatable
// challenges re-arm once their cooldown has elapsed; before that,
// restarting is a conflict.
func (s *Service) StartChallenge(ctx context.Context, tenantID, userID, challengeID string) (*Profile, bool, error) {
	challenge, err := s.challenges.Get(challengeID)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.GetProfile(ctx, tenantID, userID)
	if err != nil {
		return nil, false, err
	}

	now := s.now()
	profile := existing.clone()

	if entry, ok := profile.Challenges[challengeID]; ok {
		if !entry.Completed {
			return existing, false, nil
		}
		cooldown := challenge.Repeat.Cooldown()
		if cooldown == 0 {
			// One-shot challenge already done; keep the call idempotent.
			return existing, false, nil
		}
		if entry.CooldownUntil != nil && now.Before(*entry.CooldownUntil) {
			return nil, false, fmt.Errorf("%w until %s", ErrChallengeCooldown, entry.CooldownUntil.Format(time.RFC3339))
		}
		entry.Progress = 0
		entry.Completed = false
		entry.StartedAt = now
		entry.CompletedAt = nil
		entry.CooldownUntil = nil
		entry.LastProgressAt = nil
		profile.Challenges[challengeID] = entry
	} else {
		profile.Challenges[challengeID] = UserChallenge{
			ChallengeID: challengeID,
			StartedAt:   now,
		}
	}

	profile.UpdatedAt = now
	if err := s.repo.Save(ctx, *profile, nil); err != nil {
		return nil, false, err
	}
	return profile, true, nil
}

// ProgressResult reports the outcome of a progress update.
type ProgressResult struct {
	Profile      *Profile
	Challenge    UserChallenge
	JustComplete bool
	NewBadges    []badges.Badge
}

// SetChallengeProgress records caller-supplied absolute progress for a
// started challenge. Progress never regresses; values below the current
// progress are clamped. Crossing the target completes the challenge
// exactly once, crediting rewards and re-running the tier and badge
// engines before the profile is saved.
func (s *Service) SetChallengeProgress(ctx context.Context, tenantID, userID, challengeID string, progress int) (*ProgressResult, error) {
	if progress < 0 {
		return nil, fmt.Errorf("%w: progress must be non-negative", ErrValidation)
	}

	challenge, err := s.challenges.Get(challengeID)
	if err != nil {
		return nil, err
	}

	existing, err := s.GetProfile(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	entry, ok := existing.Challenges[challengeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChallengeNotStarted, challengeID)
	}
	if entry.Completed {
		// Idempotent under retries: a completed challenge absorbs further
		// progress updates without double-crediting.
		return &ProgressResult{Profile: existing, Challenge: entry}, nil
	}

	now := s.now()
	profile := existing.clone()
	entry = profile.Challenges[challengeID]

	if progress > entry.Progress {
		entry.Progress = progress
	}
	entry.LastProgressAt = &now

	result := &ProgressResult{}
	var evts []events.Envelope
	if entry.Progress >= challenge.TargetValue {
		s.completeChallenge(profile, &entry, challenge, now)
		result.JustComplete = true
		evts = append(evts, events.Envelope{
			Type:         events.TypeChallengeCompleted,
			PartitionKey: partitionKey(profile),
			Payload: events.ChallengeCompleted{
				TenantID:    profile.TenantID,
				UserID:      profile.ID,
				ChallengeID: challenge.ID,
				RewardCoins: challenge.RewardCoins,
				RewardXp:    challenge.RewardXp,
				CompletedAt: now,
			},
		})
	}
	profile.Challenges[challengeID] = entry

	evts = append(evts, s.applyRecalculation(profile, now, &result.NewBadges)...)

	if err := s.repo.Save(ctx, *profile, evts); err != nil {
		return nil, err
	}
	result.Profile = profile
	result.Challenge = profile.Challenges[challengeID]
	return result, nil
}

// AdvanceChallenges applies a logged wellness metric to every active
// challenge tracking it. Cumulative challenges accumulate the raw value;
// day-count challenges advance by at most one day per calendar day.
func (s *Service) AdvanceChallenges(ctx context.Context, tenantID, userID, metric string, value int, recordedAt time.Time) (*Profile, error) {
	if value <= 0 {
		return nil, fmt.Errorf("%w: metric value must be positive", ErrValidation)
	}

	existing, err := s.GetProfile(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if recordedAt.IsZero() {
		recordedAt = now
	}

	profile := existing.clone()
	var evts []events.Envelope
	changed := false

	for id, entry := range profile.Challenges {
		if entry.Completed {
			continue
		}
		challenge, err := s.challenges.Get(id)
		if err != nil {
			continue
		}
		if challenge.Type != metric {
			continue
		}

		if challenge.Cumulative() {
			entry.Progress += value
		} else {
			if entry.LastProgressAt != nil && sameCalendarDay(*entry.LastProgressAt, recordedAt, s.loc) {
				continue
			}
			entry.Progress++
		}
		entry.LastProgressAt = &recordedAt
		changed = true

		if entry.Progress >= challenge.TargetValue {
			s.completeChallenge(profile, &entry, challenge, now)
			evts = append(evts, events.Envelope{
				Type:         events.TypeChallengeCompleted,
				PartitionKey: partitionKey(profile),
				Payload: events.ChallengeCompleted{
					TenantID:    profile.TenantID,
					UserID:      profile.ID,
					ChallengeID: challenge.ID,
					RewardCoins: challenge.RewardCoins,
					RewardXp:    challenge.RewardXp,
					CompletedAt: now,
				},
			})
		}
		profile.Challenges[id] = entry
	}

	if !changed {
		return existing, nil
	}

	evts = append(evts, s.applyRecalculation(profile, now, nil)...)

	if err := s.repo.Save(ctx, *profile, evts); err != nil {
		return nil, err
	}
	return profile, nil
}

// JoinGroup records group membership and credits the join reward. Joining
// a group twice is a no-op.
func (s *Service) JoinGroup(ctx context.Context, tenantID, userID, groupID string) (*Profile, error) {
	if groupID == "" {
		return nil, fmt.Errorf("%w: group id is required", ErrValidation)
	}

	existing, err := s.GetProfile(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	if existing.InGroup(groupID) {
		return existing, nil
	}

	now := s.now()
	profile := existing.clone()
	profile.JoinedGroups = append(profile.JoinedGroups, groupID)
	profile.Coins += groupJoinCoins
	profile.XP += groupJoinXP

	evts := s.applyRecalculation(profile, now, nil)
	if err := s.repo.Save(ctx, *profile, evts); err != nil {
		return nil, err
	}
	return profile, nil
}

// LeaveGroup removes group membership. Earned badges stay earned.
func (s *Service) LeaveGroup(ctx context.Context, tenantID, userID, groupID string) (*Profile, error) {
	existing, err := s.GetProfile(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	if !existing.InGroup(groupID) {
		return existing, nil
	}

	now := s.now()
	profile := existing.clone()
	groups := profile.JoinedGroups[:0]
	for _, id := range profile.JoinedGroups {
		if id != groupID {
			groups = append(groups, id)
		}
	}
	profile.JoinedGroups = groups
	profile.UpdatedAt = now

	if err := s.repo.Save(ctx, *profile, nil); err != nil {
		return nil, err
	}
	return profile, nil
}

// Leaderboard returns the tenant's top profiles ranked by coins.
func (s *Service) Leaderboard(ctx context.Context, tenantID string, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.repo.TopByCoins(ctx, tenantID, limit)
}

// completeChallenge performs the single completion transition: it stamps
// the entry, arms the repeat cooldown, and credits the rewards. Callers
// must run applyRecalculation afterwards so tier and badges reflect the
// credited stats.
func (s *Service) completeChallenge(profile *Profile, entry *UserChallenge, challenge *catalog.Challenge, now time.Time) {
	entry.Completed = true
	entry.TimesCompleted++
	entry.CompletedAt = &now
	if cooldown := challenge.Repeat.Cooldown(); cooldown > 0 {
		until := now.Add(cooldown)
		entry.CooldownUntil = &until
	}

	profile.Coins += challenge.RewardCoins
	profile.XP += challenge.RewardXp
	observability.RecordChallengeCompleted()
}

// applyRecalculation runs the tier and badge engines against the updated
// stats and emits events for each transition. When collector is non-nil
// the new badges are also appended to it for the caller's response.
func (s *Service) applyRecalculation(profile *Profile, now time.Time, collector *[]badges.Badge) []events.Envelope {
	previousTier, newBadges := profile.recalculate(s.badgeDefs.ListBadges(), now)

	var evts []events.Envelope
	if profile.Tier != previousTier {
		observability.RecordTierChange(string(profile.Tier))
		evts = append(evts, events.Envelope{
			Type:         events.TypeTierChanged,
			PartitionKey: partitionKey(profile),
			Payload: events.TierChanged{
				TenantID:   profile.TenantID,
				UserID:     profile.ID,
				From:       string(previousTier),
				To:         string(profile.Tier),
				XP:         profile.XP,
				OccurredAt: now,
			},
		})
	}
	for _, badge := range newBadges {
		evts = append(evts, events.Envelope{
			Type:         events.TypeBadgeEarned,
			PartitionKey: partitionKey(profile),
			Payload: events.BadgeEarned{
				TenantID:  profile.TenantID,
				UserID:    profile.ID,
				BadgeID:   badge.ID,
				BadgeName: badge.Name,
				EarnedAt:  badge.EarnedAt,
			},
		})
	}
	if collector != nil {
		*collector = append(*collector, newBadges...)
	}
	observability.RecordBadges(len(newBadges))
	return evts
}

func partitionKey(profile *Profile) string {
	return fmt.Sprintf("%s:%s", profile.TenantID, profile.ID)
}

func sameCalendarDay(a, b time.Time, loc *time.Location) bool {
	al, bl := a.In(loc), b.In(loc)
	ay, am, ad := al.Date()
	by, bm, bd := bl.Date()
	return ay == by && am == bm && ad == bd
}
