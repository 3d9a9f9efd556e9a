// Package memory stores profiles in memory for local development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/namanaggarwal76/YouMatter/internal/domain"
	"github.com/namanaggarwal76/YouMatter/internal/events"
)

// Repository is an in-memory domain.ProfileRepository with the same
// optimistic-concurrency semantics as the Postgres implementation.
type Repository struct {
	mu       sync.RWMutex
	profiles map[string]domain.Profile
	// Events records every envelope passed to Save, newest last.
	eventLog []events.Envelope
}

// NewRepository constructs an empty Repository.
func NewRepository() *Repository {
	return &Repository{profiles: make(map[string]domain.Profile)}
}

func key(tenantID, userID string) string {
	return tenantID + "/" + userID
}

// Get implements domain.ProfileRepository. A missing profile returns nil, nil.
func (r *Repository) Get(ctx context.Context, tenantID, userID string) (*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, ok := r.profiles[key(tenantID, userID)]
	if !ok {
		return nil, nil
	}
	return &profile, nil
}

// Create implements domain.ProfileRepository.
func (r *Repository) Create(ctx context.Context, profile domain.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(profile.TenantID, profile.ID)
	if _, ok := r.profiles[k]; ok {
		return domain.ErrProfileExists
	}
	r.profiles[k] = profile
	return nil
}

// Save implements domain.ProfileRepository with compare-and-swap on Version.
func (r *Repository) Save(ctx context.Context, profile domain.Profile, evts []events.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(profile.TenantID, profile.ID)
	stored, ok := r.profiles[k]
	if !ok {
		return domain.ErrProfileNotFound
	}
	if stored.Version != profile.Version {
		return fmt.Errorf("%w: have %d, stored %d", domain.ErrVersionConflict, profile.Version, stored.Version)
	}

	profile.Version++
	r.profiles[k] = profile
	r.eventLog = append(r.eventLog, evts...)
	return nil
}

// TopByCoins implements domain.ProfileRepository.
func (r *Repository) TopByCoins(ctx context.Context, tenantID string, limit int) ([]domain.LeaderboardEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profiles := make([]domain.Profile, 0)
	for _, profile := range r.profiles {
		if profile.TenantID == tenantID {
			profiles = append(profiles, profile)
		}
	}
	sort.Slice(profiles, func(i, j int) bool {
		if profiles[i].Coins != profiles[j].Coins {
			return profiles[i].Coins > profiles[j].Coins
		}
		return profiles[i].ID < profiles[j].ID
	})

	if limit > 0 && len(profiles) > limit {
		profiles = profiles[:limit]
	}

	entries := make([]domain.LeaderboardEntry, 0, len(profiles))
	for i, profile := range profiles {
		entries = append(entries, domain.LeaderboardEntry{
			UserID:      profile.ID,
			DisplayName: profile.DisplayName,
			Coins:       profile.Coins,
			XP:          profile.XP,
			Rank:        i + 1,
		})
	}
	return entries, nil
}

// Events returns a copy of the recorded event log, for tests.
func (r *Repository) Events() []events.Envelope {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]events.Envelope, len(r.eventLog))
	copy(out, r.eventLog)
	return out
}
