// Package postgres provides pgx-backed persistence for gamification
// profiles and their outbox events.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/namanaggarwal76/YouMatter/internal/badges"
	"github.com/namanaggarwal76/YouMatter/internal/domain"
	"github.com/namanaggarwal76/YouMatter/internal/events"
	"github.com/namanaggarwal76/YouMatter/internal/progression"
)

// Repository stores profiles and records outbox events in the same
// transaction as the profile write.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ domain.ProfileRepository = (*Repository)(nil)

const profileColumns = `user_id, tenant_id, email, display_name, coins, xp, tier, streak_count, last_login_at, badges, joined_groups, challenges, version, created_at, updated_at`

// Get retrieves a profile by tenant and user id. A missing profile is
// reported as nil without an error.
func (r *Repository) Get(ctx context.Context, tenantID, userID string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE tenant_id=$1 AND user_id=$2`

	row := r.pool.QueryRow(ctx, query, tenantID, userID)
	profile, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return profile, nil
}

// Create inserts a new profile row.
func (r *Repository) Create(ctx context.Context, profile domain.Profile) error {
	badgesJSON, groupsJSON, challengesJSON, err := marshalDocuments(profile)
	if err != nil {
		return err
	}

	const stmt = `INSERT INTO profiles (` + profileColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        ON CONFLICT (tenant_id, user_id) DO NOTHING`

	tag, err := r.pool.Exec(ctx, stmt,
		profile.ID,
		profile.TenantID,
		profile.Email,
		profile.DisplayName,
		profile.Coins,
		profile.XP,
		string(profile.Tier),
		profile.StreakCount,
		profile.LastLoginAt,
		badgesJSON,
		groupsJSON,
		challengesJSON,
		profile.Version,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProfileExists
	}
	return nil
}

// Save updates the profile with an optimistic version check and records
// the supplied events in the outbox, all in one transaction.
func (r *Repository) Save(ctx context.Context, profile domain.Profile, evts []events.Envelope) error {
	badgesJSON, groupsJSON, challengesJSON, err := marshalDocuments(profile)
	if err != nil {
		return err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const stmt = `UPDATE profiles
        SET email=$3, display_name=$4, coins=$5, xp=$6, tier=$7, streak_count=$8, last_login_at=$9,
            badges=$10, joined_groups=$11, challenges=$12, version=version+1, updated_at=$13
        WHERE tenant_id=$1 AND user_id=$2 AND version=$14`

	tag, err := tx.Exec(ctx, stmt,
		profile.TenantID,
		profile.ID,
		profile.Email,
		profile.DisplayName,
		profile.Coins,
		profile.XP,
		string(profile.Tier),
		profile.StreakCount,
		profile.LastLoginAt,
		badgesJSON,
		groupsJSON,
		challengesJSON,
		profile.UpdatedAt,
		profile.Version,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		err = domain.ErrVersionConflict
		return err
	}

	for _, evt := range evts {
		if err = insertOutbox(ctx, tx, profile, evt); err != nil {
			return err
		}
	}

	err = tx.Commit(ctx)
	return err
}

func insertOutbox(ctx context.Context, tx pgx.Tx, profile domain.Profile, evt events.Envelope) error {
	body, err := json.Marshal(evt.Payload)
	if err != nil {
		return err
	}

	topic, ok := eventTopics[evt.Type]
	if !ok {
		return fmt.Errorf("unknown event type: %s", evt.Type)
	}

	const stmt = `INSERT INTO outbox (tenant_id, aggregate_id, event_type, topic, partition_key, payload)
        VALUES ($1,$2,$3,$4,$5,$6)`

	_, err = tx.Exec(ctx, stmt,
		profile.TenantID,
		profile.ID,
		evt.Type,
		topic,
		evt.PartitionKey,
		body,
	)
	return err
}

// TopByCoins returns the tenant leaderboard ordered by coins.
func (r *Repository) TopByCoins(ctx context.Context, tenantID string, limit int) ([]domain.LeaderboardEntry, error) {
	const query = `SELECT user_id, display_name, coins, xp
        FROM profiles
        WHERE tenant_id=$1
        ORDER BY coins DESC, user_id
        LIMIT $2`

	rows, err := r.pool.Query(ctx, query, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.LeaderboardEntry, 0, limit)
	for rows.Next() {
		var entry domain.LeaderboardEntry
		if err := rows.Scan(&entry.UserID, &entry.DisplayName, &entry.Coins, &entry.XP); err != nil {
			return nil, err
		}
		entry.Rank = len(entries) + 1
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func marshalDocuments(profile domain.Profile) (badgesJSON, groupsJSON, challengesJSON []byte, err error) {
	earned := profile.Badges
	if earned == nil {
		earned = []badges.Badge{}
	}
	badgesJSON, err = json.Marshal(earned)
	if err != nil {
		return nil, nil, nil, err
	}

	groups := profile.JoinedGroups
	if groups == nil {
		groups = []string{}
	}
	groupsJSON, err = json.Marshal(groups)
	if err != nil {
		return nil, nil, nil, err
	}

	challenges := profile.Challenges
	if challenges == nil {
		challenges = map[string]domain.UserChallenge{}
	}
	challengesJSON, err = json.Marshal(challenges)
	if err != nil {
		return nil, nil, nil, err
	}
	return badgesJSON, groupsJSON, challengesJSON, nil
}

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var (
		profile        domain.Profile
		tier           string
		badgesJSON     []byte
		groupsJSON     []byte
		challengesJSON []byte
	)

	if err := row.Scan(
		&profile.ID,
		&profile.TenantID,
		&profile.Email,
		&profile.DisplayName,
		&profile.Coins,
		&profile.XP,
		&tier,
		&profile.StreakCount,
		&profile.LastLoginAt,
		&badgesJSON,
		&groupsJSON,
		&challengesJSON,
		&profile.Version,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		return nil, err
	}

	profile.Tier = progression.Tier(tier)
	if err := json.Unmarshal(badgesJSON, &profile.Badges); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(groupsJSON, &profile.JoinedGroups); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(challengesJSON, &profile.Challenges); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Topics routed by event type. All gamification events share one topic;
// the dispatcher keys partitions by tenant and user.
var eventTopics = map[string]string{
	events.TypeBadgeEarned:        "gamification_events",
	events.TypeTierChanged:        "gamification_events",
	events.TypeChallengeCompleted: "gamification_events",
	events.TypeStreakUpdated:      "gamification_events",
}
