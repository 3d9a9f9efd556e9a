//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/namanaggarwal76/YouMatter/internal/domain"
	"github.com/namanaggarwal76/YouMatter/internal/events"
	"github.com/namanaggarwal76/YouMatter/internal/progression"
)

func TestRepositoryRoundTripAndVersioning(t *testing.T) {
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("youmatter"),
		postgrescontainer.WithUsername("wellness"),
		postgrescontainer.WithPassword("wellness"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, waitForDatabase(ctx, connStr))
	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	repo := NewRepository(pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	profile := domain.Profile{
		ID:          uuid.NewString(),
		TenantID:    uuid.NewString(),
		Email:       "user@example.com",
		DisplayName: "Integration User",
		Coins:       10,
		XP:          5,
		Tier:        progression.TierBronze,
		StreakCount: 1,
		LastLoginAt: &now,
		Challenges:  map[string]domain.UserChallenge{},
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	require.NoError(t, repo.Create(ctx, profile))
	require.ErrorIs(t, repo.Create(ctx, profile), domain.ErrProfileExists)

	stored, err := repo.Get(ctx, profile.TenantID, profile.ID)
	require.NoError(t, err)
	require.Equal(t, profile.Coins, stored.Coins)
	require.Equal(t, progression.TierBronze, stored.Tier)

	stored.Coins = 30
	evts := []events.Envelope{{
		Type:         events.TypeStreakUpdated,
		PartitionKey: profile.TenantID + ":" + profile.ID,
		Payload:      events.StreakUpdated{TenantID: profile.TenantID, UserID: profile.ID, Streak: 2, OccurredAt: now},
	}}
	require.NoError(t, repo.Save(ctx, *stored, evts))

	// Stale version must be rejected.
	require.ErrorIs(t, repo.Save(ctx, *stored, nil), domain.ErrVersionConflict)

	reread, err := repo.Get(ctx, profile.TenantID, profile.ID)
	require.NoError(t, err)
	require.Equal(t, 30, reread.Coins)
	require.Equal(t, stored.Version+1, reread.Version)

	var outboxCount int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE tenant_id=$1`, profile.TenantID).Scan(&outboxCount))
	require.Equal(t, 1, outboxCount)

	missing, err := repo.Get(ctx, uuid.NewString(), profile.ID)
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestRepositoryLeaderboardOrdering(t *testing.T) {
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("youmatter"),
		postgrescontainer.WithUsername("wellness"),
		postgrescontainer.WithPassword("wellness"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, waitForDatabase(ctx, connStr))
	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	repo := NewRepository(pool)
	tenantID := uuid.NewString()
	now := time.Now().UTC()

	for i, coins := range []int{50, 200, 125} {
		profile := domain.Profile{
			ID:          uuid.NewString(),
			TenantID:    tenantID,
			DisplayName: "user",
			Coins:       coins,
			Tier:        progression.TierBronze,
			Challenges:  map[string]domain.UserChallenge{},
			Version:     1,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		require.NoError(t, repo.Create(ctx, profile), "profile %d", i)
	}

	entries, err := repo.TopByCoins(ctx, tenantID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, 200, entries[0].Coins)
	require.Equal(t, 125, entries[1].Coins)
	require.Equal(t, 50, entries[2].Coins)
	require.Equal(t, 1, entries[0].Rank)
	require.Equal(t, 3, entries[2].Rank)
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	files := []string{
		"../../../db/postgres/migrations/0001_init.up.sql",
	}

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	for _, rel := range files {
		path := resolvePath(t, rel)
		contents, readErr := os.ReadFile(path)
		require.NoError(t, readErr)

		_, execErr := pool.Exec(ctx, string(contents))
		require.NoError(t, execErr)
	}
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
