package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authlinks/internal/stats"
)

func TestStatsRepository_InsertBulk(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false)
	repo := stats.NewRepository(infra.PostgresDB)
	ctx := context.Background()

	first := uuid.New()
	second := uuid.New()
	started := time.Now().Add(-time.Minute).Truncate(time.Millisecond)

	inserted, err := repo.InsertBulk(ctx, []stats.DataStat{
		{
			AuthorityID: first,
			Action:      stats.ActionUpdateHeading,
			HeadingOld:  "Woolf, Virginia",
			HeadingNew:  "Woolf, Virginia, 1882-1941",
			LinksCount:  3,
			StartedAt:   started,
		},
		{
			AuthorityID:  second,
			Action:       stats.ActionUpdateNaturalID,
			NaturalIDOld: "n123",
			NaturalIDNew: "n456",
			LinksCount:   1,
		},
	})
	require.NoError(t, err)
	require.Len(t, inserted, 2)

	for _, row := range inserted {
		assert.NotEqual(t, uuid.Nil, row.ID)
	}
	assert.Equal(t, first, inserted[0].AuthorityID)
	assert.Equal(t, second, inserted[1].AuthorityID)
	assert.NotEqual(t, inserted[0].ID, inserted[1].ID)

	var action string
	var linksCount int
	var startedAt time.Time
	err = infra.PostgresDB.QueryRow(`
		SELECT action, links_count, started_at
		FROM authority_data_stat
		WHERE id = $1
	`, inserted[0].ID).Scan(&action, &linksCount, &startedAt)
	require.NoError(t, err)
	assert.Equal(t, string(stats.ActionUpdateHeading), action)
	assert.Equal(t, 3, linksCount)
	assert.WithinDuration(t, started, startedAt, time.Second)

	// A zero StartedAt is filled with the insert time.
	err = infra.PostgresDB.QueryRow(`
		SELECT started_at FROM authority_data_stat WHERE id = $1
	`, inserted[1].ID).Scan(&startedAt)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), startedAt, time.Minute)
}

func TestStatsRepository_InsertBulk_KeepsClientID(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false)
	repo := stats.NewRepository(infra.PostgresDB)
	ctx := context.Background()

	id := uuid.New()
	inserted, err := repo.InsertBulk(ctx, []stats.DataStat{
		{ID: id, AuthorityID: uuid.New(), Action: stats.ActionDelete, LinksCount: 2},
	})
	require.NoError(t, err)
	require.Len(t, inserted, 1)
	assert.Equal(t, id, inserted[0].ID)
}

func TestStatsRepository_InsertBulk_Empty(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false)
	repo := stats.NewRepository(infra.PostgresDB)

	inserted, err := repo.InsertBulk(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, inserted)
}

func TestStatsRepository_InsertBulk_DegradesToPerRow(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false)
	repo := stats.NewRepository(infra.PostgresDB)
	ctx := context.Background()

	duplicate := uuid.New()
	_, err := repo.InsertBulk(ctx, []stats.DataStat{
		{ID: duplicate, AuthorityID: uuid.New(), Action: stats.ActionDelete},
	})
	require.NoError(t, err)

	good := uuid.New()
	inserted, err := repo.InsertBulk(ctx, []stats.DataStat{
		{AuthorityID: good, Action: stats.ActionUpdateHeading, LinksCount: 1},
		{ID: duplicate, AuthorityID: uuid.New(), Action: stats.ActionDelete},
	})
	require.NoError(t, err)
	require.Len(t, inserted, 2)

	// The clean row survives the degraded per-row pass.
	assert.Equal(t, good, inserted[0].AuthorityID)
	assert.NotEqual(t, uuid.Nil, inserted[0].ID)

	// The conflicting row comes back without an id.
	assert.Equal(t, uuid.Nil, inserted[1].ID)
}
