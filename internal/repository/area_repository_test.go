package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/strideatlas/streets-backend-go/internal/models"
)

func TestEligibleAreasTimestampScope(t *testing.T) {
	db := openTestDB(t)
	repo := NewAreaRepository(db)
	ctx := context.Background()

	created := time.Date(2025, 1, 17, 11, 0, 0, 0, time.UTC)
	area := &models.Area{
		UserID: "runner-1", Name: "Downtown", Latitude: 51.5, Longitude: -0.1,
		RadiusM: 2000, CreatedAt: created,
	}
	require.NoError(t, repo.Create(ctx, area))

	// An activity run an hour before the area existed, same calendar day:
	// the comparison is full date-and-time, so the area is excluded.
	before := time.Date(2025, 1, 17, 10, 0, 0, 0, time.UTC)
	areas, err := repo.EligibleAreas(ctx, "runner-1", &before)
	require.NoError(t, err)
	assert.Empty(t, areas)

	// At or after creation the area is eligible.
	areas, err = repo.EligibleAreas(ctx, "runner-1", &created)
	require.NoError(t, err)
	assert.Len(t, areas, 1)

	after := created.Add(time.Hour)
	areas, err = repo.EligibleAreas(ctx, "runner-1", &after)
	require.NoError(t, err)
	assert.Len(t, areas, 1)
}

func TestEligibleAreasNoTimestampReturnsAllActive(t *testing.T) {
	db := openTestDB(t)
	repo := NewAreaRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, &models.Area{
		UserID: "runner-1", Name: "Old Town", Latitude: 51.5, Longitude: -0.1,
		RadiusM: 1000, CreatedAt: now,
	}))
	require.NoError(t, repo.Create(ctx, &models.Area{
		UserID: "runner-1", Name: "Retired", Latitude: 51.6, Longitude: -0.2,
		RadiusM: 1000, Archived: true, CreatedAt: now,
	}))

	areas, err := repo.EligibleAreas(ctx, "runner-1", nil)
	require.NoError(t, err)
	require.Len(t, areas, 1)
	assert.Equal(t, "Old Town", areas[0].Name)
}

func TestEligibleAreasArchivedAlwaysExcluded(t *testing.T) {
	db := openTestDB(t)
	repo := NewAreaRepository(db)
	ctx := context.Background()

	created := time.Date(2025, 1, 17, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, &models.Area{
		UserID: "runner-1", Name: "Retired", Latitude: 51.5, Longitude: -0.1,
		RadiusM: 1000, Archived: true, CreatedAt: created,
	}))

	after := created.Add(2 * time.Hour)
	areas, err := repo.EligibleAreas(ctx, "runner-1", &after)
	require.NoError(t, err)
	assert.Empty(t, areas)
}

func TestTouchAreas(t *testing.T) {
	db := openTestDB(t)
	repo := NewAreaRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	area := &models.Area{
		UserID: "runner-1", Name: "Downtown", Latitude: 51.5, Longitude: -0.1,
		RadiusM: 1000, CreatedAt: now,
	}
	require.NoError(t, repo.Create(ctx, area))
	require.NoError(t, repo.TouchAreas(ctx, []int64{area.ID}, now))

	var stamped time.Time
	require.NoError(t, db.QueryRow(`SELECT last_activity_at FROM areas WHERE id = ?`, area.ID).Scan(&stamped))
	assert.WithinDuration(t, now, stamped, time.Second)
}
