package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/strideatlas/streets-backend-go/internal/models"
)

// AreaRepository manages the user-defined areas that scope coverage
// updates. Area CRUD itself lives in the surrounding system; this
// repository only provides what the scope filter and pipeline need.
type AreaRepository struct {
	db *sql.DB
}

// NewAreaRepository creates a new area repository.
func NewAreaRepository(db *sql.DB) *AreaRepository {
	return &AreaRepository{db: db}
}

// Create inserts an area. Used by tests and seeding; the surrounding
// system normally owns area creation.
func (r *AreaRepository) Create(ctx context.Context, area *models.Area) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO areas (user_id, name, latitude, longitude, radius_m, archived, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		area.UserID, area.Name, area.Latitude, area.Longitude, area.RadiusM, boolToInt(area.Archived), area.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create area: %w", err)
	}
	area.ID, err = res.LastInsertId()
	return err
}

// EligibleAreas returns the user's areas that an activity is allowed to
// update. Without an activity timestamp every non-archived area is
// eligible; with one, only areas created at or before it (full
// date-and-time comparison). Archived areas are always excluded.
func (r *AreaRepository) EligibleAreas(ctx context.Context, userID string, activityTime *time.Time) ([]models.Area, error) {
	query := `
		SELECT id, user_id, name, latitude, longitude, radius_m, archived, created_at
		FROM areas
		WHERE user_id = ? AND archived = 0`
	args := []interface{}{userID}

	if activityTime != nil {
		query += " AND created_at <= ?"
		args = append(args, *activityTime)
	}
	query += " ORDER BY created_at"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query areas: %w", err)
	}
	defer rows.Close()

	var areas []models.Area
	for rows.Next() {
		var a models.Area
		var archived int
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Latitude, &a.Longitude, &a.RadiusM, &archived, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan area: %w", err)
		}
		a.Archived = archived == 1
		areas = append(areas, a)
	}
	return areas, rows.Err()
}

// TouchAreas stamps the areas that received an activity's aggregated
// update.
func (r *AreaRepository) TouchAreas(ctx context.Context, areaIDs []int64, at time.Time) error {
	if len(areaIDs) == 0 {
		return nil
	}
	args := make([]interface{}, 0, len(areaIDs)+1)
	args = append(args, at)
	for _, id := range areaIDs {
		args = append(args, id)
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE areas SET last_activity_at = ? WHERE id IN (`+placeholderList(len(areaIDs))+`)`, args...)
	if err != nil {
		return fmt.Errorf("failed to touch areas: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
