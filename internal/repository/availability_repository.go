package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/CanAhmet12/nazliyavuz-platform-sub000/internal/models"
)

// AvailabilityRepository persists teachers' recurring weekly windows.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs an availability repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

const availabilityColumns = `id, teacher_id, day_of_week, start_time, end_time, is_available, created_at, updated_at`

// ListActive returns a teacher's active windows ordered by start time,
// optionally restricted to one day of week.
func (r *AvailabilityRepository) ListActive(ctx context.Context, teacherID string, day *models.DayOfWeek) ([]models.AvailabilityWindow, error) {
	query := fmt.Sprintf(`SELECT %s FROM availability_windows WHERE teacher_id = $1 AND is_available`, availabilityColumns)
	args := []interface{}{teacherID}
	if day != nil {
		query += " AND day_of_week = $2"
		args = append(args, *day)
	}
	query += " ORDER BY day_of_week ASC, start_time ASC"

	var windows []models.AvailabilityWindow
	if err := r.db.SelectContext(ctx, &windows, query, args...); err != nil {
		return nil, fmt.Errorf("list availability windows: %w", err)
	}
	return windows, nil
}

// FindByID fetches a window regardless of its active flag.
func (r *AvailabilityRepository) FindByID(ctx context.Context, id string) (*models.AvailabilityWindow, error) {
	query := fmt.Sprintf(`SELECT %s FROM availability_windows WHERE id = $1`, availabilityColumns)
	var window models.AvailabilityWindow
	if err := r.db.GetContext(ctx, &window, query, id); err != nil {
		return nil, err
	}
	return &window, nil
}

// Create inserts a new active window.
func (r *AvailabilityRepository) Create(ctx context.Context, window *models.AvailabilityWindow) error {
	if window.ID == "" {
		window.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if window.CreatedAt.IsZero() {
		window.CreatedAt = now
	}
	window.UpdatedAt = now
	const query = `INSERT INTO availability_windows (id, teacher_id, day_of_week, start_time, end_time, is_available, created_at, updated_at)
VALUES (:id, :teacher_id, :day_of_week, :start_time, :end_time, :is_available, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, window); err != nil {
		return fmt.Errorf("create availability window: %w", err)
	}
	return nil
}

// Update rewrites the mutable fields of a window.
func (r *AvailabilityRepository) Update(ctx context.Context, window *models.AvailabilityWindow) error {
	window.UpdatedAt = time.Now().UTC()
	const query = `UPDATE availability_windows
SET day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time, is_available = :is_available, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, window); err != nil {
		return fmt.Errorf("update availability window: %w", err)
	}
	return nil
}

// Deactivate soft-disables a window without removing the row.
func (r *AvailabilityRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE availability_windows SET is_available = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate availability window: %w", err)
	}
	return nil
}
