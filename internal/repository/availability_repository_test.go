package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/CanAhmet12/nazliyavuz-platform-sub000/internal/interval"
	"github.com/CanAhmet12/nazliyavuz-platform-sub000/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func availabilityRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "teacher_id", "day_of_week", "start_time", "end_time", "is_available", "created_at", "updated_at"})
}

func TestAvailabilityRepositoryListActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	now := time.Now()
	rows := availabilityRows().
		AddRow("win-1", "teacher-1", models.Monday, "09:00:00", "12:00:00", true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, teacher_id, day_of_week, start_time, end_time, is_available, created_at, updated_at FROM availability_windows WHERE teacher_id = $1 AND is_available ORDER BY day_of_week ASC, start_time ASC")).
		WithArgs("teacher-1").
		WillReturnRows(rows)

	windows, err := repo.ListActive(context.Background(), "teacher-1", nil)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	require.Equal(t, "09:00", windows[0].StartTime.String())
	require.Equal(t, "12:00", windows[0].EndTime.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryListActiveFiltersDay(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("AND day_of_week = $2")).
		WithArgs("teacher-1", models.Monday).
		WillReturnRows(availabilityRows())

	day := models.Monday
	windows, err := repo.ListActive(context.Background(), "teacher-1", &day)
	require.NoError(t, err)
	require.Empty(t, windows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO availability_windows")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	start, _ := interval.ParseTimeOfDay("09:00")
	end, _ := interval.ParseTimeOfDay("12:00")
	window := &models.AvailabilityWindow{
		TeacherID:   "teacher-1",
		DayOfWeek:   models.Monday,
		StartTime:   start,
		EndTime:     end,
		IsAvailable: true,
	}
	require.NoError(t, repo.Create(context.Background(), window))
	require.NotEmpty(t, window.ID)
	require.False(t, window.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryDeactivate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE availability_windows SET is_available = FALSE, updated_at = $2 WHERE id = $1")).
		WithArgs("win-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Deactivate(context.Background(), "win-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
