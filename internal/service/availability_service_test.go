package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/CanAhmet12/nazliyavuz-platform-sub000/internal/interval"
	"github.com/CanAhmet12/nazliyavuz-platform-sub000/internal/models"
	appErrors "github.com/CanAhmet12/nazliyavuz-platform-sub000/pkg/errors"
)

func newAvailabilityService(repo *mockAvailabilityRepo, teachers *mockTeacherReader, audit *mockAudit, cacheStore *mockCacheStore) *AvailabilityService {
	cache := NewSlotCache(cacheStore, time.Minute, zap.NewNop())
	return NewAvailabilityService(repo, teachers, cache, audit, validator.New(), zap.NewNop())
}

func mustTime(t *testing.T, raw string) interval.TimeOfDay {
	t.Helper()
	tod, err := interval.ParseTimeOfDay(raw)
	require.NoError(t, err)
	return tod
}

func TestAvailabilityAdd(t *testing.T) {
	repo := &mockAvailabilityRepo{}
	teachers := &mockTeacherReader{teacherByUserID: &models.Teacher{ID: "t1", UserID: "u1"}}
	audit := &mockAudit{}
	store := &mockCacheStore{}
	svc := newAvailabilityService(repo, teachers, audit, store)

	window, err := svc.Add(context.Background(), "u1", CreateAvailabilityRequest{
		DayOfWeek: "MONDAY",
		StartTime: "09:00",
		EndTime:   "12:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "t1", window.TeacherID)
	assert.Equal(t, models.Monday, window.DayOfWeek)
	assert.Equal(t, mustTime(t, "09:00"), window.StartTime)
	assert.Equal(t, mustTime(t, "12:00"), window.EndTime)
	assert.True(t, window.IsAvailable)

	require.NotNil(t, repo.created)
	assert.Equal(t, 1, store.invalidatedCount)
	require.Len(t, audit.calls, 1)
	assert.Equal(t, models.AuditActionAvailabilityCreate, audit.calls[0].action)
}

func TestAvailabilityAddOverlapRejected(t *testing.T) {
	repo := &mockAvailabilityRepo{windows: []models.AvailabilityWindow{{
		ID:          "win-1",
		TeacherID:   "t1",
		DayOfWeek:   models.Monday,
		StartTime:   interval.TimeOfDay(10 * 60),
		EndTime:     interval.TimeOfDay(13 * 60),
		IsAvailable: true,
	}}}
	teachers := &mockTeacherReader{teacherByUserID: &models.Teacher{ID: "t1", UserID: "u1"}}
	svc := newAvailabilityService(repo, teachers, &mockAudit{}, &mockCacheStore{})

	_, err := svc.Add(context.Background(), "u1", CreateAvailabilityRequest{
		DayOfWeek: "MONDAY",
		StartTime: "09:00",
		EndTime:   "11:00",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
	assert.Nil(t, repo.created)
}

func TestAvailabilityAddBackToBackAllowed(t *testing.T) {
	repo := &mockAvailabilityRepo{windows: []models.AvailabilityWindow{{
		ID:          "win-1",
		TeacherID:   "t1",
		DayOfWeek:   models.Monday,
		StartTime:   interval.TimeOfDay(9 * 60),
		EndTime:     interval.TimeOfDay(12 * 60),
		IsAvailable: true,
	}}}
	teachers := &mockTeacherReader{teacherByUserID: &models.Teacher{ID: "t1", UserID: "u1"}}
	svc := newAvailabilityService(repo, teachers, &mockAudit{}, &mockCacheStore{})

	window, err := svc.Add(context.Background(), "u1", CreateAvailabilityRequest{
		DayOfWeek: "MONDAY",
		StartTime: "12:00",
		EndTime:   "14:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "win-new", window.ID)
}

func TestAvailabilityAddInvalidTimes(t *testing.T) {
	teachers := &mockTeacherReader{teacherByUserID: &models.Teacher{ID: "t1", UserID: "u1"}}
	svc := newAvailabilityService(&mockAvailabilityRepo{}, teachers, &mockAudit{}, &mockCacheStore{})

	_, err := svc.Add(context.Background(), "u1", CreateAvailabilityRequest{
		DayOfWeek: "MONDAY",
		StartTime: "12:00",
		EndTime:   "09:00",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAvailabilityAddNoTeacherProfile(t *testing.T) {
	teachers := &mockTeacherReader{findByUserIDErr: sql.ErrNoRows}
	svc := newAvailabilityService(&mockAvailabilityRepo{}, teachers, &mockAudit{}, &mockCacheStore{})

	_, err := svc.Add(context.Background(), "u-student", CreateAvailabilityRequest{
		DayOfWeek: "MONDAY",
		StartTime: "09:00",
		EndTime:   "12:00",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestAvailabilityUpdateOtherTeacherForbidden(t *testing.T) {
	repo := &mockAvailabilityRepo{windowByID: &models.AvailabilityWindow{
		ID:        "win-1",
		TeacherID: "t-other",
		DayOfWeek: models.Monday,
		StartTime: interval.TimeOfDay(9 * 60),
		EndTime:   interval.TimeOfDay(12 * 60),
	}}
	teachers := &mockTeacherReader{teacherByUserID: &models.Teacher{ID: "t1", UserID: "u1"}}
	svc := newAvailabilityService(repo, teachers, &mockAudit{}, &mockCacheStore{})

	_, err := svc.Update(context.Background(), "win-1", "u1", UpdateAvailabilityRequest{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	assert.Nil(t, repo.updated)
}

func TestAvailabilityUpdateSelfExcludedFromOverlap(t *testing.T) {
	window := &models.AvailabilityWindow{
		ID:          "win-1",
		TeacherID:   "t1",
		DayOfWeek:   models.Monday,
		StartTime:   interval.TimeOfDay(9 * 60),
		EndTime:     interval.TimeOfDay(12 * 60),
		IsAvailable: true,
	}
	repo := &mockAvailabilityRepo{windowByID: window, windows: []models.AvailabilityWindow{*window}}
	teachers := &mockTeacherReader{teacherByUserID: &models.Teacher{ID: "t1", UserID: "u1"}}
	svc := newAvailabilityService(repo, teachers, &mockAudit{}, &mockCacheStore{})

	end := "13:00"
	updated, err := svc.Update(context.Background(), "win-1", "u1", UpdateAvailabilityRequest{EndTime: &end})
	require.NoError(t, err)
	assert.Equal(t, mustTime(t, "13:00"), updated.EndTime)
	require.NotNil(t, repo.updated)
}

func TestAvailabilityRemove(t *testing.T) {
	repo := &mockAvailabilityRepo{windowByID: &models.AvailabilityWindow{ID: "win-1", TeacherID: "t1"}}
	teachers := &mockTeacherReader{teacherByUserID: &models.Teacher{ID: "t1", UserID: "u1"}}
	audit := &mockAudit{}
	store := &mockCacheStore{}
	svc := newAvailabilityService(repo, teachers, audit, store)

	err := svc.Remove(context.Background(), "win-1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "win-1", repo.deactivatedID)
	assert.Equal(t, 1, store.invalidatedCount)
	require.Len(t, audit.calls, 1)
	assert.Equal(t, models.AuditActionAvailabilityRemove, audit.calls[0].action)
}

func TestAvailabilityListActiveBadDay(t *testing.T) {
	svc := newAvailabilityService(&mockAvailabilityRepo{}, &mockTeacherReader{}, &mockAudit{}, &mockCacheStore{})
	day := "FUNDAY"
	_, err := svc.ListActive(context.Background(), "t1", &day)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
