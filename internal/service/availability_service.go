package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/CanAhmet12/nazliyavuz-platform-sub000/internal/interval"
	"github.com/CanAhmet12/nazliyavuz-platform-sub000/internal/models"
	appErrors "github.com/CanAhmet12/nazliyavuz-platform-sub000/pkg/errors"
)

type availabilityRepository interface {
	ListActive(ctx context.Context, teacherID string, day *models.DayOfWeek) ([]models.AvailabilityWindow, error)
	FindByID(ctx context.Context, id string) (*models.AvailabilityWindow, error)
	Create(ctx context.Context, window *models.AvailabilityWindow) error
	Update(ctx context.Context, window *models.AvailabilityWindow) error
	Deactivate(ctx context.Context, id string) error
}

type teacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	FindByUserID(ctx context.Context, userID string) (*models.Teacher, error)
	OffersCategory(ctx context.Context, teacherID, categoryID string) (bool, error)
}

type auditRecorder interface {
	Record(actorID, action, targetType, targetID string, meta map[string]interface{})
}

// AvailabilityService owns a teacher's set of recurring weekly windows and
// enforces that no two active windows of one teacher/day overlap.
type AvailabilityService struct {
	repo      availabilityRepository
	teachers  teacherReader
	cache     *SlotCache
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService constructs the service.
func NewAvailabilityService(repo availabilityRepository, teachers teacherReader, cache *SlotCache, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{repo: repo, teachers: teachers, cache: cache, audit: audit, validator: validate, logger: logger}
}

// CreateAvailabilityRequest describes the payload for adding a window.
type CreateAvailabilityRequest struct {
	DayOfWeek string `json:"day_of_week" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// UpdateAvailabilityRequest describes a partial window update.
type UpdateAvailabilityRequest struct {
	DayOfWeek   *string `json:"day_of_week"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
	IsAvailable *bool   `json:"is_available"`
}

// Add creates a new active window for the caller's teacher profile.
func (s *AvailabilityService) Add(ctx context.Context, requesterUserID string, req CreateAvailabilityRequest) (*models.AvailabilityWindow, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}

	teacher, err := s.resolveTeacher(ctx, requesterUserID)
	if err != nil {
		return nil, err
	}

	day, err := models.ParseDayOfWeek(req.DayOfWeek)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	start, end, err := parseWindowTimes(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	window := &models.AvailabilityWindow{
		TeacherID:   teacher.ID,
		DayOfWeek:   day,
		StartTime:   start,
		EndTime:     end,
		IsAvailable: true,
	}
	if err := s.ensureNoOverlap(ctx, window, ""); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, window); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create availability window")
	}

	s.cache.Invalidate(ctx, teacher.ID)
	s.audit.Record(requesterUserID, models.AuditActionAvailabilityCreate, "availability_window", window.ID, map[string]interface{}{
		"day_of_week": day,
		"start_time":  start.String(),
		"end_time":    end.String(),
	})
	return window, nil
}

// Update mutates a window owned by the caller, re-running the overlap check
// against all other active windows for the resulting teacher/day.
func (s *AvailabilityService) Update(ctx context.Context, windowID, requesterUserID string, req UpdateAvailabilityRequest) (*models.AvailabilityWindow, error) {
	teacher, err := s.resolveTeacher(ctx, requesterUserID)
	if err != nil {
		return nil, err
	}

	window, err := s.repo.FindByID(ctx, windowID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "availability window not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability window")
	}
	if window.TeacherID != teacher.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "availability window belongs to another teacher")
	}

	if req.DayOfWeek != nil {
		day, err := models.ParseDayOfWeek(*req.DayOfWeek)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		window.DayOfWeek = day
	}
	if req.StartTime != nil {
		start, err := interval.ParseTimeOfDay(*req.StartTime)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		window.StartTime = start
	}
	if req.EndTime != nil {
		end, err := interval.ParseTimeOfDay(*req.EndTime)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		window.EndTime = end
	}
	if req.IsAvailable != nil {
		window.IsAvailable = *req.IsAvailable
	}

	if window.StartTime >= window.EndTime {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	if window.IsAvailable {
		if err := s.ensureNoOverlap(ctx, window, window.ID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, window); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update availability window")
	}

	s.cache.Invalidate(ctx, teacher.ID)
	s.audit.Record(requesterUserID, models.AuditActionAvailabilityUpdate, "availability_window", window.ID, nil)
	return window, nil
}

// Remove soft-deactivates a window owned by the caller.
func (s *AvailabilityService) Remove(ctx context.Context, windowID, requesterUserID string) error {
	teacher, err := s.resolveTeacher(ctx, requesterUserID)
	if err != nil {
		return err
	}

	window, err := s.repo.FindByID(ctx, windowID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "availability window not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability window")
	}
	if window.TeacherID != teacher.ID {
		return appErrors.Clone(appErrors.ErrForbidden, "availability window belongs to another teacher")
	}

	if err := s.repo.Deactivate(ctx, window.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove availability window")
	}

	s.cache.Invalidate(ctx, teacher.ID)
	s.audit.Record(requesterUserID, models.AuditActionAvailabilityRemove, "availability_window", window.ID, nil)
	return nil
}

// ListActive returns a teacher's active windows ordered by start time,
// optionally restricted to one day.
func (s *AvailabilityService) ListActive(ctx context.Context, teacherID string, day *string) ([]models.AvailabilityWindow, error) {
	var dayFilter *models.DayOfWeek
	if day != nil && *day != "" {
		parsed, err := models.ParseDayOfWeek(*day)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		dayFilter = &parsed
	}
	windows, err := s.repo.ListActive(ctx, teacherID, dayFilter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability windows")
	}
	return windows, nil
}

func (s *AvailabilityService) resolveTeacher(ctx context.Context, userID string) (*models.Teacher, error) {
	teacher, err := s.teachers.FindByUserID(ctx, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "caller has no teacher profile")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve teacher profile")
	}
	return teacher, nil
}

func (s *AvailabilityService) ensureNoOverlap(ctx context.Context, window *models.AvailabilityWindow, excludeID string) error {
	existing, err := s.repo.ListActive(ctx, window.TeacherID, &window.DayOfWeek)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check window overlap")
	}
	for _, other := range existing {
		if other.ID == excludeID {
			continue
		}
		if window.OverlapsWindow(other) {
			return appErrors.Clone(appErrors.ErrConflict, "availability window overlaps an existing window")
		}
	}
	return nil
}

func parseWindowTimes(rawStart, rawEnd string) (interval.TimeOfDay, interval.TimeOfDay, error) {
	start, err := interval.ParseTimeOfDay(rawStart)
	if err != nil {
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	end, err := interval.ParseTimeOfDay(rawEnd)
	if err != nil {
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if start >= end {
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	return start, end, nil
}
