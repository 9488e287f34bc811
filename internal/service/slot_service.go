package service

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/CanAhmet12/nazliyavuz-platform-sub000/internal/interval"
	"github.com/CanAhmet12/nazliyavuz-platform-sub000/internal/models"
	appErrors "github.com/CanAhmet12/nazliyavuz-platform-sub000/pkg/errors"
)

type blockingReservationLister interface {
	ListBlockingBetween(ctx context.Context, teacherID string, from, to time.Time) ([]models.Reservation, error)
}

type availabilityLister interface {
	ListActive(ctx context.Context, teacherID string, day *models.DayOfWeek) ([]models.AvailabilityWindow, error)
}

// SlotService derives concrete bookable slots for a calendar date from a
// teacher's recurring windows minus their blocking reservations. It holds no
// state of its own; generation is idempotent between writes.
type SlotService struct {
	windows      availabilityLister
	reservations blockingReservationLister
	teachers     teacherReader
	cache        *SlotCache
	metrics      *MetricsService

	defaultSlotMinutes int
	defaultLocation    *time.Location
	logger             *zap.Logger

	now func() time.Time
}

// NewSlotService constructs the slot generator.
func NewSlotService(windows availabilityLister, reservations blockingReservationLister, teachers teacherReader, cache *SlotCache, metrics *MetricsService, defaultSlotMinutes int, defaultLocation *time.Location, logger *zap.Logger) *SlotService {
	if defaultSlotMinutes <= 0 {
		defaultSlotMinutes = 60
	}
	if defaultLocation == nil {
		defaultLocation = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotService{
		windows:            windows,
		reservations:       reservations,
		teachers:           teachers,
		cache:              cache,
		metrics:            metrics,
		defaultSlotMinutes: defaultSlotMinutes,
		defaultLocation:    defaultLocation,
		logger:             logger,
		now:                time.Now,
	}
}

// GenerateSlots returns the ordered free slots for a teacher on a date.
// Dates before today in the teacher's reference timezone yield an empty
// list, not an error, and so do days without any active window.
func (s *SlotService) GenerateSlots(ctx context.Context, teacherID, date string, slotMinutes int) ([]models.Slot, error) {
	if slotMinutes <= 0 {
		slotMinutes = s.defaultSlotMinutes
	}

	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}

	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	loc := teacher.Location(s.defaultLocation)
	today := s.now().In(loc)
	todayMidnight := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc)
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	if dayStart.Before(todayMidnight) {
		return []models.Slot{}, nil
	}

	if cached, ok := s.cache.Get(ctx, teacherID, date, slotMinutes); ok {
		s.metrics.ObserveSlotCache(true)
		return cached, nil
	}
	s.metrics.ObserveSlotCache(false)

	weekday := models.DayOfWeekFromTime(dayStart.Weekday())
	windows, err := s.windows.ListActive(ctx, teacherID, &weekday)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability windows")
	}
	if len(windows) == 0 {
		return []models.Slot{}, nil
	}

	candidates := buildCandidates(windows, dayStart, loc, slotMinutes, date)

	blocking, err := s.reservations.ListBlockingBetween(ctx, teacherID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reservations")
	}

	free := make([]models.Slot, 0, len(candidates))
	for _, candidate := range candidates {
		if conflictsWithAny(candidate, blocking) {
			continue
		}
		free = append(free, candidate)
	}

	s.cache.Put(ctx, teacherID, date, slotMinutes, free)
	return free, nil
}

// buildCandidates walks each window in fixed increments. A trailing partial
// slot is dropped, never truncated. Windows are walked independently and
// deliberately not merged: adjacent windows are separate editable entities.
func buildCandidates(windows []models.AvailabilityWindow, dayStart time.Time, loc *time.Location, slotMinutes int, date string) []models.Slot {
	step := interval.TimeOfDay(slotMinutes)
	var candidates []models.Slot
	for _, window := range windows {
		for cursor := window.StartTime; cursor+step <= window.EndTime; cursor += step {
			candidates = append(candidates, models.Slot{
				Date:      date,
				StartTime: cursor,
				EndTime:   cursor + step,
				StartsAt:  cursor.OnDate(dayStart, loc),
				EndsAt:    (cursor + step).OnDate(dayStart, loc),
			})
		}
	}
	return candidates
}

func conflictsWithAny(slot models.Slot, reservations []models.Reservation) bool {
	span := slot.Span()
	for _, reservation := range reservations {
		if span.Overlaps(reservation.Span()) {
			return true
		}
	}
	return false
}
