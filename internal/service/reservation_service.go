package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/CanAhmet12/nazliyavuz-platform-sub000/internal/models"
	"github.com/CanAhmet12/nazliyavuz-platform-sub000/internal/repository"
	appErrors "github.com/CanAhmet12/nazliyavuz-platform-sub000/pkg/errors"
)

type reservationRepository interface {
	FindByID(ctx context.Context, id string) (*models.Reservation, error)
	List(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, int, error)
	CreateInSlot(ctx context.Context, reservation *models.Reservation) error
	UpdateInSlot(ctx context.Context, reservation *models.Reservation) error
	UpdateStatus(ctx context.Context, reservation *models.Reservation, status models.ReservationStatus, teacherNotes, adminNotes *string) error
}

type notifier interface {
	Notify(userID, notificationType string, payload map[string]interface{})
}

// ReservationService drives a booking from creation to a terminal state. The
// conflict gate at creation/edit time runs inside the repository's
// per-teacher critical section; everything else here is validation,
// ownership checks and side-effect fan-out.
type ReservationService struct {
	repo      reservationRepository
	teachers  teacherReader
	cache     *SlotCache
	notifier  notifier
	audit     auditRecorder
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger

	minDuration int
	maxDuration int

	now func() time.Time
}

// NewReservationService constructs the service. Non-positive duration bounds
// fall back to the model defaults.
func NewReservationService(repo reservationRepository, teachers teacherReader, cache *SlotCache, notify notifier, audit auditRecorder, metrics *MetricsService, minDurationMinutes, maxDurationMinutes int, validate *validator.Validate, logger *zap.Logger) *ReservationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if minDurationMinutes <= 0 {
		minDurationMinutes = models.MinLessonMinutes
	}
	if maxDurationMinutes <= 0 {
		maxDurationMinutes = models.MaxLessonMinutes
	}
	return &ReservationService{
		repo:        repo,
		teachers:    teachers,
		cache:       cache,
		notifier:    notify,
		audit:       audit,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		minDuration: minDurationMinutes,
		maxDuration: maxDurationMinutes,
		now:         time.Now,
	}
}

// CreateReservationRequest describes the booking payload submitted by a
// student.
type CreateReservationRequest struct {
	TeacherID        string    `json:"teacher_id" validate:"required"`
	CategoryID       string    `json:"category_id" validate:"required"`
	Subject          string    `json:"subject" validate:"required"`
	ProposedDatetime time.Time `json:"proposed_datetime" validate:"required"`
	DurationMinutes  int       `json:"duration_minutes" validate:"required"`
	Notes            *string   `json:"notes"`
}

// UpdateReservationRequest describes a partial edit of a pending
// reservation.
type UpdateReservationRequest struct {
	CategoryID       *string    `json:"category_id"`
	Subject          *string    `json:"subject"`
	ProposedDatetime *time.Time `json:"proposed_datetime"`
	DurationMinutes  *int       `json:"duration_minutes"`
	Notes            *string    `json:"notes"`
}

// Create books a pending reservation for the student. The overlap check and
// the insert run atomically under the teacher's advisory lock; on contention
// the caller receives a retryable conflict and nothing is written.
func (s *ReservationService) Create(ctx context.Context, studentID string, req CreateReservationRequest) (*models.Reservation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reservation payload")
	}
	if !req.ProposedDatetime.After(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "proposed_datetime must be in the future")
	}
	if err := s.checkDuration(req.DurationMinutes); err != nil {
		return nil, err
	}

	teacher, err := s.teachers.FindByID(ctx, req.TeacherID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	offers, err := s.teachers.OffersCategory(ctx, teacher.ID, req.CategoryID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher categories")
	}
	if !offers {
		return nil, appErrors.ErrCategoryMismatch
	}

	reservation := &models.Reservation{
		StudentID:        studentID,
		TeacherID:        teacher.ID,
		CategoryID:       req.CategoryID,
		Subject:          req.Subject,
		ProposedDatetime: req.ProposedDatetime.UTC(),
		DurationMinutes:  req.DurationMinutes,
		Price:            lessonPrice(teacher.HourlyRate, req.DurationMinutes),
		Status:           models.ReservationPending,
		Notes:            req.Notes,
	}

	if err := s.repo.CreateInSlot(ctx, reservation); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			s.metrics.ObserveReservationConflict()
			return nil, appErrors.Clone(appErrors.ErrConflict, "requested time slot is no longer available")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create reservation")
	}

	s.metrics.ObserveReservationCreated()
	s.cache.Invalidate(ctx, teacher.ID)
	s.notifier.Notify(teacher.UserID, models.NotificationReservationCreated, map[string]interface{}{
		"reservation_id": reservation.ID,
		"student_id":     studentID,
		"subject":        reservation.Subject,
		"starts_at":      reservation.ProposedDatetime,
	})
	s.audit.Record(studentID, models.AuditActionReservationCreate, "reservation", reservation.ID, map[string]interface{}{
		"teacher_id": teacher.ID,
		"starts_at":  reservation.ProposedDatetime,
		"duration":   reservation.DurationMinutes,
	})
	return reservation, nil
}

// Update edits a reservation. Only the owning student may edit, only while
// pending, and the overlap gate re-runs excluding the reservation's own
// prior interval.
func (s *ReservationService) Update(ctx context.Context, reservationID, requesterID string, req UpdateReservationRequest) (*models.Reservation, error) {
	reservation, err := s.load(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if reservation.StudentID != requesterID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "reservation belongs to another student")
	}
	if reservation.Status != models.ReservationPending {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only pending reservations can be edited")
	}

	durationChanged := false
	if req.CategoryID != nil && *req.CategoryID != reservation.CategoryID {
		offers, err := s.teachers.OffersCategory(ctx, reservation.TeacherID, *req.CategoryID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher categories")
		}
		if !offers {
			return nil, appErrors.ErrCategoryMismatch
		}
		reservation.CategoryID = *req.CategoryID
	}
	if req.Subject != nil {
		reservation.Subject = *req.Subject
	}
	if req.ProposedDatetime != nil {
		reservation.ProposedDatetime = req.ProposedDatetime.UTC()
	}
	if req.DurationMinutes != nil && *req.DurationMinutes != reservation.DurationMinutes {
		reservation.DurationMinutes = *req.DurationMinutes
		durationChanged = true
	}
	if req.Notes != nil {
		reservation.Notes = req.Notes
	}

	if err := s.checkDuration(reservation.DurationMinutes); err != nil {
		return nil, err
	}
	if !reservation.ProposedDatetime.After(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "proposed_datetime must be in the future")
	}

	if durationChanged {
		teacher, err := s.teachers.FindByID(ctx, reservation.TeacherID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
		}
		reservation.Price = lessonPrice(teacher.HourlyRate, reservation.DurationMinutes)
	}

	if err := s.repo.UpdateInSlot(ctx, reservation); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			s.metrics.ObserveReservationConflict()
			return nil, appErrors.Clone(appErrors.ErrConflict, "requested time slot is no longer available")
		}
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "reservation is no longer pending")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update reservation")
	}

	s.cache.Invalidate(ctx, reservation.TeacherID)
	s.notifyTeacher(ctx, reservation, models.NotificationReservationUpdated)
	s.audit.Record(requesterID, models.AuditActionReservationUpdate, "reservation", reservation.ID, nil)
	return reservation, nil
}

// Respond lets the owning teacher accept or reject a pending request.
// Accepting one request deliberately leaves sibling pending requests for the
// same slot untouched: they stay pending until the teacher answers them,
// although the occupied slot will make competing creates fail. Auto-rejecting
// siblings is an explicit non-behavior, not an oversight.
func (s *ReservationService) Respond(ctx context.Context, reservationID, requesterUserID string, decision string, teacherNotes *string) (*models.Reservation, error) {
	status, ok := models.ParseReservationStatus(decision)
	if !ok || (status != models.ReservationAccepted && status != models.ReservationRejected) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "decision must be accepted or rejected")
	}

	reservation, err := s.load(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	teacher, err := s.teachers.FindByUserID(ctx, requesterUserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "caller has no teacher profile")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve teacher profile")
	}
	if reservation.TeacherID != teacher.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "reservation belongs to another teacher")
	}
	if !reservation.Status.CanTransitionTo(status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reservation is no longer pending")
	}

	if err := s.repo.UpdateStatus(ctx, reservation, status, teacherNotes, nil); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "reservation was updated concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update reservation status")
	}

	s.metrics.ObserveTransition(string(status))
	if status == models.ReservationRejected {
		// Rejection frees the slot for regeneration.
		s.cache.Invalidate(ctx, reservation.TeacherID)
	}
	s.notifier.Notify(reservation.StudentID, models.NotificationReservationResponse, map[string]interface{}{
		"reservation_id": reservation.ID,
		"status":         reservation.Status,
	})
	s.audit.Record(requesterUserID, models.AuditActionReservationRespond, "reservation", reservation.ID, map[string]interface{}{
		"decision": status,
	})
	return reservation, nil
}

// Cancel lets the owning student withdraw a pending request. Terminal.
func (s *ReservationService) Cancel(ctx context.Context, reservationID, requesterID string) (*models.Reservation, error) {
	reservation, err := s.load(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if reservation.StudentID != requesterID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "reservation belongs to another student")
	}
	if !reservation.Status.CanTransitionTo(models.ReservationCancelled) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only pending reservations can be cancelled")
	}

	if err := s.repo.UpdateStatus(ctx, reservation, models.ReservationCancelled, nil, nil); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "reservation was updated concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel reservation")
	}

	s.metrics.ObserveTransition(string(models.ReservationCancelled))
	s.cache.Invalidate(ctx, reservation.TeacherID)
	s.notifyTeacher(ctx, reservation, models.NotificationReservationCancelled)
	s.audit.Record(requesterID, models.AuditActionReservationCancel, "reservation", reservation.ID, nil)
	return reservation, nil
}

// Complete marks an accepted reservation whose end time has passed as
// completed. Driven by the external lesson-completion event.
func (s *ReservationService) Complete(ctx context.Context, reservationID string) (*models.Reservation, error) {
	reservation, err := s.load(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if !reservation.Status.CanTransitionTo(models.ReservationCompleted) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only accepted reservations can be completed")
	}
	if reservation.EndTime().After(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lesson has not ended yet")
	}

	if err := s.repo.UpdateStatus(ctx, reservation, models.ReservationCompleted, nil, nil); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "reservation was updated concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete reservation")
	}

	s.metrics.ObserveTransition(string(models.ReservationCompleted))
	s.notifier.Notify(reservation.StudentID, models.NotificationStatusChanged, map[string]interface{}{
		"reservation_id": reservation.ID,
		"status":         models.ReservationCompleted,
	})
	return reservation, nil
}

// AdminSetStatus forces any transition, bypassing role checks. The prior and
// next status are always recorded in the audit trail. Moving a reservation
// back into a blocking status still passes the overlap gate.
func (s *ReservationService) AdminSetStatus(ctx context.Context, reservationID, adminID string, rawStatus string, adminNotes *string) (*models.Reservation, error) {
	status, ok := models.ParseReservationStatus(rawStatus)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown reservation status")
	}

	reservation, err := s.load(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	priorStatus := reservation.Status

	if err := s.repo.UpdateStatus(ctx, reservation, status, nil, adminNotes); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			s.metrics.ObserveReservationConflict()
			return nil, appErrors.Clone(appErrors.ErrConflict, "target time slot is occupied by another reservation")
		}
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "reservation was updated concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to force reservation status")
	}

	s.metrics.ObserveTransition(string(status))
	s.cache.Invalidate(ctx, reservation.TeacherID)
	s.notifier.Notify(reservation.StudentID, models.NotificationStatusChanged, map[string]interface{}{
		"reservation_id": reservation.ID,
		"status":         status,
	})
	s.audit.Record(adminID, models.AuditActionReservationForce, "reservation", reservation.ID, map[string]interface{}{
		"prior_status": priorStatus,
		"next_status":  status,
	})
	return reservation, nil
}

// Get returns a reservation visible to the caller: the owning student, the
// owning teacher, or an admin.
func (s *ReservationService) Get(ctx context.Context, reservationID string, claims *models.JWTClaims) (*models.Reservation, error) {
	reservation, err := s.load(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if claims.Role == models.RoleAdmin || reservation.StudentID == claims.UserID {
		return reservation, nil
	}
	if claims.Role == models.RoleTeacher {
		teacher, err := s.teachers.FindByUserID(ctx, claims.UserID)
		if err == nil && teacher.ID == reservation.TeacherID {
			return reservation, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrForbidden, "reservation is not visible to the caller")
}

// ReservationListRequest describes list filters; scoping by role happens
// inside List.
type ReservationListRequest struct {
	Status   string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// List returns reservations scoped to the caller's role: students see their
// own, teachers see their own schedule, admins see everything.
func (s *ReservationService) List(ctx context.Context, claims *models.JWTClaims, req ReservationListRequest) ([]models.Reservation, *models.Pagination, error) {
	filter := models.ReservationFilter{
		From:     req.From,
		To:       req.To,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	if req.Status != "" {
		status, ok := models.ParseReservationStatus(req.Status)
		if !ok {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown reservation status")
		}
		filter.Status = status
	}

	switch claims.Role {
	case models.RoleStudent:
		filter.StudentID = claims.UserID
	case models.RoleTeacher:
		teacher, err := s.teachers.FindByUserID(ctx, claims.UserID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "caller has no teacher profile")
			}
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve teacher profile")
		}
		filter.TeacherID = teacher.ID
	case models.RoleAdmin:
		// Unrestricted.
	default:
		return nil, nil, appErrors.ErrForbidden
	}

	reservations, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reservations")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return reservations, pagination, nil
}

func (s *ReservationService) checkDuration(minutes int) error {
	if minutes < s.minDuration || minutes > s.maxDuration {
		return appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("duration_minutes must be between %d and %d", s.minDuration, s.maxDuration))
	}
	return nil
}

func (s *ReservationService) load(ctx context.Context, reservationID string) (*models.Reservation, error) {
	reservation, err := s.repo.FindByID(ctx, reservationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservation")
	}
	return reservation, nil
}

func (s *ReservationService) notifyTeacher(ctx context.Context, reservation *models.Reservation, notificationType string) {
	teacher, err := s.teachers.FindByID(ctx, reservation.TeacherID)
	if err != nil {
		s.logger.Warn("failed to resolve teacher for notification", zap.String("teacher_id", reservation.TeacherID), zap.Error(err))
		return
	}
	s.notifier.Notify(teacher.UserID, notificationType, map[string]interface{}{
		"reservation_id": reservation.ID,
		"status":         reservation.Status,
	})
}

// lessonPrice computes hourly_rate x duration/60, rounded to cents.
func lessonPrice(hourlyRate float64, durationMinutes int) float64 {
	price := hourlyRate * float64(durationMinutes) / 60
	return math.Round(price*100) / 100
}
