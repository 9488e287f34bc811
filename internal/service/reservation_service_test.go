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

	"github.com/CanAhmet12/nazliyavuz-platform-sub000/internal/models"
	"github.com/CanAhmet12/nazliyavuz-platform-sub000/internal/repository"
	appErrors "github.com/CanAhmet12/nazliyavuz-platform-sub000/pkg/errors"
)

type reservationFixture struct {
	repo     *mockReservationRepo
	teachers *mockTeacherReader
	notifier *mockNotifier
	audit    *mockAudit
	store    *mockCacheStore
	svc      *ReservationService
}

func newReservationFixture() *reservationFixture {
	f := &reservationFixture{
		repo:     &mockReservationRepo{},
		teachers: &mockTeacherReader{offers: true},
		notifier: &mockNotifier{},
		audit:    &mockAudit{},
		store:    &mockCacheStore{},
	}
	cache := NewSlotCache(f.store, time.Minute, zap.NewNop())
	f.svc = NewReservationService(f.repo, f.teachers, cache, f.notifier, f.audit, nil, 0, 0, validator.New(), zap.NewNop())
	f.svc.now = func() time.Time { return time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC) }
	return f
}

func pendingReservation() *models.Reservation {
	return &models.Reservation{
		ID:               "res-1",
		StudentID:        "stu-1",
		TeacherID:        "t1",
		CategoryID:       "cat-1",
		Subject:          "calculus",
		ProposedDatetime: time.Date(2026, 6, 2, 10, 0, 0, 0, time.UTC),
		DurationMinutes:  60,
		Price:            600,
		Status:           models.ReservationPending,
	}
}

func TestReservationCreate(t *testing.T) {
	f := newReservationFixture()
	f.teachers.teacherByID = &models.Teacher{ID: "t1", UserID: "u-teacher", HourlyRate: 600}

	res, err := f.svc.Create(context.Background(), "stu-1", CreateReservationRequest{
		TeacherID:        "t1",
		CategoryID:       "cat-1",
		Subject:          "calculus",
		ProposedDatetime: time.Date(2026, 6, 2, 10, 0, 0, 0, time.UTC),
		DurationMinutes:  90,
	})
	require.NoError(t, err)
	assert.Equal(t, "res-new", res.ID)
	assert.Equal(t, models.ReservationPending, res.Status)
	assert.Equal(t, 900.0, res.Price)

	assert.Equal(t, 1, f.store.invalidatedCount)
	require.Len(t, f.notifier.calls, 1)
	assert.Equal(t, "u-teacher", f.notifier.calls[0].userID)
	assert.Equal(t, models.NotificationReservationCreated, f.notifier.calls[0].notificationType)
	require.Len(t, f.audit.calls, 1)
	assert.Equal(t, models.AuditActionReservationCreate, f.audit.calls[0].action)
}

func TestReservationCreatePriceRounding(t *testing.T) {
	f := newReservationFixture()
	f.teachers.teacherByID = &models.Teacher{ID: "t1", HourlyRate: 100}

	res, err := f.svc.Create(context.Background(), "stu-1", CreateReservationRequest{
		TeacherID:        "t1",
		CategoryID:       "cat-1",
		Subject:          "violin",
		ProposedDatetime: time.Date(2026, 6, 2, 10, 0, 0, 0, time.UTC),
		DurationMinutes:  50,
	})
	require.NoError(t, err)
	assert.Equal(t, 83.33, res.Price)
}

func TestReservationCreateSlotTaken(t *testing.T) {
	f := newReservationFixture()
	f.teachers.teacherByID = &models.Teacher{ID: "t1", HourlyRate: 600}
	f.repo.createErr = repository.ErrSlotTaken

	_, err := f.svc.Create(context.Background(), "stu-1", CreateReservationRequest{
		TeacherID:        "t1",
		CategoryID:       "cat-1",
		Subject:          "calculus",
		ProposedDatetime: time.Date(2026, 6, 2, 10, 0, 0, 0, time.UTC),
		DurationMinutes:  60,
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
	assert.Empty(t, f.notifier.calls)
	assert.Zero(t, f.store.invalidatedCount)
}

func TestReservationCreateCategoryMismatch(t *testing.T) {
	f := newReservationFixture()
	f.teachers.teacherByID = &models.Teacher{ID: "t1", HourlyRate: 600}
	f.teachers.offers = false

	_, err := f.svc.Create(context.Background(), "stu-1", CreateReservationRequest{
		TeacherID:        "t1",
		CategoryID:       "cat-unknown",
		Subject:          "calculus",
		ProposedDatetime: time.Date(2026, 6, 2, 10, 0, 0, 0, time.UTC),
		DurationMinutes:  60,
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrCategoryMismatch))
	assert.Nil(t, f.repo.created)
}

func TestReservationCreatePastDatetime(t *testing.T) {
	f := newReservationFixture()
	f.teachers.teacherByID = &models.Teacher{ID: "t1", HourlyRate: 600}

	_, err := f.svc.Create(context.Background(), "stu-1", CreateReservationRequest{
		TeacherID:        "t1",
		CategoryID:       "cat-1",
		Subject:          "calculus",
		ProposedDatetime: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
		DurationMinutes:  60,
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestReservationCreateDurationBounds(t *testing.T) {
	f := newReservationFixture()
	f.teachers.teacherByID = &models.Teacher{ID: "t1", HourlyRate: 600}

	for _, minutes := range []int{15, 500} {
		_, err := f.svc.Create(context.Background(), "stu-1", CreateReservationRequest{
			TeacherID:        "t1",
			CategoryID:       "cat-1",
			Subject:          "calculus",
			ProposedDatetime: time.Date(2026, 6, 2, 10, 0, 0, 0, time.UTC),
			DurationMinutes:  minutes,
		})
		require.Error(t, err)
		assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	}
}

func TestReservationCreateConfiguredDurationBounds(t *testing.T) {
	f := newReservationFixture()
	f.teachers.teacherByID = &models.Teacher{ID: "t1", HourlyRate: 600}
	f.svc.minDuration = 45
	f.svc.maxDuration = 120

	req := CreateReservationRequest{
		TeacherID:        "t1",
		CategoryID:       "cat-1",
		Subject:          "calculus",
		ProposedDatetime: time.Date(2026, 6, 2, 10, 0, 0, 0, time.UTC),
		DurationMinutes:  30,
	}
	_, err := f.svc.Create(context.Background(), "stu-1", req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Contains(t, err.Error(), "between 45 and 120")

	req.DurationMinutes = 60
	_, err = f.svc.Create(context.Background(), "stu-1", req)
	require.NoError(t, err)
}

func TestReservationUpdateReRunsConflictGate(t *testing.T) {
	f := newReservationFixture()
	f.repo.reservationByID = pendingReservation()
	f.repo.updateErr = repository.ErrSlotTaken

	newTime := time.Date(2026, 6, 3, 10, 0, 0, 0, time.UTC)
	_, err := f.svc.Update(context.Background(), "res-1", "stu-1", UpdateReservationRequest{ProposedDatetime: &newTime})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestReservationUpdateStaleStatusConflict(t *testing.T) {
	f := newReservationFixture()
	f.repo.reservationByID = pendingReservation()
	f.repo.updateErr = repository.ErrStaleStatus

	// The read saw pending but a concurrent accept won the race inside
	// the critical section. The edit must surface as a retryable conflict.
	newTime := time.Date(2026, 6, 3, 10, 0, 0, 0, time.UTC)
	_, err := f.svc.Update(context.Background(), "res-1", "stu-1", UpdateReservationRequest{ProposedDatetime: &newTime})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
	assert.Zero(t, f.store.invalidatedCount)
	assert.Empty(t, f.notifier.calls)
}

func TestReservationUpdateRecomputesPrice(t *testing.T) {
	f := newReservationFixture()
	f.repo.reservationByID = pendingReservation()
	f.teachers.teacherByID = &models.Teacher{ID: "t1", HourlyRate: 600}

	minutes := 120
	res, err := f.svc.Update(context.Background(), "res-1", "stu-1", UpdateReservationRequest{DurationMinutes: &minutes})
	require.NoError(t, err)
	assert.Equal(t, 1200.0, res.Price)
}

func TestReservationUpdateNonPendingRejected(t *testing.T) {
	f := newReservationFixture()
	accepted := pendingReservation()
	accepted.Status = models.ReservationAccepted
	f.repo.reservationByID = accepted

	subject := "physics"
	_, err := f.svc.Update(context.Background(), "res-1", "stu-1", UpdateReservationRequest{Subject: &subject})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Nil(t, f.repo.updated)
}

func TestReservationUpdateWrongStudentForbidden(t *testing.T) {
	f := newReservationFixture()
	f.repo.reservationByID = pendingReservation()

	subject := "physics"
	_, err := f.svc.Update(context.Background(), "res-1", "stu-other", UpdateReservationRequest{Subject: &subject})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestReservationRespondAccept(t *testing.T) {
	f := newReservationFixture()
	f.repo.reservationByID = pendingReservation()
	f.teachers.teacherByUserID = &models.Teacher{ID: "t1", UserID: "u-teacher"}

	notes := "see you then"
	res, err := f.svc.Respond(context.Background(), "res-1", "u-teacher", "accepted", &notes)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationAccepted, res.Status)
	assert.Equal(t, &notes, res.TeacherNotes)

	// Accepting one request never touches sibling pendings.
	assert.Equal(t, []models.ReservationStatus{models.ReservationAccepted}, f.repo.statusSet)
	require.Len(t, f.notifier.calls, 1)
	assert.Equal(t, "stu-1", f.notifier.calls[0].userID)
	// Acceptance does not free slots, so the cache stays untouched.
	assert.Zero(t, f.store.invalidatedCount)
}

func TestReservationRespondStaleStatusConflict(t *testing.T) {
	f := newReservationFixture()
	f.repo.reservationByID = pendingReservation()
	f.teachers.teacherByUserID = &models.Teacher{ID: "t1", UserID: "u-teacher"}
	f.repo.statusErr = repository.ErrStaleStatus

	// A racing cancel landed between the read and the write. No
	// notification or audit entry may fire for the lost response.
	_, err := f.svc.Respond(context.Background(), "res-1", "u-teacher", "accepted", nil)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
	assert.Empty(t, f.notifier.calls)
	assert.Empty(t, f.audit.calls)
}

func TestReservationRespondRejectInvalidatesSlots(t *testing.T) {
	f := newReservationFixture()
	f.repo.reservationByID = pendingReservation()
	f.teachers.teacherByUserID = &models.Teacher{ID: "t1", UserID: "u-teacher"}

	res, err := f.svc.Respond(context.Background(), "res-1", "u-teacher", "rejected", nil)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationRejected, res.Status)
	assert.Equal(t, 1, f.store.invalidatedCount)
}

func TestReservationRespondWrongTeacherForbidden(t *testing.T) {
	f := newReservationFixture()
	f.repo.reservationByID = pendingReservation()
	f.teachers.teacherByUserID = &models.Teacher{ID: "t-other", UserID: "u-other"}

	_, err := f.svc.Respond(context.Background(), "res-1", "u-other", "accepted", nil)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestReservationRespondNonPending(t *testing.T) {
	f := newReservationFixture()
	cancelled := pendingReservation()
	cancelled.Status = models.ReservationCancelled
	f.repo.reservationByID = cancelled
	f.teachers.teacherByUserID = &models.Teacher{ID: "t1", UserID: "u-teacher"}

	_, err := f.svc.Respond(context.Background(), "res-1", "u-teacher", "accepted", nil)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestReservationRespondBadDecision(t *testing.T) {
	f := newReservationFixture()
	_, err := f.svc.Respond(context.Background(), "res-1", "u-teacher", "completed", nil)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestReservationCancel(t *testing.T) {
	f := newReservationFixture()
	f.repo.reservationByID = pendingReservation()
	f.teachers.teacherByID = &models.Teacher{ID: "t1", UserID: "u-teacher"}

	res, err := f.svc.Cancel(context.Background(), "res-1", "stu-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReservationCancelled, res.Status)
	assert.Equal(t, 1, f.store.invalidatedCount)
	require.Len(t, f.notifier.calls, 1)
	assert.Equal(t, "u-teacher", f.notifier.calls[0].userID)
}

func TestReservationCancelWrongStudent(t *testing.T) {
	f := newReservationFixture()
	f.repo.reservationByID = pendingReservation()

	_, err := f.svc.Cancel(context.Background(), "res-1", "stu-other")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestReservationComplete(t *testing.T) {
	f := newReservationFixture()
	accepted := pendingReservation()
	accepted.Status = models.ReservationAccepted
	accepted.ProposedDatetime = time.Date(2026, 6, 1, 6, 0, 0, 0, time.UTC)
	f.repo.reservationByID = accepted

	res, err := f.svc.Complete(context.Background(), "res-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReservationCompleted, res.Status)
}

func TestReservationCompleteBeforeEnd(t *testing.T) {
	f := newReservationFixture()
	accepted := pendingReservation()
	accepted.Status = models.ReservationAccepted
	f.repo.reservationByID = accepted

	_, err := f.svc.Complete(context.Background(), "res-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestReservationCompletePendingRejected(t *testing.T) {
	f := newReservationFixture()
	f.repo.reservationByID = pendingReservation()

	_, err := f.svc.Complete(context.Background(), "res-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestReservationAdminSetStatus(t *testing.T) {
	f := newReservationFixture()
	cancelled := pendingReservation()
	cancelled.Status = models.ReservationCancelled
	f.repo.reservationByID = cancelled

	notes := "restored after support ticket"
	res, err := f.svc.AdminSetStatus(context.Background(), "res-1", "admin-1", "accepted", &notes)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationAccepted, res.Status)
	assert.Equal(t, &notes, res.AdminNotes)

	require.Len(t, f.audit.calls, 1)
	call := f.audit.calls[0]
	assert.Equal(t, models.AuditActionReservationForce, call.action)
	assert.Equal(t, models.ReservationCancelled, call.meta["prior_status"])
	assert.Equal(t, models.ReservationAccepted, call.meta["next_status"])
}

func TestReservationAdminSetStatusSlotOccupied(t *testing.T) {
	f := newReservationFixture()
	cancelled := pendingReservation()
	cancelled.Status = models.ReservationCancelled
	f.repo.reservationByID = cancelled
	f.repo.statusErr = repository.ErrSlotTaken

	_, err := f.svc.AdminSetStatus(context.Background(), "res-1", "admin-1", "accepted", nil)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestReservationGetVisibility(t *testing.T) {
	f := newReservationFixture()
	f.repo.reservationByID = pendingReservation()
	f.teachers.teacherByUserID = &models.Teacher{ID: "t1", UserID: "u-teacher"}

	_, err := f.svc.Get(context.Background(), "res-1", &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), "res-1", &models.JWTClaims{UserID: "u-teacher", Role: models.RoleTeacher})
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), "res-1", &models.JWTClaims{UserID: "someone", Role: models.RoleAdmin})
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), "res-1", &models.JWTClaims{UserID: "stu-other", Role: models.RoleStudent})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestReservationListScoping(t *testing.T) {
	f := newReservationFixture()
	f.teachers.teacherByUserID = &models.Teacher{ID: "t1", UserID: "u-teacher"}

	_, _, err := f.svc.List(context.Background(), &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent}, ReservationListRequest{})
	require.NoError(t, err)
	assert.Equal(t, "stu-1", f.repo.lastFilter.StudentID)
	assert.Empty(t, f.repo.lastFilter.TeacherID)

	_, _, err = f.svc.List(context.Background(), &models.JWTClaims{UserID: "u-teacher", Role: models.RoleTeacher}, ReservationListRequest{})
	require.NoError(t, err)
	assert.Equal(t, "t1", f.repo.lastFilter.TeacherID)

	_, _, err = f.svc.List(context.Background(), &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin}, ReservationListRequest{Status: "pending"})
	require.NoError(t, err)
	assert.Empty(t, f.repo.lastFilter.StudentID)
	assert.Equal(t, models.ReservationPending, f.repo.lastFilter.Status)
}

func TestReservationListNoTeacherProfile(t *testing.T) {
	f := newReservationFixture()
	f.teachers.findByUserIDErr = sql.ErrNoRows

	_, _, err := f.svc.List(context.Background(), &models.JWTClaims{UserID: "u1", Role: models.RoleTeacher}, ReservationListRequest{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestReservationListDefaultsPagination(t *testing.T) {
	f := newReservationFixture()
	f.repo.listResult = []models.Reservation{*pendingReservation()}
	f.repo.listTotal = 1

	_, pagination, err := f.svc.List(context.Background(), &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent}, ReservationListRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 50, pagination.PageSize)
	assert.Equal(t, 1, pagination.TotalCount)
}
