package service

import (
	"context"
	"fmt"
	"time"

	"github.com/CanAhmet12/nazliyavuz-platform-sub000/internal/models"
)

type mockTeacherReader struct {
	teacherByID     *models.Teacher
	teacherByUserID *models.Teacher
	findByIDErr     error
	findByUserIDErr error
	offers          bool
	offersErr       error
}

func (m *mockTeacherReader) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if m.findByIDErr != nil {
		return nil, m.findByIDErr
	}
	return m.teacherByID, nil
}

func (m *mockTeacherReader) FindByUserID(ctx context.Context, userID string) (*models.Teacher, error) {
	if m.findByUserIDErr != nil {
		return nil, m.findByUserIDErr
	}
	return m.teacherByUserID, nil
}

func (m *mockTeacherReader) OffersCategory(ctx context.Context, teacherID, categoryID string) (bool, error) {
	if m.offersErr != nil {
		return false, m.offersErr
	}
	return m.offers, nil
}

type mockAvailabilityRepo struct {
	windows       []models.AvailabilityWindow
	windowByID    *models.AvailabilityWindow
	listErr       error
	findErr       error
	createErr     error
	updateErr     error
	deactivateErr error

	created       *models.AvailabilityWindow
	updated       *models.AvailabilityWindow
	deactivatedID string
}

func (m *mockAvailabilityRepo) ListActive(ctx context.Context, teacherID string, day *models.DayOfWeek) ([]models.AvailabilityWindow, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	if day == nil {
		return m.windows, nil
	}
	var filtered []models.AvailabilityWindow
	for _, w := range m.windows {
		if w.DayOfWeek == *day {
			filtered = append(filtered, w)
		}
	}
	return filtered, nil
}

func (m *mockAvailabilityRepo) FindByID(ctx context.Context, id string) (*models.AvailabilityWindow, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.windowByID, nil
}

func (m *mockAvailabilityRepo) Create(ctx context.Context, window *models.AvailabilityWindow) error {
	if m.createErr != nil {
		return m.createErr
	}
	window.ID = "win-new"
	m.created = window
	return nil
}

func (m *mockAvailabilityRepo) Update(ctx context.Context, window *models.AvailabilityWindow) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updated = window
	return nil
}

func (m *mockAvailabilityRepo) Deactivate(ctx context.Context, id string) error {
	if m.deactivateErr != nil {
		return m.deactivateErr
	}
	m.deactivatedID = id
	return nil
}

type mockReservationRepo struct {
	reservationByID *models.Reservation
	findErr         error
	listResult      []models.Reservation
	listTotal       int
	listErr         error
	blocking        []models.Reservation
	blockingErr     error
	createErr       error
	updateErr       error
	statusErr       error

	created    *models.Reservation
	updated    *models.Reservation
	lastFilter models.ReservationFilter
	statusSet  []models.ReservationStatus
}

func (m *mockReservationRepo) FindByID(ctx context.Context, id string) (*models.Reservation, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.reservationByID, nil
}

func (m *mockReservationRepo) List(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, int, error) {
	m.lastFilter = filter
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	return m.listResult, m.listTotal, nil
}

func (m *mockReservationRepo) ListBlockingBetween(ctx context.Context, teacherID string, from, to time.Time) ([]models.Reservation, error) {
	if m.blockingErr != nil {
		return nil, m.blockingErr
	}
	return m.blocking, nil
}

func (m *mockReservationRepo) CreateInSlot(ctx context.Context, reservation *models.Reservation) error {
	if m.createErr != nil {
		return m.createErr
	}
	reservation.ID = "res-new"
	m.created = reservation
	return nil
}

func (m *mockReservationRepo) UpdateInSlot(ctx context.Context, reservation *models.Reservation) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updated = reservation
	return nil
}

func (m *mockReservationRepo) UpdateStatus(ctx context.Context, reservation *models.Reservation, status models.ReservationStatus, teacherNotes, adminNotes *string) error {
	if m.statusErr != nil {
		return m.statusErr
	}
	reservation.Status = status
	if teacherNotes != nil {
		reservation.TeacherNotes = teacherNotes
	}
	if adminNotes != nil {
		reservation.AdminNotes = adminNotes
	}
	m.statusSet = append(m.statusSet, status)
	return nil
}

type auditCall struct {
	actorID    string
	action     string
	targetType string
	targetID   string
	meta       map[string]interface{}
}

type mockAudit struct {
	calls []auditCall
}

func (m *mockAudit) Record(actorID, action, targetType, targetID string, meta map[string]interface{}) {
	m.calls = append(m.calls, auditCall{actorID, action, targetType, targetID, meta})
}

type notifyCall struct {
	userID           string
	notificationType string
	payload          map[string]interface{}
}

type mockNotifier struct {
	calls []notifyCall
}

func (m *mockNotifier) Notify(userID, notificationType string, payload map[string]interface{}) {
	m.calls = append(m.calls, notifyCall{userID, notificationType, payload})
}

type mockCacheStore struct {
	entries          map[string][]byte
	deletedPatterns  []string
	invalidatedCount int
}

func (m *mockCacheStore) Get(ctx context.Context, key string, dest interface{}) error {
	return fmt.Errorf("cache miss")
}

func (m *mockCacheStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (m *mockCacheStore) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deletedPatterns = append(m.deletedPatterns, pattern)
	m.invalidatedCount++
	return nil
}
