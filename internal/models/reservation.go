package models

import (
	"time"

	"github.com/CanAhmet12/nazliyavuz-platform-sub000/internal/interval"
)

// ReservationStatus is the closed set of lifecycle states for a reservation.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationAccepted  ReservationStatus = "accepted"
	ReservationRejected  ReservationStatus = "rejected"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationCompleted ReservationStatus = "completed"
)

// ParseReservationStatus validates a raw status string.
func ParseReservationStatus(raw string) (ReservationStatus, bool) {
	status := ReservationStatus(raw)
	switch status {
	case ReservationPending, ReservationAccepted, ReservationRejected, ReservationCancelled, ReservationCompleted:
		return status, true
	default:
		return "", false
	}
}

// reservationTransitions is the explicit transition table. Anything not listed
// here is rejected for non-admin actors.
var reservationTransitions = map[ReservationStatus]map[ReservationStatus]struct{}{
	ReservationPending: {
		ReservationAccepted:  {},
		ReservationRejected:  {},
		ReservationCancelled: {},
	},
	ReservationAccepted: {
		ReservationCompleted: {},
	},
}

// CanTransitionTo reports whether the transition is allowed by the lifecycle
// table.
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	allowed, ok := reservationTransitions[s]
	if !ok {
		return false
	}
	_, ok = allowed[next]
	return ok
}

// Terminal reports whether the status ends the lifecycle.
func (s ReservationStatus) Terminal() bool {
	switch s {
	case ReservationRejected, ReservationCancelled, ReservationCompleted:
		return true
	default:
		return false
	}
}

// Blocking reports whether a reservation in this status occupies its time
// slot for conflict purposes.
func (s ReservationStatus) Blocking() bool {
	return s == ReservationPending || s == ReservationAccepted
}

// Duration bounds for a single lesson.
const (
	MinLessonMinutes = 30
	MaxLessonMinutes = 480
)

// Reservation is a single proposed or confirmed lesson booking between a
// student and a teacher.
type Reservation struct {
	ID               string            `db:"id" json:"id"`
	StudentID        string            `db:"student_id" json:"student_id"`
	TeacherID        string            `db:"teacher_id" json:"teacher_id"`
	CategoryID       string            `db:"category_id" json:"category_id"`
	Subject          string            `db:"subject" json:"subject"`
	ProposedDatetime time.Time         `db:"proposed_datetime" json:"proposed_datetime"`
	DurationMinutes  int               `db:"duration_minutes" json:"duration_minutes"`
	Price            float64           `db:"price" json:"price"`
	Status           ReservationStatus `db:"status" json:"status"`
	Notes            *string           `db:"notes" json:"notes,omitempty"`
	TeacherNotes     *string           `db:"teacher_notes" json:"teacher_notes,omitempty"`
	AdminNotes       *string           `db:"admin_notes" json:"admin_notes,omitempty"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updated_at"`
}

// Span returns the occupied half-open interval [start, start+duration).
func (r Reservation) Span() interval.Span {
	return interval.NewSpan(r.ProposedDatetime, time.Duration(r.DurationMinutes)*time.Minute)
}

// EndTime returns the instant the lesson ends.
func (r Reservation) EndTime() time.Time {
	return r.Span().End
}

// ReservationFilter describes query params for listing reservations.
type ReservationFilter struct {
	StudentID string
	TeacherID string
	Status    ReservationStatus
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}
