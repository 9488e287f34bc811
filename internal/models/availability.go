package models

import (
	"fmt"
	"time"

	"github.com/CanAhmet12/nazliyavuz-platform-sub000/internal/interval"
)

// DayOfWeek identifies a recurring weekday for availability windows.
type DayOfWeek string

const (
	Monday    DayOfWeek = "MONDAY"
	Tuesday   DayOfWeek = "TUESDAY"
	Wednesday DayOfWeek = "WEDNESDAY"
	Thursday  DayOfWeek = "THURSDAY"
	Friday    DayOfWeek = "FRIDAY"
	Saturday  DayOfWeek = "SATURDAY"
	Sunday    DayOfWeek = "SUNDAY"
)

var weekdayToDay = map[time.Weekday]DayOfWeek{
	time.Monday:    Monday,
	time.Tuesday:   Tuesday,
	time.Wednesday: Wednesday,
	time.Thursday:  Thursday,
	time.Friday:    Friday,
	time.Saturday:  Saturday,
	time.Sunday:    Sunday,
}

// DayOfWeekFromTime maps a time.Weekday onto the persisted enum.
func DayOfWeekFromTime(w time.Weekday) DayOfWeek {
	return weekdayToDay[w]
}

// ParseDayOfWeek validates a raw day-of-week string.
func ParseDayOfWeek(raw string) (DayOfWeek, error) {
	day := DayOfWeek(raw)
	switch day {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return day, nil
	default:
		return "", fmt.Errorf("invalid day of week %q", raw)
	}
}

// AvailabilityWindow is a recurring weekly interval during which a teacher
// accepts bookings. Windows are soft-deactivated rather than deleted so past
// reservations keep their context.
type AvailabilityWindow struct {
	ID          string             `db:"id" json:"id"`
	TeacherID   string             `db:"teacher_id" json:"teacher_id"`
	DayOfWeek   DayOfWeek          `db:"day_of_week" json:"day_of_week"`
	StartTime   interval.TimeOfDay `db:"start_time" json:"start_time"`
	EndTime     interval.TimeOfDay `db:"end_time" json:"end_time"`
	IsAvailable bool               `db:"is_available" json:"is_available"`
	CreatedAt   time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `db:"updated_at" json:"updated_at"`
}

// OverlapsWindow reports whether two windows on the same day intersect,
// compared as half-open time-of-day intervals.
func (w AvailabilityWindow) OverlapsWindow(other AvailabilityWindow) bool {
	if w.DayOfWeek != other.DayOfWeek {
		return false
	}
	return interval.Overlaps(w.StartTime, w.EndTime, other.StartTime, other.EndTime)
}
