package models

import (
	"time"

	"github.com/CanAhmet12/nazliyavuz-platform-sub000/internal/interval"
)

// Slot is a derived, non-persisted candidate booking unit for a specific
// date. It carries both the wall-clock times shown to clients and the
// absolute instants used for conflict math.
type Slot struct {
	Date      string             `json:"date"`
	StartTime interval.TimeOfDay `json:"start_time"`
	EndTime   interval.TimeOfDay `json:"end_time"`
	StartsAt  time.Time          `json:"starts_at"`
	EndsAt    time.Time          `json:"ends_at"`
}

// Span returns the absolute interval occupied by the slot.
func (s Slot) Span() interval.Span {
	return interval.Span{Start: s.StartsAt, End: s.EndsAt}
}
