package models

import "time"

// Teacher is the read-side projection of a tutor profile. The profile itself
// is owned by the accounts service; the booking engine only reads the fields
// it needs for pricing and slot generation.
type Teacher struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	FullName   string    `db:"full_name" json:"full_name"`
	HourlyRate float64   `db:"hourly_rate" json:"hourly_rate"`
	Timezone   string    `db:"timezone" json:"timezone"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Location resolves the teacher's reference timezone, falling back to the
// provided default when unset or unparseable.
func (t Teacher) Location(fallback *time.Location) *time.Location {
	if t.Timezone != "" {
		if loc, err := time.LoadLocation(t.Timezone); err == nil {
			return loc
		}
	}
	return fallback
}

// Category is a lesson category a teacher can offer (e.g. mathematics,
// violin).
type Category struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Slug      string    `db:"slug" json:"slug"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
