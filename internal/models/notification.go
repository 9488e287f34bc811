package models

import "time"

// Notification types emitted by the booking lifecycle.
const (
	NotificationReservationCreated   = "reservation_created"
	NotificationReservationUpdated   = "reservation_updated"
	NotificationReservationResponse  = "reservation_response"
	NotificationReservationCancelled = "reservation_cancelled"
	NotificationStatusChanged        = "reservation_status_changed"
)

// Notification is an in-app notification persisted for later delivery.
// Delivery transports (push, email) live outside the booking engine.
type Notification struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	Type      string     `db:"type" json:"type"`
	Payload   []byte     `db:"payload" json:"payload"`
	ReadAt    *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
