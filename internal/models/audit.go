package models

import "time"

// AuditAction constants represent booking actions recorded in the audit
// trail.
const (
	AuditActionReservationCreate  = "RESERVATION_CREATE"
	AuditActionReservationUpdate  = "RESERVATION_UPDATE"
	AuditActionReservationRespond = "RESERVATION_RESPOND"
	AuditActionReservationCancel  = "RESERVATION_CANCEL"
	AuditActionReservationForce   = "RESERVATION_FORCE_STATUS"
	AuditActionAvailabilityCreate = "AVAILABILITY_CREATE"
	AuditActionAvailabilityUpdate = "AVAILABILITY_UPDATE"
	AuditActionAvailabilityRemove = "AVAILABILITY_REMOVE"
)

// AuditLog represents an audit trail record. Writes are best-effort and never
// block or roll back the transaction they describe.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	ActorID    *string   `db:"actor_id" json:"actor_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	TargetType string    `db:"target_type" json:"target_type"`
	TargetID   *string   `db:"target_id" json:"target_id,omitempty"`
	Meta       []byte    `db:"meta" json:"meta,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
