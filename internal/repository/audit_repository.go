package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/CanAhmet12/nazliyavuz-platform-sub000/internal/models"
)

// AuditRepository persists audit trail records.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs an audit repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create inserts an audit record.
func (r *AuditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, actor_id, action, target_type, target_id, meta, created_at)
VALUES (:id, :actor_id, :action, :target_type, :target_id, :meta, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// ListByTarget returns audit records for one subject, newest first.
func (r *AuditRepository) ListByTarget(ctx context.Context, targetType, targetID string) ([]models.AuditLog, error) {
	const query = `SELECT id, actor_id, action, target_type, target_id, meta, created_at
FROM audit_logs WHERE target_type = $1 AND target_id = $2 ORDER BY created_at DESC`
	var entries []models.AuditLog
	if err := r.db.SelectContext(ctx, &entries, query, targetType, targetID); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return entries, nil
}
