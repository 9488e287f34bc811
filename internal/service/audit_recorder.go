package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/CanAhmet12/nazliyavuz-platform-sub000/internal/models"
	"github.com/CanAhmet12/nazliyavuz-platform-sub000/pkg/jobs"
)

type auditStore interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// AuditRecorder persists audit trail entries through the background queue.
// A failed write retries in the queue and never surfaces to the caller.
type AuditRecorder struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAuditRecorder wires an audit store to a worker queue.
func NewAuditRecorder(store auditStore, cfg jobs.QueueConfig) *AuditRecorder {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &AuditRecorder{logger: logger}
	r.queue = jobs.NewQueue("audit", func(ctx context.Context, job jobs.Job) error {
		entry, ok := job.Payload.(*models.AuditLog)
		if !ok {
			r.logger.Error("unexpected audit job payload", zap.String("job_id", job.ID))
			return nil
		}
		return store.Create(ctx, entry)
	}, cfg)
	return r
}

// Start launches the queue workers.
func (r *AuditRecorder) Start(ctx context.Context) { r.queue.Start(ctx) }

// Stop drains the queue workers.
func (r *AuditRecorder) Stop() { r.queue.Stop() }

// Record enqueues an audit entry. Fire-and-forget.
func (r *AuditRecorder) Record(actorID, action, targetType, targetID string, meta map[string]interface{}) {
	entry := &models.AuditLog{
		Action:     action,
		TargetType: targetType,
	}
	if actorID != "" {
		entry.ActorID = &actorID
	}
	if targetID != "" {
		entry.TargetID = &targetID
	}
	if meta != nil {
		raw, err := json.Marshal(meta)
		if err != nil {
			r.logger.Warn("failed to encode audit meta", zap.String("action", action), zap.Error(err))
		} else {
			entry.Meta = raw
		}
	}

	job := jobs.Job{ID: uuid.NewString(), Type: action, Payload: entry}
	if err := r.queue.Enqueue(job); err != nil {
		r.logger.Warn("failed to enqueue audit entry", zap.String("action", action), zap.Error(err))
	}
}
