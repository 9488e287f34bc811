// Package notification fans booking lifecycle events out to in-app
// notifications. Delivery is best-effort over a background worker queue so a
// slow or failing write never delays the booking request itself.
package notification

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/CanAhmet12/nazliyavuz-platform-sub000/internal/models"
	"github.com/CanAhmet12/nazliyavuz-platform-sub000/pkg/jobs"
)

type notificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Dispatcher persists notifications asynchronously.
type Dispatcher struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewDispatcher wires a notification store to a worker queue.
func NewDispatcher(store notificationStore, cfg jobs.QueueConfig) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{logger: logger}
	d.queue = jobs.NewQueue("notifications", func(ctx context.Context, job jobs.Job) error {
		n, ok := job.Payload.(*models.Notification)
		if !ok {
			d.logger.Error("unexpected notification job payload", zap.String("job_id", job.ID))
			return nil
		}
		return store.Create(ctx, n)
	}, cfg)
	return d
}

// Start launches the queue workers.
func (d *Dispatcher) Start(ctx context.Context) { d.queue.Start(ctx) }

// Stop drains the queue workers.
func (d *Dispatcher) Stop() { d.queue.Stop() }

// Notify enqueues a notification for the user. Fire-and-forget: errors are
// logged, never returned.
func (d *Dispatcher) Notify(userID, notificationType string, payload map[string]interface{}) {
	n := &models.Notification{
		UserID: userID,
		Type:   notificationType,
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			d.logger.Warn("failed to encode notification payload", zap.String("type", notificationType), zap.Error(err))
		} else {
			n.Payload = raw
		}
	}

	job := jobs.Job{ID: uuid.NewString(), Type: notificationType, Payload: n}
	if err := d.queue.Enqueue(job); err != nil {
		d.logger.Warn("failed to enqueue notification", zap.String("type", notificationType), zap.Error(err))
	}
}
