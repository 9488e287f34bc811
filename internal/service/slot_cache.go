package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/CanAhmet12/nazliyavuz-platform-sub000/internal/models"
	appErrors "github.com/CanAhmet12/nazliyavuz-platform-sub000/pkg/errors"
)

type cacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// SlotCache caches generated slot lists per teacher/date/granularity. Every
// availability or reservation write for a teacher invalidates that teacher's
// entries, so cached data can never outlive the schedule it was derived from.
type SlotCache struct {
	store  cacheStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewSlotCache constructs a slot cache. A nil store disables caching.
func NewSlotCache(store cacheStore, ttl time.Duration, logger *zap.Logger) *SlotCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotCache{store: store, ttl: ttl, logger: logger}
}

func slotKey(teacherID, date string, slotMinutes int) string {
	return fmt.Sprintf("slots:%s:%s:%d", teacherID, date, slotMinutes)
}

// Get returns the cached slots and whether the lookup hit.
func (c *SlotCache) Get(ctx context.Context, teacherID, date string, slotMinutes int) ([]models.Slot, bool) {
	if c == nil || c.store == nil {
		return nil, false
	}
	var slots []models.Slot
	err := c.store.Get(ctx, slotKey(teacherID, date, slotMinutes), &slots)
	if err != nil {
		if !appErrors.Is(err, appErrors.ErrCacheMiss) {
			c.logger.Warn("slot cache read failed", zap.String("teacher_id", teacherID), zap.Error(err))
		}
		return nil, false
	}
	return slots, true
}

// Put stores a generated slot list.
func (c *SlotCache) Put(ctx context.Context, teacherID, date string, slotMinutes int, slots []models.Slot) {
	if c == nil || c.store == nil {
		return
	}
	if err := c.store.Set(ctx, slotKey(teacherID, date, slotMinutes), slots, c.ttl); err != nil {
		c.logger.Warn("slot cache write failed", zap.String("teacher_id", teacherID), zap.Error(err))
	}
}

// Invalidate drops every cached slot list for the teacher.
func (c *SlotCache) Invalidate(ctx context.Context, teacherID string) {
	if c == nil || c.store == nil {
		return
	}
	if err := c.store.DeleteByPattern(ctx, fmt.Sprintf("slots:%s:*", teacherID)); err != nil {
		c.logger.Warn("slot cache invalidation failed", zap.String("teacher_id", teacherID), zap.Error(err))
	}
}
