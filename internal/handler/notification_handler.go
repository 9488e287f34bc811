package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/CanAhmet12/nazliyavuz-platform-sub000/internal/models"
	appErrors "github.com/CanAhmet12/nazliyavuz-platform-sub000/pkg/errors"
	"github.com/CanAhmet12/nazliyavuz-platform-sub000/pkg/response"
)

type notificationLister interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
}

type auditLister interface {
	ListByTarget(ctx context.Context, targetType, targetID string) ([]models.AuditLog, error)
}

// NotificationHandler exposes the caller's in-app notifications.
type NotificationHandler struct {
	notifications notificationLister
}

// NewNotificationHandler constructs handler.
func NewNotificationHandler(notifications notificationLister) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List godoc
// @Summary List the caller's notifications, newest first
// @Tags Notifications
// @Produce json
// @Param limit query int false "Maximum entries, default 50"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	notifications, err := h.notifications.ListByUser(c.Request.Context(), claims.UserID, limit)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications"))
		return
	}
	response.JSON(c, http.StatusOK, notifications, nil)
}

// AuditHandler exposes the audit trail to admins.
type AuditHandler struct {
	audit auditLister
}

// NewAuditHandler constructs handler.
func NewAuditHandler(audit auditLister) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// ReservationTrail godoc
// @Summary List the audit trail of a reservation (admin)
// @Tags Reservations
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/reservations/{id}/audit [get]
func (h *AuditHandler) ReservationTrail(c *gin.Context) {
	entries, err := h.audit.ListByTarget(c.Request.Context(), "reservation", c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit trail"))
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
