package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/CanAhmet12/nazliyavuz-platform-sub000/internal/service"
	appErrors "github.com/CanAhmet12/nazliyavuz-platform-sub000/pkg/errors"
	"github.com/CanAhmet12/nazliyavuz-platform-sub000/pkg/response"
)

// SlotHandler exposes slot generation endpoints.
type SlotHandler struct {
	slots *service.SlotService
}

// NewSlotHandler constructs handler.
func NewSlotHandler(slots *service.SlotService) *SlotHandler {
	return &SlotHandler{slots: slots}
}

// List godoc
// @Summary List free bookable slots for a teacher on a date
// @Tags Slots
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Param date query string true "Calendar date (YYYY-MM-DD)"
// @Param slotMinutes query int false "Slot granularity in minutes, default 60"
// @Success 200 {object} response.Envelope
// @Router /teachers/{teacherId}/slots [get]
func (h *SlotHandler) List(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date query parameter is required"))
		return
	}
	slotMinutes := 0
	if raw := c.Query("slotMinutes"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "slotMinutes must be a positive integer"))
			return
		}
		slotMinutes = parsed
	}

	slots, err := h.slots.GenerateSlots(c.Request.Context(), c.Param("teacherId"), date, slotMinutes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}
