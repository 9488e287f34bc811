package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CanAhmet12/nazliyavuz-platform-sub000/internal/models"
	appErrors "github.com/CanAhmet12/nazliyavuz-platform-sub000/pkg/errors"
	"github.com/CanAhmet12/nazliyavuz-platform-sub000/pkg/response"
)

type categoryLister interface {
	ListCategories(ctx context.Context, teacherID string) ([]models.Category, error)
}

// TeacherHandler exposes the teacher read side consumed by booking clients.
type TeacherHandler struct {
	teachers categoryLister
}

// NewTeacherHandler constructs handler.
func NewTeacherHandler(teachers categoryLister) *TeacherHandler {
	return &TeacherHandler{teachers: teachers}
}

// Categories godoc
// @Summary List the categories a teacher offers
// @Tags Teachers
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{teacherId}/categories [get]
func (h *TeacherHandler) Categories(c *gin.Context) {
	categories, err := h.teachers.ListCategories(c.Request.Context(), c.Param("teacherId"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories"))
		return
	}
	response.JSON(c, http.StatusOK, categories, nil)
}
