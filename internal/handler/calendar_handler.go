package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lesson-scheduler-api/internal/middleware"
	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	"github.com/noah-isme/lesson-scheduler-api/internal/service"
	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
	"github.com/noah-isme/lesson-scheduler-api/pkg/response"
)

type calendarService interface {
	Feed(ctx context.Context, role models.CalendarRole, userID string) ([]models.CalendarEntry, bool, error)
	Export(ctx context.Context, role models.CalendarRole, userID, format string) (*service.CalendarExport, error)
}

// CalendarHandler serves read-only lesson feeds.
type CalendarHandler struct {
	service calendarService
}

// NewCalendarHandler builds the handler.
func NewCalendarHandler(service calendarService) *CalendarHandler {
	return &CalendarHandler{service: service}
}

// Student godoc
// @Summary Calendar feed of the calling student
// @Tags Calendar
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /calendar/student [get]
func (h *CalendarHandler) Student(c *gin.Context) {
	h.feed(c, models.CalendarRoleStudent)
}

// Instructor godoc
// @Summary Calendar feed of the calling instructor
// @Tags Calendar
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /calendar/instructor [get]
func (h *CalendarHandler) Instructor(c *gin.Context) {
	h.feed(c, models.CalendarRoleInstructor)
}

func (h *CalendarHandler) feed(c *gin.Context, role models.CalendarRole) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	entries, cacheHit, err := h.service.Feed(c.Request.Context(), role, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, entries, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Download the caller's lessons
// @Tags Calendar
// @Produce text/csv
// @Produce application/pdf
// @Param role path string true "student or instructor"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /calendar/{role}/export [get]
func (h *CalendarHandler) Export(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	role := models.CalendarRole(c.Param("role"))
	if !role.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "role must be student or instructor"))
		return
	}
	if !canViewAs(claims.Role, role) {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	file, err := h.service.Export(c.Request.Context(), role, claims.UserID, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

func canViewAs(userRole models.UserRole, role models.CalendarRole) bool {
	switch userRole {
	case models.RoleAdmin:
		return true
	case models.RoleStudent:
		return role == models.CalendarRoleStudent
	case models.RoleInstructor:
		return role == models.CalendarRoleInstructor
	default:
		return false
	}
}
