package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lesson-scheduler-api/internal/dto"
	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
	"github.com/noah-isme/lesson-scheduler-api/pkg/response"
)

type availabilityService interface {
	Get(ctx context.Context, instructorID string) (*dto.AvailabilityResponse, error)
	Update(ctx context.Context, instructorID string, req dto.UpdateAvailabilityRequest) (*dto.AvailabilityResponse, error)
	OpenSlots(ctx context.Context, instructorID string, q dto.OpenSlotsQuery) ([]dto.OpenSlot, error)
}

// AvailabilityHandler exposes instructor weekly templates and open slots.
type AvailabilityHandler struct {
	service availabilityService
}

// NewAvailabilityHandler builds the handler.
func NewAvailabilityHandler(service availabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

// Get godoc
// @Summary Get an instructor's weekly availability
// @Tags Availability
// @Produce json
// @Param id path string true "Instructor ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /instructors/{id}/availability [get]
func (h *AvailabilityHandler) Get(c *gin.Context) {
	result, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// UpdateMine godoc
// @Summary Replace the calling instructor's weekly availability
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body dto.UpdateAvailabilityRequest true "Availability template"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /instructors/me/availability [put]
func (h *AvailabilityHandler) UpdateMine(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.UpdateAvailabilityRequest
	if !bindJSON(c, &req, "invalid availability payload") {
		return
	}
	result, err := h.service.Update(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Slots godoc
// @Summary List open slots of an instructor
// @Description Projects the weekly template onto [from, to] and removes booked lessons.
// @Tags Availability
// @Produce json
// @Param id path string true "Instructor ID"
// @Param from query string true "First date (YYYY-MM-DD)"
// @Param to query string true "Last date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /instructors/{id}/slots [get]
func (h *AvailabilityHandler) Slots(c *gin.Context) {
	var q dto.OpenSlotsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return
	}
	slots, err := h.service.OpenSlots(c.Request.Context(), c.Param("id"), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}
