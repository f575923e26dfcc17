package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lesson-scheduler-api/internal/dto"
	"github.com/noah-isme/lesson-scheduler-api/pkg/response"
)

type reminderPreferenceService interface {
	Get(ctx context.Context, studentID string) (*dto.ReminderPreferencesResponse, error)
	Update(ctx context.Context, studentID string, req dto.UpdateReminderPreferencesRequest) (*dto.ReminderPreferencesResponse, error)
}

// ReminderPreferenceHandler lets students tune their lesson reminders.
type ReminderPreferenceHandler struct {
	service reminderPreferenceService
}

// NewReminderPreferenceHandler builds the handler.
func NewReminderPreferenceHandler(service reminderPreferenceService) *ReminderPreferenceHandler {
	return &ReminderPreferenceHandler{service: service}
}

// GetMine godoc
// @Summary Get the calling student's reminder preferences
// @Tags Reminders
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/me/reminders [get]
func (h *ReminderPreferenceHandler) GetMine(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	prefs, err := h.service.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, prefs, nil)
}

// UpdateMine godoc
// @Summary Update the calling student's reminder preferences
// @Tags Reminders
// @Accept json
// @Produce json
// @Param payload body dto.UpdateReminderPreferencesRequest true "Reminder preferences"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students/me/reminders [put]
func (h *ReminderPreferenceHandler) UpdateMine(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.UpdateReminderPreferencesRequest
	if !bindJSON(c, &req, "invalid reminder preferences payload") {
		return
	}
	prefs, err := h.service.Update(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, prefs, nil)
}
