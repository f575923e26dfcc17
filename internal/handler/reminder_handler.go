package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	"github.com/noah-isme/lesson-scheduler-api/pkg/response"
)

type reminderSweeper interface {
	Sweep(ctx context.Context, now time.Time) models.ReminderSweepResult
}

// ReminderHandler lets administrators trigger a reminder sweep outside the cron schedule.
type ReminderHandler struct {
	service reminderSweeper
	now     func() time.Time
}

// NewReminderHandler builds the handler.
func NewReminderHandler(service reminderSweeper) *ReminderHandler {
	return &ReminderHandler{service: service, now: time.Now}
}

// Sweep godoc
// @Summary Run a reminder sweep now
// @Tags Reminders
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reminders/sweep [post]
func (h *ReminderHandler) Sweep(c *gin.Context) {
	result := h.service.Sweep(c.Request.Context(), h.now())
	response.JSON(c, http.StatusOK, result, nil)
}
