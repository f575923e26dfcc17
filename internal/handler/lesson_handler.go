package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lesson-scheduler-api/internal/dto"
	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	"github.com/noah-isme/lesson-scheduler-api/pkg/response"
)

type lessonScheduler interface {
	Book(ctx context.Context, studentID string, req dto.BookLessonRequest) (*models.Lesson, error)
	Cancel(ctx context.Context, studentID, lessonID string) (*models.Lesson, error)
	Reschedule(ctx context.Context, studentID, lessonID string, req dto.RescheduleLessonRequest) (*models.Lesson, error)
	Complete(ctx context.Context, instructorID, lessonID string, req dto.CompleteLessonRequest) (*models.Lesson, error)
}

// LessonHandler exposes the lesson lifecycle.
type LessonHandler struct {
	service lessonScheduler
}

// NewLessonHandler builds a lesson handler.
func NewLessonHandler(service lessonScheduler) *LessonHandler {
	return &LessonHandler{service: service}
}

// Book godoc
// @Summary Book a lesson
// @Description Books an instructor's weekly slot on a concrete date for the calling student.
// @Tags Lessons
// @Accept json
// @Produce json
// @Param payload body dto.BookLessonRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /lessons [post]
func (h *LessonHandler) Book(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.BookLessonRequest
	if !bindJSON(c, &req, "invalid booking payload") {
		return
	}
	lesson, err := h.service.Book(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lesson)
}

// Cancel godoc
// @Summary Cancel an upcoming lesson
// @Tags Lessons
// @Produce json
// @Param id path string true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lessons/{id}/cancel [post]
func (h *LessonHandler) Cancel(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	lesson, err := h.service.Cancel(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lesson, nil)
}

// Reschedule godoc
// @Summary Move an upcoming lesson to another slot
// @Tags Lessons
// @Accept json
// @Produce json
// @Param id path string true "Lesson ID"
// @Param payload body dto.RescheduleLessonRequest true "New slot"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /lessons/{id}/reschedule [post]
func (h *LessonHandler) Reschedule(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.RescheduleLessonRequest
	if !bindJSON(c, &req, "invalid reschedule payload") {
		return
	}
	lesson, err := h.service.Reschedule(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lesson, nil)
}

// Complete godoc
// @Summary Mark a lesson as completed
// @Tags Lessons
// @Accept json
// @Produce json
// @Param id path string true "Lesson ID"
// @Param payload body dto.CompleteLessonRequest false "Instructor notes"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lessons/{id}/complete [post]
func (h *LessonHandler) Complete(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.CompleteLessonRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req, "invalid completion payload") {
		return
	}
	lesson, err := h.service.Complete(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lesson, nil)
}
