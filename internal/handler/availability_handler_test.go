package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lesson-scheduler-api/internal/dto"
	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
)

type availabilityServiceMock struct {
	resp        *dto.AvailabilityResponse
	slots       []dto.OpenSlot
	err         error
	lastID      string
	lastQuery   dto.OpenSlotsQuery
	lastUpdate  dto.UpdateAvailabilityRequest
	slotsCalled bool
}

func (m *availabilityServiceMock) Get(ctx context.Context, instructorID string) (*dto.AvailabilityResponse, error) {
	m.lastID = instructorID
	return m.resp, m.err
}

func (m *availabilityServiceMock) Update(ctx context.Context, instructorID string, req dto.UpdateAvailabilityRequest) (*dto.AvailabilityResponse, error) {
	m.lastID = instructorID
	m.lastUpdate = req
	return m.resp, m.err
}

func (m *availabilityServiceMock) OpenSlots(ctx context.Context, instructorID string, q dto.OpenSlotsQuery) ([]dto.OpenSlot, error) {
	m.slotsCalled = true
	m.lastID = instructorID
	m.lastQuery = q
	return m.slots, m.err
}

func TestAvailabilityHandlerGetNotFound(t *testing.T) {
	mockSvc := &availabilityServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "instructor not found")}
	handler := NewAvailabilityHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/instructors/ins-9/availability", nil, studentClaims)
	c.Params = gin.Params{{Key: "id", Value: "ins-9"}}

	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ins-9", mockSvc.lastID)
}

func TestAvailabilityHandlerUpdateMineUsesCaller(t *testing.T) {
	mockSvc := &availabilityServiceMock{resp: &dto.AvailabilityResponse{InstructorID: "ins-1"}}
	handler := NewAvailabilityHandler(mockSvc)

	payload, _ := json.Marshal(dto.UpdateAvailabilityRequest{
		OnHoliday: true,
		Availability: models.AvailabilityTemplate{
			models.Monday: {Available: true, Start: "09:00", End: "17:00"},
		},
	})
	c, w := newTestContext(http.MethodPut, "/instructors/me/availability", payload, &models.JWTClaims{UserID: "ins-1", Role: models.RoleInstructor})

	handler.UpdateMine(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ins-1", mockSvc.lastID)
	assert.True(t, mockSvc.lastUpdate.OnHoliday)
	assert.Equal(t, "17:00", mockSvc.lastUpdate.Availability[models.Monday].End)
}

func TestAvailabilityHandlerSlots(t *testing.T) {
	mockSvc := &availabilityServiceMock{slots: []dto.OpenSlot{{Date: "2030-01-07", Timeslot: "monday:09:00-10:00"}}}
	handler := NewAvailabilityHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/instructors/ins-1/slots?from=2030-01-07&to=2030-01-13", nil, studentClaims)
	c.Params = gin.Params{{Key: "id", Value: "ins-1"}}

	handler.Slots(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.OpenSlotsQuery{From: "2030-01-07", To: "2030-01-13"}, mockSvc.lastQuery)
	assert.Contains(t, w.Body.String(), "monday:09:00-10:00")
}
