package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lesson-scheduler-api/internal/dto"
	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	"github.com/noah-isme/lesson-scheduler-api/pkg/config"
	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
)

func newAvailabilityFixture(instructor *models.Instructor, busy ...models.Lesson) (*AvailabilityService, *availabilityRepoStub) {
	repo := &availabilityRepoStub{instructor: instructor}
	svc := NewAvailabilityService(repo, &upcomingStub{lessons: busy}, config.SchedulingConfig{Timezone: "UTC"}, nil, nil)
	return svc, repo
}

func TestGetAvailabilityNormalisesWeekdays(t *testing.T) {
	template := models.AvailabilityTemplate{models.Monday: {Available: true, Start: "09:00", End: "12:00"}}
	svc, _ := newAvailabilityFixture(&models.Instructor{ID: "ins-1", Active: true, Availability: &template})

	resp, err := svc.Get(context.Background(), "ins-1")
	require.NoError(t, err)
	assert.Len(t, resp.Availability, 7)
	assert.True(t, resp.Availability[models.Monday].Available)
	assert.False(t, resp.Availability[models.Sunday].Available)
}

func TestGetAvailabilityUnknownInstructor(t *testing.T) {
	svc, _ := newAvailabilityFixture(nil)
	_, err := svc.Get(context.Background(), "missing")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestUpdateAvailabilityValidatesWindows(t *testing.T) {
	svc, repo := newAvailabilityFixture(&models.Instructor{ID: "ins-1", Active: true})

	_, err := svc.Update(context.Background(), "ins-1", dto.UpdateAvailabilityRequest{
		Availability: models.AvailabilityTemplate{models.Monday: {Available: true, Start: "12:00", End: "09:00"}},
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Nil(t, repo.saved)

	_, err = svc.Update(context.Background(), "ins-1", dto.UpdateAvailabilityRequest{
		Availability: models.AvailabilityTemplate{"funday": {Available: true, Start: "09:00", End: "10:00"}},
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestUpdateAvailabilityPersistsNormalisedTemplate(t *testing.T) {
	svc, repo := newAvailabilityFixture(&models.Instructor{ID: "ins-1", Active: true})

	resp, err := svc.Update(context.Background(), "ins-1", dto.UpdateAvailabilityRequest{
		OnHoliday:    true,
		Availability: models.AvailabilityTemplate{models.Friday: {Available: true, Start: "13:00", End: "17:00"}},
	})
	require.NoError(t, err)
	require.NotNil(t, repo.saved)
	assert.Len(t, repo.saved, 7)
	assert.True(t, repo.onHoliday)
	assert.True(t, resp.OnHoliday)
	assert.Equal(t, "13:00", resp.Availability[models.Friday].Start)
}

func TestOpenSlotsSubtractsUpcomingLessons(t *testing.T) {
	template := models.AvailabilityTemplate{models.Monday: {Available: true, Start: "09:00", End: "12:00"}}
	busyStart := monday.Add(10 * time.Hour)
	busyEnd := busyStart.Add(time.Hour)
	svc, _ := newAvailabilityFixture(
		&models.Instructor{ID: "ins-1", Active: true, Availability: &template},
		models.Lesson{ID: "l-1", InstructorID: "ins-1", StartAt: busyStart, EndAt: &busyEnd, Status: models.LessonStatusUpcoming},
	)

	slots, err := svc.OpenSlots(context.Background(), "ins-1", dto.OpenSlotsQuery{From: "2030-01-07", To: "2030-01-13"})
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, dto.OpenSlot{Date: "2030-01-07", Weekday: "monday", Start: "09:00", End: "10:00", Timeslot: "monday:09:00-10:00"}, slots[0])
	assert.Equal(t, "monday:11:00-12:00", slots[1].Timeslot)
}

func TestOpenSlotsForUnbookableInstructor(t *testing.T) {
	template := models.AvailabilityTemplate{models.Monday: {Available: true, Start: "09:00", End: "12:00"}}
	svc, _ := newAvailabilityFixture(&models.Instructor{ID: "ins-1", Active: true, OnHoliday: true, Availability: &template})

	slots, err := svc.OpenSlots(context.Background(), "ins-1", dto.OpenSlotsQuery{From: "2030-01-07", To: "2030-01-07"})
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestOpenSlotsRangeLimits(t *testing.T) {
	svc, _ := newAvailabilityFixture(&models.Instructor{ID: "ins-1", Active: true})

	_, err := svc.OpenSlots(context.Background(), "ins-1", dto.OpenSlotsQuery{From: "2030-01-10", To: "2030-01-07"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.OpenSlots(context.Background(), "ins-1", dto.OpenSlotsQuery{From: "2030-01-01", To: "2030-03-01"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestOpenSlotsRangeLimitCountsCalendarDays(t *testing.T) {
	repo := &availabilityRepoStub{instructor: &models.Instructor{ID: "ins-1", Active: true}}
	svc := NewAvailabilityService(repo, &upcomingStub{}, config.SchedulingConfig{Timezone: "Europe/London"}, nil, nil)

	// 2030-03-31 moves London clocks forward, so this range is an hour short of 31 full days.
	_, err := svc.OpenSlots(context.Background(), "ins-1", dto.OpenSlotsQuery{From: "2030-03-10", To: "2030-04-10"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	slots, err := svc.OpenSlots(context.Background(), "ins-1", dto.OpenSlotsQuery{From: "2030-03-10", To: "2030-04-09"})
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestSubtractBusy(t *testing.T) {
	start := monday.Add(9 * time.Hour)
	end := monday.Add(12 * time.Hour)
	at := func(h, m int) time.Time { return monday.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }
	lesson := func(from, to time.Time) models.Lesson { return models.Lesson{StartAt: from, EndAt: &to} }

	free := subtractBusy(start, end, []models.Lesson{
		lesson(at(8, 30), at(9, 30)),
		lesson(at(9, 30), at(10, 0)),
		lesson(at(11, 0), at(13, 0)),
	})
	require.Len(t, free, 1)
	assert.Equal(t, at(10, 0), free[0][0])
	assert.Equal(t, at(11, 0), free[0][1])

	assert.Equal(t, [][2]time.Time{{start, end}}, subtractBusy(start, end, nil))
}

type availabilityRepoStub struct {
	instructor *models.Instructor
	saved      models.AvailabilityTemplate
	onHoliday  bool
}

func (s *availabilityRepoStub) FindInstructor(ctx context.Context, id string) (*models.Instructor, error) {
	if s.instructor == nil || s.instructor.ID != id {
		return nil, sql.ErrNoRows
	}
	copied := *s.instructor
	return &copied, nil
}

func (s *availabilityRepoStub) UpdateAvailability(ctx context.Context, id string, template models.AvailabilityTemplate, onHoliday bool) error {
	if s.instructor == nil || s.instructor.ID != id {
		return sql.ErrNoRows
	}
	s.saved = template
	s.onHoliday = onHoliday
	s.instructor.Availability = &template
	s.instructor.OnHoliday = onHoliday
	return nil
}

type upcomingStub struct {
	lessons []models.Lesson
}

func (s *upcomingStub) ListUpcomingBetween(ctx context.Context, instructorID string, from, to time.Time) ([]models.Lesson, error) {
	return s.lessons, nil
}
