package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-scheduler-api/internal/dto"
	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	"github.com/noah-isme/lesson-scheduler-api/pkg/config"
	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
)

type availabilityRepository interface {
	FindInstructor(ctx context.Context, id string) (*models.Instructor, error)
	UpdateAvailability(ctx context.Context, id string, template models.AvailabilityTemplate, onHoliday bool) error
}

type upcomingLessonReader interface {
	ListUpcomingBetween(ctx context.Context, instructorID string, from, to time.Time) ([]models.Lesson, error)
}

// AvailabilityService manages instructors' weekly templates and projects open slots.
type AvailabilityService struct {
	instructors availabilityRepository
	lessons     upcomingLessonReader
	maxDays     int
	loc         *time.Location
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAvailabilityService constructs the service.
func NewAvailabilityService(instructors availabilityRepository, lessons upcomingLessonReader, cfg config.SchedulingConfig, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	maxDays := cfg.MaxSlotWindow
	if maxDays <= 0 {
		maxDays = 31
	}
	return &AvailabilityService{
		instructors: instructors,
		lessons:     lessons,
		maxDays:     maxDays,
		loc:         cfg.Location(),
		validator:   validate,
		logger:      logger,
	}
}

// Get returns the instructor's template with all seven weekdays present.
func (s *AvailabilityService) Get(ctx context.Context, instructorID string) (*dto.AvailabilityResponse, error) {
	instructor, err := s.load(ctx, instructorID)
	if err != nil {
		return nil, err
	}
	return &dto.AvailabilityResponse{
		InstructorID: instructor.ID,
		OnHoliday:    instructor.OnHoliday,
		Active:       instructor.Active,
		Availability: instructor.Template().Normalize(),
	}, nil
}

// Update replaces the template. Missing weekdays become unavailable and every available
// day must start before it ends.
func (s *AvailabilityService) Update(ctx context.Context, instructorID string, req dto.UpdateAvailabilityRequest) (*dto.AvailabilityResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}
	if err := req.Availability.Validate(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	template := req.Availability.Normalize()

	if err := s.instructors.UpdateAvailability(ctx, instructorID, template, req.OnHoliday); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update availability")
	}
	s.logger.Info("availability updated", zap.String("instructor_id", instructorID), zap.Bool("on_holiday", req.OnHoliday))
	return s.Get(ctx, instructorID)
}

// OpenSlots lists free intervals inside the instructor's windows for each date in
// [from, to], subtracting upcoming lessons. Unbookable instructors have none.
func (s *AvailabilityService) OpenSlots(ctx context.Context, instructorID string, q dto.OpenSlotsQuery) ([]dto.OpenSlot, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "from and to are required")
	}
	from, err := ParseLessonDate(q.From, s.loc)
	if err != nil {
		return nil, err
	}
	to, err := ParseLessonDate(q.To, s.loc)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	if to.After(from.AddDate(0, 0, s.maxDays-1)) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("range may span at most %d days", s.maxDays))
	}

	instructor, err := s.load(ctx, instructorID)
	if err != nil {
		return nil, err
	}
	slots := []dto.OpenSlot{}
	if !instructor.Bookable() {
		return slots, nil
	}

	busy, err := s.lessons.ListUpcomingBetween(ctx, instructorID, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lessons")
	}
	sort.Slice(busy, func(i, j int) bool { return busy[i].StartAt.Before(busy[j].StartAt) })

	template := instructor.Template()
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		weekday := models.WeekdayOf(d.Weekday())
		startOfDay, endOfDay, err := template.Day(weekday).Window()
		if err != nil {
			continue
		}
		windowStart := startOfDay.On(d, s.loc)
		windowEnd := endOfDay.On(d, s.loc)
		for _, free := range subtractBusy(windowStart, windowEnd, busy) {
			start, end := free[0].In(s.loc).Format("15:04"), free[1].In(s.loc).Format("15:04")
			slots = append(slots, dto.OpenSlot{
				Date:     d.Format(lessonDateLayout),
				Weekday:  string(weekday),
				Start:    start,
				End:      end,
				Timeslot: fmt.Sprintf("%s:%s-%s", weekday, start, end),
			})
		}
	}
	return slots, nil
}

func (s *AvailabilityService) load(ctx context.Context, instructorID string) (*models.Instructor, error) {
	instructor, err := s.instructors.FindInstructor(ctx, instructorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
	}
	return instructor, nil
}

// subtractBusy returns the parts of [start,end) not covered by lessons sorted by start.
func subtractBusy(start, end time.Time, lessons []models.Lesson) [][2]time.Time {
	var free [][2]time.Time
	cursor := start
	for _, l := range lessons {
		if !l.Overlaps(cursor, end) {
			continue
		}
		if l.StartAt.After(cursor) {
			free = append(free, [2]time.Time{cursor, l.StartAt})
		}
		if l.End().After(cursor) {
			cursor = l.End()
		}
	}
	if cursor.Before(end) {
		free = append(free, [2]time.Time{cursor, end})
	}
	return free
}
