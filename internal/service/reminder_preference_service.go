package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-scheduler-api/internal/dto"
	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
	"github.com/noah-isme/lesson-scheduler-api/pkg/locale"
)

type reminderPreferenceRepository interface {
	FindStudent(ctx context.Context, id string) (*models.StudentContact, error)
	UpdateReminderPreferences(ctx context.Context, id string, hours int, optOut bool, locale string) error
}

// ReminderPreferenceService reads and writes the settings the reminder sweep honours.
type ReminderPreferenceService struct {
	students  reminderPreferenceRepository
	formatter *locale.Formatter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReminderPreferenceService constructs the service.
func NewReminderPreferenceService(students reminderPreferenceRepository, validate *validator.Validate, logger *zap.Logger) *ReminderPreferenceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderPreferenceService{
		students:  students,
		formatter: locale.NewFormatter(nil),
		validator: validate,
		logger:    logger,
	}
}

// Get returns the student's effective preferences.
func (s *ReminderPreferenceService) Get(ctx context.Context, studentID string) (*dto.ReminderPreferencesResponse, error) {
	student, err := s.students.FindStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return &dto.ReminderPreferencesResponse{
		StudentID:       student.ID,
		ReminderHours:   student.ReminderWindowHours(),
		RemindersOptOut: student.RemindersOptOut,
		Locale:          s.formatter.Normalize(student.Locale),
	}, nil
}

// Update stores new preferences. The locale is reduced to a supported tag.
func (s *ReminderPreferenceService) Update(ctx context.Context, studentID string, req dto.UpdateReminderPreferencesRequest) (*dto.ReminderPreferencesResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "reminder_hours must be between 0 and 168")
	}
	hours := req.ReminderHours
	if hours == 0 {
		hours = models.DefaultReminderHours
	}
	tag := s.formatter.Normalize(req.Locale)

	if err := s.students.UpdateReminderPreferences(ctx, studentID, hours, req.RemindersOptOut, tag); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update reminder preferences")
	}
	s.logger.Info("reminder preferences updated",
		zap.String("student_id", studentID),
		zap.Int("reminder_hours", hours),
		zap.Bool("opt_out", req.RemindersOptOut),
		zap.String("locale", tag),
	)
	return s.Get(ctx, studentID)
}
