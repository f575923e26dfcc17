package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	"github.com/noah-isme/lesson-scheduler-api/pkg/config"
	"github.com/noah-isme/lesson-scheduler-api/pkg/locale"
	"github.com/noah-isme/lesson-scheduler-api/pkg/mailer"
)

// Reminder recipients, used as metric labels.
const (
	RecipientStudent    = "student"
	RecipientInstructor = "instructor"
)

type reminderRepository interface {
	ListReminderCandidates(ctx context.Context, now time.Time) ([]models.ReminderCandidate, error)
	MarkReminderSent(ctx context.Context, lessonID string, at time.Time) error
}

type mailDispatcher interface {
	Dispatch(ctx context.Context, msg mailer.Message) error
}

type reminderMetrics interface {
	ObserveReminder(recipient string, err error)
	ObserveReminderSweep(duration time.Duration)
}

// ReminderService sweeps upcoming lessons and emails participants whose lesson
// falls inside the student's reminder window.
type ReminderService struct {
	lessons    reminderRepository
	dispatcher mailDispatcher
	formatter  *locale.Formatter
	metrics    reminderMetrics
	cfg        config.ReminderConfig
	logger     *zap.Logger
}

// NewReminderService constructs the reminder sweep. metrics may be nil.
func NewReminderService(lessons reminderRepository, dispatcher mailDispatcher, metrics reminderMetrics, cfg config.ReminderConfig, loc *time.Location, logger *zap.Logger) *ReminderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultHours <= 0 {
		cfg.DefaultHours = models.DefaultReminderHours
	}
	if cfg.DefaultLocale == "" {
		cfg.DefaultLocale = locale.DefaultTag
	}
	return &ReminderService{
		lessons:    lessons,
		dispatcher: dispatcher,
		formatter:  locale.NewFormatter(loc),
		metrics:    metrics,
		cfg:        cfg,
		logger:     logger,
	}
}

// InReminderWindow reports whether a lesson starting at start is due a reminder at now:
// 0 < (start-now) in hours <= windowHours.
func InReminderWindow(start, now time.Time, windowHours int) bool {
	diff := start.Sub(now).Hours()
	return diff > 0 && diff <= float64(windowHours)
}

// Sweep runs one reminder pass. A failure for one lesson is logged and counted and the
// pass moves on; only a failed candidate load ends it early.
func (s *ReminderService) Sweep(ctx context.Context, now time.Time) models.ReminderSweepResult {
	started := time.Now()
	result := models.ReminderSweepResult{RanAt: now.UTC()}
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveReminderSweep(time.Since(started))
		}
	}()

	candidates, err := s.lessons.ListReminderCandidates(ctx, now)
	if err != nil {
		s.logger.Error("reminder sweep aborted, could not load lessons", zap.Error(err))
		return result
	}
	result.Scanned = len(candidates)

	for _, c := range candidates {
		if !s.due(c, now) {
			result.Skipped++
			continue
		}
		if err := s.remind(ctx, c); err != nil {
			result.Failed++
			s.logger.Warn("lesson reminder failed",
				zap.String("lesson_id", c.LessonID),
				zap.String("student_id", c.StudentID),
				zap.Error(err),
			)
			continue
		}
		result.Dispatched++
		if s.cfg.OncePerLesson {
			if err := s.lessons.MarkReminderSent(ctx, c.LessonID, now); err != nil {
				s.logger.Warn("failed to stamp reminder", zap.String("lesson_id", c.LessonID), zap.Error(err))
			}
		}
		s.logger.Info("reminder sent",
			zap.String("lesson_id", c.LessonID),
			zap.String("student_id", c.StudentID),
			zap.String("instructor_id", c.InstructorID),
		)
	}

	s.logger.Info("reminder sweep finished",
		zap.Int("scanned", result.Scanned),
		zap.Int("dispatched", result.Dispatched),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
	return result
}

// Run adapts Sweep to the cron task signature.
func (s *ReminderService) Run(ctx context.Context, now time.Time) {
	s.Sweep(ctx, now)
}

func (s *ReminderService) due(c models.ReminderCandidate, now time.Time) bool {
	if c.RemindersOptOut {
		return false
	}
	if s.cfg.OncePerLesson && c.LastReminderSentAt != nil {
		return false
	}
	hours := c.ReminderHours
	if hours <= 0 {
		hours = s.cfg.DefaultHours
	}
	return InReminderWindow(c.StartAt, now, hours)
}

func (s *ReminderService) remind(ctx context.Context, c models.ReminderCandidate) error {
	tag := c.Locale
	if tag == "" {
		tag = s.cfg.DefaultLocale
	}
	when := s.formatter.FormatDateTime(c.StartAt, tag)

	studentMsg := mailer.Message{
		To:      c.StudentEmail,
		Subject: "Lesson Reminder",
		Body: fmt.Sprintf("Hello %s,\nThis is a reminder that you have a lesson on %s with %s.\nPlease be prepared and arrive on time.",
			c.StudentName, when, displayName(c.InstructorName, "Instructor", c.InstructorID)),
	}
	err := s.dispatcher.Dispatch(ctx, studentMsg)
	s.observe(RecipientStudent, err)
	if err != nil {
		return fmt.Errorf("student reminder: %w", err)
	}

	instructorMsg := mailer.Message{
		To:      c.InstructorEmail,
		Subject: "Upcoming Lesson Reminder",
		Body: fmt.Sprintf("Hello %s,\nYou have an upcoming lesson on %s with %s.\nPlease be prepared.",
			c.InstructorName, when, displayName(c.StudentName, "Student", c.StudentID)),
	}
	err = s.dispatcher.Dispatch(ctx, instructorMsg)
	s.observe(RecipientInstructor, err)
	if err != nil {
		return fmt.Errorf("instructor reminder: %w", err)
	}
	return nil
}

func (s *ReminderService) observe(recipient string, err error) {
	if s.metrics != nil {
		s.metrics.ObserveReminder(recipient, err)
	}
}

func displayName(name, role, id string) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("%s #%s", role, id)
}
