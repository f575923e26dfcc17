package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-scheduler-api/internal/dto"
	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	"github.com/noah-isme/lesson-scheduler-api/pkg/config"
	"github.com/noah-isme/lesson-scheduler-api/pkg/database"
	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
	"github.com/noah-isme/lesson-scheduler-api/pkg/locale"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type lessonRepository interface {
	txProvider
	overlapFinder
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
	LockInstructor(ctx context.Context, exec sqlx.ExtContext, instructorID string) error
	FindUpcomingForStudent(ctx context.Context, exec sqlx.ExtContext, lessonID, studentID string) (*models.Lesson, error)
	FindUpcomingForInstructor(ctx context.Context, exec sqlx.ExtContext, lessonID, instructorID string) (*models.Lesson, error)
	Create(ctx context.Context, exec sqlx.ExtContext, lesson *models.Lesson) error
	UpdateSchedule(ctx context.Context, exec sqlx.ExtContext, lesson *models.Lesson) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, lessonID string, status models.LessonStatus, notes *string) error
}

type instructorReader interface {
	FindInstructor(ctx context.Context, id string) (*models.Instructor, error)
	FindInstructorForShare(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Instructor, error)
}

type xpCreditor interface {
	CreditXP(ctx context.Context, exec sqlx.ExtContext, studentID string, xp int) error
}

type lessonNotifier interface {
	Record(ctx context.Context, exec sqlx.ExtContext, userID, message string) (*models.Notification, error)
	Broadcast(ctx context.Context, notifications ...*models.Notification)
}

type calendarInvalidator interface {
	Invalidate(ctx context.Context, studentID, instructorID string)
}

type lessonMetrics interface {
	ObserveLessonOperation(operation, outcome string)
}

// Engine operation names used for logging and metrics.
const (
	OperationBook       = "book"
	OperationCancel     = "cancel"
	OperationReschedule = "reschedule"
	OperationComplete   = "complete"
)

// SchedulingService books, cancels, reschedules and completes lessons. Each operation
// runs in one transaction holding the instructor's advisory lock, so the conflict check
// and the write cannot interleave with another writer for the same instructor.
type SchedulingService struct {
	lessons     lessonRepository
	instructors instructorReader
	students    xpCreditor
	notifier    lessonNotifier
	calendar    calendarInvalidator
	metrics     lessonMetrics
	conflicts   *ConflictChecker
	formatter   *locale.Formatter
	locks       *keyedMutex
	cfg         config.SchedulingConfig
	loc         *time.Location
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewSchedulingService wires the scheduling engine. calendar and metrics may be nil.
func NewSchedulingService(
	lessons lessonRepository,
	instructors instructorReader,
	students xpCreditor,
	notifier lessonNotifier,
	calendar calendarInvalidator,
	metrics lessonMetrics,
	cfg config.SchedulingConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *SchedulingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CancelCutoff <= 0 {
		cfg.CancelCutoff = 24 * time.Hour
	}
	if cfg.LessonXPReward <= 0 {
		cfg.LessonXPReward = 25
	}
	loc := cfg.Location()
	svc := &SchedulingService{
		lessons:     lessons,
		instructors: instructors,
		students:    students,
		notifier:    notifier,
		calendar:    calendar,
		metrics:     metrics,
		conflicts:   NewConflictChecker(lessons),
		formatter:   locale.NewFormatter(loc),
		locks:       newKeyedMutex(),
		cfg:         cfg,
		loc:         loc,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
	_ = svc.validator.RegisterValidation("timeslot", dto.ValidateTimeslot)
	return svc
}

// Book creates an upcoming lesson for the student in the instructor's weekly slot.
func (s *SchedulingService) Book(ctx context.Context, studentID string, req dto.BookLessonRequest) (lesson *models.Lesson, err error) {
	defer s.observe(OperationBook, &err)

	if err = s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	weekday, timeRange, date, err := s.parseRequest(req.Timeslot, req.LessonDate)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(req.InstructorID)
	defer unlock()

	instructor, err := s.bookableInstructor(ctx, nil, req.InstructorID)
	if err != nil {
		return nil, err
	}
	if _, err = ResolveSlot(instructor.Template(), weekday, date, timeRange, s.loc); err != nil {
		return nil, err
	}

	var notification *models.Notification
	err = s.inTx(ctx, instructor.ID, func(tx *sqlx.Tx) error {
		slot, err := s.resolveLocked(ctx, tx, instructor.ID, weekday, date, timeRange)
		if err != nil {
			return err
		}
		if err := s.ensureFree(ctx, tx, instructor.ID, slot, ""); err != nil {
			return err
		}
		notes := slot.Token()
		end := slot.End
		lesson = &models.Lesson{
			InstructorID: instructor.ID,
			StudentID:    studentID,
			StartAt:      slot.Start,
			EndAt:        &end,
			Status:       models.LessonStatusUpcoming,
			Notes:        &notes,
		}
		if err := s.lessons.Create(ctx, tx, lesson); err != nil {
			return mapWriteError(err, "failed to create lesson")
		}
		message := fmt.Sprintf("A student booked a lesson on %s.", s.formatTime(slot.Start))
		n, err := s.notifier.Record(ctx, tx, instructor.ID, message)
		if err != nil {
			return err
		}
		notification = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, lesson, notification)
	s.logger.Info("lesson booked",
		zap.String("lesson_id", lesson.ID),
		zap.String("instructor_id", lesson.InstructorID),
		zap.String("student_id", studentID),
		zap.Time("start", lesson.StartAt),
	)
	return lesson, nil
}

// Cancel cancels the student's upcoming lesson when it starts at least the cutoff from now.
func (s *SchedulingService) Cancel(ctx context.Context, studentID, lessonID string) (lesson *models.Lesson, err error) {
	defer s.observe(OperationCancel, &err)

	current, err := s.ownedByStudent(ctx, lessonID, studentID)
	if err != nil {
		return nil, err
	}

	var notification *models.Notification
	err = s.inTx(ctx, current.InstructorID, func(tx *sqlx.Tx) error {
		locked, err := s.lessons.FindUpcomingForStudent(ctx, tx, lessonID, studentID)
		if err != nil {
			return lessonLookupError(err)
		}
		if !locked.Status.CanTransitionTo(models.LessonStatusCanceled) {
			return lessonLookupError(sql.ErrNoRows)
		}
		if locked.StartAt.Sub(s.now()) < s.cfg.CancelCutoff {
			return appErrors.Clone(appErrors.ErrTooLateToCancel, "")
		}
		if err := s.lessons.UpdateStatus(ctx, tx, locked.ID, models.LessonStatusCanceled, nil); err != nil {
			return lessonLookupError(err)
		}
		locked.Status = models.LessonStatusCanceled
		lesson = locked

		message := fmt.Sprintf("A student canceled their lesson on %s.", s.formatTime(locked.StartAt))
		n, err := s.notifier.Record(ctx, tx, locked.InstructorID, message)
		if err != nil {
			return err
		}
		notification = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, lesson, notification)
	s.logger.Info("lesson canceled", zap.String("lesson_id", lesson.ID), zap.String("student_id", studentID))
	return lesson, nil
}

// Reschedule moves the student's upcoming lesson to another slot, keeping its identity.
// Unlike Cancel there is no cutoff.
func (s *SchedulingService) Reschedule(ctx context.Context, studentID, lessonID string, req dto.RescheduleLessonRequest) (lesson *models.Lesson, err error) {
	defer s.observe(OperationReschedule, &err)

	if err = s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reschedule payload")
	}
	weekday, timeRange, date, err := s.parseRequest(req.Timeslot, req.LessonDate)
	if err != nil {
		return nil, err
	}
	current, err := s.ownedByStudent(ctx, lessonID, studentID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(current.InstructorID)
	defer unlock()

	instructor, err := s.bookableInstructor(ctx, nil, current.InstructorID)
	if err != nil {
		return nil, err
	}
	if _, err = ResolveSlot(instructor.Template(), weekday, date, timeRange, s.loc); err != nil {
		return nil, err
	}

	var notification *models.Notification
	err = s.inTx(ctx, instructor.ID, func(tx *sqlx.Tx) error {
		locked, err := s.lessons.FindUpcomingForStudent(ctx, tx, lessonID, studentID)
		if err != nil {
			return lessonLookupError(err)
		}
		slot, err := s.resolveLocked(ctx, tx, instructor.ID, weekday, date, timeRange)
		if err != nil {
			return err
		}
		if err := s.ensureFree(ctx, tx, instructor.ID, slot, locked.ID); err != nil {
			return err
		}
		notes := slot.Token()
		end := slot.End
		locked.StartAt = slot.Start
		locked.EndAt = &end
		locked.Notes = &notes
		if err := s.lessons.UpdateSchedule(ctx, tx, locked); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return lessonLookupError(err)
			}
			return mapWriteError(err, "failed to reschedule lesson")
		}
		lesson = locked

		message := fmt.Sprintf("A student rescheduled their lesson to %s.", s.formatTime(slot.Start))
		n, err := s.notifier.Record(ctx, tx, instructor.ID, message)
		if err != nil {
			return err
		}
		notification = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, lesson, notification)
	s.logger.Info("lesson rescheduled",
		zap.String("lesson_id", lesson.ID),
		zap.String("student_id", studentID),
		zap.Time("start", lesson.StartAt),
	)
	return lesson, nil
}

// Complete closes the instructor's upcoming lesson and credits the student with XP.
func (s *SchedulingService) Complete(ctx context.Context, instructorID, lessonID string, req dto.CompleteLessonRequest) (lesson *models.Lesson, err error) {
	defer s.observe(OperationComplete, &err)

	if err = s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid completion payload")
	}

	var notification *models.Notification
	err = s.inTx(ctx, instructorID, func(tx *sqlx.Tx) error {
		locked, err := s.lessons.FindUpcomingForInstructor(ctx, tx, lessonID, instructorID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "lesson not found, not upcoming, or does not belong to you")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
		}
		if !locked.Status.CanTransitionTo(models.LessonStatusCompleted) {
			return appErrors.Clone(appErrors.ErrNotFound, "lesson not found, not upcoming, or does not belong to you")
		}
		var notes *string
		if req.Notes != "" {
			notes = &req.Notes
			locked.Notes = notes
		}
		if err := s.lessons.UpdateStatus(ctx, tx, locked.ID, models.LessonStatusCompleted, notes); err != nil {
			return lessonLookupError(err)
		}
		locked.Status = models.LessonStatusCompleted
		lesson = locked

		if err := s.students.CreditXP(ctx, tx, locked.StudentID, s.cfg.LessonXPReward); err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to credit lesson xp")
			}
			s.logger.Warn("xp credit skipped, student missing", zap.String("student_id", locked.StudentID))
		}

		message := fmt.Sprintf("Your lesson on %s was marked as completed.", s.formatTime(locked.StartAt))
		n, err := s.notifier.Record(ctx, tx, locked.StudentID, message)
		if err != nil {
			return err
		}
		notification = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, lesson, notification)
	s.logger.Info("lesson completed",
		zap.String("lesson_id", lesson.ID),
		zap.String("instructor_id", instructorID),
		zap.Int("xp", s.cfg.LessonXPReward),
	)
	return lesson, nil
}

func (s *SchedulingService) parseRequest(timeslot, lessonDate string) (models.Weekday, string, time.Time, error) {
	weekday, timeRange, err := ParseTimeslot(timeslot)
	if err != nil {
		return "", "", time.Time{}, err
	}
	date, err := ParseLessonDate(lessonDate, s.loc)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return weekday, timeRange, date, nil
}

// bookableInstructor loads and checks the instructor. With a nil exec it is an unlocked
// pre-check; inside a transaction the row is read FOR SHARE so availability edits wait
// for the booking to commit.
func (s *SchedulingService) bookableInstructor(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Instructor, error) {
	var (
		instructor *models.Instructor
		err        error
	)
	if exec == nil {
		instructor, err = s.instructors.FindInstructor(ctx, id)
	} else {
		instructor, err = s.instructors.FindInstructorForShare(ctx, exec, id)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
	}
	if !instructor.Active || instructor.OnHoliday {
		return nil, appErrors.Clone(appErrors.ErrInstructorUnavailable, "")
	}
	if instructor.Availability == nil || instructor.Availability.IsEmpty() {
		return nil, appErrors.Clone(appErrors.ErrInstructorUnavailable, "instructor has no availability")
	}
	return instructor, nil
}

// resolveLocked re-checks the instructor under the transaction and resolves the slot
// against the template it holds.
func (s *SchedulingService) resolveLocked(ctx context.Context, tx *sqlx.Tx, instructorID string, weekday models.Weekday, date time.Time, timeRange string) (models.Slot, error) {
	instructor, err := s.bookableInstructor(ctx, tx, instructorID)
	if err != nil {
		return models.Slot{}, err
	}
	return ResolveSlot(instructor.Template(), weekday, date, timeRange, s.loc)
}

// ownedByStudent is an unlocked pre-read used to find the instructor to serialise on.
// The authoritative check is repeated under FOR UPDATE inside the transaction.
func (s *SchedulingService) ownedByStudent(ctx context.Context, lessonID, studentID string) (*models.Lesson, error) {
	lesson, err := s.lessons.FindByID(ctx, lessonID)
	if err != nil {
		return nil, lessonLookupError(err)
	}
	if lesson.StudentID != studentID || lesson.Status != models.LessonStatusUpcoming {
		return nil, lessonLookupError(sql.ErrNoRows)
	}
	return lesson, nil
}

func (s *SchedulingService) ensureFree(ctx context.Context, exec sqlx.ExtContext, instructorID string, slot models.Slot, excludeID string) error {
	conflict, err := s.conflicts.HasConflict(ctx, exec, instructorID, slot.Start, slot.End, excludeID)
	if err != nil {
		return err
	}
	if conflict {
		return appErrors.Clone(appErrors.ErrConflict, "")
	}
	return nil
}

func (s *SchedulingService) inTx(ctx context.Context, instructorID string, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.lessons.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.lessons.LockInstructor(ctx, tx, instructorID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock instructor schedule")
	}
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return mapWriteError(err, "failed to commit lesson change")
	}
	return nil
}

func (s *SchedulingService) afterCommit(ctx context.Context, lesson *models.Lesson, notification *models.Notification) {
	if notification != nil {
		s.notifier.Broadcast(ctx, notification)
	}
	if s.calendar != nil && lesson != nil {
		s.calendar.Invalidate(ctx, lesson.StudentID, lesson.InstructorID)
	}
}

func (s *SchedulingService) observe(operation string, errp *error) {
	if s.metrics == nil {
		return
	}
	err := *errp
	switch {
	case err == nil:
		s.metrics.ObserveLessonOperation(operation, OutcomeSuccess)
	case appErrors.FromError(err).Status < 500:
		s.metrics.ObserveLessonOperation(operation, OutcomeRejected)
	default:
		s.metrics.ObserveLessonOperation(operation, OutcomeError)
		s.logger.Error("lesson operation failed", zap.String("operation", operation), zap.Error(err))
	}
}

func (s *SchedulingService) formatTime(t time.Time) string {
	return s.formatter.FormatDateTime(t, locale.DefaultTag)
}

func lessonLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "lesson not found or not upcoming")
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
}

// mapWriteError turns an exclusion violation from the overlap constraint into a conflict
// and a failed lesson CHECK into a rejected slot.
func mapWriteError(err error, message string) error {
	if database.HasCode(err, database.CodeExclusionViolation) {
		return appErrors.Clone(appErrors.ErrConflict, "")
	}
	if database.HasCode(err, database.CodeCheckViolation) {
		return appErrors.Clone(appErrors.ErrSlotNotAvailable, "lesson must end after it starts")
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
