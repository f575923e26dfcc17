package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
)

const lessonColumns = `id, instructor_id, student_id, start_at, end_at, status, notes, last_reminder_sent_at, created_at, updated_at`

// LessonRepository persists lessons. Methods taking a sqlx.ExtContext run on the
// caller's transaction so that conflict checks and writes share one snapshot.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository creates a lesson repository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// BeginTxx starts a transaction on the underlying database.
func (r *LessonRepository) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, opts)
}

// LockInstructor takes a transaction-scoped advisory lock keyed by instructor id.
func (r *LessonRepository) LockInstructor(ctx context.Context, exec sqlx.ExtContext, instructorID string) error {
	if _, err := exec.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, instructorID); err != nil {
		return fmt.Errorf("lock instructor %s: %w", instructorID, err)
	}
	return nil
}

// FindByID loads a lesson by id.
func (r *LessonRepository) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = $1`
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// FindUpcomingForStudent loads an upcoming lesson owned by the student and locks the row.
func (r *LessonRepository) FindUpcomingForStudent(ctx context.Context, exec sqlx.ExtContext, lessonID, studentID string) (*models.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = $1 AND student_id = $2 AND status = 'upcoming' FOR UPDATE`
	var lesson models.Lesson
	if err := sqlx.GetContext(ctx, exec, &lesson, query, lessonID, studentID); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// FindUpcomingForInstructor loads an upcoming lesson taught by the instructor and locks the row.
func (r *LessonRepository) FindUpcomingForInstructor(ctx context.Context, exec sqlx.ExtContext, lessonID, instructorID string) (*models.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = $1 AND instructor_id = $2 AND status = 'upcoming' FOR UPDATE`
	var lesson models.Lesson
	if err := sqlx.GetContext(ctx, exec, &lesson, query, lessonID, instructorID); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// FindOverlapping returns upcoming lessons of the instructor whose [start,end) intersects
// the proposed interval, ignoring excludeID.
func (r *LessonRepository) FindOverlapping(ctx context.Context, exec sqlx.ExtContext, instructorID string, start, end time.Time, excludeID string) ([]models.Lesson, error) {
	if exec == nil {
		exec = r.db
	}
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE instructor_id = $1 AND status = 'upcoming' AND id <> $2 AND start_at < $3 AND COALESCE(end_at, start_at) > $4 ORDER BY start_at ASC`
	var lessons []models.Lesson
	if err := sqlx.SelectContext(ctx, exec, &lessons, query, instructorID, excludeID, end, start); err != nil {
		return nil, fmt.Errorf("find overlapping lessons: %w", err)
	}
	return lessons, nil
}

// Create inserts a new lesson.
func (r *LessonRepository) Create(ctx context.Context, exec sqlx.ExtContext, lesson *models.Lesson) error {
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = now
	}
	lesson.UpdatedAt = now
	if lesson.Status == "" {
		lesson.Status = models.LessonStatusUpcoming
	}

	const query = `INSERT INTO lessons (id, instructor_id, student_id, start_at, end_at, status, notes, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := exec.ExecContext(ctx, query,
		lesson.ID, lesson.InstructorID, lesson.StudentID, lesson.StartAt, lesson.EndAt,
		lesson.Status, lesson.Notes, lesson.CreatedAt, lesson.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}
	return nil
}

// UpdateSchedule rewrites start, end and notes of an upcoming lesson in place.
func (r *LessonRepository) UpdateSchedule(ctx context.Context, exec sqlx.ExtContext, lesson *models.Lesson) error {
	lesson.UpdatedAt = time.Now().UTC()
	const query = `UPDATE lessons SET start_at = $2, end_at = $3, notes = $4, last_reminder_sent_at = NULL, updated_at = $5 WHERE id = $1 AND status = 'upcoming'`
	res, err := exec.ExecContext(ctx, query, lesson.ID, lesson.StartAt, lesson.EndAt, lesson.Notes, lesson.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update lesson schedule: %w", err)
	}
	return expectOneRow(res)
}

// UpdateStatus moves an upcoming lesson to a terminal status.
func (r *LessonRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, lessonID string, status models.LessonStatus, notes *string) error {
	const query = `UPDATE lessons SET status = $2, notes = COALESCE($3, notes), updated_at = $4 WHERE id = $1 AND status = 'upcoming'`
	res, err := exec.ExecContext(ctx, query, lessonID, status, notes, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update lesson status: %w", err)
	}
	return expectOneRow(res)
}

// List returns lessons matching the filter ordered by start.
func (r *LessonRepository) List(ctx context.Context, filter models.LessonFilter) ([]models.Lesson, error) {
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.InstructorID != "" {
		conditions = append(conditions, fmt.Sprintf("instructor_id = $%d", len(args)+1))
		args = append(args, filter.InstructorID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE 1=1`
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_at ASC, id ASC"

	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, args...); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return lessons, nil
}

// ListUpcomingBetween returns upcoming lessons of the instructor intersecting [from, to).
func (r *LessonRepository) ListUpcomingBetween(ctx context.Context, instructorID string, from, to time.Time) ([]models.Lesson, error) {
	return r.FindOverlapping(ctx, r.db, instructorID, from, to, "")
}

// ListReminderCandidates returns upcoming lessons starting after now with both participants.
func (r *LessonRepository) ListReminderCandidates(ctx context.Context, now time.Time) ([]models.ReminderCandidate, error) {
	const query = `SELECT l.id AS lesson_id, l.start_at, l.last_reminder_sent_at,
		s.id AS student_id, s.full_name AS student_name, s.email AS student_email,
		s.reminder_hours, s.reminders_opt_out, s.locale,
		i.id AS instructor_id, i.full_name AS instructor_name, i.email AS instructor_email
		FROM lessons l
		JOIN users s ON s.id = l.student_id
		JOIN users i ON i.id = l.instructor_id
		WHERE l.status = 'upcoming' AND l.start_at > $1
		ORDER BY l.start_at ASC`
	var candidates []models.ReminderCandidate
	if err := r.db.SelectContext(ctx, &candidates, query, now); err != nil {
		return nil, fmt.Errorf("list reminder candidates: %w", err)
	}
	return candidates, nil
}

// MarkReminderSent stamps the last reminder time of a lesson.
func (r *LessonRepository) MarkReminderSent(ctx context.Context, lessonID string, at time.Time) error {
	const query = `UPDATE lessons SET last_reminder_sent_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, lessonID, at); err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	return nil
}

func expectOneRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected != 1 {
		return sql.ErrNoRows
	}
	return nil
}
