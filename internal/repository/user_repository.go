package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
)

// UserRepository provides database access to instructors and students.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const instructorColumns = `id, full_name, email, active, on_holiday, availability, updated_at`

// FindInstructor returns an instructor with its availability template.
func (r *UserRepository) FindInstructor(ctx context.Context, id string) (*models.Instructor, error) {
	query := `SELECT ` + instructorColumns + ` FROM users WHERE id = $1 AND role = 'INSTRUCTOR' LIMIT 1`
	var instructor models.Instructor
	if err := r.db.GetContext(ctx, &instructor, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find instructor: %w", err)
	}
	return &instructor, nil
}

// FindInstructorForShare reads the instructor row under a share lock, so availability
// updates block until the surrounding transaction ends.
func (r *UserRepository) FindInstructorForShare(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Instructor, error) {
	if exec == nil {
		exec = r.db
	}
	query := `SELECT ` + instructorColumns + ` FROM users WHERE id = $1 AND role = 'INSTRUCTOR' FOR SHARE`
	var instructor models.Instructor
	if err := sqlx.GetContext(ctx, exec, &instructor, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find instructor for share: %w", err)
	}
	return &instructor, nil
}

// FindStudent returns a student's contact preferences.
func (r *UserRepository) FindStudent(ctx context.Context, id string) (*models.StudentContact, error) {
	const query = `SELECT id, full_name, email, reminder_hours, reminders_opt_out, locale FROM users WHERE id = $1 AND role = 'STUDENT' LIMIT 1`
	var student models.StudentContact
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// UpdateAvailability replaces an instructor's weekly template and holiday flag.
func (r *UserRepository) UpdateAvailability(ctx context.Context, id string, template models.AvailabilityTemplate, onHoliday bool) error {
	const query = `UPDATE users SET availability = $2, on_holiday = $3, updated_at = $4 WHERE id = $1 AND role = 'INSTRUCTOR'`
	res, err := r.db.ExecContext(ctx, query, id, template, onHoliday, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update availability: %w", err)
	}
	return expectOneRow(res)
}

// UpdateReminderPreferences stores a student's reminder window, opt-out flag and locale.
func (r *UserRepository) UpdateReminderPreferences(ctx context.Context, id string, hours int, optOut bool, locale string) error {
	const query = `UPDATE users SET reminder_hours = $2, reminders_opt_out = $3, locale = $4, updated_at = $5 WHERE id = $1 AND role = 'STUDENT'`
	res, err := r.db.ExecContext(ctx, query, id, hours, optOut, locale, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update reminder preferences: %w", err)
	}
	return expectOneRow(res)
}

// CreditXP adds experience points to a student and recomputes the level.
func (r *UserRepository) CreditXP(ctx context.Context, exec sqlx.ExtContext, studentID string, xp int) error {
	if exec == nil {
		exec = r.db
	}
	const query = `UPDATE users SET xp = xp + $2, level = ((xp + $2) / 100) + 1, updated_at = $3 WHERE id = $1`
	res, err := exec.ExecContext(ctx, query, studentID, xp, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("credit xp: %w", err)
	}
	return expectOneRow(res)
}
