package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lesson-scheduler-api/internal/dto"
	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	"github.com/noah-isme/lesson-scheduler-api/internal/repository"
	"github.com/noah-isme/lesson-scheduler-api/pkg/config"
	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
)

var lessonColumnsForMock = []string{"id", "instructor_id", "student_id", "start_at", "end_at", "status", "notes", "last_reminder_sent_at", "created_at", "updated_at"}

func newSQLSchedulingService(t *testing.T) (*SchedulingService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sqlxdb := sqlx.NewDb(db, "sqlmock")

	template := models.AvailabilityTemplate{models.Monday: {Available: true, Start: "09:00", End: "12:00"}}
	instructors := &instructorStub{items: map[string]*models.Instructor{
		"ins-1": {ID: "ins-1", Active: true, Availability: &template},
	}}
	notifications := NewNotificationService(repository.NewNotificationRepository(sqlxdb), nil, nil)
	svc := NewSchedulingService(repository.NewLessonRepository(sqlxdb), instructors, repository.NewUserRepository(sqlxdb), notifications, nil, nil,
		config.SchedulingConfig{Timezone: "UTC"}, nil, nil)
	svc.now = func() time.Time { return monday.Add(-72 * time.Hour) }
	return svc, mock
}

func TestBookWritesLessonAndNotificationInOneTransaction(t *testing.T) {
	svc, mock := newSQLSchedulingService(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).WithArgs("ins-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM lessons WHERE instructor_id = \\$1 AND status = 'upcoming'").
		WithArgs("ins-1", "", monday.Add(10*time.Hour), monday.Add(9*time.Hour)).
		WillReturnRows(sqlmock.NewRows(lessonColumnsForMock))
	mock.ExpectExec("INSERT INTO lessons").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(sqlmock.AnyArg(), "ins-1", sqlmock.AnyArg(), false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	lesson, err := svc.Book(context.Background(), "stu-1", dto.BookLessonRequest{InstructorID: "ins-1", Timeslot: "monday:09:00-10:00", LessonDate: "2030-01-07"})
	require.NoError(t, err)
	assert.NotEmpty(t, lesson.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookRollsBackWhenNotificationFails(t *testing.T) {
	svc, mock := newSQLSchedulingService(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).WithArgs("ins-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM lessons WHERE instructor_id").WillReturnRows(sqlmock.NewRows(lessonColumnsForMock))
	mock.ExpectExec("INSERT INTO lessons").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO notifications").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := svc.Book(context.Background(), "stu-1", dto.BookLessonRequest{InstructorID: "ins-1", Timeslot: "monday:09:00-10:00", LessonDate: "2030-01-07"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteRollsBackWhenXPCreditFails(t *testing.T) {
	svc, mock := newSQLSchedulingService(t)
	start := monday.Add(9 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).WithArgs("ins-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND instructor_id = $2 AND status = 'upcoming' FOR UPDATE")).
		WithArgs("l-1", "ins-1").
		WillReturnRows(sqlmock.NewRows(lessonColumnsForMock).AddRow("l-1", "ins-1", "stu-1", start, start.Add(time.Hour), "upcoming", nil, nil, start, start))
	mock.ExpectExec("UPDATE lessons SET status").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET xp = xp + $2")).WithArgs("stu-1", 25, sqlmock.AnyArg()).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := svc.Complete(context.Background(), "ins-1", "l-1", dto.CompleteLessonRequest{Notes: "ok"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
	assert.NoError(t, mock.ExpectationsWereMet())
}
