package models

import "time"

// LessonStatus tracks a lesson through its lifecycle.
type LessonStatus string

const (
	LessonStatusUpcoming  LessonStatus = "upcoming"
	LessonStatusCompleted LessonStatus = "completed"
	LessonStatusCanceled  LessonStatus = "canceled"
)

// CanTransitionTo reports whether moving from s to next is allowed.
// Only upcoming lessons move, and only forward.
func (s LessonStatus) CanTransitionTo(next LessonStatus) bool {
	if s != LessonStatusUpcoming {
		return false
	}
	return next == LessonStatusCompleted || next == LessonStatusCanceled
}

// Lesson is one scheduled session between an instructor and a student.
type Lesson struct {
	ID                 string       `db:"id" json:"id"`
	InstructorID       string       `db:"instructor_id" json:"instructor_id"`
	StudentID          string       `db:"student_id" json:"student_id"`
	StartAt            time.Time    `db:"start_at" json:"start"`
	EndAt              *time.Time   `db:"end_at" json:"end,omitempty"`
	Status             LessonStatus `db:"status" json:"status"`
	Notes              *string      `db:"notes" json:"notes,omitempty"`
	LastReminderSentAt *time.Time   `db:"last_reminder_sent_at" json:"last_reminder_sent_at,omitempty"`
	CreatedAt          time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time    `db:"updated_at" json:"updated_at"`
}

// End returns EndAt, or StartAt while the end is not yet known.
func (l Lesson) End() time.Time {
	if l.EndAt == nil {
		return l.StartAt
	}
	return *l.EndAt
}

// Overlaps applies the half-open rule: [s1,e1) and [s2,e2) conflict iff s1 < e2 and s2 < e1.
func (l Lesson) Overlaps(start, end time.Time) bool {
	return l.StartAt.Before(end) && start.Before(l.End())
}

// Slot is a concrete bookable interval resolved from a weekly template.
type Slot struct {
	Weekday Weekday   `json:"weekday"`
	Range   string    `json:"range"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

// Token renders the audit token stored in lesson notes, e.g. "monday:09:00-10:00".
func (s Slot) Token() string {
	return string(s.Weekday) + ":" + s.Range
}

// LessonFilter narrows lesson listings.
type LessonFilter struct {
	StudentID    string
	InstructorID string
	Status       LessonStatus
}
