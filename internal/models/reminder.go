package models

import "time"

// ReminderCandidate is an upcoming lesson joined with both participants.
type ReminderCandidate struct {
	LessonID           string     `db:"lesson_id"`
	StartAt            time.Time  `db:"start_at"`
	LastReminderSentAt *time.Time `db:"last_reminder_sent_at"`
	StudentID          string     `db:"student_id"`
	StudentName        string     `db:"student_name"`
	StudentEmail       string     `db:"student_email"`
	ReminderHours      int        `db:"reminder_hours"`
	RemindersOptOut    bool       `db:"reminders_opt_out"`
	Locale             string     `db:"locale"`
	InstructorID       string     `db:"instructor_id"`
	InstructorName     string     `db:"instructor_name"`
	InstructorEmail    string     `db:"instructor_email"`
}

// Student returns the student's contact preferences.
func (c ReminderCandidate) Student() StudentContact {
	return StudentContact{
		ID:              c.StudentID,
		FullName:        c.StudentName,
		Email:           c.StudentEmail,
		ReminderHours:   c.ReminderHours,
		RemindersOptOut: c.RemindersOptOut,
		Locale:          c.Locale,
	}
}

// ReminderSweepResult summarises one sweep.
type ReminderSweepResult struct {
	Scanned    int       `json:"scanned"`
	Dispatched int       `json:"dispatched"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	RanAt      time.Time `json:"ran_at"`
}
