package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin      UserRole = "ADMIN"
	RoleInstructor UserRole = "INSTRUCTOR"
	RoleStudent    UserRole = "STUDENT"
)

// DefaultReminderHours applies when a student has no usable preference.
const DefaultReminderHours = 24

// Instructor is the slice of a user the scheduling engine reads.
type Instructor struct {
	ID           string                `db:"id" json:"id"`
	FullName     string                `db:"full_name" json:"full_name"`
	Email        string                `db:"email" json:"email"`
	Active       bool                  `db:"active" json:"active"`
	OnHoliday    bool                  `db:"on_holiday" json:"on_holiday"`
	Availability *AvailabilityTemplate `db:"availability" json:"availability,omitempty"`
	UpdatedAt    time.Time             `db:"updated_at" json:"updated_at"`
}

// Bookable reports whether lessons may be booked with the instructor.
func (i Instructor) Bookable() bool {
	return i.Active && !i.OnHoliday && i.Availability != nil && !i.Availability.IsEmpty()
}

// Template returns the availability template or nil.
func (i Instructor) Template() AvailabilityTemplate {
	if i.Availability == nil {
		return nil
	}
	return *i.Availability
}

// StudentContact carries a student's reminder preferences.
type StudentContact struct {
	ID              string `db:"id" json:"id"`
	FullName        string `db:"full_name" json:"full_name"`
	Email           string `db:"email" json:"email"`
	ReminderHours   int    `db:"reminder_hours" json:"reminder_hours"`
	RemindersOptOut bool   `db:"reminders_opt_out" json:"reminders_opt_out"`
	Locale          string `db:"locale" json:"locale"`
}

// ReminderWindowHours returns the configured window or the default.
func (s StudentContact) ReminderWindowHours() int {
	if s.ReminderHours <= 0 {
		return DefaultReminderHours
	}
	return s.ReminderHours
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
