package dto

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// BookLessonRequest books an instructor's weekly slot on a concrete date.
type BookLessonRequest struct {
	InstructorID string `json:"instructor_id" validate:"required"`
	Timeslot     string `json:"timeslot" validate:"required,timeslot"`
	LessonDate   string `json:"lesson_date" validate:"required"`
}

// RescheduleLessonRequest moves an upcoming lesson to another slot.
type RescheduleLessonRequest struct {
	Timeslot   string `json:"timeslot" validate:"required,timeslot"`
	LessonDate string `json:"lesson_date" validate:"required"`
}

// CompleteLessonRequest closes a lesson with optional instructor notes.
type CompleteLessonRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

// OpenSlotsQuery bounds the open-slot projection, both dates inclusive (YYYY-MM-DD).
type OpenSlotsQuery struct {
	From string `form:"from" validate:"required"`
	To   string `form:"to" validate:"required"`
}

var timeslotPattern = regexp.MustCompile(`^[A-Za-z]+:\d{1,2}:\d{2}-\d{1,2}:\d{2}$`)

// ValidateTimeslot backs the "timeslot" tag: "<weekday>:<HH:MM-HH:MM>".
func ValidateTimeslot(fl validator.FieldLevel) bool {
	return timeslotPattern.MatchString(fl.Field().String())
}
