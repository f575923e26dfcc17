package dto

import "github.com/noah-isme/lesson-scheduler-api/internal/models"

// UpdateAvailabilityRequest replaces the caller's weekly template.
type UpdateAvailabilityRequest struct {
	OnHoliday    bool                        `json:"on_holiday"`
	Availability models.AvailabilityTemplate `json:"availability" validate:"required"`
}

// AvailabilityResponse exposes an instructor's template and holiday flag.
type AvailabilityResponse struct {
	InstructorID string                      `json:"instructor_id"`
	OnHoliday    bool                        `json:"on_holiday"`
	Active       bool                        `json:"active"`
	Availability models.AvailabilityTemplate `json:"availability"`
}

// OpenSlot is a free interval inside an instructor's window on a date.
type OpenSlot struct {
	Date     string `json:"date"`
	Weekday  string `json:"weekday"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Timeslot string `json:"timeslot"`
}
