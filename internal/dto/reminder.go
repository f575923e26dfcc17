package dto

// UpdateReminderPreferencesRequest changes how the caller receives lesson reminders.
// A zero window falls back to the default of 24 hours; an empty locale to en-GB.
type UpdateReminderPreferencesRequest struct {
	ReminderHours   int    `json:"reminder_hours" validate:"gte=0,lte=168"`
	RemindersOptOut bool   `json:"reminders_opt_out"`
	Locale          string `json:"locale" validate:"omitempty,max=35"`
}

// ReminderPreferencesResponse is the effective reminder configuration of a student.
type ReminderPreferencesResponse struct {
	StudentID       string `json:"student_id"`
	ReminderHours   int    `json:"reminder_hours"`
	RemindersOptOut bool   `json:"reminders_opt_out"`
	Locale          string `json:"locale"`
}
