package models

// CalendarRole selects whose lessons a feed projects.
type CalendarRole string

const (
	CalendarRoleStudent    CalendarRole = "student"
	CalendarRoleInstructor CalendarRole = "instructor"
)

// Valid reports whether r is a known role.
func (r CalendarRole) Valid() bool {
	return r == CalendarRoleStudent || r == CalendarRoleInstructor
}

// CalendarEntry is a read-only projection of a lesson for calendar widgets.
type CalendarEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Start string `json:"start"`
	End   string `json:"end"`
}
