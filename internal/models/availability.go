package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Weekday names a recurring day in an instructor's availability template.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

// AllWeekdays lists weekdays in template order.
var AllWeekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var weekdayToTime = map[Weekday]time.Weekday{
	Sunday:    time.Sunday,
	Monday:    time.Monday,
	Tuesday:   time.Tuesday,
	Wednesday: time.Wednesday,
	Thursday:  time.Thursday,
	Friday:    time.Friday,
	Saturday:  time.Saturday,
}

// ParseWeekday accepts a weekday token in any case.
func ParseWeekday(raw string) (Weekday, error) {
	w := Weekday(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := weekdayToTime[w]; !ok {
		return "", fmt.Errorf("unknown weekday %q", raw)
	}
	return w, nil
}

// WeekdayOf returns the token for a time.Weekday.
func WeekdayOf(d time.Weekday) Weekday {
	for w, td := range weekdayToTime {
		if td == d {
			return w
		}
	}
	return ""
}

// TimeWeekday converts the token into a time.Weekday.
func (w Weekday) TimeWeekday() time.Weekday {
	return weekdayToTime[w]
}

// Valid reports whether w is one of the seven tokens.
func (w Weekday) Valid() bool {
	_, ok := weekdayToTime[w]
	return ok
}

// TimeOfDay is a wall-clock time expressed in minutes since midnight.
type TimeOfDay int

// ParseTimeOfDay parses an HH:MM token.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 || len(parts[0]) == 0 || len(parts[0]) > 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	return TimeOfDay(hour*60 + minute), nil
}

// Hour returns the hour component.
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute component.
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// On anchors the time of day on the calendar date of d, zero seconds, in loc.
func (t TimeOfDay) On(d time.Time, loc *time.Location) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, t.Hour(), t.Minute(), 0, 0, loc)
}

// ParseTimeRange parses an HH:MM-HH:MM token. start must be before end.
func ParseTimeRange(raw string) (TimeOfDay, TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(raw), "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time range %q, expected HH:MM-HH:MM", raw)
	}
	start, err := ParseTimeOfDay(parts[0])
	if err != nil {
		return 0, 0, err
	}
	end, err := ParseTimeOfDay(parts[1])
	if err != nil {
		return 0, 0, err
	}
	if start >= end {
		return 0, 0, fmt.Errorf("time range %q must start before it ends", raw)
	}
	return start, end, nil
}

// DayAvailability is the single window an instructor works on one weekday.
type DayAvailability struct {
	Available bool   `json:"available"`
	Start     string `json:"start"`
	End       string `json:"end"`
}

// Window parses the configured boundaries.
func (d DayAvailability) Window() (TimeOfDay, TimeOfDay, error) {
	if !d.Available {
		return 0, 0, fmt.Errorf("day not available")
	}
	return ParseTimeRange(d.Start + "-" + d.End)
}

// Contains reports whether [start,end) fits inside the day's window.
func (d DayAvailability) Contains(start, end TimeOfDay) bool {
	from, to, err := d.Window()
	if err != nil {
		return false
	}
	return start >= from && end <= to && start < end
}

// AvailabilityTemplate is an instructor's weekly recurring availability.
type AvailabilityTemplate map[Weekday]DayAvailability

// Day returns the entry for w; missing days are unavailable.
func (t AvailabilityTemplate) Day(w Weekday) DayAvailability {
	if t == nil {
		return DayAvailability{}
	}
	return t[w]
}

// IsEmpty reports whether the template carries no entries at all.
func (t AvailabilityTemplate) IsEmpty() bool {
	return len(t) == 0
}

// Normalize returns a copy holding all seven weekdays.
func (t AvailabilityTemplate) Normalize() AvailabilityTemplate {
	out := make(AvailabilityTemplate, len(AllWeekdays))
	for _, w := range AllWeekdays {
		day := t.Day(w)
		if !day.Available {
			out[w] = DayAvailability{Available: false, Start: "", End: ""}
			continue
		}
		out[w] = DayAvailability{Available: true, Start: strings.TrimSpace(day.Start), End: strings.TrimSpace(day.End)}
	}
	return out
}

// Validate checks every key is a weekday and every available day has start < end.
func (t AvailabilityTemplate) Validate() error {
	for w, day := range t {
		if !w.Valid() {
			return fmt.Errorf("unknown weekday %q", w)
		}
		if !day.Available {
			continue
		}
		if _, _, err := day.Window(); err != nil {
			return fmt.Errorf("%s: %w", w, err)
		}
	}
	return nil
}

// Value implements driver.Valuer for JSONB storage.
func (t AvailabilityTemplate) Value() (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshal availability: %w", err)
	}
	return raw, nil
}

// Scan implements sql.Scanner for JSONB storage.
func (t *AvailabilityTemplate) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported availability type %T", src)
	}
	if len(raw) == 0 {
		*t = nil
		return nil
	}
	decoded := AvailabilityTemplate{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("decode availability: %w", err)
	}
	*t = decoded
	return nil
}
