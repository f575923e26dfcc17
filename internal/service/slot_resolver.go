package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
)

const lessonDateLayout = "2006-01-02"

// ParseTimeslot splits "<weekday>:<HH:MM-HH:MM>" at the first colon.
func ParseTimeslot(raw string) (models.Weekday, string, error) {
	idx := strings.Index(raw, ":")
	if idx <= 0 || idx == len(raw)-1 {
		return "", "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid timeslot %q", raw))
	}
	weekday, err := models.ParseWeekday(raw[:idx])
	if err != nil {
		return "", "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timeslot weekday")
	}
	return weekday, strings.TrimSpace(raw[idx+1:]), nil
}

// ParseLessonDate reads a calendar date. Full RFC3339 timestamps are accepted and
// contribute only their date components.
func ParseLessonDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	raw = strings.TrimSpace(raw)
	if d, err := time.ParseInLocation(lessonDateLayout, raw, loc); err == nil {
		return d, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid date chosen")
	}
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
}

// ResolveSlot turns a weekday token, a calendar date and an HH:MM-HH:MM range into
// absolute timestamps in loc. The range must sit inside the weekday's window and the
// date must fall on that weekday.
func ResolveSlot(template models.AvailabilityTemplate, weekday models.Weekday, date time.Time, timeRange string, loc *time.Location) (models.Slot, error) {
	if loc == nil {
		loc = time.UTC
	}
	if !weekday.Valid() {
		return models.Slot{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown weekday %q", weekday))
	}
	start, end, err := models.ParseTimeRange(timeRange)
	if err != nil {
		return models.Slot{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time range")
	}
	if !template.Day(weekday).Contains(start, end) {
		return models.Slot{}, appErrors.Clone(appErrors.ErrSlotNotAvailable, "")
	}
	if date.Weekday() != weekday.TimeWeekday() {
		return models.Slot{}, appErrors.Clone(appErrors.ErrDateMismatch, fmt.Sprintf("chosen date does not match %s", weekday))
	}

	slot := models.Slot{
		Weekday: weekday,
		Range:   start.String() + "-" + end.String(),
		Start:   start.On(date, loc),
		End:     end.On(date, loc),
	}
	// A clock change inside the range shifts or collapses the wall-clock interval.
	if !slot.Start.Before(slot.End) || slot.End.Sub(slot.Start) != time.Duration(end-start)*time.Minute {
		return models.Slot{}, appErrors.Clone(appErrors.ErrSlotNotAvailable, "requested slot crosses a daylight saving change")
	}
	return slot, nil
}
