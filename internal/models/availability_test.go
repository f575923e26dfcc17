package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeekday(t *testing.T) {
	w, err := ParseWeekday(" Monday ")
	require.NoError(t, err)
	assert.Equal(t, Monday, w)
	assert.Equal(t, time.Monday, w.TimeWeekday())

	_, err = ParseWeekday("funday")
	assert.Error(t, err)
}

func TestWeekdayOf(t *testing.T) {
	for _, w := range AllWeekdays {
		assert.Equal(t, w, WeekdayOf(w.TimeWeekday()))
	}
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9, tod.Hour())
	assert.Equal(t, 30, tod.Minute())
	assert.Equal(t, "09:30", tod.String())

	for _, bad := range []string{"", "9", "24:00", "10:60", "aa:bb", "10:5", "100:00"} {
		_, err := ParseTimeOfDay(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseTimeRange(t *testing.T) {
	start, end, err := ParseTimeRange("09:00-10:00")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay(540), start)
	assert.Equal(t, TimeOfDay(600), end)

	_, _, err = ParseTimeRange("10:00-09:00")
	assert.Error(t, err)
	_, _, err = ParseTimeRange("10:00-10:00")
	assert.Error(t, err)
	_, _, err = ParseTimeRange("10:00")
	assert.Error(t, err)
}

func TestDayAvailabilityContains(t *testing.T) {
	day := DayAvailability{Available: true, Start: "09:00", End: "12:00"}
	cases := []struct {
		rng  string
		want bool
	}{
		{"09:00-10:00", true},
		{"11:00-12:00", true},
		{"09:00-12:00", true},
		{"08:30-09:30", false},
		{"11:30-12:30", false},
	}
	for _, tc := range cases {
		s, e, err := ParseTimeRange(tc.rng)
		require.NoError(t, err)
		assert.Equal(t, tc.want, day.Contains(s, e), tc.rng)
	}

	off := DayAvailability{Available: false, Start: "09:00", End: "12:00"}
	assert.False(t, off.Contains(TimeOfDay(540), TimeOfDay(600)))
}

func TestAvailabilityTemplateValidate(t *testing.T) {
	ok := AvailabilityTemplate{
		Monday:  {Available: true, Start: "09:00", End: "12:00"},
		Tuesday: {Available: false},
	}
	assert.NoError(t, ok.Validate())

	inverted := AvailabilityTemplate{Monday: {Available: true, Start: "12:00", End: "09:00"}}
	assert.Error(t, inverted.Validate())

	unknown := AvailabilityTemplate{Weekday("funday"): {Available: false}}
	assert.Error(t, unknown.Validate())
}

func TestAvailabilityTemplateNormalize(t *testing.T) {
	tpl := AvailabilityTemplate{Monday: {Available: true, Start: " 09:00", End: "12:00 "}}
	norm := tpl.Normalize()
	assert.Len(t, norm, 7)
	assert.Equal(t, DayAvailability{Available: true, Start: "09:00", End: "12:00"}, norm[Monday])
	assert.Equal(t, DayAvailability{}, norm[Sunday])
}

func TestAvailabilityTemplateScanValue(t *testing.T) {
	tpl := AvailabilityTemplate{Monday: {Available: true, Start: "09:00", End: "12:00"}}
	raw, err := tpl.Value()
	require.NoError(t, err)

	var decoded AvailabilityTemplate
	require.NoError(t, decoded.Scan(raw))
	assert.Equal(t, tpl, decoded)

	require.NoError(t, decoded.Scan(nil))
	assert.Nil(t, decoded)

	assert.Error(t, decoded.Scan(42))
}
