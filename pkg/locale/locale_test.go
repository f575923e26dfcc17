package locale

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDateTime(t *testing.T) {
	f := NewFormatter(time.UTC)
	ts := time.Date(2026, time.March, 9, 14, 30, 0, 0, time.UTC)

	assert.Equal(t, "9 Mar 2026, 14:30", f.FormatDateTime(ts, "en-GB"))
	assert.Equal(t, "Mar 9, 2026, 2:30 PM", f.FormatDateTime(ts, "en-US"))
	assert.Equal(t, "09.03.2026, 14:30", f.FormatDateTime(ts, "de-DE"))
}

func TestFormatDateTimeFallsBackToDefault(t *testing.T) {
	f := NewFormatter(time.UTC)
	ts := time.Date(2026, time.March, 9, 14, 30, 0, 0, time.UTC)

	assert.Equal(t, "9 Mar 2026, 14:30", f.FormatDateTime(ts, ""))
	assert.Equal(t, "9 Mar 2026, 14:30", f.FormatDateTime(ts, "!!"))
}

func TestFormatDateTimeUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+1", 3600)
	f := NewFormatter(loc)
	ts := time.Date(2026, time.March, 9, 14, 30, 0, 0, time.UTC)

	assert.Equal(t, "9 Mar 2026, 15:30", f.FormatDateTime(ts, "en-GB"))
}

func TestNormalize(t *testing.T) {
	f := NewFormatter(nil)
	assert.Equal(t, DefaultTag, f.Normalize(""))
	assert.Equal(t, "en-US", f.Normalize("en-US"))
}
