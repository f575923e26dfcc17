package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
)

func TestParseTimeslot(t *testing.T) {
	weekday, timeRange, err := ParseTimeslot("Monday:09:00-10:00")
	require.NoError(t, err)
	assert.Equal(t, models.Monday, weekday)
	assert.Equal(t, "09:00-10:00", timeRange)

	for _, raw := range []string{"", "monday", ":09:00-10:00", "monday:", "someday:09:00-10:00"} {
		_, _, err := ParseTimeslot(raw)
		assert.True(t, appErrors.Is(err, appErrors.ErrValidation), raw)
	}
}

func TestParseLessonDate(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	d, err := ParseLessonDate("2030-07-01", london)
	require.NoError(t, err)
	assert.Equal(t, time.Monday, d.Weekday())
	assert.Equal(t, london, d.Location())

	d, err = ParseLessonDate("2030-07-01T23:30:00-05:00", london)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Day())

	_, err = ParseLessonDate("01/07/2030", london)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestResolveSlot(t *testing.T) {
	template := models.AvailabilityTemplate{
		models.Monday:  {Available: true, Start: "09:00", End: "12:00"},
		models.Tuesday: {Available: false, Start: "09:00", End: "12:00"},
	}
	tuesday := monday.AddDate(0, 0, 1)

	cases := []struct {
		name      string
		weekday   models.Weekday
		date      time.Time
		timeRange string
		want      *appErrors.Error
	}{
		{name: "matching monday", weekday: models.Monday, date: monday, timeRange: "09:00-10:00"},
		{name: "whole window", weekday: models.Monday, date: monday, timeRange: "09:00-12:00"},
		{name: "date is tuesday", weekday: models.Monday, date: tuesday, timeRange: "09:00-10:00", want: appErrors.ErrDateMismatch},
		{name: "day switched off", weekday: models.Tuesday, date: tuesday, timeRange: "09:00-10:00", want: appErrors.ErrSlotNotAvailable},
		{name: "day missing", weekday: models.Sunday, date: monday.AddDate(0, 0, 6), timeRange: "09:00-10:00", want: appErrors.ErrSlotNotAvailable},
		{name: "outside window", weekday: models.Monday, date: monday, timeRange: "11:00-13:00", want: appErrors.ErrSlotNotAvailable},
		{name: "inverted range", weekday: models.Monday, date: monday, timeRange: "10:00-09:00", want: appErrors.ErrValidation},
		{name: "malformed range", weekday: models.Monday, date: monday, timeRange: "9-10", want: appErrors.ErrValidation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			slot, err := ResolveSlot(template, tc.weekday, tc.date, tc.timeRange, time.UTC)
			if tc.want != nil {
				require.Error(t, err)
				assert.True(t, appErrors.Is(err, tc.want), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.date.Weekday(), slot.Start.Weekday())
			assert.Equal(t, tc.weekday.TimeWeekday(), slot.Start.Weekday())
			assert.True(t, slot.Start.Before(slot.End))
			assert.Zero(t, slot.Start.Second())
			assert.Zero(t, slot.Start.Nanosecond())
			assert.True(t, template.Day(tc.weekday).Contains(
				models.TimeOfDay(slot.Start.Hour()*60+slot.Start.Minute()),
				models.TimeOfDay(slot.End.Hour()*60+slot.End.Minute()),
			))
		})
	}
}

func TestResolveSlotUsesLocation(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)
	template := models.AvailabilityTemplate{models.Monday: {Available: true, Start: "09:00", End: "12:00"}}
	date := time.Date(2030, 7, 1, 0, 0, 0, 0, london)

	slot, err := ResolveSlot(template, models.Monday, date, "09:00-10:00", london)
	require.NoError(t, err)
	assert.Equal(t, 8, slot.Start.UTC().Hour())
	assert.Equal(t, "monday:09:00-10:00", slot.Token())
}

func TestResolveSlotAcrossClockChanges(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)
	template := models.AvailabilityTemplate{models.Sunday: {Available: true, Start: "00:00", End: "12:00"}}
	springForward := time.Date(2030, 3, 31, 0, 0, 0, 0, london)
	fallBack := time.Date(2030, 10, 27, 0, 0, 0, 0, london)

	cases := []struct {
		name      string
		date      time.Time
		timeRange string
		wantErr   *appErrors.Error
	}{
		{name: "inside skipped hour", date: springForward, timeRange: "01:00-02:00", wantErr: appErrors.ErrSlotNotAvailable},
		{name: "over repeated hour", date: fallBack, timeRange: "01:00-02:00", wantErr: appErrors.ErrSlotNotAvailable},
		{name: "after spring change", date: springForward, timeRange: "09:00-10:00"},
		{name: "after autumn change", date: fallBack, timeRange: "09:00-10:00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			slot, err := ResolveSlot(template, models.Sunday, tc.date, tc.timeRange, london)
			if tc.wantErr != nil {
				require.Error(t, err)
				assert.True(t, appErrors.Is(err, tc.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.True(t, slot.Start.Before(slot.End))
			assert.Equal(t, time.Hour, slot.End.Sub(slot.Start))
		})
	}
}

func TestConflictCheckerHalfOpen(t *testing.T) {
	existing := lessonAt("l-1", "ins-1", "stu-1", monday.Add(10*time.Hour), time.Hour)
	finder := &overlapStub{lessons: []models.Lesson{*existing}}
	checker := NewConflictChecker(finder)
	ctx := context.Background()

	conflict, err := checker.HasConflict(ctx, nil, "ins-1", monday.Add(9*time.Hour+30*time.Minute), monday.Add(10*time.Hour+30*time.Minute), "")
	require.NoError(t, err)
	assert.True(t, conflict)

	conflict, err = checker.HasConflict(ctx, nil, "ins-1", monday.Add(9*time.Hour), monday.Add(10*time.Hour), "")
	require.NoError(t, err)
	assert.False(t, conflict)

	conflict, err = checker.HasConflict(ctx, nil, "ins-1", monday.Add(10*time.Hour), monday.Add(11*time.Hour), "l-1")
	require.NoError(t, err)
	assert.False(t, conflict)
}

func TestKeyedMutexSerialisesPerKey(t *testing.T) {
	locks := newKeyedMutex()
	var active, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("ins-1")
			defer unlock()
			n := atomic.AddInt32(&active, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), peak)
	assert.Equal(t, 0, locks.size())

	unlockA := locks.Lock("a")
	unlockB := locks.Lock("b")
	assert.Equal(t, 2, locks.size())
	unlockA()
	unlockB()
}

type overlapStub struct {
	lessons []models.Lesson
}

func (s *overlapStub) FindOverlapping(ctx context.Context, exec sqlx.ExtContext, instructorID string, start, end time.Time, excludeID string) ([]models.Lesson, error) {
	var out []models.Lesson
	for _, l := range s.lessons {
		if l.ID != excludeID && l.Overlaps(start, end) {
			out = append(out, l)
		}
	}
	return out, nil
}
