package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	"github.com/noah-isme/lesson-scheduler-api/pkg/config"
	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
)

func TestBuildCalendarFeed(t *testing.T) {
	start := time.Date(2030, 1, 7, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	lessons := []models.Lesson{
		{ID: "l-1", InstructorID: "ins-1", StudentID: "stu-1", StartAt: start, EndAt: &end},
		{ID: "l-2", InstructorID: "ins-1", StudentID: "stu-2", StartAt: start.Add(2 * time.Hour)},
	}

	student := BuildCalendarFeed(models.CalendarRoleStudent, lessons)
	require.Len(t, student, 2)
	assert.Equal(t, models.CalendarEntry{ID: "l-1", Title: "Lesson w/ Instructor #ins-1", Start: "2030-01-07T09:00:00.000Z", End: "2030-01-07T10:00:00.000Z"}, student[0])
	assert.Equal(t, student[1].Start, student[1].End)

	instructor := BuildCalendarFeed(models.CalendarRoleInstructor, lessons)
	assert.Equal(t, "Lesson w/ Student #stu-2", instructor[1].Title)
}

func TestCalendarFeedIsStableAndCached(t *testing.T) {
	start := time.Date(2030, 1, 7, 9, 0, 0, 0, time.UTC)
	reader := &lessonListStub{lessons: []models.Lesson{{ID: "l-1", InstructorID: "ins-1", StudentID: "stu-1", StartAt: start}}}
	cache := newMemoryCache()
	svc := NewCalendarService(reader, cache, config.CalendarConfig{CacheEnabled: true, CacheTTL: time.Minute}, nil, nil, nil)

	first, hit, err := svc.Feed(context.Background(), models.CalendarRoleStudent, "stu-1")
	require.NoError(t, err)
	assert.False(t, hit)
	second, hit, err := svc.Feed(context.Background(), models.CalendarRoleStudent, "stu-1")
	require.NoError(t, err)
	assert.True(t, hit)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, reader.calls)
	assert.Equal(t, models.LessonFilter{StudentID: "stu-1"}, reader.lastFilter)

	svc.Invalidate(context.Background(), "stu-1", "ins-1")
	assert.ElementsMatch(t, []string{"calendar:student:stu-1", "calendar:instructor:ins-1"}, cache.deleted)

	_, _, err = svc.Feed(context.Background(), models.CalendarRoleStudent, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 2, reader.calls)
}

func TestCalendarFeedWithoutCache(t *testing.T) {
	reader := &lessonListStub{}
	svc := NewCalendarService(reader, newMemoryCache(), config.CalendarConfig{CacheEnabled: false}, nil, nil, nil)

	entries, _, err := svc.Feed(context.Background(), models.CalendarRoleInstructor, "ins-1")
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NotNil(t, entries)
	_, _, _ = svc.Feed(context.Background(), models.CalendarRoleInstructor, "ins-1")
	assert.Equal(t, 2, reader.calls)
	assert.Equal(t, models.LessonFilter{InstructorID: "ins-1"}, reader.lastFilter)
}

func TestCalendarFeedRejectsUnknownRole(t *testing.T) {
	svc := NewCalendarService(&lessonListStub{}, nil, config.CalendarConfig{}, nil, nil, nil)
	_, _, err := svc.Feed(context.Background(), models.CalendarRole("admin"), "u-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestCalendarExport(t *testing.T) {
	start := time.Date(2030, 1, 7, 9, 0, 0, 0, time.UTC)
	reader := &lessonListStub{lessons: []models.Lesson{{ID: "l-1", InstructorID: "ins-1", StudentID: "stu-1", StartAt: start}}}
	svc := NewCalendarService(reader, nil, config.CalendarConfig{}, nil, nil, nil)

	csvOut, err := svc.Export(context.Background(), models.CalendarRoleStudent, "stu-1", "")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", csvOut.ContentType)
	assert.Equal(t, "lessons-student-stu-1.csv", csvOut.Filename)
	assert.True(t, strings.HasPrefix(string(csvOut.Data), "id,title,start,end\n"))
	assert.Contains(t, string(csvOut.Data), "Lesson w/ Instructor #ins-1")

	pdfOut, err := svc.Export(context.Background(), models.CalendarRoleStudent, "stu-1", "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdfOut.ContentType)
	assert.True(t, strings.HasPrefix(string(pdfOut.Data), "%PDF"))

	_, err = svc.Export(context.Background(), models.CalendarRoleStudent, "stu-1", "xlsx")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

type lessonListStub struct {
	lessons    []models.Lesson
	calls      int
	lastFilter models.LessonFilter
}

func (s *lessonListStub) List(ctx context.Context, filter models.LessonFilter) ([]models.Lesson, error) {
	s.calls++
	s.lastFilter = filter
	return s.lessons, nil
}

type memoryCache struct {
	items   map[string][]byte
	deleted []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, ok := c.items[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.items[key] = raw
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.items, k)
		c.deleted = append(c.deleted, k)
	}
	return nil
}
