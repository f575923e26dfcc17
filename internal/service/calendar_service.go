package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	"github.com/noah-isme/lesson-scheduler-api/pkg/config"
	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
	"github.com/noah-isme/lesson-scheduler-api/pkg/export"
)

// isoLayout matches JavaScript's Date.toISOString output consumed by calendar widgets.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

type calendarLessonReader interface {
	List(ctx context.Context, filter models.LessonFilter) ([]models.Lesson, error)
}

type calendarCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// CalendarExport is a rendered feed ready to be streamed.
type CalendarExport struct {
	Filename    string
	ContentType string
	Data        []byte
}

// CalendarService projects lessons into read-only calendar feeds.
type CalendarService struct {
	lessons calendarLessonReader
	cache   calendarCache
	csv     csvRenderer
	pdf     pdfRenderer
	ttl     time.Duration
	logger  *zap.Logger
}

// NewCalendarService constructs the service. cache may be nil.
func NewCalendarService(lessons calendarLessonReader, cache calendarCache, cfg config.CalendarConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if !cfg.CacheEnabled {
		cache = nil
	}
	return &CalendarService{lessons: lessons, cache: cache, csv: csv, pdf: pdf, ttl: cfg.CacheTTL, logger: logger}
}

// CalendarCacheKey names the cached feed of one user.
func CalendarCacheKey(role models.CalendarRole, userID string) string {
	return fmt.Sprintf("calendar:%s:%s", role, userID)
}

// BuildCalendarFeed projects lessons for the given viewer. The end falls back to the start
// while a lesson has no end yet.
func BuildCalendarFeed(role models.CalendarRole, lessons []models.Lesson) []models.CalendarEntry {
	entries := make([]models.CalendarEntry, 0, len(lessons))
	for _, l := range lessons {
		title := fmt.Sprintf("Lesson w/ Instructor #%s", l.InstructorID)
		if role == models.CalendarRoleInstructor {
			title = fmt.Sprintf("Lesson w/ Student #%s", l.StudentID)
		}
		entries = append(entries, models.CalendarEntry{
			ID:    l.ID,
			Title: title,
			Start: l.StartAt.UTC().Format(isoLayout),
			End:   l.End().UTC().Format(isoLayout),
		})
	}
	return entries
}

// Feed returns every lesson of the user as calendar entries and whether they came from cache.
func (s *CalendarService) Feed(ctx context.Context, role models.CalendarRole, userID string) ([]models.CalendarEntry, bool, error) {
	if !role.Valid() {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown calendar role %q", role))
	}
	key := CalendarCacheKey(role, userID)
	if s.cache != nil {
		var cached []models.CalendarEntry
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, true, nil
		}
	}

	filter := models.LessonFilter{StudentID: userID}
	if role == models.CalendarRoleInstructor {
		filter = models.LessonFilter{InstructorID: userID}
	}
	lessons, err := s.lessons.List(ctx, filter)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lessons")
	}
	entries := BuildCalendarFeed(role, lessons)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, entries, s.ttl); err != nil {
			s.logger.Debug("calendar cache write skipped", zap.String("key", key), zap.Error(err))
		}
	}
	return entries, false, nil
}

// Invalidate drops cached feeds of both participants of a changed lesson.
func (s *CalendarService) Invalidate(ctx context.Context, studentID, instructorID string) {
	if s.cache == nil {
		return
	}
	keys := []string{
		CalendarCacheKey(models.CalendarRoleStudent, studentID),
		CalendarCacheKey(models.CalendarRoleInstructor, instructorID),
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("calendar cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// Export renders the user's feed as csv or pdf.
func (s *CalendarService) Export(ctx context.Context, role models.CalendarRole, userID, format string) (*CalendarExport, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	entries, _, err := s.Feed(ctx, role, userID)
	if err != nil {
		return nil, err
	}
	dataset := export.Dataset{Headers: []string{"id", "title", "start", "end"}}
	for _, e := range entries {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"id":    e.ID,
			"title": e.Title,
			"start": e.Start,
			"end":   e.End,
		})
	}

	filename := fmt.Sprintf("lessons-%s-%s.%s", role, userID, format)
	if format == "pdf" {
		data, err := s.pdf.Render(dataset, fmt.Sprintf("Lessons (%s)", role))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &CalendarExport{Filename: filename, ContentType: "application/pdf", Data: data}, nil
	}
	data, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return &CalendarExport{Filename: filename, ContentType: "text/csv", Data: data}, nil
}
