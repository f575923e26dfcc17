package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
)

type overlapFinder interface {
	FindOverlapping(ctx context.Context, exec sqlx.ExtContext, instructorID string, start, end time.Time, excludeID string) ([]models.Lesson, error)
}

// ConflictChecker detects overlapping upcoming lessons for an instructor.
type ConflictChecker struct {
	lessons overlapFinder
}

// NewConflictChecker constructs a ConflictChecker.
func NewConflictChecker(lessons overlapFinder) *ConflictChecker {
	return &ConflictChecker{lessons: lessons}
}

// HasConflict reports whether [start,end) intersects another upcoming lesson of the
// instructor. exec may be a transaction so the check shares its snapshot.
func (c *ConflictChecker) HasConflict(ctx context.Context, exec sqlx.ExtContext, instructorID string, start, end time.Time, excludeLessonID string) (bool, error) {
	candidates, err := c.lessons.FindOverlapping(ctx, exec, instructorID, start, end, excludeLessonID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check lesson conflicts")
	}
	for _, lesson := range candidates {
		if lesson.ID == excludeLessonID || lesson.Status != models.LessonStatusUpcoming {
			continue
		}
		if lesson.Overlaps(start, end) {
			return true, nil
		}
	}
	return false, nil
}
