package progress

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/learnlens/internal/analytics"
	"github.com/felixgeelhaar/learnlens/internal/catalog"
	"github.com/felixgeelhaar/learnlens/internal/domain"
)

// EventSink receives every progress mutation. The queue producer and the
// SQL event stores implement it.
type EventSink interface {
	PublishEvent(ctx context.Context, event domain.ProgressEvent) error
}

// EventSinkFunc adapts a function to EventSink
type EventSinkFunc func(ctx context.Context, event domain.ProgressEvent) error

// PublishEvent calls f
func (f EventSinkFunc) PublishEvent(ctx context.Context, event domain.ProgressEvent) error {
	return f(ctx, event)
}

// MultiSink publishes to every sink in order and joins their errors
type MultiSink []EventSink

// PublishEvent delivers event to each sink even when an earlier one fails
func (m MultiSink) PublishEvent(ctx context.Context, event domain.ProgressEvent) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.PublishEvent(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ProgressService is the surface used by the daemon handlers and MCP tools
type ProgressService interface {
	Catalog(ctx context.Context, filter catalog.Filter) ([]*domain.Course, error)
	Course(ctx context.Context, courseID string) (*domain.Course, error)

	Enroll(ctx context.Context, userID, courseID string) (*domain.Progress, error)
	Unenroll(ctx context.Context, userID, courseID string) error
	OpenLesson(ctx context.Context, userID, courseID, lessonID string) (*LessonView, error)
	CompleteLesson(ctx context.Context, userID, courseID, lessonID string) (*domain.Progress, error)
	SubmitQuiz(ctx context.Context, userID, courseID, lessonID string, answers Answers, timeSpentSeconds int) (*Graded, error)

	CourseStatus(ctx context.Context, userID, courseID string) (*CourseStatus, error)
	Dashboard(ctx context.Context, userID string) (*analytics.Dashboard, error)
	TopicReport(ctx context.Context, userID string) (analytics.TopicPerformance, error)
	WeakAreas(ctx context.Context, userID string, threshold float64) ([]analytics.WeakArea, error)
	Recommendations(ctx context.Context, userID string) ([]analytics.Recommendation, error)
}

var _ ProgressService = (*Service)(nil)
