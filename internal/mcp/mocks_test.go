package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/learnlens/internal/analytics"
	"github.com/felixgeelhaar/learnlens/internal/catalog"
	"github.com/felixgeelhaar/learnlens/internal/domain"
	"github.com/felixgeelhaar/learnlens/internal/progress"
)

var errUnavailable = errors.New("store unavailable")

// failingService returns errUnavailable from every operation
type failingService struct{}

var _ progress.ProgressService = failingService{}

func (failingService) Catalog(context.Context, catalog.Filter) ([]*domain.Course, error) {
	return nil, errUnavailable
}

func (failingService) Course(context.Context, string) (*domain.Course, error) {
	return nil, errUnavailable
}

func (failingService) Enroll(context.Context, string, string) (*domain.Progress, error) {
	return nil, errUnavailable
}

func (failingService) Unenroll(context.Context, string, string) error {
	return errUnavailable
}

func (failingService) OpenLesson(context.Context, string, string, string) (*progress.LessonView, error) {
	return nil, errUnavailable
}

func (failingService) CompleteLesson(context.Context, string, string, string) (*domain.Progress, error) {
	return nil, errUnavailable
}

func (failingService) SubmitQuiz(context.Context, string, string, string, progress.Answers, int) (*progress.Graded, error) {
	return nil, errUnavailable
}

func (failingService) CourseStatus(context.Context, string, string) (*progress.CourseStatus, error) {
	return nil, errUnavailable
}

func (failingService) Dashboard(context.Context, string) (*analytics.Dashboard, error) {
	return nil, errUnavailable
}

func (failingService) TopicReport(context.Context, string) (analytics.TopicPerformance, error) {
	return nil, errUnavailable
}

func (failingService) WeakAreas(context.Context, string, float64) ([]analytics.WeakArea, error) {
	return nil, errUnavailable
}

func (failingService) Recommendations(context.Context, string) ([]analytics.Recommendation, error) {
	return nil, errUnavailable
}
