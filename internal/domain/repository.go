package domain

import "context"

// CourseRepository is the read capability over published courses
type CourseRepository interface {
	List(ctx context.Context) ([]*Course, error)
	Get(ctx context.Context, id string) (*Course, error)
}

// ProgressRepository stores one Progress record per (user, course) pair
type ProgressRepository interface {
	// Get returns ErrProgressNotFound when the user is not enrolled
	Get(ctx context.Context, userID, courseID string) (*Progress, error)
	ListByUser(ctx context.Context, userID string) ([]*Progress, error)
	Save(ctx context.Context, p *Progress) error
	Delete(ctx context.Context, userID, courseID string) error
}

// CourseWriter is implemented by stores that can also persist courses
type CourseWriter interface {
	SaveCourse(ctx context.Context, c *Course) error
}
