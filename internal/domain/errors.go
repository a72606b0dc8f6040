package domain

import (
	"errors"
	"fmt"
)

// General errors
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
)

// Course and progress errors
var (
	ErrCourseNotFound    = errors.New("course not found")
	ErrProgressNotFound  = errors.New("progress not found")
	ErrLessonNotInCourse = errors.New("lesson does not belong to course")
	ErrNotQuizLesson     = errors.New("lesson is not a quiz")
)

// NotFoundError is returned when a caller asks for a specific record by
// identifier and the identifier is absent from the supplied collection.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// Is lets errors.Is match both ErrNotFound and the kind-specific sentinel.
func (e *NotFoundError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return true
	case ErrCourseNotFound:
		return e.Kind == "course"
	case ErrProgressNotFound:
		return e.Kind == "progress"
	}
	return false
}

// CourseNotFound builds a NotFoundError for a course
func CourseNotFound(id string) error {
	return &NotFoundError{Kind: "course", ID: id}
}

// ProgressNotFound builds a NotFoundError for a progress record
func ProgressNotFound(userID, courseID string) error {
	return &NotFoundError{Kind: "progress", ID: userID + "/" + courseID}
}
