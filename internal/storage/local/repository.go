package local

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/learnlens/internal/domain"
	"github.com/felixgeelhaar/learnlens/internal/record"
)

// Collections used by the repositories
const (
	CoursesCollection  = "courses"
	ProgressCollection = "progress"
)

// keySeparator joins user and course IDs into a progress file name
const keySeparator = "__"

// CourseRepository stores courses in the courses collection
type CourseRepository struct {
	store *Store
}

var (
	_ domain.CourseRepository = (*CourseRepository)(nil)
	_ domain.CourseWriter     = (*CourseRepository)(nil)
)

// NewCourseRepository creates a course repository over store
func NewCourseRepository(store *Store) *CourseRepository {
	return &CourseRepository{store: store}
}

// List returns every stored course ordered by ID, numeric IDs numerically
func (r *CourseRepository) List(ctx context.Context) ([]*domain.Course, error) {
	ids, err := r.store.List(CoursesCollection)
	if err != nil {
		return nil, err
	}
	sortIDs(ids)

	courses := make([]*domain.Course, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var c domain.Course
		if err := r.store.Load(CoursesCollection, id, &c); err != nil {
			return nil, fmt.Errorf("load course %s: %w", id, err)
		}
		c.Normalize()
		courses = append(courses, &c)
	}
	return courses, nil
}

// Get returns one course
func (r *CourseRepository) Get(ctx context.Context, id string) (*domain.Course, error) {
	var c domain.Course
	if err := r.store.Load(CoursesCollection, id, &c); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, domain.CourseNotFound(id)
		}
		return nil, err
	}
	c.Normalize()
	return &c, nil
}

// SaveCourse writes a course
func (r *CourseRepository) SaveCourse(ctx context.Context, c *domain.Course) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("%w: course ID is required", domain.ErrInvalidInput)
	}
	return r.store.Save(CoursesCollection, c.ID, c)
}

// SeedCourses loads a JSON array of course records from path and saves each
// one. The file may use the backend record shape, so it goes through the
// same decoding as remote records. Returns the number of courses written.
func SeedCourses(ctx context.Context, w domain.CourseWriter, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read course catalog: %w", err)
	}

	var records []record.Record
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&records); err != nil {
		return 0, fmt.Errorf("decode course catalog: %w", err)
	}

	courses, err := record.DecodeCourses(records)
	if err != nil {
		return 0, err
	}
	for _, c := range courses {
		if err := w.SaveCourse(ctx, c); err != nil {
			return 0, fmt.Errorf("save course %s: %w", c.ID, err)
		}
	}
	return len(courses), nil
}

// ProgressRepository stores one file per (user, course) pair
type ProgressRepository struct {
	store *Store
}

var _ domain.ProgressRepository = (*ProgressRepository)(nil)

// NewProgressRepository creates a progress repository over store
func NewProgressRepository(store *Store) *ProgressRepository {
	return &ProgressRepository{store: store}
}

// ProgressKey is the file name of a progress record
func ProgressKey(userID, courseID string) string {
	return userID + keySeparator + courseID
}

// validUserID reports whether userID splits back out of a progress key.
// Without the separator or a trailing underscore, the first separator in
// the key always ends the user ID.
func validUserID(userID string) bool {
	return userID != "" && !strings.Contains(userID, keySeparator) && !strings.HasSuffix(userID, "_")
}

// Get returns the user's progress for a course
func (r *ProgressRepository) Get(ctx context.Context, userID, courseID string) (*domain.Progress, error) {
	var p domain.Progress
	if err := r.store.Load(ProgressCollection, ProgressKey(userID, courseID), &p); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, domain.ProgressNotFound(userID, courseID)
		}
		return nil, err
	}
	if p.UserID != userID || p.CourseID != courseID {
		return nil, domain.ProgressNotFound(userID, courseID)
	}
	p.Normalize()
	return &p, nil
}

// ListByUser returns the user's progress records ordered by course ID
func (r *ProgressRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Progress, error) {
	ids, err := r.store.List(ProgressCollection)
	if err != nil {
		return nil, err
	}

	var courseIDs []string
	for _, id := range ids {
		if owner, courseID, ok := strings.Cut(id, keySeparator); ok && owner == userID {
			courseIDs = append(courseIDs, courseID)
		}
	}
	sortIDs(courseIDs)

	out := make([]*domain.Progress, 0, len(courseIDs))
	for _, courseID := range courseIDs {
		p, err := r.Get(ctx, userID, courseID)
		if errors.Is(err, domain.ErrProgressNotFound) {
			// removed since List, or a file owned by someone else
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Save writes the progress record
func (r *ProgressRepository) Save(ctx context.Context, p *domain.Progress) error {
	if p == nil || p.UserID == "" || p.CourseID == "" {
		return fmt.Errorf("%w: progress needs user and course", domain.ErrInvalidInput)
	}
	if !validUserID(p.UserID) {
		return fmt.Errorf("%w: user ID may not contain %q or end with an underscore", domain.ErrInvalidInput, keySeparator)
	}
	return r.store.Save(ProgressCollection, ProgressKey(p.UserID, p.CourseID), p)
}

// Delete removes the user's progress for a course
func (r *ProgressRepository) Delete(ctx context.Context, userID, courseID string) error {
	if err := r.store.Delete(ProgressCollection, ProgressKey(userID, courseID)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.ProgressNotFound(userID, courseID)
		}
		return err
	}
	return nil
}

// sortIDs orders numeric IDs numerically ahead of textual ones
func sortIDs(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return ids[i] < ids[j]
	})
}
