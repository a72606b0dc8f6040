package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/learnlens/internal/domain"
)

// CourseStore implements course persistence backed by SQLite
type CourseStore struct {
	db *DB
}

var (
	_ domain.CourseRepository = (*CourseStore)(nil)
	_ domain.CourseWriter     = (*CourseStore)(nil)
)

// NewCourseStore creates a new SQLite-backed course store
func NewCourseStore(db *DB) *CourseStore {
	return &CourseStore{db: db}
}

// SaveCourse inserts or replaces a course with its module tree
func (s *CourseStore) SaveCourse(ctx context.Context, c *domain.Course) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("%w: course ID is required", domain.ErrInvalidInput)
	}
	modules := c.Modules
	if modules == nil {
		modules = []domain.Module{}
	}
	modulesJSON, err := json.Marshal(modules)
	if err != nil {
		return fmt.Errorf("marshal modules: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO courses (id, title, subject, difficulty, instructor,
			description, thumbnail, duration_hours, modules, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title,
			subject=excluded.subject,
			difficulty=excluded.difficulty,
			instructor=excluded.instructor,
			description=excluded.description,
			thumbnail=excluded.thumbnail,
			duration_hours=excluded.duration_hours,
			modules=excluded.modules,
			updated_at=excluded.updated_at`,
		c.ID, c.Title, c.Subject, string(c.Difficulty), c.Instructor,
		c.Description, c.Thumbnail, c.DurationHours, string(modulesJSON), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert course: %w", err)
	}
	return nil
}

// Get retrieves a course by ID
func (s *CourseStore) Get(ctx context.Context, id string) (*domain.Course, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, subject, difficulty, instructor, description,
			thumbnail, duration_hours, modules
		FROM courses WHERE id = ?`, id)

	c, err := scanCourse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.CourseNotFound(id)
	}
	return c, err
}

// List returns all courses in insertion order
func (s *CourseStore) List(ctx context.Context) ([]*domain.Course, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, subject, difficulty, instructor, description,
			thumbnail, duration_hours, modules
		FROM courses ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	courses := []*domain.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// Delete removes a course and, by cascade, its progress records
func (s *CourseStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM courses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.CourseNotFound(id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCourse(row scanner) (*domain.Course, error) {
	var (
		c          domain.Course
		difficulty string
		modules    string
	)
	err := row.Scan(&c.ID, &c.Title, &c.Subject, &difficulty, &c.Instructor,
		&c.Description, &c.Thumbnail, &c.DurationHours, &modules)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan course: %w", err)
	}
	c.Difficulty = domain.Difficulty(difficulty)
	if err := json.Unmarshal([]byte(modules), &c.Modules); err != nil {
		return nil, fmt.Errorf("unmarshal modules for course %s: %w", c.ID, err)
	}
	c.Normalize()
	return &c, nil
}
