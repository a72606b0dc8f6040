package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/learnlens/internal/domain"
)

const courseColumns = `id, title, subject, difficulty, instructor, description, thumbnail, duration_hours, modules`

// CourseRepository implements course persistence using PostgreSQL
type CourseRepository struct {
	pool *pgxpool.Pool
}

var (
	_ domain.CourseRepository = (*CourseRepository)(nil)
	_ domain.CourseWriter     = (*CourseRepository)(nil)
)

// NewCourseRepository creates a new PostgreSQL course repository
func NewCourseRepository(pool *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{pool: pool}
}

// SaveCourse inserts or replaces a course
func (r *CourseRepository) SaveCourse(ctx context.Context, c *domain.Course) error {
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

	query := `
		INSERT INTO courses (` + courseColumns + `, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			subject = EXCLUDED.subject,
			difficulty = EXCLUDED.difficulty,
			instructor = EXCLUDED.instructor,
			description = EXCLUDED.description,
			thumbnail = EXCLUDED.thumbnail,
			duration_hours = EXCLUDED.duration_hours,
			modules = EXCLUDED.modules,
			updated_at = now()
	`
	_, err = r.pool.Exec(ctx, query,
		c.ID, c.Title, c.Subject, string(c.Difficulty), c.Instructor,
		c.Description, c.Thumbnail, c.DurationHours, modulesJSON,
	)
	if err != nil {
		return fmt.Errorf("save course %s: %w", c.ID, err)
	}
	return nil
}

// Get retrieves a course by ID
func (r *CourseRepository) Get(ctx context.Context, id string) (*domain.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`
	c, err := scanCourse(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.CourseNotFound(id)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// List returns all courses in insertion order
func (r *CourseRepository) List(ctx context.Context) ([]*domain.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses ORDER BY created_at, id`
	rows, err := r.pool.Query(ctx, query)
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

func scanCourse(row pgx.Row) (*domain.Course, error) {
	var (
		c           domain.Course
		difficulty  string
		modulesJSON []byte
	)
	err := row.Scan(
		&c.ID, &c.Title, &c.Subject, &difficulty, &c.Instructor,
		&c.Description, &c.Thumbnail, &c.DurationHours, &modulesJSON,
	)
	if err != nil {
		return nil, err
	}
	c.Difficulty = domain.Difficulty(difficulty)
	if err := json.Unmarshal(modulesJSON, &c.Modules); err != nil {
		return nil, fmt.Errorf("unmarshal modules for course %s: %w", c.ID, err)
	}
	c.Normalize()
	return &c, nil
}
