package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/learnlens/internal/domain"
)

const progressColumns = `id, user_id, course_id, completed_lessons, quiz_scores, quiz_results, last_accessed`

// ProgressRepository implements progress persistence using PostgreSQL
type ProgressRepository struct {
	pool *pgxpool.Pool
}

var _ domain.ProgressRepository = (*ProgressRepository)(nil)

// NewProgressRepository creates a new PostgreSQL progress repository
func NewProgressRepository(pool *pgxpool.Pool) *ProgressRepository {
	return &ProgressRepository{pool: pool}
}

// Save upserts the record keyed by (user, course)
func (r *ProgressRepository) Save(ctx context.Context, p *domain.Progress) error {
	if p == nil || p.ID == "" || p.UserID == "" || p.CourseID == "" {
		return fmt.Errorf("%w: progress requires id, user and course", domain.ErrInvalidInput)
	}
	p.Normalize()

	completed, err := json.Marshal(p.CompletedLessons)
	if err != nil {
		return fmt.Errorf("marshal completed lessons: %w", err)
	}
	scores, err := json.Marshal(p.QuizScores)
	if err != nil {
		return fmt.Errorf("marshal quiz scores: %w", err)
	}
	results, err := json.Marshal(p.QuizResults)
	if err != nil {
		return fmt.Errorf("marshal quiz results: %w", err)
	}

	query := `
		INSERT INTO progress (` + progressColumns + `, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (user_id, course_id) DO UPDATE SET
			completed_lessons = EXCLUDED.completed_lessons,
			quiz_scores = EXCLUDED.quiz_scores,
			quiz_results = EXCLUDED.quiz_results,
			last_accessed = EXCLUDED.last_accessed,
			updated_at = now()
	`
	_, err = r.pool.Exec(ctx, query,
		p.ID, p.UserID, p.CourseID, completed, scores, results, p.LastAccessed,
	)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// Get retrieves the user's progress for a course
func (r *ProgressRepository) Get(ctx context.Context, userID, courseID string) (*domain.Progress, error) {
	query := `SELECT ` + progressColumns + ` FROM progress WHERE user_id = $1 AND course_id = $2`
	p, err := scanProgress(r.pool.QueryRow(ctx, query, userID, courseID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ProgressNotFound(userID, courseID)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListByUser returns every record owned by userID
func (r *ProgressRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Progress, error) {
	query := `SELECT ` + progressColumns + ` FROM progress WHERE user_id = $1 ORDER BY course_id`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	out := []*domain.Progress{}
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Delete removes the user's progress for a course
func (r *ProgressRepository) Delete(ctx context.Context, userID, courseID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM progress WHERE user_id = $1 AND course_id = $2`, userID, courseID)
	if err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ProgressNotFound(userID, courseID)
	}
	return nil
}

func scanProgress(row pgx.Row) (*domain.Progress, error) {
	var (
		p                          domain.Progress
		completed, scores, results []byte
		lastAccessed               *time.Time
	)
	err := row.Scan(&p.ID, &p.UserID, &p.CourseID, &completed, &scores, &results, &lastAccessed)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(completed, &p.CompletedLessons); err != nil {
		return nil, fmt.Errorf("unmarshal completed lessons: %w", err)
	}
	if err := json.Unmarshal(scores, &p.QuizScores); err != nil {
		return nil, fmt.Errorf("unmarshal quiz scores: %w", err)
	}
	if err := json.Unmarshal(results, &p.QuizResults); err != nil {
		return nil, fmt.Errorf("unmarshal quiz results: %w", err)
	}
	p.LastAccessed = lastAccessed
	p.Normalize()
	return &p, nil
}
