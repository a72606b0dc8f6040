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

// ProgressStore implements progress persistence backed by SQLite. Nested
// collections are stored as JSON text columns.
type ProgressStore struct {
	db *DB
}

var _ domain.ProgressRepository = (*ProgressStore)(nil)

// NewProgressStore creates a new SQLite-backed progress store
func NewProgressStore(db *DB) *ProgressStore {
	return &ProgressStore{db: db}
}

// Save inserts or updates the record for the (user, course) pair
func (s *ProgressStore) Save(ctx context.Context, p *domain.Progress) error {
	if p == nil || p.UserID == "" || p.CourseID == "" || p.ID == "" {
		return fmt.Errorf("%w: progress needs id, user and course", domain.ErrInvalidInput)
	}
	p.Normalize()

	completed, err := json.Marshal(p.CompletedLessons)
	if err != nil {
		return fmt.Errorf("marshal completed_lessons: %w", err)
	}
	scores, err := json.Marshal(p.QuizScores)
	if err != nil {
		return fmt.Errorf("marshal quiz_scores: %w", err)
	}
	results, err := json.Marshal(p.QuizResults)
	if err != nil {
		return fmt.Errorf("marshal quiz_results: %w", err)
	}

	var lastAccessed sql.NullTime
	if p.LastAccessed != nil {
		lastAccessed = sql.NullTime{Time: p.LastAccessed.UTC(), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO progress (id, user_id, course_id, completed_lessons,
			quiz_scores, quiz_results, last_accessed, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, course_id) DO UPDATE SET
			completed_lessons=excluded.completed_lessons,
			quiz_scores=excluded.quiz_scores,
			quiz_results=excluded.quiz_results,
			last_accessed=excluded.last_accessed,
			updated_at=excluded.updated_at`,
		p.ID, p.UserID, p.CourseID, string(completed),
		string(scores), string(results), lastAccessed, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

// Get retrieves the user's progress for a course
func (s *ProgressStore) Get(ctx context.Context, userID, courseID string) (*domain.Progress, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, course_id, completed_lessons, quiz_scores,
			quiz_results, last_accessed
		FROM progress WHERE user_id = ? AND course_id = ?`, userID, courseID)

	p, err := scanProgress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ProgressNotFound(userID, courseID)
	}
	return p, err
}

// ListByUser returns the user's progress ordered by enrollment
func (s *ProgressStore) ListByUser(ctx context.Context, userID string) ([]*domain.Progress, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, course_id, completed_lessons, quiz_scores,
			quiz_results, last_accessed
		FROM progress WHERE user_id = ? ORDER BY rowid`, userID)
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
func (s *ProgressStore) Delete(ctx context.Context, userID, courseID string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM progress WHERE user_id = ? AND course_id = ?", userID, courseID)
	if err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ProgressNotFound(userID, courseID)
	}
	return nil
}

func scanProgress(row scanner) (*domain.Progress, error) {
	var (
		p                          domain.Progress
		completed, scores, results string
		lastAccessed               sql.NullTime
	)
	err := row.Scan(&p.ID, &p.UserID, &p.CourseID, &completed, &scores, &results, &lastAccessed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan progress: %w", err)
	}

	if err := json.Unmarshal([]byte(completed), &p.CompletedLessons); err != nil {
		return nil, fmt.Errorf("unmarshal completed_lessons: %w", err)
	}
	if err := json.Unmarshal([]byte(scores), &p.QuizScores); err != nil {
		return nil, fmt.Errorf("unmarshal quiz_scores: %w", err)
	}
	if err := json.Unmarshal([]byte(results), &p.QuizResults); err != nil {
		return nil, fmt.Errorf("unmarshal quiz_results: %w", err)
	}
	if lastAccessed.Valid {
		t := lastAccessed.Time
		p.LastAccessed = &t
	}
	p.Normalize()
	return &p, nil
}
