package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/learnlens/internal/domain"
)

// EventStore records progress events for later auditing and replay
type EventStore struct {
	db *DB
}

// NewEventStore creates a new SQLite-backed event store
func NewEventStore(db *DB) *EventStore {
	return &EventStore{db: db}
}

// PublishEvent stores an event. Replayed events with a known ID are ignored.
func (s *EventStore) PublishEvent(ctx context.Context, e domain.ProgressEvent) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	var lessonID *string
	if e.LessonID != "" {
		lessonID = &e.LessonID
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO progress_events (id, event_type, user_id, course_id, lesson_id, payload, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		e.ID.String(), string(e.Type), e.UserID, e.CourseID, lessonID, string(payload), e.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert progress event: %w", err)
	}
	return nil
}

// ListByUser returns the user's most recent events, newest first. A limit
// of zero or less returns every event.
func (s *EventStore) ListByUser(ctx context.Context, userID string, limit int) ([]domain.ProgressEvent, error) {
	query := "SELECT payload FROM progress_events WHERE user_id = ? ORDER BY occurred_at DESC, rowid DESC"
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query progress events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// CountByType returns the number of stored events per type
func (s *EventStore) CountByType(ctx context.Context) (map[domain.EventType]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT event_type, COUNT(*) FROM progress_events GROUP BY event_type")
	if err != nil {
		return nil, fmt.Errorf("count progress events: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.EventType]int)
	for rows.Next() {
		var (
			eventType string
			n         int
		)
		if err := rows.Scan(&eventType, &n); err != nil {
			return nil, fmt.Errorf("scan event count: %w", err)
		}
		counts[domain.EventType(eventType)] = n
	}
	return counts, rows.Err()
}

func scanEvents(rows *sql.Rows) ([]domain.ProgressEvent, error) {
	events := []domain.ProgressEvent{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan progress event: %w", err)
		}
		var e domain.ProgressEvent
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, fmt.Errorf("unmarshal progress event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
