package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"

	"github.com/felixgeelhaar/learnlens/internal/domain"
)

// uniqueViolation is the PostgreSQL SQLSTATE for duplicate keys
const uniqueViolation = "23505"

// EventLog appends progress events to the progress_events table through
// database/sql so it can share a DSN with tools that expect lib/pq.
type EventLog struct {
	db *sql.DB
}

// OpenEventLog connects to the event log database
func OpenEventLog(dsn string) (*EventLog, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	return &EventLog{db: db}, nil
}

// NewEventLog wraps an existing handle
func NewEventLog(db *sql.DB) *EventLog {
	return &EventLog{db: db}
}

// Close releases the underlying handle
func (l *EventLog) Close() error {
	return l.db.Close()
}

// PublishEvent appends an event. Redelivered events are ignored.
func (l *EventLog) PublishEvent(ctx context.Context, e domain.ProgressEvent) error {
	metadata, err := eventMetadata(e)
	if err != nil {
		return err
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO progress_events (id, event_type, user_id, course_id, lesson_id, score, passed, metadata, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, string(e.Type), e.UserID, e.CourseID, e.LessonID,
		nullInt(e.Score), nullBool(e.Passed), metadata, e.Timestamp,
	)
	if isUniqueViolation(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("append progress event: %w", err)
	}
	return nil
}

// ListByUser returns up to limit events for the user, newest first
func (l *EventLog) ListByUser(ctx context.Context, userID string, limit int) ([]domain.ProgressEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, event_type, user_id, course_id, lesson_id, score, passed, metadata, occurred_at
		FROM progress_events WHERE user_id = $1
		ORDER BY occurred_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list progress events: %w", err)
	}
	defer rows.Close()

	events := []domain.ProgressEvent{}
	for rows.Next() {
		var (
			e         domain.ProgressEvent
			eventType string
			score     sql.NullInt32
			passed    sql.NullBool
			metadata  pqtype.NullRawMessage
		)
		if err := rows.Scan(&e.ID, &eventType, &e.UserID, &e.CourseID, &e.LessonID,
			&score, &passed, &metadata, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan progress event: %w", err)
		}
		e.Type = domain.EventType(eventType)
		if score.Valid {
			v := int(score.Int32)
			e.Score = &v
		}
		if passed.Valid {
			e.Passed = &passed.Bool
		}
		if metadata.Valid {
			var result domain.QuizResult
			if err := json.Unmarshal(metadata.RawMessage, &result); err != nil {
				return nil, fmt.Errorf("unmarshal event metadata: %w", err)
			}
			e.QuizResult = &result
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// eventMetadata stores the quiz result of a submission; other events carry none
func eventMetadata(e domain.ProgressEvent) (pqtype.NullRawMessage, error) {
	if e.QuizResult == nil {
		return pqtype.NullRawMessage{}, nil
	}
	data, err := json.Marshal(e.QuizResult)
	if err != nil {
		return pqtype.NullRawMessage{}, fmt.Errorf("marshal quiz result: %w", err)
	}
	return pqtype.NullRawMessage{RawMessage: data, Valid: true}, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func nullInt(v *int) sql.NullInt32 {
	if v == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*v), Valid: true}
}

func nullBool(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}
