package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/learnlens/internal/domain"
)

type publisher interface {
	PublishJSON(ctx context.Context, queue, messageID string, data any) error
}

// Producer publishes progress events to the queue
type Producer struct {
	pub publisher
}

// NewProducer creates a new queue producer
func NewProducer(conn *Connection) *Producer {
	return &Producer{pub: conn}
}

// PublishEvent publishes a progress event. Missing IDs and timestamps are
// filled in before sending.
func (p *Producer) PublishEvent(ctx context.Context, event domain.ProgressEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := p.pub.PublishJSON(ctx, ProgressQueueName, event.ID.String(), event); err != nil {
		return fmt.Errorf("failed to publish progress event: %w", err)
	}

	slog.Debug("published progress event",
		"event_id", event.ID,
		"type", event.Type,
		"user_id", event.UserID,
		"course_id", event.CourseID,
	)

	return nil
}
