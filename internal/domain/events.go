package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType names a progress mutation
type EventType string

const (
	EventEnrolled        EventType = "progress.enrolled"
	EventLessonCompleted EventType = "progress.lesson_completed"
	EventQuizSubmitted   EventType = "progress.quiz_submitted"
	EventUnenrolled      EventType = "progress.unenrolled"
)

// ProgressEvent is emitted whenever a learner's progress record changes.
// It is the unit carried by the event queue and the event log.
type ProgressEvent struct {
	ID         uuid.UUID   `json:"id"`
	Type       EventType   `json:"type"`
	UserID     string      `json:"user_id"`
	CourseID   string      `json:"course_id"`
	LessonID   string      `json:"lesson_id,omitempty"`
	Score      *int        `json:"score,omitempty"`
	Passed     *bool       `json:"passed,omitempty"`
	QuizResult *QuizResult `json:"quiz_result,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// NewProgressEvent creates an event with a fresh ID
func NewProgressEvent(eventType EventType, userID, courseID string, at time.Time) ProgressEvent {
	return ProgressEvent{
		ID:        uuid.New(),
		Type:      eventType,
		UserID:    userID,
		CourseID:  courseID,
		Timestamp: at,
	}
}

// EventHandler processes progress events
type EventHandler func(event ProgressEvent)

// EventDispatcher fans events out to in-process subscribers
type EventDispatcher struct {
	mu          sync.RWMutex
	handlers    map[EventType][]EventHandler
	allHandlers []EventHandler
}

// NewEventDispatcher creates a new event dispatcher
func NewEventDispatcher() *EventDispatcher {
	return &EventDispatcher{
		handlers: make(map[EventType][]EventHandler),
	}
}

// Subscribe registers a handler for a specific event type
func (d *EventDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

// SubscribeAll registers a handler for all event types
func (d *EventDispatcher) SubscribeAll(handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.allHandlers = append(d.allHandlers, handler)
}

// Publish dispatches an event to all registered handlers
func (d *EventDispatcher) Publish(event ProgressEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, h := range d.handlers[event.Type] {
		h(event)
	}
	for _, h := range d.allHandlers {
		h(event)
	}
}
