package progress

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/felixgeelhaar/learnlens/internal/domain"
)

type memCourses struct {
	courses []*domain.Course
	listErr error
}

func (m *memCourses) List(ctx context.Context) ([]*domain.Course, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.courses, nil
}

func (m *memCourses) Get(ctx context.Context, id string) (*domain.Course, error) {
	for _, c := range m.courses {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, domain.CourseNotFound(id)
}

type memProgress struct {
	mu      sync.Mutex
	records map[string]*domain.Progress
	saveErr error
	saves   int
}

func newMemProgress() *memProgress {
	return &memProgress{records: make(map[string]*domain.Progress)}
}

func (m *memProgress) Get(ctx context.Context, userID, courseID string) (*domain.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.records[userID+"/"+courseID]
	if !ok {
		return nil, domain.ProgressNotFound(userID, courseID)
	}
	return p, nil
}

func (m *memProgress) ListByUser(ctx context.Context, userID string) ([]*domain.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Progress
	for _, p := range m.records {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memProgress) Save(ctx context.Context, p *domain.Progress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.records[p.UserID+"/"+p.CourseID] = p
	return nil
}

func (m *memProgress) Delete(ctx context.Context, userID, courseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := userID + "/" + courseID
	if _, ok := m.records[key]; !ok {
		return domain.ProgressNotFound(userID, courseID)
	}
	delete(m.records, key)
	return nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []domain.ProgressEvent
	err    error
}

func (r *recordingSink) PublishEvent(ctx context.Context, e domain.ProgressEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingSink) types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

var errBoom = errors.New("boom")

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// reactCourse has two video lessons and a three question quiz
func reactCourse() *domain.Course {
	return &domain.Course{
		ID:         "1",
		Title:      "React Fundamentals",
		Subject:    "Programming",
		Difficulty: domain.DifficultyBeginner,
		Instructor: "Sarah Johnson",
		Modules: []domain.Module{
			{ID: "1-1", Lessons: []domain.Lesson{
				{ID: "1-1-1", Title: "What is React?", Kind: domain.LessonVideo},
				{ID: "1-1-2", Title: "JSX", Kind: domain.LessonVideo},
			}},
			{ID: "1-2", Lessons: []domain.Lesson{
				{ID: "1-2-1", Title: "Quiz", Kind: domain.LessonQuiz, PassingScore: 70, Questions: []domain.Question{
					{ID: "1", Prompt: "What is JSX?", Options: []string{"a", "b", "c"}, Correct: 1},
					{ID: "2", Prompt: "What are React hooks?", Options: []string{"a", "b"}, Correct: 0},
					{ID: "3", Prompt: "Which is a prop?", Options: []string{"a", "b"}, Correct: 1, Topic: "components", Difficulty: "hard"},
				}},
			}},
		},
	}
}

func mathCourse() *domain.Course {
	return &domain.Course{
		ID:      "2",
		Title:   "Calculus I",
		Subject: "Mathematics",
		Modules: []domain.Module{{ID: "2-1", Lessons: []domain.Lesson{
			{ID: "2-1-1", Kind: domain.LessonVideo},
		}}},
	}
}

func newTestService(opts ...Option) (*Service, *memProgress, *recordingSink) {
	store := newMemProgress()
	sink := &recordingSink{}
	base := []Option{WithEventSink(sink), WithClock(func() time.Time { return fixedNow })}
	svc := NewService(&memCourses{courses: []*domain.Course{reactCourse(), mathCourse()}}, store, append(base, opts...)...)
	return svc, store, sink
}
