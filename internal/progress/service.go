// Package progress owns the learner write path (enrollment, lesson
// completion, quiz submission) and feeds stored records to the analyzer.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/learnlens/internal/analytics"
	"github.com/felixgeelhaar/learnlens/internal/catalog"
	"github.com/felixgeelhaar/learnlens/internal/domain"
)

// Service coordinates repositories, the analyzer and the event sink
type Service struct {
	courses  domain.CourseRepository
	progress domain.ProgressRepository
	analyzer *analytics.Analyzer
	events   EventSink
	now      func() time.Time
	logger   *slog.Logger

	// mu serializes read-modify-write cycles on progress records
	mu sync.Mutex
}

// Option configures a Service
type Option func(*Service)

// WithAnalyzer replaces the default analyzer
func WithAnalyzer(a *analytics.Analyzer) Option {
	return func(s *Service) {
		if a != nil {
			s.analyzer = a
		}
	}
}

// WithEventSink publishes every mutation to sink
func WithEventSink(sink EventSink) Option {
	return func(s *Service) { s.events = sink }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the service logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a progress service over the given repositories
func NewService(courses domain.CourseRepository, progress domain.ProgressRepository, opts ...Option) *Service {
	s := &Service{
		courses:  courses,
		progress: progress,
		analyzer: analytics.NewAnalyzer(),
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyzer returns the analyzer used for read operations
func (s *Service) Analyzer() *analytics.Analyzer {
	return s.analyzer
}

// Catalog lists the courses matching filter
func (s *Service) Catalog(ctx context.Context, filter catalog.Filter) ([]*domain.Course, error) {
	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return catalog.Apply(courses, filter), nil
}

// Course returns a single course
func (s *Service) Course(ctx context.Context, courseID string) (*domain.Course, error) {
	if strings.TrimSpace(courseID) == "" {
		return nil, fmt.Errorf("%w: course ID is required", domain.ErrInvalidInput)
	}
	return s.courses.Get(ctx, courseID)
}

// Enroll creates the user's progress record for a course. Enrolling twice
// returns the existing record unchanged.
func (s *Service) Enroll(ctx context.Context, userID, courseID string) (*domain.Progress, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	if _, err := s.Course(ctx, courseID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, _, err := s.loadOrEnroll(ctx, userID, courseID)
	return p, err
}

// Unenroll deletes the user's progress for a course
func (s *Service) Unenroll(ctx context.Context, userID, courseID string) error {
	if err := validateUser(userID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.progress.Delete(ctx, userID, courseID); err != nil {
		return err
	}
	s.logger.Info("unenrolled", "user_id", userID, "course_id", courseID)
	s.emit(ctx, domain.NewProgressEvent(domain.EventUnenrolled, userID, courseID, s.now()))
	return nil
}

// LessonView is a lesson with its neighbours in course order
type LessonView struct {
	Course    *domain.Course   `json:"course"`
	Lesson    domain.Lesson    `json:"lesson"`
	Previous  *domain.Lesson   `json:"previous,omitempty"`
	Next      *domain.Lesson   `json:"next,omitempty"`
	Completed bool             `json:"completed"`
	Progress  *domain.Progress `json:"progress"`
}

// OpenLesson records an access to a lesson, enrolling the user on first
// visit, and returns the lesson with navigation.
func (s *Service) OpenLesson(ctx context.Context, userID, courseID, lessonID string) (*LessonView, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	course, err := s.Course(ctx, courseID)
	if err != nil {
		return nil, err
	}
	lesson, ok := course.FindLesson(lessonID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrLessonNotInCourse, lessonID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, created, err := s.loadOrEnroll(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if !created {
		p.Touch(s.now())
		if err := s.progress.Save(ctx, p); err != nil {
			return nil, fmt.Errorf("save progress: %w", err)
		}
	}

	view := &LessonView{
		Course:    course,
		Lesson:    lesson,
		Completed: p.IsLessonCompleted(lessonID),
		Progress:  p,
	}
	if prev, ok := course.PreviousLesson(lessonID); ok {
		view.Previous = &prev
	}
	if next, ok := course.NextLesson(lessonID); ok {
		view.Next = &next
	}
	return view, nil
}

// CompleteLesson marks a lesson finished. The lesson must belong to the
// course; the user is enrolled on first completion.
func (s *Service) CompleteLesson(ctx context.Context, userID, courseID, lessonID string) (*domain.Progress, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	course, err := s.Course(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.HasLesson(lessonID) {
		return nil, fmt.Errorf("%w: %s", domain.ErrLessonNotInCourse, lessonID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, _, err := s.loadOrEnroll(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := p.MarkLessonComplete(course, lessonID, now); err != nil {
		return nil, err
	}
	if err := s.progress.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("save progress: %w", err)
	}

	s.logger.Info("lesson completed",
		"user_id", userID,
		"course_id", courseID,
		"lesson_id", lessonID,
		"completion", s.analyzer.CourseCompletion(course, p),
	)
	event := domain.NewProgressEvent(domain.EventLessonCompleted, userID, courseID, now)
	event.LessonID = lessonID
	s.emit(ctx, event)
	return p, nil
}

// SubmitQuiz grades and records a quiz attempt. A passing attempt also
// completes the lesson. Every attempt is kept in the quiz history.
func (s *Service) SubmitQuiz(ctx context.Context, userID, courseID, lessonID string, answers Answers, timeSpentSeconds int) (*Graded, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	course, err := s.Course(ctx, courseID)
	if err != nil {
		return nil, err
	}
	lesson, ok := course.FindLesson(lessonID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrLessonNotInCourse, lessonID)
	}

	now := s.now()
	graded, err := GradeQuiz(lesson, answers, timeSpentSeconds, now)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, _, err := s.loadOrEnroll(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if err := p.RecordQuizResult(course, graded.Result, graded.Passed, now); err != nil {
		return nil, err
	}
	if err := s.progress.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("save progress: %w", err)
	}

	s.logger.Info("quiz submitted",
		"user_id", userID,
		"course_id", courseID,
		"lesson_id", lessonID,
		"score", graded.Result.Score,
		"passed", graded.Passed,
	)
	event := domain.NewProgressEvent(domain.EventQuizSubmitted, userID, courseID, now)
	event.LessonID = lessonID
	event.Score = &graded.Result.Score
	event.Passed = &graded.Passed
	event.QuizResult = &graded.Result
	s.emit(ctx, event)
	return &graded, nil
}

// CourseStatus is one course seen from a learner's perspective
type CourseStatus struct {
	Course     *domain.Course   `json:"course"`
	Progress   *domain.Progress `json:"progress,omitempty"`
	Enrolled   bool             `json:"enrolled"`
	Completion float64          `json:"completion"`
	Completed  bool             `json:"completed"`
	NextLesson *domain.Lesson   `json:"next_lesson,omitempty"`
}

// CourseStatus reports completion for one course. Unknown courses return a
// NotFoundError; courses without progress report zero completion.
func (s *Service) CourseStatus(ctx context.Context, userID, courseID string) (*CourseStatus, error) {
	courses, records, err := s.snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	byCourse := analytics.ProgressByCourse(records)

	completion, err := s.analyzer.CourseCompletionByID(courses, byCourse, courseID)
	if err != nil {
		return nil, err
	}

	var course *domain.Course
	for _, c := range courses {
		if c != nil && c.ID == courseID {
			course = c
			break
		}
	}
	p := byCourse[courseID]
	status := &CourseStatus{
		Course:     course,
		Progress:   p,
		Enrolled:   p != nil,
		Completion: completion,
		Completed:  s.analyzer.IsCourseCompleted(course, p),
	}
	for _, l := range course.AllLessons() {
		if !p.IsLessonCompleted(l.ID) {
			next := l
			status.NextLesson = &next
			break
		}
	}
	return status, nil
}

// Dashboard builds the learner's analytics snapshot
func (s *Service) Dashboard(ctx context.Context, userID string) (*analytics.Dashboard, error) {
	courses, records, err := s.snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	d := s.analyzer.Dashboard(courses, analytics.ProgressByCourse(records))
	return &d, nil
}

// TopicReport aggregates the user's answered questions by topic
func (s *Service) TopicReport(ctx context.Context, userID string) (analytics.TopicPerformance, error) {
	records, err := s.records(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.analyzer.TopicPerformance(records), nil
}

// WeakAreas lists topics below threshold. A threshold of zero or less uses
// the analyzer's configured threshold.
func (s *Service) WeakAreas(ctx context.Context, userID string, threshold float64) ([]analytics.WeakArea, error) {
	perf, err := s.TopicReport(ctx, userID)
	if err != nil {
		return nil, err
	}
	if threshold <= 0 {
		return s.analyzer.WeakAreas(perf), nil
	}
	return analytics.IdentifyWeakAreas(perf, threshold), nil
}

// Recommendations suggests practice for the user's weak areas
func (s *Service) Recommendations(ctx context.Context, userID string) ([]analytics.Recommendation, error) {
	weak, err := s.WeakAreas(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	return s.analyzer.Recommendations(weak), nil
}

// snapshot loads the course catalog and the user's progress records
func (s *Service) snapshot(ctx context.Context, userID string) ([]*domain.Course, []*domain.Progress, error) {
	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list courses: %w", err)
	}
	records, err := s.records(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return courses, records, nil
}

func (s *Service) records(ctx context.Context, userID string) ([]*domain.Progress, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	records, err := s.progress.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return records, nil
}

// loadOrEnroll returns the existing record or creates one. Callers hold mu.
func (s *Service) loadOrEnroll(ctx context.Context, userID, courseID string) (*domain.Progress, bool, error) {
	p, err := s.progress.Get(ctx, userID, courseID)
	if err == nil {
		p.Normalize()
		return p, false, nil
	}
	if !errors.Is(err, domain.ErrProgressNotFound) {
		return nil, false, fmt.Errorf("get progress: %w", err)
	}

	now := s.now()
	p = domain.NewProgress(userID, courseID, now)
	if err := s.progress.Save(ctx, p); err != nil {
		return nil, false, fmt.Errorf("save progress: %w", err)
	}
	s.logger.Info("enrolled", "user_id", userID, "course_id", courseID)
	s.emit(ctx, domain.NewProgressEvent(domain.EventEnrolled, userID, courseID, now))
	return p, true, nil
}

// emit publishes an event. Delivery failures are logged and never undo the
// stored mutation.
func (s *Service) emit(ctx context.Context, event domain.ProgressEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishEvent(ctx, event); err != nil {
		s.logger.Warn("publish progress event failed",
			"event_id", event.ID,
			"type", event.Type,
			"error", err,
		)
	}
}

func validateUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user ID is required", domain.ErrInvalidInput)
	}
	return nil
}
