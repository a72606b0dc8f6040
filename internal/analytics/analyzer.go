// Package analytics derives completion, topic performance, weak areas and
// practice recommendations from course structure and learner progress.
//
// Every function here is a pure computation over its inputs. Nothing is
// mutated and no I/O is performed, so an Analyzer is safe for concurrent use.
package analytics

import (
	"sort"

	"github.com/felixgeelhaar/learnlens/internal/domain"
)

// DefaultRecentLimit is the number of courses kept in Enrollment.Recent
const DefaultRecentLimit = 3

// Analyzer computes derived progress metrics
type Analyzer struct {
	catalog       LessonCatalog
	weakThreshold float64
	recentLimit   int
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithLessonCatalog replaces the topic to lesson-title table used for
// recommendations.
func WithLessonCatalog(c LessonCatalog) Option {
	return func(a *Analyzer) {
		a.catalog = c
	}
}

// WithWeakThreshold sets the percentage below which a topic is weak
func WithWeakThreshold(threshold float64) Option {
	return func(a *Analyzer) {
		if threshold > 0 {
			a.weakThreshold = threshold
		}
	}
}

// WithRecentLimit caps the number of recently accessed courses
func WithRecentLimit(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.recentLimit = n
		}
	}
}

// NewAnalyzer creates an analyzer with the default catalog and thresholds
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		catalog:       DefaultLessonCatalog(),
		weakThreshold: DefaultWeakThreshold,
		recentLimit:   DefaultRecentLimit,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// WeakThreshold returns the configured weak-area threshold
func (a *Analyzer) WeakThreshold() float64 {
	return a.weakThreshold
}

// CourseCompletion returns the unrounded completion percentage in [0, 100].
// A nil progress means the learner is not enrolled and yields 0, as does a
// course without lessons.
func (a *Analyzer) CourseCompletion(course *domain.Course, progress *domain.Progress) float64 {
	total := course.TotalLessons()
	if progress == nil || total == 0 {
		return 0
	}
	return float64(progress.CompletedIn(course)) / float64(total) * 100
}

// IsCourseCompleted reports whether every lesson of the course is completed
func (a *Analyzer) IsCourseCompleted(course *domain.Course, progress *domain.Progress) bool {
	total := course.TotalLessons()
	return total > 0 && progress.CompletedIn(course) == total
}

// OverallProgress is the arithmetic mean of CourseCompletion across courses,
// each course weighted equally. An empty collection yields 0.
func (a *Analyzer) OverallProgress(courses []*domain.Course, progressByCourse map[string]*domain.Progress) float64 {
	if len(courses) == 0 {
		return 0
	}
	var sum float64
	for _, c := range courses {
		sum += a.CourseCompletion(c, lookup(progressByCourse, c))
	}
	return sum / float64(len(courses))
}

// CourseCompletionByID looks the course up by identifier before computing
// its completion. It returns a *domain.NotFoundError when no course in the
// collection carries the identifier.
func (a *Analyzer) CourseCompletionByID(courses []*domain.Course, progressByCourse map[string]*domain.Progress, courseID string) (float64, error) {
	for _, c := range courses {
		if c != nil && c.ID == courseID {
			return a.CourseCompletion(c, progressByCourse[courseID]), nil
		}
	}
	return 0, domain.CourseNotFound(courseID)
}

// Enrollment partitions a learner's courses for the dashboard
type Enrollment struct {
	Recent     []*domain.Course `json:"recent"`
	InProgress []*domain.Course `json:"in_progress"`
	Completed  []*domain.Course `json:"completed"`
}

// ClassifyEnrollment splits courses into recently accessed, in progress and
// completed. A course may be both recent and in one of the other two lists.
// Courses at 0% appear in neither InProgress nor Completed.
func (a *Analyzer) ClassifyEnrollment(courses []*domain.Course, progressByCourse map[string]*domain.Progress) Enrollment {
	e := Enrollment{
		Recent:     []*domain.Course{},
		InProgress: []*domain.Course{},
		Completed:  []*domain.Course{},
	}

	type accessed struct {
		course *domain.Course
		at     int64
	}
	var recent []accessed

	for _, c := range courses {
		if c == nil {
			continue
		}
		p := lookup(progressByCourse, c)
		if p != nil && p.LastAccessed != nil {
			recent = append(recent, accessed{course: c, at: p.LastAccessed.UnixNano()})
		}

		switch pct := a.CourseCompletion(c, p); {
		case a.IsCourseCompleted(c, p):
			e.Completed = append(e.Completed, c)
		case pct > 0 && pct < 100:
			e.InProgress = append(e.InProgress, c)
		}
	}

	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].at > recent[j].at
	})
	if len(recent) > a.recentLimit {
		recent = recent[:a.recentLimit]
	}
	for _, r := range recent {
		e.Recent = append(e.Recent, r.course)
	}

	return e
}

func lookup(progressByCourse map[string]*domain.Progress, c *domain.Course) *domain.Progress {
	if c == nil || progressByCourse == nil {
		return nil
	}
	return progressByCourse[c.ID]
}
