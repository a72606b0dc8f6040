package analytics

import "github.com/felixgeelhaar/learnlens/internal/domain"

// Dashboard is a consumer-facing snapshot of a learner's progress
type Dashboard struct {
	EnrolledCourses int              `json:"enrolled_courses"`
	CompletedCount  int              `json:"completed_count"`
	OverallProgress float64          `json:"overall_progress"`
	Enrollment      Enrollment       `json:"enrollment"`
	Quizzes         QuizSummary      `json:"quizzes"`
	Subjects        []SubjectCount   `json:"subjects"`
	Topics          TopicPerformance `json:"topics"`
	WeakAreas       []WeakArea       `json:"weak_areas"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Dashboard builds the snapshot for the courses the learner is enrolled in,
// that is, the courses with an entry in progressByCourse. Progress records
// whose course is not in courses are ignored.
func (a *Analyzer) Dashboard(courses []*domain.Course, progressByCourse map[string]*domain.Progress) Dashboard {
	enrolled := EnrolledCourses(courses, progressByCourse)

	progresses := make([]*domain.Progress, 0, len(enrolled))
	for _, c := range enrolled {
		progresses = append(progresses, progressByCourse[c.ID])
	}

	enrollment := a.ClassifyEnrollment(enrolled, progressByCourse)
	topics := a.TopicPerformance(progresses)
	weak := a.WeakAreas(topics)

	return Dashboard{
		EnrolledCourses: len(enrolled),
		CompletedCount:  len(enrollment.Completed),
		OverallProgress: a.OverallProgress(enrolled, progressByCourse),
		Enrollment:      enrollment,
		Quizzes:         a.QuizSummary(progresses),
		Subjects:        SubjectDistribution(enrolled),
		Topics:          topics,
		WeakAreas:       weak,
		Recommendations: a.Recommendations(weak),
	}
}

// EnrolledCourses keeps the courses that have a progress record, in input order
func EnrolledCourses(courses []*domain.Course, progressByCourse map[string]*domain.Progress) []*domain.Course {
	enrolled := []*domain.Course{}
	for _, c := range courses {
		if lookup(progressByCourse, c) != nil {
			enrolled = append(enrolled, c)
		}
	}
	return enrolled
}

// ProgressByCourse indexes progress records by course identifier. When a
// course appears twice the later record wins.
func ProgressByCourse(progresses []*domain.Progress) map[string]*domain.Progress {
	m := make(map[string]*domain.Progress, len(progresses))
	for _, p := range progresses {
		if p != nil {
			m[p.CourseID] = p
		}
	}
	return m
}
