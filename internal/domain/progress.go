package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Progress is a learner's enrollment record for one course
type Progress struct {
	ID               string          `json:"id"`
	CourseID         string          `json:"courseId"`
	UserID           string          `json:"userId"`
	CompletedLessons map[string]bool `json:"completedLessons"`
	QuizScores       map[string]int  `json:"quizScores"`
	QuizResults      []QuizResult    `json:"quizResults"`
	LastAccessed     *time.Time      `json:"lastAccessed,omitempty"`
}

// QuizResult is one recorded quiz submission
type QuizResult struct {
	LessonID         string           `json:"lessonId"`
	LessonTitle      string           `json:"lessonTitle"`
	Score            int              `json:"score"`
	TotalQuestions   int              `json:"totalQuestions"`
	CorrectAnswers   int              `json:"correctAnswers"`
	CompletedAt      time.Time        `json:"completedAt"`
	QuestionResults  []QuestionResult `json:"questionResults"`
	TimeSpentSeconds int              `json:"timeSpent"`
}

// QuestionResult is the outcome of a single question within a quiz
type QuestionResult struct {
	QuestionID     string `json:"questionId"`
	Prompt         string `json:"question"`
	SelectedAnswer *int   `json:"selectedAnswer,omitempty"`
	CorrectAnswer  int    `json:"correctAnswer"`
	Correct        bool   `json:"correct"`
	Topic          string `json:"topic,omitempty"`
	Difficulty     string `json:"difficulty,omitempty"`
}

// NewProgress creates the empty record written at first enrollment
func NewProgress(userID, courseID string, now time.Time) *Progress {
	return &Progress{
		ID:               uuid.NewString(),
		CourseID:         courseID,
		UserID:           userID,
		CompletedLessons: make(map[string]bool),
		QuizScores:       make(map[string]int),
		QuizResults:      []QuizResult{},
		LastAccessed:     &now,
	}
}

// Normalize replaces nil collections with empty ones
func (p *Progress) Normalize() {
	if p.CompletedLessons == nil {
		p.CompletedLessons = make(map[string]bool)
	}
	if p.QuizScores == nil {
		p.QuizScores = make(map[string]int)
	}
	if p.QuizResults == nil {
		p.QuizResults = []QuizResult{}
	}
	for i := range p.QuizResults {
		if p.QuizResults[i].QuestionResults == nil {
			p.QuizResults[i].QuestionResults = []QuestionResult{}
		}
	}
}

// CompletedCount counts lessons marked true. Stale keys are counted as
// stored; they are tolerated read-only.
func (p *Progress) CompletedCount() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, done := range p.CompletedLessons {
		if done {
			n++
		}
	}
	return n
}

// CompletedIn counts completed lessons that belong to course. Keys for
// lessons the course no longer has are ignored.
func (p *Progress) CompletedIn(course *Course) int {
	if p == nil {
		return 0
	}
	n := 0
	for _, l := range course.AllLessons() {
		if p.CompletedLessons[l.ID] {
			n++
		}
	}
	return n
}

// IsLessonCompleted reports whether lessonID is marked complete
func (p *Progress) IsLessonCompleted(lessonID string) bool {
	if p == nil {
		return false
	}
	return p.CompletedLessons[lessonID]
}

// Touch updates the last accessed timestamp
func (p *Progress) Touch(now time.Time) {
	p.LastAccessed = &now
}

// MarkLessonComplete records a finished lesson. Lessons that do not belong
// to course are rejected so foreign keys are never written.
func (p *Progress) MarkLessonComplete(course *Course, lessonID string, now time.Time) error {
	if course == nil || course.ID != p.CourseID {
		return fmt.Errorf("%w: progress belongs to course %q", ErrInvalidInput, p.CourseID)
	}
	if !course.HasLesson(lessonID) {
		return fmt.Errorf("%w: %s", ErrLessonNotInCourse, lessonID)
	}
	p.Normalize()
	p.CompletedLessons[lessonID] = true
	p.Touch(now)
	return nil
}

// RecordQuizResult appends a submission to the history and stores its
// score. The lesson is marked complete when passed is true.
func (p *Progress) RecordQuizResult(course *Course, result QuizResult, passed bool, now time.Time) error {
	if course == nil || !course.HasLesson(result.LessonID) {
		return fmt.Errorf("%w: %s", ErrLessonNotInCourse, result.LessonID)
	}
	p.Normalize()
	p.QuizResults = append(p.QuizResults, result)
	p.QuizScores[result.LessonID] = result.Score
	if passed {
		p.CompletedLessons[result.LessonID] = true
	}
	p.Touch(now)
	return nil
}

// ScorePercent rounds correct/total to a whole percentage, 0 when total is 0
func ScorePercent(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}
