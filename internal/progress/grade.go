package progress

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/learnlens/internal/analytics"
	"github.com/felixgeelhaar/learnlens/internal/domain"
)

// Answers maps a question ID to the selected option index
type Answers map[string]int

// Graded is a scored quiz submission
type Graded struct {
	Result domain.QuizResult `json:"result"`
	Passed bool              `json:"passed"`
}

// GradeQuiz scores answers against a quiz lesson. Unanswered questions count
// as incorrect. Passing compares the unrounded ratio with the lesson's
// passing score, so 2 of 3 does not pass a 67% quiz.
func GradeQuiz(lesson domain.Lesson, answers Answers, timeSpentSeconds int, now time.Time) (Graded, error) {
	if !lesson.IsQuiz() {
		return Graded{}, fmt.Errorf("%w: %s", domain.ErrNotQuizLesson, lesson.ID)
	}
	if timeSpentSeconds < 0 {
		return Graded{}, fmt.Errorf("%w: negative time spent", domain.ErrInvalidInput)
	}

	known := make(map[string]bool, len(lesson.Questions))
	for _, q := range lesson.Questions {
		known[q.ID] = true
	}
	for id, selected := range answers {
		if !known[id] {
			return Graded{}, fmt.Errorf("%w: question %q is not part of lesson %s", domain.ErrInvalidInput, id, lesson.ID)
		}
		if selected < 0 {
			return Graded{}, fmt.Errorf("%w: negative answer for question %q", domain.ErrInvalidInput, id)
		}
	}

	results := make([]domain.QuestionResult, 0, len(lesson.Questions))
	correct := 0
	for _, q := range lesson.Questions {
		qr := domain.QuestionResult{
			QuestionID:    q.ID,
			Prompt:        q.Prompt,
			CorrectAnswer: q.Correct,
			Topic:         analytics.ResolveTopic(q.Topic, q.Prompt),
			Difficulty:    q.Difficulty,
		}
		if qr.Difficulty == "" {
			qr.Difficulty = domain.DefaultQuestionDifficulty
		}
		if selected, ok := answers[q.ID]; ok {
			qr.SelectedAnswer = &selected
			qr.Correct = selected == q.Correct
		}
		if qr.Correct {
			correct++
		}
		results = append(results, qr)
	}

	total := len(lesson.Questions)
	return Graded{
		Result: domain.QuizResult{
			LessonID:         lesson.ID,
			LessonTitle:      lesson.Title,
			Score:            domain.ScorePercent(correct, total),
			TotalQuestions:   total,
			CorrectAnswers:   correct,
			CompletedAt:      now,
			QuestionResults:  results,
			TimeSpentSeconds: timeSpentSeconds,
		},
		Passed: total > 0 && correct*100 >= lesson.PassingThreshold()*total,
	}, nil
}
