package record

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/felixgeelhaar/learnlens/internal/domain"
)

// DefaultUserID owns progress records that carry no user reference
const DefaultUserID = "default"

// DecodeProgress converts a progress record. completedLessons may be an
// object of lesson ID to bool or a list of completed lesson IDs.
func DecodeProgress(r Record) (*domain.Progress, error) {
	id, err := r.ID()
	if err != nil {
		return nil, err
	}

	courseID := Ref(r.valueOf("courseId", "course"))
	if courseID == "" {
		return nil, &ValidationError{Field: "courseId", Reason: "missing course reference"}
	}
	userID := Ref(r.valueOf("userId", "user"))
	if userID == "" {
		userID = DefaultUserID
	}

	p := &domain.Progress{
		ID:               id,
		CourseID:         courseID,
		UserID:           userID,
		CompletedLessons: make(map[string]bool),
		QuizScores:       make(map[string]int),
		QuizResults:      []domain.QuizResult{},
	}

	completed, err := unwrapText("completedLessons", r.valueOf("completedLessons"))
	if err != nil {
		return nil, err
	}
	switch t := completed.(type) {
	case map[string]any:
		for k, v := range t {
			p.CompletedLessons[k] = asBool(v)
		}
	case []any:
		for _, v := range t {
			if lesson := Ref(v); lesson != "" {
				p.CompletedLessons[lesson] = true
			}
		}
	}

	scores, err := unwrapText("quizScores", r.valueOf("quizScores"))
	if err != nil {
		return nil, err
	}
	for k, v := range asObject(scores) {
		p.QuizScores[k] = asInt(v)
	}

	results, err := unwrapText("quizResults", r.valueOf("quizResults"))
	if err != nil {
		return nil, err
	}
	for _, v := range asList(results) {
		obj := asObject(v)
		if obj == nil {
			continue
		}
		qr, err := decodeQuizResult(obj)
		if err != nil {
			return nil, err
		}
		p.QuizResults = append(p.QuizResults, qr)
	}

	lastAccessed, err := asTime(r.valueOf("lastAccessed"))
	if err != nil {
		return nil, &ValidationError{Field: "lastAccessed", Reason: err.Error()}
	}
	p.LastAccessed = lastAccessed

	return p, nil
}

func decodeQuizResult(r Record) (domain.QuizResult, error) {
	qr := domain.QuizResult{
		LessonID:         Ref(r.valueOf("lessonId")),
		LessonTitle:      r.String("lessonTitle"),
		Score:            asInt(r.valueOf("score")),
		TotalQuestions:   asInt(r.valueOf("totalQuestions")),
		CorrectAnswers:   asInt(r.valueOf("correctAnswers")),
		TimeSpentSeconds: asInt(r.valueOf("timeSpent")),
		QuestionResults:  []domain.QuestionResult{},
	}
	completedAt, err := asTime(r.valueOf("completedAt"))
	if err != nil {
		return qr, &ValidationError{Field: "quizResults.completedAt", Reason: err.Error()}
	}
	if completedAt != nil {
		qr.CompletedAt = *completedAt
	}

	for _, v := range asList(r.valueOf("questionResults")) {
		obj := asObject(v)
		if obj == nil {
			continue
		}
		res := domain.QuestionResult{
			QuestionID:     Ref(obj.valueOf("questionId")),
			Prompt:         obj.String("question"),
			SelectedAnswer: asOptionalInt(obj.valueOf("selectedAnswer")),
			CorrectAnswer:  asInt(obj.valueOf("correctAnswer")),
			Correct:        asBool(obj.valueOf("correct")),
			Topic:          obj.String("topic"),
			Difficulty:     obj.String("difficulty"),
		}
		if res.Difficulty == "" {
			res.Difficulty = domain.DefaultQuestionDifficulty
		}
		qr.QuestionResults = append(qr.QuestionResults, res)
	}
	return qr, nil
}

// DecodeProgressList decodes every record, stopping at the first invalid one
func DecodeProgressList(records []Record) ([]*domain.Progress, error) {
	out := make([]*domain.Progress, 0, len(records))
	for _, r := range records {
		p, err := DecodeProgress(r)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// EncodeProgress produces the record written back to the backend. Nested
// collections are stored as JSON text; a numeric course ID is sent as a
// number so the backend can resolve the lookup.
func EncodeProgress(p *domain.Progress) (Record, error) {
	completed, err := json.Marshal(nonNilMap(p.CompletedLessons))
	if err != nil {
		return nil, err
	}
	scores, err := json.Marshal(nonNilScores(p.QuizScores))
	if err != nil {
		return nil, err
	}
	results := p.QuizResults
	if results == nil {
		results = []domain.QuizResult{}
	}
	quiz, err := json.Marshal(results)
	if err != nil {
		return nil, err
	}

	r := Record{
		"Name":             p.UserID + "/" + p.CourseID,
		"courseId":         LookupValue(p.CourseID),
		"userId":           p.UserID,
		"completedLessons": string(completed),
		"quizScores":       string(scores),
		"quizResults":      string(quiz),
	}
	if p.LastAccessed != nil {
		r["lastAccessed"] = p.LastAccessed.UTC().Format(time.RFC3339Nano)
	}
	if n, err := strconv.Atoi(p.ID); err == nil {
		r["Id"] = n
	}
	return r, nil
}

// LookupValue renders an identifier the way the backend expects lookup values:
// numeric identifiers as numbers, anything else as text.
func LookupValue(id string) any {
	if n, err := strconv.Atoi(id); err == nil {
		return n
	}
	return id
}

func nonNilMap(m map[string]bool) map[string]bool {
	if m == nil {
		return map[string]bool{}
	}
	return m
}

func nonNilScores(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}
