package analytics

import (
	"testing"

	"github.com/felixgeelhaar/learnlens/internal/domain"
)

func quiz(score int, results ...domain.QuestionResult) domain.QuizResult {
	return domain.QuizResult{Score: score, TotalQuestions: len(results), QuestionResults: results}
}

func answer(topic, prompt string, correct bool) domain.QuestionResult {
	return domain.QuestionResult{Topic: topic, Prompt: prompt, Correct: correct}
}

func TestTopicPerformance_Javascript(t *testing.T) {
	a := NewAnalyzer()
	p := &domain.Progress{
		CourseID: "1",
		QuizResults: []domain.QuizResult{
			quiz(100, answer("javascript", "", true)),
			quiz(0, answer("javascript", "", false)),
		},
	}

	perf := a.TopicPerformance([]*domain.Progress{p})
	if len(perf) != 1 {
		t.Fatalf("len(perf) = %d; want 1", len(perf))
	}
	want := TopicStat{Topic: "javascript", Correct: 1, Total: 2, Percentage: 50}
	if perf[0] != want {
		t.Errorf("perf[0] = %+v; want %+v", perf[0], want)
	}

	weak := a.WeakAreas(perf)
	if len(weak) != 1 || weak[0].Topic != "javascript" || weak[0].Percentage != 50 {
		t.Fatalf("WeakAreas() = %+v; want javascript at 50", weak)
	}

	recs := a.Recommendations(weak)
	if len(recs) != 1 {
		t.Fatalf("len(recs) = %d; want 1", len(recs))
	}
	if recs[0].Priority != PriorityMedium {
		t.Errorf("Priority = %q; want medium (50 is not below 50)", recs[0].Priority)
	}
}

func TestTopicPerformance_FirstSeenOrderAndDerivation(t *testing.T) {
	a := NewAnalyzer()
	progresses := []*domain.Progress{
		{QuizResults: []domain.QuizResult{
			quiz(50,
				answer("", "What is the primary purpose of React hooks?", true),
				answer("", "What does JSX compile to?", false),
			),
		}},
		nil,
		{QuizResults: []domain.QuizResult{
			quiz(100, answer("math", "", true)),
			{QuestionResults: nil},
		}},
		{},
		{QuizResults: []domain.QuizResult{
			quiz(0, answer("", "Unrelated", false), answer("", "What are hooks?", false)),
		}},
	}

	perf := a.TopicPerformance(progresses)

	var topics []string
	for _, s := range perf {
		topics = append(topics, s.Topic)
	}
	if want := []string{"react-basics", "components", "math", "general"}; !equalStrings(topics, want) {
		t.Errorf("topics = %v; want %v", topics, want)
	}

	react, _ := perf.Get("react-basics")
	if react.Correct != 1 || react.Total != 2 || react.Percentage != 50 {
		t.Errorf("react-basics = %+v; want 1/2 at 50", react)
	}
	if _, ok := perf.Get("spanish"); ok {
		t.Error("spanish should not be present")
	}
}

func TestTopicPerformance_PermutationKeepsPercentages(t *testing.T) {
	a := NewAnalyzer()
	p1 := &domain.Progress{QuizResults: []domain.QuizResult{
		quiz(0, answer("french", "", true), answer("spanish", "", false)),
	}}
	p2 := &domain.Progress{QuizResults: []domain.QuizResult{
		quiz(0, answer("spanish", "", true), answer("french", "", false), answer("french", "", true)),
	}}

	forward := a.TopicPerformance([]*domain.Progress{p1, p2})
	backward := a.TopicPerformance([]*domain.Progress{p2, p1})

	for _, s := range forward {
		other, ok := backward.Get(s.Topic)
		if !ok {
			t.Fatalf("topic %q missing after permutation", s.Topic)
		}
		if other.Percentage != s.Percentage || other.Correct != s.Correct || other.Total != s.Total {
			t.Errorf("%s: %+v vs %+v", s.Topic, s, other)
		}
	}
	if forward[0].Topic != "french" || backward[0].Topic != "spanish" {
		t.Errorf("first-seen order not preserved: %v / %v", forward, backward)
	}
}

func TestTopicPerformance_DoesNotMutateInput(t *testing.T) {
	a := NewAnalyzer()
	p := &domain.Progress{QuizResults: []domain.QuizResult{quiz(0, answer("", "React?", true))}}

	a.TopicPerformance([]*domain.Progress{p})

	if p.QuizResults[0].QuestionResults[0].Topic != "" {
		t.Error("derived topic must not be written back to the input")
	}
}

func TestIdentifyWeakAreas(t *testing.T) {
	perf := TopicPerformance{
		{Topic: "math", Percentage: 69.9},
		{Topic: "react-basics", Percentage: 70},
		{Topic: "spanish", Percentage: 20},
		{Topic: "french", Percentage: 20},
		{Topic: "javascript", Percentage: 90},
		{Topic: "general", Percentage: 0},
	}

	weak := IdentifyWeakAreas(perf, DefaultWeakThreshold)

	want := []WeakArea{
		{Topic: "general", Percentage: 0},
		{Topic: "french", Percentage: 20},
		{Topic: "spanish", Percentage: 20},
		{Topic: "math", Percentage: 69.9},
	}
	if len(weak) != len(want) {
		t.Fatalf("IdentifyWeakAreas() = %+v; want %+v", weak, want)
	}
	for i := range want {
		if weak[i] != want[i] {
			t.Errorf("weak[%d] = %+v; want %+v", i, weak[i], want[i])
		}
	}

	for _, w := range weak {
		if w.Percentage >= DefaultWeakThreshold {
			t.Errorf("%s at %v should not be weak", w.Topic, w.Percentage)
		}
	}
	for i := 1; i < len(weak); i++ {
		if weak[i-1].Percentage > weak[i].Percentage {
			t.Errorf("not ascending at %d: %v > %v", i, weak[i-1].Percentage, weak[i].Percentage)
		}
	}
}

func TestIdentifyWeakAreas_Empty(t *testing.T) {
	weak := IdentifyWeakAreas(nil, DefaultWeakThreshold)
	if weak == nil || len(weak) != 0 {
		t.Errorf("IdentifyWeakAreas(nil) = %v; want empty list", weak)
	}
}

func TestIdentifyWeakAreas_CustomThreshold(t *testing.T) {
	perf := TopicPerformance{{Topic: "math", Percentage: 80}, {Topic: "french", Percentage: 95}}

	weak := NewAnalyzer(WithWeakThreshold(90)).WeakAreas(perf)
	if len(weak) != 1 || weak[0].Topic != "math" {
		t.Errorf("WeakAreas() = %+v; want [math]", weak)
	}
}

func TestQuizSummary(t *testing.T) {
	a := NewAnalyzer()

	if got := a.QuizSummary(nil); got != (QuizSummary{}) {
		t.Errorf("QuizSummary(nil) = %+v; want zero", got)
	}

	got := a.QuizSummary([]*domain.Progress{
		{QuizResults: []domain.QuizResult{{Score: 100}, {Score: 50}}},
		nil,
		{QuizResults: []domain.QuizResult{{Score: 60}}},
	})
	if got.TotalQuizzes != 3 || got.AverageScore != 70 {
		t.Errorf("QuizSummary() = %+v; want 3 quizzes averaging 70", got)
	}
}

func TestSubjectDistribution(t *testing.T) {
	dist := SubjectDistribution([]*domain.Course{
		{ID: "1", Subject: "Programming"},
		{ID: "2", Subject: "Mathematics"},
		{ID: "3"},
		{ID: "4", Subject: "Programming"},
	})

	want := []SubjectCount{{"Programming", 2}, {"Mathematics", 1}, {OtherSubject, 1}}
	if len(dist) != len(want) {
		t.Fatalf("SubjectDistribution() = %+v; want %+v", dist, want)
	}
	for i := range want {
		if dist[i] != want[i] {
			t.Errorf("dist[%d] = %+v; want %+v", i, dist[i], want[i])
		}
	}
}
