package analytics

import (
	"sort"

	"github.com/felixgeelhaar/learnlens/internal/domain"
)

// DefaultWeakThreshold is the percentage below which a topic is weak
const DefaultWeakThreshold = 70.0

// TopicStat is the aggregated correctness of one topic
type TopicStat struct {
	Topic      string  `json:"topic"`
	Correct    int     `json:"correct"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// TopicPerformance lists per-topic results in first-seen order
type TopicPerformance []TopicStat

// Get returns the stat for topic
func (tp TopicPerformance) Get(topic string) (TopicStat, bool) {
	for _, s := range tp {
		if s.Topic == topic {
			return s, true
		}
	}
	return TopicStat{}, false
}

// TopicPerformance flattens every question result of every quiz result of
// every progress record and accumulates correct and total counts per
// resolved topic. Percentages are computed once accumulation completes.
func (a *Analyzer) TopicPerformance(progresses []*domain.Progress) TopicPerformance {
	index := make(map[string]int)
	perf := TopicPerformance{}

	for _, p := range progresses {
		if p == nil {
			continue
		}
		for _, qr := range p.QuizResults {
			for _, res := range qr.QuestionResults {
				topic := ResolveTopic(res.Topic, res.Prompt)
				i, ok := index[topic]
				if !ok {
					i = len(perf)
					index[topic] = i
					perf = append(perf, TopicStat{Topic: topic})
				}
				perf[i].Total++
				if res.Correct {
					perf[i].Correct++
				}
			}
		}
	}

	for i := range perf {
		if perf[i].Total > 0 {
			perf[i].Percentage = float64(perf[i].Correct) / float64(perf[i].Total) * 100
		}
	}

	return perf
}

// WeakArea is a topic scoring below the weak threshold
type WeakArea struct {
	Topic      string  `json:"topic"`
	Percentage float64 `json:"percentage"`
}

// IdentifyWeakAreas selects topics with percentage strictly below threshold,
// worst first. Equal percentages are ordered by topic label.
func IdentifyWeakAreas(perf TopicPerformance, threshold float64) []WeakArea {
	weak := []WeakArea{}
	for _, s := range perf {
		if s.Percentage < threshold {
			weak = append(weak, WeakArea{Topic: s.Topic, Percentage: s.Percentage})
		}
	}

	sort.Slice(weak, func(i, j int) bool {
		if weak[i].Percentage != weak[j].Percentage {
			return weak[i].Percentage < weak[j].Percentage
		}
		return weak[i].Topic < weak[j].Topic
	})

	return weak
}

// WeakAreas applies IdentifyWeakAreas with the analyzer's threshold
func (a *Analyzer) WeakAreas(perf TopicPerformance) []WeakArea {
	return IdentifyWeakAreas(perf, a.weakThreshold)
}

// QuizSummary counts recorded quiz submissions and their mean score
type QuizSummary struct {
	TotalQuizzes int     `json:"total_quizzes"`
	AverageScore float64 `json:"average_score"`
}

// QuizSummary summarizes the quiz history across progress records
func (a *Analyzer) QuizSummary(progresses []*domain.Progress) QuizSummary {
	var (
		count int
		sum   int
	)
	for _, p := range progresses {
		if p == nil {
			continue
		}
		for _, qr := range p.QuizResults {
			count++
			sum += qr.Score
		}
	}

	summary := QuizSummary{TotalQuizzes: count}
	if count > 0 {
		summary.AverageScore = float64(sum) / float64(count)
	}
	return summary
}

// OtherSubject groups courses without a subject
const OtherSubject = "Other"

// SubjectCount is the number of courses in one subject
type SubjectCount struct {
	Subject string `json:"subject"`
	Count   int    `json:"count"`
}

// SubjectDistribution counts courses per subject in first-seen order
func SubjectDistribution(courses []*domain.Course) []SubjectCount {
	index := make(map[string]int)
	dist := []SubjectCount{}
	for _, c := range courses {
		if c == nil {
			continue
		}
		subject := c.Subject
		if subject == "" {
			subject = OtherSubject
		}
		i, ok := index[subject]
		if !ok {
			i = len(dist)
			index[subject] = i
			dist = append(dist, SubjectCount{Subject: subject})
		}
		dist[i].Count++
	}
	return dist
}
