package analytics

// FoundationLesson is recommended for topics missing from the catalog
const FoundationLesson = "Foundation Concepts"

// Priority ranks how urgently a weak topic needs practice
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
)

// highPriorityBelow is the percentage under which practice is urgent
const highPriorityBelow = 50.0

// LessonCatalog maps a topic to lesson titles worth revisiting
type LessonCatalog map[string][]string

// DefaultLessonCatalog returns the built-in topic table
func DefaultLessonCatalog() LessonCatalog {
	return LessonCatalog{
		"react-basics": {"What is React?", "Setting up React"},
		"components":   {"Understanding Components", "JSX Syntax"},
		"javascript":   {"ES6+ Features", "Arrow Functions"},
		"math":         {"Introduction to Limits", "Limit Laws"},
		"spanish":      {"Hello and Goodbye", "Pronunciation Practice"},
		"french":       {"At the Restaurant", "Basic Conversations"},
	}
}

// Lessons returns a copy of the titles for topic, or the foundation lesson
// when the topic is unknown.
func (c LessonCatalog) Lessons(topic string) []string {
	if titles, ok := c[topic]; ok && len(titles) > 0 {
		out := make([]string, len(titles))
		copy(out, titles)
		return out
	}
	return []string{FoundationLesson}
}

// Recommendation suggests lessons for one weak topic
type Recommendation struct {
	Topic              string   `json:"topic"`
	CurrentScore       float64  `json:"current_score"`
	RecommendedLessons []string `json:"recommended_lessons"`
	Priority           Priority `json:"priority"`
}

// RecommendPractice attaches lessons and a priority to each weak area,
// preserving the worst-first order of the input. A nil catalog behaves as
// an empty one.
func RecommendPractice(weak []WeakArea, catalog LessonCatalog) []Recommendation {
	recs := make([]Recommendation, 0, len(weak))
	for _, w := range weak {
		priority := PriorityMedium
		if w.Percentage < highPriorityBelow {
			priority = PriorityHigh
		}
		recs = append(recs, Recommendation{
			Topic:              w.Topic,
			CurrentScore:       w.Percentage,
			RecommendedLessons: catalog.Lessons(w.Topic),
			Priority:           priority,
		})
	}
	return recs
}

// Recommendations applies RecommendPractice with the analyzer's catalog
func (a *Analyzer) Recommendations(weak []WeakArea) []Recommendation {
	return RecommendPractice(weak, a.catalog)
}
