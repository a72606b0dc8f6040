package domain

// Difficulty is the declared level of a course
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Valid reports whether d is one of the known difficulty levels
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

// LessonKind distinguishes video lessons from quizzes
type LessonKind string

const (
	LessonVideo LessonKind = "video"
	LessonQuiz  LessonKind = "quiz"
)

// DefaultPassingScore is used when a quiz lesson does not declare one
const DefaultPassingScore = 70

// DefaultQuestionDifficulty is assigned to question results without a label
const DefaultQuestionDifficulty = "medium"

// Course is a published course with its ordered module tree
type Course struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Subject       string     `json:"subject"`
	Difficulty    Difficulty `json:"difficulty"`
	Instructor    string     `json:"instructor"`
	Description   string     `json:"description,omitempty"`
	Thumbnail     string     `json:"thumbnail,omitempty"`
	DurationHours float64    `json:"duration"`
	Modules       []Module   `json:"modules"`
}

// Module groups lessons inside a course
type Module struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Lessons []Lesson `json:"lessons"`
}

// Lesson is a single video or quiz unit
type Lesson struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Kind            LessonKind `json:"type"`
	DurationMinutes int        `json:"duration"`
	Content         string     `json:"content,omitempty"`
	Questions       []Question `json:"questions,omitempty"`
	PassingScore    int        `json:"passingScore,omitempty"`
}

// Question is a multiple choice quiz question
type Question struct {
	ID         string   `json:"id"`
	Prompt     string   `json:"question"`
	Options    []string `json:"options"`
	Correct    int      `json:"correct"`
	Topic      string   `json:"topic,omitempty"`
	Difficulty string   `json:"difficulty,omitempty"`
}

// IsQuiz reports whether the lesson is a quiz
func (l Lesson) IsQuiz() bool {
	return l.Kind == LessonQuiz
}

// PassingThreshold returns the passing score, falling back to DefaultPassingScore
func (l Lesson) PassingThreshold() int {
	if l.PassingScore <= 0 {
		return DefaultPassingScore
	}
	return l.PassingScore
}

// TotalLessons is the sum of lesson counts across all modules
func (c *Course) TotalLessons() int {
	if c == nil {
		return 0
	}
	total := 0
	for _, m := range c.Modules {
		total += len(m.Lessons)
	}
	return total
}

// AllLessons flattens the module tree in course order
func (c *Course) AllLessons() []Lesson {
	if c == nil {
		return nil
	}
	lessons := make([]Lesson, 0, c.TotalLessons())
	for _, m := range c.Modules {
		lessons = append(lessons, m.Lessons...)
	}
	return lessons
}

// FindLesson returns the lesson with the given ID
func (c *Course) FindLesson(lessonID string) (Lesson, bool) {
	if c == nil {
		return Lesson{}, false
	}
	for _, m := range c.Modules {
		for _, l := range m.Lessons {
			if l.ID == lessonID {
				return l, true
			}
		}
	}
	return Lesson{}, false
}

// HasLesson reports whether lessonID belongs to any module of the course
func (c *Course) HasLesson(lessonID string) bool {
	_, ok := c.FindLesson(lessonID)
	return ok
}

// NextLesson returns the lesson after lessonID in course order
func (c *Course) NextLesson(lessonID string) (Lesson, bool) {
	lessons := c.AllLessons()
	for i, l := range lessons {
		if l.ID == lessonID {
			if i+1 < len(lessons) {
				return lessons[i+1], true
			}
			return Lesson{}, false
		}
	}
	return Lesson{}, false
}

// PreviousLesson returns the lesson before lessonID in course order
func (c *Course) PreviousLesson(lessonID string) (Lesson, bool) {
	lessons := c.AllLessons()
	for i, l := range lessons {
		if l.ID == lessonID {
			if i > 0 {
				return lessons[i-1], true
			}
			return Lesson{}, false
		}
	}
	return Lesson{}, false
}

// Normalize replaces nil collections with empty ones so callers never
// need nil checks on nested data.
func (c *Course) Normalize() {
	if c.Modules == nil {
		c.Modules = []Module{}
	}
	for i := range c.Modules {
		if c.Modules[i].Lessons == nil {
			c.Modules[i].Lessons = []Lesson{}
		}
		for j := range c.Modules[i].Lessons {
			l := &c.Modules[i].Lessons[j]
			if l.Kind == "" {
				l.Kind = LessonVideo
			}
			if l.IsQuiz() && l.Questions == nil {
				l.Questions = []Question{}
			}
		}
	}
}
