package record

import (
	"strings"

	"github.com/felixgeelhaar/learnlens/internal/domain"
)

// DecodeCourse converts a course record. Lesson content for quizzes may be
// either a plain question list on the lesson or an object of the form
// {"questions": [...], "passingScore": n}.
func DecodeCourse(r Record) (*domain.Course, error) {
	id, err := r.ID()
	if err != nil {
		return nil, err
	}

	c := &domain.Course{
		ID:            id,
		Title:         r.String("title", "Name"),
		Subject:       r.String("subject"),
		Difficulty:    domain.Difficulty(strings.ToLower(r.String("difficulty"))),
		Instructor:    r.String("instructor"),
		Description:   r.String("description"),
		Thumbnail:     r.String("thumbnail"),
		DurationHours: asFloat(r.valueOf("duration")),
	}

	raw, err := unwrapText("modules", r.valueOf("modules"))
	if err != nil {
		return nil, err
	}
	for _, m := range asList(raw) {
		mod := asObject(m)
		if mod == nil {
			continue
		}
		module := domain.Module{
			ID:    Ref(mod.valueOf("id", "Id")),
			Title: mod.String("title"),
		}
		for _, l := range asList(mod.valueOf("lessons")) {
			if lesson, ok := decodeLesson(asObject(l)); ok {
				module.Lessons = append(module.Lessons, lesson)
			}
		}
		c.Modules = append(c.Modules, module)
	}

	c.Normalize()
	return c, nil
}

// DecodeCourses decodes every record, stopping at the first invalid one
func DecodeCourses(records []Record) ([]*domain.Course, error) {
	courses := make([]*domain.Course, 0, len(records))
	for _, r := range records {
		c, err := DecodeCourse(r)
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, nil
}

func decodeLesson(r Record) (domain.Lesson, bool) {
	if r == nil {
		return domain.Lesson{}, false
	}
	l := domain.Lesson{
		ID:              Ref(r.valueOf("id", "Id")),
		Title:           r.String("title"),
		Kind:            domain.LessonKind(strings.ToLower(r.String("type", "kind"))),
		DurationMinutes: asInt(r.valueOf("duration")),
		PassingScore:    asInt(r.valueOf("passingScore")),
	}
	if l.ID == "" {
		return domain.Lesson{}, false
	}

	questions := r.valueOf("questions")
	switch content := r.valueOf("content").(type) {
	case string:
		l.Content = content
	case map[string]any:
		obj := Record(content)
		if questions == nil {
			questions = obj.valueOf("questions")
		}
		if l.PassingScore == 0 {
			l.PassingScore = asInt(obj.valueOf("passingScore"))
		}
	}

	for i, q := range asList(questions) {
		obj := asObject(q)
		if obj == nil {
			continue
		}
		question := domain.Question{
			ID:         Ref(obj.valueOf("id", "Id")),
			Prompt:     obj.String("question", "prompt"),
			Correct:    asInt(obj.valueOf("correct")),
			Topic:      obj.String("topic"),
			Difficulty: obj.String("difficulty"),
		}
		if question.ID == "" {
			question.ID = asString(i + 1)
		}
		for _, opt := range asList(obj.valueOf("options")) {
			question.Options = append(question.Options, asString(opt))
		}
		if question.Options == nil {
			question.Options = []string{}
		}
		l.Questions = append(l.Questions, question)
	}
	if len(l.Questions) > 0 && l.Kind == "" {
		l.Kind = domain.LessonQuiz
	}

	return l, true
}
