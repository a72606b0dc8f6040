// Package catalog filters the published course list for browsing.
package catalog

import (
	"strings"

	"github.com/felixgeelhaar/learnlens/internal/domain"
)

// Any disables a subject or difficulty constraint
const Any = "all"

// Filter narrows the course list. Empty fields and Any impose no constraint.
type Filter struct {
	Search     string `json:"search,omitempty"`
	Subject    string `json:"subject,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}

// IsZero reports whether the filter matches every course
func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.Search) == "" && unconstrained(f.Subject) && unconstrained(f.Difficulty)
}

// Matches reports whether c satisfies every constraint of f. Search is a
// case-insensitive substring over title, subject and instructor; subject and
// difficulty must match exactly.
func (f Filter) Matches(c *domain.Course) bool {
	if c == nil {
		return false
	}
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		if !strings.Contains(strings.ToLower(c.Title), term) &&
			!strings.Contains(strings.ToLower(c.Subject), term) &&
			!strings.Contains(strings.ToLower(c.Instructor), term) {
			return false
		}
	}
	if !unconstrained(f.Subject) && c.Subject != f.Subject {
		return false
	}
	if !unconstrained(f.Difficulty) && string(c.Difficulty) != f.Difficulty {
		return false
	}
	return true
}

// Apply returns the courses matching f in their original order. The input
// slice is never modified.
func Apply(courses []*domain.Course, f Filter) []*domain.Course {
	out := make([]*domain.Course, 0, len(courses))
	for _, c := range courses {
		if f.Matches(c) {
			out = append(out, c)
		}
	}
	return out
}

// Subjects lists the distinct non-empty subjects in first-seen order
func Subjects(courses []*domain.Course) []string {
	seen := make(map[string]bool)
	subjects := []string{}
	for _, c := range courses {
		if c == nil || c.Subject == "" || seen[c.Subject] {
			continue
		}
		seen[c.Subject] = true
		subjects = append(subjects, c.Subject)
	}
	return subjects
}

func unconstrained(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, Any)
}
