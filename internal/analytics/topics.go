package analytics

import "strings"

// GeneralTopic is the label for questions that match no topic rule
const GeneralTopic = "general"

// topicRules are evaluated in order; the first rule with a matching keyword
// wins. "component" in the second rule can never match because the first
// rule already claims it. The order is observable and must stay as is.
var topicRules = []struct {
	topic    string
	keywords []string
}{
	{"react-basics", []string{"react", "hook", "component"}},
	{"components", []string{"jsx", "component"}},
	{"javascript", []string{"javascript", "es6", "arrow"}},
	{"math", []string{"limit", "calculus", "math"}},
	{"spanish", []string{"spanish", "hola", "greeting"}},
	{"french", []string{"french", "restaurant", "bonjour"}},
}

// DeriveTopic classifies a question prompt by case-insensitive keyword match.
// Examples:
//   - "What is the primary purpose of React hooks?" -> "react-basics"
//   - "What does JSX compile to?" -> "components"
//   - "How do you say hello in Spanish?" -> "spanish"
func DeriveTopic(prompt string) string {
	text := strings.ToLower(prompt)
	for _, rule := range topicRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.topic
			}
		}
	}
	return GeneralTopic
}

// ResolveTopic returns the explicit topic when present, otherwise the topic
// derived from the prompt.
func ResolveTopic(explicit, prompt string) string {
	if t := strings.TrimSpace(explicit); t != "" {
		return t
	}
	return DeriveTopic(prompt)
}
