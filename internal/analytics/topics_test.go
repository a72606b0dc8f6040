package analytics

import "testing"

func TestDeriveTopic(t *testing.T) {
	tests := []struct {
		prompt string
		want   string
	}{
		{"What is the primary purpose of React hooks?", "react-basics"},
		{"Which HOOK runs after render?", "react-basics"},
		{"How do you pass props to a component?", "react-basics"},
		{"What does JSX compile to?", "components"},
		{"Can a JSX component return null?", "react-basics"},
		{"What is JavaScript hoisting?", "javascript"},
		{"Which ES6 feature adds block scope?", "javascript"},
		{"How does an arrow function bind this?", "javascript"},
		{"Evaluate the limit as x approaches 0", "math"},
		{"What is calculus used for?", "math"},
		{"Which math rule applies here?", "math"},
		{"How do you say hello in Spanish?", "spanish"},
		{"What does hola mean?", "spanish"},
		{"Pick the correct greeting", "spanish"},
		{"Translate this French phrase", "french"},
		{"Ordering at a restaurant", "french"},
		{"Bonjour means?", "french"},
		{"What is the capital of Peru?", "general"},
		{"", "general"},
	}

	for _, tt := range tests {
		t.Run(tt.prompt, func(t *testing.T) {
			if got := DeriveTopic(tt.prompt); got != tt.want {
				t.Errorf("DeriveTopic(%q) = %q; want %q", tt.prompt, got, tt.want)
			}
		})
	}
}

func TestDeriveTopic_ComponentNeverReachesSecondRule(t *testing.T) {
	for _, prompt := range []string{"component", "Components", "the COMPONENT tree"} {
		if got := DeriveTopic(prompt); got != "react-basics" {
			t.Errorf("DeriveTopic(%q) = %q; want react-basics", prompt, got)
		}
	}
}

func TestResolveTopic(t *testing.T) {
	tests := []struct {
		explicit, prompt, want string
	}{
		{"javascript", "What are React hooks?", "javascript"},
		{"", "What are React hooks?", "react-basics"},
		{"  ", "Nothing matches", "general"},
	}
	for _, tt := range tests {
		if got := ResolveTopic(tt.explicit, tt.prompt); got != tt.want {
			t.Errorf("ResolveTopic(%q, %q) = %q; want %q", tt.explicit, tt.prompt, got, tt.want)
		}
	}
}
