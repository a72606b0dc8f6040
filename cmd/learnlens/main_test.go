package main

import "testing"

func TestRenderProgressBar(t *testing.T) {
	tests := []struct {
		percent float64
		want    string
	}{
		{0, "[░░░░░░░░░░]"},
		{50, "[█████░░░░░]"},
		{66.7, "[██████░░░░]"},
		{100, "[██████████]"},
		{150, "[██████████]"},
		{-5, "[░░░░░░░░░░]"},
	}

	for _, tt := range tests {
		if got := renderProgressBar(tt.percent, 10); got != tt.want {
			t.Errorf("renderProgressBar(%v, 10) = %q; want %q", tt.percent, got, tt.want)
		}
	}
}
