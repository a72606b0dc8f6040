package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
)

// cmdStats shows learning analytics from the daemon
func cmdStats(args []string) error {
	if !isRunning() {
		return fmt.Errorf("daemon not running (run 'learnlens start' first)")
	}

	subCmd := "overview"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		subCmd = args[0]
		args = args[1:]
	}

	switch subCmd {
	case "overview", "":
		return cmdStatsOverview()
	case "topics":
		return cmdStatsTopics()
	case "weak":
		return cmdStatsWeak(args)
	case "recommend":
		return cmdStatsRecommend()
	default:
		return fmt.Errorf("unknown stats command: %s (valid: overview, topics, weak, recommend)", subCmd)
	}
}

type topicStat struct {
	Topic      string  `json:"topic"`
	Correct    int     `json:"correct"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

type weakArea struct {
	Topic      string  `json:"topic"`
	Percentage float64 `json:"percentage"`
}

type recommendation struct {
	Topic              string   `json:"topic"`
	CurrentScore       float64  `json:"current_score"`
	RecommendedLessons []string `json:"recommended_lessons"`
	Priority           string   `json:"priority"`
}

func cmdStatsOverview() error {
	var d struct {
		EnrolledCourses int     `json:"enrolled_courses"`
		CompletedCount  int     `json:"completed_count"`
		OverallProgress float64 `json:"overall_progress"`
		Enrollment      struct {
			Recent     []courseInfo `json:"recent"`
			InProgress []courseInfo `json:"in_progress"`
		} `json:"enrollment"`
		Quizzes struct {
			TotalQuizzes int     `json:"total_quizzes"`
			AverageScore float64 `json:"average_score"`
		} `json:"quizzes"`
		WeakAreas []weakArea `json:"weak_areas"`
	}
	if err := getJSON("/v1/dashboard", &d); err != nil {
		return err
	}

	fmt.Println("Learning Progress")
	fmt.Println("=================")
	fmt.Printf("Overall:          %s %.0f%%\n", renderProgressBar(d.OverallProgress, 20), d.OverallProgress)
	fmt.Printf("Enrolled:         %d\n", d.EnrolledCourses)
	fmt.Printf("Completed:        %d\n", d.CompletedCount)
	fmt.Printf("Quizzes taken:    %d\n", d.Quizzes.TotalQuizzes)
	fmt.Printf("Average score:    %.0f%%\n", d.Quizzes.AverageScore)

	if len(d.Enrollment.Recent) > 0 {
		fmt.Println("\nContinue Learning")
		fmt.Println("-----------------")
		for _, c := range d.Enrollment.Recent {
			fmt.Printf("  %s (%s)\n", c.Title, c.ID)
		}
	}
	if len(d.WeakAreas) > 0 {
		topics := make([]string, 0, len(d.WeakAreas))
		for _, w := range d.WeakAreas {
			topics = append(topics, w.Topic)
		}
		fmt.Printf("\nNeeds practice: %s\n", strings.Join(topics, ", "))
	}
	return nil
}

func cmdStatsTopics() error {
	var result struct {
		Topics []topicStat `json:"topics"`
	}
	if err := getJSON("/v1/analytics/topics", &result); err != nil {
		return err
	}

	fmt.Println("Quiz Accuracy by Topic")
	fmt.Println("======================")
	if len(result.Topics) == 0 {
		fmt.Println("No quizzes taken yet.")
		return nil
	}
	for _, t := range result.Topics {
		fmt.Printf("%-16s %s %5.1f%% (%d/%d)\n",
			t.Topic, renderProgressBar(t.Percentage, 20), t.Percentage, t.Correct, t.Total)
	}
	return nil
}

func cmdStatsWeak(args []string) error {
	fs := flag.NewFlagSet("stats weak", flag.ContinueOnError)
	threshold := fs.Float64("threshold", 0, "mastery threshold in percent (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := "/v1/analytics/weak-areas"
	if *threshold > 0 {
		path += "?threshold=" + strconv.FormatFloat(*threshold, 'f', -1, 64)
	}

	var result struct {
		WeakAreas []weakArea `json:"weak_areas"`
	}
	if err := getJSON(path, &result); err != nil {
		return err
	}

	fmt.Println("Areas for Improvement")
	fmt.Println("=====================")
	if len(result.WeakAreas) == 0 {
		fmt.Println("No weak areas. Keep it up!")
		return nil
	}
	for _, w := range result.WeakAreas {
		fmt.Printf("%-16s %s %5.1f%%\n", w.Topic, renderProgressBar(w.Percentage, 20), w.Percentage)
	}
	return nil
}

func cmdStatsRecommend() error {
	var result struct {
		Recommendations []recommendation `json:"recommendations"`
	}
	if err := getJSON("/v1/analytics/recommendations", &result); err != nil {
		return err
	}

	fmt.Println("Recommended Practice")
	fmt.Println("====================")
	if len(result.Recommendations) == 0 {
		fmt.Println("Nothing to recommend yet.")
		return nil
	}
	for _, r := range result.Recommendations {
		marker := "·"
		if r.Priority == "high" {
			marker = "!"
		}
		fmt.Printf("%s %s (%.0f%%, %s priority)\n", marker, r.Topic, r.CurrentScore, r.Priority)
		for _, lesson := range r.RecommendedLessons {
			fmt.Printf("    - %s\n", lesson)
		}
	}
	return nil
}
