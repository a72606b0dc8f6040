package main

import (
	"flag"
	"fmt"
	"net/url"
	"strings"
)

type courseInfo struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Subject    string  `json:"subject"`
	Difficulty string  `json:"difficulty"`
	Instructor string  `json:"instructor"`
	Duration   float64 `json:"duration"`
}

// cmdCourses lists the catalog, optionally filtered
func cmdCourses(args []string) error {
	fs := flag.NewFlagSet("courses", flag.ContinueOnError)
	search := fs.String("search", "", "match title, subject or instructor")
	subject := fs.String("subject", "", "exact subject")
	difficulty := fs.String("difficulty", "", "beginner, intermediate or advanced")
	if err := fs.Parse(args); err != nil {
		return err
	}

	q := url.Values{}
	for key, v := range map[string]string{"search": *search, "subject": *subject, "difficulty": *difficulty} {
		if v != "" {
			q.Set(key, v)
		}
	}
	path := "/v1/courses"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var result struct {
		Courses  []courseInfo `json:"courses"`
		Subjects []string     `json:"subjects"`
		Count    int          `json:"count"`
	}
	if err := getJSON(path, &result); err != nil {
		return err
	}

	fmt.Printf("Courses (%d)\n", result.Count)
	fmt.Println("===========")
	if result.Count == 0 {
		fmt.Println("No courses match.")
		return nil
	}
	for _, c := range result.Courses {
		fmt.Printf("%-6s %-32s %-14s %-12s %s (%.0fh)\n",
			c.ID, c.Title, c.Subject, c.Difficulty, c.Instructor, c.Duration)
	}
	if len(result.Subjects) > 0 {
		fmt.Printf("\nSubjects: %s\n", strings.Join(result.Subjects, ", "))
	}
	return nil
}

// cmdProgress shows completion for one course
func cmdProgress(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: learnlens progress <course-id>")
	}

	var status struct {
		Course     courseInfo `json:"course"`
		Enrolled   bool       `json:"enrolled"`
		Completion float64    `json:"completion"`
		Completed  bool       `json:"completed"`
		NextLesson *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"next_lesson"`
	}
	if err := getJSON("/v1/courses/"+url.PathEscape(args[0])+"/completion", &status); err != nil {
		return err
	}

	fmt.Println(status.Course.Title)
	fmt.Println(strings.Repeat("=", len(status.Course.Title)))
	if !status.Enrolled {
		fmt.Println("Not enrolled.")
		return nil
	}
	fmt.Printf("%s %.0f%%\n", renderProgressBar(status.Completion, 30), status.Completion)
	switch {
	case status.Completed:
		fmt.Println("✓ Completed")
	case status.NextLesson != nil:
		fmt.Printf("Next: %s (%s)\n", status.NextLesson.Title, status.NextLesson.ID)
	}
	return nil
}
