package mcp

import (
	"context"
	"fmt"
	"math"
	"strings"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"

	"github.com/felixgeelhaar/learnlens/internal/analytics"
	"github.com/felixgeelhaar/learnlens/internal/catalog"
	"github.com/felixgeelhaar/learnlens/internal/domain"
	"github.com/felixgeelhaar/learnlens/internal/progress"
)

// Server exposes learner analytics as MCP tools
type Server struct {
	mcpServer   *server.Server
	service     progress.ProgressService
	defaultUser string
}

// Config contains configuration for the MCP server
type Config struct {
	Service progress.ProgressService
	// DefaultUser is used when a tool call names no user
	DefaultUser string
	Version     string
}

// NewServer creates a new MCP server for learnlens
func NewServer(cfg Config) *Server {
	s := &Server{
		service:     cfg.Service,
		defaultUser: cfg.DefaultUser,
	}
	if s.defaultUser == "" {
		s.defaultUser = "default"
	}
	version := cfg.Version
	if version == "" {
		version = "0.1.0"
	}

	s.mcpServer = server.New(server.Info{
		Name:    "learnlens",
		Version: version,
	}, server.WithInstructions(`
learnlens reports a learner's course progress and quiz performance.

Available tools:
- learnlens_dashboard: Overall progress, enrollment and quiz summary
- learnlens_course_progress: Completion of one course
- learnlens_topics: Per-topic quiz accuracy
- learnlens_weak_areas: Topics below the mastery threshold
- learnlens_recommendations: Practice lessons for weak topics
- learnlens_catalog: Browse and filter courses

Every tool accepts an optional user_id; the configured default user is used
when it is omitted.
`))

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("learnlens_dashboard").
		Description("Summarize a learner's overall progress, enrolled courses and quiz results.").
		Handler(s.handleDashboard)

	s.mcpServer.Tool("learnlens_course_progress").
		Description("Report completion for one course, including the next unfinished lesson.").
		Handler(s.handleCourseProgress)

	s.mcpServer.Tool("learnlens_topics").
		Description("List quiz accuracy per topic in first-seen order.").
		Handler(s.handleTopics)

	s.mcpServer.Tool("learnlens_weak_areas").
		Description("List topics scoring below the mastery threshold, weakest first.").
		Handler(s.handleWeakAreas)

	s.mcpServer.Tool("learnlens_recommendations").
		Description("Suggest practice lessons for each weak topic.").
		Handler(s.handleRecommendations)

	s.mcpServer.Tool("learnlens_catalog").
		Description("Browse courses filtered by search text, subject and difficulty.").
		Handler(s.handleCatalog)
}

// Input/Output types for tools

type UserInput struct {
	UserID string `json:"user_id,omitempty" jsonschema:"description=Learner ID (defaults to the configured user)"`
}

type DashboardOutput struct {
	UserID          string                     `json:"user_id"`
	OverallProgress float64                    `json:"overall_progress"`
	EnrolledCourses int                        `json:"enrolled_courses"`
	CompletedCount  int                        `json:"completed_count"`
	InProgress      []CourseSummary            `json:"in_progress"`
	Recent          []CourseSummary            `json:"recent"`
	Quizzes         analytics.QuizSummary      `json:"quizzes"`
	WeakAreas       []analytics.WeakArea       `json:"weak_areas"`
	Recommendations []analytics.Recommendation `json:"recommendations"`
	Summary         string                     `json:"summary"`
}

type CourseSummary struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Subject string `json:"subject,omitempty"`
}

type CourseProgressInput struct {
	UserID   string `json:"user_id,omitempty" jsonschema:"description=Learner ID (defaults to the configured user)"`
	CourseID string `json:"course_id" jsonschema:"description=Course ID"`
}

type CourseProgressOutput struct {
	CourseID   string  `json:"course_id"`
	Title      string  `json:"title"`
	Enrolled   bool    `json:"enrolled"`
	Completion float64 `json:"completion"`
	Completed  bool    `json:"completed"`
	Lessons    int     `json:"lessons"`
	Finished   int     `json:"finished"`
	NextLesson string  `json:"next_lesson,omitempty"`
}

type TopicsOutput struct {
	Topics analytics.TopicPerformance `json:"topics"`
}

type WeakAreasInput struct {
	UserID    string  `json:"user_id,omitempty" jsonschema:"description=Learner ID (defaults to the configured user)"`
	Threshold float64 `json:"threshold,omitempty" jsonschema:"description=Mastery threshold in percent (default: 70)"`
}

type WeakAreasOutput struct {
	WeakAreas []analytics.WeakArea `json:"weak_areas"`
}

type RecommendationsOutput struct {
	Recommendations []analytics.Recommendation `json:"recommendations"`
}

type CatalogInput struct {
	Search     string `json:"search,omitempty" jsonschema:"description=Case-insensitive text matched against title, subject and instructor"`
	Subject    string `json:"subject,omitempty" jsonschema:"description=Exact subject or all"`
	Difficulty string `json:"difficulty,omitempty" jsonschema:"description=Difficulty level,enum=all,enum=beginner,enum=intermediate,enum=advanced"`
}

type CatalogOutput struct {
	Courses  []CatalogEntry `json:"courses"`
	Subjects []string       `json:"subjects"`
}

type CatalogEntry struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Subject       string  `json:"subject"`
	Difficulty    string  `json:"difficulty"`
	Instructor    string  `json:"instructor"`
	DurationHours float64 `json:"duration_hours"`
	Lessons       int     `json:"lessons"`
}

// Tool handlers

func (s *Server) handleDashboard(ctx context.Context, input UserInput) (DashboardOutput, error) {
	user := s.user(input.UserID)
	d, err := s.service.Dashboard(ctx, user)
	if err != nil {
		return DashboardOutput{}, fmt.Errorf("failed to build dashboard: %w", err)
	}

	out := DashboardOutput{
		UserID:          user,
		OverallProgress: d.OverallProgress,
		EnrolledCourses: d.EnrolledCourses,
		CompletedCount:  d.CompletedCount,
		InProgress:      summarize(d.Enrollment.InProgress),
		Recent:          summarize(d.Enrollment.Recent),
		Quizzes:         d.Quizzes,
		WeakAreas:       d.WeakAreas,
		Recommendations: d.Recommendations,
	}
	out.Summary = fmt.Sprintf("%d enrolled, %d completed, %.0f%% overall, %d quizzes averaging %.0f%%",
		d.EnrolledCourses, d.CompletedCount, d.OverallProgress, d.Quizzes.TotalQuizzes, d.Quizzes.AverageScore)
	if len(d.WeakAreas) > 0 {
		topics := make([]string, 0, len(d.WeakAreas))
		for _, w := range d.WeakAreas {
			topics = append(topics, w.Topic)
		}
		out.Summary += "; weak topics: " + strings.Join(topics, ", ")
	}
	return out, nil
}

func (s *Server) handleCourseProgress(ctx context.Context, input CourseProgressInput) (CourseProgressOutput, error) {
	if strings.TrimSpace(input.CourseID) == "" {
		return CourseProgressOutput{}, fmt.Errorf("course_id is required")
	}

	status, err := s.service.CourseStatus(ctx, s.user(input.UserID), input.CourseID)
	if err != nil {
		return CourseProgressOutput{}, fmt.Errorf("failed to get course progress: %w", err)
	}

	out := CourseProgressOutput{
		CourseID:   status.Course.ID,
		Title:      status.Course.Title,
		Enrolled:   status.Enrolled,
		Completion: status.Completion,
		Completed:  status.Completed,
		Lessons:    status.Course.TotalLessons(),
	}
	if status.Progress != nil {
		out.Finished = status.Progress.CompletedIn(status.Course)
	}
	if status.NextLesson != nil {
		out.NextLesson = status.NextLesson.Title
	}
	return out, nil
}

func (s *Server) handleTopics(ctx context.Context, input UserInput) (TopicsOutput, error) {
	topics, err := s.service.TopicReport(ctx, s.user(input.UserID))
	if err != nil {
		return TopicsOutput{}, fmt.Errorf("failed to get topic performance: %w", err)
	}
	return TopicsOutput{Topics: topics}, nil
}

func (s *Server) handleWeakAreas(ctx context.Context, input WeakAreasInput) (WeakAreasOutput, error) {
	if math.IsNaN(input.Threshold) || input.Threshold < 0 || input.Threshold > 100 {
		return WeakAreasOutput{}, fmt.Errorf("threshold must be between 0 and 100")
	}
	weak, err := s.service.WeakAreas(ctx, s.user(input.UserID), input.Threshold)
	if err != nil {
		return WeakAreasOutput{}, fmt.Errorf("failed to get weak areas: %w", err)
	}
	return WeakAreasOutput{WeakAreas: weak}, nil
}

func (s *Server) handleRecommendations(ctx context.Context, input UserInput) (RecommendationsOutput, error) {
	recs, err := s.service.Recommendations(ctx, s.user(input.UserID))
	if err != nil {
		return RecommendationsOutput{}, fmt.Errorf("failed to get recommendations: %w", err)
	}
	return RecommendationsOutput{Recommendations: recs}, nil
}

func (s *Server) handleCatalog(ctx context.Context, input CatalogInput) (CatalogOutput, error) {
	courses, err := s.service.Catalog(ctx, catalog.Filter{
		Search:     input.Search,
		Subject:    input.Subject,
		Difficulty: input.Difficulty,
	})
	if err != nil {
		return CatalogOutput{}, fmt.Errorf("failed to list courses: %w", err)
	}

	out := CatalogOutput{
		Courses:  make([]CatalogEntry, 0, len(courses)),
		Subjects: catalog.Subjects(courses),
	}
	for _, c := range courses {
		out.Courses = append(out.Courses, CatalogEntry{
			ID:            c.ID,
			Title:         c.Title,
			Subject:       c.Subject,
			Difficulty:    string(c.Difficulty),
			Instructor:    c.Instructor,
			DurationHours: c.DurationHours,
			Lessons:       c.TotalLessons(),
		})
	}
	return out, nil
}

func summarize(courses []*domain.Course) []CourseSummary {
	out := make([]CourseSummary, 0, len(courses))
	for _, c := range courses {
		out = append(out, CourseSummary{ID: c.ID, Title: c.Title, Subject: c.Subject})
	}
	return out
}

func (s *Server) user(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return s.defaultUser
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP starts the MCP server on HTTP
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr)
}

// GetMCPServer returns the underlying MCP server
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
