package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"

	"github.com/felixgeelhaar/learnlens/internal/catalog"
	"github.com/felixgeelhaar/learnlens/internal/config"
	"github.com/felixgeelhaar/learnlens/internal/domain"
	"github.com/felixgeelhaar/learnlens/internal/progress"
)

// Version is reported by the status endpoint
const Version = "0.1.0"

// UserIDHeader selects the learner a request acts for
const UserIDHeader = "X-User-ID"

// Server represents the learnlens daemon HTTP server
type Server struct {
	cfg     *config.LocalConfig
	server  *http.Server
	router  *http.ServeMux
	service progress.ProgressService
	runtime *Runtime
	limiter ratelimit.RateLimiter
}

// ServerConfig holds configuration for creating a new server
type ServerConfig struct {
	Config  *config.LocalConfig
	Service progress.ProgressService
	// Runtime is optional; it feeds the status endpoint
	Runtime *Runtime
}

// NewServer creates a new daemon server
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Config == nil {
		return nil, errors.New("config is required")
	}
	if cfg.Service == nil {
		return nil, errors.New("progress service is required")
	}

	s := &Server{
		cfg:     cfg.Config,
		router:  http.NewServeMux(),
		service: cfg.Service,
		runtime: cfg.Runtime,
	}
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.Config.Daemon.Bind, cfg.Config.Daemon.Port)
	var routes http.Handler = s.router
	if rate := cfg.Config.Daemon.RateLimit; rate > 0 {
		s.limiter = ratelimit.New(&ratelimit.Config{
			Rate:     rate,
			Burst:    rate * 2,
			Interval: time.Second,
		})
		routes = rateLimitMiddleware(s.limiter, routes)
	}
	handler := recoveryMiddleware(correlationIDMiddleware(loggingMiddleware(routes)))
	s.server = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health & status
	s.router.HandleFunc("GET /v1/health", s.handleHealth)
	s.router.HandleFunc("GET /v1/status", s.handleStatus)

	// Catalog
	s.router.HandleFunc("GET /v1/courses", s.handleListCourses)
	s.router.HandleFunc("GET /v1/courses/{id}", s.handleGetCourse)
	s.router.HandleFunc("GET /v1/courses/{id}/completion", s.handleCourseCompletion)

	// Progress
	s.router.HandleFunc("POST /v1/courses/{id}/enroll", s.handleEnroll)
	s.router.HandleFunc("DELETE /v1/courses/{id}/enroll", s.handleUnenroll)
	s.router.HandleFunc("GET /v1/courses/{id}/lessons/{lesson}", s.handleOpenLesson)
	s.router.HandleFunc("POST /v1/courses/{id}/lessons/{lesson}/complete", s.handleCompleteLesson)
	s.router.HandleFunc("POST /v1/courses/{id}/quizzes/{lesson}", s.handleSubmitQuiz)

	// Analytics
	s.router.HandleFunc("GET /v1/dashboard", s.handleDashboard)
	s.router.HandleFunc("GET /v1/analytics/topics", s.handleTopics)
	s.router.HandleFunc("GET /v1/analytics/weak-areas", s.handleWeakAreas)
	s.router.HandleFunc("GET /v1/analytics/recommendations", s.handleRecommendations)
}

// Handler returns the router wrapped in the middleware chain
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	slog.Info("starting learnlens daemon",
		"addr", s.server.Addr,
		"storage", s.cfg.Storage.Driver,
		"queue", s.cfg.Queue.Enabled,
	)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down daemon...")
	err := s.server.Shutdown(ctx)
	if s.limiter != nil {
		err = errors.Join(err, s.limiter.Close())
	}
	return err
}

// userID returns the learner named by the request header, falling back to
// the configured default user.
func (s *Server) userID(r *http.Request) string {
	if id := r.Header.Get(UserIDHeader); id != "" {
		return id
	}
	if s.cfg.Analytics.DefaultUser != "" {
		return s.cfg.Analytics.DefaultUser
	}
	return "default"
}

// Handler implementations

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":  "running",
		"version": Version,
		"storage": s.cfg.Storage.Driver,
		"queue":   s.cfg.Queue.Enabled,
	}
	if s.runtime != nil {
		counts, last := s.runtime.Counter.Snapshot()
		events := make(map[string]int, len(counts))
		for k, v := range counts {
			events[string(k)] = v
		}
		resp["events"] = events
		if !last.IsZero() {
			resp["last_event_at"] = last.UTC().Format(time.RFC3339)
		}
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := catalog.Filter{
		Search:     q.Get("search"),
		Subject:    q.Get("subject"),
		Difficulty: q.Get("difficulty"),
	}

	courses, err := s.service.Catalog(r.Context(), filter)
	if err != nil {
		s.serviceError(w, "failed to list courses", err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"courses":  courses,
		"subjects": catalog.Subjects(courses),
		"count":    len(courses),
	})
}

func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	course, err := s.service.Course(r.Context(), r.PathValue("id"))
	if err != nil {
		s.serviceError(w, "failed to get course", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, course)
}

func (s *Server) handleCourseCompletion(w http.ResponseWriter, r *http.Request) {
	status, err := s.service.CourseStatus(r.Context(), s.userID(r), r.PathValue("id"))
	if err != nil {
		s.serviceError(w, "failed to get completion", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, status)
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	p, err := s.service.Enroll(r.Context(), s.userID(r), r.PathValue("id"))
	if err != nil {
		s.serviceError(w, "failed to enroll", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, p)
}

func (s *Server) handleUnenroll(w http.ResponseWriter, r *http.Request) {
	courseID := r.PathValue("id")
	if err := s.service.Unenroll(r.Context(), s.userID(r), courseID); err != nil {
		s.serviceError(w, "failed to unenroll", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"course_id": courseID,
		"status":    "unenrolled",
	})
}

func (s *Server) handleOpenLesson(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.OpenLesson(r.Context(), s.userID(r), r.PathValue("id"), r.PathValue("lesson"))
	if err != nil {
		s.serviceError(w, "failed to open lesson", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, view)
}

func (s *Server) handleCompleteLesson(w http.ResponseWriter, r *http.Request) {
	p, err := s.service.CompleteLesson(r.Context(), s.userID(r), r.PathValue("id"), r.PathValue("lesson"))
	if err != nil {
		s.serviceError(w, "failed to complete lesson", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, p)
}

func (s *Server) handleSubmitQuiz(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answers          progress.Answers `json:"answers"`
		TimeSpentSeconds int              `json:"time_spent_seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	graded, err := s.service.SubmitQuiz(r.Context(), s.userID(r), r.PathValue("id"), r.PathValue("lesson"),
		req.Answers, req.TimeSpentSeconds)
	if err != nil {
		s.serviceError(w, "failed to submit quiz", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, graded)
}

// Analytics handlers

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := s.service.Dashboard(r.Context(), s.userID(r))
	if err != nil {
		s.serviceError(w, "failed to build dashboard", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, dashboard)
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := s.service.TopicReport(r.Context(), s.userID(r))
	if err != nil {
		s.serviceError(w, "failed to get topic performance", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"topics": topics,
	})
}

func (s *Server) handleWeakAreas(w http.ResponseWriter, r *http.Request) {
	var threshold float64
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || v < 0 || v > 100 {
			s.jsonError(w, http.StatusBadRequest, "threshold must be a number between 0 and 100", err)
			return
		}
		threshold = v
	}

	weak, err := s.service.WeakAreas(r.Context(), s.userID(r), threshold)
	if err != nil {
		s.serviceError(w, "failed to get weak areas", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"weak_areas": weak,
	})
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	recs, err := s.service.Recommendations(r.Context(), s.userID(r))
	if err != nil {
		s.serviceError(w, "failed to get recommendations", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"recommendations": recs,
	})
}

// Helper methods

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]any{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	s.jsonResponse(w, status, response)
}

// serviceError maps service errors onto HTTP statuses
func (s *Server) serviceError(w http.ResponseWriter, message string, err error) {
	s.jsonError(w, statusFor(err), message, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrLessonNotInCourse),
		errors.Is(err, domain.ErrNotQuizLesson):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
