package progress

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/learnlens/internal/analytics"
	"github.com/felixgeelhaar/learnlens/internal/catalog"
	"github.com/felixgeelhaar/learnlens/internal/domain"
)

func equalTypes(got, want []domain.EventType) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestService_Enroll(t *testing.T) {
	svc, store, sink := newTestService()
	ctx := context.Background()

	first, err := svc.Enroll(ctx, "default", "1")
	if err != nil {
		t.Fatalf("Enroll() error = %v", err)
	}
	second, err := svc.Enroll(ctx, "default", "1")
	if err != nil {
		t.Fatalf("Enroll() again error = %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("Enroll() twice returned different records: %s vs %s", first.ID, second.ID)
	}
	if store.saves != 1 {
		t.Errorf("saves = %d; want 1", store.saves)
	}
	if got := sink.types(); !equalTypes(got, []domain.EventType{domain.EventEnrolled}) {
		t.Errorf("events = %v; want one enrollment", got)
	}
	if first.LastAccessed == nil || !first.LastAccessed.Equal(fixedNow) {
		t.Errorf("LastAccessed = %v; want %v", first.LastAccessed, fixedNow)
	}
}

func TestService_EnrollErrors(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Enroll(ctx, "default", "404"); !errors.Is(err, domain.ErrCourseNotFound) {
		t.Errorf("Enroll(unknown) error = %v; want ErrCourseNotFound", err)
	}
	if _, err := svc.Enroll(ctx, " ", "1"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Enroll(blank user) error = %v; want ErrInvalidInput", err)
	}
	if _, err := svc.Enroll(ctx, "default", ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Enroll(blank course) error = %v; want ErrInvalidInput", err)
	}
}

func TestService_CompleteLesson(t *testing.T) {
	svc, _, sink := newTestService()
	ctx := context.Background()

	p, err := svc.CompleteLesson(ctx, "default", "1", "1-1-1")
	if err != nil {
		t.Fatalf("CompleteLesson() error = %v", err)
	}
	if !p.IsLessonCompleted("1-1-1") || p.CompletedCount() != 1 {
		t.Errorf("CompletedLessons = %v; want 1-1-1", p.CompletedLessons)
	}

	want := []domain.EventType{domain.EventEnrolled, domain.EventLessonCompleted}
	if got := sink.types(); !equalTypes(got, want) {
		t.Errorf("events = %v; want %v", got, want)
	}
	if sink.events[1].LessonID != "1-1-1" {
		t.Errorf("event LessonID = %q; want 1-1-1", sink.events[1].LessonID)
	}

	if _, err := svc.CompleteLesson(ctx, "default", "1", "2-1-1"); !errors.Is(err, domain.ErrLessonNotInCourse) {
		t.Errorf("CompleteLesson(foreign) error = %v; want ErrLessonNotInCourse", err)
	}
	if p.IsLessonCompleted("2-1-1") {
		t.Error("foreign lesson key must not be written")
	}
}

func TestService_SubmitQuiz(t *testing.T) {
	svc, store, sink := newTestService()
	ctx := context.Background()

	failed, err := svc.SubmitQuiz(ctx, "default", "1", "1-2-1", Answers{"1": 0, "2": 0, "3": 0}, 30)
	if err != nil {
		t.Fatalf("SubmitQuiz() error = %v", err)
	}
	if failed.Passed || failed.Result.Score != 33 {
		t.Errorf("first attempt = %+v; want 33 failed", failed)
	}

	p, _ := store.Get(ctx, "default", "1")
	if p.IsLessonCompleted("1-2-1") {
		t.Error("failed quiz should not complete the lesson")
	}

	passed, err := svc.SubmitQuiz(ctx, "default", "1", "1-2-1", Answers{"1": 1, "2": 0, "3": 1}, 20)
	if err != nil {
		t.Fatalf("SubmitQuiz() error = %v", err)
	}
	if !passed.Passed {
		t.Errorf("second attempt = %+v; want passed", passed)
	}

	p, _ = store.Get(ctx, "default", "1")
	if !p.IsLessonCompleted("1-2-1") {
		t.Error("passed quiz should complete the lesson")
	}
	if len(p.QuizResults) != 2 {
		t.Errorf("len(QuizResults) = %d; want both attempts", len(p.QuizResults))
	}
	if p.QuizScores["1-2-1"] != 100 {
		t.Errorf("QuizScores = %v; want latest score 100", p.QuizScores)
	}

	last := sink.events[len(sink.events)-1]
	if last.Type != domain.EventQuizSubmitted || last.Score == nil || *last.Score != 100 || last.Passed == nil || !*last.Passed {
		t.Errorf("last event = %+v; want passed quiz submission", last)
	}
	if last.QuizResult == nil || last.QuizResult.LessonID != "1-2-1" {
		t.Errorf("event QuizResult = %+v", last.QuizResult)
	}

	if _, err := svc.SubmitQuiz(ctx, "default", "1", "1-1-1", nil, 0); !errors.Is(err, domain.ErrNotQuizLesson) {
		t.Errorf("SubmitQuiz(video) error = %v; want ErrNotQuizLesson", err)
	}
}

func TestService_Unenroll(t *testing.T) {
	svc, store, sink := newTestService()
	ctx := context.Background()

	if _, err := svc.Enroll(ctx, "default", "2"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Unenroll(ctx, "default", "2"); err != nil {
		t.Fatalf("Unenroll() error = %v", err)
	}
	if _, err := store.Get(ctx, "default", "2"); !errors.Is(err, domain.ErrProgressNotFound) {
		t.Errorf("record still present: %v", err)
	}
	if err := svc.Unenroll(ctx, "default", "2"); !errors.Is(err, domain.ErrProgressNotFound) {
		t.Errorf("Unenroll() twice error = %v; want ErrProgressNotFound", err)
	}

	want := []domain.EventType{domain.EventEnrolled, domain.EventUnenrolled}
	if got := sink.types(); !equalTypes(got, want) {
		t.Errorf("events = %v; want %v", got, want)
	}
}

func TestService_OpenLesson(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	view, err := svc.OpenLesson(ctx, "default", "1", "1-1-2")
	if err != nil {
		t.Fatalf("OpenLesson() error = %v", err)
	}
	if view.Previous == nil || view.Previous.ID != "1-1-1" {
		t.Errorf("Previous = %+v; want 1-1-1", view.Previous)
	}
	if view.Next == nil || view.Next.ID != "1-2-1" {
		t.Errorf("Next = %+v; want 1-2-1 across modules", view.Next)
	}
	if view.Completed {
		t.Error("Completed = true; want false")
	}

	first, err := svc.OpenLesson(ctx, "default", "1", "1-1-1")
	if err != nil {
		t.Fatalf("OpenLesson() error = %v", err)
	}
	if first.Previous != nil {
		t.Errorf("Previous = %+v; want nil at course start", first.Previous)
	}
	if store.saves != 2 {
		t.Errorf("saves = %d; want enrollment plus one touch", store.saves)
	}

	if _, err := svc.OpenLesson(ctx, "default", "1", "missing"); !errors.Is(err, domain.ErrLessonNotInCourse) {
		t.Errorf("OpenLesson(missing) error = %v; want ErrLessonNotInCourse", err)
	}
}

func TestService_CourseStatus(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	status, err := svc.CourseStatus(ctx, "default", "1")
	if err != nil {
		t.Fatalf("CourseStatus() error = %v", err)
	}
	if status.Enrolled || status.Completion != 0 || status.Completed {
		t.Errorf("status = %+v; want not enrolled", status)
	}
	if status.NextLesson == nil || status.NextLesson.ID != "1-1-1" {
		t.Errorf("NextLesson = %+v; want 1-1-1", status.NextLesson)
	}

	if _, err := svc.CompleteLesson(ctx, "default", "2", "2-1-1"); err != nil {
		t.Fatal(err)
	}
	status, err = svc.CourseStatus(ctx, "default", "2")
	if err != nil {
		t.Fatalf("CourseStatus() error = %v", err)
	}
	if !status.Enrolled || !status.Completed || status.Completion != 100 || status.NextLesson != nil {
		t.Errorf("status = %+v; want completed", status)
	}

	_, err = svc.CourseStatus(ctx, "default", "404")
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) || nf.Kind != "course" || nf.ID != "404" {
		t.Errorf("CourseStatus(unknown) error = %v; want course NotFoundError", err)
	}
}

func TestService_Analytics(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	// JSX and props right, hooks wrong
	if _, err := svc.SubmitQuiz(ctx, "default", "1", "1-2-1", Answers{"1": 1, "2": 1, "3": 1}, 10); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CompleteLesson(ctx, "default", "2", "2-1-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Enroll(ctx, "other", "1"); err != nil {
		t.Fatal(err)
	}

	perf, err := svc.TopicReport(ctx, "default")
	if err != nil {
		t.Fatalf("TopicReport() error = %v", err)
	}
	if s, ok := perf.Get("components"); !ok || s.Correct != 2 || s.Total != 2 {
		t.Errorf("components = %+v; want 2/2", s)
	}

	weak, err := svc.WeakAreas(ctx, "default", 0)
	if err != nil {
		t.Fatalf("WeakAreas() error = %v", err)
	}
	if len(weak) != 1 || weak[0].Topic != "react-basics" || weak[0].Percentage != 0 {
		t.Errorf("WeakAreas() = %+v; want react-basics at 0", weak)
	}
	if weak, _ := svc.WeakAreas(ctx, "default", 101); len(weak) != 2 {
		t.Errorf("WeakAreas(101) = %+v; want both topics", weak)
	}

	recs, err := svc.Recommendations(ctx, "default")
	if err != nil {
		t.Fatalf("Recommendations() error = %v", err)
	}
	if len(recs) != 1 || recs[0].Priority != analytics.PriorityHigh {
		t.Errorf("Recommendations() = %+v; want one high priority", recs)
	}

	d, err := svc.Dashboard(ctx, "default")
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if d.EnrolledCourses != 2 || d.CompletedCount != 1 {
		t.Errorf("Dashboard() = %+v; want 2 enrolled, 1 completed", d)
	}
	// course 1 has no completed lessons after the failed quiz, course 2 is done
	if d.OverallProgress < 49.9 || d.OverallProgress > 50.1 {
		t.Errorf("OverallProgress = %v; want ~50", d.OverallProgress)
	}
	if d.Quizzes.TotalQuizzes != 1 {
		t.Errorf("TotalQuizzes = %d; want 1", d.Quizzes.TotalQuizzes)
	}

	other, _ := svc.Dashboard(ctx, "other")
	if other.EnrolledCourses != 1 || other.OverallProgress != 0 {
		t.Errorf("other Dashboard() = %+v; want isolated from default", other)
	}
}

func TestService_Catalog(t *testing.T) {
	svc, _, _ := newTestService()

	got, err := svc.Catalog(context.Background(), catalog.Filter{Search: "calc"})
	if err != nil {
		t.Fatalf("Catalog() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "2" {
		t.Errorf("Catalog(calc) = %v; want course 2", got)
	}

	all, _ := svc.Catalog(context.Background(), catalog.Filter{Subject: catalog.Any})
	if len(all) != 2 {
		t.Errorf("Catalog(all) = %d courses; want 2", len(all))
	}
}

func TestService_SinkFailureDoesNotFailMutation(t *testing.T) {
	svc, store, sink := newTestService()
	sink.err = errBoom

	if _, err := svc.CompleteLesson(context.Background(), "default", "1", "1-1-1"); err != nil {
		t.Fatalf("CompleteLesson() error = %v; sink errors should be logged only", err)
	}
	if store.saves != 2 {
		t.Errorf("saves = %d; want 2", store.saves)
	}
}

func TestService_StoreErrors(t *testing.T) {
	store := newMemProgress()
	store.saveErr = errBoom
	svc := NewService(&memCourses{courses: []*domain.Course{reactCourse()}}, store)

	if _, err := svc.Enroll(context.Background(), "default", "1"); !errors.Is(err, errBoom) {
		t.Errorf("Enroll() error = %v; want wrapped boom", err)
	}

	broken := NewService(&memCourses{listErr: errBoom}, newMemProgress())
	if _, err := broken.Dashboard(context.Background(), "default"); !errors.Is(err, errBoom) {
		t.Errorf("Dashboard() error = %v; want wrapped boom", err)
	}
}

func TestMultiSink(t *testing.T) {
	a := &recordingSink{err: errBoom}
	b := &recordingSink{}
	sink := MultiSink{a, nil, b}

	err := sink.PublishEvent(context.Background(), domain.NewProgressEvent(domain.EventEnrolled, "u", "1", fixedNow))
	if !errors.Is(err, errBoom) {
		t.Errorf("PublishEvent() error = %v; want boom", err)
	}
	if len(a.events) != 1 || len(b.events) != 1 {
		t.Errorf("deliveries = %d, %d; want 1, 1", len(a.events), len(b.events))
	}

	var calls int
	fn := EventSinkFunc(func(context.Context, domain.ProgressEvent) error { calls++; return nil })
	if err := fn.PublishEvent(context.Background(), domain.ProgressEvent{}); err != nil || calls != 1 {
		t.Errorf("EventSinkFunc calls = %d, err = %v", calls, err)
	}
}
