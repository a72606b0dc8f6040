package daemon

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/felixgeelhaar/learnlens/internal/catalog"
	"github.com/felixgeelhaar/learnlens/internal/config"
	"github.com/felixgeelhaar/learnlens/internal/domain"
)

func TestNewRuntime_LocalDriver(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultLocalConfig()
	cfg.Storage.Driver = config.StorageLocal
	cfg.Storage.SeedFile = seedFile

	rt, err := NewRuntime(context.Background(), cfg, dir, nil)
	if err != nil {
		t.Fatalf("NewRuntime() error = %v", err)
	}
	defer rt.Close()

	if rt.Driver() != config.StorageLocal || rt.QueueEnabled() {
		t.Errorf("Driver() = %q, QueueEnabled() = %v", rt.Driver(), rt.QueueEnabled())
	}
	if err := rt.Start(context.Background()); err != nil {
		t.Errorf("Start() without queue error = %v", err)
	}

	ctx := context.Background()
	courses, err := rt.Service.Catalog(ctx, catalog.Filter{})
	if err != nil {
		t.Fatalf("Catalog() error = %v", err)
	}
	if len(courses) != 3 {
		t.Errorf("len(courses) = %d; want 3 seeded", len(courses))
	}

	if _, err := rt.Service.CompleteLesson(ctx, "ada", "2", "2-1-1"); err != nil {
		t.Fatalf("CompleteLesson() error = %v", err)
	}
	status, err := rt.Service.CourseStatus(ctx, "ada", "2")
	if err != nil {
		t.Fatalf("CourseStatus() error = %v", err)
	}
	if !status.Completed || status.Completion != 100 {
		t.Errorf("status = %+v; want completed", status)
	}

	// Reopening the same directory keeps the data and skips seeding.
	rt.Close()
	again, err := NewRuntime(ctx, cfg, dir, nil)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer again.Close()
	status, err = again.Service.CourseStatus(ctx, "ada", "2")
	if err != nil || !status.Completed {
		t.Errorf("after reopen status = %+v, err = %v; want completed", status, err)
	}
}

func TestNewRuntime_SQLiteEventLog(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultLocalConfig()
	cfg.Storage.Path = filepath.Join(dir, "events.db")
	cfg.Storage.SeedFile = seedFile

	rt, err := NewRuntime(context.Background(), cfg, dir, nil)
	if err != nil {
		t.Fatalf("NewRuntime() error = %v", err)
	}
	defer rt.Close()

	ctx := context.Background()
	if _, err := rt.Service.Enroll(ctx, "ada", "1"); err != nil {
		t.Fatalf("Enroll() error = %v", err)
	}
	if err := rt.Service.Unenroll(ctx, "ada", "1"); err != nil {
		t.Fatalf("Unenroll() error = %v", err)
	}

	counts, last := rt.Counter.Snapshot()
	if counts[domain.EventEnrolled] != 1 || counts[domain.EventUnenrolled] != 1 {
		t.Errorf("counts = %v; want one enroll and one unenroll", counts)
	}
	if last.IsZero() {
		t.Error("last event time should be set")
	}
}

func TestNewRuntime_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *config.LocalConfig)
	}{
		{"unknown driver", func(cfg *config.LocalConfig) { cfg.Storage.Driver = "tape" }},
		{"missing seed file", func(cfg *config.LocalConfig) {
			cfg.Storage.Driver = config.StorageLocal
			cfg.Storage.SeedFile = "does-not-exist.json"
		}},
		{"backend without url", func(cfg *config.LocalConfig) { cfg.Storage.Driver = config.StorageBackend }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultLocalConfig()
			tt.mutate(cfg)
			if rt, err := NewRuntime(context.Background(), cfg, t.TempDir(), nil); err == nil {
				rt.Close()
				t.Error("NewRuntime() should fail")
			}
		})
	}
}

func TestEventCounter(t *testing.T) {
	c := NewEventCounter()
	early := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	c.Record(domain.NewProgressEvent(domain.EventEnrolled, "u", "1", late))
	c.Record(domain.NewProgressEvent(domain.EventEnrolled, "u", "2", early))
	c.Record(domain.NewProgressEvent(domain.EventQuizSubmitted, "u", "1", early))

	counts, last := c.Snapshot()
	if counts[domain.EventEnrolled] != 2 || counts[domain.EventQuizSubmitted] != 1 {
		t.Errorf("counts = %v", counts)
	}
	if !last.Equal(late) {
		t.Errorf("last = %v; want %v", last, late)
	}

	counts[domain.EventEnrolled] = 99
	if again, _ := c.Snapshot(); again[domain.EventEnrolled] != 2 {
		t.Error("Snapshot() should return a copy")
	}
}
