package local

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/felixgeelhaar/learnlens/internal/domain"
)

func TestNewStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "subdir", "nested")

	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if store.Path() != dir {
		t.Errorf("Path() = %v; want %v", store.Path(), dir)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("directory not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("expected directory, got file")
	}
}

func TestStore_SaveLoadDelete(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	type item struct {
		Name  string `json:"name"`
		Value int    `json:"value"`
	}

	if err := store.Save("things", "a", item{Name: "first", Value: 1}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Save("things", "a", item{Name: "second", Value: 2}); err != nil {
		t.Fatalf("Save() overwrite error = %v", err)
	}

	var got item
	if err := store.Load("things", "a", &got); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Name != "second" || got.Value != 2 {
		t.Errorf("Load() = %+v; want second/2", got)
	}
	if !store.Exists("things", "a") {
		t.Error("Exists() = false; want true")
	}

	ids, err := store.List("things")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != "a" {
		t.Errorf("List() = %v; want [a] without temp files", ids)
	}

	if err := store.Delete("things", "a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Load("things", "a", &got); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() after delete error = %v; want ErrNotFound", err)
	}
	if err := store.Delete("things", "a"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Delete() missing error = %v; want domain.ErrNotFound", err)
	}
}

func TestStore_ListMissingCollection(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	ids, err := store.List("nothing")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if ids == nil || len(ids) != 0 {
		t.Errorf("List() = %v; want empty", ids)
	}
}

func TestStore_RejectsPathKeys(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	for _, id := range []string{"", "..", "a/b", `a\b`} {
		if err := store.Save("things", id, 1); err == nil {
			t.Errorf("Save(%q) should fail", id)
		}
		if store.Exists("things", id) {
			t.Errorf("Exists(%q) should be false", id)
		}
	}
}

func TestStore_Concurrent(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.Save("c", "shared", map[string]int{"n": n})
			var out map[string]int
			_ = store.Load("c", "shared", &out)
		}(i)
	}
	wg.Wait()

	var out map[string]int
	if err := store.Load("c", "shared", &out); err != nil {
		t.Fatalf("Load() after concurrent writes error = %v", err)
	}
}
