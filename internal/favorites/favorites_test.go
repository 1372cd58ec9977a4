package favorites

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
)

func storePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "favorites.json")
}

func TestToggle_persistsAcrossReopen(t *testing.T) {
	path := storePath(t)

	s := Open(path)
	if !s.Toggle("a") {
		t.Error("first toggle should add")
	}
	if !s.Toggle("b") {
		t.Error("first toggle should add")
	}
	if s.Toggle("a") {
		t.Error("second toggle should remove")
	}

	s2 := Open(path)
	if s2.Contains("a") {
		t.Error("a was removed")
	}
	if !s2.Contains("b") {
		t.Error("b should survive reopen")
	}
	if got := s2.IDs(); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("IDs = %v", got)
	}
}

func TestOpen_missingFileIsEmptySet(t *testing.T) {
	s := Open(storePath(t))
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}

func TestOpen_corruptFileIsEmptySet(t *testing.T) {
	path := storePath(t)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := Open(path)
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}

func TestFileShape_plainArray(t *testing.T) {
	path := storePath(t)
	s := Open(path)
	s.Toggle("x")
	s.Toggle("y")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		t.Fatalf("file is not a JSON array: %v", err)
	}
	if !reflect.DeepEqual(list, []string{"x", "y"}) {
		t.Errorf("file contents = %v", list)
	}
}

func TestToggle_concurrent(t *testing.T) {
	s := Open(storePath(t))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			s.Toggle(id)
		}(string(rune('a' + i)))
	}
	wg.Wait()
	if s.Len() != 8 {
		t.Errorf("Len = %d, want 8", s.Len())
	}
}
