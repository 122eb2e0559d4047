package local

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSetGetAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "local.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	want := []string{"a", "b"}
	if err := s.Set("tasks", want); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.SetPending("tasks", true); err != nil {
		t.Fatalf("SetPending failed: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	var got []string
	ok, err := reopened.Get("tasks", &got)
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if !reopened.Pending("tasks") {
		t.Error("Expected tasks to be pending after reopen")
	}
}

func TestGetMissingKey(t *testing.T) {
	s, _ := Open(filepath.Join(t.TempDir(), "local.json"))
	var v map[string]any
	ok, err := s.Get("nothing", &v)
	if ok || err != nil {
		t.Errorf("Expected absent key, got ok=%v err=%v", ok, err)
	}
}

func TestRemoveClearsPending(t *testing.T) {
	s, _ := Open(filepath.Join(t.TempDir(), "local.json"))
	s.Set("hours", []int{1})
	s.SetPending("hours", true)

	if err := s.Remove("hours"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if s.Pending("hours") {
		t.Error("Expected pending mark to be cleared")
	}
	var v []int
	if ok, _ := s.Get("hours", &v); ok {
		t.Error("Expected key to be gone")
	}
}

func TestOpenCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Expected a corrupt file to open as empty, got %v", err)
	}
	var v []string
	if ok, err := s.Get("tasks", &v); ok || err != nil {
		t.Errorf("Expected no data, got %v, %v", ok, err)
	}
	if _, err := os.Stat(path + ".corrupt"); err != nil {
		t.Errorf("Expected the corrupt file to be kept aside: %v", err)
	}

	if err := s.Set("tasks", []string{"a"}); err != nil {
		t.Fatalf("Set after recovery failed: %v", err)
	}
	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if ok, _ := reopened.Get("tasks", &v); !ok || len(v) != 1 {
		t.Errorf("Expected the new value to persist, got %v", v)
	}
}

func TestGetCorruptValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.json")
	if err := os.WriteFile(path, []byte(`{"items":{"tasks":"oops"}}`), 0600); err != nil {
		t.Fatal(err)
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	var v []int
	if _, err := s.Get("tasks", &v); err == nil {
		t.Error("Expected a decode error")
	}
}
