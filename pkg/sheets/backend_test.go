package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/harrisonrobin/tasktree/pkg/model"
)

// fakeSheet serves the handful of Values calls the backend makes.
type fakeSheet struct {
	mu   sync.Mutex
	grid [][]interface{}
}

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := strings.Index(r.URL.Path, "/values/")
	if i < 0 {
		http.Error(w, "unexpected path "+r.URL.Path, http.StatusNotFound)
		return
	}
	rng := r.URL.Path[i+len("/values/"):]

	switch {
	case r.Method == http.MethodGet:
		var values [][]interface{}
		if len(f.grid) > 1 {
			values = f.grid[1:]
		}
		json.NewEncoder(w).Encode(map[string]any{"range": rng, "values": values})
	case r.Method == http.MethodPost && strings.HasSuffix(rng, ":clear"):
		f.grid = nil
		json.NewEncoder(w).Encode(map[string]any{})
	case r.Method == http.MethodPut:
		var body struct {
			Values [][]interface{} `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		line := startLine(rng)
		for len(f.grid) < line-1+len(body.Values) {
			f.grid = append(f.grid, nil)
		}
		for j, row := range body.Values {
			f.grid[line-1+j] = row
		}
		json.NewEncoder(w).Encode(map[string]any{"updatedRows": len(body.Values)})
	default:
		http.Error(w, "unexpected call", http.StatusMethodNotAllowed)
	}
}

// startLine extracts the first row number from "Sheet!A12:P12".
func startLine(rng string) int {
	cell := rng[strings.Index(rng, "!")+2:]
	if j := strings.Index(cell, ":"); j >= 0 {
		cell = cell[:j]
	}
	n, err := strconv.Atoi(cell)
	if err != nil {
		return 1
	}
	return n
}

func newFakeBackend(t *testing.T) (*Backend, *fakeSheet) {
	t.Helper()
	fake := &fakeSheet{}
	ts := httptest.NewServer(fake)
	t.Cleanup(ts.Close)

	srv, err := sheets.NewService(context.Background(),
		option.WithEndpoint(ts.URL+"/"),
		option.WithHTTPClient(ts.Client()))
	if err != nil {
		t.Fatalf("sheets.NewService failed: %v", err)
	}
	return NewBackend(srv, "sheet-id", "Tasks"), fake
}

func TestBackendReplaceAndLoad(t *testing.T) {
	b, fake := newFakeBackend(t)
	ctx := context.Background()

	if err := b.ReplaceAll(ctx, sampleTree()); err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}
	if got := fmt.Sprint(fake.grid[0][0]); got != "id" {
		t.Errorf("Expected header row, got first cell %q", got)
	}

	roots, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want, _ := json.Marshal(sampleTree())
	got, _ := json.Marshal(roots)
	if string(want) != string(got) {
		t.Errorf("Load mismatch:\nwant %s\ngot  %s", want, got)
	}
}

func TestBackendUpdate(t *testing.T) {
	b, _ := newFakeBackend(t)
	ctx := context.Background()
	b.ReplaceAll(ctx, sampleTree())

	content := "Call the bank"
	done := true
	if err := b.Update(ctx, "t1", model.TaskPatch{Content: &content, Completed: &done}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	roots, _ := b.Load(ctx)
	t1 := roots[0].Children[0]
	if t1.Content != content || !t1.Completed {
		t.Errorf("Expected updated task, got %+v", t1)
	}
	if len(t1.Children) != 1 {
		t.Errorf("Expected child row to stay attached, got %d children", len(t1.Children))
	}

	err := b.Update(ctx, "missing", model.TaskPatch{Content: &content})
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestBackendDeleteLeavesChildRows(t *testing.T) {
	b, _ := newFakeBackend(t)
	ctx := context.Background()
	b.ReplaceAll(ctx, sampleTree())

	if err := b.Delete(ctx, "t1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	roots, _ := b.Load(ctx)

	var rootIDs []string
	for _, r := range roots {
		rootIDs = append(rootIDs, r.ID)
	}
	if strings.Join(rootIDs, ",") != "s1,t2,s2" {
		t.Errorf("Expected orphaned t2 at root, got %v", rootIDs)
	}

	if err := b.Delete(ctx, "t1"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestBackendClear(t *testing.T) {
	b, _ := newFakeBackend(t)
	ctx := context.Background()
	b.ReplaceAll(ctx, sampleTree())

	if err := b.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	roots, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(roots) != 0 {
		t.Errorf("Expected empty tree, got %d roots", len(roots))
	}
}

func TestBackendUpdateSkipsBlankLines(t *testing.T) {
	b, fake := newFakeBackend(t)
	ctx := context.Background()
	fake.grid = [][]interface{}{
		{"id", "content"},
		{"a", "A"},
		{},
		{"", "no id"},
		{"b", "B"},
		{"c", "C"},
	}

	content := "C2"
	if err := b.Update(ctx, "c", model.TaskPatch{Content: &content}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got := fmt.Sprint(fake.grid[4][1]); got != "B" {
		t.Errorf("Expected row b untouched, got %q", got)
	}
	if got := fmt.Sprint(fake.grid[5][1]); got != "C2" {
		t.Errorf("Expected row c updated in place, got %q", got)
	}

	roots, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	var got []string
	for _, r := range roots {
		got = append(got, r.ID+"="+r.Content)
	}
	if strings.Join(got, ",") != "a=A,b=B,c=C2" {
		t.Errorf("Expected a, b and updated c, got %v", got)
	}
}
