package app

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/harrisonrobin/tasktree/pkg/api"
	"github.com/harrisonrobin/tasktree/pkg/config"
	"github.com/harrisonrobin/tasktree/pkg/model"
	"github.com/harrisonrobin/tasktree/pkg/server"
	"github.com/harrisonrobin/tasktree/pkg/tree"
)

func newTestApp(t *testing.T) (*App, *api.Client) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ts := httptest.NewServer(server.NewServer(server.NewMemoryBackend()).Handler())
	t.Cleanup(ts.Close)

	cfg := &config.Config{
		APIURL:           ts.URL,
		LocalPath:        filepath.Join(t.TempDir(), "local.json"),
		TriageSection:    "Triage",
		AutosaveInterval: time.Hour,
		RequestTimeout:   time.Second,
	}
	n := 0
	a, err := New(cfg, tree.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("t%d", n)
	}))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return a, api.NewClient(ts.URL, time.Second)
}

func TestStartSeedsDefaults(t *testing.T) {
	a, remote := newTestApp(t)
	ctx := context.Background()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer a.Close(ctx)

	roots := a.Tree.Snapshot()
	if len(roots) != 3 || !roots[0].IsSection {
		t.Fatalf("Expected the default sections, got %+v", roots)
	}
	saved, _ := remote.List(ctx)
	if len(saved) != 3 {
		t.Errorf("Expected seeded tree to be saved remotely, got %d roots", len(saved))
	}
	if len(a.Schedule.Tasks()) != 0 {
		t.Errorf("Expected empty schedule")
	}
}

func TestCloseFlushesChanges(t *testing.T) {
	a, remote := newTestApp(t)
	ctx := context.Background()
	a.Start(ctx)

	id, ok := a.Tree.Add("section-triage", model.TaskNode{Content: "Water plants"})
	if !ok {
		t.Fatal("Add failed")
	}
	if err := a.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	saved, _ := remote.List(ctx)
	children := saved[0].Children
	if len(children) != 1 || children[0].ID != id {
		t.Errorf("Expected %s saved under triage, got %+v", id, children)
	}
	if err := a.Close(ctx); err != nil {
		t.Errorf("Expected second Close to be a no-op, got %v", err)
	}
}

func TestUpdateToggleDelete(t *testing.T) {
	a, remote := newTestApp(t)
	ctx := context.Background()
	a.Start(ctx)
	defer a.Close(ctx)

	id, _ := a.Tree.Add("section-today", model.TaskNode{Content: "Draft"})
	a.Adapter.SaveAll(ctx, a.Tree.Snapshot())

	content := "Draft the report"
	if err := a.UpdateTask(ctx, id, model.TaskPatch{Content: &content}); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	if v, err := a.ToggleFlag(ctx, id, model.FlagFast); err != nil || !v {
		t.Fatalf("ToggleFlag failed: %v, %v", v, err)
	}
	saved, _ := remote.List(ctx)
	got := saved[1].Children[0]
	if got.Content != content || !got.Fast {
		t.Errorf("Expected remote to carry both edits, got %+v", got)
	}

	if _, err := a.ToggleFlag(ctx, "section-today", model.FlagFast); err == nil {
		t.Error("Expected flagging a section to fail")
	}
	if err := a.UpdateTask(ctx, "missing", model.TaskPatch{Content: &content}); err == nil {
		t.Error("Expected unknown id to fail")
	}

	if err := a.DeleteTask(ctx, id); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	saved, _ = remote.List(ctx)
	if len(saved[1].Children) != 0 {
		t.Errorf("Expected task removed remotely, got %+v", saved[1].Children)
	}
}

func TestScheduleSurvivesRestart(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()
	a.Start(ctx)
	if _, err := a.Schedule.Create("Focus", 9*60, 90); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := a.SaveSchedule(); err != nil {
		t.Fatalf("SaveSchedule failed: %v", err)
	}
	a.Close(ctx)

	b, err := New(a.Config)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := b.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer b.Close(ctx)
	tasks := b.Schedule.Tasks()
	if len(tasks) != 1 || tasks[0].StartIndex != 36 || tasks[0].DurationSteps != 6 {
		t.Errorf("Expected the saved block back, got %+v", tasks)
	}
}

func TestImportMergesSections(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()
	a.Start(ctx)
	defer a.Close(ctx)

	imported := []*model.TaskNode{
		{ID: "s", Content: "triage", IsSection: true, Children: []*model.TaskNode{
			{ID: "x", Content: "From org", ParentID: "s", Children: []*model.TaskNode{
				{ID: "y", Content: "Sub", ParentID: "x"},
			}},
		}},
		{ID: "inbox", Content: "Inbox", IsSection: true},
	}
	if added := a.Import(imported); added != 3 {
		t.Errorf("Expected 3 nodes added, got %d", added)
	}

	roots := a.Tree.Snapshot()
	if len(roots) != 4 || roots[3].ID != "inbox" {
		t.Errorf("Expected Inbox appended as a new section, got %d roots", len(roots))
	}
	x, ok := a.Tree.Find("x")
	if !ok || x.ParentID != "section-triage" {
		t.Errorf("Expected x merged into the existing triage section, got %+v", x)
	}
	if added := a.Import(imported); added != 0 {
		t.Errorf("Expected re-import to add nothing, got %d", added)
	}
}

func TestDeleteParentRemovesSubtreeAfterRestart(t *testing.T) {
	a, remote := newTestApp(t)
	ctx := context.Background()
	a.Start(ctx)
	parent, _ := a.Tree.Add("section-triage", model.TaskNode{Content: "Move house"})
	child, _ := a.Tree.Add(parent, model.TaskNode{Content: "Book van"})
	grandchild, _ := a.Tree.Add(child, model.TaskNode{Content: "Compare prices"})
	if err := a.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	b, err := New(a.Config)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := b.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := b.DeleteTask(ctx, parent); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if err := b.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if b.Adapter.Pending() {
		t.Error("Expected no pending local changes")
	}

	saved, _ := remote.List(ctx)
	if len(saved) != 3 || len(saved[0].Children) != 0 {
		t.Fatalf("Expected only the empty sections remotely, got %+v", saved)
	}

	c, err := New(a.Config)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer c.Close(ctx)
	for _, id := range []string{parent, child, grandchild} {
		if _, ok := c.Tree.Find(id); ok {
			t.Errorf("Expected %s to stay deleted after restart", id)
		}
	}
}

func TestStartWithCorruptLocalFile(t *testing.T) {
	dir := t.TempDir()
	a, _ := newTestApp(t)
	a.Config.LocalPath = filepath.Join(dir, "local.json")
	if err := os.WriteFile(a.Config.LocalPath, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	b, err := New(a.Config)
	if err != nil {
		t.Fatalf("Expected a corrupt local file to be set aside, got %v", err)
	}
	ctx := context.Background()
	if err := b.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer b.Close(ctx)
	if len(b.Tree.Snapshot()) != 3 {
		t.Errorf("Expected the default sections, got %+v", b.Tree.Snapshot())
	}
	if _, err := os.Stat(a.Config.LocalPath + ".corrupt"); err != nil {
		t.Errorf("Expected the corrupt file to be kept aside: %v", err)
	}
}
