// Package app wires configuration, the task tree, the day schedule and
// persistence into one running instance.
package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/harrisonrobin/tasktree/pkg/api"
	"github.com/harrisonrobin/tasktree/pkg/config"
	"github.com/harrisonrobin/tasktree/pkg/local"
	"github.com/harrisonrobin/tasktree/pkg/model"
	"github.com/harrisonrobin/tasktree/pkg/persist"
	"github.com/harrisonrobin/tasktree/pkg/schedule"
	"github.com/harrisonrobin/tasktree/pkg/tree"
)

// App is one running instance.
type App struct {
	Config   *config.Config
	Local    *local.Store
	Adapter  *persist.Adapter
	Tree     *tree.Store
	Schedule *schedule.Scheduler

	opts     []tree.Option
	autosave *persist.Autosaver
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New opens the local store and connects the adapter to cfg.APIURL. An
// empty APIURL runs local-only.
func New(cfg *config.Config, opts ...tree.Option) (*App, error) {
	store, err := local.Open(cfg.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	var remote persist.Remote
	if cfg.APIURL != "" {
		remote = api.NewClient(cfg.APIURL, cfg.RequestTimeout)
	}

	return &App{
		Config:  cfg,
		Local:   store,
		Adapter: persist.NewAdapter(remote, store, cfg.RequestTimeout),
		opts:    append([]tree.Option{tree.WithTriageSection(cfg.TriageSection)}, opts...),
	}, nil
}

// Start loads the tree and the schedule and begins autosaving. With no
// saved tree anywhere the default sections are seeded.
func (a *App) Start(ctx context.Context) error {
	roots, err := a.Adapter.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load tasks: %w", err)
	}
	seeded := roots == nil
	if seeded {
		log.Printf("No saved tasks found, starting from the default sections")
		roots = tree.DefaultTree()
	}
	a.Tree = tree.NewStore(roots, a.opts...)
	if seeded {
		if err := a.Adapter.SaveAll(ctx, a.Tree.Snapshot()); err != nil {
			return fmt.Errorf("failed to save default tree: %w", err)
		}
	}

	a.Schedule = schedule.New(persist.LoadSchedule(a.Local))

	a.autosave = persist.NewAutosaver(a.Tree, a.Adapter, a.Config.AutosaveInterval)
	runCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.autosave.Run(runCtx)
	}()
	return nil
}

// Close stops autosaving and saves whatever changed since the last save.
func (a *App) Close(ctx context.Context) error {
	if a.cancel == nil {
		return nil
	}
	a.cancel()
	a.wg.Wait()
	a.cancel = nil
	return a.autosave.Flush(ctx)
}

// UpdateTask applies patch to one task and saves just that task.
func (a *App) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) error {
	before := a.Tree.Version()
	if !a.Tree.Update(id, patch) {
		return fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}
	n, _ := a.Tree.Find(id)
	p := model.PatchFrom(n)
	if err := a.Adapter.SaveOne(ctx, id, p); err != nil {
		return err
	}
	a.autosave.Saved(before, a.Tree.Version())
	return nil
}

// ToggleFlag flips one flag and saves the task.
func (a *App) ToggleFlag(ctx context.Context, id string, flag model.Flag) (bool, error) {
	before := a.Tree.Version()
	v, ok := a.Tree.ToggleFlag(id, flag)
	if !ok {
		return false, fmt.Errorf("cannot flag %s: not found or a section", id)
	}
	n, _ := a.Tree.Find(id)
	if err := a.Adapter.SaveOne(ctx, id, model.PatchFrom(n)); err != nil {
		return v, err
	}
	a.autosave.Saved(before, a.Tree.Version())
	return v, nil
}

// DeleteTask removes a task and its subtree everywhere.
func (a *App) DeleteTask(ctx context.Context, id string) error {
	before := a.Tree.Version()
	var descendants []string
	if node, ok := a.Tree.Find(id); ok {
		walkIDs(node.Children, &descendants)
	}
	if !a.Tree.Delete(id) {
		return fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}
	if err := a.Adapter.DeleteOne(ctx, id, descendants...); err != nil {
		return err
	}
	a.autosave.Saved(before, a.Tree.Version())
	return nil
}

// SaveSchedule writes the schedule to the local store.
func (a *App) SaveSchedule() error {
	return persist.SaveSchedule(a.Local, a.Schedule.Tasks())
}

// Import merges imported roots into the tree. Imported sections whose
// content matches an existing section are merged into it. It returns the
// number of nodes added.
func (a *App) Import(roots []*model.TaskNode) int {
	sections := make(map[string]string)
	for _, n := range a.Tree.Snapshot() {
		if n.IsSection {
			sections[strings.ToLower(strings.TrimSpace(n.Content))] = n.ID
		}
	}

	added := 0
	for _, root := range roots {
		if id, ok := sections[strings.ToLower(strings.TrimSpace(root.Content))]; ok && root.IsSection {
			for _, child := range root.Children {
				c := child.Clone()
				c.ParentID = id
				if a.Tree.Insert(c) {
					added += count(c)
				}
			}
			continue
		}
		r := root.Clone()
		r.ParentID = ""
		if a.Tree.Insert(r) {
			added += count(r)
		}
	}
	return added
}

func walkIDs(nodes []*model.TaskNode, ids *[]string) {
	for _, n := range nodes {
		*ids = append(*ids, n.ID)
		walkIDs(n.Children, ids)
	}
}

func count(n *model.TaskNode) int {
	total := 1
	for _, c := range n.Children {
		total += count(c)
	}
	return total
}

