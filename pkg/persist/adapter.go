// Package persist saves the task tree to the remote API and falls back to
// the local store whenever the remote call fails.
//
// Writes that only reach the local store mark it pending. A pending local
// tree wins over the remote one: LoadAll returns it and pushes it, and Sync
// pushes it explicitly. Remote and local are never merged.
package persist

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/harrisonrobin/tasktree/pkg/local"
	"github.com/harrisonrobin/tasktree/pkg/model"
	"github.com/harrisonrobin/tasktree/pkg/tree"
)

// TasksKey is the local store key holding the nested tree.
const TasksKey = "tasks"

// Remote is the network side of the adapter.
type Remote interface {
	List(ctx context.Context) ([]*model.TaskNode, error)
	ReplaceAll(ctx context.Context, roots []*model.TaskNode) error
	Update(ctx context.Context, id string, patch model.TaskPatch) error
	Delete(ctx context.Context, id string) error
}

// Adapter routes saves and loads between the remote and local stores.
type Adapter struct {
	remote  Remote
	local   *local.Store
	timeout time.Duration
}

// NewAdapter creates an adapter. remote may be nil to run local-only. A
// zero timeout leaves remote calls bounded only by ctx.
func NewAdapter(remote Remote, store *local.Store, timeout time.Duration) *Adapter {
	return &Adapter{remote: remote, local: store, timeout: timeout}
}

// SaveAll writes the whole tree remotely, or locally when that fails.
func (a *Adapter) SaveAll(ctx context.Context, roots []*model.TaskNode) error {
	if err := a.pushRemote(ctx, roots); err != nil {
		log.Printf("persist: remote save failed, saving locally: %v", err)
		return a.saveLocal(roots, true)
	}
	if err := a.saveLocal(roots, false); err != nil {
		log.Printf("Warning: could not refresh local cache: %v", err)
	}
	return nil
}

// LoadAll returns the tree from the remote, falling back to the local
// store when the remote fails or is empty. Both empty yields nil, nil so
// the caller can seed defaults.
func (a *Adapter) LoadAll(ctx context.Context) ([]*model.TaskNode, error) {
	if a.local.Pending(TasksKey) {
		if roots := a.loadLocal(); len(roots) > 0 {
			if err := a.pushRemote(ctx, roots); err != nil {
				log.Printf("persist: local changes not yet synced: %v", err)
			} else {
				a.markSynced()
			}
			return roots, nil
		}
	}

	if a.remote != nil {
		rctx, cancel := a.withTimeout(ctx)
		roots, err := a.remote.List(rctx)
		cancel()
		switch {
		case err != nil:
			log.Printf("persist: remote load failed, using local store: %v", err)
		case len(roots) == 0:
			log.Printf("persist: remote store is empty, using local store")
		default:
			if err := a.saveLocal(roots, false); err != nil {
				log.Printf("Warning: could not refresh local cache: %v", err)
			}
			return roots, nil
		}
	}

	if roots := a.loadLocal(); len(roots) > 0 {
		return roots, nil
	}
	return nil, nil
}

// SaveOne applies a partial update to one task remotely, mirroring it into
// the local cache; when the remote fails the update goes to the local
// cache only. A task missing from the cache is inserted under its parent.
func (a *Adapter) SaveOne(ctx context.Context, id string, patch model.TaskPatch) error {
	remoteErr := errors.New("no remote configured")
	if a.remote != nil {
		rctx, cancel := a.withTimeout(ctx)
		remoteErr = a.remote.Update(rctx, id, patch)
		cancel()
	}
	if remoteErr != nil {
		log.Printf("persist: remote update of %s failed, updating locally: %v", id, remoteErr)
	}

	store := tree.NewStore(a.loadLocal())
	if !store.Update(id, patch) {
		n := &model.TaskNode{ID: id}
		patch.Apply(n)
		n.Children = model.CloneTree(patch.Children)
		store.Insert(n)
	}
	return a.saveLocal(store.Snapshot(), remoteErr != nil || a.local.Pending(TasksKey))
}

// DeleteOne removes a task remotely and from the local cache. The remote
// keeps one row per task, so the rows of descendants are removed as well.
// When any remote delete fails the local delete is left pending.
func (a *Adapter) DeleteOne(ctx context.Context, id string, descendants ...string) error {
	remoteErr := errors.New("no remote configured")
	if a.remote != nil {
		rctx, cancel := a.withTimeout(ctx)
		remoteErr = nil
		for _, rowID := range append([]string{id}, descendants...) {
			if err := a.remote.Delete(rctx, rowID); err != nil {
				remoteErr = err
				break
			}
		}
		cancel()
	}
	if remoteErr != nil {
		log.Printf("persist: remote delete of %s failed, deleting locally: %v", id, remoteErr)
	}

	store := tree.NewStore(a.loadLocal())
	store.Delete(id)
	return a.saveLocal(store.Snapshot(), remoteErr != nil || a.local.Pending(TasksKey))
}

// Sync pushes a pending local tree to the remote.
func (a *Adapter) Sync(ctx context.Context) error {
	if !a.local.Pending(TasksKey) {
		return nil
	}
	if err := a.pushRemote(ctx, a.loadLocal()); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	a.markSynced()
	return nil
}

// Pending reports whether the local store holds unsynced changes.
func (a *Adapter) Pending() bool {
	return a.local.Pending(TasksKey)
}

func (a *Adapter) pushRemote(ctx context.Context, roots []*model.TaskNode) error {
	if a.remote == nil {
		return errors.New("no remote configured")
	}
	rctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return a.remote.ReplaceAll(rctx, roots)
}

func (a *Adapter) loadLocal() []*model.TaskNode {
	var roots []*model.TaskNode
	ok, err := a.local.Get(TasksKey, &roots)
	if err != nil {
		log.Printf("persist: discarding unreadable local tree: %v", err)
		return nil
	}
	if !ok {
		return nil
	}
	return roots
}

func (a *Adapter) saveLocal(roots []*model.TaskNode, pending bool) error {
	if roots == nil {
		roots = []*model.TaskNode{}
	}
	if err := a.local.Set(TasksKey, roots); err != nil {
		return fmt.Errorf("local save failed: %w", err)
	}
	if err := a.local.SetPending(TasksKey, pending); err != nil {
		return fmt.Errorf("local save failed: %w", err)
	}
	return nil
}

func (a *Adapter) markSynced() {
	if err := a.local.SetPending(TasksKey, false); err != nil {
		log.Printf("Warning: could not clear pending mark: %v", err)
	}
}

func (a *Adapter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}
