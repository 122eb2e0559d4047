package persist

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/harrisonrobin/tasktree/pkg/tree"
)

// DefaultAutosaveInterval is how often the whole tree is saved.
const DefaultAutosaveInterval = 30 * time.Second

// Autosaver periodically saves the whole tree when it has changed.
type Autosaver struct {
	store    *tree.Store
	adapter  *Adapter
	interval time.Duration

	mu    sync.Mutex
	saved uint64
}

// NewAutosaver creates an autosaver. The tree as it is now counts as saved.
func NewAutosaver(store *tree.Store, adapter *Adapter, interval time.Duration) *Autosaver {
	if interval <= 0 {
		interval = DefaultAutosaveInterval
	}
	return &Autosaver{
		store:    store,
		adapter:  adapter,
		interval: interval,
		saved:    store.Version(),
	}
}

// Run saves on every tick until ctx is done.
func (a *Autosaver) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.Flush(ctx); err != nil {
				log.Printf("autosave: %v", err)
			}
		}
	}
}

// Flush saves the tree now if it changed since the last save.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	v := a.store.Version()
	if v == a.saved {
		return nil
	}
	if err := a.adapter.SaveAll(ctx, a.store.Snapshot()); err != nil {
		return err
	}
	a.saved = v
	return nil
}

// Saved records that the change from version before to after was
// persisted by other means. It has no effect if anything else changed
// since the last save.
func (a *Autosaver) Saved(before, after uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.saved == before {
		a.saved = after
	}
}
