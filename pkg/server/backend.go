package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/harrisonrobin/tasktree/pkg/model"
	"github.com/harrisonrobin/tasktree/pkg/sheets"
)

// Backend is the row store behind the REST API.
type Backend interface {
	Load(ctx context.Context) ([]*model.TaskNode, error)
	ReplaceAll(ctx context.Context, roots []*model.TaskNode) error
	Update(ctx context.Context, id string, patch model.TaskPatch) error
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// MemoryBackend keeps rows in memory with the same row semantics as the
// sheet: Delete drops one row and leaves its children's rows behind.
type MemoryBackend struct {
	mu   sync.Mutex
	rows []sheets.Row
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (m *MemoryBackend) Load(ctx context.Context) ([]*model.TaskNode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sheets.Build(m.rows), nil
}

func (m *MemoryBackend) ReplaceAll(ctx context.Context, roots []*model.TaskNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = sheets.Flatten(roots)
	return nil
}

func (m *MemoryBackend) Update(ctx context.Context, id string, patch model.TaskPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rows {
		if r.ID == id {
			n := r.Node()
			patch.Children = nil
			patch.Apply(n)
			m.rows[i] = sheets.RowFromNode(n, n.ParentID, r.PositionOrder)
			return nil
		}
	}
	return fmt.Errorf("update %s: %w", id, model.ErrNotFound)
}

func (m *MemoryBackend) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rows {
		if r.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete %s: %w", id, model.ErrNotFound)
}

func (m *MemoryBackend) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = nil
	return nil
}
