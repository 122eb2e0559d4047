// Package tree holds the in-memory task tree and every mutation on it.
//
// The Store is the single source of truth for the task tree. Views render
// from Snapshot and persistence serializes Snapshot; nothing reads state
// back from a view.
package tree

import (
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/harrisonrobin/tasktree/pkg/model"
)

// DefaultTriageSection is the section content that designates triage when
// no other name is configured.
const DefaultTriageSection = "Triage"

// Store owns the root task nodes.
type Store struct {
	mu      sync.RWMutex
	roots   []*model.TaskNode
	triage  string
	newID   func() string
	version uint64
}

// Option configures a Store.
type Option func(*Store)

// WithTriageSection designates the triage section by id or content.
func WithTriageSection(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.triage = name
		}
	}
}

// WithIDGenerator replaces the uuid id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewStore creates a store over a deep copy of roots.
func NewStore(roots []*model.TaskNode, opts ...Option) *Store {
	s := &Store{
		roots:  model.CloneTree(roots),
		triage: DefaultTriageSection,
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	relink(s.roots, "")
	return s
}

// Replace swaps the whole tree, e.g. after a load.
func (s *Store) Replace(roots []*model.TaskNode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roots = model.CloneTree(roots)
	relink(s.roots, "")
	s.version++
}

// Snapshot returns a deep copy of the tree.
func (s *Store) Snapshot() []*model.TaskNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.CloneTree(s.roots)
}

// Version increases with every successful mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Find returns a copy of the node with the given id.
func (s *Store) Find(id string) (*model.TaskNode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	loc, ok := locate(&s.roots, nil, id)
	if !ok {
		return nil, false
	}
	return loc.node.Clone(), true
}

// Walk visits every node depth-first in display order. The node passed to
// fn must not be modified.
func (s *Store) Walk(fn func(n *model.TaskNode, depth int)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	walk(s.roots, 0, fn)
}

// Add appends a new node built from data to parentID's children, or to the
// root list when parentID is empty or unknown. It returns the fresh id.
func (s *Store) Add(parentID string, data model.TaskNode) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := data.Clone()
	n.ID = s.newID()
	n.Children = nil
	if n.TimeEstimate < 0 {
		n.TimeEstimate = 0
	}
	if n.IsSection {
		n.ClearFlags()
		n.RevisitDate = ""
	}

	container := &s.roots
	n.ParentID = ""
	if parentID != "" {
		loc, ok := locate(&s.roots, nil, parentID)
		if !ok {
			log.Printf("tree: parent %s not found, adding %q at root", parentID, n.Content)
		} else if n.IsSection && !loc.node.IsSection {
			log.Printf("tree: cannot nest section %q under task %s", n.Content, parentID)
			return "", false
		} else {
			container = &loc.node.Children
			n.ParentID = loc.node.ID
		}
	}

	*container = append(*container, n)
	s.version++
	return n.ID, true
}

// Insert places an existing node, keeping its id, at the end of its
// ParentID's children or at root when that parent is unknown. Ids already
// in the tree, repeated within the node's subtree, or empty anywhere in it
// are refused.
func (s *Store) Insert(node *model.TaskNode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if node == nil {
		return false
	}
	taken := make(map[string]bool)
	walk(s.roots, 0, func(n *model.TaskNode, _ int) { taken[n.ID] = true })
	valid := true
	walk([]*model.TaskNode{node}, 0, func(n *model.TaskNode, _ int) {
		if !valid {
			return
		}
		switch {
		case n.ID == "":
			log.Printf("tree: insert: task without id under %s", node.ID)
			valid = false
		case taken[n.ID]:
			log.Printf("tree: insert: task %s already exists", n.ID)
			valid = false
		}
		taken[n.ID] = true
	})
	if !valid {
		return false
	}
	n := node.Clone()
	container := &s.roots
	if n.ParentID != "" {
		if loc, ok := locate(&s.roots, nil, n.ParentID); ok {
			container = &loc.node.Children
		} else {
			log.Printf("tree: insert: parent %s not found, inserting %s at root", n.ParentID, n.ID)
			n.ParentID = ""
		}
	}
	relink(n.Children, n.ID)
	*container = append(*container, n)
	s.version++
	return true
}

// Update merges patch into the node with the given id. Children are kept
// unless the patch carries them. ParentID is not moved by Update; use Move.
func (s *Store) Update(id string, patch model.TaskPatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	loc, ok := locate(&s.roots, nil, id)
	if !ok {
		log.Printf("tree: update: task %s not found", id)
		return false
	}
	patch.ParentID = nil
	patch.Apply(loc.node)
	if patch.Children != nil {
		loc.node.Children = model.CloneTree(patch.Children)
		relink(loc.node.Children, loc.node.ID)
	}
	s.version++
	return true
}

// Delete removes the node and its subtree.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	loc, ok := locate(&s.roots, nil, id)
	if !ok {
		log.Printf("tree: delete: task %s not found", id)
		return false
	}
	*loc.container = removeAt(*loc.container, loc.index)
	s.version++
	return true
}

// ToggleFlag flips one priority flag and returns its new value.
func (s *Store) ToggleFlag(id string, flag model.Flag) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loc, ok := locate(&s.roots, nil, id)
	if !ok {
		log.Printf("tree: toggle %s: task %s not found", flag, id)
		return false, false
	}
	if loc.node.IsSection {
		log.Printf("tree: toggle %s: %s is a section", flag, id)
		return false, false
	}
	v := !loc.node.Flag(flag)
	loc.node.SetFlag(flag, v)
	s.version++
	return v, true
}

// SetCompleted sets the completed state of one node; children are untouched.
func (s *Store) SetCompleted(id string, completed bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	loc, ok := locate(&s.roots, nil, id)
	if !ok {
		log.Printf("tree: complete: task %s not found", id)
		return false
	}
	loc.node.Completed = completed
	s.version++
	return true
}

// Move re-parents a node under newParentID (root when empty) at index.
// An index out of range appends. Moving a node into its own subtree, or a
// section under a task, is refused.
func (s *Store) Move(id, newParentID string, index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	loc, ok := locate(&s.roots, nil, id)
	if !ok {
		log.Printf("tree: move: task %s not found", id)
		return false
	}

	target := &s.roots
	if newParentID != "" {
		if newParentID == id {
			log.Printf("tree: move: %s cannot be its own parent", id)
			return false
		}
		if _, inside := locate(&loc.node.Children, loc.node, newParentID); inside {
			log.Printf("tree: move: %s is inside the subtree of %s", newParentID, id)
			return false
		}
		parent, ok := locate(&s.roots, nil, newParentID)
		if !ok {
			log.Printf("tree: move: parent %s not found", newParentID)
			return false
		}
		if loc.node.IsSection && !parent.node.IsSection {
			log.Printf("tree: move: cannot nest section %s under task %s", id, newParentID)
			return false
		}
		target = &parent.node.Children
	}

	node := loc.node
	*loc.container = removeAt(*loc.container, loc.index)
	if index < 0 || index > len(*target) {
		index = len(*target)
	}
	*target = append(*target, nil)
	copy((*target)[index+1:], (*target)[index:])
	(*target)[index] = node
	node.ParentID = newParentID
	s.version++
	return true
}

// isTriage reports whether n is the designated triage section.
func (s *Store) isTriage(n *model.TaskNode) bool {
	if n == nil || !n.IsSection {
		return false
	}
	return n.ID == s.triage || strings.EqualFold(strings.TrimSpace(n.Content), s.triage)
}

type location struct {
	node      *model.TaskNode
	parent    *model.TaskNode
	container *[]*model.TaskNode
	index     int
}

// locate finds id by depth-first search below container.
func locate(container *[]*model.TaskNode, parent *model.TaskNode, id string) (location, bool) {
	for i, n := range *container {
		if n.ID == id {
			return location{node: n, parent: parent, container: container, index: i}, true
		}
		if loc, ok := locate(&n.Children, n, id); ok {
			return loc, true
		}
	}
	return location{}, false
}

func walk(nodes []*model.TaskNode, depth int, fn func(*model.TaskNode, int)) {
	for _, n := range nodes {
		fn(n, depth)
		walk(n.Children, depth+1, fn)
	}
}

// relink makes every ParentID agree with the tree structure.
func relink(nodes []*model.TaskNode, parentID string) {
	for _, n := range nodes {
		n.ParentID = parentID
		relink(n.Children, n.ID)
	}
}

func removeAt(nodes []*model.TaskNode, i int) []*model.TaskNode {
	copy(nodes[i:], nodes[i+1:])
	nodes[len(nodes)-1] = nil
	return nodes[:len(nodes)-1]
}
