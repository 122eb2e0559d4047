package tree

import (
	"log"
	"sort"

	"github.com/harrisonrobin/tasktree/pkg/model"
)

// SortByPriority reorders a section's direct children: incomplete tasks
// first by descending flag score, completed tasks after them. Equal
// scores keep their relative order.
func (s *Store) SortByPriority(sectionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	loc, ok := locate(&s.roots, nil, sectionID)
	if !ok {
		log.Printf("tree: sort: section %s not found", sectionID)
		return false
	}
	if !loc.node.IsSection {
		log.Printf("tree: sort: %s is not a section", sectionID)
		return false
	}
	loc.node.Children = sortByPriority(loc.node.Children)
	s.version++
	return true
}

func sortByPriority(children []*model.TaskNode) []*model.TaskNode {
	open := make([]*model.TaskNode, 0, len(children))
	var done []*model.TaskNode
	for _, c := range children {
		if c.Completed {
			done = append(done, c)
		} else {
			open = append(open, c)
		}
	}
	sort.SliceStable(open, func(i, j int) bool {
		return open[i].Score() > open[j].Score()
	})
	return append(open, done...)
}
