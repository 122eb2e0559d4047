package tree

import "github.com/harrisonrobin/tasktree/pkg/model"

// DefaultTree is the seed content used when no store has any data.
func DefaultTree() []*model.TaskNode {
	return []*model.TaskNode{
		{ID: "section-triage", Content: DefaultTriageSection, IsSection: true},
		{ID: "section-today", Content: "Today", IsSection: true},
		{ID: "section-later", Content: "Later", IsSection: true},
	}
}
