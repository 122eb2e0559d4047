package tree

import (
	"time"

	"github.com/harrisonrobin/tasktree/pkg/model"
)

// Filter decides visibility for every node without touching the tree.
// Sections are always visible.
//
// today and tomorrow match the date component of revisitDate against ref
// and ref+1 day; tasks without a date are hidden. triage shows tasks
// directly under the triage section, tasks without a date, and
// incomplete tasks whose date is before ref.
func (s *Store) Filter(criterion model.Criterion, ref time.Time) map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := truncateDay(ref)
	visible := make(map[string]bool)
	var visit func(nodes []*model.TaskNode, parent *model.TaskNode)
	visit = func(nodes []*model.TaskNode, parent *model.TaskNode) {
		for _, n := range nodes {
			visible[n.ID] = s.visible(n, parent, criterion, day)
			visit(n.Children, n)
		}
	}
	visit(s.roots, nil)
	return visible
}

func (s *Store) visible(n, parent *model.TaskNode, criterion model.Criterion, day time.Time) bool {
	if n.IsSection {
		return true
	}
	revisit, hasDate := n.Revisit()
	switch criterion {
	case model.FilterToday:
		return hasDate && revisit.Equal(day)
	case model.FilterTomorrow:
		return hasDate && revisit.Equal(day.AddDate(0, 0, 1))
	case model.FilterTriage:
		if s.isTriage(parent) || !hasDate {
			return true
		}
		return revisit.Before(day) && !n.Completed
	}
	return true
}

// truncateDay keeps the calendar date of t in its own location, expressed
// as midnight UTC so it compares with parsed revisit dates.
func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
