package sheets

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/harrisonrobin/tasktree/pkg/model"
)

// Columns is the header row of the task sheet, one task per row.
var Columns = []string{
	"id", "content", "isSection", "completed", "parentId", "positionOrder",
	"revisitDate", "fire", "fast", "flow", "fear", "first",
	"timeEstimate", "overview", "details", "scheduledTime",
}

// Row is one flattened task.
type Row struct {
	ID            string
	Content       string
	IsSection     bool
	Completed     bool
	ParentID      string
	PositionOrder int
	RevisitDate   string
	Fire          bool
	Fast          bool
	Flow          bool
	Fear          bool
	First         bool
	TimeEstimate  float64
	Overview      string
	Details       string
	ScheduledTime string
}

// Values encodes the row as sheet cells. Booleans become "true"/"false".
func (r Row) Values() []interface{} {
	return []interface{}{
		r.ID, r.Content, formatBool(r.IsSection), formatBool(r.Completed), r.ParentID,
		strconv.Itoa(r.PositionOrder), r.RevisitDate,
		formatBool(r.Fire), formatBool(r.Fast), formatBool(r.Flow), formatBool(r.Fear), formatBool(r.First),
		strconv.FormatFloat(r.TimeEstimate, 'f', -1, 64), r.Overview, r.Details, r.ScheduledTime,
	}
}

// ParseRow decodes sheet cells. Missing cells are empty, and numbers that
// fail to parse are 0. Free-text columns keep their whitespace.
func ParseRow(cells []interface{}) Row {
	text := func(i int) string {
		if i >= len(cells) || cells[i] == nil {
			return ""
		}
		return fmt.Sprint(cells[i])
	}
	cell := func(i int) string {
		return strings.TrimSpace(text(i))
	}
	return Row{
		ID:            cell(0),
		Content:       text(1),
		IsSection:     parseBool(cell(2)),
		Completed:     parseBool(cell(3)),
		ParentID:      cell(4),
		PositionOrder: int(parseNumber(cell(5))),
		RevisitDate:   cell(6),
		Fire:          parseBool(cell(7)),
		Fast:          parseBool(cell(8)),
		Flow:          parseBool(cell(9)),
		Fear:          parseBool(cell(10)),
		First:         parseBool(cell(11)),
		TimeEstimate:  parseNumber(cell(12)),
		Overview:      text(13),
		Details:       text(14),
		ScheduledTime: text(15),
	}
}

// RowFromNode flattens one node without its children.
func RowFromNode(n *model.TaskNode, parentID string, position int) Row {
	return Row{
		ID:            n.ID,
		Content:       n.Content,
		IsSection:     n.IsSection,
		Completed:     n.Completed,
		ParentID:      parentID,
		PositionOrder: position,
		RevisitDate:   n.RevisitDate,
		Fire:          n.Fire,
		Fast:          n.Fast,
		Flow:          n.Flow,
		Fear:          n.Fear,
		First:         n.First,
		TimeEstimate:  n.TimeEstimate,
		Overview:      n.Overview,
		Details:       n.Details,
		ScheduledTime: n.ScheduledTime,
	}
}

// Node rebuilds a childless node from the row.
func (r Row) Node() *model.TaskNode {
	return &model.TaskNode{
		ID:            r.ID,
		Content:       r.Content,
		IsSection:     r.IsSection,
		Completed:     r.Completed,
		ParentID:      r.ParentID,
		RevisitDate:   r.RevisitDate,
		Fire:          r.Fire,
		Fast:          r.Fast,
		Flow:          r.Flow,
		Fear:          r.Fear,
		First:         r.First,
		TimeEstimate:  r.TimeEstimate,
		Overview:      r.Overview,
		Details:       r.Details,
		ScheduledTime: r.ScheduledTime,
	}
}

// Flatten turns the tree into rows in depth-first display order.
func Flatten(roots []*model.TaskNode) []Row {
	var rows []Row
	var visit func(nodes []*model.TaskNode, parentID string)
	visit = func(nodes []*model.TaskNode, parentID string) {
		for i, n := range nodes {
			rows = append(rows, RowFromNode(n, parentID, i))
			visit(n.Children, n.ID)
		}
	}
	visit(roots, "")
	return rows
}

// Build rebuilds the tree from rows. Children are ordered by positionOrder,
// then by row order. Rows whose parent is missing, or whose parent chain
// loops back to them, are attached at root. Rows without an id or with a
// duplicate id are dropped.
func Build(rows []Row) []*model.TaskNode {
	nodes := make(map[string]*model.TaskNode, len(rows))
	parentOf := make(map[string]string, len(rows))
	var order []Row
	for _, r := range rows {
		if r.ID == "" {
			continue
		}
		if _, dup := nodes[r.ID]; dup {
			log.Printf("sheets: dropping duplicate row for task %s", r.ID)
			continue
		}
		nodes[r.ID] = r.Node()
		parentOf[r.ID] = r.ParentID
		order = append(order, r)
	}

	for _, r := range order {
		p := parentOf[r.ID]
		if p == "" {
			continue
		}
		if _, ok := nodes[p]; !ok || loops(parentOf, r.ID, len(order)) {
			parentOf[r.ID] = ""
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return order[i].PositionOrder < order[j].PositionOrder
	})

	var roots []*model.TaskNode
	for _, r := range order {
		n := nodes[r.ID]
		n.ParentID = parentOf[r.ID]
		if n.ParentID == "" {
			roots = append(roots, n)
			continue
		}
		parent := nodes[n.ParentID]
		parent.Children = append(parent.Children, n)
	}
	return roots
}

// loops reports whether following parents from id leads back to id.
func loops(parentOf map[string]string, id string, limit int) bool {
	cur := parentOf[id]
	for i := 0; cur != "" && i <= limit; i++ {
		if cur == id {
			return true
		}
		cur = parentOf[cur]
	}
	return false
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func parseBool(s string) bool {
	return strings.EqualFold(s, "true")
}

func parseNumber(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
