// Package orgmode imports Org-mode outlines into task nodes.
//
// Level-one headings without a TODO keyword become sections; every other
// heading becomes a task nested under the nearest shallower heading.
package orgmode

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/harrisonrobin/tasktree/pkg/model"
)

var (
	headingRegex  = regexp.MustCompile(`^(\*+)\s+(?:(TODO|DONE)\s+)?(?:\[#([A-Z])\]\s*)?(.*?)(?:\s+(:[\w@:]+:))?\s*$`)
	plannedRegex  = regexp.MustCompile(`(SCHEDULED|DEADLINE):\s+<(\d{4}-\d{2}-\d{2})[^>]*>`)
	propertyRegex = regexp.MustCompile(`^:([A-Za-z_]+):\s*(.*)$`)
	effortRegex   = regexp.MustCompile(`^(\d+):(\d{2})$`)
)

// ParseFile parses the Org file at path.
func ParseFile(path string, newID func() string) ([]*model.TaskNode, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, newID)
}

type open struct {
	level     int
	node      *model.TaskNode
	scheduled string
	deadline  string
	details   []string
}

// Parse reads an Org outline. Nodes without an :ID: property get one from
// newID.
func Parse(r io.Reader, newID func() string) ([]*model.TaskNode, error) {
	scanner := bufio.NewScanner(r)
	var roots []*model.TaskNode
	var stack []*open
	inDrawer := false

	closeTop := func() {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		finish(top)
	}

	for scanner.Scan() {
		raw := scanner.Text()
		line := strings.TrimSpace(raw)

		if m := headingRegex.FindStringSubmatch(raw); m != nil {
			inDrawer = false
			level := len(m[1])
			for len(stack) > 0 && stack[len(stack)-1].level >= level {
				closeTop()
			}

			n := &model.TaskNode{
				Content:   strings.TrimSpace(m[4]),
				Completed: m[2] == "DONE",
				IsSection: level == 1 && m[2] == "",
			}
			if !n.IsSection {
				for _, tag := range strings.Split(strings.Trim(m[5], ":"), ":") {
					if f, err := model.ParseFlag(tag); err == nil {
						n.SetFlag(f, true)
					}
				}
			}

			if len(stack) == 0 {
				roots = append(roots, n)
			} else {
				parent := stack[len(stack)-1].node
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, &open{level: level, node: n})
			continue
		}

		if len(stack) == 0 {
			continue
		}
		top := stack[len(stack)-1]

		switch {
		case line == ":PROPERTIES:":
			inDrawer = true
		case line == ":END:":
			inDrawer = false
		case inDrawer:
			if m := propertyRegex.FindStringSubmatch(line); m != nil {
				setProperty(top.node, strings.ToUpper(m[1]), strings.TrimSpace(m[2]))
			}
		case plannedRegex.MatchString(line):
			for _, m := range plannedRegex.FindAllStringSubmatch(line, -1) {
				if m[1] == "SCHEDULED" {
					top.scheduled = m[2]
				} else {
					top.deadline = m[2]
				}
			}
		default:
			top.details = append(top.details, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	for len(stack) > 0 {
		closeTop()
	}

	assignIDs(roots, "", newID)
	return roots, nil
}

func setProperty(n *model.TaskNode, key, value string) {
	switch key {
	case "ID":
		n.ID = value
	case "EFFORT":
		if m := effortRegex.FindStringSubmatch(value); m != nil {
			h, _ := strconv.Atoi(m[1])
			mins, _ := strconv.Atoi(m[2])
			n.TimeEstimate = float64(h) + float64(mins)/60
		}
	case "OVERVIEW":
		n.Overview = value
	}
}

// finish settles what is only known once the heading's body has been read.
func finish(o *open) {
	n := o.node
	if n.IsSection {
		n.TimeEstimate = 0
		return
	}
	switch {
	case o.scheduled != "":
		n.RevisitDate = o.scheduled
	case o.deadline != "":
		n.RevisitDate = o.deadline
	}
	n.Details = strings.TrimSpace(strings.Join(o.details, "\n"))
}

func assignIDs(nodes []*model.TaskNode, parentID string, newID func() string) {
	for _, n := range nodes {
		if n.ID == "" {
			n.ID = newID()
		}
		n.ParentID = parentID
		assignIDs(n.Children, n.ID, newID)
	}
}
