package tree

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/harrisonrobin/tasktree/pkg/model"
)

var (
	sectionStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	doneStyle    = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	flagStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	dateStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Render draws the tree as an indented outline. Nodes absent from visible,
// or mapped to false, are skipped along with their subtree; a nil map shows
// everything.
func Render(roots []*model.TaskNode, visible map[string]bool) string {
	var b strings.Builder
	render(&b, roots, visible, 0)
	return b.String()
}

func render(b *strings.Builder, nodes []*model.TaskNode, visible map[string]bool, depth int) {
	for _, n := range nodes {
		if visible != nil && !visible[n.ID] {
			continue
		}
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(line(n))
		b.WriteString("\n")
		render(b, n.Children, visible, depth+1)
	}
}

func line(n *model.TaskNode) string {
	if n.IsSection {
		return fmt.Sprintf("%s %s", sectionStyle.Render(n.Content), idStyle.Render(n.ID))
	}

	box := "[ ]"
	content := n.Content
	if n.Completed {
		box = "[x]"
		content = doneStyle.Render(content)
	}
	parts := []string{box, content}

	var flags []string
	for _, f := range model.Flags {
		if n.Flag(f) {
			flags = append(flags, string(f))
		}
	}
	if len(flags) > 0 {
		parts = append(parts, flagStyle.Render("+"+strings.Join(flags, " +")))
	}
	if n.RevisitDate != "" {
		parts = append(parts, dateStyle.Render("@"+n.RevisitDate))
	}
	if n.TimeEstimate > 0 {
		parts = append(parts, dateStyle.Render(fmt.Sprintf("~%gh", n.TimeEstimate)))
	}
	parts = append(parts, idStyle.Render(n.ID))
	return strings.Join(parts, " ")
}
