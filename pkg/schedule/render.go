package schedule

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	hourStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	blockStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	freeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	titleStyle = lipgloss.NewStyle().Bold(true)
)

// Render draws the day as one row per hour with a cell per step. Titles are
// printed on the row where their task starts.
func Render(tasks []Task) string {
	owner := make([]int, StepsPerDay)
	for i, t := range tasks {
		for step := t.StartIndex; step < t.End() && step < StepsPerDay; step++ {
			owner[step] = i + 1
		}
	}

	stepsPerHour := 60 / StepMinutes
	var b strings.Builder
	for h := 0; h < 24; h++ {
		b.WriteString(hourStyle.Render(fmt.Sprintf("%02d:00", h)))
		b.WriteString(" ")
		for step := h * stepsPerHour; step < (h+1)*stepsPerHour; step++ {
			if owner[step] != 0 {
				b.WriteString(blockStyle.Render("█"))
			} else {
				b.WriteString(freeStyle.Render("·"))
			}
		}
		for _, t := range tasks {
			if t.StartIndex/stepsPerHour == h {
				b.WriteString(" ")
				b.WriteString(titleStyle.Render(t.String()))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
