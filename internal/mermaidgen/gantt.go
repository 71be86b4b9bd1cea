package mermaidgen

import (
	"fmt"
	"strings"

	"github.com/archviz/diagramsvc/internal/model"
)

const syntaxRulesGantt = `gantt
    title <title>
    dateFormat  X
    section <section name>
    Task name : id, start, duration
Durations are integers followed by "d" (days). Tasks within a section list
one per line; "done"/"active" prefixes mark status.`

var examplesGantt = []string{
	"gantt\n    title Release Plan\n    dateFormat  X\n    section Design\n    Spec : t1, 0, 3d\n    section Build\n    Implement : t2, 3, 5d",
	"gantt\n    title Migration\n    dateFormat  X\n    section Prep\n    Audit : a1, 0, 2d\n    section Cutover\n    Switch traffic : a2, 2, 1d",
	"gantt\n    title Launch\n    dateFormat  X\n    section Marketing\n    Draft copy : m1, 0, 4d\n    section Engineering\n    Feature freeze : e1, 4, 1d",
}

// buildGantt places each data_point as a task, using Value as a duration
// in days (default 1) and Description as its section, grouping consecutive
// data_points that share a section under one "section" line.
func buildGantt(req model.DiagramRequest) string {
	var b strings.Builder
	b.WriteString("gantt\n")
	title := req.Content
	if title == "" {
		title = "Schedule"
	}
	fmt.Fprintf(&b, "    title %s\n    dateFormat  X\n", escapeLabel(title))

	lastSection := ""
	day := 0
	for i, dp := range req.DataPoints {
		section := dp.Description
		if section == "" {
			section = "Tasks"
		}
		if section != lastSection {
			fmt.Fprintf(&b, "    section %s\n", escapeLabel(section))
			lastSection = section
		}
		duration := 1
		if dp.Value != nil && *dp.Value > 0 {
			duration = int(*dp.Value)
		}
		fmt.Fprintf(&b, "    %s : t%d, %d, %dd\n", escapeLabel(dp.Label), i, day, duration)
		day += duration
	}
	if len(req.DataPoints) == 0 {
		b.WriteString("    section Tasks\n    Task : t0, 0, 1d\n")
	}
	return b.String()
}
