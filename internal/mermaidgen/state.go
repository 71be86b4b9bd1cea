package mermaidgen

import (
	"fmt"
	"strings"

	"github.com/archviz/diagramsvc/internal/model"
)

const syntaxRulesState = `stateDiagram-v2
    [*] --> State1
    State1 --> State2 : event
    State2 --> [*]
[*] marks the initial/final pseudostate. Transitions may carry a ": label".`

var examplesState = []string{
	"stateDiagram-v2\n    [*] --> Idle\n    Idle --> Running : start\n    Running --> Idle : stop\n    Running --> [*]",
	"stateDiagram-v2\n    [*] --> Pending\n    Pending --> Approved : approve\n    Pending --> Rejected : reject\n    Approved --> [*]\n    Rejected --> [*]",
	"stateDiagram-v2\n    [*] --> Draft\n    Draft --> Review : submit\n    Review --> Draft : request changes\n    Review --> Published : accept\n    Published --> [*]",
}

// buildState chains each data_point as a state, transitioning through them
// in order from and back to the [*] pseudostate, using Description as the
// transition label when present.
func buildState(req model.DiagramRequest) string {
	var b strings.Builder
	b.WriteString("stateDiagram-v2\n")
	if len(req.DataPoints) == 0 {
		b.WriteString("    [*] --> State\n    State --> [*]\n")
		return b.String()
	}
	names := make([]string, len(req.DataPoints))
	for i, dp := range req.DataPoints {
		names[i] = sanitizeID(dp.Label)
		if names[i] == "" {
			names[i] = fmt.Sprintf("State%d", i)
		}
	}
	fmt.Fprintf(&b, "    [*] --> %s\n", names[0])
	for i := 1; i < len(names); i++ {
		label := req.DataPoints[i].Description
		if label == "" {
			b.WriteString(fmt.Sprintf("    %s --> %s\n", names[i-1], names[i]))
		} else {
			b.WriteString(fmt.Sprintf("    %s --> %s : %s\n", names[i-1], names[i], escapeLabel(label)))
		}
	}
	fmt.Fprintf(&b, "    %s --> [*]\n", names[len(names)-1])
	return b.String()
}
