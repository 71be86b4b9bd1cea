package mermaidgen

import (
	"fmt"
	"strings"

	"github.com/archviz/diagramsvc/internal/model"
)

const syntaxRulesFlowchart = `flowchart <direction>
    ID["label"]
    ID1 --> ID2
Direction is one of TD, LR, BT, RL. Node ids must be alphanumeric, no spaces.
Edges use --> for a solid arrow, -.-> for a dotted one, ==> for a thick one.`

var examplesFlowchart = []string{
	"flowchart TD\n    A[\"Start\"] --> B[\"Validate input\"]\n    B --> C[\"Process\"]\n    C --> D[\"End\"]",
	"flowchart LR\n    REQ[\"Request\"] --> ROUTE[\"Router\"]\n    ROUTE --> GEN[\"Generator\"]\n    ROUTE --> CACHE[\"Cache\"]\n    GEN --> OUT[\"Response\"]",
	"flowchart TD\n    A[\"Order Received\"] --> B{\"In stock?\"}\n    B -->|yes| C[\"Ship\"]\n    B -->|no| D[\"Backorder\"]",
}

// buildFlowchart chains each data_point into the next, in order, grounded
// on the teacher's generateSequentialDiagram in core/visualization.go.
func buildFlowchart(req model.DiagramRequest) string {
	var b strings.Builder
	b.WriteString("flowchart TD\n")
	if len(req.DataPoints) == 0 {
		b.WriteString("    A[\"" + escapeLabel(req.Content) + "\"]\n")
		return b.String()
	}
	ids := make([]string, len(req.DataPoints))
	for i, dp := range req.DataPoints {
		ids[i] = fmt.Sprintf("N%d", i)
		label := dp.Label
		if label == "" {
			label = dp.Description
		}
		fmt.Fprintf(&b, "    %s[\"%s\"]\n", ids[i], escapeLabel(label))
	}
	for i := 1; i < len(ids); i++ {
		fmt.Fprintf(&b, "    %s --> %s\n", ids[i-1], ids[i])
	}
	return b.String()
}

func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.ReplaceAll(s, "\n", " ")
}
