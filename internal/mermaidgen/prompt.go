package mermaidgen

import (
	"fmt"
	"strings"

	"github.com/archviz/diagramsvc/internal/model"
)

var syntaxRules = map[string]string{
	"flowchart": syntaxRulesFlowchart,
	"sequence":  syntaxRulesSequence,
	"gantt":     syntaxRulesGantt,
	"state":     syntaxRulesState,
	"journey":   syntaxRulesJourney,
	"mind_map":  syntaxRulesMindMap,
}

var examples = map[string][]string{
	"flowchart": examplesFlowchart,
	"sequence":  examplesSequence,
	"gantt":     examplesGantt,
	"state":     examplesState,
	"journey":   examplesJourney,
	"mind_map":  examplesMindMap,
}

// buildPrompt assembles the five parts spec.md §4.6.1 lists for the LLM
// path: (a) diagram_type, (b) content verbatim, (c) extracted
// entities/relations, (d) syntax rules, (e) three worked examples.
func buildPrompt(req model.DiagramRequest) (string, error) {
	rules, ok := syntaxRules[req.DiagramType]
	if !ok {
		return "", fmt.Errorf("no prompt material for mermaid kind %q", req.DiagramType)
	}

	entities, relations := extractEntities(req.Content)

	var b strings.Builder
	fmt.Fprintf(&b, "Produce a Mermaid diagram of type %q for the following content.\n\n", req.DiagramType)
	fmt.Fprintf(&b, "Content:\n%s\n\n", req.Content)

	if len(entities) > 0 {
		fmt.Fprintf(&b, "Extracted entities: %s\n", strings.Join(entities, ", "))
	}
	if len(relations) > 0 {
		b.WriteString("Extracted relations:\n")
		for _, r := range relations {
			fmt.Fprintf(&b, "- %s -> %s\n", r.From, r.To)
		}
	}
	b.WriteString("\nSyntax rules:\n")
	b.WriteString(rules)
	b.WriteString("\n\nWorked examples:\n")
	for i, ex := range examples[req.DiagramType] {
		fmt.Fprintf(&b, "Example %d:\n%s\n\n", i+1, ex)
	}
	b.WriteString("Respond with only the Mermaid DSL, no prose, no code fence.\n")
	return b.String(), nil
}
