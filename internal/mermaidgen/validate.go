package mermaidgen

import (
	"fmt"
	"strings"
)

// expectedDeclarations maps each Mermaid kind to the keyword its first
// non-blank DSL line must begin with (spec.md §4.6).
var expectedDeclarations = map[string]string{
	"flowchart": "flowchart",
	"sequence":  "sequenceDiagram",
	"gantt":     "gantt",
	"state":     "stateDiagram",
	"journey":   "journey",
	"mind_map":  "mindmap",
}

// structuralTokens are kind-specific substrings an LLM candidate must
// contain at least one of, as a cheap signal that the body isn't just the
// bare declaration line (spec.md §4.6: "at least one structural token").
var structuralTokens = map[string][]string{
	"flowchart": {"-->", "---", "-.->"},
	"sequence":  {"->>", "-->>", "->", "-x"},
	"gantt":     {"section", ":"},
	"state":     {"-->", "[*]"},
	"journey":   {":"},
	"mind_map":  {"\n"},
}

// validate checks an LLM-produced DSL candidate against spec.md §4.6's two
// rules: the first non-blank line matches the kind's declaration, and the
// body contains at least one structural token.
func validate(kind, dsl string) error {
	decl, ok := expectedDeclarations[kind]
	if !ok {
		return fmt.Errorf("unknown mermaid kind %q", kind)
	}

	lines := strings.Split(dsl, "\n")
	var first string
	for _, l := range lines {
		trimmed := strings.TrimSpace(l)
		if trimmed != "" {
			first = trimmed
			break
		}
	}
	if !strings.HasPrefix(first, decl) {
		return fmt.Errorf("first non-blank line %q does not declare %s", first, decl)
	}

	tokens := structuralTokens[kind]
	found := false
	for _, t := range tokens {
		if strings.Contains(dsl, t) {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("no structural token found for kind %s", kind)
	}
	return nil
}
