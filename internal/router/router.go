// Package router implements the unified Playbook (spec.md §4.3): a pure,
// I/O-free function from a diagram request to an ordered fallback chain of
// (strategy, confidence) attempts.
package router

import (
	"github.com/archviz/diagramsvc/internal/apperr"
	"github.com/archviz/diagramsvc/internal/model"
)

// Strategy is one generation approach a Step names.
type Strategy string

const (
	StrategySvgTemplate Strategy = "svg_template"
	StrategyMermaid      Strategy = "mermaid"
	StrategyChart        Strategy = "chart"
)

// Step is one entry in a route: a strategy and the router's confidence that
// it will succeed without falling through.
type Step struct {
	Strategy   Strategy
	Confidence float64
}

// TemplateChecker reports whether a template exists for a given id — the
// router consults this for rule 1 (exact template match) and rule 2's
// mermaid fallback, but performs no I/O itself; the caller supplies a
// pre-loaded, in-memory check.
type TemplateChecker interface {
	Has(id string) bool
}

// Route returns the ordered fallback chain for diagramType (spec.md §4.3's
// four rules, evaluated in order). content and dataPoints are accepted for
// interface symmetry with spec.md's signature but unused by these rules —
// selection depends only on diagramType and which templates are loaded.
func Route(diagramType, content string, dataPoints []model.DataPoint, templates TemplateChecker) ([]Step, error) {
	if templates != nil && templates.Has(diagramType) {
		chain := []Step{{Strategy: StrategySvgTemplate, Confidence: 0.95}}
		chain = append(chain, Step{Strategy: StrategyMermaid, Confidence: 0.4})
		return chain, nil
	}
	if model.MermaidKinds[diagramType] {
		// Rule 1 already returned above if a template matched diagramType
		// exactly, so reaching here means no compatible template exists:
		// mermaid has no fallback (spec.md §4.3 rule 2).
		return []Step{{Strategy: StrategyMermaid, Confidence: 0.8}}, nil
	}
	if model.ChartKinds[diagramType] {
		return []Step{{Strategy: StrategyChart, Confidence: 0.9}}, nil
	}
	return nil, apperr.New(apperr.CodeUnsupportedDiagramKind, "no route for diagram_type "+diagramType)
}
