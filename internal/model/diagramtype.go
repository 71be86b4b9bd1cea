package model

import (
	"fmt"
	"regexp"
	"sort"
)

// DiagramKind is the closed set of diagram_type tags from spec.md §3.
var DiagramKind = map[string]bool{
	"flowchart": true, "sequence": true, "gantt": true, "state": true,
	"journey": true, "mind_map": true,
	"matrix_2x2": true, "matrix_3x3": true, "swot": true,
	"pyramid_3": true, "pyramid_4": true, "pyramid_5": true,
	"hub_spoke_4": true, "hub_spoke_6": true,
	"process_flow_3": true, "process_flow_5": true,
	"cycle_3": true, "cycle_4": true, "cycle_5": true,
	"funnel_3": true, "funnel_4": true, "funnel_5": true,
	"venn_2": true, "venn_3": true,
	"honeycomb_3": true, "honeycomb_5": true, "honeycomb_7": true,
	"gears_3": true, "fishbone": true, "timeline": true,
	"roadmap_quarterly_4": true,
	"pie": true, "bar": true, "line": true, "scatter": true,
	"histogram": true, "heatmap": true, "area": true, "waterfall": true,
	"treemap": true,
}

// MermaidKinds are the diagram_type values routed to the Mermaid generator by
// router rule 2 (spec.md §4.3).
var MermaidKinds = map[string]bool{
	"flowchart": true, "sequence": true, "gantt": true,
	"state": true, "journey": true, "mind_map": true,
}

// ChartKinds are the diagram_type values routed to the chart generator by
// router rule 3 (spec.md §4.3).
var ChartKinds = map[string]bool{
	"pie": true, "bar": true, "line": true, "scatter": true,
	"histogram": true, "heatmap": true, "area": true, "waterfall": true,
	"treemap": true,
}

// requiredSlotCount returns the exact data_points cardinality a template-
// backed diagram_type requires, per spec.md §3 and §4.5. Kinds with no fixed
// cardinality (free-form node lists, chart series) return (0, false).
func requiredSlotCount(diagramType string) (int, bool) {
	switch diagramType {
	case "matrix_2x2":
		return 4, true
	case "matrix_3x3":
		return 9, true
	case "swot":
		return 4, true
	case "pyramid_3":
		return 3, true
	case "pyramid_4":
		return 4, true
	case "pyramid_5":
		return 5, true
	case "hub_spoke_4":
		return 4, true
	case "hub_spoke_6":
		return 6, true
	case "process_flow_3":
		return 3, true
	case "process_flow_5":
		return 5, true
	case "cycle_3":
		return 3, true
	case "cycle_4":
		return 4, true
	case "cycle_5":
		return 5, true
	case "funnel_3":
		return 3, true
	case "funnel_4":
		return 4, true
	case "funnel_5":
		return 5, true
	case "venn_2":
		return 2, true
	case "venn_3":
		return 3, true
	case "honeycomb_3":
		return 3, true
	case "honeycomb_5":
		return 5, true
	case "honeycomb_7":
		return 7, true
	case "gears_3":
		return 3, true
	case "roadmap_quarterly_4":
		return 4, true
	default:
		return 0, false
	}
}

// SupportedDiagramKinds returns the closed set of recognized diagram_type
// values, for the service identity endpoint (spec.md §6.2).
func SupportedDiagramKinds() []string {
	kinds := make([]string, 0, len(DiagramKind))
	for k := range DiagramKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

var hexColorRE = regexp.MustCompile(`^#?[0-9a-fA-F]{6}$`)

// ValidHexColor reports whether s is a valid 6-digit hex color, with or
// without a leading '#' (spec.md §3 invariant).
func ValidHexColor(s string) bool {
	return hexColorRE.MatchString(s)
}

// Validate checks the invariants spec.md §3 lists for a DiagramRequest,
// returning a descriptive error on the first violation found.
func (r DiagramRequest) Validate() error {
	if !DiagramKind[r.DiagramType] {
		return fmt.Errorf("unknown diagram_type %q", r.DiagramType)
	}
	if r.Theme.PrimaryColor == "" || !ValidHexColor(r.Theme.PrimaryColor) {
		return fmt.Errorf("invalid primary_color %q", r.Theme.PrimaryColor)
	}
	if r.Theme.SecondaryColor != "" && !ValidHexColor(r.Theme.SecondaryColor) {
		return fmt.Errorf("invalid secondary_color %q", r.Theme.SecondaryColor)
	}
	if r.Theme.AccentColor != "" && !ValidHexColor(r.Theme.AccentColor) {
		return fmt.Errorf("invalid accent_color %q", r.Theme.AccentColor)
	}
	if n, fixed := requiredSlotCount(r.DiagramType); fixed && len(r.DataPoints) != n {
		return fmt.Errorf("diagram_type %q requires exactly %d data_points, got %d", r.DiagramType, n, len(r.DataPoints))
	}
	return nil
}
