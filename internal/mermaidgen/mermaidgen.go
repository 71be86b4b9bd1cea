// Package mermaidgen implements the Mermaid Generator (spec.md §4.6):
// producing a Mermaid DSL string for a diagram_type, trying an LLM path
// first when configured and falling through to a deterministic
// template-backed builder.
//
// The builder style (strings.Builder, one WriteString per DSL line, a
// switch over diagram kind) is grounded on the teacher's
// core/visualization.go GenerateMermaidDiagramWithConfig, generalized from
// AgentFlow's composition-graph diagrams to this service's six Mermaid
// kinds.
package mermaidgen

import (
	"context"
	"strings"

	"github.com/archviz/diagramsvc/internal/apperr"
	"github.com/archviz/diagramsvc/internal/logging"
	"github.com/archviz/diagramsvc/internal/model"
)

// templateBuilder renders data_points into Mermaid DSL for one kind,
// positionally, with no I/O (spec.md §4.6, "template path").
type templateBuilder func(req model.DiagramRequest) string

var builders = map[string]templateBuilder{
	"flowchart": buildFlowchart,
	"sequence":  buildSequence,
	"gantt":     buildGantt,
	"state":     buildState,
	"journey":   buildJourney,
	"mind_map":  buildMindMap,
}

// Generator produces Mermaid DSL, trying the LLM path before the template
// path when llmClient is non-nil.
type Generator struct {
	llm *llmClient
}

// NewGenerator builds a Generator. Pass a nil *llmClient (via NewLLMClient
// returning nil when endpoint is unset) to run template-only.
func NewGenerator(llm *llmClient) *Generator {
	return &Generator{llm: llm}
}

// Generate returns a MermaidArtifact for req, or an *apperr.Error with
// CodeGenerator if diagramType isn't one of the six Mermaid kinds. That code
// is retriable, so the orchestrator moves on to the next routed strategy, or
// reports AllStrategiesExhausted when none remains.
func (g *Generator) Generate(ctx context.Context, req model.DiagramRequest) (model.Artifact, error) {
	builder, ok := builders[req.DiagramType]
	if !ok {
		return model.Artifact{}, apperr.New(apperr.CodeGenerator, "unsupported mermaid kind: "+req.DiagramType)
	}

	if g.llm != nil {
		dsl, err := g.llm.complete(ctx, req)
		if err == nil {
			if verr := validate(req.DiagramType, dsl); verr == nil {
				return model.NewMermaidArtifact(dsl), nil
			} else {
				logging.Logger().Debug().Str("diagram_type", req.DiagramType).Err(verr).Msg("llm mermaid output failed validation, falling through to template")
			}
		} else {
			logging.Logger().Debug().Str("diagram_type", req.DiagramType).Err(err).Msg("llm mermaid path failed, falling through to template")
		}
	}

	return model.NewMermaidArtifact(strings.TrimRight(builder(req), "\n")), nil
}
