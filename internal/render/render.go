// Package render implements the Renderer (spec.md §4.8): turning a
// generator's Artifact into the common RenderedArtifact shape every
// downstream stage (cache, upload, transport) consumes.
//
// The Mermaid path shells out to an external CLI with a bounded wall-clock
// timeout, grounded on the Mermaid CLI invocation pattern in
// WaylonWalker-markata-go's pkg/plugins/mermaid_render.go (cliRenderer),
// adapted from that renderer's temp-file in/out convention to spec.md's
// stdin/stdout contract.
package render

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"github.com/archviz/diagramsvc/internal/logging"
	"github.com/archviz/diagramsvc/internal/model"
)

// Renderer turns generator output into the wire-ready RenderedArtifact
// shape.
type Renderer struct {
	mermaidCLIPath string
	renderLimit    time.Duration
}

func New(mermaidCLIPath string, renderLimit time.Duration) *Renderer {
	return &Renderer{mermaidCLIPath: mermaidCLIPath, renderLimit: renderLimit}
}

// Render dispatches on artifact kind. SvgArtifact and ChartArtifact pass
// through; MermaidArtifact is lifted to SVG by the external CLI.
func (r *Renderer) Render(ctx context.Context, a model.Artifact) (model.RenderedArtifact, error) {
	switch a.Kind {
	case model.ArtifactSvg:
		return model.RenderedArtifact{ContentType: "image/svg+xml", Content: []byte(a.SVG.Body), IsText: true}, nil
	case model.ArtifactChart:
		return model.RenderedArtifact{
			ContentType: string(a.Chart.ContentType),
			Content:     a.Chart.Body,
			IsText:      a.Chart.ContentType == model.ChartPythonCode,
		}, nil
	case model.ArtifactMermaid:
		return r.renderMermaid(ctx, a.Mermaid)
	default:
		return model.RenderedArtifact{}, nil
	}
}

// renderMermaid invokes the external Mermaid CLI once and, if that attempt
// fails for any reason (a timeout kills the process), retries exactly once
// more (spec.md §4.8). If both attempts fail, the
// DSL is returned as-is with RenderedSVG left nil — the documented
// "client renders it" fallback, not an error.
func (r *Renderer) renderMermaid(ctx context.Context, m *model.MermaidArtifact) (model.RenderedArtifact, error) {
	if r.mermaidCLIPath == "" {
		return model.RenderedArtifact{ContentType: "text/vnd.mermaid", Content: []byte(m.DSL), IsText: true}, nil
	}

	for attempt := 0; attempt < 2; attempt++ {
		svg, err := r.runMermaidCLI(ctx, m.DSL)
		if err == nil {
			rendered := string(svg)
			m.RenderedSVG = &rendered
			return model.RenderedArtifact{ContentType: "image/svg+xml", Content: svg, IsText: true}, nil
		}
		logging.Logger().Warn().Int("attempt", attempt+1).Err(err).Msg("mermaid cli render failed")
	}

	return model.RenderedArtifact{ContentType: "text/vnd.mermaid", Content: []byte(m.DSL), IsText: true}, nil
}

func (r *Renderer) runMermaidCLI(ctx context.Context, dsl string) ([]byte, error) {
	runCtx, cancel := context.WithTimeout(ctx, r.renderLimit)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.mermaidCLIPath)
	cmd.Stdin = bytes.NewReader([]byte(dsl))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, err
	}
	return stdout.Bytes(), nil
}
