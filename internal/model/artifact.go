package model

// Artifact is the tagged-variant output of a generator (spec.md §3). Exactly
// one of the embedded pointers is non-nil; Kind reports which.
type Artifact struct {
	Kind    ArtifactKind
	SVG     *SvgArtifact
	Mermaid *MermaidArtifact
	Chart   *ChartArtifact
}

// ArtifactKind distinguishes the three generator output shapes.
type ArtifactKind string

const (
	ArtifactSvg     ArtifactKind = "svg"
	ArtifactMermaid ArtifactKind = "mermaid"
	ArtifactChart   ArtifactKind = "chart"
)

// SvgArtifact is a finished SVG document, e.g. from the Template Library.
type SvgArtifact struct {
	Body string
}

// MermaidArtifact is Mermaid DSL text, optionally already rendered to SVG by
// the Renderer (spec.md §4.8).
type MermaidArtifact struct {
	DSL         string
	RenderedSVG *string
}

// ChartContentType is the closed set of content types a ChartArtifact may
// carry (spec.md §3).
type ChartContentType string

const (
	ChartPNG        ChartContentType = "image/png"
	ChartSVG        ChartContentType = "image/svg+xml"
	ChartPythonCode ChartContentType = "text/x-python"
)

// ChartArtifact is the Chart Generator's output: either an executed raster
// artifact or reproducible source code (spec.md §4.7).
type ChartArtifact struct {
	ContentType ChartContentType
	Body        []byte
	Insights    string // textual summary, populated only in executed mode
}

// RenderedArtifact is the common shape every Renderer outcome produces
// (spec.md §4.8).
type RenderedArtifact struct {
	ContentType string
	Content     []byte
	IsText      bool
}

func NewSvgArtifact(body string) Artifact {
	return Artifact{Kind: ArtifactSvg, SVG: &SvgArtifact{Body: body}}
}

func NewMermaidArtifact(dsl string) Artifact {
	return Artifact{Kind: ArtifactMermaid, Mermaid: &MermaidArtifact{DSL: dsl}}
}

func NewChartArtifact(ct ChartContentType, body []byte, insights string) Artifact {
	return Artifact{Kind: ArtifactChart, Chart: &ChartArtifact{ContentType: ct, Body: body, Insights: insights}}
}
