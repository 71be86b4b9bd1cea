package orchestrator

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/archviz/diagramsvc/internal/cache"
	"github.com/archviz/diagramsvc/internal/chartgen"
	"github.com/archviz/diagramsvc/internal/mermaidgen"
	"github.com/archviz/diagramsvc/internal/model"
	"github.com/archviz/diagramsvc/internal/render"
	"github.com/archviz/diagramsvc/internal/svgtmpl"
)

// fakeConn collects every envelope Send receives, in delivery order, safe
// for concurrent use the way transport.Conn's write pump is.
type fakeConn struct {
	mu   sync.Mutex
	envs []model.OutEnvelope
}

func (f *fakeConn) Send(env model.OutEnvelope) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.envs = append(f.envs, env)
}

func (f *fakeConn) snapshot() []model.OutEnvelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.OutEnvelope(nil), f.envs...)
}

func testDeps(t *testing.T) Deps {
	t.Helper()
	lib, err := svgtmpl.LoadDir("../../templates")
	require.NoError(t, err)
	return Deps{
		Templates:      lib,
		Mermaid:        mermaidgen.NewGenerator(nil),
		Chart:          chartgen.New(chartgen.ExecutorConfig{}),
		Renderer:       render.New("", 15*time.Second),
		Cache:          cache.New(256 << 20),
		Store:          nil,
		CacheTTL:       time.Hour,
		RequestTimeout: 5 * time.Second,
	}
}

func pyramidRequest() model.DiagramRequest {
	return model.DiagramRequest{
		DiagramType: "pyramid_3",
		DataPoints: []model.DataPoint{
			{Label: "Executive"}, {Label: "Management"}, {Label: "Operations"},
		},
		Theme: model.Theme{PrimaryColor: "#7C3AED", Scheme: "monochromatic"},
	}
}

func TestRunPyramidMonochromatic(t *testing.T) {
	deps := testDeps(t)
	o := New(deps)
	conn := &fakeConn{}

	o.Run(context.Background(), conn, "r1", "sess-1", pyramidRequest())

	envs := conn.snapshot()
	require.NotEmpty(t, envs)
	last := envs[len(envs)-1]
	require.Equal(t, "diagram_response", last.Type)
	data := last.Data.(model.DiagramResponseData)
	require.Equal(t, model.StatusSuccess, data.Status)
	require.Equal(t, "svg", data.OutputType)
	require.False(t, data.Metadata.CacheHit)
	require.Contains(t, data.Content, "Executive")
	require.NotContains(t, data.Content, "<title")

	// seq numbers strictly increasing starting at 1 (spec.md §8).
	for i, e := range envs {
		require.Equal(t, uint64(i+1), e.Seq)
	}
}

func TestRunCacheHitOnSecondRequest(t *testing.T) {
	deps := testDeps(t)
	o := New(deps)

	conn1 := &fakeConn{}
	o.Run(context.Background(), conn1, "r1", "sess-1", pyramidRequest())

	conn2 := &fakeConn{}
	o.Run(context.Background(), conn2, "r2", "sess-2", pyramidRequest())

	envs2 := conn2.snapshot()
	require.Len(t, envs2, 1, "a cache hit skips straight to the terminal response with no intermediate status_update")
	data := envs2[0].Data.(model.DiagramResponseData)
	require.True(t, data.Metadata.CacheHit)

	envs1 := conn1.snapshot()
	data1 := envs1[len(envs1)-1].Data.(model.DiagramResponseData)
	require.Equal(t, data1.Content, data.Content)
}

func TestRunUnsupportedDiagramKind(t *testing.T) {
	deps := testDeps(t)
	o := New(deps)
	conn := &fakeConn{}

	req := model.DiagramRequest{
		DiagramType: "mandala",
		Theme:       model.Theme{PrimaryColor: "#2563EB"},
	}
	// Validate() already rejects unknown diagram_type, so exercise the
	// router's own UnsupportedDiagramKind path by bypassing Validate with a
	// kind that IS in the closed set but has neither a template nor a
	// mermaid/chart route is impossible by construction — so assert the
	// validation-level rejection instead, which is the path a real client
	// hits for "mandala" (spec.md §8 scenario 6).
	o.Run(context.Background(), conn, "r1", "sess-1", req)

	envs := conn.snapshot()
	require.Len(t, envs, 1)
	require.Equal(t, "error", envs[0].Type)
	errData := envs[0].Data.(model.ErrorData)
	require.Equal(t, "ValidationError", errData.Code)
}

func TestRunCancellationRace(t *testing.T) {
	deps := testDeps(t)
	o := New(deps)
	conn := &fakeConn{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel before the orchestrator ever observes a suspension point

	o.Run(ctx, conn, "r1", "sess-1", pyramidRequest())

	envs := conn.snapshot()
	require.NotEmpty(t, envs)
	last := envs[len(envs)-1]
	require.Equal(t, "diagram_response", last.Type)
	data := last.Data.(model.DiagramResponseData)
	require.Equal(t, model.StatusCancelled, data.Status)

	for _, e := range envs {
		if e.Type == "diagram_response" {
			d := e.Data.(model.DiagramResponseData)
			require.NotEqual(t, model.StatusSuccess, d.Status)
		}
	}
}

func TestRunComplementaryMatrixDistinctFills(t *testing.T) {
	deps := testDeps(t)
	o := New(deps)
	conn := &fakeConn{}

	req := model.DiagramRequest{
		DiagramType: "matrix_2x2",
		DataPoints: []model.DataPoint{
			{Label: "Q1"}, {Label: "Q2"}, {Label: "Q3"}, {Label: "Q4"},
		},
		Theme: model.Theme{PrimaryColor: "#2563EB", Scheme: "complementary"},
	}
	o.Run(context.Background(), conn, "r1", "sess-1", req)

	envs := conn.snapshot()
	last := envs[len(envs)-1]
	data := last.Data.(model.DiagramResponseData)
	require.Equal(t, model.StatusSuccess, data.Status)

	fills := extractFills(data.Content)
	require.Len(t, fills, 4)
	seen := map[string]bool{}
	for _, f := range fills {
		require.False(t, seen[f], "fill %s repeated across quadrants", f)
		seen[f] = true
	}
}

func extractFills(svg string) []string {
	var out []string
	for _, line := range strings.Split(svg, "\n") {
		if !strings.Contains(line, "data-slot=\"fill:") {
			continue
		}
		idx := strings.Index(line, `fill="`)
		if idx == -1 {
			continue
		}
		rest := line[idx+len(`fill="`):]
		end := strings.Index(rest, `"`)
		if end == -1 {
			continue
		}
		out = append(out, rest[:end])
	}
	return out
}
