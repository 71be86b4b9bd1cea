package chartgen

import (
	"fmt"
	"strings"

	"github.com/archviz/diagramsvc/internal/apperr"
	"github.com/archviz/diagramsvc/internal/model"
)

// chartBuilder renders req's data_points into a self-contained matplotlib
// script for one chart kind. The {{OUTPUT_PATH}} placeholder is substituted
// by the executor before the script runs; in Code mode it's left as-is
// since the documented contract is "here is reproducible source", not
// "here is a script tied to this server's filesystem".
type chartBuilder func(req model.DiagramRequest, palette []string) string

var chartBuilders = map[string]chartBuilder{
	"pie":       buildPie,
	"bar":       buildBar,
	"line":      buildLine,
	"scatter":   buildScatter,
	"histogram": buildHistogram,
	"heatmap":   buildHeatmap,
	"area":      buildArea,
	"waterfall": buildWaterfall,
	"treemap":   buildTreemap,
}

func buildSource(req model.DiagramRequest, palette []string) (string, error) {
	builder, ok := chartBuilders[req.DiagramType]
	if !ok {
		return "", apperr.New(apperr.CodeGenerator, "unsupported chart kind: "+req.DiagramType)
	}
	return builder(req, palette), nil
}

func labelsAndValues(req model.DiagramRequest) (labels []string, values []float64) {
	for _, dp := range req.DataPoints {
		labels = append(labels, dp.Label)
		v := 0.0
		if dp.Value != nil {
			v = *dp.Value
		}
		values = append(values, v)
	}
	if len(labels) == 0 {
		labels = []string{"A", "B", "C"}
		values = []float64{1, 2, 3}
	}
	return labels, values
}

func pyList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func pyFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func header(title string) string {
	return "import matplotlib\nmatplotlib.use('Agg')\nimport matplotlib.pyplot as plt\n\nfig, ax = plt.subplots()\nax.set_title(" + fmt.Sprintf("%q", title) + ")\n"
}

func footer() string {
	return "\nfig.tight_layout()\nfig.savefig('{{OUTPUT_PATH}}', dpi=150)\n"
}

func buildPie(req model.DiagramRequest, palette []string) string {
	labels, values := labelsAndValues(req)
	return header(req.Content) +
		fmt.Sprintf("ax.pie(%s, labels=%s, colors=%s, autopct='%%1.1f%%%%')\n", pyFloats(values), pyList(labels), pyList(palette)) +
		footer()
}

func buildBar(req model.DiagramRequest, palette []string) string {
	labels, values := labelsAndValues(req)
	return header(req.Content) +
		fmt.Sprintf("ax.bar(%s, %s, color=%s)\n", pyList(labels), pyFloats(values), pyList(palette)) +
		footer()
}

func buildLine(req model.DiagramRequest, palette []string) string {
	labels, values := labelsAndValues(req)
	return header(req.Content) +
		fmt.Sprintf("ax.plot(%s, %s, marker='o', color=(%s[0] if %s else None))\n", pyList(labels), pyFloats(values), pyList(palette), pyList(palette)) +
		footer()
}

func buildScatter(req model.DiagramRequest, palette []string) string {
	_, values := labelsAndValues(req)
	xs := make([]float64, len(values))
	for i := range xs {
		xs[i] = float64(i)
	}
	return header(req.Content) +
		fmt.Sprintf("ax.scatter(%s, %s, color=(%s[0] if %s else None))\n", pyFloats(xs), pyFloats(values), pyList(palette), pyList(palette)) +
		footer()
}

func buildHistogram(req model.DiagramRequest, palette []string) string {
	_, values := labelsAndValues(req)
	return header(req.Content) +
		fmt.Sprintf("ax.hist(%s, color=(%s[0] if %s else None))\n", pyFloats(values), pyList(palette), pyList(palette)) +
		footer()
}

func buildHeatmap(req model.DiagramRequest, palette []string) string {
	_, values := labelsAndValues(req)
	return header(req.Content) +
		fmt.Sprintf("import numpy as np\ndata = np.array(%s).reshape(1, -1)\nax.imshow(data, cmap='viridis')\n", pyFloats(values)) +
		footer()
}

func buildArea(req model.DiagramRequest, palette []string) string {
	labels, values := labelsAndValues(req)
	return header(req.Content) +
		fmt.Sprintf("ax.fill_between(range(len(%s)), %s, color=(%s[0] if %s else None), alpha=0.5)\nax.set_xticks(range(len(%s)))\nax.set_xticklabels(%s)\n", pyList(labels), pyFloats(values), pyList(palette), pyList(palette), pyList(labels), pyList(labels)) +
		footer()
}

func buildWaterfall(req model.DiagramRequest, palette []string) string {
	labels, values := labelsAndValues(req)
	return header(req.Content) +
		fmt.Sprintf(`values = %s
labels = %s
cum = [0]
for v in values[:-1]:
    cum.append(cum[-1] + v)
ax.bar(labels, values, bottom=cum, color=%s)
`, pyFloats(values), pyList(labels), pyList(palette)) +
		footer()
}

func buildTreemap(req model.DiagramRequest, palette []string) string {
	labels, values := labelsAndValues(req)
	return header(req.Content) +
		fmt.Sprintf(`try:
    import squarify
    squarify.plot(sizes=%s, label=%s, color=%s, ax=ax)
    ax.axis('off')
except ImportError:
    ax.bar(%s, %s, color=%s)
`, pyFloats(values), pyList(labels), pyList(palette), pyList(labels), pyFloats(values), pyList(palette)) +
		footer()
}
