package mermaidgen

import (
	"fmt"
	"strings"

	"github.com/archviz/diagramsvc/internal/model"
)

const syntaxRulesMindMap = `mindmap
  root((topic))
    Child One
    Child Two
      Grandchild
Indentation (two spaces per level) expresses nesting; there is no explicit
edge syntax.`

var examplesMindMap = []string{
	"mindmap\n  root((Project))\n    Scope\n    Timeline\n    Budget",
	"mindmap\n  root((Architecture))\n    Transport\n      WebSocket\n    Storage\n      Cache\n      ObjectStore",
	"mindmap\n  root((Launch))\n    Marketing\n    Engineering\n      Backend\n      Frontend",
}

// buildMindMap places req.Content as the root and each data_point as a
// direct child, with the Description (if present) nested one level under
// its Label as a grandchild.
func buildMindMap(req model.DiagramRequest) string {
	var b strings.Builder
	root := req.Content
	if root == "" {
		root = "Topic"
	}
	fmt.Fprintf(&b, "mindmap\n  root((%s))\n", escapeLabel(root))
	if len(req.DataPoints) == 0 {
		b.WriteString("    Idea\n")
		return b.String()
	}
	for _, dp := range req.DataPoints {
		fmt.Fprintf(&b, "    %s\n", escapeLabel(dp.Label))
		if dp.Description != "" {
			fmt.Fprintf(&b, "      %s\n", escapeLabel(dp.Description))
		}
	}
	return b.String()
}
