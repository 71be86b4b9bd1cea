// Package svgtmpl implements the Template Library (spec.md §4.5): loading
// read-only SVG templates from a directory at startup and filling their
// slots to produce a finished SvgArtifact.
//
// Slot discovery walks the parsed tree looking for a documented `data-slot`
// attribute of the form "role:index" (role one of text/fill/stroke), falling
// back to the legacy well-known element id convention "slot-<role>-<index>"
// for templates authored before data-slot existed. Parsing is grounded on
// golang.org/x/net/html (an indirect dependency already in the teacher's
// go.sum) rather than a regex scrape of the SVG source, since html.Parse's
// foreign-content handling walks SVG markup as a real attribute tree.
package svgtmpl

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/archviz/diagramsvc/internal/apperr"
	"github.com/archviz/diagramsvc/internal/model"
	"github.com/archviz/diagramsvc/internal/theme"
)

// Role is the kind of content a slot accepts (spec.md §3).
type Role string

const (
	RoleText   Role = "text"
	RoleFill   Role = "fill"
	RoleStroke Role = "stroke"
)

// slot locates one placeholder element within a parsed template tree.
type slot struct {
	id      string
	role    Role
	index   int
	def     string
	node    *html.Node
}

// Template is one loaded, read-only SVG template (spec.md §3).
type Template struct {
	ID   string
	Kind string

	root *html.Node // the parsed <svg> fragment root

	textSlots   []*slot
	fillSlots   []*slot
	strokeSlots []*slot
}

// TextSlotCount and FillSlotCount report a template's declared arity (e.g.
// matrix_2x2 -> 4 text + 4 fill), used by validate-templates tooling; the
// orchestrator sizes the fill palette by FillSlotCount.
func (t *Template) TextSlotCount() int  { return len(t.textSlots) }
func (t *Template) FillSlotCount() int  { return len(t.fillSlots) }

// Library is the process-wide set of loaded templates, built once at
// startup and read-only thereafter.
type Library struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// LoadDir parses every *.svg file under dir into a Template keyed by its
// base filename (without extension). A malformed template fails the whole
// load, since spec.md §4.5 calls MalformedTemplate "fatal at startup".
func LoadDir(dir string) (*Library, error) {
	lib := &Library{templates: make(map[string]*Template)}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeMalformedTemplate, "read template dir", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".svg") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".svg")
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeMalformedTemplate, "read template "+id, err)
		}
		tmpl, err := parseTemplate(id, data)
		if err != nil {
			return nil, err
		}
		lib.templates[id] = tmpl
	}
	return lib, nil
}

// Has reports whether a template with this id is loaded — used by the
// router's rule 1 ("diagram_type matches an SVG template id exactly").
func (l *Library) Has(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.templates[id]
	return ok
}

// Template returns the loaded template for id, or nil if none is loaded —
// used by validate-templates to report each template's declared slot arity.
func (l *Library) Template(id string) *Template {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.templates[id]
}

// IDs returns the loaded template ids, for validate-templates and the
// health endpoint's template count.
func (l *Library) IDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.templates))
	for id := range l.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Fill renders templateID with labels mapped onto its text slots and
// palette mapped onto its fill/stroke slots, by slot index rather than tree
// order (spec.md §4.5's fix for the duplicate-gray defect). labels shorter
// than the slot count leave the remainder at the template's default; extra
// labels are ignored.
func (l *Library) Fill(templateID string, labels []string, palette []string, smartTheming bool) (model.Artifact, error) {
	l.mu.RLock()
	tmpl, ok := l.templates[templateID]
	l.mu.RUnlock()
	if !ok {
		return model.Artifact{}, apperr.New(apperr.CodeTemplateNotFound, "template not found: "+templateID)
	}
	if len(palette) == 0 {
		return model.Artifact{}, apperr.New(apperr.CodeInvalidSlotCount, "empty palette for template "+templateID)
	}

	doc := cloneNode(tmpl.root)
	idx := indexSlots(doc, tmpl)

	for _, s := range idx.text {
		val := s.def
		if s.index < len(labels) && labels[s.index] != "" {
			val = labels[s.index]
		}
		setText(s.node, val)
		// Per-element text contrast (spec.md §4.4): the text slot shares its
		// index with the sibling quadrant's fill, so the same palette lookup
		// used for that fill also picks the readable foreground for its label.
		setAttr(s.node, "fill", theme.ContrastText(palette[s.index%len(palette)]))
	}
	for _, s := range idx.fill {
		color := palette[s.index%len(palette)]
		setAttr(s.node, "fill", color)
		if smartTheming {
			setAttr(s.node, "stroke", color)
		}
	}
	for _, s := range idx.stroke {
		setAttr(s.node, "stroke", palette[s.index%len(palette)])
	}

	removeTitles(doc)

	var buf bytes.Buffer
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return model.Artifact{}, apperr.Wrap(apperr.CodeRender, "serialize template "+templateID, err)
		}
	}
	return model.NewSvgArtifact(buf.String()), nil
}

// slotIndex is the per-fill view of a cloned tree's slots, re-located by
// walking the clone fresh rather than reusing tmpl's node pointers (which
// belong to the cached original).
type slotIndex struct {
	text, fill, stroke []*slot
}

func indexSlots(doc *html.Node, tmpl *Template) slotIndex {
	var out slotIndex
	walk(doc, func(n *html.Node) {
		role, index, ok := slotAttr(n)
		if !ok {
			return
		}
		s := &slot{role: role, index: index, node: n}
		switch role {
		case RoleText:
			out.text = append(out.text, s)
		case RoleFill:
			out.fill = append(out.fill, s)
		case RoleStroke:
			out.stroke = append(out.stroke, s)
		}
	})
	// Backfill defaults from the original template's parsed slot list, by
	// matching role+index rather than node identity (the clone's nodes are
	// distinct from tmpl's).
	defaults := map[string]string{}
	for _, s := range tmpl.textSlots {
		defaults[s.id] = s.def
	}
	for _, s := range out.text {
		s.def = defaults[slotID(s.role, s.index)]
	}
	sort.Slice(out.text, func(i, j int) bool { return out.text[i].index < out.text[j].index })
	sort.Slice(out.fill, func(i, j int) bool { return out.fill[i].index < out.fill[j].index })
	sort.Slice(out.stroke, func(i, j int) bool { return out.stroke[i].index < out.stroke[j].index })
	return out
}

func slotID(role Role, index int) string {
	return string(role) + ":" + strconv.Itoa(index)
}

// parseTemplate parses one SVG document's bytes, locating every slot by
// data-slot attribute or legacy element id, and recording each slot's
// default content (text) up front.
func parseTemplate(id string, data []byte) (*Template, error) {
	context := &html.Node{
		Type:     html.ElementNode,
		Data:     "svg",
		DataAtom: atom.Svg,
		Namespace: "svg",
	}
	nodes, err := html.ParseFragment(bytes.NewReader(data), context)
	if err != nil || len(nodes) == 0 {
		return nil, apperr.Wrap(apperr.CodeMalformedTemplate, "parse template "+id, err)
	}

	root := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		root.AppendChild(n)
	}

	tmpl := &Template{ID: id, Kind: id, root: root}
	walk(root, func(n *html.Node) {
		role, index, ok := slotAttr(n)
		if !ok {
			return
		}
		s := &slot{id: slotID(role, index), role: role, index: index, node: n}
		if role == RoleText {
			s.def = textContent(n)
		}
		switch role {
		case RoleText:
			tmpl.textSlots = append(tmpl.textSlots, s)
		case RoleFill:
			tmpl.fillSlots = append(tmpl.fillSlots, s)
		case RoleStroke:
			tmpl.strokeSlots = append(tmpl.strokeSlots, s)
		}
	})
	if len(tmpl.textSlots) == 0 && len(tmpl.fillSlots) == 0 {
		return nil, apperr.New(apperr.CodeInvalidSlotCount, "template "+id+" declares no slots")
	}
	sort.Slice(tmpl.textSlots, func(i, j int) bool { return tmpl.textSlots[i].index < tmpl.textSlots[j].index })
	sort.Slice(tmpl.fillSlots, func(i, j int) bool { return tmpl.fillSlots[i].index < tmpl.fillSlots[j].index })
	return tmpl, nil
}

// slotAttr reports the role and index a node's data-slot attribute (or
// legacy id) declares, if any.
func slotAttr(n *html.Node) (Role, int, bool) {
	if n.Type != html.ElementNode {
		return "", 0, false
	}
	for _, a := range n.Attr {
		if a.Key == "data-slot" {
			return parseSlotSpec(a.Val)
		}
	}
	for _, a := range n.Attr {
		if a.Key == "id" && strings.HasPrefix(a.Val, "slot-") {
			return parseSlotSpec(strings.TrimPrefix(a.Val, "slot-"))
		}
	}
	return "", 0, false
}

// parseSlotSpec parses "role-index" or "role:index" into a Role and index.
func parseSlotSpec(spec string) (Role, int, bool) {
	spec = strings.ReplaceAll(spec, "-", ":")
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 {
		return "", 0, false
	}
	role := Role(parts[0])
	if role != RoleText && role != RoleFill && role != RoleStroke {
		return "", 0, false
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, false
	}
	return role, n, true
}

func walk(n *html.Node, visit func(*html.Node)) {
	if n == nil {
		return
	}
	visit(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func textContent(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	})
	return strings.TrimSpace(b.String())
}

func setText(n *html.Node, text string) {
	// Drop existing children and replace with a single text node, matching
	// "replace inner text" rather than appending alongside markup.
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// removeTitles strips every <title> element so filled artifacts never carry
// tooltip text the client didn't ask for (spec.md §4.5's "no titles" rule).
func removeTitles(n *html.Node) {
	var titles []*html.Node
	walk(n, func(c *html.Node) {
		if c.Type == html.ElementNode && c.DataAtom == atom.Title {
			titles = append(titles, c)
		}
	})
	for _, t := range titles {
		if t.Parent != nil {
			t.Parent.RemoveChild(t)
		}
	}
}

// cloneNode deep-copies a tree so Fill never mutates the cached template.
func cloneNode(n *html.Node) *html.Node {
	if n == nil {
		return nil
	}
	clone := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		clone.AppendChild(cloneNode(c))
	}
	return clone
}
