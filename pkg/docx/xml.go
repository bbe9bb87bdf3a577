package docx

import (
	"encoding/xml"
	"strings"
)

// node is a generic element tree for the document part. Matching is done on
// local names only, so producers that emit w:-prefixed elements and producers
// that strip namespaces both resolve through the same queries.
type node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []*node    `xml:",any"`
	Text     string     `xml:",chardata"`
}

func parseDocumentXML(data []byte) (*node, error) {
	root := &node{}
	if err := xml.Unmarshal(data, root); err != nil {
		return nil, malformed("cannot parse document XML", err)
	}
	return root, nil
}

// documentBody locates the body element under the document root. Its absence
// is fatal: without a body there are no paragraphs or tables to walk.
func documentBody(root *node) (*node, error) {
	if body := root.firstDescendant("body"); body != nil {
		return body, nil
	}
	return nil, malformed("document has no body element", nil)
}

func (n *node) is(names ...string) bool {
	for _, name := range names {
		if n.XMLName.Local == name {
			return true
		}
	}
	return false
}

func (n *node) attr(local string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// childrenNamed returns direct children matching any of the given local
// names, in document order.
func (n *node) childrenNamed(names ...string) []*node {
	var out []*node
	for _, c := range n.Children {
		if c.is(names...) {
			out = append(out, c)
		}
	}
	return out
}

// descendants returns all descendants matching any of the given local names,
// preorder, which for WordprocessingML is document (read) order.
func (n *node) descendants(names ...string) []*node {
	var out []*node
	for _, c := range n.Children {
		if c.is(names...) {
			out = append(out, c)
		}
		out = append(out, c.descendants(names...)...)
	}
	return out
}

func (n *node) firstDescendant(names ...string) *node {
	for _, c := range n.Children {
		if c.is(names...) {
			return c
		}
		if found := c.firstDescendant(names...); found != nil {
			return found
		}
	}
	return nil
}

// innerText concatenates the text of every run-text descendant (w:t) in
// document order, trimmed of surrounding whitespace.
func innerText(n *node) string {
	var sb strings.Builder
	collectRunText(n, &sb)
	return strings.TrimSpace(sb.String())
}

func collectRunText(n *node, sb *strings.Builder) {
	for _, c := range n.Children {
		if c.is("t") {
			sb.WriteString(c.Text)
			continue
		}
		collectRunText(c, sb)
	}
}

// tableCell keeps the decoded cell text together with its source element so
// proof-of-concept image extraction can revisit the markup.
type tableCell struct {
	text string
	el   *node
}

// rawTable is the flattened shape of one w:tbl: ordered rows of ordered cell
// texts. Ephemeral; discarded once findings are correlated.
type rawTable struct {
	rows [][]tableCell
}

// cellText mirrors how word processors render a cell: paragraphs joined by
// newlines.
func cellText(tc *node) string {
	paras := tc.childrenNamed("p")
	if len(paras) == 0 {
		return innerText(tc)
	}
	parts := make([]string, 0, len(paras))
	for _, p := range paras {
		parts = append(parts, innerText(p))
	}
	return strings.Join(parts, "\n")
}

// extractTables flattens every table under root in document order. Tables
// without rows and rows that decode to zero cells (spacer rows) are dropped.
func extractTables(root *node) []rawTable {
	var tables []rawTable
	for _, tbl := range root.descendants("tbl") {
		var t rawTable
		for _, tr := range tbl.childrenNamed("tr") {
			var row []tableCell
			for _, tc := range tr.childrenNamed("tc") {
				row = append(row, tableCell{text: cellText(tc), el: tc})
			}
			if len(row) > 0 {
				t.rows = append(t.rows, row)
			}
		}
		if len(t.rows) > 0 {
			tables = append(tables, t)
		}
	}
	return tables
}

// bodyParagraphs returns the body-level paragraphs (not those nested inside
// table cells), matching how the engagement preamble is laid out.
func bodyParagraphs(body *node) []*node {
	return body.childrenNamed("p")
}
