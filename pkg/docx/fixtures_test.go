package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Helpers that assemble minimal WordprocessingML documents in memory. Cell
// text with embedded newlines becomes one paragraph per line, matching how
// word processors store multi-paragraph cells.

func wText(s string) string {
	var sb strings.Builder
	xml.EscapeText(&sb, []byte(s))
	return sb.String()
}

func wPara(text string) string {
	return `<w:p><w:r><w:t>` + wText(text) + `</w:t></w:r></w:p>`
}

func wCell(text string) string {
	var sb strings.Builder
	sb.WriteString(`<w:tc>`)
	for _, line := range strings.Split(text, "\n") {
		sb.WriteString(wPara(line))
	}
	sb.WriteString(`</w:tc>`)
	return sb.String()
}

// wCellWithImage is a cell whose paragraph carries an a:blip image reference
// alongside its text.
func wCellWithImage(text, relID string) string {
	return `<w:tc><w:p><w:r><w:t>` + wText(text) + `</w:t></w:r>` +
		`<w:r><w:drawing><a:blip r:embed="` + relID + `"/></w:drawing></w:r></w:p></w:tc>`
}

func wRow(cells ...string) string {
	return `<w:tr>` + strings.Join(cells, "") + `</w:tr>`
}

func wRowOfTexts(texts ...string) string {
	cells := make([]string, len(texts))
	for i, t := range texts {
		cells[i] = wCell(t)
	}
	return wRow(cells...)
}

func wTable(rows ...string) string {
	return `<w:tbl>` + strings.Join(rows, "") + `</w:tbl>`
}

func wDocument(bodyXML string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"` +
		` xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"` +
		` xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">` +
		`<w:body>` + bodyXML + `</w:body></w:document>`
}

type docxFixture struct {
	body  string
	rels  string
	media map[string][]byte
	// omitDocument drops word/document.xml entirely
	omitDocument bool
}

func (fx docxFixture) build(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	writePart := func(name string, data []byte) {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}

	writePart("[Content_Types].xml", []byte(`<?xml version="1.0"?><Types/>`))
	if !fx.omitDocument {
		writePart(documentPart, []byte(wDocument(fx.body)))
	}
	if fx.rels != "" {
		writePart(relsPart, []byte(fx.rels))
	}
	for name, data := range fx.media {
		writePart(name, data)
	}

	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// buildDocx is the common case: a document with the given body and no media.
func buildDocx(t *testing.T, bodyXML string) []byte {
	t.Helper()
	return docxFixture{body: bodyXML}.build(t)
}

// parseBody decodes a fixture body straight to its body node, skipping the
// archive layer for tests that only exercise the tree walk.
func parseBody(t *testing.T, bodyXML string) *node {
	t.Helper()
	root, err := parseDocumentXML([]byte(wDocument(bodyXML)))
	require.NoError(t, err)
	body, err := documentBody(root)
	require.NoError(t, err)
	return body
}

// summaryHeaderRow is a realistic findings-summary header.
func summaryHeaderRow() string {
	return wRowOfTexts("S.No", "Category", "Observation/ Vulnerability", "CWE No.", "CVSS Score", "Severity")
}
