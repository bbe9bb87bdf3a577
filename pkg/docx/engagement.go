package docx

import (
	"regexp"
	"strings"

	"github.com/be4breach/reportd/pkg/types"
)

var (
	clientRe    = regexp.MustCompile(`(?i)Prepared For:\s*(.+)`)
	dateRe      = regexp.MustCompile(`(?i)Report Date:\s*([0-9]{2}-[0-9]{2}-[0-9]{4})`)
	auditTypeRe = regexp.MustCompile(`(?i)Type of Audit[:\s]*([A-Za-z ]+)`)
)

// extractEngagement pulls client, report date, and audit type from the
// body-level paragraph text. Each pattern is independent and optional; a
// report with no matches yields an empty EngagementInfo, never an error.
// Fields the paragraph pass leaves unset fall back to the first table when
// it is a key/value metadata table.
func extractEngagement(body *node, tables []rawTable) types.EngagementInfo {
	texts := make([]string, 0, len(bodyParagraphs(body)))
	for _, p := range bodyParagraphs(body) {
		texts = append(texts, innerText(p))
	}
	text := strings.Join(texts, "\n")

	var eng types.EngagementInfo
	if m := clientRe.FindStringSubmatch(text); m != nil {
		eng.Client = strings.TrimSpace(m[1])
	}
	if m := dateRe.FindStringSubmatch(text); m != nil {
		eng.ReportDate = strings.TrimSpace(m[1])
	}
	if m := auditTypeRe.FindStringSubmatch(text); m != nil {
		eng.AuditType = strings.TrimSpace(m[1])
	}

	if len(tables) > 0 {
		fillFromMetadataTable(&eng, tables[0])
	}
	return eng
}

// fillFromMetadataTable scans the leading table for labeled rows that some
// report templates use instead of free-text paragraphs. Only empty fields
// are filled; the paragraph patterns win.
func fillFromMetadataTable(eng *types.EngagementInfo, t rawTable) {
	for _, row := range t.rows {
		if len(row) < 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(row[0].text))
		val := strings.TrimSpace(row[1].text)
		if val == "" {
			continue
		}
		if strings.Contains(key, "type of audit") && eng.AuditType == "" {
			eng.AuditType = val
		}
		if strings.Contains(key, "effective date") && eng.ReportDate == "" {
			eng.ReportDate = val
		}
		if strings.Contains(key, "document title") && eng.Title == "" {
			eng.Title = val
		}
	}
}
