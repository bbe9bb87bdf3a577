package docx

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/be4breach/reportd/pkg/types"
)

var (
	nonDigitRe   = regexp.MustCompile(`\D`)
	floatRe      = regexp.MustCompile(`\d+(?:\.\d+)?`)
	// prefix match: a head cell may carry trailing paragraphs after the
	// "<id>: <title>" line; the title is the remainder of that first line
	detailHeadRe = regexp.MustCompile(`^(\d+):\s*(.+)`)
)

// firstFloat extracts the first floating-point number embedded anywhere in
// the cell, so "7.5 (High)" yields 7.5.
func firstFloat(s string) (float64, bool) {
	m := floatRe.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Label predicates for the detail-table dispatch. Each rule is a named
// function so it can be exercised independently of the table walk.

func isSeverityLabel(key string) bool { return strings.Contains(key, "severity") }
func isStatusLabel(key string) bool   { return key == "status" }
func isCWELabel(key string) bool {
	return strings.Contains(key, "cve") || strings.Contains(key, "cwe")
}
func isCVSSLabel(key string) bool { return strings.Contains(key, "cvss") }

// longTextTarget maps a detail-table label to the narrative field it fills,
// or nil when the label is not a long-text rule.
func longTextTarget(key string, f *types.Finding) *string {
	switch {
	case strings.Contains(key, "description"):
		return &f.Description
	case strings.HasPrefix(key, "impact"):
		return &f.Impact
	case strings.Contains(key, "affected asset"):
		return &f.AffectedAsset
	case strings.Contains(key, "recommendation"):
		return &f.Recommendations
	case strings.Contains(key, "reference"):
		return &f.References
	}
	return nil
}

func isPoCLabel(key string) bool { return strings.Contains(key, "proof of concept") }

// isSummaryHeader reports whether a header row belongs to the findings
// summary table: some cell must mention both "observation" and
// "vulnerability" (covering the combined "Observation/ Vulnerability" token).
func isSummaryHeader(row []tableCell) bool {
	for _, cell := range row {
		h := strings.ToLower(cell.text)
		if strings.Contains(h, "observation") && strings.Contains(h, "vulnerability") {
			return true
		}
	}
	return false
}

// findingSet accumulates findings keyed by numeric id across both passes.
// First-seen order is tracked explicitly so the output is deterministic and
// parse-twice idempotence holds.
type findingSet struct {
	byID  map[int]*types.Finding
	order []int
}

func newFindingSet() *findingSet {
	return &findingSet{byID: map[int]*types.Finding{}}
}

// get returns the finding for id, creating it on first sighting. Later
// passes merge into the same record; an id is never duplicated.
func (s *findingSet) get(id int) *types.Finding {
	if f, ok := s.byID[id]; ok {
		return f
	}
	f := &types.Finding{ID: id}
	s.byID[id] = f
	s.order = append(s.order, id)
	return f
}

func (s *findingSet) list() []types.Finding {
	out := make([]types.Finding, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.byID[id])
	}
	return out
}

// correlateFindings merges the two table shapes pentest reports carry -- one
// summary table enumerating every finding in brief, and one detail table per
// finding with label/value rows -- into a single finding per id.
func correlateFindings(tables []rawTable, pkg *docPackage) *findingSet {
	set := newFindingSet()
	parseSummaryTable(tables, set)
	parseDetailTables(tables, set, pkg)
	return set
}

// parseSummaryTable scans for the first table whose header matches the
// summary heuristic and populates title, CWE, CVSS and severity from its
// rows. No summary table is not an error; detail tables still stand alone.
func parseSummaryTable(tables []rawTable, set *findingSet) {
	for _, t := range tables {
		if !isSummaryHeader(t.rows[0]) {
			continue
		}
		for _, row := range t.rows[1:] {
			if len(row) < 6 {
				continue
			}
			digits := nonDigitRe.ReplaceAllString(row[0].text, "")
			id, err := strconv.Atoi(digits)
			if err != nil {
				continue
			}
			f := set.get(id)
			if v := cleanText(row[2].text); v != "" {
				f.Title = v
			}
			if v := cleanText(row[3].text); v != "" {
				f.CWE = v
			}
			if score, ok := firstFloat(row[4].text); ok {
				f.CVSSScore = &score
			}
			if v := strings.TrimSpace(row[5].text); v != "" {
				f.Severity = titleCase(v)
			}
		}
		// only the first summary table counts
		break
	}
}

// parseDetailTables walks every table whose first cell matches "<id>: <title>"
// and merges its label/value rows into the finding. Detail fields win over
// summary fields except CVSS, which keeps the maximum score seen anywhere.
func parseDetailTables(tables []rawTable, set *findingSet, pkg *docPackage) {
	for _, t := range tables {
		m := detailHeadRe.FindStringSubmatch(t.rows[0][0].text)
		if m == nil {
			continue
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		f := set.get(id)
		if title := cleanText(m[2]); title != "" {
			f.Title = title
		}
		parseDetailRows(t.rows, f, pkg)
	}
}

func parseDetailRows(rows [][]tableCell, f *types.Finding, pkg *docPackage) {
	skipNext := false
	for i := 1; i < len(rows); i++ {
		if skipNext {
			skipNext = false
			continue
		}
		row := rows[i]
		if len(row) < 2 {
			continue
		}

		keyRaw := strings.TrimSpace(row[0].text)
		key := strings.ToLower(keyRaw)
		val := cleanText(row[1].text)

		// Single-row lookahead for long-form fields whose value lands on
		// the following row. The only guard is against re-reading the same
		// label; an unrelated label row following an empty value cell WILL
		// be consumed as content. Known heuristic weakness, kept as-is.
		nextRowText := func() string {
			if i+1 >= len(rows) {
				return ""
			}
			content := rowContent(rows[i+1])
			if content != "" && !strings.EqualFold(content, keyRaw) {
				return content
			}
			return ""
		}

		switch {
		case isSeverityLabel(key):
			f.Severity = titleCase(val)
		case isStatusLabel(key):
			f.Status = titleCase(val)
		case isCWELabel(key):
			f.CWE = val
		case isCVSSLabel(key):
			if score, ok := firstFloat(val); ok {
				if f.CVSSScore == nil || score > *f.CVSSScore {
					f.CVSSScore = &score
				}
			}
		case isPoCLabel(key):
			content := val
			if content == "" {
				if nxt := nextRowText(); nxt != "" {
					content = nxt
					skipNext = true
				}
			}
			f.PoC = content
			collectPoCImages(f, row, rows, i, skipNext, pkg)
		default:
			target := longTextTarget(key, f)
			if target == nil {
				continue
			}
			content := val
			if content == "" {
				if nxt := nextRowText(); nxt != "" {
					content = nxt
					skipNext = true
				}
			}
			*target = content
		}
	}
}

// rowContent is the lookahead view of a row: the first cell's text, or the
// second cell's when the first is blank.
func rowContent(row []tableCell) string {
	first := cleanText(row[0].text)
	if first != "" {
		return first
	}
	if len(row) > 1 {
		return cleanText(row[1].text)
	}
	return ""
}

// collectPoCImages gathers embedded images from the proof-of-concept value
// cell, and from the lookahead row when that row supplied the text.
func collectPoCImages(f *types.Finding, row []tableCell, rows [][]tableCell, i int, usedNext bool, pkg *docPackage) {
	if pkg == nil {
		return
	}
	images := cellImages(row[1].el, pkg)
	if usedNext && i+1 < len(rows) && len(rows[i+1]) > 1 {
		images = append(images, cellImages(rows[i+1][1].el, pkg)...)
	}
	for _, uri := range images {
		if !containsString(f.PoCImages, uri) {
			f.PoCImages = append(f.PoCImages, uri)
		}
	}
}

// cellImages resolves every a:blip reference under a cell to a data: URI.
func cellImages(cell *node, pkg *docPackage) []string {
	var out []string
	for _, blip := range cell.descendants("blip") {
		relID := blip.attr("embed")
		if relID == "" {
			continue
		}
		if uri := pkg.imageDataURI(relID); uri != "" {
			out = append(out, uri)
		}
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
