package docx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/be4breach/reportd/internal/config"
	"github.com/be4breach/reportd/internal/logger"
)

func testParser(t *testing.T) *Parser {
	t.Helper()
	log, err := logger.New(config.LoggerConfig{Level: "error", Format: "json"})
	require.NoError(t, err)
	return NewParser(log)
}

// fullReportBody is a realistic report: engagement preamble, a findings
// summary table, and one detail table per finding.
func fullReportBody() string {
	return wPara("Acme Web Application Penetration Test") +
		wPara("Prepared For: Acme Corp") +
		wPara("Report Date: 15-01-2026") +
		wPara("Type of Audit: Web Application") +
		wTable(
			summaryHeaderRow(),
			wRowOfTexts("1.", "Injection", "SQL Injection in login", "CWE-89", "9.8", "CRITICAL"),
			wRowOfTexts("2.", "XSS", "Reflected XSS in search", "CWE-79", "6.1", "medium"),
			wRowOfTexts("Total", "", "", "", "", "2"),
		) +
		wTable(
			wRowOfTexts("1: SQL Injection in login form"),
			wRowOfTexts("Severity", "Critical"),
			wRowOfTexts("Status", "Open"),
			wRowOfTexts("CVSS Score", "9.8 (Critical)"),
			wRowOfTexts("Description", "The login endpoint concatenates user input into SQL."),
			wRowOfTexts("Impact", "Full database compromise."),
			wRowOfTexts("Affected Asset", "https://app.acme.example/login"),
			wRowOfTexts("Recommendations", "Use parameterized queries."),
		) +
		wTable(
			wRowOfTexts("2: Reflected XSS in search"),
			wRowOfTexts("Severity", "Medium"),
			wRowOfTexts("Status", "fixed"),
			wRowOfTexts("Description", ""),
			wRowOfTexts("The q parameter is echoed without encoding."),
		)
}

func TestParseFullReport(t *testing.T) {
	p := testParser(t)
	report, err := p.Parse(context.Background(), buildDocx(t, fullReportBody()))
	require.NoError(t, err)

	assert.Equal(t, "Acme Corp", report.Engagement.Client)
	assert.Equal(t, "15-01-2026", report.Engagement.ReportDate)
	assert.Equal(t, "Web Application", report.Engagement.AuditType)

	require.Equal(t, 2, report.TotalFindings)
	require.Len(t, report.Findings, 2)

	f1 := report.Findings[0]
	assert.Equal(t, 1, f1.ID)
	assert.Equal(t, "SQL Injection in login form", f1.Title, "detail title wins")
	assert.Equal(t, "Critical", f1.Severity)
	assert.Equal(t, "Open", f1.Status)
	require.NotNil(t, f1.CVSSScore)
	assert.Equal(t, 9.8, *f1.CVSSScore)
	assert.Equal(t, "Full database compromise.", f1.Impact)
	assert.Equal(t, "https://app.acme.example/login", f1.AffectedAsset)

	f2 := report.Findings[1]
	assert.Equal(t, 2, f2.ID)
	assert.Equal(t, "The q parameter is echoed without encoding.", f2.Description,
		"empty value cell falls through to the next row")

	assert.Equal(t, 1, report.Summary["critical"])
	assert.Equal(t, 1, report.Summary["medium"])
	require.NotNil(t, report.CVSS)
	assert.Equal(t, 2, report.CVSS.Count)
	assert.Equal(t, 7.9, report.CVSS.Average)
	assert.Equal(t, 9.8, report.CVSS.Max)

	require.NotEmpty(t, report.StatusBreakdown)
	assert.Equal(t, "Open", report.StatusBreakdown[0].Status)
	assert.Equal(t, "Resolved", report.StatusBreakdown[1].Status)

	require.Len(t, report.TopFindings, 2)
	assert.Equal(t, 1, report.TopFindings[0].ID)
}

func TestParseIsIdempotent(t *testing.T) {
	p := testParser(t)
	data := buildDocx(t, fullReportBody())

	first, err := p.Parse(context.Background(), data)
	require.NoError(t, err)
	second, err := p.Parse(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, first, second, "identical input yields identical output, ordering included")
}

func TestParseNoFindings(t *testing.T) {
	p := testParser(t)
	report, err := p.Parse(context.Background(), buildDocx(t, wPara("An empty report.")))
	require.NoError(t, err, "zero findings is a valid result, not an error")
	assert.Equal(t, 0, report.TotalFindings)
	assert.Len(t, report.SeverityChart, 5)
	assert.Nil(t, report.CVSS)
}

func TestParseMalformedInput(t *testing.T) {
	p := testParser(t)

	_, err := p.Parse(context.Background(), []byte("garbage"))
	var mErr *MalformedDocumentError
	require.ErrorAs(t, err, &mErr)

	_, err = p.Parse(context.Background(), docxFixture{omitDocument: true}.build(t))
	require.ErrorAs(t, err, &mErr)
}

func TestParseExtractsPoCImages(t *testing.T) {
	png := []byte{0x89, 0x50, 0x4e, 0x47}
	body := wTable(
		wRowOfTexts("4: Finding with evidence"),
		wRow(wCell("Proof of Concept"), wCellWithImage("See screenshot", "rId10")),
	)
	rels := `<?xml version="1.0"?>
		<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
			<Relationship Id="rId10" Type="image" Target="media/image1.png"/>
		</Relationships>`

	data := docxFixture{
		body:  body,
		rels:  rels,
		media: map[string][]byte{"word/media/image1.png": png},
	}.build(t)

	p := testParser(t)
	report, err := p.Parse(context.Background(), data)
	require.NoError(t, err)
	require.Len(t, report.Findings, 1)

	f := report.Findings[0]
	assert.Equal(t, "See screenshot", f.PoC)
	require.Len(t, f.PoCImages, 1)
	assert.Contains(t, f.PoCImages[0], "data:image/png;base64,")
}
