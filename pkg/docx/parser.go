// Package docx parses pentest reports in the Office Open XML
// WordprocessingML format into dashboard-ready PentestReport values.
//
// The pipeline is single-pass and strictly forward: archive extraction, XML
// flattening, engagement extraction, two-pass finding correlation, status and
// severity normalization, then aggregation. Structural failures (unreadable
// archive, missing content part or body) surface as *MalformedDocumentError;
// every heuristic miss during extraction is skipped silently, since partial
// extraction from loosely structured documents is the expected outcome.
package docx

import (
	"context"
	"time"

	"github.com/be4breach/reportd/internal/logger"
	"github.com/be4breach/reportd/pkg/types"
)

// Parser converts in-memory .docx payloads into PentestReports. Each Parse
// invocation owns its own accumulation state, so concurrent invocations
// cannot interfere.
type Parser struct {
	logger *logger.Logger
}

func NewParser(log *logger.Logger) *Parser {
	return &Parser{logger: log.WithComponent("docx-parser")}
}

// Parse runs the full pipeline over a binary .docx payload. The returned
// report is an independent, immutable snapshot with no references back into
// the source document.
func (p *Parser) Parse(ctx context.Context, data []byte) (*types.PentestReport, error) {
	start := time.Now()
	ctx, span := p.logger.StartOperation(ctx, "docx.Parse",
		"size_bytes", len(data),
	)
	var err error
	defer func() {
		p.logger.FinishOperation(ctx, span, "docx.Parse", start, err)
	}()

	pkg, err := openPackage(data)
	if err != nil {
		p.logger.LogError(ctx, err, "docx.Parse.open_package")
		return nil, err
	}

	root, err := parseDocumentXML(pkg.document)
	if err != nil {
		p.logger.LogError(ctx, err, "docx.Parse.document_xml",
			"document_bytes", len(pkg.document),
		)
		return nil, err
	}

	body, err := documentBody(root)
	if err != nil {
		p.logger.LogError(ctx, err, "docx.Parse.body")
		return nil, err
	}

	tables := extractTables(body)
	engagement := extractEngagement(body, tables)
	findings := correlateFindings(tables, pkg).list()
	report := buildDashboard(engagement, findings)

	p.logger.WithContext(ctx).Infow("Pentest report parsed",
		"tables", len(tables),
		"total_findings", report.TotalFindings,
		"client", engagement.Client,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return report, nil
}
