package core

import (
	"context"
	"errors"

	"github.com/be4breach/reportd/pkg/types"
)

// ErrReportNotFound is returned by ReportStore.GetReport for an unknown id.
var ErrReportNotFound = errors.New("report not found")

// ReportParser turns a binary .docx payload into a dashboard-ready report.
type ReportParser interface {
	Parse(ctx context.Context, data []byte) (*types.PentestReport, error)
}

// ReportStore persists parsed reports together with their envelope metadata.
type ReportStore interface {
	SaveReport(ctx context.Context, meta *types.StoredReport, report *types.PentestReport) error
	GetReport(ctx context.Context, id string) (*types.StoredReport, *types.PentestReport, error)
	ListReports(ctx context.Context, filter ReportFilter) ([]*types.StoredReport, error)
	Close() error
}

type ReportFilter struct {
	Client    string
	AuditType string
	Limit     int
	Offset    int
}

// ReportCache short-circuits re-parsing of identical uploads. Get returns
// (nil, nil) on a miss.
type ReportCache interface {
	Key(data []byte) string
	Get(ctx context.Context, key string) (*types.PentestReport, error)
	Set(ctx context.Context, key string, report *types.PentestReport) error
	Close() error
}

// Telemetry records parse-level metrics.
type Telemetry interface {
	RecordParse(duration float64, success bool)
	RecordFindings(report *types.PentestReport)
	Close() error
}
