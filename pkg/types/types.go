package types

import (
	"time"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "informational"
)

// SeverityOrder is the canonical ordering used by the severity chart and
// by top-findings ranking, most severe first.
var SeverityOrder = []Severity{
	SeverityCritical,
	SeverityHigh,
	SeverityMedium,
	SeverityLow,
	SeverityInfo,
}

// Rank returns the position of s in SeverityOrder. Unrecognized or empty
// severities rank after every canonical level.
func (s Severity) Rank() int {
	for i, level := range SeverityOrder {
		if s == level {
			return i
		}
	}
	return len(SeverityOrder)
}

func (s Severity) IsCanonical() bool {
	return s.Rank() < len(SeverityOrder)
}

// Finding is one vulnerability/observation extracted from a pentest report.
// Field names mirror the backend JSON contract consumed by the dashboard,
// so the client-parsed and server-parsed shapes stay interchangeable.
type Finding struct {
	ID              int      `json:"id"`
	Title           string   `json:"title,omitempty"`
	CWE             string   `json:"cwe,omitempty"`
	CVSSScore       *float64 `json:"cvssScore,omitempty"`
	Severity        string   `json:"severity,omitempty"`
	Status          string   `json:"status,omitempty"`
	Description     string   `json:"description,omitempty"`
	Impact          string   `json:"impact,omitempty"`
	AffectedAsset   string   `json:"affectedAsset,omitempty"`
	Recommendations string   `json:"recommendations,omitempty"`
	References      string   `json:"references,omitempty"`
	PoC             string   `json:"poc,omitempty"`
	PoCImages       []string `json:"pocImages,omitempty"`
}

// EngagementInfo is assessment metadata pulled from the report preamble.
// All fields are optional; an empty struct is a valid extraction result.
type EngagementInfo struct {
	Client     string `json:"client,omitempty"`
	ReportDate string `json:"reportDate,omitempty"`
	AuditType  string `json:"auditType,omitempty"`
	Title      string `json:"title,omitempty"`
}

// SeverityCount is one severity chart entry. Every canonical level gets an
// entry even at zero findings.
type SeverityCount struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
	Color string `json:"color"`
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// CVSSSummary aggregates the numeric scores across findings that carry one.
type CVSSSummary struct {
	Average float64 `json:"average"`
	Max     float64 `json:"max"`
	Min     float64 `json:"min"`
	Count   int     `json:"count"`
}

// PentestReport is the immutable output of a single parse invocation and
// the sole surface the dashboard components consume.
type PentestReport struct {
	Engagement      EngagementInfo  `json:"engagement"`
	Summary         map[string]int  `json:"summary"`
	TotalFindings   int             `json:"totalFindings"`
	Findings        []Finding       `json:"findings"`
	SeverityChart   []SeverityCount `json:"severityChart"`
	StatusBreakdown []StatusCount   `json:"statusBreakdown"`
	CVSS            *CVSSSummary    `json:"cvss"`
	TopFindings     []Finding       `json:"topFindings"`
}

// StoredReport is the persistence envelope for a parsed report.
type StoredReport struct {
	ID            string    `json:"id" db:"id"`
	Filename      string    `json:"filename" db:"filename"`
	Client        string    `json:"client,omitempty" db:"client"`
	AuditType     string    `json:"audit_type,omitempty" db:"audit_type"`
	TotalFindings int       `json:"total_findings" db:"total_findings"`
	SizeBytes     int64     `json:"size_bytes" db:"size_bytes"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
