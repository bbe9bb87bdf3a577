package docx

import (
	"math"
	"sort"
	"strings"

	"github.com/be4breach/reportd/pkg/types"
)

// severityColors is the fixed dashboard palette, keyed by canonical level.
var severityColors = map[types.Severity]string{
	types.SeverityCritical: "hsl(0, 72%, 51%)",
	types.SeverityHigh:     "hsl(25, 95%, 53%)",
	types.SeverityMedium:   "hsl(45, 93%, 47%)",
	types.SeverityLow:      "hsl(0, 0%, 64%)",
	types.SeverityInfo:     "hsl(210, 10%, 70%)",
}

const topFindingsLimit = 5

// buildSummary counts findings per canonical severity level. Findings with
// unrecognized severities stay out of the histogram but remain in the
// findings list and the total.
func buildSummary(findings []types.Finding) map[string]int {
	summary := map[string]int{}
	for _, f := range findings {
		level := types.Severity(strings.ToLower(f.Severity))
		if level.IsCanonical() {
			summary[string(level)]++
		}
	}
	return summary
}

// buildDashboard assembles the final report from the finalized findings and
// engagement metadata. Pure function of its inputs; a report with zero
// findings is a valid result, not an error.
func buildDashboard(engagement types.EngagementInfo, findings []types.Finding) *types.PentestReport {
	summary := buildSummary(findings)

	chart := make([]types.SeverityCount, 0, len(types.SeverityOrder))
	for _, level := range types.SeverityOrder {
		chart = append(chart, types.SeverityCount{
			Name:  titleCase(string(level)),
			Value: summary[string(level)],
			Color: severityColors[level],
		})
	}

	breakdown := statusBreakdown(findings)
	cvss := cvssSummary(findings)

	top := make([]types.Finding, len(findings))
	copy(top, findings)
	sort.SliceStable(top, func(a, b int) bool {
		ra := types.Severity(strings.ToLower(top[a].Severity)).Rank()
		rb := types.Severity(strings.ToLower(top[b].Severity)).Rank()
		if ra != rb {
			return ra < rb
		}
		return scoreOrZero(top[a]) > scoreOrZero(top[b])
	})
	if len(top) > topFindingsLimit {
		top = top[:topFindingsLimit]
	}

	return &types.PentestReport{
		Engagement:      engagement,
		Summary:         summary,
		TotalFindings:   len(findings),
		Findings:        findings,
		SeverityChart:   chart,
		StatusBreakdown: breakdown,
		CVSS:            cvss,
		TopFindings:     top,
	}
}

// statusBreakdown counts normalized statuses in first-seen order. Findings
// with no status at all count as Unknown.
func statusBreakdown(findings []types.Finding) []types.StatusCount {
	counts := map[string]int{}
	var order []string
	for _, f := range findings {
		status := NormalizeStatus(f.Status)
		if _, seen := counts[status]; !seen {
			order = append(order, status)
		}
		counts[status]++
	}

	out := make([]types.StatusCount, 0, len(order))
	for _, status := range order {
		out = append(out, types.StatusCount{Status: status, Count: counts[status]})
	}
	return out
}

// cvssSummary aggregates over findings that carry a numeric score. Nil, not
// zeroes, when no finding has one.
func cvssSummary(findings []types.Finding) *types.CVSSSummary {
	var scores []float64
	for _, f := range findings {
		if f.CVSSScore != nil {
			scores = append(scores, *f.CVSSScore)
		}
	}
	if len(scores) == 0 {
		return nil
	}

	sum, min, max := 0.0, scores[0], scores[0]
	for _, s := range scores {
		sum += s
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}

	return &types.CVSSSummary{
		Average: math.Round(sum/float64(len(scores))*10) / 10,
		Max:     max,
		Min:     min,
		Count:   len(scores),
	}
}

func scoreOrZero(f types.Finding) float64 {
	if f.CVSSScore == nil {
		return 0
	}
	return *f.CVSSScore
}
