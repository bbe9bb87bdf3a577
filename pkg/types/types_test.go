package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityRank(t *testing.T) {
	assert.Equal(t, 0, SeverityCritical.Rank())
	assert.Equal(t, 1, SeverityHigh.Rank())
	assert.Equal(t, 4, SeverityInfo.Rank())
	assert.Equal(t, len(SeverityOrder), Severity("urgent").Rank(), "unknown ranks last")
	assert.Equal(t, len(SeverityOrder), Severity("").Rank())
}

func TestSeverityIsCanonical(t *testing.T) {
	assert.True(t, SeverityLow.IsCanonical())
	assert.False(t, Severity("info").IsCanonical(), "short form is not canonical")
	assert.False(t, Severity("Critical").IsCanonical(), "canonical levels are lowercase")
}

func TestPentestReportJSONShape(t *testing.T) {
	report := PentestReport{
		Summary:       map[string]int{},
		TotalFindings: 0,
	}
	data, err := json.Marshal(report)
	require.NoError(t, err)

	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &m))

	// cvss must be present and null when no finding is scored
	raw, ok := m["cvss"]
	require.True(t, ok)
	assert.Equal(t, "null", string(raw))

	assert.Contains(t, m, "totalFindings")
	assert.Contains(t, m, "severityChart")
	assert.Contains(t, m, "statusBreakdown")
}

func TestFindingJSONFieldNames(t *testing.T) {
	score := 7.5
	f := Finding{
		ID:            3,
		CVSSScore:     &score,
		AffectedAsset: "https://example.com",
		PoCImages:     []string{"data:image/png;base64,AA=="},
	}
	data, err := json.Marshal(f)
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, `"cvssScore":7.5`)
	assert.Contains(t, s, `"affectedAsset"`)
	assert.Contains(t, s, `"pocImages"`)
}
