package docx

import (
	"strings"
	"unicode"
)

// NormalizeStatus canonicalizes free-text remediation status into the fixed
// dashboard vocabulary. Rules apply in order, case-insensitive substring
// match. Unrecognized non-empty text passes through trimmed, NOT coerced to
// "Unknown" -- only a truly absent status is Unknown. That asymmetry matches
// the rest of the dashboard contract and is deliberate.
func NormalizeStatus(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "Unknown"
	}

	s := strings.ToLower(trimmed)
	switch {
	case strings.Contains(s, "open") && !strings.Contains(s, "closed"):
		return "Open"
	case strings.Contains(s, "progress") || strings.Contains(s, "wip"):
		return "In Progress"
	case strings.Contains(s, "resolved") || strings.Contains(s, "closed") || strings.Contains(s, "fixed"):
		return "Resolved"
	case strings.Contains(s, "accepted"):
		return "Accepted"
	}
	return trimmed
}

// titleCase uppercases the first letter of each alphabetic run and lowercases
// the rest, the way report severities like "CRITICAL" or "critical" are
// displayed as "Critical".
func titleCase(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) && !prevLetter:
			sb.WriteRune(unicode.ToUpper(r))
			prevLetter = true
		case unicode.IsLetter(r):
			sb.WriteRune(unicode.ToLower(r))
		default:
			sb.WriteRune(r)
			prevLetter = false
		}
	}
	return sb.String()
}

// cleanText flattens multi-line cell content into a single line.
func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.TrimSpace(s)
}
