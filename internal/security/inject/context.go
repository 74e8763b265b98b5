package inject

import "strings"

// contextualRisk adjusts a base confidence score based on where the match
// sits in the surrounding text: inside a quoted string is higher risk (an
// actual breakout attempt); inside what looks like a comment is lower risk
// (spec.md §4.8's `OR 1=1` example).
func contextualRisk(value string, matchIndex int, base float64) float64 {
	before := value[:matchIndex]

	quoteCount := strings.Count(before, "'") + strings.Count(before, "\"")
	insideQuotes := quoteCount%2 == 1

	trimmedBefore := strings.TrimSpace(before)
	insideComment := strings.HasSuffix(trimmedBefore, "--") || strings.Contains(trimmedBefore, "/*")

	switch {
	case insideQuotes:
		return clamp01(base + 0.2)
	case insideComment:
		return clamp01(base - 0.2)
	default:
		return base
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// truncate caps a matched snippet's length for safe logging/reporting.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
