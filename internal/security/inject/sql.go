package inject

import (
	"net/http"
	"regexp"
)

// sqlPattern pairs a named regex with the base confidence it implies,
// following infrastructure/security/sanitize.go's SensitivePattern table
// idiom (ordered, most-specific first).
type sqlPattern struct {
	name       string
	pattern    *regexp.Regexp
	confidence float64
}

var sqlPatterns = []sqlPattern{
	{"union select", regexp.MustCompile(`(?i)\bunion\b\s+(all\s+)?\bselect\b`), 0.9},
	{"tautology", regexp.MustCompile(`(?i)\bor\b\s+['"]?\d+['"]?\s*=\s*['"]?\d+['"]?`), 0.8},
	{"stacked query", regexp.MustCompile(`;\s*(drop|delete|insert|update)\b`), 0.9},
	{"comment terminator", regexp.MustCompile(`--\s|#|/\*`), 0.4},
	{"sleep/benchmark", regexp.MustCompile(`(?i)\b(sleep|benchmark|pg_sleep|waitfor\s+delay)\s*\(`), 0.85},
	{"information_schema", regexp.MustCompile(`(?i)information_schema\.\w+`), 0.7},
	{"boolean injection", regexp.MustCompile(`(?i)\band\b\s+\d+\s*=\s*\d+`), 0.6},
}

// SQLDetector matches SQL-injection signatures in query/body input.
type SQLDetector struct{}

func (SQLDetector) Name() AttackType { return AttackSQL }

func (SQLDetector) Inspect(r *http.Request, in Inputs, cfg DetectorConfig) (*Finding, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if f := scanPattern(sqlPatterns, in.Body, "body", AttackSQL, cfg); f != nil {
		return f, nil
	}
	for key, values := range in.Query {
		for _, v := range values {
			if f := scanPattern(sqlPatterns, v, "query:"+key, AttackSQL, cfg); f != nil {
				return f, nil
			}
		}
	}
	return nil, nil
}
