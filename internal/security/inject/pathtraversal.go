package inject

import (
	"net/http"
	"regexp"
)

var pathTraversalPatterns = []sqlPattern{
	{"dot-dot-slash", regexp.MustCompile(`\.\./|\.\.\\`), 0.8},
	{"encoded dot-dot-slash", regexp.MustCompile(`(?i)%2e%2e(%2f|%5c|/|\\)`), 0.85},
	{"absolute sensitive path", regexp.MustCompile(`(?i)(/etc/passwd|/etc/shadow|win\.ini|boot\.ini|system32)`), 0.9},
	{"null byte", regexp.MustCompile(`%00`), 0.7},
}

// PathTraversalDetector matches directory-traversal signatures in the
// request path, query, and body.
type PathTraversalDetector struct{}

func (PathTraversalDetector) Name() AttackType { return AttackPathTraversal }

func (PathTraversalDetector) Inspect(r *http.Request, in Inputs, cfg DetectorConfig) (*Finding, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if f := scanPattern(pathTraversalPatterns, r.URL.Path, "path", AttackPathTraversal, cfg); f != nil {
		return f, nil
	}
	if f := scanPattern(pathTraversalPatterns, in.Body, "body", AttackPathTraversal, cfg); f != nil {
		return f, nil
	}
	for key, values := range in.Query {
		for _, v := range values {
			if f := scanPattern(pathTraversalPatterns, v, "query:"+key, AttackPathTraversal, cfg); f != nil {
				return f, nil
			}
		}
	}
	return nil, nil
}

// scanPattern is the shared pattern-table scanner every detector, SQL
// included, reuses; contextual risk applies when ContextualAnalysis is set.
func scanPattern(patterns []sqlPattern, value, field string, attack AttackType, cfg DetectorConfig) *Finding {
	for _, p := range patterns {
		loc := p.pattern.FindStringIndex(value)
		if loc == nil {
			continue
		}
		confidence := p.confidence
		if cfg.ContextualAnalysis {
			confidence = contextualRisk(value, loc[0], confidence)
		}
		if confidence < cfg.FalsePositiveThreshold {
			continue
		}
		return &Finding{
			Type:       attack,
			Reason:     "matched " + string(attack) + " signature: " + p.name,
			Confidence: confidence,
			Severity:   cfg.Severity,
			Field:      field,
			Value:      truncate(value[loc[0]:loc[1]], 80),
		}
	}
	return nil
}
