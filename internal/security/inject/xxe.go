package inject

import (
	"net/http"
	"regexp"
	"strings"
)

var xxePatterns = []sqlPattern{
	{"external entity decl", regexp.MustCompile(`(?i)<!entity\s+\S+\s+(system|public)\s`), 0.9},
	{"doctype with entity", regexp.MustCompile(`(?i)<!doctype[^>]*\[`), 0.6},
	{"file/php wrapper uri", regexp.MustCompile(`(?i)(file|php|expect)://`), 0.7},
}

// XXEDetector matches XML external-entity injection signatures. Only
// inspects the body (and only when it looks like XML) since XXE is a
// document-level attack, not a query-param one.
type XXEDetector struct{}

func (XXEDetector) Name() AttackType { return AttackXXE }

func (XXEDetector) Inspect(r *http.Request, in Inputs, cfg DetectorConfig) (*Finding, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if !looksLikeXML(in.Body) {
		return nil, nil
	}
	return scanPattern(xxePatterns, in.Body, "body", AttackXXE, cfg), nil
}

func looksLikeXML(body string) bool {
	trimmed := strings.TrimSpace(body)
	return strings.HasPrefix(trimmed, "<?xml") || strings.HasPrefix(trimmed, "<!DOCTYPE") || strings.HasPrefix(trimmed, "<")
}
