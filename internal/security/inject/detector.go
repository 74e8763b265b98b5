// Package inject implements the injection detectors of the request
// inspection chain: SQL, path-traversal, command, XXE, and LDAP, each
// sharing one detector contract (spec.md §4.8).
package inject

import "net/http"

// AttackType identifies which detector fired.
type AttackType string

const (
	AttackSQL           AttackType = "sql_injection"
	AttackPathTraversal AttackType = "path_traversal"
	AttackCommandInject AttackType = "command_injection"
	AttackXXE           AttackType = "xxe"
	AttackLDAPInjection AttackType = "ldap_injection"
)

// Severity classifies how dangerous a detected attack is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// DetectorConfig tunes one detector's sensitivity.
type DetectorConfig struct {
	Enabled                bool
	BlockOnDetection       bool
	FalsePositiveThreshold float64 // 0..1, minimum confidence to report
	ContextualAnalysis     bool
	Severity               Severity
}

// DefaultDetectorConfig returns a detector enabled, blocking, with
// contextual analysis on and a mid-range false-positive threshold.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		Enabled:                true,
		BlockOnDetection:       true,
		FalsePositiveThreshold: 0.5,
		ContextualAnalysis:     true,
		Severity:               SeverityHigh,
	}
}

// Finding is what a detector reports when it matches.
type Finding struct {
	Type       AttackType
	Reason     string
	Confidence float64 // 0..1
	Severity   Severity
	Field      string // which input field matched: "query", "body", "header:X", ...
	Value      string // the matched snippet, truncated
}

// Detector inspects a request's body/query/headers and reports whether an
// attack pattern matched. Every detector (SQL, path-traversal, command,
// XXE, LDAP) exposes this same contract.
type Detector interface {
	Name() AttackType
	Inspect(r *http.Request, inputs Inputs, cfg DetectorConfig) (*Finding, error)
}

// Inputs is the pre-extracted set of request fields every detector scans,
// built once per request so each detector doesn't re-read the body.
type Inputs struct {
	Query   map[string][]string
	Body    string
	Headers map[string][]string
}
