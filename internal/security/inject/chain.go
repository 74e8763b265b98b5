package inject

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/xypriss/xypriss/internal/security"
)

// RouteConfig scopes the chain to a subset of routes. A request's path must
// match Include (if non-empty) and must not match Exclude. Entries are
// simple path prefixes, following the router's own route-matching style.
type RouteConfig struct {
	Include []string
	Exclude []string
}

func (rc RouteConfig) allows(path string) bool {
	if len(rc.Include) > 0 {
		matched := false
		for _, prefix := range rc.Include {
			if strings.HasPrefix(path, prefix) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for _, prefix := range rc.Exclude {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return true
}

// Reporter is notified whenever a detector fires, independent of whether
// the request was ultimately blocked. The chain plugin wires this to the
// engine's onSecurityAttack hook dispatch (spec.md §4.8 "Reporting").
type Reporter func(r *http.Request, attackData map[string]interface{})

// Config controls the injection-detection chain as a whole.
type Config struct {
	Routes    RouteConfig
	Detector  DetectorConfig
	DebugMode bool
	Reporter  Reporter
}

// DefaultConfig returns a chain enabled for every route with the default
// per-detector tuning.
func DefaultConfig() Config {
	return Config{Detector: DefaultDetectorConfig()}
}

// Chain runs every registered Detector against a request and blocks on the
// first match whose confidence clears its threshold.
type Chain struct {
	cfg       Config
	detectors []Detector
}

// NewChain builds a Chain with the standard detector set: SQL,
// path-traversal, command, XXE, LDAP (spec.md §4.8).
func NewChain(cfg Config) *Chain {
	return &Chain{
		cfg: cfg,
		detectors: []Detector{
			SQLDetector{},
			PathTraversalDetector{},
			CommandInjectionDetector{},
			XXEDetector{},
			LDAPInjectionDetector{},
		},
	}
}

// Inspect builds Inputs from r (restoring its body so downstream handlers
// still see it) and runs every detector, returning the first Finding.
func (c *Chain) Inspect(r *http.Request) (*Finding, error) {
	var bodyStr string
	if r.Body != nil {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		r.Body = io.NopCloser(bytes.NewReader(raw))
		bodyStr = string(raw)
	}

	in := Inputs{
		Query:   map[string][]string(r.URL.Query()),
		Body:    bodyStr,
		Headers: map[string][]string(r.Header),
	}

	for _, d := range c.detectors {
		finding, err := d.Inspect(r, in, c.cfg.Detector)
		if err != nil {
			return nil, err
		}
		if finding != nil {
			return finding, nil
		}
	}
	return nil, nil
}

// Middleware enforces the chain over every request whose path is in scope
// per Routes. A detected attack is reported via Reporter (if set) whether
// or not BlockOnDetection is true, and blocked with the shared envelope
// when it is.
func (c *Chain) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !c.cfg.Detector.Enabled || !c.cfg.Routes.allows(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			finding, err := c.Inspect(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			if finding == nil {
				next.ServeHTTP(w, r)
				return
			}

			blocked := c.cfg.Detector.BlockOnDetection
			if c.cfg.Reporter != nil {
				c.cfg.Reporter(r, map[string]interface{}{
					"type":       string(finding.Type),
					"severity":   string(finding.Severity),
					"path":       r.URL.Path,
					"ip":         clientIP(r),
					"blocked":    blocked,
					"field":      finding.Field,
					"confidence": finding.Confidence,
				})
			}

			if !blocked {
				next.ServeHTTP(w, r)
				return
			}
			security.WriteBlocked(w, r, http.StatusForbidden, "Request blocked", "inject", string(finding.Type), finding.Reason, c.cfg.DebugMode)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		return host[:idx]
	}
	return host
}
