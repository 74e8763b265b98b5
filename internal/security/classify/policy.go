package classify

import (
	"net/http"

	"github.com/xypriss/xypriss/internal/security"
)

// Mode selects which classifier a Policy enforces.
type Mode string

const (
	ModeBrowserOnly  Mode = "browser-only"
	ModeTerminalOnly Mode = "terminal-only"
	ModeMobileOnly   Mode = "mobile-only"
)

// CustomValidator, when set, alone decides pass/block for a request; every
// other rule in this package is bypassed.
type CustomValidator func(r *http.Request) (ok bool, reason string)

// Config controls one Policy instance.
type Config struct {
	Mode            Mode
	Threshold       float64 // scored-path minimum total, default 3
	DebugMode       bool
	CustomValidator CustomValidator
	// TerminalHeader/MobileHeader are the custom headers Terminal-Only and
	// Mobile-Only require in addition to their UA regex (spec.md §4.7:
	// "require mobile UA regexes + custom headers").
	TerminalHeader string
	MobileHeader   string

	// Routes scopes classification to a subset of paths; an empty value
	// classifies every route (spec.md §4.7 "routeConfig").
	Routes security.RouteConfig
}

// DefaultConfig returns browser-only mode with the spec's default threshold.
func DefaultConfig() Config {
	return Config{Mode: ModeBrowserOnly, Threshold: 3, TerminalHeader: "X-XyPriss-Terminal", MobileHeader: "X-XyPriss-Mobile"}
}

// Verdict is the result of classifying one request.
type Verdict struct {
	Allowed     bool
	Reason      string
	Code        string
	Breakdown   Breakdown
	ViaSecFetch bool
}

// Policy evaluates requests against one of the three classifier modes.
type Policy struct {
	cfg Config
}

// New builds a Policy from Config, applying defaults for zero values.
func New(cfg Config) *Policy {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 3
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeBrowserOnly
	}
	return &Policy{cfg: cfg}
}

// Classify runs the configured classifier against r.
func (p *Policy) Classify(r *http.Request) Verdict {
	if p.cfg.CustomValidator != nil {
		ok, reason := p.cfg.CustomValidator(r)
		return Verdict{Allowed: ok, Reason: reason, Code: "CUSTOM_VALIDATOR"}
	}

	switch p.cfg.Mode {
	case ModeTerminalOnly:
		return p.classifyTerminal(r)
	case ModeMobileOnly:
		return p.classifyMobile(r)
	default:
		// The automation-tool block only applies to Browser-Only mode: a
		// terminal or mobile client is expected to look like curl/a mobile
		// app UA, not a browser.
		if blocked, reason := isAutomationTool(r.UserAgent()); blocked {
			return Verdict{Allowed: false, Reason: reason, Code: "AUTOMATION_TOOL_DETECTED"}
		}
		return p.classifyBrowser(r)
	}
}

func (p *Policy) classifyBrowser(r *http.Request) Verdict {
	if pass, present := secFetchFastPath(r); present {
		if pass {
			return Verdict{Allowed: true, ViaSecFetch: true}
		}
		return Verdict{Allowed: false, Reason: "invalid or inconsistent Sec-Fetch headers", Code: "INVALID_SEC_FETCH", ViaSecFetch: true}
	}

	breakdown := score(r)
	if breakdown.Total() < p.cfg.Threshold {
		return Verdict{Allowed: false, Reason: "insufficient browser-authenticity score", Code: "BROWSER_SCORE_BELOW_THRESHOLD", Breakdown: breakdown}
	}
	return Verdict{Allowed: true, Breakdown: breakdown}
}

func (p *Policy) classifyTerminal(r *http.Request) Verdict {
	ua := r.UserAgent()
	if browserMarker.MatchString(ua) {
		return Verdict{Allowed: false, Reason: "browser marker present in terminal-only mode", Code: "BROWSER_MARKER_DETECTED"}
	}
	if p.cfg.TerminalHeader != "" && r.Header.Get(p.cfg.TerminalHeader) == "" {
		return Verdict{Allowed: false, Reason: "missing required terminal client header", Code: "MISSING_TERMINAL_HEADER"}
	}
	return Verdict{Allowed: true}
}

func (p *Policy) classifyMobile(r *http.Request) Verdict {
	ua := r.UserAgent()
	if !mobileMarker.MatchString(ua) {
		return Verdict{Allowed: false, Reason: "user-agent does not match a mobile platform", Code: "NOT_MOBILE_USER_AGENT"}
	}
	if p.cfg.MobileHeader != "" && r.Header.Get(p.cfg.MobileHeader) == "" {
		return Verdict{Allowed: false, Reason: "missing required mobile client header", Code: "MISSING_MOBILE_HEADER"}
	}
	return Verdict{Allowed: true}
}
