// Package classify implements the Browser-Only / Terminal-Only / Mobile-Only
// request classifiers: a definitive automation-tool block, a Sec-Fetch fast
// path, and an 8-signal scored fallback (spec.md §4.7).
package classify

import "regexp"

// automationSignature matches a User-Agent against known non-browser HTTP
// clients. Matching any of these blocks immediately with no scoring.
var automationSignature = regexp.MustCompile(`(?i)\b(curl|wget|postman(runtime)?|httpie|python-requests|python-urllib|axios|node-fetch|go-http-client|okhttp|java/|libwww-perl|ruby|scrapy|playwright|puppeteer|selenium|phantomjs|headlesschrome|bot|spider|crawler)\b`)

// minBrowserUALength below this, an otherwise-unmatched UA is still
// suspicious enough to treat as an automation tool (spec: "empty/very-short
// UA heuristics").
const minBrowserUALength = 15

// isAutomationTool reports whether the User-Agent is a definitive
// automation-tool signature or is empty/too short to be a real browser.
func isAutomationTool(userAgent string) (bool, string) {
	if userAgent == "" {
		return true, "empty user-agent"
	}
	if len(userAgent) < minBrowserUALength {
		return true, "user-agent too short to be a browser"
	}
	if automationSignature.MatchString(userAgent) {
		return true, "user-agent matches automation tool signature"
	}
	return false, ""
}

var browserMarker = regexp.MustCompile(`(?i)\b(mozilla|chrome|safari|firefox|edg|opr|webkit|gecko)\b`)

// mobileMarker matches the common mobile-platform UA tokens.
var mobileMarker = regexp.MustCompile(`(?i)\b(android|iphone|ipad|ipod|mobile|windows phone)\b`)
