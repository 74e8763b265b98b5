package classify

import (
	"net/http"
	"net/url"
	"strings"
)

// Breakdown carries the per-signal contribution, surfaced only in debug
// mode so classifier internals never leak to production callers.
type Breakdown map[string]float64

// Total sums every signal's contribution.
func (b Breakdown) Total() float64 {
	var sum float64
	for _, v := range b {
		sum += v
	}
	return sum
}

// score runs the 8-signal scored path (spec.md §4.7) and returns the
// per-signal breakdown. Each signal contributes 0..2 points except
// Connection/Upgrade-Insecure-Requests, capped at 1.5.
func score(r *http.Request) Breakdown {
	b := Breakdown{}
	b["userAgent"] = scoreUserAgent(r.UserAgent())
	b["accept"] = scoreAccept(r.Header.Get("Accept"))
	b["acceptLanguage"] = scoreAcceptLanguage(r.Header.Get("Accept-Language"))
	b["acceptEncoding"] = scoreAcceptEncoding(r.Header.Get("Accept-Encoding"))
	b["originOrReferer"] = scoreOriginReferer(r.Header.Get("Origin"), r.Header.Get("Referer"))
	b["connection"] = scoreConnection(r.Header.Get("Connection"), r.Header.Get("Upgrade-Insecure-Requests"))
	b["cacheControl"] = scoreCacheControl(r.Header.Get("Cache-Control"))
	b["privacy"] = scorePrivacy(r.Header.Get("DNT"), r.Header.Get("Sec-GPC"))
	return b
}

func scoreUserAgent(ua string) float64 {
	if ua == "" {
		return 0
	}
	points := 0.0
	if browserMarker.MatchString(ua) {
		points += 1
	}
	if len(ua) >= minBrowserUALength {
		points += 0.5
	}
	if strings.Contains(ua, "(") && strings.Contains(ua, ")") {
		points += 0.5 // platform/engine parenthetical, e.g. "(Windows NT 10.0; Win64; x64)"
	}
	if points > 2 {
		points = 2
	}
	return points
}

func scoreAccept(accept string) float64 {
	if strings.Contains(accept, "text/html") && strings.Contains(accept, "application/xhtml+xml") {
		return 1
	}
	return 0
}

func scoreAcceptLanguage(acceptLanguage string) float64 {
	if acceptLanguage == "" {
		return 0
	}
	if strings.Contains(acceptLanguage, "q=") || strings.Contains(acceptLanguage, ",") {
		return 1
	}
	return 0
}

func scoreAcceptEncoding(acceptEncoding string) float64 {
	if strings.Contains(acceptEncoding, "br") {
		return 1
	}
	if strings.Contains(acceptEncoding, ",") {
		return 1
	}
	return 0
}

func scoreOriginReferer(origin, referer string) float64 {
	for _, v := range []string{origin, referer} {
		if v == "" {
			continue
		}
		if u, err := url.Parse(v); err == nil && u.Scheme != "" && u.Host != "" {
			return 1
		}
	}
	return 0
}

func scoreConnection(connection, upgradeInsecure string) float64 {
	points := 0.0
	if strings.EqualFold(connection, "keep-alive") {
		points += 1
	}
	if upgradeInsecure == "1" {
		points += 0.5
	}
	if points > 1.5 {
		points = 1.5
	}
	return points
}

func scoreCacheControl(cacheControl string) float64 {
	if cacheControl == "" {
		return 0
	}
	return 1
}

func scorePrivacy(dnt, gpc string) float64 {
	if dnt != "" || gpc != "" {
		return 1
	}
	return 0
}
