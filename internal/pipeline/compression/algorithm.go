// Package compression implements the Network Pipeline's response
// compression stage: strict allow-list algorithm negotiation, a size
// threshold, and a per-request veto hook (spec.md §4.3).
package compression

import "strings"

// Algorithm identifies a response content-encoding.
type Algorithm string

const (
	Brotli   Algorithm = "br"
	Gzip     Algorithm = "gzip"
	Deflate  Algorithm = "deflate"
	Identity Algorithm = "identity"
)

// priorityOrder is brotli > gzip > deflate, per spec.md §4.3.
var priorityOrder = []Algorithm{Brotli, Gzip, Deflate}

// Negotiate picks the highest-priority algorithm that is both in allowList
// and accepted by the client's Accept-Encoding header. If none match, it
// returns Identity — an algorithm the client accepts but the configured
// allow-list omits must never be chosen, even if it would otherwise win
// priority (spec.md §4.3 invariant, tested explicitly in §8).
func Negotiate(acceptEncoding string, allowList []Algorithm) Algorithm {
	if len(allowList) == 0 {
		return Identity
	}

	allowed := make(map[Algorithm]bool, len(allowList))
	for _, a := range allowList {
		allowed[a] = true
	}

	accepted := parseAcceptEncoding(acceptEncoding)

	for _, candidate := range priorityOrder {
		if allowed[candidate] && accepted[candidate] {
			return candidate
		}
	}
	return Identity
}

// parseAcceptEncoding splits an Accept-Encoding header into a membership
// set, ignoring q-values (the spec's priority order substitutes for
// client-side weighting).
func parseAcceptEncoding(header string) map[Algorithm]bool {
	out := map[Algorithm]bool{}
	for _, token := range strings.Split(header, ",") {
		token = strings.TrimSpace(token)
		if semi := strings.IndexByte(token, ';'); semi >= 0 {
			token = token[:semi]
		}
		token = strings.TrimSpace(token)
		switch Algorithm(token) {
		case Brotli:
			out[Brotli] = true
		case Gzip:
			out[Gzip] = true
		case Deflate:
			out[Deflate] = true
		case "*":
			out[Brotli] = true
			out[Gzip] = true
			out[Deflate] = true
		}
	}
	return out
}
