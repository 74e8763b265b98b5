package router

import "strings"

// segmentKind classifies one path segment of a compiled pattern.
type segmentKind int

const (
	segExact segmentKind = iota
	segParam
	segWildcard
)

type segment struct {
	kind segmentKind
	text string // literal text for segExact, parameter name for segParam
}

// compiledPattern is a route pattern split into segments, annotated with a
// specificity rank used for precedence (spec.md §4.10 "exact > parameter >
// wildcard"). Lower specificity sorts first within Router.routes.
type compiledPattern struct {
	raw         string
	segments    []segment
	specificity int
}

// compilePattern parses a pattern using the Node-HTTP-flavored syntax named
// in spec.md §4.10: `:name` is a named parameter, a trailing `*` is a
// wildcard capturing the remaining path. Everything else is literal.
func compilePattern(pattern string) compiledPattern {
	trimmed := strings.Trim(pattern, "/")
	var parts []string
	if trimmed != "" {
		parts = strings.Split(trimmed, "/")
	}

	cp := compiledPattern{raw: pattern}
	for _, part := range parts {
		switch {
		case part == "*":
			cp.segments = append(cp.segments, segment{kind: segWildcard})
			cp.specificity += 100
		case strings.HasPrefix(part, ":"):
			cp.segments = append(cp.segments, segment{kind: segParam, text: part[1:]})
			cp.specificity += 10
		default:
			cp.segments = append(cp.segments, segment{kind: segExact, text: part})
			cp.specificity += 1
		}
	}
	return cp
}

// match attempts to match path against the compiled pattern, returning the
// captured named parameters on success.
func (cp compiledPattern) match(path string) (map[string]string, bool) {
	trimmed := strings.Trim(path, "/")
	var parts []string
	if trimmed != "" {
		parts = strings.Split(trimmed, "/")
	}

	params := map[string]string{}
	pi := 0
	for si, seg := range cp.segments {
		if seg.kind == segWildcard {
			params["*"] = strings.Join(parts[pi:], "/")
			return params, true
		}
		if pi >= len(parts) {
			return nil, false
		}
		switch seg.kind {
		case segExact:
			if parts[pi] != seg.text {
				return nil, false
			}
		case segParam:
			params[seg.text] = parts[pi]
		}
		pi++
		if si == len(cp.segments)-1 && pi != len(parts) {
			return nil, false
		}
	}
	if pi != len(parts) {
		return nil, false
	}
	return params, true
}
