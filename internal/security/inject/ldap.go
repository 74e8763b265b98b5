package inject

import (
	"net/http"
	"regexp"
)

var ldapPatterns = []sqlPattern{
	{"filter wildcard injection", regexp.MustCompile(`\)\s*\(\s*[|&]`), 0.85},
	{"always-true filter", regexp.MustCompile(`\(\s*\w+\s*=\s*\*\s*\)`), 0.6},
	{"unescaped special char", regexp.MustCompile(`[()&|!=*\\]{2,}`), 0.4},
}

// LDAPInjectionDetector matches LDAP search-filter injection signatures.
type LDAPInjectionDetector struct{}

func (LDAPInjectionDetector) Name() AttackType { return AttackLDAPInjection }

func (LDAPInjectionDetector) Inspect(r *http.Request, in Inputs, cfg DetectorConfig) (*Finding, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if f := scanPattern(ldapPatterns, in.Body, "body", AttackLDAPInjection, cfg); f != nil {
		return f, nil
	}
	for key, values := range in.Query {
		for _, v := range values {
			if f := scanPattern(ldapPatterns, v, "query:"+key, AttackLDAPInjection, cfg); f != nil {
				return f, nil
			}
		}
	}
	return nil, nil
}
