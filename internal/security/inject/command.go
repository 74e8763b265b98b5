package inject

import (
	"net/http"
	"regexp"
)

var commandPatterns = []sqlPattern{
	{"shell metachar chain", regexp.MustCompile("[;&|`$]\\s*(ls|cat|rm|wget|curl|nc|bash|sh|powershell|cmd)\\b"), 0.85},
	{"command substitution", regexp.MustCompile("\\$\\([^)]+\\)|`[^`]+`"), 0.75},
	{"path to shell binary", regexp.MustCompile(`(?i)/bin/(ba)?sh\b`), 0.8},
	{"redirection chain", regexp.MustCompile(`>\s*/dev/(null|tcp)`), 0.6},
}

// CommandInjectionDetector matches shell-metacharacter signatures attempting
// to break out into an OS command.
type CommandInjectionDetector struct{}

func (CommandInjectionDetector) Name() AttackType { return AttackCommandInject }

func (CommandInjectionDetector) Inspect(r *http.Request, in Inputs, cfg DetectorConfig) (*Finding, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if f := scanPattern(commandPatterns, in.Body, "body", AttackCommandInject, cfg); f != nil {
		return f, nil
	}
	for key, values := range in.Query {
		for _, v := range values {
			if f := scanPattern(commandPatterns, v, "query:"+key, AttackCommandInject, cfg); f != nil {
				return f, nil
			}
		}
	}
	return nil, nil
}
