package inject

import (
	"context"
	"net/http"

	"github.com/xypriss/xypriss/infrastructure/redaction"
	"github.com/xypriss/xypriss/internal/plugin"
)

// NewPlugin wraps a Chain as the injection-detection plugin. WireReporter,
// if an Engine is available by the time the server starts, routes detected
// attacks to every other plugin's onSecurityAttack hook; without it the
// chain still blocks requests, it just doesn't fan the finding out.
func NewPlugin(c *Chain) *plugin.Plugin {
	return &plugin.Plugin{
		ID:             "xypriss.security.inject",
		Name:           "Injection Detector",
		Version:        "1.0.0",
		Classification: plugin.ClassSecurity,
		Priority:       plugin.PriorityCritical,
		Hooks: plugin.Hooks{
			Execute: func(ctx context.Context, ec *plugin.ExecutionContext) (*plugin.Result, error) {
				return &plugin.Result{Success: true, ShouldContinue: true}, nil
			},
		},
		Middleware: []plugin.MiddlewareEntry{
			{Priority: plugin.MiddlewareFirst, Middleware: c.Middleware()},
		},
	}
}

// WireReporter connects a Chain's Reporter to an Engine's onSecurityAttack
// hook dispatch, so every registered plugin observes detected attacks
// regardless of which middleware caught them (spec.md §4.8 "Reporting").
func WireReporter(c *Chain, engine *plugin.Engine) {
	redactor := redaction.NewRedactor(redaction.DefaultConfig())
	c.cfg.Reporter = func(r *http.Request, attackData map[string]interface{}) {
		ec := engine.Acquire(r.Context(), r, nil, plugin.NetworkContext{})
		defer engine.Release(ec)
		engine.RunSecurityAttack(ec, redactor.RedactMap(attackData))
	}
}
