package classify

import (
	"context"

	"github.com/xypriss/xypriss/internal/plugin"
)

// NewPlugin wraps a Policy as the classification-stage plugin, contributing
// its middleware at the "first" bucket so it runs before the router and
// user handler (spec.md's request data flow: Security Chain classifies
// before Router matches).
func NewPlugin(p *Policy) *plugin.Plugin {
	return &plugin.Plugin{
		ID:             "xypriss.security.classify",
		Name:           "Request Classifier",
		Version:        "1.0.0",
		Classification: plugin.ClassSecurity,
		Priority:       plugin.PriorityCritical,
		Hooks: plugin.Hooks{
			Execute: func(ctx context.Context, ec *plugin.ExecutionContext) (*plugin.Result, error) {
				return &plugin.Result{Success: true, ShouldContinue: true}, nil
			},
		},
		Middleware: []plugin.MiddlewareEntry{
			{Priority: plugin.MiddlewareFirst, Middleware: Middleware(p)},
		},
	}
}
