package xems

import (
	"context"

	"github.com/xypriss/xypriss/internal/plugin"
)

// NewPlugin wraps a Manager's Middleware as a plugin contributing to the
// "normal" middleware bucket — it runs after classification/injection but
// before the router, per spec.md's request data flow.
func NewPlugin(m *Manager, mwCfg MiddlewareConfig) *plugin.Plugin {
	return &plugin.Plugin{
		ID:             "xypriss.security.xems",
		Name:           "Encrypted Session Store",
		Version:        "1.0.0",
		Classification: plugin.ClassSecurity,
		Priority:       plugin.PriorityHigh,
		Hooks: plugin.Hooks{
			Execute: func(ctx context.Context, ec *plugin.ExecutionContext) (*plugin.Result, error) {
				return &plugin.Result{Success: true, ShouldContinue: true}, nil
			},
		},
		Middleware: []plugin.MiddlewareEntry{
			{Priority: plugin.MiddlewareNormal, Middleware: Middleware(m, mwCfg)},
		},
	}
}
