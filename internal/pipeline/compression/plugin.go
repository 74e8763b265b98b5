package compression

import (
	"context"

	"github.com/xypriss/xypriss/internal/plugin"
)

// New builds the Compression Plugin record. Its middleware runs last in
// the response chain so it sees the final, fully-written body (spec.md
// §3's "Response Plugins (compression/headers) → Finalize" ordering).
func New(cfg Config) *plugin.Plugin {
	return &plugin.Plugin{
		ID:             "xypriss.compression",
		Name:           "Compression Plugin",
		Version:        "1.0.0",
		Classification: plugin.ClassPerformance,
		Priority:       plugin.PriorityNormal,
		Cacheable:      false,
		Middleware: []plugin.MiddlewareEntry{
			{Priority: plugin.MiddlewareLast, Middleware: Middleware(cfg)},
		},
		Hooks: plugin.Hooks{
			Execute: func(ctx context.Context, ec *plugin.ExecutionContext) (*plugin.Result, error) {
				return &plugin.Result{Success: true, ShouldContinue: true}, nil
			},
		},
	}
}
