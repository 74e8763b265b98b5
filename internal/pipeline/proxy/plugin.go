package proxy

import (
	"context"
	"net/http"

	"github.com/xypriss/xypriss/internal/plugin"
)

// NewPlugin builds the Proxy Plugin record. Unlike most plugins it does not
// contribute middleware: matching routes bypass the user handler entirely
// and are forwarded by Handler (spec.md §3's proxy data-flow note).
func NewPlugin(p *Proxy) *plugin.Plugin {
	return &plugin.Plugin{
		ID:             "xypriss.proxy",
		Name:           "Reverse Proxy Plugin",
		Version:        "1.0.0",
		Classification: plugin.ClassNetwork,
		Priority:       plugin.PriorityHigh,
		Hooks: plugin.Hooks{
			Execute: func(ctx context.Context, ec *plugin.ExecutionContext) (*plugin.Result, error) {
				return &plugin.Result{Success: true, ShouldContinue: true}, nil
			},
		},
	}
}

// Handler adapts Proxy to http.Handler for direct mounting on routes that
// should bypass the router's user handlers entirely.
func (p *Proxy) Handler() http.Handler {
	return http.HandlerFunc(p.ServeHTTP)
}
