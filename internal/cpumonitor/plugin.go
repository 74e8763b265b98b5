package cpumonitor

import (
	"context"

	"github.com/xypriss/xypriss/internal/plugin"
)

// NewPlugin wraps a Monitor's start/stop into the plugin lifecycle so the
// registry drives it the same way it drives every other subsystem: started
// on onServerStart, torn down on onServerStop.
func NewPlugin(m *Monitor) *plugin.Plugin {
	return &plugin.Plugin{
		ID:             "xypriss.cpumonitor",
		Name:           "CPU Monitor",
		Version:        "1.0.0",
		Classification: plugin.ClassPerformance,
		Priority:       plugin.PriorityLow,
		Hooks: plugin.Hooks{
			OnServerStart: func(ctx context.Context) error {
				m.Start(ctx)
				return nil
			},
			OnServerStop: func(ctx context.Context) error {
				m.Stop()
				return nil
			},
			Execute: func(ctx context.Context, ec *plugin.ExecutionContext) (*plugin.Result, error) {
				return &plugin.Result{Success: true, ShouldContinue: true}, nil
			},
		},
	}
}
