package connection

import (
	"context"
	"time"

	"github.com/xypriss/xypriss/internal/plugin"
)

// Options configures the built-in Connection Plugin.
type Options struct {
	Pool      Config
	Timeouts  Timeouts
	AssetRoot string
}

// New builds the Connection Plugin record for registration with the plugin
// engine. It runs as a critical, non-cacheable network plugin: every
// request must be annotated with pool/keep-alive state before later
// plugins (security, router) see it.
func New(opts Options) (*plugin.Plugin, *Pool) {
	pool := NewPool(opts.Pool)

	p := &plugin.Plugin{
		ID:               "xypriss.connection",
		Name:             "Connection Plugin",
		Version:          "1.0.0",
		Classification:   plugin.ClassNetwork,
		Priority:         plugin.PriorityCritical,
		Cacheable:        false,
		MaxExecutionTime: 50 * time.Millisecond,
	}

	p.Hooks.Execute = func(ctx context.Context, ec *plugin.ExecutionContext) (*plugin.Result, error) {
		start := time.Now()
		host, port := ec.Network.RemoteHostPort()
		key := host + ":" + port

		rec, reused := pool.Touch(key)
		_, negotiatedHTTP2 := ec.Request.Header["X-Xypriss-H2"]
		if ec.Request.ProtoMajor == 2 {
			negotiatedHTTP2 = true
		}

		if ec.Response != nil {
			ApplyKeepAlive(ec.Response, opts.Pool, negotiatedHTTP2)
		}

		if ec.Data == nil {
			ec.Data = map[string]interface{}{}
		}
		ec.Data["connection.record"] = rec
		ec.Data["connection.reused"] = reused
		ec.Data["connection.http2"] = negotiatedHTTP2

		return &plugin.Result{
			Success:        true,
			ShouldContinue: true,
			ExecutionTime:  time.Since(start),
		}, nil
	}

	p.Hooks.OnResponse = func(ctx context.Context, ec *plugin.ExecutionContext) (*plugin.Result, error) {
		if opts.AssetRoot == "" || ec.Response == nil || ec.Request == nil {
			return &plugin.Result{Success: true, ShouldContinue: true}, nil
		}
		negotiatedHTTP2, _ := ec.Data["connection.http2"].(bool)
		PushCandidates(ec.Response, ec.Request, opts.AssetRoot, negotiatedHTTP2)
		return &plugin.Result{Success: true, ShouldContinue: true}, nil
	}

	p.Hooks.OnServerStop = func(ctx context.Context) error {
		pool.Stop()
		return nil
	}

	return p, pool
}
