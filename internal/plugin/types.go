// Package plugin implements the Plugin Registry & Engine: dependency-ordered
// plugin execution with per-plugin circuit breakers and a pooled per-request
// execution context.
package plugin

import (
	"context"
	"net"
	"net/http"
	"time"
)

// Classification groups a plugin by the concern it addresses.
type Classification string

const (
	ClassSecurity    Classification = "security"
	ClassPerformance Classification = "performance"
	ClassCache       Classification = "cache"
	ClassNetwork     Classification = "network"
	ClassCustom      Classification = "custom"
)

// Priority controls execution order within a dependency layer: critical
// plugins run before high, high before normal, normal before low.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityNormal   Priority = "normal"
	PriorityLow      Priority = "low"
)

// rank returns a sort weight; lower runs first.
func (p Priority) rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityNormal:
		return 2
	case PriorityLow:
		return 3
	default:
		return 2
	}
}

// MiddlewarePriority buckets a plugin's contributed middleware relative to
// every other plugin's middleware.
type MiddlewarePriority string

const (
	MiddlewareFirst  MiddlewarePriority = "first"
	MiddlewareNormal MiddlewarePriority = "normal"
	MiddlewareLast   MiddlewarePriority = "last"
)

// SecurityContext carries the authentication state computed upstream of the
// plugin chain (by the security chain, §4.7-4.9).
type SecurityContext struct {
	IsAuthenticated bool
	UserID          string
	Roles           []string
	Permissions     []string
}

// NetworkContext carries connection-level facts a plugin may need without
// reaching into the raw net.Conn.
type NetworkContext struct {
	RemoteAddr string
	RemotePort string
	LocalAddr  string
	LocalPort  string
	Encrypted  bool
	Protocol   string
}

// ExecutionContext is the per-request object passed through every plugin
// hook. It is acquired from a sync.Pool when a request enters the pipeline
// and returned on finalize (see pool.go) — fields must be reset by Reset(),
// never left to carry over from a prior request.
type ExecutionContext struct {
	Context context.Context

	// ID is a fresh opaque identifier assigned each time the context is
	// acquired from the pool, usable as a correlation id across plugin logs.
	ID string

	Request  *http.Request
	Response http.ResponseWriter

	Security SecurityContext
	Network  NetworkContext

	AcceptTime        time.Time
	PipelineStartTime time.Time

	// Modifications accumulated by plugins that ran earlier in the chain
	// (response headers to add before the handler writes the body).
	Modifications map[string]string

	// Data is a scratch bag plugins may use to pass values to later hooks
	// within the same request.
	Data map[string]interface{}
}

// Reset clears all fields so the context is safe to hand to the next
// request after being returned to the pool.
func (ec *ExecutionContext) Reset() {
	ec.Context = nil
	ec.ID = ""
	ec.Request = nil
	ec.Response = nil
	ec.Security = SecurityContext{}
	ec.Network = NetworkContext{}
	ec.AcceptTime = time.Time{}
	ec.PipelineStartTime = time.Time{}
	for k := range ec.Modifications {
		delete(ec.Modifications, k)
	}
	for k := range ec.Data {
		delete(ec.Data, k)
	}
}

// RemoteHostPort splits Network.RemoteAddr into host/port, tolerating an
// address with no port (e.g. a unix socket peer).
func (n NetworkContext) RemoteHostPort() (string, string) {
	if n.RemotePort != "" {
		return n.RemoteAddr, n.RemotePort
	}
	host, port, err := net.SplitHostPort(n.RemoteAddr)
	if err != nil {
		return n.RemoteAddr, ""
	}
	return host, port
}

// Result is returned by a plugin's Execute hook.
type Result struct {
	Success        bool
	ExecutionTime  time.Duration
	ShouldContinue bool
	Data           interface{}
	Modifications  map[string]string
	Err            error
}

// MiddlewareEntry pairs an http middleware with the bucket it belongs to.
type MiddlewareEntry struct {
	Priority   MiddlewarePriority
	Middleware func(http.Handler) http.Handler
}

// Hooks is the full lifecycle hook set a plugin may implement. Execute is
// required (Validate rejects a plugin without it); every other hook is
// optional, and a nil hook is simply skipped by the engine.
type Hooks struct {
	OnRegister        func(ctx context.Context) error
	OnServerStart     func(ctx context.Context) error
	OnServerReady     func(ctx context.Context) error
	OnRequest         func(ctx context.Context, ec *ExecutionContext) (*Result, error)
	OnResponse        func(ctx context.Context, ec *ExecutionContext) (*Result, error)
	OnError           func(ctx context.Context, ec *ExecutionContext, err error) (*Result, error)
	OnServerStop      func(ctx context.Context) error
	Execute           func(ctx context.Context, ec *ExecutionContext) (*Result, error)

	// OnSecurityAttack fires when an injection detector or classifier blocks
	// a request, carrying the attack type/severity/path/ip/blocked flag via
	// attackData (spec.md §4.8 "Reporting").
	OnSecurityAttack func(ctx context.Context, ec *ExecutionContext, attackData map[string]interface{})
}

// Plugin is the registry's stored record (spec.md §3 "Plugin record").
type Plugin struct {
	ID      string
	Name    string
	Version string

	Classification   Classification
	Priority         Priority
	Async            bool
	Cacheable        bool
	MaxExecutionTime time.Duration

	Dependencies []string
	Middleware   []MiddlewareEntry
	Hooks        Hooks

	// AllowedHooks restricts which hook names this plugin may register,
	// per the pluginPermissions[{name, allowedHooks[]}] allow-list
	// (spec.md §6). A nil slice means "no restriction".
	AllowedHooks []string
}

// HookName enumerates the hook identifiers used by the permission allow-list.
type HookName string

const (
	HookOnRegister       HookName = "onRegister"
	HookOnServerStart    HookName = "onServerStart"
	HookOnServerReady    HookName = "onServerReady"
	HookOnRequest        HookName = "onRequest"
	HookOnResponse       HookName = "onResponse"
	HookOnError          HookName = "onError"
	HookOnServerStop     HookName = "onServerStop"
	HookOnSecurityAttack HookName = "onSecurityAttack"
)

// Permitted reports whether h may register the given hook.
func (p *Plugin) Permitted(hook HookName) bool {
	if len(p.AllowedHooks) == 0 {
		return true
	}
	for _, allowed := range p.AllowedHooks {
		if allowed == string(hook) {
			return true
		}
	}
	return false
}

// Validate checks the required fields the registry enforces on register().
func (p *Plugin) Validate() error {
	if p.ID == "" {
		return errMissingField("id")
	}
	if p.Name == "" {
		return errMissingField("name")
	}
	if p.Version == "" {
		return errMissingField("version")
	}
	if p.Hooks.Execute == nil {
		return errMissingField("execute")
	}
	return nil
}
