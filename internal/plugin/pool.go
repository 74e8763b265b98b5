package plugin

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ContextPool hands out ExecutionContexts for the lifetime of one request
// and reclaims them on finalize, avoiding an allocation per request on the
// hot path (spec.md §3 "Plugin execution context... pooled").
type ContextPool struct {
	pool sync.Pool
}

// NewContextPool builds an empty pool. sync.Pool grows and shrinks on its
// own; no size cap is enforced.
func NewContextPool() *ContextPool {
	return &ContextPool{
		pool: sync.Pool{
			New: func() interface{} {
				return &ExecutionContext{
					Modifications: make(map[string]string),
					Data:          make(map[string]interface{}),
				}
			},
		},
	}
}

// Acquire returns a reset, ready-to-use ExecutionContext for an incoming
// request.
func (p *ContextPool) Acquire(ctx context.Context, r *http.Request, w http.ResponseWriter, net NetworkContext) *ExecutionContext {
	ec := p.pool.Get().(*ExecutionContext)
	ec.Context = ctx
	ec.ID = uuid.New().String()
	ec.Request = r
	ec.Response = w
	ec.Network = net
	now := time.Now()
	ec.AcceptTime = now
	ec.PipelineStartTime = now
	return ec
}

// Release clears ec and returns it to the pool. Callers must not touch ec
// after calling Release.
func (p *ContextPool) Release(ec *ExecutionContext) {
	ec.Reset()
	p.pool.Put(ec)
}
