package router

import (
	"net/http"
	"sort"
)

// HandlerFunc is the XyPriss handler signature: it receives the adapted
// Request/Response rather than the raw net/http types, so unmodified
// Node-HTTP-style handlers port over unchanged (spec.md §4.10).
type HandlerFunc func(*Request, *Response)

type route struct {
	method   string
	pattern  compiledPattern
	handler  HandlerFunc
	order    int
}

// Router compiles path patterns into matchers and dispatches by method.
// Precedence is exact > parameter > wildcard, tie-broken by registration
// order — the stable sort in Handle keys on specificity, so routes of equal
// specificity keep their registration order.
type Router struct {
	routes []route
	next   int

	// NotFound is invoked when no route matches; defaults to a plain 404.
	NotFound HandlerFunc
}

// New builds an empty Router.
func New() *Router {
	return &Router{
		NotFound: func(req *Request, res *Response) {
			res.Status(http.StatusNotFound)
			res.Send("not found")
		},
	}
}

// Handle registers pattern for method. Lower specificity (more exact path
// segments relative to params/wildcards) is preferred at match time.
func (r *Router) Handle(method, pattern string, handler HandlerFunc) {
	r.routes = append(r.routes, route{
		method:  method,
		pattern: compilePattern(pattern),
		handler: handler,
		order:   r.next,
	})
	r.next++
	sort.SliceStable(r.routes, func(i, j int) bool {
		return r.routes[i].pattern.specificity < r.routes[j].pattern.specificity
	})
}

func (r *Router) Get(pattern string, handler HandlerFunc)    { r.Handle(http.MethodGet, pattern, handler) }
func (r *Router) Post(pattern string, handler HandlerFunc)   { r.Handle(http.MethodPost, pattern, handler) }
func (r *Router) Put(pattern string, handler HandlerFunc)    { r.Handle(http.MethodPut, pattern, handler) }
func (r *Router) Delete(pattern string, handler HandlerFunc) { r.Handle(http.MethodDelete, pattern, handler) }
func (r *Router) Patch(pattern string, handler HandlerFunc)  { r.Handle(http.MethodPatch, pattern, handler) }

// Match finds the highest-precedence route whose method and pattern match
// path, returning its handler and the captured parameters.
func (r *Router) Match(method, path string) (HandlerFunc, map[string]string, bool) {
	for _, rt := range r.routes {
		if rt.method != method {
			continue
		}
		if params, ok := rt.pattern.match(path); ok {
			return rt.handler, params, true
		}
	}
	return nil, nil, false
}

// ServeHTTP adapts an incoming net/http request into a Request/Response
// pair and dispatches it through Match, so Router can sit directly behind
// http.Server or be wrapped further by plugin middleware.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	handler, params, ok := r.Match(req.Method, req.URL.Path)
	request := NewRequest(req, params, false)
	response := NewResponse(w)
	if !ok {
		r.NotFound(request, response)
		response.Finalize(nil)
		return
	}
	handler(request, response)
	response.Finalize(nil)
}
