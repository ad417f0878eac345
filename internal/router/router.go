// Package router provides the API's request router: ordered route matching,
// a composable middleware pipeline and the single place where application
// errors are translated into HTTP responses.
//
// Routes are matched in registration order. When two templates both match a
// path (for example "/a/:id" and "/a/fixed"), the one registered first wins.
package router

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// Config holds router dependencies.
type Config struct {
	Logger *slog.Logger
	CORS   CORSConfig
	// RequestID extracts the request ID for log correlation. Optional.
	RequestID func(ctx context.Context) string
}

type route struct {
	method     string
	pattern    *Pattern
	handler    HandlerFunc
	middleware []Middleware
	public     bool
}

// RouteInfo describes a registered route.
type RouteInfo struct {
	Method     string
	Template   string
	Public     bool
	Middleware []string
}

// Router dispatches requests to registered routes. Routes and global
// middleware are set up before serving and must not change afterwards.
type Router struct {
	routes    []*route
	global    []Middleware
	logger    *slog.Logger
	cors      *corsPolicy
	requestID func(ctx context.Context) string
}

// New creates a Router.
func New(cfg Config) *Router {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		logger:    logger,
		cors:      newCORSPolicy(cfg.CORS),
		requestID: cfg.RequestID,
	}
}

// RouteOption customizes a route registered through Get, Post, Put or Delete.
type RouteOption func(*route)

// Public marks a route as public; auth-tagged global middleware is skipped.
func Public() RouteOption {
	return func(r *route) { r.public = true }
}

// With appends route-specific middleware.
func With(mws ...Middleware) RouteOption {
	return func(r *route) { r.middleware = append(r.middleware, mws...) }
}

// Use appends global middleware.
func (rt *Router) Use(mws ...Middleware) {
	rt.global = append(rt.global, mws...)
}

// Register adds a route. It panics if the template is malformed.
// Duplicate (method, template) pairs are kept; the first one wins.
func (rt *Router) Register(method, template string, h HandlerFunc, mws []Middleware, public bool) {
	rt.routes = append(rt.routes, &route{
		method:     strings.ToUpper(method),
		pattern:    MustCompile(template),
		handler:    h,
		middleware: append([]Middleware(nil), mws...),
		public:     public,
	})
}

func (rt *Router) add(method, template string, h HandlerFunc, opts []RouteOption) {
	r := &route{}
	for _, opt := range opts {
		opt(r)
	}
	rt.Register(method, template, h, r.middleware, r.public)
}

// Get registers a GET route.
func (rt *Router) Get(template string, h HandlerFunc, opts ...RouteOption) {
	rt.add(http.MethodGet, template, h, opts)
}

// Post registers a POST route.
func (rt *Router) Post(template string, h HandlerFunc, opts ...RouteOption) {
	rt.add(http.MethodPost, template, h, opts)
}

// Put registers a PUT route.
func (rt *Router) Put(template string, h HandlerFunc, opts ...RouteOption) {
	rt.add(http.MethodPut, template, h, opts)
}

// Delete registers a DELETE route.
func (rt *Router) Delete(template string, h HandlerFunc, opts ...RouteOption) {
	rt.add(http.MethodDelete, template, h, opts)
}

// Group registers the routes built by fn under prefix, with mws prepended
// to each route's own middleware. Relative order is preserved.
func (rt *Router) Group(prefix string, fn func(g *Router), mws ...Middleware) {
	sub := &Router{}
	fn(sub)

	for _, r := range sub.routes {
		combined := make([]Middleware, 0, len(mws)+len(r.middleware))
		combined = append(combined, mws...)
		combined = append(combined, r.middleware...)
		rt.Register(r.method, joinPath(prefix, r.pattern.String()), r.handler, combined, r.public)
	}
}

// Merge appends other's routes under prefix after the existing ones.
// Route middleware and public flags are kept; other's global middleware is not imported.
func (rt *Router) Merge(other *Router, prefix string) {
	for _, r := range other.routes {
		rt.Register(r.method, joinPath(prefix, r.pattern.String()), r.handler, r.middleware, r.public)
	}
}

// Routes lists registered routes in match order.
func (rt *Router) Routes() []RouteInfo {
	infos := make([]RouteInfo, 0, len(rt.routes))
	for _, r := range rt.routes {
		names := make([]string, 0, len(r.middleware))
		for _, mw := range r.middleware {
			names = append(names, mw.Name)
		}
		infos = append(infos, RouteInfo{
			Method:     r.method,
			Template:   r.pattern.String(),
			Public:     r.public,
			Middleware: names,
		})
	}
	return infos
}

// effective returns the middleware chain for r.
func (rt *Router) effective(r *route) []Middleware {
	if r.public {
		mws := make([]Middleware, 0, len(rt.global))
		for _, mw := range rt.global {
			if !mw.Auth {
				mws = append(mws, mw)
			}
		}
		return mws
	}

	mws := make([]Middleware, 0, len(rt.global)+len(r.middleware))
	mws = append(mws, rt.global...)
	return append(mws, r.middleware...)
}

// ServeHTTP dispatches a request.
func (rt *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	origin := req.Header.Get("Origin")

	// Preflight bypasses routing and all middleware.
	if req.Method == http.MethodOptions {
		rt.cors.apply(w.Header(), origin, true)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	rt.cors.apply(w.Header(), origin, false)

	var allowed []string
	for _, r := range rt.routes {
		params, ok := r.pattern.Match(req.URL.Path)
		if !ok {
			continue
		}
		if r.method != req.Method {
			allowed = appendUnique(allowed, r.method)
			continue
		}

		c := newContext(req, params)
		result, err := Compose(rt.effective(r), r.handler)(c)
		if err != nil {
			rt.writeError(w, c.Request, err)
			return
		}
		rt.writeResult(w, c.Request, result)
		return
	}

	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
		rt.writeError(w, req, errMethodNotAllowed)
		return
	}

	rt.writeError(w, req, errNotFound)
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
