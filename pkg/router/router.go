// Package router wraps chi with named routes and prefix groups. Naming a
// route lets the CLI list it (route:list) and lets code reverse-resolve a
// path from its name.
package router

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

type Middleware func(http.Handler) http.Handler

// RouteInfo describes one named route for listings.
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

type binding struct {
	method string
	path   string
}

type Router struct {
	mux   chi.Router
	mu    sync.RWMutex
	named map[string]binding
}

func New() *Router {
	return &Router{
		mux:   chi.NewRouter(),
		named: make(map[string]binding),
	}
}

func (r *Router) Handler() http.Handler { return r.mux }

func (r *Router) Use(middlewares ...Middleware) {
	for _, mw := range middlewares {
		r.mux.Use(mw)
	}
}

// register is the single mount point both Router and Group funnel through.
func (r *Router) register(method, path, name string, handler http.Handler, middlewares []Middleware) {
	r.mux.Method(method, path, chain(handler, middlewares))
	if name == "" {
		return
	}
	r.mu.Lock()
	r.named[name] = binding{method: method, path: path}
	r.mu.Unlock()
}

func (r *Router) Get(path, name string, handler http.HandlerFunc, middlewares ...Middleware) {
	r.register(http.MethodGet, normalizePath(path), name, handler, middlewares)
}

func (r *Router) Post(path, name string, handler http.HandlerFunc, middlewares ...Middleware) {
	r.register(http.MethodPost, normalizePath(path), name, handler, middlewares)
}

func (r *Router) Put(path, name string, handler http.HandlerFunc, middlewares ...Middleware) {
	r.register(http.MethodPut, normalizePath(path), name, handler, middlewares)
}

func (r *Router) Patch(path, name string, handler http.HandlerFunc, middlewares ...Middleware) {
	r.register(http.MethodPatch, normalizePath(path), name, handler, middlewares)
}

func (r *Router) Delete(path, name string, handler http.HandlerFunc, middlewares ...Middleware) {
	r.register(http.MethodDelete, normalizePath(path), name, handler, middlewares)
}

// Handle mounts a raw http.Handler (websocket upgraders, metric pages).
func (r *Router) Handle(method, path string, handler http.Handler) {
	r.mux.Method(method, normalizePath(path), handler)
}

// Param returns a URL parameter captured by a "{name}" path segment.
func Param(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

// Path returns the registered path for a named route.
func (r *Router) Path(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.named[name]
	return b.path, ok
}

// URL builds a concrete URL for a named route, substituting params into
// "{key}" segments. Every placeholder must be filled.
func (r *Router) URL(name string, params map[string]string) (string, error) {
	path, ok := r.Path(name)
	if !ok {
		return "", fmt.Errorf("route %q not found", name)
	}
	for key, value := range params {
		path = strings.ReplaceAll(path, "{"+key+"}", value)
	}
	if strings.Contains(path, "{") {
		return "", fmt.Errorf("missing parameters for route %q", name)
	}
	return path, nil
}

// Routes lists every named route sorted by path, then method.
func (r *Router) Routes() []RouteInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]RouteInfo, 0, len(r.named))
	for name, b := range r.named {
		list = append(list, RouteInfo{Method: b.method, Path: b.path, Name: name})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Path != list[j].Path {
			return list[i].Path < list[j].Path
		}
		return list[i].Method < list[j].Method
	})
	return list
}

// Group scopes routes under a shared prefix and middleware stack.
type Group struct {
	root        *Router
	prefix      string
	middlewares []Middleware
}

func (r *Router) Group(prefix string, middlewares ...Middleware) *Group {
	return &Group{
		root:        r,
		prefix:      normalizePath(prefix),
		middlewares: append([]Middleware(nil), middlewares...),
	}
}

// Group nests a sub-group; prefixes join and middleware stacks concatenate.
func (g *Group) Group(prefix string, middlewares ...Middleware) *Group {
	return &Group{
		root:        g.root,
		prefix:      joinPath(g.prefix, prefix),
		middlewares: append(append([]Middleware(nil), g.middlewares...), middlewares...),
	}
}

func (g *Group) register(method, path, name string, handler http.Handler, middlewares []Middleware) {
	stack := append(append([]Middleware(nil), g.middlewares...), middlewares...)
	g.root.register(method, joinPath(g.prefix, path), name, handler, stack)
}

func (g *Group) Get(path, name string, handler http.HandlerFunc, middlewares ...Middleware) {
	g.register(http.MethodGet, path, name, handler, middlewares)
}

func (g *Group) Post(path, name string, handler http.HandlerFunc, middlewares ...Middleware) {
	g.register(http.MethodPost, path, name, handler, middlewares)
}

func (g *Group) Put(path, name string, handler http.HandlerFunc, middlewares ...Middleware) {
	g.register(http.MethodPut, path, name, handler, middlewares)
}

func (g *Group) Patch(path, name string, handler http.HandlerFunc, middlewares ...Middleware) {
	g.register(http.MethodPatch, path, name, handler, middlewares)
}

func (g *Group) Delete(path, name string, handler http.HandlerFunc, middlewares ...Middleware) {
	g.register(http.MethodDelete, path, name, handler, middlewares)
}

func chain(handler http.Handler, middlewares []Middleware) http.Handler {
	wrapped := handler
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func joinPath(parts ...string) string {
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.Trim(part, "/"); trimmed != "" {
			segments = append(segments, trimmed)
		}
	}
	if len(segments) == 0 {
		return "/"
	}
	return "/" + strings.Join(segments, "/")
}

func normalizePath(path string) string {
	return joinPath(path)
}
