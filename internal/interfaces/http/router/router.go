// Package router assembles the gin engine: the global middleware chain and
// the permission-gated /api/v1 route groups.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/interfaces/http/middleware"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router mounts registrars under /api/<version>
type Router struct {
	engine     *gin.Engine
	apiVersion string
	middleware []gin.HandlerFunc
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Use adds middleware to the versioned group. It must be called before Setup.
func (r *Router) Use(middleware ...gin.HandlerFunc) *Router {
	r.middleware = append(r.middleware, middleware...)
	return r
}

// Register queues registrars for Setup
func (r *Router) Register(registrars ...RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrars...)
	return r
}

// Setup registers every queued registrar on the versioned group
func (r *Router) Setup() *gin.RouterGroup {
	api := r.engine.Group("/api/" + r.apiVersion)
	if len(r.middleware) > 0 {
		api.Use(r.middleware...)
	}
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
	return api
}

// Route is one endpoint of a DomainGroup. An empty Permission leaves the
// route open to any authenticated actor.
type Route struct {
	Method     string
	Path       string
	Permission string
	Handler    gin.HandlerFunc
}

// DomainGroup collects the routes of one API area under a shared prefix
type DomainGroup struct {
	name       string
	prefix     string
	routes     []Route
	middleware []gin.HandlerFunc
}

// NewDomainGroup creates a new domain-specific route group
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Use adds middleware to this group
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

// Handle registers a route guarded by permission
func (dg *DomainGroup) Handle(method, path, permission string, handler gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, Route{Method: method, Path: path, Permission: permission, Handler: handler})
	return dg
}

// GET registers a GET route
func (dg *DomainGroup) GET(path, permission string, handler gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodGet, path, permission, handler)
}

// POST registers a POST route
func (dg *DomainGroup) POST(path, permission string, handler gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodPost, path, permission, handler)
}

// PUT registers a PUT route
func (dg *DomainGroup) PUT(path, permission string, handler gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodPut, path, permission, handler)
}

// RegisterRoutes implements RouteRegistrar
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix)
	if len(dg.middleware) > 0 {
		group.Use(dg.middleware...)
	}
	for _, route := range dg.routes {
		if route.Permission == "" {
			group.Handle(route.Method, route.Path, route.Handler)
			continue
		}
		group.Handle(route.Method, route.Path, middleware.RequirePermission(route.Permission), route.Handler)
	}
}

// Name returns the group name
func (dg *DomainGroup) Name() string {
	return dg.name
}

// Prefix returns the group prefix
func (dg *DomainGroup) Prefix() string {
	return dg.prefix
}

// Routes returns the registered routes in order
func (dg *DomainGroup) Routes() []Route {
	return dg.routes
}
