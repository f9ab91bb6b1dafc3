package bserve

import (
	"context"
	"io"
	"net/http"
	"strings"
)

// Template renders a page around content that a router produced. Rendering itself happens outside of
// this package, routers only decide which template applies to a request. Content handlers find it with
// RoutingContext.Router.Page(r), taken from [RoutingContextFrom].
type Template interface {
	RenderPage(w io.Writer, r *http.Request, content []byte) error
}

// ErrorHandler renders the response for an error that was returned while handling a request.
type ErrorHandler func(ctx context.Context, w ResponseWriter, r *http.Request, err error) error

// Router is a node in the router tree. While handling a request a router narrows the routing context and
// either registers content or forwards to one of its children. Everything it can not answer itself is
// deferred to its parent, so resolution always moves outward toward the root.
type Router interface {
	Parent() Router
	SetParent(p Router)

	// HandleContext scopes the context to the router and registers content for the request, if any.
	HandleContext(rc *RoutingContext)

	// Page returns the template for requests in the router's scope, or nil at the root. Content
	// handlers call it on [RoutingContext.Router] to wrap what they produce.
	Page(r *http.Request) Template

	// ErrorHandler returns the error handler for requests in the router's scope, or nil at the root.
	ErrorHandler(r *http.Request) ErrorHandler

	// Route resolves a named route to a link relative to a request that is depth directories below
	// the root.
	Route(name string, depth int) (string, bool)
}

// RoutingContext carries the state of resolving a single request through the router tree.
type RoutingContext struct {
	Request *http.Request

	// ScopedPath is the part of the request path below the current scope, without a leading slash.
	ScopedPath string

	// Router is the current scope.
	Router Router

	// Chain holds every router that scoped the request, root first.
	Chain []Router

	content Handler
}

// NewRoutingContext inits the context for resolving r from the root.
func NewRoutingContext(r *http.Request) *RoutingContext {
	return &RoutingContext{
		Request:    r,
		ScopedPath: strings.TrimPrefix(r.URL.Path, "/"),
	}
}

// Scope records r as the current scope. Any segments are consumed from the scoped path.
func (c *RoutingContext) Scope(r Router, segments ...string) {
	c.Router = r
	c.Chain = append(c.Chain, r)

	for _, seg := range segments {
		c.Descend(seg)
	}
}

// Descend consumes segment from the front of the scoped path.
func (c *RoutingContext) Descend(segment string) {
	c.ScopedPath = strings.TrimPrefix(strings.TrimPrefix(c.ScopedPath, segment), "/")
}

// Segment returns the first segment of the scoped path.
func (c *RoutingContext) Segment() string {
	seg, _, _ := strings.Cut(c.ScopedPath, "/")
	return seg
}

// RegisterContent sets the handler that will produce the response.
func (c *RoutingContext) RegisterContent(h Handler) { c.content = h }

// Content returns the registered handler or nil.
func (c *RoutingContext) Content() Handler { return c.content }

// Depth is the number of directories between the root and the request.
func (c *RoutingContext) Depth() int {
	return max(strings.Count(c.Request.URL.Path, "/")-1, 0)
}

// Route resolves a named route from the current scope outward.
func (c *RoutingContext) Route(name string) (string, bool) {
	if c.Router == nil {
		return "", false
	}

	return c.Router.Route(name, c.Depth())
}

type routingCtxKey struct{}

// RoutingContextFrom returns the routing context of the request being served, if any.
func RoutingContextFrom(ctx context.Context) (*RoutingContext, bool) {
	rc, ok := ctx.Value(routingCtxKey{}).(*RoutingContext)
	return rc, ok
}

// RouterBase implements the parent link and the outward delegation of pages, error handlers and
// routes. Embed it in a router and implement HandleContext.
type RouterBase struct {
	parent   Router
	template Template
	errors   ErrorHandler
}

// RouterOption configures the template and error handler of a router.
type RouterOption func(*RouterBase)

// WithTemplate sets the template for requests in the router's scope.
func WithTemplate(t Template) RouterOption {
	return func(b *RouterBase) { b.template = t }
}

// WithErrorHandler sets the error handler for requests in the router's scope.
func WithErrorHandler(h ErrorHandler) RouterOption {
	return func(b *RouterBase) { b.errors = h }
}

func newRouterBase(opts ...RouterOption) RouterBase {
	var b RouterBase
	for _, opt := range opts {
		opt(&b)
	}

	return b
}

func (b *RouterBase) Parent() Router     { return b.parent }
func (b *RouterBase) SetParent(p Router) { b.parent = p }

func (b *RouterBase) Page(r *http.Request) Template {
	if b.template != nil {
		return b.template
	}

	if b.parent == nil {
		return nil
	}

	return b.parent.Page(r)
}

func (b *RouterBase) ErrorHandler(r *http.Request) ErrorHandler {
	if b.errors != nil {
		return b.errors
	}

	if b.parent == nil {
		return nil
	}

	return b.parent.ErrorHandler(r)
}

func (b *RouterBase) Route(name string, depth int) (string, bool) {
	if b.parent == nil {
		return "", false
	}

	return b.parent.Route(name, depth)
}
