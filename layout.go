package bserve

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Layout routes requests to children by the first segment of the scoped path. Requests for the layout
// itself go to the index, unknown segments to the fallback.
type Layout struct {
	RouterBase

	children map[string]Router
	index    Router
	fallback Router
	routes   *Reverser
}

// NewLayout inits an empty layout.
func NewLayout(opts ...RouterOption) *Layout {
	return &Layout{
		RouterBase: newRouterBase(opts...),
		children:   map[string]Router{},
		routes:     NewReverser(),
	}
}

// Add attaches child under segment. It panics when the segment is taken or contains a slash.
func (l *Layout) Add(segment string, child Router) *Layout {
	if segment == "" || strings.Contains(segment, "/") {
		panic(errors.Newf("bserve: invalid layout segment %q", segment))
	}

	if _, exists := l.children[segment]; exists {
		panic(errors.Newf("bserve: layout segment %q already taken", segment))
	}

	child.SetParent(l)
	l.children[segment] = child

	return l
}

// Index attaches the router that serves the layout's own path.
func (l *Layout) Index(child Router) *Layout {
	child.SetParent(l)
	l.index = child

	return l
}

// Fallback attaches the router for segments no child is attached to.
func (l *Layout) Fallback(child Router) *Layout {
	child.SetParent(l)
	l.fallback = child

	return l
}

// Name registers a named route with an absolute path so it can be resolved by [Layout.Route] from anywhere
// below the layout.
func (l *Layout) Name(name, path string) *Layout {
	l.routes.Named(name, path)
	return l
}

// Reverse builds the absolute path of a named route.
func (l *Layout) Reverse(name string, vals ...string) (string, error) {
	return l.routes.Reverse(name, vals...)
}

func (l *Layout) HandleContext(rc *RoutingContext) {
	rc.Scope(l)

	seg := rc.Segment()
	if seg == "" {
		if l.index != nil {
			l.index.HandleContext(rc)
		}

		return
	}

	if child, ok := l.children[seg]; ok {
		rc.Descend(seg)
		child.HandleContext(rc)

		return
	}

	if l.fallback != nil {
		l.fallback.HandleContext(rc)
	}
}

// Route resolves routes named on this layout, others are deferred to the parent.
func (l *Layout) Route(name string, depth int) (string, bool) {
	if !l.routes.Has(name) {
		return l.RouterBase.Route(name, depth)
	}

	path, err := l.routes.Reverse(name)
	if err != nil {
		return "", false
	}

	rel := strings.Repeat("../", depth) + strings.TrimPrefix(path, "/")
	if rel == "" {
		rel = "./"
	}

	return rel, true
}
