package bserve

import "net/http"

// Graft splices a router into a tree without the router knowing. The wrapped router's parent becomes
// the graft, and everything the wrapped router defers ends up at the position the graft is attached
// to rather than the wrapped router's original parent.
type Graft struct {
	parent Router
	inner  Router
}

// NewGraft wraps inner and reparents it to the graft.
func NewGraft(inner Router) *Graft {
	g := &Graft{inner: inner}
	inner.SetParent(g)

	return g
}

// Inner returns the wrapped router.
func (g *Graft) Inner() Router { return g.inner }

func (g *Graft) Parent() Router     { return g.parent }
func (g *Graft) SetParent(p Router) { g.parent = p }

func (g *Graft) HandleContext(rc *RoutingContext) {
	rc.Scope(g)
	g.inner.HandleContext(rc)
}

func (g *Graft) Page(r *http.Request) Template {
	if g.parent == nil {
		return nil
	}

	return g.parent.Page(r)
}

func (g *Graft) ErrorHandler(r *http.Request) ErrorHandler {
	if g.parent == nil {
		return nil
	}

	return g.parent.ErrorHandler(r)
}

func (g *Graft) Route(name string, depth int) (string, bool) {
	if g.parent == nil {
		return "", false
	}

	return g.parent.Route(name, depth)
}
