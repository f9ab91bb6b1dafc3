package bserve

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"
)

// ContentRouter is a leaf that registers its handler for requests to its own path.
type ContentRouter struct {
	RouterBase
	h Handler
}

// Content inits a leaf router for h.
func Content(h Handler, opts ...RouterOption) *ContentRouter {
	return &ContentRouter{RouterBase: newRouterBase(opts...), h: h}
}

// ContentFunc is [Content] for a function.
func ContentFunc(h HandlerFunc, opts ...RouterOption) *ContentRouter {
	return Content(h, opts...)
}

func (c *ContentRouter) HandleContext(rc *RoutingContext) {
	rc.Scope(c)

	if rc.ScopedPath == "" {
		rc.RegisterContent(c.h)
	}
}

// Dispatch resolves every request against the tree below root. The registered content is served, or
// [ErrNoContent] with a not found code when nothing registered. Errors are rendered by the error handler
// of the scope the request ended up in, which searches outward to the root. Without any error handler
// the error is returned.
func Dispatch(root Router) BareHandler {
	return BareHandlerFunc(func(w ResponseWriter, r *http.Request) error {
		rc := NewRoutingContext(r)
		root.HandleContext(rc)

		ctx := context.WithValue(r.Context(), routingCtxKey{}, rc)
		r = r.WithContext(ctx)

		var err error
		if h := rc.Content(); h != nil {
			err = h.ServeBHTTP(ctx, w, r)
		} else {
			err = NewError(CodeNotFound, errors.Wrapf(ErrNoContent, "%s %s", r.Method, r.URL.Path))
		}

		if err == nil {
			return nil
		}

		scope := rc.Router
		if scope == nil {
			scope = root
		}

		eh := scope.ErrorHandler(r)
		if eh == nil {
			return err
		}

		if w.Flushed() {
			return err
		}

		w.Reset()

		return eh(ctx, w, r, err)
	})
}
