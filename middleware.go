package bserve

import "net/http"

// Middleware for cross-cutting concerns with buffered responses.
type Middleware func(BareHandler) BareHandler

// StdMiddleware wraps the standard library handler that sits in front of the response buffer. It sees
// every response, including those rendered for unhandled errors.
type StdMiddleware func(http.Handler) http.Handler

// Wrap takes the inner handler h and wraps it with middleware. The order is that of the Gorilla and Chi router. That
// is: the middleware provided first is called first and is the "outer" most wrapping, the middleware provided last
// will be the "inner most" wrapping (closest to the handler).
func Wrap(h Handler, m ...Middleware) BareHandler {
	return Chain(ToBare(h), m...)
}

// Chain wraps a bare handler in the same order as [Wrap].
func Chain(h BareHandler, m ...Middleware) BareHandler {
	wrapped := h
	for i := len(m) - 1; i >= 0; i-- {
		wrapped = m[i](wrapped)
	}

	return wrapped
}

// ChainStd wraps a standard handler in the same order as [Wrap].
func ChainStd(h http.Handler, m ...StdMiddleware) http.Handler {
	wrapped := h
	for i := len(m) - 1; i >= 0; i-- {
		wrapped = m[i](wrapped)
	}

	return wrapped
}
