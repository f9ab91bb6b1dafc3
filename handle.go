package bserve

import (
	"context"
	"net/http"
)

// ResponseWriter implements the http.ResponseWriter but the underlying bytes are buffered. This allows
// middleware and error handlers to reset the writer and formulate a completely new response.
type ResponseWriter interface {
	http.ResponseWriter
	Reset()
	Flushed() bool
	Free()
	FlushBuffer() error
}

// Handler mirrors http.Handler but it receives the request's context, writes to a buffered response and
// may return an error.
type Handler interface {
	ServeBHTTP(ctx context.Context, w ResponseWriter, r *http.Request) error
}

// HandlerFunc allow casting a function to imple [Handler].
type HandlerFunc func(context.Context, ResponseWriter, *http.Request) error

// ServeBHTTP implements the [Handler] interface.
func (f HandlerFunc) ServeBHTTP(ctx context.Context, w ResponseWriter, r *http.Request) error {
	return f(ctx, w, r)
}

// BareHandler describes how middleware servers HTTP requests. Unlike [Handler] it does not receive the
// context as a separate argument.
type BareHandler interface {
	ServeBareBHTTP(w ResponseWriter, r *http.Request) error
}

// BareHandlerFunc allow casting a function to an implementation of [BareHandler].
type BareHandlerFunc func(ResponseWriter, *http.Request) error

// ServeBareBHTTP implements the [BareHandler] interface.
func (f BareHandlerFunc) ServeBareBHTTP(w ResponseWriter, r *http.Request) error {
	return f(w, r)
}

// ToBare converts a handler 'h' into a bare buffered handler that is passed the request's context.
func ToBare(h Handler) BareHandler {
	return BareHandlerFunc(func(w ResponseWriter, r *http.Request) error {
		return h.ServeBHTTP(r.Context(), w, r)
	})
}

// FromStd turns a standard library handler into a [Handler]. The standard handler can't return errors so
// it owns the full response.
func FromStd(h http.Handler) HandlerFunc {
	return func(_ context.Context, w ResponseWriter, r *http.Request) error {
		h.ServeHTTP(w, r)
		return nil
	}
}

// ToStd converts a bare handler into a standard library http.Handler. The implementation
// creates a buffered response writer and flushes it implicitly after serving the request.
func ToStd(h BareHandler, bufLimit int, logs Logger) http.Handler {
	return http.HandlerFunc(func(resp http.ResponseWriter, req *http.Request) {
		bresp := newBufferResponse(resp, bufLimit)
		defer bresp.Free()

		if err := h.ServeBareBHTTP(bresp, req); err != nil {
			code := CodeOf(err)
			if code == CodeUnknown || code >= CodeInternalServerError {
				logs.LogUnhandledServeError(err)
			}

			if code == CodeUnknown {
				code = CodeInternalServerError
			}

			if bresp.flushed {
				return // status line is already on the wire
			}

			// the buffered response is discarded so the client ends up with at least the
			// standard status text instead of a half written response.
			bresp.Reset()
			http.Error(bresp, http.StatusText(int(code)), int(code))
		}

		if err := bresp.FlushBuffer(); err != nil {
			logs.LogImplicitFlushError(err)
		}
	})
}
