package bhost

import (
	"context"
	"net/http"

	"github.com/advdv/bserve"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey int

const ctxKeyLogger ctxKey = iota

// withRequestLogger makes the logger available to handlers through [Log].
func withRequestLogger(logs *zap.Logger) bserve.Middleware {
	return func(next bserve.BareHandler) bserve.BareHandler {
		return bserve.BareHandlerFunc(func(w bserve.ResponseWriter, r *http.Request) error {
			ctx := context.WithValue(r.Context(), ctxKeyLogger, logs)
			return next.ServeBareBHTTP(w, r.WithContext(ctx))
		})
	}
}

// Log returns a trace-correlated zap logger from the context. It returns a no-op logger outside of
// requests served by a bhost server.
func Log(ctx context.Context) *zap.Logger {
	logs, ok := ctx.Value(ctxKeyLogger).(*zap.Logger)
	if !ok {
		return zap.NewNop()
	}

	return logs.With(traceFields(ctx)...)
}

// Span returns the current trace span from the context.
func Span(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

func traceFields(ctx context.Context) []zap.Field {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return nil
	}

	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}
