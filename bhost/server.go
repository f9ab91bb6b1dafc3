package bhost

import (
	"context"
	"net/http"

	"github.com/advdv/bserve"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ServerConfig holds optional configuration for the server.
type ServerConfig struct {
	HealthHandler http.HandlerFunc
	Options       []bserve.Option
}

// ServerParams holds the dependencies for creating the server.
type ServerParams struct {
	fx.In

	Env          Environment
	Root         bserve.Router
	Logger       *zap.Logger
	TracerProv   trace.TracerProvider
	Propagator   propagation.TextMapPropagator
	Certificates bserve.CertificateProvider `optional:"true"`
}

// NewServer creates a server for the router tree with a plaintext binding and, when certificates are
// configured, a secure binding.
func NewServer(params ServerParams, cfg ServerConfig) *bserve.Server {
	env := params.Env.base()

	opts := []bserve.Option{
		bserve.WithLogger(newZapServerLogger(params.Logger)),
		bserve.WithBinding(bserve.Binding{Address: env.BindAddress, Port: env.HTTPPort}),
		bserve.WithSecureUpgrade(env.SecureUpgrade),
		bserve.WithStrictTransport(env.StrictTransport()),
		bserve.WithBodyLimits(env.MaxMemoryBody, env.MaxBody),
		bserve.WithMiddleware(withRequestLogger(params.Logger)),
	}

	if params.Certificates != nil && env.HTTPSPort > 0 {
		opts = append(opts, bserve.WithBinding(bserve.Binding{
			Address:       env.BindAddress,
			Port:          env.HTTPSPort,
			Certificates:  params.Certificates,
			MinTLSVersion: uint16(env.TLSMinVersion),
		}))
	}

	// The health check answers before the upgrade policy and is not traced.
	if env.HealthCheckPath != "" {
		health := cfg.HealthHandler
		if health == nil {
			health = defaultHealthHandler
		}

		opts = append(opts, bserve.WithStdMiddleware(withHealthCheck(env.HealthCheckPath, health)))
	}

	opts = append(opts, bserve.WithStdMiddleware(
		withTracing(params.TracerProv, params.Propagator, env.ServiceName, env.HealthCheckPath)))

	return bserve.New(params.Root, append(opts, cfg.Options...)...)
}

func withHealthCheck(path string, h http.HandlerFunc) bserve.StdMiddleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == path {
				h(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// startServerHook registers lifecycle hooks for the server.
func startServerHook(lc fx.Lifecycle, server *bserve.Server, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := server.Start(ctx); err != nil {
				return err
			}

			addrs := []zap.Field{zap.Stringer("addr", server.Addr(0))}
			if secure := server.Addr(1); secure != nil {
				addrs = append(addrs, zap.Stringer("secure_addr", secure))
			}

			logger.Info("started server", addrs...)

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping server")
			return server.Shutdown(ctx)
		},
	})
}

func defaultHealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}
