package bhost

import (
	"context"
	"net/http"
	"time"

	"github.com/advdv/bserve"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const certificateLoadTimeout = 30 * time.Second

// App wraps an fx.App for lifecycle management.
type App struct {
	app *fx.App
}

// AppConfig holds configuration for the app.
type AppConfig struct {
	ServerConfig
	FxOptions []fx.Option
}

// Option configures the App.
type Option func(*AppConfig)

// WithAWSClient registers an AWS SDK v2 client for dependency injection.
//
//	bhost.WithAWSClient(func(cfg aws.Config) *dynamodb.Client {
//	    return dynamodb.NewFromConfig(cfg)
//	})
func WithAWSClient[T any](factory func(aws.Config) T, opts ...ClientOption) Option {
	return func(c *AppConfig) {
		c.FxOptions = append(c.FxOptions, AWSClientProvider(factory, opts...))
	}
}

// WithFx adds fx options for dependency injection.
func WithFx(fxOpts ...fx.Option) Option {
	return func(c *AppConfig) {
		c.FxOptions = append(c.FxOptions, fxOpts...)
	}
}

// WithHealthHandler sets a custom handler for BS_HEALTH_CHECK_PATH. The default answers 200 OK.
func WithHealthHandler(h http.HandlerFunc) Option {
	return func(c *AppConfig) {
		c.HealthHandler = h
	}
}

// WithServerOptions adds options to the server, they are applied after the ones from the environment.
func WithServerOptions(opts ...bserve.Option) Option {
	return func(c *AppConfig) {
		c.Options = append(c.Options, opts...)
	}
}

type runtimeParams[E Environment] struct {
	fx.In

	Env          E
	SecretReader SecretReader
	TracerProv   trace.TracerProvider
	Propagator   propagation.TextMapPropagator
}

type certificateParams struct {
	fx.In

	Env     Environment
	Secrets SecretReader
	Config  aws.Config
}

// FxOptions returns the options of the app's dependency graph. The root is an fx constructor of the
// router tree, it may request any type provided by the graph or the options.
func FxOptions[E Environment](root any, opts ...Option) []fx.Option {
	var cfg AppConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	return append([]fx.Option{
		fx.NopLogger,
		fx.Provide(ParseEnv[E]()),
		fx.Provide(func(e E) Environment { return e }),
		fx.Provide(func(e E) (*zap.Logger, error) { return NewLogger(e) }),
		fx.Provide(NewTracerProvider),
		fx.Provide(NewPropagator),
		fx.Provide(provideAWSConfig),
		fx.Provide(func(cfg aws.Config) (SecretReader, error) {
			return NewAWSSecretReader(cfg)
		}),
		fx.Provide(func(p certificateParams) (bserve.CertificateProvider, error) {
			ctx, cancel := context.WithTimeout(context.Background(), certificateLoadTimeout)
			defer cancel()

			return NewCertificateProvider(ctx, CertificateParams{
				Env:     p.Env,
				Secrets: p.Secrets,
				Params:  ssm.NewFromConfig(p.Config),
				DB:      dynamodb.NewFromConfig(p.Config),
			})
		}),
		fx.Provide(func(p runtimeParams[E]) *Runtime[E] {
			return NewRuntime(p.Env, RuntimeParams{
				SecretReader: p.SecretReader,
				Transport:    NewHTTPTransport(p.TracerProv, p.Propagator),
			})
		}),
		fx.Provide(fx.Annotate(root, fx.As(new(bserve.Router)))),
		fx.Supply(cfg.ServerConfig),
		fx.Provide(NewServer),
		fx.Invoke(func(rt *Runtime[E], s *bserve.Server) { rt.server = s }),
		fx.Invoke(startServerHook),
	}, cfg.FxOptions...)
}

// NewApp creates a batteries-included app with dependency injection.
//
//	bhost.NewApp[Env](NewRoot,
//	    bhost.WithAWSClient(func(cfg aws.Config) *s3.Client {
//	        return s3.NewFromConfig(cfg)
//	    }),
//	).Run()
func NewApp[E Environment](root any, opts ...Option) *App {
	return &App{app: fx.New(FxOptions[E](root, opts...)...)}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() {
	a.app.Run()
}

// Start starts the application and blocks until ctx is done, then stops it.
func (a *App) Start(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.app.StopTimeout())
	defer cancel()

	return a.app.Stop(stopCtx)
}
