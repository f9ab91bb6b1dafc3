// Package bhost hosts a bserve router tree as a service: environment parsing, structured logging,
// OpenTelemetry tracing, AWS sourced certificates and graceful shutdown.
//
// # Overview
//
// A complete application is created in a single call. The root is an fx constructor of the router tree:
//
//	func NewRoot(rt *bhost.Runtime[Env], bucket *s3.Client) (*bserve.Layout, error) {
//	    assets, err := bserve.NewResources(context.Background(),
//	        bhost.NewS3Source(bucket, rt.Env().AssetsBucket, "assets"), "assets")
//	    if err != nil {
//	        return nil, err
//	    }
//
//	    return bserve.NewLayout().Add("assets", assets), nil
//	}
//
//	bhost.NewApp[Env](NewRoot,
//	    bhost.WithAWSClient(func(cfg aws.Config) *s3.Client { return s3.NewFromConfig(cfg) }),
//	).Run()
//
// # Environment Configuration
//
// Define your environment by embedding [BaseEnvironment]:
//
//	type Env struct {
//	    bhost.BaseEnvironment
//	    AssetsBucket string `env:"ASSETS_BUCKET,required"`
//	}
//
// BaseEnvironment provides the following environment variables:
//
//	| Variable                    | Required | Default    | Description                                      |
//	|-----------------------------|----------|------------|--------------------------------------------------|
//	| BS_SERVICE_NAME             | Yes      | -          | Service name for logging and tracing             |
//	| BS_HTTP_PORT                | Yes      | -          | Port of the plaintext binding                    |
//	| BS_HTTPS_PORT               | No       | 0          | Port of the secure binding, 0 disables it        |
//	| BS_BIND_ADDRESS             | No       | -          | Address both bindings listen on                  |
//	| BS_HEALTH_CHECK_PATH        | No       | -          | Path answered with 200 before routing            |
//	| BS_SECURE_UPGRADE           | No       | redirect   | none, redirect or allow                          |
//	| BS_HSTS_ENABLED             | No       | true       | Send Strict-Transport-Security on secure binding |
//	| BS_HSTS_MAX_AGE             | No       | 8760h      | HSTS max-age                                     |
//	| BS_HSTS_INCLUDE_SUBDOMAINS  | No       | true       | HSTS includeSubDomains                           |
//	| BS_HSTS_PRELOAD             | No       | true       | HSTS preload                                     |
//	| BS_TLS_MIN_VERSION          | No       | 1.2        | 1.0, 1.1, 1.2 or 1.3                             |
//	| BS_TLS_HOST                 | No       | -          | Host of a single certificate                     |
//	| BS_TLS_CERT_FILE            | No       | -          | PEM certificate chain file                       |
//	| BS_TLS_KEY_FILE             | No       | -          | PEM private key file                             |
//	| BS_TLS_CERT_SECRET_ID       | No       | -          | Secret with "certificate" and "private_key"      |
//	| BS_TLS_CERT_PARAMETER       | No       | -          | SSM parameter prefix of the certificate          |
//	| BS_TLS_BINDINGS_TABLE       | No       | -          | DynamoDB table of host to secret bindings        |
//	| BS_MAX_MEMORY_BODY          | No       | 65535      | Request body bytes kept in memory                |
//	| BS_MAX_BODY                 | No       | 1073741824 | Largest accepted request body                    |
//	| BS_LOG_LEVEL                | No       | info       | Log level (debug, info, warn, error)             |
//	| BS_OTEL_EXPORTER            | No       | stdout     | Trace exporter: "stdout" or "xrayudp"            |
//	| AWS_REGION                  | No       | -          | AWS region of the SDK clients                    |
//
// # Certificates
//
// The secure binding is enabled when BS_HTTPS_PORT is set and a certificate source is configured. The
// bindings table takes precedence, then the secret, the parameter prefix and finally the files. Rows of the
// bindings table hold a "host" and a "secret_id". A row with host "*" provides the certificate for clients
// that send no or an unknown server name.
//
// # Context
//
// Handlers receive a standard context.Context:
//
//   - [Log] returns a trace-correlated zap logger
//   - [Span] returns the current OpenTelemetry span
//
// # Runtime
//
// [Runtime] provides access to app-scoped dependencies and should be injected into constructors:
//
//   - [Runtime.Env] returns the typed environment configuration
//   - [Runtime.Secret] retrieves secrets from AWS Secrets Manager, optionally at a gjson path
//   - [Runtime.NewRequest] builds traced outbound requests
//   - [Runtime.Server] exposes the server to change its upgrade mode or HSTS settings at runtime
package bhost
