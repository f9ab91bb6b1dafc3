package bhost

import (
	"crypto/tls"
	"time"

	"github.com/advdv/bserve"
	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap/zapcore"
)

// Environment defines the interface that all environment configurations must implement.
// Embed BaseEnvironment in your struct to satisfy this interface.
type Environment interface {
	serviceName() string
	logLevel() zapcore.Level
	otelExporter() string
	awsRegion() string
	base() BaseEnvironment
}

// BaseEnvironment holds the hosting configuration. Embed this in your custom environment struct.
type BaseEnvironment struct {
	ServiceName string `env:"BS_SERVICE_NAME,required"`
	HTTPPort    int    `env:"BS_HTTP_PORT,required"`
	HTTPSPort   int    `env:"BS_HTTPS_PORT" envDefault:"0"`
	BindAddress string `env:"BS_BIND_ADDRESS"`

	// HealthCheckPath is answered with 200 before any routing or upgrade when set.
	HealthCheckPath string `env:"BS_HEALTH_CHECK_PATH"`

	SecureUpgrade         bserve.SecureUpgrade `env:"BS_SECURE_UPGRADE" envDefault:"redirect"`
	HSTSEnabled           bool                 `env:"BS_HSTS_ENABLED" envDefault:"true"`
	HSTSMaxAge            time.Duration        `env:"BS_HSTS_MAX_AGE" envDefault:"8760h"`
	HSTSIncludeSubdomains bool                 `env:"BS_HSTS_INCLUDE_SUBDOMAINS" envDefault:"true"`
	HSTSPreload           bool                 `env:"BS_HSTS_PRELOAD" envDefault:"true"`

	TLSMinVersion    TLSVersion `env:"BS_TLS_MIN_VERSION" envDefault:"1.2"`
	TLSHost          string     `env:"BS_TLS_HOST"`
	TLSCertFile      string     `env:"BS_TLS_CERT_FILE"`
	TLSKeyFile       string     `env:"BS_TLS_KEY_FILE"`
	TLSCertSecretID  string     `env:"BS_TLS_CERT_SECRET_ID"`
	TLSCertParameter string     `env:"BS_TLS_CERT_PARAMETER"`
	TLSBindingsTable string     `env:"BS_TLS_BINDINGS_TABLE"`

	MaxMemoryBody int64 `env:"BS_MAX_MEMORY_BODY" envDefault:"65535"`
	MaxBody       int64 `env:"BS_MAX_BODY" envDefault:"1073741824"`

	LogLevel     zapcore.Level `env:"BS_LOG_LEVEL" envDefault:"info"`
	OtelExporter string        `env:"BS_OTEL_EXPORTER" envDefault:"stdout"`
	AWSRegion    string        `env:"AWS_REGION"`
}

func (e BaseEnvironment) serviceName() string     { return e.ServiceName }
func (e BaseEnvironment) logLevel() zapcore.Level { return e.LogLevel }
func (e BaseEnvironment) otelExporter() string    { return e.OtelExporter }
func (e BaseEnvironment) awsRegion() string       { return e.AWSRegion }
func (e BaseEnvironment) base() BaseEnvironment   { return e }

// StrictTransport returns the HSTS settings for secure bindings.
func (e BaseEnvironment) StrictTransport() bserve.StrictTransport {
	return bserve.StrictTransport{
		Enabled:           e.HSTSEnabled,
		MaxAge:            e.HSTSMaxAge,
		IncludeSubdomains: e.HSTSIncludeSubdomains,
		Preload:           e.HSTSPreload,
	}
}

var _ Environment = BaseEnvironment{}

// TLSVersion is a minimum TLS version written as "1.0" up to "1.3".
type TLSVersion uint16

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *TLSVersion) UnmarshalText(b []byte) error {
	switch string(b) {
	case "1.0":
		*v = tls.VersionTLS10
	case "1.1":
		*v = tls.VersionTLS11
	case "1.2":
		*v = tls.VersionTLS12
	case "1.3":
		*v = tls.VersionTLS13
	default:
		return errors.Errorf("unsupported tls version: %q (supported: 1.0, 1.1, 1.2, 1.3)", b)
	}

	return nil
}

// ParseEnv parses environment variables into the given Environment type.
func ParseEnv[E Environment]() func() (E, error) {
	return func() (e E, err error) {
		if err := env.Parse(&e); err != nil {
			return e, errors.Wrap(err, "failed to parse environment")
		}

		return e, nil
	}
}
