package bhosttest

import (
	"strconv"
	"testing"
)

// Env provides a chainable builder for setting [bhost.BaseEnvironment] env vars
// via t.Setenv. Create one with [SetBaseEnv].
type Env struct {
	t testing.TB
}

// SetBaseEnv sets all required [bhost.BaseEnvironment] env vars to test defaults. The plaintext
// binding listens on a random port of the loopback interface, use the server's Addr to find it.
//
// Defaults:
//   - BS_SERVICE_NAME: "test"
//   - BS_HTTP_PORT: "0"
//   - BS_BIND_ADDRESS: "127.0.0.1"
//   - BS_SECURE_UPGRADE: "none"
//   - AWS_REGION: "us-east-1"
//   - OTEL_SDK_DISABLED: "true"
//   - AWS_ACCESS_KEY_ID: "test"
//   - AWS_SECRET_ACCESS_KEY: "test"
func SetBaseEnv(t testing.TB) *Env {
	t.Helper()
	t.Setenv("BS_SERVICE_NAME", "test")
	t.Setenv("BS_HTTP_PORT", "0")
	t.Setenv("BS_BIND_ADDRESS", "127.0.0.1")
	t.Setenv("BS_SECURE_UPGRADE", "none")
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("OTEL_SDK_DISABLED", "true")
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	return &Env{t: t}
}

func (e *Env) set(key, value string) *Env {
	e.t.Helper()
	e.t.Setenv(key, value)

	return e
}

// ServiceName overrides BS_SERVICE_NAME.
func (e *Env) ServiceName(name string) *Env { return e.set("BS_SERVICE_NAME", name) }

// SecureUpgrade overrides BS_SECURE_UPGRADE.
func (e *Env) SecureUpgrade(mode string) *Env { return e.set("BS_SECURE_UPGRADE", mode) }

// HealthCheckPath sets BS_HEALTH_CHECK_PATH.
func (e *Env) HealthCheckPath(path string) *Env { return e.set("BS_HEALTH_CHECK_PATH", path) }

// TLSFiles enables the secure binding on port with the certificate and key files.
func (e *Env) TLSFiles(port int, certFile, keyFile string) *Env {
	e.set("BS_HTTPS_PORT", strconv.Itoa(port))
	e.set("BS_TLS_CERT_FILE", certFile)

	return e.set("BS_TLS_KEY_FILE", keyFile)
}
