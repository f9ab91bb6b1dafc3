package bhost

import (
	"context"
	"net/http"

	"github.com/advdv/bserve"
	"github.com/carlmjohnson/requests"
	"github.com/cockroachdb/errors"
)

// Runtime provides access to app-scoped dependencies.
// Inject this into router constructors via fx instead of pulling from context.
//
//	func NewRoot(rt *bhost.Runtime[Env]) *bserve.Layout {
//	    return bserve.NewLayout().Index(bserve.ContentFunc(func(ctx context.Context, w bserve.ResponseWriter, r *http.Request) error {
//	        key, err := rt.Secret(ctx, rt.Env().APIKeySecret)
//	        // ...
//	    }))
//	}
type Runtime[E Environment] struct {
	env       E
	secrets   SecretReader
	transport http.RoundTripper
	server    *bserve.Server
}

// RuntimeParams holds optional dependencies for Runtime.
type RuntimeParams struct {
	SecretReader SecretReader
	Transport    http.RoundTripper
}

// NewRuntime creates a new Runtime with the given dependencies.
func NewRuntime[E Environment](env E, params RuntimeParams) *Runtime[E] {
	return &Runtime[E]{
		env:       env,
		secrets:   params.SecretReader,
		transport: params.Transport,
	}
}

// Env returns the environment configuration.
func (r *Runtime[E]) Env() E {
	return r.env
}

// Secret retrieves a secret value from AWS Secrets Manager.
//
// If jsonPath is provided, the secret is parsed as JSON and the path is extracted
// using gjson syntax (e.g., "database.password", "api.keys.0").
// If jsonPath is omitted, the raw secret string is returned.
func (r *Runtime[E]) Secret(ctx context.Context, secretID string, jsonPath ...string) (string, error) {
	if r.secrets == nil {
		return "", errors.New("bhost: secret reader not configured")
	}

	return secretFromReader(ctx, r.secrets, secretID, jsonPath...)
}

// NewRequest returns a request builder that traces outbound calls.
func (r *Runtime[E]) NewRequest() *requests.Builder {
	t := r.transport
	if t == nil {
		t = http.DefaultTransport
	}

	return newRequestBuilder(t)
}

// Server returns the server, for example to change the upgrade mode while it runs. It is nil while the
// router tree is being constructed.
func (r *Runtime[E]) Server() *bserve.Server {
	return r.server
}
