package bhost

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// mockSecretReader implements SecretReader for testing.
type mockSecretReader struct {
	secrets map[string]string
	err     error
}

func (m *mockSecretReader) GetSecretString(_ context.Context, secretID string) (string, error) {
	if m.err != nil {
		return "", m.err
	}

	secret, ok := m.secrets[secretID]
	if !ok {
		return "", errors.Errorf("secret %q not found", secretID)
	}

	return secret, nil
}

func TestRuntimeSecret(t *testing.T) {
	for _, tt := range []struct {
		name      string
		secrets   map[string]string
		readerErr error
		secretID  string
		jsonPath  []string
		want      string
		wantErr   string
	}{
		{
			name:     "raw string secret",
			secrets:  map[string]string{"my-api-key": "secret-key-value"},
			secretID: "my-api-key",
			want:     "secret-key-value",
		},
		{
			name:     "json secret with nested path",
			secrets:  map[string]string{"my-db-creds": `{"database": {"password": "secret123"}}`},
			secretID: "my-db-creds",
			jsonPath: []string{"database.password"},
			want:     "secret123",
		},
		{
			name:     "json secret with array index",
			secrets:  map[string]string{"my-config": `{"items": [{"name": "first"}, {"name": "second"}]}`},
			secretID: "my-config",
			jsonPath: []string{"items.1.name"},
			want:     "second",
		},
		{
			name:     "numeric value as string",
			secrets:  map[string]string{"my-config": `{"port": 5432}`},
			secretID: "my-config",
			jsonPath: []string{"port"},
			want:     "5432",
		},
		{
			name:     "empty path returns raw secret",
			secrets:  map[string]string{"my-secret": `{"foo": "bar"}`},
			secretID: "my-secret",
			jsonPath: []string{""},
			want:     `{"foo": "bar"}`,
		},
		{
			name:     "path not found",
			secrets:  map[string]string{"my-secret": `{"foo": "bar"}`},
			secretID: "my-secret",
			jsonPath: []string{"missing.path"},
			wantErr:  `secret path "missing.path" not found`,
		},
		{
			name:     "secret not found",
			secrets:  map[string]string{},
			secretID: "missing",
			wantErr:  `secret "missing" not found`,
		},
		{
			name:      "reader error",
			readerErr: errors.New("AWS error"),
			secretID:  "any-secret",
			wantErr:   "AWS error",
		},
		{
			name:     "too many paths",
			secrets:  map[string]string{"my-secret": `{"foo": "bar"}`},
			secretID: "my-secret",
			jsonPath: []string{"one", "two"},
			wantErr:  "at most one jsonPath argument",
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			rt := NewRuntime(BaseEnvironment{}, RuntimeParams{
				SecretReader: &mockSecretReader{secrets: tt.secrets, err: tt.readerErr},
			})

			got, err := rt.Secret(context.Background(), tt.secretID, tt.jsonPath...)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("no reader configured", func(t *testing.T) {
		_, err := NewRuntime(BaseEnvironment{}, RuntimeParams{}).Secret(context.Background(), "any")
		require.ErrorContains(t, err, "secret reader not configured")
	})
}

func TestRuntimeNewRequest(t *testing.T) {
	var traceparent string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("Traceparent")
		w.Write([]byte("from-runtime"))
	}))
	defer ts.Close()

	tp := sdktrace.NewTracerProvider()
	rt := NewRuntime(BaseEnvironment{}, RuntimeParams{
		Transport: NewHTTPTransport(tp, propagation.TraceContext{}),
	})

	ctx, span := tp.Tracer("test").Start(context.Background(), "outbound")
	defer span.End()

	var s string
	require.NoError(t, rt.NewRequest().BaseURL(ts.URL).ToString(&s).Fetch(ctx))
	assert.Equal(t, "from-runtime", s)
	assert.Contains(t, traceparent, span.SpanContext().TraceID().String())

	t.Run("builders are independent", func(t *testing.T) {
		a, b := rt.NewRequest().Path("/a"), rt.NewRequest().Path("/b")
		assert.NotSame(t, a, b)
	})

	t.Run("default transport", func(t *testing.T) {
		var s string
		require.NoError(t, NewRuntime(BaseEnvironment{}, RuntimeParams{}).NewRequest().
			BaseURL(ts.URL).ToString(&s).Fetch(context.Background()))
		assert.Equal(t, "from-runtime", s)
	})
}
