package bserve_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/advdv/bserve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecide(t *testing.T) {
	plain := httptest.NewRequest(http.MethodGet, "/", nil)
	upgrade := httptest.NewRequest(http.MethodGet, "/", nil)
	upgrade.Header.Set("Upgrade-Insecure-Requests", "1")
	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.Header.Set("Upgrade-Insecure-Requests", "0")

	for _, tt := range []struct {
		mode bserve.SecureUpgrade
		r    *http.Request
		exp  bserve.Decision
	}{
		{bserve.SecureUpgradeNone, plain, bserve.PassThrough},
		{bserve.SecureUpgradeNone, upgrade, bserve.PassThrough},
		{bserve.SecureUpgradeRedirect, plain, bserve.RedirectPermanent},
		{bserve.SecureUpgradeRedirect, upgrade, bserve.RedirectPermanent},
		{bserve.SecureUpgradeAllow, plain, bserve.PassThrough},
		{bserve.SecureUpgradeAllow, other, bserve.PassThrough},
		{bserve.SecureUpgradeAllow, upgrade, bserve.RedirectTemporary},
	} {
		assert.Equal(t, tt.exp, bserve.Decide(tt.mode, tt.r), "%s with %q", tt.mode, tt.r.Header.Get("Upgrade-Insecure-Requests"))
	}
}

func TestRedirectTarget(t *testing.T) {
	for _, tt := range []struct {
		host   string
		target string
		exp    string
	}{
		{"example.com", "/", "https://example.com:8443/"},
		{"example.com:8080", "/a/b?c=d&e", "https://example.com:8443/a/b?c=d&e"},
		{"[::1]:8080", "/x%20y", "https://[::1]:8443/x%20y"},
		{"127.0.0.1", "/", "https://127.0.0.1:8443/"},
	} {
		r := httptest.NewRequest(http.MethodGet, tt.target, nil)
		r.Host = tt.host

		got, err := bserve.RedirectTarget(r, 8443)
		require.NoError(t, err)
		assert.Equal(t, tt.exp, got)
	}

	for _, host := range []string{"", "exa mple.com", ":8080"} {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Host = host

		_, err := bserve.RedirectTarget(r, 8443)
		require.ErrorIs(t, err, bserve.ErrInvalidHost, "host %q", host)
	}
}

func TestSecureUpgradeText(t *testing.T) {
	var m bserve.SecureUpgrade
	require.NoError(t, m.UnmarshalText([]byte("Allow")))
	assert.Equal(t, bserve.SecureUpgradeAllow, m)
	assert.Equal(t, "allow", m.String())

	require.Error(t, m.UnmarshalText([]byte("force")))
	assert.Equal(t, "SecureUpgrade(9)", bserve.SecureUpgrade(9).String())
}

func TestStrictTransportHeaderValue(t *testing.T) {
	st := bserve.StrictTransport{Enabled: true, MaxAge: 365 * 24 * time.Hour, IncludeSubdomains: true, Preload: true}
	assert.Equal(t, "max-age=31536000; includeSubDomains; preload", st.HeaderValue())
	assert.Equal(t, st, bserve.DefaultStrictTransport())

	st.Preload = false
	assert.Equal(t, "max-age=31536000; includeSubDomains", st.HeaderValue())

	st.IncludeSubdomains = false
	st.MaxAge = time.Minute
	assert.Equal(t, "max-age=60", st.HeaderValue())

	st.Enabled = false
	assert.Empty(t, st.HeaderValue())
}
