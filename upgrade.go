package bserve

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/net/http/httpguts"
)

// SecureUpgrade decides whether requests on a plaintext binding are sent to the secure binding.
type SecureUpgrade int

const (
	// SecureUpgradeNone serves plaintext requests as they are.
	SecureUpgradeNone SecureUpgrade = iota
	// SecureUpgradeRedirect permanently redirects every plaintext request.
	SecureUpgradeRedirect
	// SecureUpgradeAllow redirects plaintext requests that ask for it with Upgrade-Insecure-Requests.
	SecureUpgradeAllow
)

var upgradeNames = map[SecureUpgrade]string{
	SecureUpgradeNone:     "none",
	SecureUpgradeRedirect: "redirect",
	SecureUpgradeAllow:    "allow",
}

func (m SecureUpgrade) String() string {
	if s, ok := upgradeNames[m]; ok {
		return s
	}

	return "SecureUpgrade(" + strconv.Itoa(int(m)) + ")"
}

// ParseSecureUpgrade parses "none", "redirect" or "allow".
func ParseSecureUpgrade(s string) (SecureUpgrade, error) {
	for m, name := range upgradeNames {
		if strings.EqualFold(s, name) {
			return m, nil
		}
	}

	return 0, errors.Errorf("unknown secure upgrade mode %q", s)
}

// UnmarshalText allows the mode to be parsed from the environment.
func (m *SecureUpgrade) UnmarshalText(text []byte) error {
	v, err := ParseSecureUpgrade(string(text))
	if err != nil {
		return err
	}

	*m = v

	return nil
}

// Decision is the outcome of the upgrade policy for a plaintext request.
type Decision int

const (
	PassThrough Decision = iota
	RedirectPermanent
	RedirectTemporary
)

// Decide applies mode to a request that arrived on a plaintext binding.
func Decide(mode SecureUpgrade, r *http.Request) Decision {
	switch mode {
	case SecureUpgradeRedirect:
		return RedirectPermanent
	case SecureUpgradeAllow:
		if strings.TrimSpace(r.Header.Get("Upgrade-Insecure-Requests")) == "1" {
			return RedirectTemporary
		}
	}

	return PassThrough
}

// RedirectTarget builds the secure equivalent of r: the host of the Host header, the secure port and the
// request's path and query as received.
func RedirectTarget(r *http.Request, securePort int) (string, error) {
	host := r.Host
	if host == "" || !httpguts.ValidHostHeader(host) {
		return "", errors.Wrapf(ErrInvalidHost, "host %q", host)
	}

	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	} else {
		host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	}

	if host == "" {
		return "", errors.Wrapf(ErrInvalidHost, "host %q", r.Host)
	}

	return "https://" + net.JoinHostPort(host, strconv.Itoa(securePort)) + r.URL.RequestURI(), nil
}

// StrictTransport configures the Strict-Transport-Security header of the secure binding.
type StrictTransport struct {
	Enabled           bool
	MaxAge            time.Duration
	IncludeSubdomains bool
	Preload           bool
}

// DefaultStrictTransport announces HSTS for a year, for all subdomains and allows preloading.
func DefaultStrictTransport() StrictTransport {
	return StrictTransport{Enabled: true, MaxAge: 365 * 24 * time.Hour, IncludeSubdomains: true, Preload: true}
}

// HeaderValue formats the header, or returns an empty string when disabled.
func (s StrictTransport) HeaderValue() string {
	if !s.Enabled {
		return ""
	}

	v := "max-age=" + strconv.FormatInt(int64(s.MaxAge/time.Second), 10)
	if s.IncludeSubdomains {
		v += "; includeSubDomains"
	}

	if s.Preload {
		v += "; preload"
	}

	return v
}

// upgradeMiddleware applies the server's current upgrade mode to plaintext requests.
func upgradeMiddleware(mode func() SecureUpgrade, securePort func() (int, bool)) StdMiddleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := Decide(mode(), r)
			port, ok := securePort()
			if decision == PassThrough || !ok {
				next.ServeHTTP(w, r)
				return
			}

			target, err := RedirectTarget(r, port)
			if err != nil {
				http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
				return
			}

			code := http.StatusMovedPermanently
			if decision == RedirectTemporary {
				code = http.StatusTemporaryRedirect
				w.Header().Set("Vary", "Upgrade-Insecure-Requests")
			}

			w.Header().Set("Location", target)
			w.WriteHeader(code)
		})
	}
}

// strictTransportMiddleware adds the server's current HSTS header to every secure response.
func strictTransportMiddleware(settings func() StrictTransport) StdMiddleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v := settings().HeaderValue(); v != "" {
				w.Header().Set("Strict-Transport-Security", v)
			}

			next.ServeHTTP(w, r)
		})
	}
}
