package bserve

import (
	"crypto/tls"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

// CertificateProvider selects the certificate to present during a handshake. An empty server name means
// the client did not send SNI. Returning nil aborts the handshake.
type CertificateProvider interface {
	Provide(serverName string) *tls.Certificate

	// SupportedHosts lists the hosts the provider claims to serve. It is informational and not consulted
	// while resolving.
	SupportedHosts() []string
}

// SimpleCertificateProvider presents one certificate regardless of the requested host.
type SimpleCertificateProvider struct {
	host string
	cert *tls.Certificate
}

// NewSimpleCertificateProvider inits a provider that serves cert for host, and for every other name.
func NewSimpleCertificateProvider(host string, cert *tls.Certificate) *SimpleCertificateProvider {
	return &SimpleCertificateProvider{host: host, cert: cert}
}

func (p *SimpleCertificateProvider) Provide(string) *tls.Certificate { return p.cert }
func (p *SimpleCertificateProvider) SupportedHosts() []string        { return []string{p.host} }

// HostCertificateProvider selects a certificate by exact, case-sensitive match of the server name.
type HostCertificateProvider struct {
	certs    map[string]*tls.Certificate
	fallback *tls.Certificate
}

// HostCertificateOption configures a [HostCertificateProvider].
type HostCertificateOption func(*HostCertificateProvider)

// WithDefaultCertificate presents cert for unknown server names and for clients without SNI.
func WithDefaultCertificate(cert *tls.Certificate) HostCertificateOption {
	return func(p *HostCertificateProvider) { p.fallback = cert }
}

// NewHostCertificateProvider inits a provider from host to certificate bindings.
func NewHostCertificateProvider(
	certs map[string]*tls.Certificate, opts ...HostCertificateOption,
) *HostCertificateProvider {
	p := &HostCertificateProvider{certs: make(map[string]*tls.Certificate, len(certs))}
	for host, cert := range certs {
		p.certs[host] = cert
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Add binds cert to host. It must not be called once the provider serves handshakes.
func (p *HostCertificateProvider) Add(host string, cert *tls.Certificate) *HostCertificateProvider {
	p.certs[host] = cert
	return p
}

func (p *HostCertificateProvider) Provide(serverName string) *tls.Certificate {
	if cert, ok := p.certs[serverName]; ok && serverName != "" {
		return cert
	}

	return p.fallback
}

func (p *HostCertificateProvider) SupportedHosts() []string {
	hosts := lo.Keys(p.certs)
	slices.Sort(hosts)

	return hosts
}

// TLSConfig builds the server config for a binding that presents the certificates of p.
func TLSConfig(p CertificateProvider, minVersion uint16) *tls.Config {
	if minVersion == 0 {
		minVersion = tls.VersionTLS12
	}

	return &tls.Config{
		MinVersion: minVersion,
		GetCertificate: func(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
			cert := p.Provide(hello.ServerName)
			if cert == nil {
				return nil, errors.Wrapf(ErrNoCertificate, "server name %q", hello.ServerName)
			}

			return cert, nil
		},
	}
}

// LoadCertificate parses a PEM encoded certificate chain and private key.
func LoadCertificate(certPEM, keyPEM []byte) (*tls.Certificate, error) {
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, errors.Wrap(err, "parse key pair")
	}

	return &cert, nil
}
