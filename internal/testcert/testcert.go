// Package testcert generates throwaway self-signed certificates for tests.
package testcert

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// PEM returns a PEM encoded certificate and key that is valid for hosts, which may be names or IPs.
func PEM(tb testing.TB, hosts ...string) (certPEM, keyPEM []byte) {
	tb.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(tb, err)

	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	require.NoError(tb, err)

	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: first(hosts)},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	require.NoError(tb, err)

	key, err := x509.MarshalECPrivateKey(priv)
	require.NoError(tb, err)

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: key})
}

// New returns a parsed certificate for hosts.
func New(tb testing.TB, hosts ...string) *tls.Certificate {
	tb.Helper()

	certPEM, keyPEM := PEM(tb, hosts...)
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	require.NoError(tb, err)

	return &cert
}

// Pool returns a pool that trusts cert.
func Pool(tb testing.TB, cert *tls.Certificate) *x509.CertPool {
	tb.Helper()

	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(tb, err)

	pool := x509.NewCertPool()
	pool.AddCert(leaf)

	return pool
}

func first(hosts []string) string {
	if len(hosts) == 0 {
		return "localhost"
	}

	return hosts[0]
}
