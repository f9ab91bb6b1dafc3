package bhost

import (
	"context"
	"crypto/tls"
	"os"

	"github.com/advdv/bserve"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/cockroachdb/errors"
	"github.com/tidwall/gjson"
)

// Fields of a certificate secret and suffixes of certificate parameters.
const (
	CertificateField = "certificate"
	PrivateKeyField  = "private_key"
)

// ParameterReader is the part of the SSM client used to read certificates.
type ParameterReader interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// LoadFileCertificate reads a PEM encoded certificate chain and key from disk.
func LoadFileCertificate(certFile, keyFile string) (*tls.Certificate, error) {
	certPEM, err := os.ReadFile(certFile)
	if err != nil {
		return nil, errors.Wrap(err, "read certificate file")
	}

	keyPEM, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, errors.Wrap(err, "read key file")
	}

	return bserve.LoadCertificate(certPEM, keyPEM)
}

// LoadSecretCertificate reads a certificate from a JSON secret with a "certificate" and "private_key" field.
func LoadSecretCertificate(ctx context.Context, secrets SecretReader, secretID string) (*tls.Certificate, error) {
	secret, err := secrets.GetSecretString(ctx, secretID)
	if err != nil {
		return nil, err
	}

	fields := gjson.GetMany(secret, CertificateField, PrivateKeyField)
	for i, name := range []string{CertificateField, PrivateKeyField} {
		if !fields[i].Exists() {
			return nil, errors.Errorf("secret path %q not found in secret %q", name, secretID)
		}
	}

	cert, err := bserve.LoadCertificate([]byte(fields[0].String()), []byte(fields[1].String()))
	if err != nil {
		return nil, errors.Wrapf(err, "certificate in secret %q", secretID)
	}

	return cert, nil
}

// LoadParameterCertificate reads a certificate from the parameters "<prefix>/certificate" and
// "<prefix>/private_key".
func LoadParameterCertificate(ctx context.Context, params ParameterReader, prefix string) (*tls.Certificate, error) {
	values := make([][]byte, 0, 2)

	for _, name := range []string{prefix + "/" + CertificateField, prefix + "/" + PrivateKeyField} {
		out, err := params.GetParameter(ctx, &ssm.GetParameterInput{
			Name:           aws.String(name),
			WithDecryption: aws.Bool(true),
		})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to get parameter %q", name)
		}

		if out.Parameter == nil {
			return nil, errors.Errorf("parameter %q has no value", name)
		}

		values = append(values, []byte(aws.ToString(out.Parameter.Value)))
	}

	return bserve.LoadCertificate(values[0], values[1])
}

// LoadHostCertificates builds a host keyed provider from a DynamoDB table. Every item holds a "host"
// and the "secret_id" of the certificate secret for that host. An item with host "*" becomes the default.
func LoadHostCertificates(
	ctx context.Context, db dynamodb.ScanAPIClient, table string, secrets SecretReader,
) (*bserve.HostCertificateProvider, error) {
	var (
		certs    = map[string]*tls.Certificate{}
		fallback []bserve.HostCertificateOption
	)

	pages := dynamodb.NewScanPaginator(db, &dynamodb.ScanInput{TableName: aws.String(table)})

	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to scan bindings table %q", table)
		}

		for _, item := range page.Items {
			host, secretID := stringAttr(item, "host"), stringAttr(item, "secret_id")
			if host == "" || secretID == "" {
				return nil, errors.Errorf("binding in table %q without host or secret_id", table)
			}

			cert, err := LoadSecretCertificate(ctx, secrets, secretID)
			if err != nil {
				return nil, errors.Wrapf(err, "binding for host %q", host)
			}

			if host == "*" {
				fallback = []bserve.HostCertificateOption{bserve.WithDefaultCertificate(cert)}
				continue
			}

			certs[host] = cert
		}
	}

	return bserve.NewHostCertificateProvider(certs, fallback...), nil
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	v, ok := item[name].(*types.AttributeValueMemberS)
	if !ok {
		return ""
	}

	return v.Value
}

// CertificateParams holds the dependencies for loading the certificates of the secure binding.
type CertificateParams struct {
	Env     Environment
	Secrets SecretReader
	Params  ParameterReader
	DB      dynamodb.ScanAPIClient
}

// NewCertificateProvider picks the certificate source from the environment. The first configured source
// wins: the bindings table, a secret, a parameter prefix and finally a pair of files. It returns nil when no
// source is configured.
func NewCertificateProvider(ctx context.Context, p CertificateParams) (bserve.CertificateProvider, error) {
	env := p.Env.base()

	var (
		cert *tls.Certificate
		err  error
	)

	switch {
	case env.TLSBindingsTable != "":
		provider, err := LoadHostCertificates(ctx, p.DB, env.TLSBindingsTable, p.Secrets)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load certificates")
		}

		return provider, nil
	case env.TLSCertSecretID != "":
		cert, err = LoadSecretCertificate(ctx, p.Secrets, env.TLSCertSecretID)
	case env.TLSCertParameter != "":
		cert, err = LoadParameterCertificate(ctx, p.Params, env.TLSCertParameter)
	case env.TLSCertFile != "" || env.TLSKeyFile != "":
		cert, err = LoadFileCertificate(env.TLSCertFile, env.TLSKeyFile)
	default:
		return nil, nil
	}

	if err != nil {
		return nil, errors.Wrap(err, "failed to load certificate")
	}

	return bserve.NewSimpleCertificateProvider(env.TLSHost, cert), nil
}
