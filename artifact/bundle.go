package artifact

import (
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"time"

	"github.com/mongodb/grip"
	"github.com/pkg/errors"
)

// Bundle is an immutable set of TLS artifacts that were all fetched in the same
// fetch cycle: a private key, the certificate chain to serve with it and the
// certificates to trust.
type Bundle struct {
	privateKey          *rsa.PrivateKey
	certificateChain    []*x509.Certificate
	trustedCertificates []*x509.Certificate
	fetchedAt           time.Time
}

// NewBundle creates a new bundle from the decoded artifacts. The certificate
// chain must be non-empty. The slices are copied, so the caller may reuse
// them.
func NewBundle(key *rsa.PrivateKey, chain, trusted []*x509.Certificate) (*Bundle, error) {
	catcher := grip.NewBasicCatcher()
	catcher.NewWhen(key == nil, "must specify a private key")
	catcher.NewWhen(len(chain) == 0, "certificate chain must contain at least one certificate")
	for i, c := range chain {
		catcher.ErrorfWhen(c == nil, "certificate chain entry %d is nil", i)
	}
	for i, c := range trusted {
		catcher.ErrorfWhen(c == nil, "trusted certificate entry %d is nil", i)
	}
	if catcher.HasErrors() {
		return nil, errors.Wrap(catcher.Resolve(), "invalid bundle")
	}

	return &Bundle{
		privateKey:          key,
		certificateChain:    copyCertificates(chain),
		trustedCertificates: copyCertificates(trusted),
		fetchedAt:           time.Now(),
	}, nil
}

// PrivateKey returns the bundle's private key. It must not be modified.
func (b *Bundle) PrivateKey() *rsa.PrivateKey {
	return b.privateKey
}

// CertificateChain returns the certificate chain in the order it was decoded.
func (b *Bundle) CertificateChain() []*x509.Certificate {
	return copyCertificates(b.certificateChain)
}

// TrustedCertificates returns the trusted certificates in the order they were
// decoded.
func (b *Bundle) TrustedCertificates() []*x509.Certificate {
	return copyCertificates(b.trustedCertificates)
}

// FetchedAt returns the time at which the bundle's artifacts were fetched.
func (b *Bundle) FetchedAt() time.Time {
	return b.fetchedAt
}

// TLSCertificate returns the bundle's key and certificate chain as a
// certificate that can be served in a TLS handshake.
func (b *Bundle) TLSCertificate() *tls.Certificate {
	cert := &tls.Certificate{
		PrivateKey: b.privateKey,
		Leaf:       b.certificateChain[0],
	}
	for _, c := range b.certificateChain {
		cert.Certificate = append(cert.Certificate, c.Raw)
	}
	return cert
}

// TrustPool returns a new certificate pool containing the trusted
// certificates.
func (b *Bundle) TrustPool() *x509.CertPool {
	pool := x509.NewCertPool()
	for _, c := range b.trustedCertificates {
		pool.AddCert(c)
	}
	return pool
}

func copyCertificates(certs []*x509.Certificate) []*x509.Certificate {
	if certs == nil {
		return nil
	}
	copied := make([]*x509.Certificate, len(certs))
	copy(copied, certs)
	return copied
}
