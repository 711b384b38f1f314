package tlsvault

import (
	"context"

	"github.com/mongodb/grip"
)

// SecretReference identifies the secrets that hold the TLS artifacts.
type SecretReference struct {
	// PrivateKeySecretID is the ID of the secret containing the PKCS8
	// PEM-encoded private key.
	PrivateKeySecretID string
	// CertificateSecretID is the ID of the secret containing the PEM-encoded
	// certificates. These are used as the trusted certificates and, unless
	// CertificateChainSecretID is set, as the certificate chain.
	CertificateSecretID string
	// CertificateChainSecretID is the optional ID of a separate secret
	// containing the PEM-encoded certificate chain.
	CertificateChainSecretID string
}

// Validate checks that the required secret IDs are set.
func (r SecretReference) Validate() error {
	catcher := grip.NewBasicCatcher()
	catcher.NewWhen(r.PrivateKeySecretID == "", "must specify a private key secret")
	catcher.NewWhen(r.CertificateSecretID == "", "must specify a certificate secret")
	return catcher.Resolve()
}

// ChainSecretID returns the ID of the secret that holds the certificate chain.
func (r SecretReference) ChainSecretID() string {
	if r.CertificateChainSecretID != "" {
		return r.CertificateChainSecretID
	}
	return r.CertificateSecretID
}

// HasSeparateChain returns whether the certificate chain is held in a
// different secret from the trusted certificates.
func (r SecretReference) HasSeparateChain() bool {
	return r.ChainSecretID() != r.CertificateSecretID
}

// SecretReferenceResolver determines which secrets hold the TLS artifacts from
// the environment the process runs in.
type SecretReferenceResolver func(ctx context.Context) (SecretReference, error)

// StaticSecretReference returns a resolver that always resolves to the given
// reference.
func StaticSecretReference(ref SecretReference) SecretReferenceResolver {
	return func(context.Context) (SecretReference, error) {
		return ref, nil
	}
}
