package testutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
	testKeyErr  error
)

// TestRSAKey returns an RSA key shared by all tests in the process. Generating
// RSA keys is slow, so the key is only generated once.
func TestRSAKey(t *testing.T) *rsa.PrivateKey {
	testKeyOnce.Do(func() {
		testKey, testKeyErr = rsa.GenerateKey(rand.Reader, 2048)
	})
	require.NoError(t, testKeyErr)
	return testKey
}

// PrivateKeyPEM returns the shared test RSA key as PKCS8 PEM text.
func PrivateKeyPEM(t *testing.T) string {
	der, err := x509.MarshalPKCS8PrivateKey(TestRSAKey(t))
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
}

// ECDSAPrivateKeyPEM returns a freshly generated ECDSA key as PKCS8 PEM text.
func ECDSAPrivateKeyPEM(t *testing.T) string {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
}

// CertificatePEM returns a self-signed certificate for the shared test key
// with the given serial number as PEM text.
func CertificatePEM(t *testing.T, serial int64) string {
	key := TestRSAKey(t)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(serial),
		Subject: pkix.Name{
			CommonName:   "tlsvault.test",
			Organization: []string{"tlsvault"},
		},
		DNSNames:              []string{"tlsvault.test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
}

// CertificateChainPEM returns the concatenated PEM text of self-signed
// certificates with the given serial numbers, in order.
func CertificateChainPEM(t *testing.T, serials ...int64) string {
	var sb strings.Builder
	for _, serial := range serials {
		sb.WriteString(CertificatePEM(t, serial))
	}
	return sb.String()
}
