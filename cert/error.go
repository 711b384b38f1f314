package cert

import (
	"fmt"

	"github.com/pkg/errors"
)

// CertificateDecodeError indicates that PEM text contains a certificate block
// that could not be decoded.
type CertificateDecodeError struct {
	// Block is the 0-based index of the malformed certificate block.
	Block int
	// Reason describes what is wrong with the block.
	Reason string
	// Cause is the underlying decoding or parsing error, if any.
	Cause error
}

// NewCertificateDecodeError returns a new error for the malformed certificate
// block at the given index.
func NewCertificateDecodeError(block int, reason string, cause error) *CertificateDecodeError {
	return &CertificateDecodeError{
		Block:  block,
		Reason: reason,
		Cause:  cause,
	}
}

// Error returns the formatted error message.
func (e *CertificateDecodeError) Error() string {
	msg := fmt.Sprintf("decoding certificate block %d: %s", e.Block, e.Reason)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", msg, e.Cause.Error())
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *CertificateDecodeError) Unwrap() error {
	return e.Cause
}

// IsCertificateDecodeError returns whether or not the error is due to a
// malformed certificate.
func IsCertificateDecodeError(err error) bool {
	var e *CertificateDecodeError
	return errors.As(err, &e)
}

// PrivateKeyDecodeReason describes why a private key could not be decoded.
type PrivateKeyDecodeReason string

const (
	// PrivateKeyEmpty indicates that there was no key material.
	PrivateKeyEmpty PrivateKeyDecodeReason = "empty key"
	// PrivateKeyInvalidEncoding indicates that the key material is not valid
	// base64.
	PrivateKeyInvalidEncoding PrivateKeyDecodeReason = "invalid base64 encoding"
	// PrivateKeyInvalidSpec indicates that the decoded bytes are not a valid
	// PKCS8 key.
	PrivateKeyInvalidSpec PrivateKeyDecodeReason = "invalid PKCS8 key spec"
	// PrivateKeyUnsupportedAlgorithm indicates that the key is valid PKCS8 but
	// uses an algorithm other than RSA.
	PrivateKeyUnsupportedAlgorithm PrivateKeyDecodeReason = "unsupported key algorithm"
)

// PrivateKeyDecodeError indicates that PEM text could not be decoded into a
// private key.
type PrivateKeyDecodeError struct {
	Reason PrivateKeyDecodeReason
	Cause  error
}

// NewPrivateKeyDecodeError returns a new error for an undecodable private key.
func NewPrivateKeyDecodeError(reason PrivateKeyDecodeReason, cause error) *PrivateKeyDecodeError {
	return &PrivateKeyDecodeError{
		Reason: reason,
		Cause:  cause,
	}
}

// Error returns the formatted error message. It never includes key material.
func (e *PrivateKeyDecodeError) Error() string {
	msg := fmt.Sprintf("decoding private key: %s", e.Reason)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", msg, e.Cause.Error())
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *PrivateKeyDecodeError) Unwrap() error {
	return e.Cause
}

// IsPrivateKeyDecodeError returns whether or not the error is due to an
// undecodable private key.
func IsPrivateKeyDecodeError(err error) bool {
	var e *PrivateKeyDecodeError
	return errors.As(err, &e)
}
