// Package registry implements the client side of the distribution
// registry HTTP API used for maintenance: catalog and tag listing, digest
// resolution and manifest deletion.
package registry

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies the failures the registry API can produce.
type Kind int

const (
	KindUnknown Kind = iota
	// KindUnreachable covers connection, DNS and handshake failures.
	KindUnreachable
	// KindTLSTrust means the presented certificate is not covered by the
	// configured trust anchor.
	KindTLSTrust
	// KindNotFound means the repository or tag is absent.
	KindNotFound
	// KindDigestNotFound means the manifest lookup succeeded but the
	// response carried no content-digest header.
	KindDigestNotFound
	// KindDeleteRejected means a delete answered with a non-2xx status or
	// a non-empty body.
	KindDeleteRejected
	// KindFallbackFailed means the filesystem-level cleanup after a
	// rejected API delete also failed.
	KindFallbackFailed
	// KindUsage means an invalid argument, detected before any network
	// activity.
	KindUsage
)

func (k Kind) String() string {
	switch k {
	case KindUnreachable:
		return "unreachable registry"
	case KindTLSTrust:
		return "TLS trust error"
	case KindNotFound:
		return "not found"
	case KindDigestNotFound:
		return "digest not found"
	case KindDeleteRejected:
		return "delete rejected"
	case KindFallbackFailed:
		return "fallback failed"
	case KindUsage:
		return "usage error"
	default:
		return "registry error"
	}
}

// Error is the structured error returned by the client.
type Error struct {
	Kind   Kind
	Op     string // failing operation, e.g. "list-tags"
	Detail string // response body or extra context, already capped
	Err    error  // underlying cause, if any
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind recorded in err, or KindUnknown
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsUnreachable(err error) bool    { return KindOf(err) == KindUnreachable }
func IsTLSTrust(err error) bool       { return KindOf(err) == KindTLSTrust }
func IsNotFound(err error) bool       { return KindOf(err) == KindNotFound }
func IsDigestNotFound(err error) bool { return KindOf(err) == KindDigestNotFound }
func IsDeleteRejected(err error) bool { return KindOf(err) == KindDeleteRejected }
func IsFallbackFailed(err error) bool { return KindOf(err) == KindFallbackFailed }
func IsUsage(err error) bool          { return KindOf(err) == KindUsage }

// classifyTransportError sorts a request error into a trust failure or a
// reachability failure.
func classifyTransportError(op string, err error) *Error {
	if isTLSTrustError(err) {
		return &Error{Kind: KindTLSTrust, Op: op, Err: err}
	}
	return &Error{Kind: KindUnreachable, Op: op, Err: err}
}

func isTLSTrustError(err error) bool {
	var unknownAuthority x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthority) {
		return true
	}
	var hostnameErr x509.HostnameError
	if errors.As(err, &hostnameErr) {
		return true
	}
	var certInvalid x509.CertificateInvalidError
	if errors.As(err, &certInvalid) {
		return true
	}
	var verifyErr *tls.CertificateVerificationError
	if errors.As(err, &verifyErr) {
		return true
	}
	// Some transports stringify the x509 error before wrapping it
	return strings.Contains(err.Error(), "x509:")
}
