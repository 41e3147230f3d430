package registry

import (
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	err := &Error{
		Kind:   KindDeleteRejected,
		Op:     "delete-manifest",
		Detail: "status 405: delete disabled",
	}
	assert.Equal(t, "delete-manifest: delete rejected: status 405: delete disabled", err.Error())

	wrapped := &Error{Kind: KindUnreachable, Op: "ping", Err: errors.New("connection refused")}
	assert.Equal(t, "ping: unreachable registry: connection refused", wrapped.Error())
	assert.ErrorContains(t, wrapped, "connection refused")
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(nil))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindNotFound, KindOf(&Error{Kind: KindNotFound, Op: "list-tags"}))

	// Kind survives wrapping
	wrapped := fmt.Errorf("failed to list tags: %w", &Error{Kind: KindNotFound, Op: "list-tags"})
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, IsNotFound(wrapped))

	cleanup := fmt.Errorf("fallback cleanup failed for myapp:v1: %w", &Error{
		Kind:   KindFallbackFailed,
		Op:     "fallback-cleanup",
		Detail: "/storage/repositories/myapp/_manifests/tags/v1: rm: permission denied",
		Err:    errors.New("exit code 1"),
	})
	assert.True(t, IsFallbackFailed(cleanup))
	assert.False(t, IsDeleteRejected(cleanup))
}

func TestClassifyTransportError(t *testing.T) {
	trust := classifyTransportError("list-repositories", x509.UnknownAuthorityError{})
	assert.Equal(t, KindTLSTrust, trust.Kind)
	assert.Equal(t, "list-repositories", trust.Op)

	var opErr error = &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	unreachable := classifyTransportError("list-repositories", opErr)
	assert.Equal(t, KindUnreachable, unreachable.Kind)

	// url.Error stringifies the x509 failure; classification must still catch it
	stringified := errors.New(`Get "https://registry:5000/v2/_catalog": x509: certificate signed by unknown authority`)
	assert.Equal(t, KindTLSTrust, classifyTransportError("list-repositories", stringified).Kind)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "unreachable registry", KindUnreachable.String())
	assert.Equal(t, "TLS trust error", KindTLSTrust.String())
	assert.Equal(t, "not found", KindNotFound.String())
	assert.Equal(t, "digest not found", KindDigestNotFound.String())
	assert.Equal(t, "delete rejected", KindDeleteRejected.String())
	assert.Equal(t, "fallback failed", KindFallbackFailed.String())
	assert.Equal(t, "usage error", KindUsage.String())
	assert.Equal(t, "registry error", KindUnknown.String())
}
