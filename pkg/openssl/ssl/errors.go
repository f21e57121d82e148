//go:build cgo && !windows

package ssl

import (
	"errors"
	"fmt"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/backend"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/x509"
)

var (
	// ErrSNINoAck makes a servername callback decline the name without
	// failing the handshake.
	ErrSNINoAck = errors.New("ssl: servername not acknowledged")
	// ErrALPNNoAck makes an ALPN select callback negotiate no protocol.
	ErrALPNNoAck = errors.New("ssl: no application protocol selected")
	// ErrIdentityTooLong and ErrPSKTooLong are returned when a PSK callback's
	// answer does not fit OpenSSL's buffers.
	ErrIdentityTooLong = errors.New("ssl: psk identity too long")
	ErrPSKTooLong      = errors.New("ssl: psk too long")
	// ErrCookieTooLong is returned when a DTLS cookie exceeds the protocol limit.
	ErrCookieTooLong = errors.New("ssl: dtls cookie too long")
	// ErrInvalidProtocols is returned for an ALPN list that cannot be
	// encoded in wire format.
	ErrInvalidProtocols = errors.New("ssl: invalid protocol list")
)

// ErrorCode is the value of SSL_get_error for a failed operation.
type ErrorCode int

const (
	ErrorNone        ErrorCode = backend.SSLErrorNone
	ErrorSSL         ErrorCode = backend.SSLErrorSSL
	ErrorWantRead    ErrorCode = backend.SSLErrorWantRead
	ErrorWantWrite   ErrorCode = backend.SSLErrorWantWrite
	ErrorWantX509    ErrorCode = backend.SSLErrorWantX509
	ErrorSyscall     ErrorCode = backend.SSLErrorSyscall
	ErrorZeroReturn  ErrorCode = backend.SSLErrorZeroReturn
	ErrorWantConnect ErrorCode = backend.SSLErrorWantConnect
	ErrorWantAccept  ErrorCode = backend.SSLErrorWantAccept
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorNone:
		return "none"
	case ErrorSSL:
		return "ssl"
	case ErrorWantRead:
		return "want read"
	case ErrorWantWrite:
		return "want write"
	case ErrorWantX509:
		return "want x509 lookup"
	case ErrorSyscall:
		return "syscall"
	case ErrorZeroReturn:
		return "zero return"
	case ErrorWantConnect:
		return "want connect"
	case ErrorWantAccept:
		return "want accept"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

// Error is a failed TLS operation. Code says what OpenSSL wants; the cause
// is the drained error stack, the host stream's own error, or both.
type Error struct {
	Code  ErrorCode
	stack openssl.ErrorStack
	io    error
}

func (e *Error) Error() string {
	switch {
	case len(e.stack) > 0:
		return fmt.Sprintf("ssl: %s: %s", e.Code, e.stack)
	case e.io != nil:
		return fmt.Sprintf("ssl: %s: %v", e.Code, e.io)
	case e.Code == ErrorZeroReturn:
		return "ssl: the peer closed the TLS session"
	case e.Code == ErrorSyscall:
		return "ssl: unexpected EOF"
	default:
		return "ssl: " + e.Code.String()
	}
}

// Stack is the OpenSSL error stack, empty unless the failure came from the
// library itself.
func (e *Error) Stack() openssl.ErrorStack { return e.stack }

// IOError is the error the host stream returned, if any.
func (e *Error) IOError() error { return e.io }

func (e *Error) Unwrap() error { return e.io }

func (e *Error) Is(target error) bool {
	switch target {
	case openssl.ErrWouldBlock:
		return e.Code == ErrorWantRead || e.Code == ErrorWantWrite
	case openssl.ErrPeerClosed:
		return e.Code == ErrorZeroReturn
	case openssl.ErrOperationFailed:
		return len(e.stack) > 0
	case openssl.ErrHostIO:
		return e.io != nil && !errors.Is(e.io, openssl.ErrWouldBlock)
	default:
		return false
	}
}

// As exposes the failure as an *openssl.Error. A recorded host stream error
// is the cause and is classified by openssl.HostIOError; otherwise the
// queued diagnostics make it KindOperationFailed.
func (e *Error) As(target any) bool {
	t, ok := target.(**openssl.Error)
	if !ok {
		return false
	}
	op := "ssl " + e.Code.String()
	switch {
	case e.io != nil:
		var oe *openssl.Error
		if !errors.As(openssl.HostIOError(op, e.io), &oe) {
			return false
		}
		oe.Stack = e.stack
		*t = oe
		return true
	case len(e.stack) > 0:
		*t = &openssl.Error{Kind: openssl.KindOperationFailed, Op: op, Stack: e.stack}
		return true
	default:
		return false
	}
}

func (e *Error) wouldBlock() bool {
	return e.Code == ErrorWantRead || e.Code == ErrorWantWrite
}

// HandshakeError is returned by Connect, Accept and MidHandshake.Handshake.
// When the stream reported would-block, Mid holds the suspended handshake
// and calling Mid.Handshake resumes it. Otherwise Mid is nil and the
// connection has been released.
type HandshakeError struct {
	Mid *MidHandshake
	Err *Error
	// VerifyResult is the peer verification outcome at the time of failure.
	VerifyResult x509.VerifyResult
}

func (e *HandshakeError) Error() string {
	if e.Mid != nil {
		return "ssl: handshake interrupted: " + e.Err.Error()
	}
	if !e.VerifyResult.OK() {
		return fmt.Sprintf("ssl: handshake failed: %s (verify: %s)", e.Err, e.VerifyResult)
	}
	return "ssl: handshake failed: " + e.Err.Error()
}

func (e *HandshakeError) Unwrap() error { return e.Err }

func (e *HandshakeError) Is(target error) bool {
	return target == openssl.ErrWouldBlock && e.Mid != nil
}

// AlertError lets a servername callback choose the TLS alert sent with a
// rejection.
type AlertError struct {
	Alert int
	// Warning sends the alert at warning level and keeps the handshake going.
	Warning bool
}

func (e *AlertError) Error() string {
	return fmt.Sprintf("ssl: servername rejected with alert %d", e.Alert)
}

// AlertUnrecognizedName is the alert sent when a servername callback fails
// without choosing one.
const AlertUnrecognizedName = 112
