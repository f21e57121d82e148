package openssl

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/backend"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/handle"
)

var (
	// ErrAllocationFailed is matched by errors from constructors that got
	// NULL back from OpenSSL, and by wrapping a NULL pointer.
	ErrAllocationFailed = handle.ErrNilPointer
	// ErrOperationFailed is matched by errors from OpenSSL calls that did
	// work and failed, such as parsing, signing or verifying. They carry the
	// drained error stack.
	ErrOperationFailed = errors.New("openssl: operation failed")
	// ErrHostIO is matched when the caller-supplied stream under a TLS
	// session returned an error.
	ErrHostIO = errors.New("openssl: host stream failed")
	// ErrWouldBlock reports that a TLS operation needs more I/O on a
	// non-blocking stream. Host streams may also return it to say "no data
	// yet".
	ErrWouldBlock = backend.ErrWouldBlock
	// ErrPeerClosed reports that the peer sent close_notify.
	ErrPeerClosed = errors.New("openssl: peer closed the connection")
	// ErrCallbackPanic matches the value re-raised after a Go callback
	// panicked inside OpenSSL.
	ErrCallbackPanic = backend.ErrCallbackPanic
	// ErrClosed is returned by methods called after Free or Close.
	ErrClosed = errors.New("openssl: object already freed")
	// ErrNotBuilt reports a build without the native bindings.
	ErrNotBuilt = backend.ErrNotBuilt
	// ErrUnsupported reports a feature the linked library lacks.
	ErrUnsupported = backend.ErrUnsupported
)

// Kind classifies an Error.
type Kind int

const (
	KindUnknown Kind = iota
	KindAllocationFailed
	KindOperationFailed
	KindWouldBlock
	KindPeerClosed
	KindHostIO
	KindCallbackPanic
)

func (k Kind) String() string {
	switch k {
	case KindAllocationFailed:
		return "allocation failed"
	case KindOperationFailed:
		return "operation failed"
	case KindWouldBlock:
		return "would block"
	case KindPeerClosed:
		return "peer closed"
	case KindHostIO:
		return "host io"
	case KindCallbackPanic:
		return "callback panic"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindAllocationFailed:
		return ErrAllocationFailed
	case KindOperationFailed:
		return ErrOperationFailed
	case KindWouldBlock:
		return ErrWouldBlock
	case KindPeerClosed:
		return ErrPeerClosed
	case KindHostIO:
		return ErrHostIO
	case KindCallbackPanic:
		return ErrCallbackPanic
	default:
		return nil
	}
}

// ErrorEntry is one record from the OpenSSL error queue.
type ErrorEntry = backend.ErrorEntry

// ErrorStack is the ordered content of the error queue at the moment a call
// failed, oldest first.
type ErrorStack []ErrorEntry

func (s ErrorStack) String() string {
	parts := make([]string, 0, len(s))
	for _, e := range s {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, ", ")
}

// Reasons returns the reason strings of every entry.
func (s ErrorStack) Reasons() []string {
	out := make([]string, 0, len(s))
	for _, e := range s {
		out = append(out, e.Reason)
	}
	return out
}

// CallbackPanic is the value a stream re-panics with when a callback panicked
// while OpenSSL was running it. Value is what the callback panicked with.
type CallbackPanic = backend.CallbackPanic

// Error is the structured form of every failure reported by this module.
type Error struct {
	Kind  Kind
	Op    string
	Stack ErrorStack
	// Err is the Go error behind the failure: the host stream's error for
	// KindHostIO, or the error a callback returned.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("openssl: ")
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch {
	case len(e.Stack) > 0:
		b.WriteString(e.Stack.String())
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(e.Kind.String())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && s == target
}

// RemapError converts backend errors into *Error. Errors that are already
// public, and nil, pass through unchanged. It is exported for subpackages.
func RemapError(err error) error {
	if err == nil {
		return nil
	}
	var oe *Error
	if errors.As(err, &oe) {
		return err
	}
	var se *backend.StackError
	if errors.As(err, &se) {
		kind := KindOperationFailed
		if se.Alloc {
			kind = KindAllocationFailed
		}
		return &Error{Kind: kind, Op: se.Op, Stack: ErrorStack(se.Entries), Err: se.Cause}
	}
	return err
}

// HostIOError wraps an error returned by a caller-supplied stream.
func HostIOError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrWouldBlock) {
		return &Error{Kind: KindWouldBlock, Op: op, Err: err}
	}
	return &Error{Kind: KindHostIO, Op: op, Err: err}
}

// StackOf returns the OpenSSL error stack carried by err, if any. Besides
// *Error it understands any error in the chain with a Stack() ErrorStack
// method, such as the TLS error type.
func StackOf(err error) ErrorStack {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Stack
	}
	var st interface{ Stack() ErrorStack }
	if errors.As(err, &st) {
		return st.Stack()
	}
	return nil
}

// Closed wraps ErrClosed with the name of the method that was refused.
func Closed(op string) error {
	return fmt.Errorf("%w: %s", ErrClosed, op)
}
