package openssl

import (
	"errors"
	"io"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/backend"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/handle"
)

func TestRemapStackError(t *testing.T) {
	entries := []backend.ErrorEntry{{Library: "PEM routines", Reason: "no start line"}}

	err := RemapError(&backend.StackError{Op: "PEM_read_bio_X509", Entries: entries})
	var oe *Error
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, KindOperationFailed, oe.Kind)
	assert.Equal(t, "PEM_read_bio_X509", oe.Op)
	assert.Equal(t, []string{"no start line"}, oe.Stack.Reasons())
	assert.ErrorIs(t, err, ErrOperationFailed)
	assert.NotErrorIs(t, err, ErrAllocationFailed)
	assert.Contains(t, err.Error(), "no start line")

	err = RemapError(&backend.StackError{Op: "SSL_new", Entries: entries, Alloc: true})
	assert.ErrorIs(t, err, ErrAllocationFailed)
	assert.NotErrorIs(t, err, ErrOperationFailed)
	assert.Len(t, StackOf(err), 1)
}

func TestRemapKeepsCause(t *testing.T) {
	cause := errors.New("no tty")
	entries := []backend.ErrorEntry{{Reason: "problems getting password"}}
	err := RemapError(&backend.StackError{Op: "PEM_read_bio_PrivateKey", Entries: entries, Cause: cause})
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrOperationFailed)
	assert.Contains(t, err.Error(), "problems getting password")
}

func TestNilPointerIsAllocationFailure(t *testing.T) {
	_, err := handle.Own[unsafe.Pointer](nil, func(unsafe.Pointer) {})
	assert.ErrorIs(t, err, ErrAllocationFailed)
	assert.ErrorIs(t, RemapError(err), ErrAllocationFailed)
}

func TestRemapPassThrough(t *testing.T) {
	assert.NoError(t, RemapError(nil))
	assert.Same(t, io.EOF, RemapError(io.EOF))

	orig := &Error{Kind: KindPeerClosed}
	assert.Same(t, orig, RemapError(orig))
	assert.ErrorIs(t, orig, ErrPeerClosed)
}

func TestHostIOError(t *testing.T) {
	assert.NoError(t, HostIOError("read", nil))

	err := HostIOError("read", io.ErrUnexpectedEOF)
	var oe *Error
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, KindHostIO, oe.Kind)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.ErrorIs(t, err, ErrHostIO)
	assert.Nil(t, StackOf(err))

	assert.ErrorIs(t, HostIOError("write", ErrWouldBlock), ErrWouldBlock)
}

func TestClosed(t *testing.T) {
	err := Closed("Hasher.Write")
	assert.ErrorIs(t, err, ErrClosed)
	assert.Contains(t, err.Error(), "Hasher.Write")
}

func TestCallbackPanicUnwrap(t *testing.T) {
	var err error = &CallbackPanic{Callback: "verify", Value: "boom"}
	assert.ErrorIs(t, err, ErrCallbackPanic)
	assert.Contains(t, err.Error(), "verify")
}

func TestZeroizeBytes(t *testing.T) {
	buf := []byte("secret")
	ZeroizeBytes(buf)
	assert.Equal(t, make([]byte, 6), buf)
	ZeroizeBytes(nil)
}
