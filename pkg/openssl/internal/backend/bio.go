//go:build cgo && !windows

package backend

/*
#include "shim.h"
*/
import "C"

import (
	"errors"
	"io"
	"net"
	"os"
	"runtime/debug"
	"unsafe"

	"golang.org/x/sys/unix"
)

// StreamState is the Go side of a stream BIO: the host stream plus the error
// or panic produced by the last callback, waiting to be collected once the
// OpenSSL call that triggered it has returned.
type StreamState struct {
	Stream io.ReadWriter
	// MTU answers BIO_CTRL_DGRAM_QUERY_MTU when positive.
	MTU int

	handle handle
	err    error
	panic  *CallbackPanic
}

// TakeError returns and clears the host I/O error recorded by the BIO.
func (s *StreamState) TakeError() error {
	err := s.err
	s.err = nil
	return err
}

// TakePanic returns and clears a panic captured during the last foreign call.
func (s *StreamState) TakePanic() *CallbackPanic {
	p := s.panic
	s.panic = nil
	return p
}

func (s *StreamState) setPanic(p *CallbackPanic) {
	if s.panic == nil {
		s.panic = p
	}
}

// Retryable reports whether a host stream error means "try again later".
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrWouldBlock) ||
		errors.Is(err, unix.EAGAIN) ||
		errors.Is(err, unix.EWOULDBLOCK) ||
		errors.Is(err, unix.EINTR) ||
		errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func bioState(b *C.BIO) *StreamState {
	v, ok := get(C.BIO_get_data(b))
	if !ok {
		return nil
	}
	st, _ := v.(*StreamState)
	return st
}

//export osslGoBioRead
func osslGoBioRead(b *C.BIO, buf *C.char, n C.int) (ret C.int) {
	C.X_BIO_clear_retry_flags(b)
	st := bioState(b)
	if st == nil {
		return -1
	}
	defer st.captureInto("bio read", &ret)
	if n <= 0 {
		return 0
	}
	got, err := st.Stream.Read(cslice(unsafe.Pointer(buf), int(n)))
	if got > 0 {
		return C.int(got)
	}
	switch {
	case err == nil:
		st.err = ErrWouldBlock
		C.X_BIO_set_retry_read(b)
		return -1
	case errors.Is(err, io.EOF):
		return 0
	case Retryable(err):
		st.err = err
		C.X_BIO_set_retry_read(b)
		return -1
	default:
		st.err = err
		return -1
	}
}

//export osslGoBioWrite
func osslGoBioWrite(b *C.BIO, buf *C.char, n C.int) (ret C.int) {
	C.X_BIO_clear_retry_flags(b)
	st := bioState(b)
	if st == nil {
		return -1
	}
	defer st.captureInto("bio write", &ret)
	if n <= 0 {
		return 0
	}
	wrote, err := st.Stream.Write(cslice(unsafe.Pointer(buf), int(n)))
	if err == nil {
		return C.int(wrote)
	}
	st.err = err
	if Retryable(err) {
		C.X_BIO_set_retry_write(b)
	}
	if wrote > 0 {
		return C.int(wrote)
	}
	return -1
}

type flusher interface {
	Flush() error
}

//export osslGoBioCtrl
func osslGoBioCtrl(b *C.BIO, cmd C.int, num C.long, ptr unsafe.Pointer) (ret C.long) {
	st := bioState(b)
	if st == nil {
		return 0
	}
	defer func() {
		if r := recover(); r != nil {
			st.setPanic(&CallbackPanic{Callback: "bio ctrl", Value: r, Stack: debug.Stack()})
			ret = 0
		}
	}()
	switch cmd {
	case C.BIO_CTRL_FLUSH:
		if f, ok := st.Stream.(flusher); ok {
			if err := f.Flush(); err != nil {
				st.err = err
				return 0
			}
		}
		return 1
	case C.BIO_CTRL_DGRAM_QUERY_MTU:
		return C.long(st.MTU)
	default:
		return 0
	}
}

func (s *StreamState) captureInto(name string, ret *C.int) {
	if r := recover(); r != nil {
		s.setPanic(&CallbackPanic{Callback: name, Value: r, Stack: debug.Stack()})
		*ret = -1
	}
}

// StreamBIO is a BIO bound to a StreamState through its own BIO_METHOD.
type StreamBIO struct {
	Method BIOMethod
	BIO    BIO
	State  *StreamState
}

// NewStreamBIO builds a BIO whose reads and writes go to st.Stream.
func NewStreamBIO(st *StreamState) (*StreamBIO, error) {
	out := &StreamBIO{State: st}
	err := call(func() error {
		out.Method = C.X_BIO_go_method_new()
		if err := checkAlloc("BIO_meth_new", unsafe.Pointer(out.Method)); err != nil {
			return err
		}
		out.BIO = C.BIO_new(out.Method)
		if err := checkAlloc("BIO_new", unsafe.Pointer(out.BIO)); err != nil {
			C.BIO_meth_free(out.Method)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	h, p := put(st)
	st.handle = h
	C.BIO_set_data(out.BIO, unsafe.Pointer(p)) //nolint:govet
	C.BIO_set_init(out.BIO, 1)
	return out, nil
}

// AttachStream hands the BIO to ssl for both directions and binds the stream
// state to ssl so context-level callbacks can report panics to it. ssl owns the
// BIO afterwards.
func AttachStream(ssl SSL, sb *StreamBIO) error {
	C.SSL_set_bio(ssl, sb.BIO, sb.BIO)
	return SetSSLData(ssl, sb.State)
}

// FreeStream releases ssl, then the BIO_METHOD its BIO was built from.
// The order matters: the BIO references the method until ssl is gone.
func FreeStream(ssl SSL, sb *StreamBIO) {
	if ssl != nil {
		C.SSL_free(ssl)
	}
	if sb == nil {
		return
	}
	if sb.Method != nil {
		C.BIO_meth_free(sb.Method)
		sb.Method = nil
	}
	if sb.State != nil {
		del(sb.State.handle)
	}
	sb.BIO = nil
}
