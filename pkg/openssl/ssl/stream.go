//go:build cgo && !windows

package ssl

import (
	"context"
	"errors"
	"io"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/backend"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/x509"
)

// Stream is a TLS connection over a caller-supplied io.ReadWriter. Its
// methods are serialised by a mutex, so a Read blocked on the host stream
// also holds up Write.
type Stream struct {
	mu     sync.Mutex
	ssl    backend.SSL
	sb     *backend.StreamBIO
	st     *backend.StreamState
	closed atomic.Bool
}

// Connect runs the client handshake over rw. The SSL is consumed whether or
// not the handshake succeeds.
func (s *SSL) Connect(rw io.ReadWriter) (*Stream, error) {
	st, err := s.NewStream(rw)
	if err != nil {
		return nil, err
	}
	return st.handshake("connect", backend.SSLConnect)
}

// Accept runs the server handshake over rw. The SSL is consumed whether or
// not the handshake succeeds.
func (s *SSL) Accept(rw io.ReadWriter) (*Stream, error) {
	st, err := s.NewStream(rw)
	if err != nil {
		return nil, err
	}
	return st.handshake("accept", backend.SSLAccept)
}

// NewStream binds s to rw without handshaking. Call SetConnectState or
// SetAcceptState first; the handshake then runs on DoHandshake or on the
// first read or write.
func (s *SSL) NewStream(rw io.ReadWriter) (*Stream, error) {
	if s.owned == nil {
		return nil, ErrBorrowed
	}
	if _, err := s.ptr("SSL.NewStream"); err != nil {
		return nil, err
	}
	state := &backend.StreamState{Stream: rw, MTU: s.mtu}
	sb, err := backend.NewStreamBIO(state)
	if err != nil {
		return nil, openssl.RemapError(err)
	}
	p := s.owned.Disown()
	if p == nil {
		backend.FreeStream(nil, sb)
		return nil, openssl.Closed("SSL.NewStream")
	}
	if err := backend.AttachStream(p, sb); err != nil {
		backend.FreeStream(p, sb)
		return nil, openssl.RemapError(err)
	}
	st := &Stream{ssl: p, sb: sb, st: state}
	runtime.SetFinalizer(st, (*Stream).Close)
	return st, nil
}

func (s *Stream) handshake(op string, fn func(backend.SSL) backend.IOResult) (*Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ssl == nil {
		return nil, openssl.Closed("Stream.handshake")
	}
	log := openssl.Logger()
	log.Debug(context.Background(), "tls handshake step", "op", op)
	s.st.TakeError()
	res := fn(s.ssl)
	if res.Ret > 0 {
		s.checkPanic()
		log.Debug(context.Background(), "tls handshake complete",
			"op", op, "version", backend.SSLVersionString(s.ssl))
		return s, nil
	}
	e := s.makeError(res)
	if e.wouldBlock() {
		return nil, &HandshakeError{Mid: &MidHandshake{stream: s, err: e}, Err: e, VerifyResult: x509.VerifyOK}
	}
	vr := x509.VerifyResult(backend.SSLVerifyResult(s.ssl))
	s.warnIO(op, e.io)
	s.closeLocked()
	return nil, &HandshakeError{Err: e, VerifyResult: vr}
}

// makeError turns a failed step into an *Error. A callback panic recorded
// during the step is re-raised first. A host stream error, when one was
// recorded, is kept alongside any stack.
func (s *Stream) makeError(res backend.IOResult) *Error {
	s.checkPanic()
	e := &Error{Code: ErrorCode(res.Code)}
	hostErr := s.st.TakeError()
	switch e.Code {
	case ErrorZeroReturn:
		return e
	case ErrorSSL:
		e.stack = openssl.ErrorStack(res.Stack)
		if len(e.stack) == 0 && hostErr == nil {
			e.stack = openssl.ErrorStack{{Reason: "TLS failure without queued diagnostics"}}
		}
	case ErrorSyscall:
		e.stack = openssl.ErrorStack(res.Stack)
	}
	e.io = hostErr
	return e
}

func (s *Stream) checkPanic() {
	if p := s.st.TakePanic(); p != nil {
		panic(p)
	}
}

func (s *Stream) warnIO(op string, err error) {
	if err == nil || backend.Retryable(err) {
		return
	}
	openssl.Logger().Warn(context.Background(), "tls host stream failed", "op", op, "error", err)
}

// SSL returns a view of the connection that stops working once the stream
// is closed.
func (s *Stream) SSL() *SSL {
	return &SSL{ref: s.ssl, alive: func() bool { return !s.closed.Load() }}
}

// Get returns the host stream.
func (s *Stream) Get() io.ReadWriter { return s.st.Stream }

// DoHandshake runs or resumes the handshake on a stream built with
// NewStream. The error is an *Error.
func (s *Stream) DoHandshake() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ssl == nil {
		return openssl.Closed("Stream.DoHandshake")
	}
	s.st.TakeError()
	res := backend.SSLDoHandshake(s.ssl)
	if res.Ret > 0 {
		s.checkPanic()
		return nil
	}
	return s.makeError(res)
}

// SSLRead reads decrypted data. Unlike Read it reports every condition as
// an *Error, including would-block and the peer's close_notify.
func (s *Stream) SSLRead(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sslRead(p)
}

func (s *Stream) sslRead(p []byte) (int, error) {
	if s.ssl == nil {
		return 0, openssl.Closed("Stream.SSLRead")
	}
	if len(p) == 0 {
		return 0, nil
	}
	s.st.TakeError()
	res := backend.SSLRead(s.ssl, p)
	if res.Ret > 0 {
		s.checkPanic()
		return res.Ret, nil
	}
	return 0, s.makeError(res)
}

// SSLWrite writes p, reporting every failure as an *Error.
func (s *Stream) SSLWrite(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sslWrite(p)
}

func (s *Stream) sslWrite(p []byte) (int, error) {
	if s.ssl == nil {
		return 0, openssl.Closed("Stream.SSLWrite")
	}
	if len(p) == 0 {
		return 0, nil
	}
	s.st.TakeError()
	res := backend.SSLWrite(s.ssl, p)
	if res.Ret > 0 {
		s.checkPanic()
		return res.Ret, nil
	}
	return 0, s.makeError(res)
}

// Read implements io.Reader. A clean close_notify and a bare EOF from the
// host both read as io.EOF; a host stream error is returned as is.
func (s *Stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		n, err := s.sslRead(p)
		if err == nil {
			return n, nil
		}
		var e *Error
		if !errors.As(err, &e) {
			return 0, err
		}
		switch {
		case e.Code == ErrorZeroReturn:
			return 0, io.EOF
		case e.Code == ErrorSyscall && e.io == nil && len(e.stack) == 0:
			return 0, io.EOF
		case e.Code == ErrorWantRead && e.io == nil:
			continue
		case e.io != nil:
			s.warnIO("read", e.io)
			return 0, e.io
		default:
			return 0, e
		}
	}
}

// Write implements io.Writer.
func (s *Stream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	written := 0
	for written < len(p) {
		n, err := s.sslWrite(p[written:])
		if err == nil {
			written += n
			continue
		}
		var e *Error
		if !errors.As(err, &e) {
			return written, err
		}
		switch {
		case e.Code == ErrorWantRead && e.io == nil:
			continue
		case e.io != nil:
			s.warnIO("write", e.io)
			return written, e.io
		default:
			return written, e
		}
	}
	return written, nil
}

// Flush flushes the host stream when it supports it.
func (s *Stream) Flush() error {
	f, ok := s.st.Stream.(interface{ Flush() error })
	if !ok {
		return nil
	}
	return f.Flush()
}

// Shutdown sends close_notify on the first call and waits for the peer's
// on the second. A peer that already closed makes the first call return
// ShutdownReceived.
func (s *Stream) Shutdown() (ShutdownResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ssl == nil {
		return 0, openssl.Closed("Stream.Shutdown")
	}
	s.st.TakeError()
	res := backend.SSLShutdown(s.ssl)
	switch res.Ret {
	case 0:
		s.checkPanic()
		openssl.Logger().Debug(context.Background(), "tls shutdown", "state", ShutdownSent)
		return ShutdownSent, nil
	case 1:
		s.checkPanic()
		openssl.Logger().Debug(context.Background(), "tls shutdown", "state", ShutdownReceived)
		return ShutdownReceived, nil
	default:
		return 0, s.makeError(res)
	}
}

// Close releases the connection without sending close_notify. The host
// stream is left open. Close is safe to call more than once.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
	return nil
}

func (s *Stream) closeLocked() {
	if s.ssl == nil && s.sb == nil {
		return
	}
	s.closed.Store(true)
	runtime.SetFinalizer(s, nil)
	backend.FreeStream(s.ssl, s.sb)
	s.ssl = nil
	s.sb = nil
}

// MidHandshake is a handshake suspended because the host stream would block.
type MidHandshake struct {
	stream *Stream
	err    *Error
}

// Handshake resumes the handshake. It returns another *HandshakeError with
// a fresh MidHandshake while the stream keeps blocking.
func (m *MidHandshake) Handshake() (*Stream, error) {
	return m.stream.handshake("handshake", backend.SSLDoHandshake)
}

// SSL returns a view of the connection being negotiated.
func (m *MidHandshake) SSL() *SSL { return m.stream.SSL() }

// Get returns the host stream.
func (m *MidHandshake) Get() io.ReadWriter { return m.stream.Get() }

// Error is the would-block error that suspended the handshake.
func (m *MidHandshake) Error() *Error { return m.err }

// Close abandons the handshake and releases the connection.
func (m *MidHandshake) Close() error { return m.stream.Close() }
