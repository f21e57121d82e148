//go:build cgo && !windows

package ssl

import (
	"runtime"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/backend"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/handle"
)

// Session is a resumable TLS session.
type Session struct {
	s *handle.Owned[backend.Session]
}

func wrapSession(p backend.Session) (*Session, error) {
	owned, err := handle.Own(p, backend.FreeSession)
	if err != nil {
		return nil, err
	}
	return &Session{s: owned}, nil
}

// cloneSession takes a new reference to a session owned elsewhere.
func cloneSession(p backend.Session) (*Session, error) {
	if p == nil {
		return nil, openssl.ErrAllocationFailed
	}
	if err := backend.SessionUpRef(p); err != nil {
		return nil, openssl.RemapError(err)
	}
	return wrapSession(p)
}

// SessionFromDER decodes a session written by ToDER.
func SessionFromDER(der []byte) (*Session, error) {
	p, err := backend.SessionFromDER(der)
	if err != nil {
		return nil, openssl.RemapError(err)
	}
	return wrapSession(p)
}

func (s *Session) ptr(op string) (backend.Session, error) {
	p := s.s.Ptr()
	if p == nil {
		return nil, openssl.Closed(op)
	}
	return p, nil
}

func (s *Session) ToDER() ([]byte, error) {
	p, err := s.ptr("Session.ToDER")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(s)
	der, err := backend.SessionToDER(p)
	return der, openssl.RemapError(err)
}

func (s *Session) ID() []byte {
	p := s.s.Ptr()
	if p == nil {
		return nil
	}
	defer runtime.KeepAlive(s)
	return backend.SessionID(p)
}

// MasterKey returns a copy of the session's master secret. Callers should
// clear it with openssl.ZeroizeBytes when done.
func (s *Session) MasterKey() []byte {
	p := s.s.Ptr()
	if p == nil {
		return nil
	}
	defer runtime.KeepAlive(s)
	return backend.SessionMasterKey(p)
}

func (s *Session) ProtocolVersion() Version {
	p := s.s.Ptr()
	if p == nil {
		return 0
	}
	defer runtime.KeepAlive(s)
	return Version(backend.SessionProtocolVersion(p))
}

// Clone returns a second reference to the same session.
func (s *Session) Clone() (*Session, error) {
	p, err := s.ptr("Session.Clone")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(s)
	return cloneSession(p)
}

func (s *Session) Free() {
	if s == nil {
		return
	}
	s.s.Free()
}

// Cipher describes a negotiated cipher suite. Cipher values point into
// OpenSSL's static tables and need no freeing.
type Cipher struct {
	c backend.Cipher
}

func (c Cipher) Name() string { return backend.CipherName(c.c) }

// Version is the protocol version that introduced the suite.
func (c Cipher) Version() string { return backend.CipherVersion(c.c) }

// Bits returns the secret bits actually used and the algorithm's nominal
// strength.
func (c Cipher) Bits() (secret, algorithm int) { return backend.CipherBits(c.c) }

func (c Cipher) Description() string { return backend.CipherDescription(c.c) }

func (c Cipher) String() string { return c.Name() }
