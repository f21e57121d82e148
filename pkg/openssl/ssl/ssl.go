//go:build cgo && !windows

package ssl

import (
	"errors"
	"runtime"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/backend"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/handle"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/x509"
)

// ErrBorrowed is returned when a borrowed SSL is asked to start a stream.
var ErrBorrowed = errors.New("ssl: connection is borrowed")

// SSL is one connection's state before and during its lifetime as a Stream.
// An SSL obtained from New is owned until Connect, Accept or NewStream hands
// it to a Stream. Stream.SSL and callbacks return borrowed views that stop
// working when their owner goes away.
type SSL struct {
	owned *handle.Owned[backend.SSL]
	ref   backend.SSL
	alive func() bool
	mtu   int
}

// New creates a connection from ctx. The connection keeps its own reference
// to ctx.
func New(ctx *Context) (*SSL, error) {
	c, err := ctx.ptr("ssl.New")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(ctx)
	p, err := backend.NewSSL(c)
	if err != nil {
		return nil, openssl.RemapError(err)
	}
	owned, err := handle.Own(p, backend.FreeSSL)
	if err != nil {
		return nil, err
	}
	return &SSL{owned: owned}, nil
}

// borrowSSL wraps a pointer that is only valid for the duration of a callback.
func borrowSSL(p backend.SSL) *SSL {
	return &SSL{ref: p}
}

func (s *SSL) ptr(op string) (backend.SSL, error) {
	if s.owned != nil {
		p := s.owned.Ptr()
		if p == nil {
			return nil, openssl.Closed(op)
		}
		return p, nil
	}
	if s.ref == nil || (s.alive != nil && !s.alive()) {
		return nil, openssl.Closed(op)
	}
	return s.ref, nil
}

// Raw returns the backend pointer, or nil once the connection is gone.
func (s *SSL) Raw() backend.SSL {
	p, _ := s.ptr("SSL.Raw")
	return p
}

// Connection setup.

func (s *SSL) SetConnectState() error {
	p, err := s.ptr("SSL.SetConnectState")
	if err != nil {
		return err
	}
	defer runtime.KeepAlive(s)
	backend.SSLSetConnectState(p)
	return nil
}

func (s *SSL) SetAcceptState() error {
	p, err := s.ptr("SSL.SetAcceptState")
	if err != nil {
		return err
	}
	defer runtime.KeepAlive(s)
	backend.SSLSetAcceptState(p)
	return nil
}

// SetHostname sets the SNI name sent by a client.
func (s *SSL) SetHostname(name string) error {
	p, err := s.ptr("SSL.SetHostname")
	if err != nil {
		return err
	}
	defer runtime.KeepAlive(s)
	return openssl.RemapError(backend.SSLSetHostname(p, name))
}

// SetVerifyHostname makes verification require that the peer certificate
// matches host.
func (s *SSL) SetVerifyHostname(host string) error {
	p, err := s.ptr("SSL.SetVerifyHostname")
	if err != nil {
		return err
	}
	defer runtime.KeepAlive(s)
	return openssl.RemapError(backend.SSLSetVerifyHostname(p, host))
}

// SetVerifyIP makes verification require that the peer certificate carries
// the IP address ip.
func (s *SSL) SetVerifyIP(ip string) error {
	p, err := s.ptr("SSL.SetVerifyIP")
	if err != nil {
		return err
	}
	defer runtime.KeepAlive(s)
	return openssl.RemapError(backend.SSLSetVerifyIP(p, ip))
}

// SetVerify overrides the context's verification mode for this connection.
func (s *SSL) SetVerify(mode VerifyMode) error {
	p, err := s.ptr("SSL.SetVerify")
	if err != nil {
		return err
	}
	defer runtime.KeepAlive(s)
	backend.SSLSetVerify(p, int(mode))
	return nil
}

// SetVerifyCallback installs a verify callback for this connection only. It
// takes precedence over one set on the context.
func (s *SSL) SetVerifyCallback(mode VerifyMode, cb VerifyCallback) error {
	p, err := s.ptr("SSL.SetVerifyCallback")
	if err != nil {
		return err
	}
	defer runtime.KeepAlive(s)
	return openssl.RemapError(backend.SSLSetVerifyCallback(p, int(mode), cb.backend()))
}

// SetSession offers sess for resumption.
func (s *SSL) SetSession(sess *Session) error {
	p, err := s.ptr("SSL.SetSession")
	if err != nil {
		return err
	}
	sp, err := sess.ptr("SSL.SetSession")
	if err != nil {
		return err
	}
	defer runtime.KeepAlive(sess)
	defer runtime.KeepAlive(s)
	return openssl.RemapError(backend.SSLSetSession(p, sp))
}

// SetContext switches the connection to ctx, usually from a servername
// callback.
func (s *SSL) SetContext(ctx *Context) error {
	p, err := s.ptr("SSL.SetContext")
	if err != nil {
		return err
	}
	c, err := ctx.ptr("SSL.SetContext")
	if err != nil {
		return err
	}
	defer runtime.KeepAlive(ctx)
	defer runtime.KeepAlive(s)
	return openssl.RemapError(backend.SSLSetContext(p, c))
}

// Context returns a reference to the context currently in use.
func (s *SSL) Context() (*Context, error) {
	p, err := s.ptr("SSL.Context")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(s)
	c := backend.SSLContext(p)
	if err := backend.SSLCtxUpRef(c); err != nil {
		return nil, openssl.RemapError(err)
	}
	return wrapContext(c, false)
}

// RequestOCSP asks the server to staple an OCSP response.
func (s *SSL) RequestOCSP() error {
	p, err := s.ptr("SSL.RequestOCSP")
	if err != nil {
		return err
	}
	defer runtime.KeepAlive(s)
	return openssl.RemapError(backend.SSLRequestOCSP(p))
}

// SetOCSPResponse staples resp. Only meaningful from a server's status
// callback.
func (s *SSL) SetOCSPResponse(resp []byte) error {
	p, err := s.ptr("SSL.SetOCSPResponse")
	if err != nil {
		return err
	}
	defer runtime.KeepAlive(s)
	return openssl.RemapError(backend.SSLSetOCSPResponse(p, resp))
}

// SetMTU fixes the DTLS path MTU. The value is also reported to OpenSSL
// when it queries the stream.
func (s *SSL) SetMTU(mtu int) error {
	p, err := s.ptr("SSL.SetMTU")
	if err != nil {
		return err
	}
	defer runtime.KeepAlive(s)
	if err := backend.SSLSetMTU(p, mtu); err != nil {
		return openssl.RemapError(err)
	}
	s.mtu = mtu
	return nil
}

// Connection state.

// SessionReused reports whether the handshake resumed a session.
func (s *SSL) SessionReused() bool {
	p, err := s.ptr("SSL.SessionReused")
	if err != nil {
		return false
	}
	defer runtime.KeepAlive(s)
	return backend.SSLSessionReused(p)
}

// Session returns a reference to the current session, or nil before one
// exists.
func (s *SSL) Session() (*Session, error) {
	p, err := s.ptr("SSL.Session")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(s)
	sp := backend.SSLSession(p)
	if sp == nil {
		return nil, nil
	}
	return cloneSession(sp)
}

// CurrentCipher returns the negotiated cipher. ok is false before the
// handshake has picked one.
func (s *SSL) CurrentCipher() (c Cipher, ok bool) {
	p, err := s.ptr("SSL.CurrentCipher")
	if err != nil {
		return Cipher{}, false
	}
	defer runtime.KeepAlive(s)
	raw := backend.SSLCurrentCipher(p)
	if raw == nil {
		return Cipher{}, false
	}
	return Cipher{c: raw}, true
}

// Version returns the protocol name, such as "TLSv1.3".
func (s *SSL) Version() string {
	p, err := s.ptr("SSL.Version")
	if err != nil {
		return ""
	}
	defer runtime.KeepAlive(s)
	return backend.SSLVersionString(p)
}

func (s *SSL) ProtocolVersion() Version {
	p, err := s.ptr("SSL.ProtocolVersion")
	if err != nil {
		return 0
	}
	defer runtime.KeepAlive(s)
	return Version(backend.SSLProtocolVersion(p))
}

func (s *SSL) StateString() string {
	p, err := s.ptr("SSL.StateString")
	if err != nil {
		return ""
	}
	defer runtime.KeepAlive(s)
	return backend.SSLStateString(p)
}

func (s *SSL) StateStringLong() string {
	p, err := s.ptr("SSL.StateStringLong")
	if err != nil {
		return ""
	}
	defer runtime.KeepAlive(s)
	return backend.SSLStateStringLong(p)
}

// PeerCertificate returns the peer's leaf certificate, or nil if it sent
// none.
func (s *SSL) PeerCertificate() (*x509.Certificate, error) {
	p, err := s.ptr("SSL.PeerCertificate")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(s)
	x := backend.SSLPeerCertificate(p)
	if x == nil {
		return nil, nil
	}
	return x509.FromRaw(x)
}

// PeerCertChain returns references to the chain the peer sent. On a client
// it includes the leaf; on a server it does not.
func (s *SSL) PeerCertChain() ([]*x509.Certificate, error) {
	p, err := s.ptr("SSL.PeerCertChain")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(s)
	raw, err := backend.SSLPeerCertChain(p)
	if err != nil {
		return nil, nil
	}
	out := make([]*x509.Certificate, 0, len(raw))
	for _, x := range raw {
		c, err := x509.CloneRaw(x)
		if err != nil {
			for _, prev := range out {
				prev.Free()
			}
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Servername returns the SNI name the client sent or was configured with.
func (s *SSL) Servername() string {
	p, err := s.ptr("SSL.Servername")
	if err != nil {
		return ""
	}
	defer runtime.KeepAlive(s)
	return backend.SSLServername(p)
}

// SelectedALPN returns the negotiated application protocol, or nil.
func (s *SSL) SelectedALPN() []byte {
	p, err := s.ptr("SSL.SelectedALPN")
	if err != nil {
		return nil
	}
	defer runtime.KeepAlive(s)
	return backend.SSLSelectedALPN(p)
}

// Pending is the number of decrypted bytes buffered for reading.
func (s *SSL) Pending() int {
	p, err := s.ptr("SSL.Pending")
	if err != nil {
		return 0
	}
	defer runtime.KeepAlive(s)
	return backend.SSLPending(p)
}

// VerifyResult is the outcome of peer certificate verification.
func (s *SSL) VerifyResult() x509.VerifyResult {
	p, err := s.ptr("SSL.VerifyResult")
	if err != nil {
		return x509.VerifyApplication
	}
	defer runtime.KeepAlive(s)
	return x509.VerifyResult(backend.SSLVerifyResult(p))
}

func (s *SSL) IsServer() bool {
	p, err := s.ptr("SSL.IsServer")
	if err != nil {
		return false
	}
	defer runtime.KeepAlive(s)
	return backend.SSLIsServer(p)
}

// OCSPResponse returns the response the server stapled, or nil.
func (s *SSL) OCSPResponse() []byte {
	p, err := s.ptr("SSL.OCSPResponse")
	if err != nil {
		return nil
	}
	defer runtime.KeepAlive(s)
	return backend.SSLOCSPResponse(p)
}

// ExportKeyingMaterial fills out per RFC 5705. context may be nil, which is
// distinct from an empty context.
func (s *SSL) ExportKeyingMaterial(out []byte, label string, context []byte) error {
	p, err := s.ptr("SSL.ExportKeyingMaterial")
	if err != nil {
		return err
	}
	defer runtime.KeepAlive(s)
	return openssl.RemapError(backend.SSLExportKeyingMaterial(p, out, label, context))
}

func (s *SSL) ClientRandom() []byte {
	p, err := s.ptr("SSL.ClientRandom")
	if err != nil {
		return nil
	}
	defer runtime.KeepAlive(s)
	return backend.SSLClientRandom(p)
}

func (s *SSL) ServerRandom() []byte {
	p, err := s.ptr("SSL.ServerRandom")
	if err != nil {
		return nil
	}
	defer runtime.KeepAlive(s)
	return backend.SSLServerRandom(p)
}

// Free releases an SSL that never became a Stream. It is a no-op for
// borrowed views and for connections already handed to a Stream.
func (s *SSL) Free() {
	if s == nil || s.owned == nil {
		return
	}
	s.owned.Free()
}
