//go:build cgo && !windows

package ssl

import (
	"runtime"
	"time"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/backend"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/handle"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/pkey"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/x509"
)

// Context is a finished SSL_CTX. Connections created from it share its
// configuration, certificates and callbacks.
type Context struct {
	ctx  *handle.Owned[backend.SSLCtx]
	dtls bool
}

func wrapContext(p backend.SSLCtx, dtls bool) (*Context, error) {
	owned, err := handle.Own(p, backend.FreeSSLCtx)
	if err != nil {
		return nil, err
	}
	return &Context{ctx: owned, dtls: dtls}, nil
}

func (c *Context) ptr(op string) (backend.SSLCtx, error) {
	p := c.ctx.Ptr()
	if p == nil {
		return nil, openssl.Closed(op)
	}
	return p, nil
}

// Raw returns the backend pointer. The caller must keep c reachable.
func (c *Context) Raw() backend.SSLCtx { return c.ctx.Ptr() }

// Clone returns a second reference to the same context.
func (c *Context) Clone() (*Context, error) {
	p, err := c.ptr("Context.Clone")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(c)
	if err := backend.SSLCtxUpRef(p); err != nil {
		return nil, openssl.RemapError(err)
	}
	return wrapContext(p, c.dtls)
}

// Certificate returns a reference to the configured leaf certificate, or nil.
func (c *Context) Certificate() (*x509.Certificate, error) {
	p, err := c.ptr("Context.Certificate")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(c)
	x := backend.SSLCtxCertificate(p)
	if x == nil {
		return nil, nil
	}
	return x509.CloneRaw(x)
}

// PrivateKey returns a reference to the configured private key, or nil.
func (c *Context) PrivateKey() (*pkey.PKey, error) {
	p, err := c.ptr("Context.PrivateKey")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(c)
	k := backend.SSLCtxPrivateKey(p)
	if k == nil {
		return nil, nil
	}
	if err := backend.PKeyUpRef(k); err != nil {
		return nil, openssl.RemapError(err)
	}
	return pkey.FromRaw(k)
}

func (c *Context) Options() Options {
	p := c.ctx.Ptr()
	if p == nil {
		return 0
	}
	defer runtime.KeepAlive(c)
	return Options(backend.SSLCtxOptions(p))
}

func (c *Context) Mode() Mode {
	p := c.ctx.Ptr()
	if p == nil {
		return 0
	}
	defer runtime.KeepAlive(c)
	return Mode(backend.SSLCtxMode(p))
}

// MinProtoVersion returns the configured floor, or 0 when none is set.
func (c *Context) MinProtoVersion() Version {
	p := c.ctx.Ptr()
	if p == nil {
		return 0
	}
	defer runtime.KeepAlive(c)
	return Version(backend.SSLCtxMinProtoVersion(p))
}

// MaxProtoVersion returns the configured ceiling, or 0 when none is set.
func (c *Context) MaxProtoVersion() Version {
	p := c.ctx.Ptr()
	if p == nil {
		return 0
	}
	defer runtime.KeepAlive(c)
	return Version(backend.SSLCtxMaxProtoVersion(p))
}

func (c *Context) SessionCacheMode() SessionCacheMode {
	p := c.ctx.Ptr()
	if p == nil {
		return 0
	}
	defer runtime.KeepAlive(c)
	return SessionCacheMode(backend.SSLCtxSessionCacheMode(p))
}

// AddSession puts s in the internal session cache. It reports false when an
// identical session was already present.
func (c *Context) AddSession(s *Session) bool {
	p := c.ctx.Ptr()
	sp := s.s.Ptr()
	if p == nil || sp == nil {
		return false
	}
	defer runtime.KeepAlive(s)
	defer runtime.KeepAlive(c)
	return backend.SSLCtxAddSession(p, sp)
}

// RemoveSession drops s from the internal session cache.
func (c *Context) RemoveSession(s *Session) bool {
	p := c.ctx.Ptr()
	sp := s.s.Ptr()
	if p == nil || sp == nil {
		return false
	}
	defer runtime.KeepAlive(s)
	defer runtime.KeepAlive(c)
	return backend.SSLCtxRemoveSession(p, sp)
}

// Free releases this reference. Connections created from the context keep
// their own references and stay usable.
func (c *Context) Free() {
	if c == nil {
		return
	}
	c.ctx.Free()
}

// ContextBuilder configures a Context. The first error is kept and returned
// by Build; later calls do nothing.
type ContextBuilder struct {
	ctx  *handle.Owned[backend.SSLCtx]
	dtls bool
	err  error
}

func NewContextBuilder(m Method) (*ContextBuilder, error) {
	p, err := backend.NewSSLCtx(m.m)
	if err != nil {
		return nil, openssl.RemapError(err)
	}
	owned, err := handle.Own(p, backend.FreeSSLCtx)
	if err != nil {
		return nil, err
	}
	return &ContextBuilder{ctx: owned, dtls: m.dtls}, nil
}

func (b *ContextBuilder) do(op string, fn func(backend.SSLCtx) error) *ContextBuilder {
	if b.err != nil {
		return b
	}
	p := b.ctx.Ptr()
	if p == nil {
		b.err = openssl.Closed(op)
		return b
	}
	b.err = openssl.RemapError(fn(p))
	return b
}

// Err returns the first error recorded so far.
func (b *ContextBuilder) Err() error { return b.err }

// Verification.

// SetVerify sets the verification mode with OpenSSL's default decision.
func (b *ContextBuilder) SetVerify(mode VerifyMode) *ContextBuilder {
	return b.do("ContextBuilder.SetVerify", func(p backend.SSLCtx) error {
		backend.SSLCtxSetVerify(p, int(mode))
		return nil
	})
}

// SetVerifyCallback sets the verification mode and lets cb override each
// per-certificate decision.
func (b *ContextBuilder) SetVerifyCallback(mode VerifyMode, cb VerifyCallback) *ContextBuilder {
	return b.do("ContextBuilder.SetVerifyCallback", func(p backend.SSLCtx) error {
		return backend.SSLCtxSetVerifyCallback(p, int(mode), cb.backend())
	})
}

func (b *ContextBuilder) SetVerifyDepth(depth int) *ContextBuilder {
	return b.do("ContextBuilder.SetVerifyDepth", func(p backend.SSLCtx) error {
		backend.SSLCtxSetVerifyDepth(p, depth)
		return nil
	})
}

// SetCAFile trusts the certificates in a PEM file.
func (b *ContextBuilder) SetCAFile(path string) *ContextBuilder {
	return b.do("ContextBuilder.SetCAFile", func(p backend.SSLCtx) error {
		return backend.SSLCtxLoadVerifyLocations(p, path, "")
	})
}

// SetDefaultVerifyPaths trusts the system certificate locations.
func (b *ContextBuilder) SetDefaultVerifyPaths() *ContextBuilder {
	return b.do("ContextBuilder.SetDefaultVerifyPaths", backend.SSLCtxSetDefaultVerifyPaths)
}

// SetCertStore replaces the trust store. The context takes its own reference,
// so s may be freed afterwards.
func (b *ContextBuilder) SetCertStore(s *x509.Store) *ContextBuilder {
	return b.do("ContextBuilder.SetCertStore", func(p backend.SSLCtx) error {
		raw, err := s.Retain()
		if err != nil {
			return err
		}
		backend.SSLCtxSetCertStore(p, raw)
		return nil
	})
}

// SetClientCAFile advertises the CA names in a PEM file to clients when
// requesting a client certificate.
func (b *ContextBuilder) SetClientCAFile(path string) *ContextBuilder {
	return b.do("ContextBuilder.SetClientCAFile", func(p backend.SSLCtx) error {
		return backend.SSLCtxLoadClientCAFile(p, path)
	})
}

// Certificates and keys.

func (b *ContextBuilder) SetCertificateFile(path string, typ Filetype) *ContextBuilder {
	return b.do("ContextBuilder.SetCertificateFile", func(p backend.SSLCtx) error {
		return backend.SSLCtxUseCertificateFile(p, path, int(typ))
	})
}

// SetCertificateChainFile loads a leaf followed by its chain from one PEM file.
func (b *ContextBuilder) SetCertificateChainFile(path string) *ContextBuilder {
	return b.do("ContextBuilder.SetCertificateChainFile", func(p backend.SSLCtx) error {
		return backend.SSLCtxUseCertificateChainFile(p, path)
	})
}

func (b *ContextBuilder) SetCertificate(c *x509.Certificate) *ContextBuilder {
	defer runtime.KeepAlive(c)
	return b.do("ContextBuilder.SetCertificate", func(p backend.SSLCtx) error {
		x := c.Raw()
		if x == nil {
			return openssl.Closed("ContextBuilder.SetCertificate")
		}
		return backend.SSLCtxUseCertificate(p, x)
	})
}

// AddExtraChainCert appends c to the chain sent after the leaf.
func (b *ContextBuilder) AddExtraChainCert(c *x509.Certificate) *ContextBuilder {
	return b.do("ContextBuilder.AddExtraChainCert", func(p backend.SSLCtx) error {
		ref, err := c.Clone()
		if err != nil {
			return err
		}
		if err := backend.SSLCtxAddExtraChainCert(p, ref.Raw()); err != nil {
			ref.Free()
			return err
		}
		ref.Disown()
		return nil
	})
}

func (b *ContextBuilder) SetPrivateKeyFile(path string, typ Filetype) *ContextBuilder {
	return b.do("ContextBuilder.SetPrivateKeyFile", func(p backend.SSLCtx) error {
		return backend.SSLCtxUsePrivateKeyFile(p, path, int(typ))
	})
}

func (b *ContextBuilder) SetPrivateKey(k *pkey.PKey) *ContextBuilder {
	defer runtime.KeepAlive(k)
	return b.do("ContextBuilder.SetPrivateKey", func(p backend.SSLCtx) error {
		raw := k.Raw()
		if raw == nil {
			return openssl.Closed("ContextBuilder.SetPrivateKey")
		}
		return backend.SSLCtxUsePrivateKey(p, raw)
	})
}

// CheckPrivateKey fails unless the private key matches the certificate.
func (b *ContextBuilder) CheckPrivateKey() *ContextBuilder {
	return b.do("ContextBuilder.CheckPrivateKey", backend.SSLCtxCheckPrivateKey)
}

// Protocol parameters.

// SetCipherList sets the TLS 1.2 and earlier cipher list.
func (b *ContextBuilder) SetCipherList(list string) *ContextBuilder {
	return b.do("ContextBuilder.SetCipherList", func(p backend.SSLCtx) error {
		return backend.SSLCtxSetCipherList(p, list)
	})
}

// SetCiphersuites sets the TLS 1.3 cipher suites.
func (b *ContextBuilder) SetCiphersuites(suites string) *ContextBuilder {
	return b.do("ContextBuilder.SetCiphersuites", func(p backend.SSLCtx) error {
		if err := openssl.Require(openssl.FeatureTLS13); err != nil {
			return err
		}
		return backend.SSLCtxSetCiphersuites(p, suites)
	})
}

func (b *ContextBuilder) SetOptions(o Options) *ContextBuilder {
	return b.do("ContextBuilder.SetOptions", func(p backend.SSLCtx) error {
		backend.SSLCtxSetOptions(p, uint64(o))
		return nil
	})
}

func (b *ContextBuilder) ClearOptions(o Options) *ContextBuilder {
	return b.do("ContextBuilder.ClearOptions", func(p backend.SSLCtx) error {
		backend.SSLCtxClearOptions(p, uint64(o))
		return nil
	})
}

func (b *ContextBuilder) SetMode(m Mode) *ContextBuilder {
	return b.do("ContextBuilder.SetMode", func(p backend.SSLCtx) error {
		backend.SSLCtxSetMode(p, int64(m))
		return nil
	})
}

// SetMinProtoVersion sets the lowest version offered. 0 removes the floor.
func (b *ContextBuilder) SetMinProtoVersion(v Version) *ContextBuilder {
	return b.do("ContextBuilder.SetMinProtoVersion", func(p backend.SSLCtx) error {
		if err := openssl.Require(openssl.FeatureProtoVersionSetters); err != nil {
			return err
		}
		return backend.SSLCtxSetMinProtoVersion(p, int(v))
	})
}

// SetMaxProtoVersion sets the highest version offered. 0 removes the ceiling.
func (b *ContextBuilder) SetMaxProtoVersion(v Version) *ContextBuilder {
	return b.do("ContextBuilder.SetMaxProtoVersion", func(p backend.SSLCtx) error {
		if err := openssl.Require(openssl.FeatureProtoVersionSetters); err != nil {
			return err
		}
		return backend.SSLCtxSetMaxProtoVersion(p, int(v))
	})
}

func (b *ContextBuilder) SetReadAhead(on bool) *ContextBuilder {
	return b.do("ContextBuilder.SetReadAhead", func(p backend.SSLCtx) error {
		backend.SSLCtxSetReadAhead(p, on)
		return nil
	})
}

// ALPN.

// SetALPNProtos sets the protocols a client offers, most preferred first.
func (b *ContextBuilder) SetALPNProtos(protos ...string) *ContextBuilder {
	return b.do("ContextBuilder.SetALPNProtos", func(p backend.SSLCtx) error {
		wire, err := EncodeProtocols(protos)
		if err != nil {
			return err
		}
		return backend.SSLCtxSetALPNProtos(p, wire)
	})
}

// SetALPNSelectCallback lets a server pick from the client's protocols.
func (b *ContextBuilder) SetALPNSelectCallback(cb ALPNSelectCallback) *ContextBuilder {
	return b.do("ContextBuilder.SetALPNSelectCallback", func(p backend.SSLCtx) error {
		return backend.SSLCtxSetALPNSelectCallback(p, cb.backend())
	})
}

// Sessions.

// SetSessionIDContext sets the context servers bind their sessions to.
func (b *ContextBuilder) SetSessionIDContext(sid []byte) *ContextBuilder {
	return b.do("ContextBuilder.SetSessionIDContext", func(p backend.SSLCtx) error {
		return backend.SSLCtxSetSessionIDContext(p, sid)
	})
}

func (b *ContextBuilder) SetSessionCacheMode(m SessionCacheMode) *ContextBuilder {
	return b.do("ContextBuilder.SetSessionCacheMode", func(p backend.SSLCtx) error {
		backend.SSLCtxSetSessionCacheMode(p, int64(m))
		return nil
	})
}

// SetTimeout sets the lifetime of new sessions, at one-second resolution.
func (b *ContextBuilder) SetTimeout(d time.Duration) *ContextBuilder {
	return b.do("ContextBuilder.SetTimeout", func(p backend.SSLCtx) error {
		backend.SSLCtxSetTimeout(p, int64(d/time.Second))
		return nil
	})
}

func (b *ContextBuilder) SetNewSessionCallback(cb NewSessionCallback) *ContextBuilder {
	return b.do("ContextBuilder.SetNewSessionCallback", func(p backend.SSLCtx) error {
		return backend.SSLCtxSetNewSessionCallback(p, cb.backend())
	})
}

func (b *ContextBuilder) SetRemoveSessionCallback(cb RemoveSessionCallback) *ContextBuilder {
	return b.do("ContextBuilder.SetRemoveSessionCallback", func(p backend.SSLCtx) error {
		return backend.SSLCtxSetRemoveSessionCallback(p, cb.backend())
	})
}

// Other callbacks.

func (b *ContextBuilder) SetServernameCallback(cb ServernameCallback) *ContextBuilder {
	return b.do("ContextBuilder.SetServernameCallback", func(p backend.SSLCtx) error {
		return backend.SSLCtxSetServernameCallback(p, cb.backend())
	})
}

func (b *ContextBuilder) SetPSKClientCallback(cb PSKClientCallback) *ContextBuilder {
	return b.do("ContextBuilder.SetPSKClientCallback", func(p backend.SSLCtx) error {
		return backend.SSLCtxSetPSKClientCallback(p, cb.backend())
	})
}

func (b *ContextBuilder) SetPSKServerCallback(cb PSKServerCallback) *ContextBuilder {
	return b.do("ContextBuilder.SetPSKServerCallback", func(p backend.SSLCtx) error {
		return backend.SSLCtxSetPSKServerCallback(p, cb.backend())
	})
}

// SetPSKIdentityHint sets the hint a server sends to PSK clients.
func (b *ContextBuilder) SetPSKIdentityHint(hint string) *ContextBuilder {
	return b.do("ContextBuilder.SetPSKIdentityHint", func(p backend.SSLCtx) error {
		return backend.SSLCtxUsePSKIdentityHint(p, hint)
	})
}

// SetKeylogCallback receives NSS key log lines for every connection.
func (b *ContextBuilder) SetKeylogCallback(cb KeylogCallback) *ContextBuilder {
	return b.do("ContextBuilder.SetKeylogCallback", func(p backend.SSLCtx) error {
		if err := openssl.Require(openssl.FeatureKeylog); err != nil {
			return err
		}
		return backend.SSLCtxSetKeylogCallback(p, cb.backend())
	})
}

// SetStatusCallback handles OCSP stapling. On a server it runs when a client
// asks for a status and should staple one with SSL.SetOCSPResponse. On a
// client it inspects SSL.OCSPResponse and returns false to abort.
func (b *ContextBuilder) SetStatusCallback(cb StatusCallback) *ContextBuilder {
	return b.do("ContextBuilder.SetStatusCallback", func(p backend.SSLCtx) error {
		return backend.SSLCtxSetStatusCallback(p, cb.backend())
	})
}

func (b *ContextBuilder) SetCookieGenerateCallback(cb CookieGenerateCallback) *ContextBuilder {
	return b.do("ContextBuilder.SetCookieGenerateCallback", func(p backend.SSLCtx) error {
		return backend.SSLCtxSetCookieGenerateCallback(p, cb.backend())
	})
}

func (b *ContextBuilder) SetCookieVerifyCallback(cb CookieVerifyCallback) *ContextBuilder {
	return b.do("ContextBuilder.SetCookieVerifyCallback", func(p backend.SSLCtx) error {
		return backend.SSLCtxSetCookieVerifyCallback(p, cb.backend())
	})
}

// Build returns the context, or the first error any step produced. The
// builder must not be used afterwards.
func (b *ContextBuilder) Build() (*Context, error) {
	if b.err != nil {
		b.ctx.Free()
		return nil, b.err
	}
	p := b.ctx.Disown()
	if p == nil {
		return nil, openssl.Closed("ContextBuilder.Build")
	}
	return wrapContext(p, b.dtls)
}
