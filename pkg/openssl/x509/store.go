//go:build cgo && !windows

package x509

import (
	"fmt"
	"runtime"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/backend"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/handle"
)

// VerifyResult is an X509_V_* verification code.
type VerifyResult int

const (
	VerifyOK                     VerifyResult = backend.X509VOK
	VerifyCertHasExpired         VerifyResult = backend.X509VErrCertHasExpired
	VerifySelfSignedInChain      VerifyResult = backend.X509VErrSelfSignedInChain
	VerifyDepthZeroSelfSigned    VerifyResult = backend.X509VErrDepthZeroSelfSign
	VerifyUnableToGetIssuerLocal VerifyResult = backend.X509VErrUnableToGetIssuer
	VerifyHostnameMismatch       VerifyResult = backend.X509VErrHostnameMismatch
	VerifyApplication            VerifyResult = backend.X509VErrApplication
)

func (r VerifyResult) OK() bool { return r == VerifyOK }

// String returns OpenSSL's description of the code.
func (r VerifyResult) String() string { return backend.VerifyErrorString(int(r)) }

// Err returns nil for VerifyOK and a *VerifyError otherwise.
func (r VerifyResult) Err() error {
	if r == VerifyOK {
		return nil
	}
	return &VerifyError{Result: r}
}

// VerifyError reports a failed chain verification.
type VerifyError struct {
	Result VerifyResult
	Depth  int
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("x509: verify failed at depth %d: %s (%d)", e.Depth, e.Result, int(e.Result))
}

// Store is a set of trusted certificates.
type Store struct {
	s *handle.Owned[backend.X509Store]
}

func (s *Store) ptr(op string) (backend.X509Store, error) {
	p := s.s.Ptr()
	if p == nil {
		return nil, openssl.Closed(op)
	}
	return p, nil
}

// Raw returns the backend pointer. The caller must keep s reachable.
func (s *Store) Raw() backend.X509Store { return s.s.Ptr() }

// Retain takes an extra reference for a consumer that will free it, such as
// SSL_CTX_set_cert_store.
func (s *Store) Retain() (backend.X509Store, error) {
	p, err := s.ptr("Store.Retain")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(s)
	if err := backend.X509StoreUpRef(p); err != nil {
		return nil, openssl.RemapError(err)
	}
	return p, nil
}

// Verify checks leaf against the store, using intermediates as untrusted
// chain candidates. A verification failure is returned as a *VerifyError.
func (s *Store) Verify(leaf *Certificate, intermediates ...*Certificate) error {
	p, err := s.ptr("Store.Verify")
	if err != nil {
		return err
	}
	x, err := leaf.ptr("Store.Verify")
	if err != nil {
		return err
	}
	untrusted := make([]backend.X509, 0, len(intermediates))
	for _, c := range intermediates {
		raw, err := c.ptr("Store.Verify")
		if err != nil {
			return err
		}
		untrusted = append(untrusted, raw)
	}
	ctx, err := backend.NewX509StoreCtx()
	if err != nil {
		return openssl.RemapError(err)
	}
	defer backend.FreeX509StoreCtx(ctx)
	out, err := backend.VerifyCert(ctx, p, x, untrusted)
	runtime.KeepAlive(intermediates)
	runtime.KeepAlive(leaf)
	runtime.KeepAlive(s)
	if err != nil {
		return openssl.RemapError(err)
	}
	if !out.OK {
		return &VerifyError{Result: VerifyResult(out.Error), Depth: out.Depth}
	}
	return nil
}

func (s *Store) Free() {
	if s == nil {
		return
	}
	s.s.Free()
}

// StoreBuilder assembles a Store. The first error is kept and returned by
// Build; later calls do nothing.
type StoreBuilder struct {
	s   *handle.Owned[backend.X509Store]
	err error
}

func NewStoreBuilder() (*StoreBuilder, error) {
	p, err := backend.NewX509Store()
	if err != nil {
		return nil, openssl.RemapError(err)
	}
	owned, err := handle.Own(p, backend.FreeX509Store)
	if err != nil {
		return nil, err
	}
	return &StoreBuilder{s: owned}, nil
}

func (b *StoreBuilder) do(op string, fn func(backend.X509Store) error) *StoreBuilder {
	if b.err != nil {
		return b
	}
	p := b.s.Ptr()
	if p == nil {
		b.err = openssl.Closed(op)
		return b
	}
	b.err = openssl.RemapError(fn(p))
	return b
}

// AddCert trusts c. The store takes its own reference.
func (b *StoreBuilder) AddCert(c *Certificate) *StoreBuilder {
	defer runtime.KeepAlive(c)
	return b.do("StoreBuilder.AddCert", func(s backend.X509Store) error {
		x, err := c.ptr("StoreBuilder.AddCert")
		if err != nil {
			return err
		}
		return backend.X509StoreAddCert(s, x)
	})
}

// SetDefaultPaths trusts the system certificate locations.
func (b *StoreBuilder) SetDefaultPaths() *StoreBuilder {
	return b.do("StoreBuilder.SetDefaultPaths", backend.X509StoreSetDefaultPaths)
}

// LoadFile trusts every certificate in a PEM file.
func (b *StoreBuilder) LoadFile(path string) *StoreBuilder {
	return b.do("StoreBuilder.LoadFile", func(s backend.X509Store) error {
		return backend.X509StoreLoadFile(s, path)
	})
}

// SetFlags sets X509_V_FLAG_* verification flags.
func (b *StoreBuilder) SetFlags(flags uint64) *StoreBuilder {
	return b.do("StoreBuilder.SetFlags", func(s backend.X509Store) error {
		return backend.X509StoreSetFlags(s, flags)
	})
}

// Build returns the store, or the first error any step produced. The builder
// must not be used afterwards.
func (b *StoreBuilder) Build() (*Store, error) {
	if b.err != nil {
		b.s.Free()
		return nil, b.err
	}
	p := b.s.Disown()
	if p == nil {
		return nil, openssl.Closed("StoreBuilder.Build")
	}
	owned, err := handle.Own(p, backend.FreeX509Store)
	if err != nil {
		return nil, err
	}
	return &Store{s: owned}, nil
}

// StoreContext is the verification state handed to verify callbacks. It is
// only valid for the duration of the callback.
type StoreContext struct {
	ctx backend.X509StoreCtx
}

// NewStoreContext wraps a context borrowed from a callback.
func NewStoreContext(ctx backend.X509StoreCtx) *StoreContext {
	return &StoreContext{ctx: ctx}
}

func (s *StoreContext) Error() VerifyResult {
	return VerifyResult(backend.X509StoreCtxError(s.ctx))
}

func (s *StoreContext) SetError(r VerifyResult) {
	backend.X509StoreCtxSetError(s.ctx, int(r))
}

// ErrorDepth is the chain depth of the certificate being examined.
func (s *StoreContext) ErrorDepth() int {
	return backend.X509StoreCtxErrorDepth(s.ctx)
}

// CurrentCert returns a new reference to the certificate being examined, or
// nil when there is none.
func (s *StoreContext) CurrentCert() *Certificate {
	x := backend.X509StoreCtxCurrentCert(s.ctx)
	if x == nil {
		return nil
	}
	c, err := CloneRaw(x)
	if err != nil {
		return nil
	}
	return c
}

// SSL returns the connection this verification belongs to, or nil.
func (s *StoreContext) SSL() backend.SSL {
	return backend.X509StoreCtxSSL(s.ctx)
}
