//go:build cgo && !windows

package x509

import (
	"math/big"
	"net"
	"runtime"
	"time"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/hash"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/backend"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/handle"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/pkey"
)

// Certificate is an X.509 certificate.
type Certificate struct {
	x *handle.Owned[backend.X509]
}

// FromRaw takes ownership of a backend certificate.
func FromRaw(x backend.X509) (*Certificate, error) {
	owned, err := handle.Own(x, backend.FreeX509)
	if err != nil {
		return nil, err
	}
	return &Certificate{x: owned}, nil
}

// CloneRaw returns a new reference to a certificate owned elsewhere.
func CloneRaw(x backend.X509) (*Certificate, error) {
	if x == nil {
		return nil, openssl.ErrAllocationFailed
	}
	if err := backend.X509UpRef(x); err != nil {
		return nil, openssl.RemapError(err)
	}
	return FromRaw(x)
}

func wrap(x backend.X509, err error) (*Certificate, error) {
	if err != nil {
		return nil, openssl.RemapError(err)
	}
	return FromRaw(x)
}

// FromPEM parses the first certificate in pem.
func FromPEM(pem []byte) (*Certificate, error) {
	return wrap(backend.X509FromPEM(pem))
}

func FromDER(der []byte) (*Certificate, error) {
	return wrap(backend.X509FromDER(der))
}

// StackFromPEM parses every certificate in pem, in order.
func StackFromPEM(pem []byte) ([]*Certificate, error) {
	raws, err := backend.X509StackFromPEM(pem)
	if err != nil {
		return nil, openssl.RemapError(err)
	}
	out := make([]*Certificate, 0, len(raws))
	for _, x := range raws {
		c, err := FromRaw(x)
		if err != nil {
			for _, done := range out {
				done.Free()
			}
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (c *Certificate) ptr(op string) (backend.X509, error) {
	x := c.x.Ptr()
	if x == nil {
		return nil, openssl.Closed(op)
	}
	return x, nil
}

// Raw returns the backend pointer. The caller must keep c reachable while
// using it.
func (c *Certificate) Raw() backend.X509 { return c.x.Ptr() }

func (c *Certificate) ToPEM() ([]byte, error) {
	x, err := c.ptr("Certificate.ToPEM")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(c)
	out, err := backend.X509ToPEM(x)
	return out, openssl.RemapError(err)
}

func (c *Certificate) ToDER() ([]byte, error) {
	x, err := c.ptr("Certificate.ToDER")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(c)
	out, err := backend.X509ToDER(x)
	return out, openssl.RemapError(err)
}

// Subject returns the subject name, borrowed from c.
func (c *Certificate) Subject() (*Name, error) {
	x, err := c.ptr("Certificate.Subject")
	if err != nil {
		return nil, err
	}
	return c.borrowName(backend.X509SubjectName(x)), nil
}

// Issuer returns the issuer name, borrowed from c.
func (c *Certificate) Issuer() (*Name, error) {
	x, err := c.ptr("Certificate.Issuer")
	if err != nil {
		return nil, err
	}
	return c.borrowName(backend.X509IssuerName(x)), nil
}

func (c *Certificate) borrowName(n backend.X509Name) *Name {
	return &Name{ref: handle.Borrow(n, c), alive: func() bool { return !c.x.Freed() }}
}

func (c *Certificate) SerialNumber() (*big.Int, error) {
	x, err := c.ptr("Certificate.SerialNumber")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(c)
	n, err := backend.X509SerialNumber(x)
	return n, openssl.RemapError(err)
}

func (c *Certificate) NotBefore() (time.Time, error) {
	x, err := c.ptr("Certificate.NotBefore")
	if err != nil {
		return time.Time{}, err
	}
	defer runtime.KeepAlive(c)
	t, err := backend.X509NotBefore(x)
	return t, openssl.RemapError(err)
}

func (c *Certificate) NotAfter() (time.Time, error) {
	x, err := c.ptr("Certificate.NotAfter")
	if err != nil {
		return time.Time{}, err
	}
	defer runtime.KeepAlive(c)
	t, err := backend.X509NotAfter(x)
	return t, openssl.RemapError(err)
}

// Version is the one-based X.509 version, normally 3.
func (c *Certificate) Version() int {
	x := c.x.Ptr()
	if x == nil {
		return 0
	}
	defer runtime.KeepAlive(c)
	return backend.X509Version(x)
}

// Fingerprint hashes the DER encoding with md.
func (c *Certificate) Fingerprint(md hash.MessageDigest) ([]byte, error) {
	if !md.Valid() {
		return nil, hash.ErrInvalidDigest
	}
	x, err := c.ptr("Certificate.Fingerprint")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(c)
	out, err := backend.X509Digest(x, md.Raw())
	return out, openssl.RemapError(err)
}

// PublicKey returns the subject public key.
func (c *Certificate) PublicKey() (*pkey.PKey, error) {
	x, err := c.ptr("Certificate.PublicKey")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(c)
	k, err := backend.X509PublicKey(x)
	if err != nil {
		return nil, openssl.RemapError(err)
	}
	return pkey.FromRaw(k)
}

// Verify reports whether c was signed by key. A bad signature is (false, nil).
func (c *Certificate) Verify(key *pkey.PKey) (bool, error) {
	x, err := c.ptr("Certificate.Verify")
	if err != nil {
		return false, err
	}
	k := key.Raw()
	if k == nil {
		return false, openssl.Closed("Certificate.Verify")
	}
	defer runtime.KeepAlive(key)
	defer runtime.KeepAlive(c)
	ok, err := backend.X509Verify(x, k)
	return ok, openssl.RemapError(err)
}

// CheckHost reports whether c is valid for the DNS name host.
func (c *Certificate) CheckHost(host string) (bool, error) {
	x, err := c.ptr("Certificate.CheckHost")
	if err != nil {
		return false, err
	}
	defer runtime.KeepAlive(c)
	ok, err := backend.X509CheckHost(x, host)
	return ok, openssl.RemapError(err)
}

// CheckIP reports whether c is valid for ip.
func (c *Certificate) CheckIP(ip net.IP) (bool, error) {
	x, err := c.ptr("Certificate.CheckIP")
	if err != nil {
		return false, err
	}
	defer runtime.KeepAlive(c)
	ok, err := backend.X509CheckIP(x, ip.String())
	return ok, openssl.RemapError(err)
}

// Issued reports whether c's subject and key identify it as the issuer of
// subject. The signature is not checked.
func (c *Certificate) Issued(subject *Certificate) bool {
	a, b := c.x.Ptr(), subject.x.Ptr()
	if a == nil || b == nil {
		return false
	}
	defer runtime.KeepAlive(subject)
	defer runtime.KeepAlive(c)
	return backend.X509CheckIssued(a, b)
}

// Clone returns a second reference to the same certificate.
func (c *Certificate) Clone() (*Certificate, error) {
	x, err := c.ptr("Certificate.Clone")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(c)
	return CloneRaw(x)
}

// Disown hands this reference to a consumer that will free it, such as
// SSL_CTX_add_extra_chain_cert. c behaves as freed afterwards.
func (c *Certificate) Disown() backend.X509 {
	return c.x.Disown()
}

// Free releases this reference. It is safe to call more than once.
func (c *Certificate) Free() {
	if c == nil {
		return
	}
	c.x.Free()
}
