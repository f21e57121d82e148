//go:build cgo && !windows

// Package pkcs12 reads and writes PKCS#12 archives.
package pkcs12

import (
	"runtime"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/backend"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/handle"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/pkey"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/x509"
)

// PKCS12 is an encoded archive.
type PKCS12 struct {
	p *handle.Owned[backend.PKCS12]
}

func wrap(p backend.PKCS12, err error) (*PKCS12, error) {
	if err != nil {
		return nil, openssl.RemapError(err)
	}
	owned, err := handle.Own(p, backend.FreePKCS12)
	if err != nil {
		return nil, err
	}
	return &PKCS12{p: owned}, nil
}

func FromDER(der []byte) (*PKCS12, error) {
	return wrap(backend.PKCS12FromDER(der))
}

func (p *PKCS12) ptr(op string) (backend.PKCS12, error) {
	raw := p.p.Ptr()
	if raw == nil {
		return nil, openssl.Closed(op)
	}
	return raw, nil
}

func (p *PKCS12) ToDER() ([]byte, error) {
	raw, err := p.ptr("PKCS12.ToDER")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(p)
	out, err := backend.PKCS12ToDER(raw)
	return out, openssl.RemapError(err)
}

// Parsed is the content of a decrypted archive. Key and Cert are nil when
// the archive carries none.
type Parsed struct {
	Key  *pkey.PKey
	Cert *x509.Certificate
	CA   []*x509.Certificate
}

// Free releases everything in the archive.
func (p *Parsed) Free() {
	if p == nil {
		return
	}
	p.Key.Free()
	p.Cert.Free()
	for _, c := range p.CA {
		c.Free()
	}
}

// Parse decrypts the archive with password.
func (p *PKCS12) Parse(password string) (*Parsed, error) {
	raw, err := p.ptr("PKCS12.Parse")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(p)
	key, cert, ca, err := backend.PKCS12Parse(raw, password)
	if err != nil {
		return nil, openssl.RemapError(err)
	}
	out := &Parsed{}
	if key != nil {
		if out.Key, err = pkey.FromRaw(key); err != nil {
			return nil, err
		}
	}
	if cert != nil {
		if out.Cert, err = x509.FromRaw(cert); err != nil {
			out.Free()
			return nil, err
		}
	}
	for _, x := range ca {
		c, err := x509.FromRaw(x)
		if err != nil {
			out.Free()
			return nil, err
		}
		out.CA = append(out.CA, c)
	}
	return out, nil
}

func (p *PKCS12) Free() {
	if p == nil {
		return
	}
	p.p.Free()
}

// Builder collects the optional parts of a new archive.
type Builder struct {
	name string
	ca   []*x509.Certificate
}

func NewBuilder() *Builder { return &Builder{} }

// Name sets the friendly name attached to the key and certificate.
func (b *Builder) Name(name string) *Builder {
	b.name = name
	return b
}

// CA appends certificates to the chain stored alongside the leaf.
func (b *Builder) CA(certs ...*x509.Certificate) *Builder {
	b.ca = append(b.ca, certs...)
	return b
}

// Build encrypts key and cert under password.
func (b *Builder) Build(password string, key *pkey.PKey, cert *x509.Certificate) (*PKCS12, error) {
	k := key.Raw()
	if k == nil {
		return nil, openssl.Closed("Builder.Build")
	}
	x := cert.Raw()
	if x == nil {
		return nil, openssl.Closed("Builder.Build")
	}
	chain := make([]backend.X509, 0, len(b.ca))
	for _, c := range b.ca {
		raw := c.Raw()
		if raw == nil {
			return nil, openssl.Closed("Builder.Build")
		}
		chain = append(chain, raw)
	}
	p, err := wrap(backend.PKCS12Create(password, b.name, k, x, chain))
	runtime.KeepAlive(b.ca)
	runtime.KeepAlive(cert)
	runtime.KeepAlive(key)
	return p, err
}
