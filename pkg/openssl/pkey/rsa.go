//go:build cgo && !windows

package pkey

import (
	"math/big"
	"runtime"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/hash"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/backend"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/handle"
)

// Padding selects an RSA encryption padding scheme.
type Padding int

const (
	PaddingPKCS1 Padding = backend.RSAPKCS1Padding
	PaddingOAEP  Padding = backend.RSAPKCS1OAEPPadding
	PaddingNone  Padding = backend.RSANoPadding
)

// DefaultExponent is the public exponent GenerateRSA uses.
const DefaultExponent = 65537

// RSA is an RSA public key or key pair.
type RSA struct {
	r *handle.Owned[backend.RSA]
}

func wrapRSA(r backend.RSA, err error) (*RSA, error) {
	if err != nil {
		return nil, openssl.RemapError(err)
	}
	owned, err := handle.Own(r, backend.FreeRSA)
	if err != nil {
		return nil, err
	}
	return &RSA{r: owned}, nil
}

// GenerateRSA creates a key pair with the default public exponent.
func GenerateRSA(bits int) (*RSA, error) {
	return GenerateRSAWithExponent(bits, DefaultExponent)
}

func GenerateRSAWithExponent(bits int, exponent uint64) (*RSA, error) {
	return wrapRSA(backend.GenerateRSA(bits, exponent))
}

// RSAFromPublicComponents builds a public key from its modulus and exponent.
func RSAFromPublicComponents(n, e *big.Int) (*RSA, error) {
	return wrapRSA(backend.RSAFromPublicComponents(n, e))
}

// RSAPrivateKeyFromPEM parses PKCS#1 or PKCS#8, encrypted when cb is set.
func RSAPrivateKeyFromPEM(pem []byte, cb PasswordCallback) (*RSA, error) {
	return wrapRSA(backend.RSAPrivateKeyFromPEM(pem, cb.backend()))
}

// RSAPublicKeyFromPEM parses a "PUBLIC KEY" block holding an RSA key.
func RSAPublicKeyFromPEM(pem []byte) (*RSA, error) {
	return wrapRSA(backend.RSAPublicKeyFromPEM(pem))
}

func (r *RSA) ptr(op string) (backend.RSA, error) {
	k := r.r.Ptr()
	if k == nil {
		return nil, openssl.Closed(op)
	}
	return k, nil
}

// PrivateKeyToPEM writes the traditional "RSA PRIVATE KEY" form.
func (r *RSA) PrivateKeyToPEM() ([]byte, error) {
	k, err := r.ptr("RSA.PrivateKeyToPEM")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(r)
	out, err := backend.RSAPrivateKeyToPEM(k)
	return out, openssl.RemapError(err)
}

func (r *RSA) PublicKeyToPEM() ([]byte, error) {
	k, err := r.ptr("RSA.PublicKeyToPEM")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(r)
	out, err := backend.RSAPublicKeyToPEM(k)
	return out, openssl.RemapError(err)
}

// Size is the modulus length in bytes.
func (r *RSA) Size() int {
	k := r.r.Ptr()
	if k == nil {
		return 0
	}
	defer runtime.KeepAlive(r)
	return backend.RSASize(k)
}

// N returns a copy of the modulus.
func (r *RSA) N() *big.Int {
	n, _, _ := r.components()
	return n
}

// E returns a copy of the public exponent.
func (r *RSA) E() *big.Int {
	_, e, _ := r.components()
	return e
}

func (r *RSA) components() (n, e, d *big.Int) {
	k := r.r.Ptr()
	if k == nil {
		return nil, nil, nil
	}
	defer runtime.KeepAlive(r)
	return backend.RSAComponents(k)
}

func (r *RSA) IsPrivate() bool {
	k := r.r.Ptr()
	if k == nil {
		return false
	}
	defer runtime.KeepAlive(r)
	return backend.RSAIsPrivate(k)
}

// Check validates a key pair. An inconsistent key is (false, nil).
func (r *RSA) Check() (bool, error) {
	k, err := r.ptr("RSA.Check")
	if err != nil {
		return false, err
	}
	defer runtime.KeepAlive(r)
	ok, err := backend.RSACheck(k)
	return ok, openssl.RemapError(err)
}

// Sign makes a PKCS#1 v1.5 signature over digest, which must already be the
// output of md.
func (r *RSA) Sign(md hash.MessageDigest, digest []byte) ([]byte, error) {
	if !md.Valid() {
		return nil, hash.ErrInvalidDigest
	}
	k, err := r.ptr("RSA.Sign")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(r)
	sig, err := backend.RSASign(k, md.NID(), digest)
	return sig, openssl.RemapError(err)
}

// Verify checks a PKCS#1 v1.5 signature over digest.
func (r *RSA) Verify(md hash.MessageDigest, digest, sig []byte) bool {
	k := r.r.Ptr()
	if k == nil || !md.Valid() {
		return false
	}
	defer runtime.KeepAlive(r)
	return backend.RSAVerify(k, md.NID(), digest, sig)
}

func (r *RSA) PublicEncrypt(data []byte, padding Padding) ([]byte, error) {
	k, err := r.ptr("RSA.PublicEncrypt")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(r)
	out, err := backend.RSAPublicEncrypt(k, data, int(padding))
	return out, openssl.RemapError(err)
}

func (r *RSA) PrivateDecrypt(data []byte, padding Padding) ([]byte, error) {
	k, err := r.ptr("RSA.PrivateDecrypt")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(r)
	out, err := backend.RSAPrivateDecrypt(k, data, int(padding))
	return out, openssl.RemapError(err)
}

// Clone returns a second handle to the same key.
func (r *RSA) Clone() (*RSA, error) {
	k, err := r.ptr("RSA.Clone")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(r)
	if err := backend.RSAUpRef(k); err != nil {
		return nil, openssl.RemapError(err)
	}
	return wrapRSA(k, nil)
}

func (r *RSA) Free() {
	if r == nil {
		return
	}
	r.r.Free()
}
