//go:build cgo && !windows

package pkey

import (
	"runtime"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/hash"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/backend"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/handle"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/symm"
)

// Type is an EVP_PKEY algorithm identifier.
type Type int

const (
	TypeRSA     Type = backend.PKeyTypeRSA
	TypeEC      Type = backend.PKeyTypeEC
	TypeED25519 Type = backend.PKeyTypeED25519
	TypeDH      Type = backend.PKeyTypeDH
	TypeDSA     Type = backend.PKeyTypeDSA
)

func (t Type) String() string {
	switch t {
	case TypeRSA:
		return "RSA"
	case TypeEC:
		return "EC"
	case TypeED25519:
		return "ED25519"
	case TypeDH:
		return "DH"
	case TypeDSA:
		return "DSA"
	default:
		return backend.ShortName(int(t))
	}
}

// PKey is an EVP_PKEY holding a public key or a key pair.
type PKey struct {
	k *handle.Owned[backend.PKey]
}

// FromRaw takes ownership of a backend key. Sibling packages use it for keys
// returned by certificates, archives and TLS contexts.
func FromRaw(k backend.PKey) (*PKey, error) {
	owned, err := handle.Own(k, backend.FreePKey)
	if err != nil {
		return nil, err
	}
	return &PKey{k: owned}, nil
}

func wrap(k backend.PKey, err error) (*PKey, error) {
	if err != nil {
		return nil, openssl.RemapError(err)
	}
	return FromRaw(k)
}

// PrivateKeyFromPEM parses an unencrypted private key in any PEM form
// OpenSSL recognises.
func PrivateKeyFromPEM(pem []byte) (*PKey, error) {
	return wrap(backend.PrivateKeyFromPEM(pem, nil))
}

// PrivateKeyFromPEMWithPassword parses a private key that may be encrypted.
// A panic inside cb is raised again from this call.
func PrivateKeyFromPEMWithPassword(pem []byte, cb PasswordCallback) (*PKey, error) {
	return wrap(backend.PrivateKeyFromPEM(pem, cb.backend()))
}

func PublicKeyFromPEM(pem []byte) (*PKey, error) {
	return wrap(backend.PublicKeyFromPEM(pem))
}

func PrivateKeyFromDER(der []byte) (*PKey, error) {
	return wrap(backend.PrivateKeyFromDER(der))
}

func PublicKeyFromDER(der []byte) (*PKey, error) {
	return wrap(backend.PublicKeyFromDER(der))
}

// GenerateED25519 creates a new Ed25519 key pair.
func GenerateED25519() (*PKey, error) {
	return wrap(backend.GenerateED25519())
}

// FromRSA wraps r. The PKey holds its own reference; r stays usable.
func FromRSA(r *RSA) (*PKey, error) {
	raw, err := r.ptr("pkey.FromRSA")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(r)
	return wrap(backend.PKeyFromRSA(raw))
}

// FromEC wraps k. The PKey holds its own reference; k stays usable.
func FromEC(k *ECKey) (*PKey, error) {
	raw, err := k.ptr("pkey.FromEC")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(k)
	return wrap(backend.PKeyFromEC(raw))
}

func (p *PKey) ptr(op string) (backend.PKey, error) {
	k := p.k.Ptr()
	if k == nil {
		return nil, openssl.Closed(op)
	}
	return k, nil
}

// Raw returns the backend pointer for sibling packages. The caller must keep
// p reachable while the pointer is in use.
func (p *PKey) Raw() backend.PKey { return p.k.Ptr() }

// PrivateKeyToPEM writes the key as unencrypted PKCS#8.
func (p *PKey) PrivateKeyToPEM() ([]byte, error) {
	k, err := p.ptr("PKey.PrivateKeyToPEM")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(p)
	out, err := backend.PrivateKeyToPEM(k, nil, nil)
	return out, openssl.RemapError(err)
}

// PrivateKeyToPEMWithPassword writes encrypted PKCS#8 using c and the
// passphrase from cb.
func (p *PKey) PrivateKeyToPEMWithPassword(c symm.Cipher, cb PasswordCallback) ([]byte, error) {
	if !c.Valid() {
		return nil, symm.ErrInvalidCipher
	}
	k, err := p.ptr("PKey.PrivateKeyToPEMWithPassword")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(p)
	out, err := backend.PrivateKeyToPEM(k, c.Raw(), cb.backend())
	return out, openssl.RemapError(err)
}

func (p *PKey) PublicKeyToPEM() ([]byte, error) {
	k, err := p.ptr("PKey.PublicKeyToPEM")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(p)
	out, err := backend.PublicKeyToPEM(k)
	return out, openssl.RemapError(err)
}

func (p *PKey) PrivateKeyToDER() ([]byte, error) {
	k, err := p.ptr("PKey.PrivateKeyToDER")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(p)
	out, err := backend.PrivateKeyToDER(k)
	return out, openssl.RemapError(err)
}

// PublicKeyToDER writes a SubjectPublicKeyInfo.
func (p *PKey) PublicKeyToDER() ([]byte, error) {
	k, err := p.ptr("PKey.PublicKeyToDER")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(p)
	out, err := backend.PublicKeyToDER(k)
	return out, openssl.RemapError(err)
}

// Type returns the key algorithm, or 0 once p is freed.
func (p *PKey) Type() Type {
	k := p.k.Ptr()
	if k == nil {
		return 0
	}
	defer runtime.KeepAlive(p)
	return Type(backend.PKeyID(k))
}

func (p *PKey) Bits() int {
	k := p.k.Ptr()
	if k == nil {
		return 0
	}
	defer runtime.KeepAlive(p)
	return backend.PKeyBits(k)
}

// Size is the maximum signature size in bytes.
func (p *PKey) Size() int {
	k := p.k.Ptr()
	if k == nil {
		return 0
	}
	defer runtime.KeepAlive(p)
	return backend.PKeySize(k)
}

// PublicEqual reports whether p and other share a public key.
func (p *PKey) PublicEqual(other *PKey) bool {
	a, b := p.k.Ptr(), other.k.Ptr()
	if a == nil || b == nil {
		return false
	}
	defer runtime.KeepAlive(other)
	defer runtime.KeepAlive(p)
	return backend.PKeyPublicEqual(a, b)
}

// RSA returns the RSA key inside p.
func (p *PKey) RSA() (*RSA, error) {
	k, err := p.ptr("PKey.RSA")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(p)
	return wrapRSA(backend.PKeyRSA(k))
}

// EC returns the EC key inside p.
func (p *PKey) EC() (*ECKey, error) {
	k, err := p.ptr("PKey.EC")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(p)
	return wrapEC(backend.PKeyEC(k))
}

// Sign hashes data with md and signs it. Pass the zero MessageDigest for
// Ed25519, which hashes internally.
func (p *PKey) Sign(md hash.MessageDigest, data []byte) ([]byte, error) {
	k, err := p.ptr("PKey.Sign")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(p)
	sig, err := backend.DigestSign(k, md.Raw(), data)
	return sig, openssl.RemapError(err)
}

// Verify reports whether sig is valid for data. A well-formed but wrong
// signature is (false, nil).
func (p *PKey) Verify(md hash.MessageDigest, data, sig []byte) (bool, error) {
	k, err := p.ptr("PKey.Verify")
	if err != nil {
		return false, err
	}
	defer runtime.KeepAlive(p)
	ok, err := backend.DigestVerify(k, md.Raw(), data, sig)
	return ok, openssl.RemapError(err)
}

// Clone returns a second handle to the same key.
func (p *PKey) Clone() (*PKey, error) {
	k, err := p.ptr("PKey.Clone")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(p)
	if err := backend.PKeyUpRef(k); err != nil {
		return nil, openssl.RemapError(err)
	}
	return FromRaw(k)
}

// Free releases this reference. It is safe to call more than once.
func (p *PKey) Free() {
	if p == nil {
		return
	}
	p.k.Free()
}
