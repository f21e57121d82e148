//go:build cgo && !windows

package symm

import (
	"errors"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/backend"
)

var (
	// ErrInvalidCipher is returned when a zero Cipher is used.
	ErrInvalidCipher = errors.New("symm: invalid cipher")
	// ErrKeyLength is returned when a key does not match the cipher.
	ErrKeyLength = errors.New("symm: wrong key length")
	// ErrIVLength is returned when an IV does not match a non-AEAD cipher.
	ErrIVLength = errors.New("symm: wrong iv length")
	// ErrShortBuffer is returned when an output buffer cannot hold the result.
	ErrShortBuffer = errors.New("symm: output buffer too small")
	// ErrNotAEAD is returned by AEAD operations on a plain cipher.
	ErrNotAEAD = errors.New("symm: cipher is not an AEAD")
)

// Cipher identifies a symmetric algorithm and mode.
type Cipher struct {
	c backend.EVPCipher
}

func AES128ECB() Cipher        { return Cipher{backend.CipherAES128ECB()} }
func AES128CBC() Cipher        { return Cipher{backend.CipherAES128CBC()} }
func AES256CBC() Cipher        { return Cipher{backend.CipherAES256CBC()} }
func AES128CTR() Cipher        { return Cipher{backend.CipherAES128CTR()} }
func AES128GCM() Cipher        { return Cipher{backend.CipherAES128GCM()} }
func AES256GCM() Cipher        { return Cipher{backend.CipherAES256GCM()} }
func ChaCha20Poly1305() Cipher { return Cipher{backend.CipherChaCha20Poly1305()} }

// ByName looks a cipher up by its OpenSSL name, e.g. "aes-256-cbc".
func ByName(name string) (Cipher, error) {
	c, err := backend.CipherByName(name)
	if err != nil {
		return Cipher{}, openssl.RemapError(err)
	}
	return Cipher{c}, nil
}

func (c Cipher) Valid() bool    { return c.c != nil }
func (c Cipher) KeyLen() int    { return backend.CipherKeyLength(c.c) }
func (c Cipher) IVLen() int     { return backend.CipherIVLength(c.c) }
func (c Cipher) BlockSize() int { return backend.CipherBlockSize(c.c) }
func (c Cipher) NID() int       { return backend.CipherNID(c.c) }
func (c Cipher) IsAEAD() bool   { return backend.CipherIsAEAD(c.c) }
func (c Cipher) Name() string   { return backend.EVPCipherName(c.c) }
func (c Cipher) String() string { return c.Name() }

// Raw returns the backend pointer for sibling packages.
func (c Cipher) Raw() backend.EVPCipher { return c.c }
