//go:build cgo && !windows

package symm

import (
	"fmt"
	"runtime"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/backend"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/handle"
)

// Mode selects the direction of a Crypter.
type Mode int

const (
	ModeEncrypt Mode = iota
	ModeDecrypt
)

func (m Mode) String() string {
	if m == ModeDecrypt {
		return "decrypt"
	}
	return "encrypt"
}

// Crypter encrypts or decrypts a single message. Block ciphers pad by
// default; call Pad(false) before the first Update to disable it.
type Crypter struct {
	cipher Cipher
	mode   Mode
	ctx    *handle.Owned[backend.CipherCtx]
}

// NewCrypter keys a context for one message. For AEAD ciphers iv may be any
// length the mode accepts; otherwise it must be exactly IVLen bytes.
func NewCrypter(c Cipher, mode Mode, key, iv []byte) (*Crypter, error) {
	if !c.Valid() {
		return nil, ErrInvalidCipher
	}
	if len(key) != c.KeyLen() {
		return nil, fmt.Errorf("%w: %s wants %d bytes, got %d", ErrKeyLength, c.Name(), c.KeyLen(), len(key))
	}
	if !c.IsAEAD() && len(iv) != c.IVLen() {
		return nil, fmt.Errorf("%w: %s wants %d bytes, got %d", ErrIVLength, c.Name(), c.IVLen(), len(iv))
	}
	raw, err := backend.NewCipherCtx()
	if err != nil {
		return nil, openssl.RemapError(err)
	}
	owned, err := handle.Own(raw, backend.FreeCipherCtx)
	if err != nil {
		return nil, err
	}
	if err := backend.CipherInit(raw, c.c, key, iv, mode == ModeEncrypt); err != nil {
		owned.Free()
		return nil, openssl.RemapError(err)
	}
	return &Crypter{cipher: c, mode: mode, ctx: owned}, nil
}

func (cr *Crypter) ptr(op string) (backend.CipherCtx, error) {
	c := cr.ctx.Ptr()
	if c == nil {
		return nil, openssl.Closed(op)
	}
	return c, nil
}

func (cr *Crypter) Cipher() Cipher { return cr.cipher }
func (cr *Crypter) Mode() Mode     { return cr.mode }

// Pad toggles PKCS#7 padding for block modes.
func (cr *Crypter) Pad(on bool) error {
	c, err := cr.ptr("Crypter.Pad")
	if err != nil {
		return err
	}
	defer runtime.KeepAlive(cr)
	return openssl.RemapError(backend.CipherSetPadding(c, on))
}

// AAD feeds additional authenticated data. It must precede Update.
func (cr *Crypter) AAD(aad []byte) error {
	if !cr.cipher.IsAEAD() {
		return ErrNotAEAD
	}
	c, err := cr.ptr("Crypter.AAD")
	if err != nil {
		return err
	}
	defer runtime.KeepAlive(cr)
	return openssl.RemapError(backend.CipherAAD(c, aad))
}

// Update processes in and writes the output to out, returning the number of
// bytes written. out must have room for len(in) plus one block.
func (cr *Crypter) Update(in, out []byte) (int, error) {
	if len(out) < len(in)+cr.cipher.BlockSize() {
		return 0, ErrShortBuffer
	}
	c, err := cr.ptr("Crypter.Update")
	if err != nil {
		return 0, err
	}
	defer runtime.KeepAlive(cr)
	n, err := backend.CipherUpdate(c, out, in)
	return n, openssl.RemapError(err)
}

// Finalize flushes the last block into out, which must hold one block. For
// AEAD decryption a tag must have been set with SetTag, and a mismatch fails
// here.
func (cr *Crypter) Finalize(out []byte) (int, error) {
	if len(out) < cr.cipher.BlockSize() {
		return 0, ErrShortBuffer
	}
	c, err := cr.ptr("Crypter.Finalize")
	if err != nil {
		return 0, err
	}
	defer runtime.KeepAlive(cr)
	n, err := backend.CipherFinal(c, out)
	return n, openssl.RemapError(err)
}

// SetTag supplies the expected authentication tag before Finalize.
func (cr *Crypter) SetTag(tag []byte) error {
	if !cr.cipher.IsAEAD() {
		return ErrNotAEAD
	}
	c, err := cr.ptr("Crypter.SetTag")
	if err != nil {
		return err
	}
	defer runtime.KeepAlive(cr)
	return openssl.RemapError(backend.CipherSetTag(c, tag))
}

// Tag returns the n-byte authentication tag after an encrypting Finalize.
func (cr *Crypter) Tag(n int) ([]byte, error) {
	if !cr.cipher.IsAEAD() {
		return nil, ErrNotAEAD
	}
	c, err := cr.ptr("Crypter.Tag")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(cr)
	tag := make([]byte, n)
	if err := backend.CipherGetTag(c, tag); err != nil {
		return nil, openssl.RemapError(err)
	}
	return tag, nil
}

// Free releases the context. It is safe to call more than once.
func (cr *Crypter) Free() {
	if cr == nil {
		return
	}
	cr.ctx.Free()
}
