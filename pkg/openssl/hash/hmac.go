//go:build cgo && !windows

package hash

import (
	"crypto/subtle"
	"runtime"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/backend"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/handle"
)

// MAC computes an HMAC. It implements hash.Hash.
type MAC struct {
	md  MessageDigest
	ctx *handle.Owned[backend.HMACCtx]
}

// NewHMAC keys a new MAC. The key is copied by OpenSSL; callers may zero it
// afterwards.
func NewHMAC(md MessageDigest, key []byte) (*MAC, error) {
	if !md.Valid() {
		return nil, ErrInvalidDigest
	}
	c, err := backend.NewHMACCtx()
	if err != nil {
		return nil, openssl.RemapError(err)
	}
	owned, err := handle.Own(c, backend.FreeHMACCtx)
	if err != nil {
		return nil, err
	}
	if key == nil {
		key = []byte{}
	}
	if err := backend.HMACInit(c, key, md.md); err != nil {
		owned.Free()
		return nil, openssl.RemapError(err)
	}
	return &MAC{md: md, ctx: owned}, nil
}

func (m *MAC) ptr(op string) (backend.HMACCtx, error) {
	c := m.ctx.Ptr()
	if c == nil {
		return nil, openssl.Closed(op)
	}
	return c, nil
}

func (m *MAC) Write(p []byte) (int, error) {
	c, err := m.ptr("MAC.Write")
	if err != nil {
		return 0, err
	}
	defer runtime.KeepAlive(m)
	if err := backend.HMACUpdate(c, p); err != nil {
		return 0, openssl.RemapError(err)
	}
	return len(p), nil
}

// Sum appends the current MAC to b without disturbing the running state.
// Like Hasher.Sum it panics when OpenSSL fails.
func (m *MAC) Sum(b []byte) []byte {
	c, err := m.ptr("MAC.Sum")
	if err != nil {
		panic(err)
	}
	defer runtime.KeepAlive(m)
	tmp, err := backend.NewHMACCtx()
	if err != nil {
		panic(openssl.RemapError(err))
	}
	defer backend.FreeHMACCtx(tmp)
	if err := backend.HMACCopy(tmp, c); err != nil {
		panic(openssl.RemapError(err))
	}
	out, err := backend.HMACFinal(tmp)
	if err != nil {
		panic(openssl.RemapError(err))
	}
	return append(b, out...)
}

// Reset restarts the MAC with the same key.
func (m *MAC) Reset() {
	c, err := m.ptr("MAC.Reset")
	if err != nil {
		return
	}
	_ = backend.HMACInit(c, nil, nil)
	runtime.KeepAlive(m)
}

func (m *MAC) Size() int      { return m.md.Size() }
func (m *MAC) BlockSize() int { return m.md.BlockSize() }

func (m *MAC) Free() {
	if m == nil {
		return
	}
	m.ctx.Free()
}

// HMAC computes a MAC in one call.
func HMAC(md MessageDigest, key, data []byte) ([]byte, error) {
	if !md.Valid() {
		return nil, ErrInvalidDigest
	}
	out, err := backend.HMACOneShot(md.md, key, data)
	return out, openssl.RemapError(err)
}

// Equal compares two MACs in constant time.
func Equal(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
