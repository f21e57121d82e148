//go:build cgo && !windows

package hash

import (
	"runtime"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/backend"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/handle"
)

// Hasher is a running digest computation. It implements hash.Hash.
type Hasher struct {
	md  MessageDigest
	ctx *handle.Owned[backend.MDCtx]
}

func New(md MessageDigest) (*Hasher, error) {
	if !md.Valid() {
		return nil, ErrInvalidDigest
	}
	c, err := backend.NewMDCtx()
	if err != nil {
		return nil, openssl.RemapError(err)
	}
	owned, err := handle.Own(c, backend.FreeMDCtx)
	if err != nil {
		return nil, err
	}
	h := &Hasher{md: md, ctx: owned}
	if err := backend.DigestInit(c, md.md); err != nil {
		owned.Free()
		return nil, openssl.RemapError(err)
	}
	return h, nil
}

func (h *Hasher) ptr(op string) (backend.MDCtx, error) {
	c := h.ctx.Ptr()
	if c == nil {
		return nil, openssl.Closed(op)
	}
	return c, nil
}

// Write never returns a short count without an error.
func (h *Hasher) Write(p []byte) (int, error) {
	c, err := h.ptr("Hasher.Write")
	if err != nil {
		return 0, err
	}
	defer runtime.KeepAlive(h)
	if err := backend.DigestUpdate(c, p); err != nil {
		return 0, openssl.RemapError(err)
	}
	return len(p), nil
}

// Finish returns the digest of everything written and resets h.
func (h *Hasher) Finish() ([]byte, error) {
	c, err := h.ptr("Hasher.Finish")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(h)
	out, err := backend.DigestFinal(c)
	if err != nil {
		return nil, openssl.RemapError(err)
	}
	if err := backend.DigestInit(c, h.md.md); err != nil {
		return nil, openssl.RemapError(err)
	}
	return out, nil
}

// Sum appends the current digest to b without changing the running state.
// It panics if OpenSSL cannot copy the context or the Hasher was freed, as
// hash.Hash leaves no room for an error.
func (h *Hasher) Sum(b []byte) []byte {
	c, err := h.ptr("Hasher.Sum")
	if err != nil {
		panic(err)
	}
	defer runtime.KeepAlive(h)
	tmp, err := backend.NewMDCtx()
	if err != nil {
		panic(openssl.RemapError(err))
	}
	defer backend.FreeMDCtx(tmp)
	if err := backend.MDCtxCopy(tmp, c); err != nil {
		panic(openssl.RemapError(err))
	}
	out, err := backend.DigestFinal(tmp)
	if err != nil {
		panic(openssl.RemapError(err))
	}
	return append(b, out...)
}

// Reset restarts the digest.
func (h *Hasher) Reset() {
	c, err := h.ptr("Hasher.Reset")
	if err != nil {
		return
	}
	_ = backend.DigestInit(c, h.md.md)
	runtime.KeepAlive(h)
}

func (h *Hasher) Size() int      { return h.md.Size() }
func (h *Hasher) BlockSize() int { return h.md.BlockSize() }

// Clone copies the running state into a new Hasher.
func (h *Hasher) Clone() (*Hasher, error) {
	c, err := h.ptr("Hasher.Clone")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(h)
	out, err := New(h.md)
	if err != nil {
		return nil, err
	}
	if err := backend.MDCtxCopy(out.ctx.Ptr(), c); err != nil {
		out.Free()
		return nil, openssl.RemapError(err)
	}
	return out, nil
}

// Free releases the context. It is safe to call more than once.
func (h *Hasher) Free() {
	if h == nil {
		return
	}
	h.ctx.Free()
}
