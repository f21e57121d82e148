//go:build cgo && !windows

package backend

/*
#include "shim.h"
*/
import "C"

import (
	"math/big"
	"unsafe"
)

// ucharPtr returns a pointer to the first byte of b, or nil when b is empty.
// The pointer is valid only for the duration of the cgo call it is passed to.
func ucharPtr(b []byte) *C.uchar {
	if len(b) == 0 {
		return nil
	}
	return (*C.uchar)(unsafe.Pointer(&b[0]))
}

func charPtr(b []byte) *C.char {
	if len(b) == 0 {
		return nil
	}
	return (*C.char)(unsafe.Pointer(&b[0]))
}

// cslice views C memory as a Go slice without copying.
func cslice(p unsafe.Pointer, n int) []byte {
	if p == nil || n <= 0 {
		return nil
	}
	return unsafe.Slice((*byte)(p), n)
}

// memBIO is a read-only memory BIO over a C copy of data. The copy outlives
// the cgo call so OpenSSL may keep reading from it across calls.
type memBIO struct {
	bio  *C.BIO
	data unsafe.Pointer
}

func newMemBIO(op string, data []byte) (*memBIO, error) {
	m := &memBIO{}
	if len(data) > 0 {
		m.data = C.CBytes(data)
	}
	err := call(func() error {
		m.bio = C.BIO_new_mem_buf(m.data, C.int(len(data)))
		return checkAlloc(op, unsafe.Pointer(m.bio))
	})
	if err != nil {
		if m.data != nil {
			C.free(m.data)
		}
		return nil, err
	}
	return m, nil
}

func (m *memBIO) free() {
	if m.bio != nil {
		C.BIO_free(m.bio)
		m.bio = nil
	}
	if m.data != nil {
		C.free(m.data)
		m.data = nil
	}
}

// writeMem runs write against a fresh writable memory BIO and returns what it
// produced. write uses the non-positive failure convention.
func writeMem(op string, write func(b *C.BIO) C.int) ([]byte, error) {
	var out []byte
	err := call(func() error {
		bio := C.BIO_new(C.BIO_s_mem())
		if err := checkAlloc("BIO_new", unsafe.Pointer(bio)); err != nil {
			return err
		}
		defer C.BIO_free(bio)
		if _, err := checkPositive(op, int(write(bio))); err != nil {
			return err
		}
		var p *C.char
		n := C.X_BIO_get_mem_data(bio, &p)
		out = C.GoBytes(unsafe.Pointer(p), C.int(n))
		return nil
	})
	return out, err
}

// i2d serialises with the usual two-pass i2d_* convention.
func i2d(op string, encode func(out **C.uchar) C.int) ([]byte, error) {
	var der []byte
	err := call(func() error {
		n, err := checkPositive(op, int(encode(nil)))
		if err != nil {
			return err
		}
		buf := C.malloc(C.size_t(n))
		if buf == nil {
			return newStackError(op)
		}
		defer C.free(buf)
		p := (*C.uchar)(buf)
		written, err := checkPositive(op, int(encode(&p)))
		if err != nil {
			return err
		}
		der = C.GoBytes(buf, C.int(written))
		return nil
	})
	return der, err
}

// bnToBig copies a borrowed BIGNUM into a big.Int.
func bnToBig(bn *C.BIGNUM) *big.Int {
	if bn == nil {
		return nil
	}
	n := (int(C.BN_num_bits(bn)) + 7) / 8
	buf := make([]byte, n)
	if n > 0 {
		C.BN_bn2bin(bn, ucharPtr(buf))
	}
	return new(big.Int).SetBytes(buf)
}

// bigToBN allocates a BIGNUM from a non-negative big.Int. The caller frees it.
func bigToBN(op string, v *big.Int) (*C.BIGNUM, error) {
	b := v.Bytes()
	var bn *C.BIGNUM
	err := call(func() error {
		bn = C.BN_bin2bn(ucharPtr(b), C.int(len(b)), nil)
		return checkAlloc(op, unsafe.Pointer(bn))
	})
	return bn, err
}

func cstring(s string) (*C.char, func()) {
	cs := C.CString(s)
	return cs, func() { C.free(unsafe.Pointer(cs)) }
}
