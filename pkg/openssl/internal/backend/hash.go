//go:build cgo && !windows

package backend

/*
#include "shim.h"
*/
import "C"

import "unsafe"

// MaxMDSize bounds every digest this library produces.
const MaxMDSize = C.EVP_MAX_MD_SIZE

func MDMD5() MD      { return (*C.EVP_MD)(C.EVP_md5()) }
func MDSHA1() MD     { return (*C.EVP_MD)(C.EVP_sha1()) }
func MDSHA224() MD   { return (*C.EVP_MD)(C.EVP_sha224()) }
func MDSHA256() MD   { return (*C.EVP_MD)(C.EVP_sha256()) }
func MDSHA384() MD   { return (*C.EVP_MD)(C.EVP_sha384()) }
func MDSHA512() MD   { return (*C.EVP_MD)(C.EVP_sha512()) }
func MDSHA3_256() MD { return (*C.EVP_MD)(C.EVP_sha3_256()) }

// MDByName looks up a digest such as "sha256" or "SHA3-512".
func MDByName(name string) (MD, error) {
	cn, free := cstring(name)
	defer free()
	var md MD
	err := call(func() error {
		md = (*C.EVP_MD)(C.EVP_get_digestbyname(cn))
		if md == nil {
			return newStackError("EVP_get_digestbyname")
		}
		return nil
	})
	return md, err
}

func MDSize(md MD) int      { return int(C.X_EVP_MD_size(md)) }
func MDBlockSize(md MD) int { return int(C.X_EVP_MD_block_size(md)) }
func MDType(md MD) int      { return int(C.X_EVP_MD_type(md)) }
func MDName(md MD) string   { return C.GoString(C.OBJ_nid2sn(C.X_EVP_MD_type(md))) }

func NewMDCtx() (MDCtx, error) {
	var c MDCtx
	err := call(func() error {
		c = C.EVP_MD_CTX_new()
		return checkAlloc("EVP_MD_CTX_new", unsafe.Pointer(c))
	})
	return c, err
}

func FreeMDCtx(c MDCtx) { C.EVP_MD_CTX_free(c) }

func DigestInit(c MDCtx, md MD) error {
	return call(func() error {
		_, err := checkPositive("EVP_DigestInit_ex", int(C.EVP_DigestInit_ex(c, md, nil)))
		return err
	})
}

func DigestUpdate(c MDCtx, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return call(func() error {
		_, err := checkPositive("EVP_DigestUpdate", int(C.EVP_DigestUpdate(c, unsafe.Pointer(&data[0]), C.size_t(len(data)))))
		return err
	})
}

// DigestFinal finishes c. The context must be re-initialised before reuse.
func DigestFinal(c MDCtx) ([]byte, error) {
	out := make([]byte, MaxMDSize)
	var n C.uint
	err := call(func() error {
		_, err := checkPositive("EVP_DigestFinal_ex", int(C.EVP_DigestFinal_ex(c, ucharPtr(out), &n)))
		return err
	})
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

// MDCtxCopy copies the running state of src into dst.
func MDCtxCopy(dst, src MDCtx) error {
	return call(func() error {
		_, err := checkPositive("EVP_MD_CTX_copy_ex", int(C.EVP_MD_CTX_copy_ex(dst, src)))
		return err
	})
}

// Digest hashes data in one call.
func Digest(md MD, data []byte) ([]byte, error) {
	out := make([]byte, MaxMDSize)
	var n C.uint
	err := call(func() error {
		_, err := checkPositive("EVP_Digest", int(C.EVP_Digest(unsafe.Pointer(ucharPtr(data)), C.size_t(len(data)), ucharPtr(out), &n, md, nil)))
		return err
	})
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

// HMAC.

func NewHMACCtx() (HMACCtx, error) {
	var c HMACCtx
	err := call(func() error {
		c = C.HMAC_CTX_new()
		return checkAlloc("HMAC_CTX_new", unsafe.Pointer(c))
	})
	return c, err
}

func FreeHMACCtx(c HMACCtx) { C.HMAC_CTX_free(c) }

// HMACInit keys c. A nil key with a nil md restarts with the previous key.
func HMACInit(c HMACCtx, key []byte, md MD) error {
	var k unsafe.Pointer
	if key != nil {
		// HMAC_Init_ex treats a NULL key as "reuse"; an empty key must
		// still be a valid pointer.
		k = C.CBytes(append(key[:len(key):len(key)], 0))
		defer C.free(k)
	}
	return call(func() error {
		_, err := checkPositive("HMAC_Init_ex", int(C.HMAC_Init_ex(c, k, C.int(len(key)), md, nil)))
		return err
	})
}

func HMACUpdate(c HMACCtx, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return call(func() error {
		_, err := checkPositive("HMAC_Update", int(C.HMAC_Update(c, ucharPtr(data), C.size_t(len(data)))))
		return err
	})
}

func HMACFinal(c HMACCtx) ([]byte, error) {
	out := make([]byte, MaxMDSize)
	var n C.uint
	err := call(func() error {
		_, err := checkPositive("HMAC_Final", int(C.HMAC_Final(c, ucharPtr(out), &n)))
		return err
	})
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

func HMACCopy(dst, src HMACCtx) error {
	return call(func() error {
		_, err := checkPositive("HMAC_CTX_copy", int(C.HMAC_CTX_copy(dst, src)))
		return err
	})
}

// HMACOneShot computes an HMAC in one call.
func HMACOneShot(md MD, key, data []byte) ([]byte, error) {
	c, err := NewHMACCtx()
	if err != nil {
		return nil, err
	}
	defer FreeHMACCtx(c)
	if key == nil {
		key = []byte{}
	}
	if err := HMACInit(c, key, md); err != nil {
		return nil, err
	}
	if err := HMACUpdate(c, data); err != nil {
		return nil, err
	}
	return HMACFinal(c)
}
