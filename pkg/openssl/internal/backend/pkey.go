//go:build cgo && !windows

package backend

/*
#include "shim.h"
*/
import "C"

import (
	"errors"
	"runtime/debug"
	"unsafe"
)

// Key type identifiers returned by PKeyID.
const (
	PKeyTypeRSA     = C.EVP_PKEY_RSA
	PKeyTypeEC      = C.EVP_PKEY_EC
	PKeyTypeED25519 = C.EVP_PKEY_ED25519
	PKeyTypeDH      = C.EVP_PKEY_DH
	PKeyTypeDSA     = C.EVP_PKEY_DSA
)

func FreePKey(k PKey) { C.EVP_PKEY_free(k) }

func PKeyUpRef(k PKey) error {
	return call(func() error {
		_, err := checkPositive("EVP_PKEY_up_ref", int(C.EVP_PKEY_up_ref(k)))
		return err
	})
}

// withPassword runs fn with a user pointer that routes OpenSSL's passphrase
// requests to cb. A panic in cb is held until fn returns, then raised again
// on the calling goroutine. An error returned by cb becomes the Cause of the
// failure fn reports.
func withPassword(cb PasswordFunc, fn func(u unsafe.Pointer) error) error {
	var captured *CallbackPanic
	var cbErr error
	wrapped := PasswordFunc(func(buf []byte, encrypting bool) (n int, err error) {
		defer func() {
			if r := recover(); r != nil {
				captured = &CallbackPanic{Callback: "password", Value: r, Stack: debug.Stack()}
				n, err = -1, ErrCallbackPanic
			}
		}()
		if cb == nil {
			return -1, nil
		}
		n, err = cb(buf, encrypting)
		if err != nil {
			cbErr = err
		}
		return n, err
	})
	h, p := put(wrapped)
	defer del(h)
	err := fn(unsafe.Pointer(p)) //nolint:govet
	if captured != nil {
		panic(captured)
	}
	var se *StackError
	if cbErr != nil && errors.As(err, &se) {
		se.Cause = cbErr
	}
	return err
}

// PrivateKeyFromPEM parses a private key, asking password for the passphrase
// if the PEM block is encrypted. A nil password fails encrypted input instead
// of prompting on the terminal.
func PrivateKeyFromPEM(pem []byte, password PasswordFunc) (PKey, error) {
	m, err := newMemBIO("BIO_new_mem_buf", pem)
	if err != nil {
		return nil, err
	}
	defer m.free()
	var k PKey
	err = withPassword(password, func(u unsafe.Pointer) error {
		return call(func() error {
			k = C.X_PEM_read_bio_PrivateKey_cb(m.bio, u)
			return checkPointer("PEM_read_bio_PrivateKey", unsafe.Pointer(k))
		})
	})
	return k, err
}

// PrivateKeyToPEM writes key as PKCS#8. When cipher is non-nil the output is
// encrypted with the passphrase supplied by password.
func PrivateKeyToPEM(key PKey, cipher EVPCipher, password PasswordFunc) ([]byte, error) {
	var out []byte
	err := withPassword(password, func(u unsafe.Pointer) error {
		var err error
		out, err = writeMem("PEM_write_bio_PKCS8PrivateKey", func(b *C.BIO) C.int {
			return C.X_PEM_write_bio_PrivateKey_enc(b, key, cipher, u)
		})
		return err
	})
	return out, err
}

func PublicKeyFromPEM(pem []byte) (PKey, error) {
	m, err := newMemBIO("BIO_new_mem_buf", pem)
	if err != nil {
		return nil, err
	}
	defer m.free()
	var k PKey
	err = call(func() error {
		k = C.PEM_read_bio_PUBKEY(m.bio, nil, nil, nil)
		return checkPointer("PEM_read_bio_PUBKEY", unsafe.Pointer(k))
	})
	return k, err
}

func PublicKeyToPEM(key PKey) ([]byte, error) {
	return writeMem("PEM_write_bio_PUBKEY", func(b *C.BIO) C.int { return C.PEM_write_bio_PUBKEY(b, key) })
}

func PrivateKeyFromDER(der []byte) (PKey, error) {
	buf := C.CBytes(der)
	defer C.free(buf)
	var k PKey
	err := call(func() error {
		p := (*C.uchar)(buf)
		k = C.d2i_AutoPrivateKey(nil, &p, C.long(len(der)))
		return checkPointer("d2i_AutoPrivateKey", unsafe.Pointer(k))
	})
	return k, err
}

func PrivateKeyToDER(key PKey) ([]byte, error) {
	return i2d("i2d_PrivateKey", func(out **C.uchar) C.int { return C.i2d_PrivateKey(key, out) })
}

func PublicKeyFromDER(der []byte) (PKey, error) {
	buf := C.CBytes(der)
	defer C.free(buf)
	var k PKey
	err := call(func() error {
		p := (*C.uchar)(buf)
		k = C.d2i_PUBKEY(nil, &p, C.long(len(der)))
		return checkPointer("d2i_PUBKEY", unsafe.Pointer(k))
	})
	return k, err
}

func PublicKeyToDER(key PKey) ([]byte, error) {
	return i2d("i2d_PUBKEY", func(out **C.uchar) C.int { return C.i2d_PUBKEY(key, out) })
}

func PKeyID(k PKey) int   { return int(C.X_EVP_PKEY_id(k)) }
func PKeyBits(k PKey) int { return int(C.X_EVP_PKEY_bits(k)) }
func PKeySize(k PKey) int { return int(C.X_EVP_PKEY_size(k)) }

// PKeyPublicEqual compares the public halves of two keys.
func PKeyPublicEqual(a, b PKey) bool { return C.X_EVP_PKEY_public_eq(a, b) == 1 }

func newPKey() (PKey, error) {
	var k PKey
	err := call(func() error {
		k = C.EVP_PKEY_new()
		return checkAlloc("EVP_PKEY_new", unsafe.Pointer(k))
	})
	return k, err
}

// PKeyFromRSA wraps rsa in a new EVP_PKEY holding its own reference.
func PKeyFromRSA(rsa RSA) (PKey, error) {
	k, err := newPKey()
	if err != nil {
		return nil, err
	}
	err = call(func() error {
		_, err := checkPositive("EVP_PKEY_set1_RSA", int(C.EVP_PKEY_set1_RSA(k, rsa)))
		return err
	})
	if err != nil {
		C.EVP_PKEY_free(k)
		return nil, err
	}
	return k, nil
}

// PKeyFromEC wraps key in a new EVP_PKEY holding its own reference.
func PKeyFromEC(key ECKey) (PKey, error) {
	k, err := newPKey()
	if err != nil {
		return nil, err
	}
	err = call(func() error {
		_, err := checkPositive("EVP_PKEY_set1_EC_KEY", int(C.EVP_PKEY_set1_EC_KEY(k, key)))
		return err
	})
	if err != nil {
		C.EVP_PKEY_free(k)
		return nil, err
	}
	return k, nil
}

// PKeyRSA returns an owned reference to the RSA key inside k.
func PKeyRSA(k PKey) (RSA, error) {
	var r RSA
	err := call(func() error {
		r = C.EVP_PKEY_get1_RSA(k)
		return checkPointer("EVP_PKEY_get1_RSA", unsafe.Pointer(r))
	})
	return r, err
}

// PKeyEC returns an owned reference to the EC key inside k.
func PKeyEC(k PKey) (ECKey, error) {
	var e ECKey
	err := call(func() error {
		e = C.EVP_PKEY_get1_EC_KEY(k)
		return checkPointer("EVP_PKEY_get1_EC_KEY", unsafe.Pointer(e))
	})
	return e, err
}

// GenerateED25519 creates a fresh Ed25519 key.
func GenerateED25519() (PKey, error) {
	var k PKey
	err := call(func() error {
		pctx := C.EVP_PKEY_CTX_new_id(C.EVP_PKEY_ED25519, nil)
		if err := checkAlloc("EVP_PKEY_CTX_new_id", unsafe.Pointer(pctx)); err != nil {
			return err
		}
		defer C.EVP_PKEY_CTX_free(pctx)
		if _, err := checkPositive("EVP_PKEY_keygen_init", int(C.EVP_PKEY_keygen_init(pctx))); err != nil {
			return err
		}
		_, err := checkPositive("EVP_PKEY_keygen", int(C.EVP_PKEY_keygen(pctx, &k)))
		return err
	})
	return k, err
}

// DigestSign signs data with key. md may be nil for keys with a built-in
// digest such as Ed25519.
func DigestSign(key PKey, md MD, data []byte) ([]byte, error) {
	var sig []byte
	err := call(func() error {
		mctx := C.EVP_MD_CTX_new()
		if err := checkAlloc("EVP_MD_CTX_new", unsafe.Pointer(mctx)); err != nil {
			return err
		}
		defer C.EVP_MD_CTX_free(mctx)
		if _, err := checkPositive("EVP_DigestSignInit", int(C.EVP_DigestSignInit(mctx, nil, md, nil, key))); err != nil {
			return err
		}
		var n C.size_t
		if _, err := checkPositive("EVP_DigestSign", int(C.EVP_DigestSign(mctx, nil, &n, ucharPtr(data), C.size_t(len(data))))); err != nil {
			return err
		}
		sig = make([]byte, int(n))
		if _, err := checkPositive("EVP_DigestSign", int(C.EVP_DigestSign(mctx, ucharPtr(sig), &n, ucharPtr(data), C.size_t(len(data))))); err != nil {
			return err
		}
		sig = sig[:n]
		return nil
	})
	return sig, err
}

// DigestVerify reports whether sig is a valid signature over data. A bad
// signature is (false, nil).
func DigestVerify(key PKey, md MD, data, sig []byte) (bool, error) {
	var ok bool
	err := call(func() error {
		mctx := C.EVP_MD_CTX_new()
		if err := checkAlloc("EVP_MD_CTX_new", unsafe.Pointer(mctx)); err != nil {
			return err
		}
		defer C.EVP_MD_CTX_free(mctx)
		if _, err := checkPositive("EVP_DigestVerifyInit", int(C.EVP_DigestVerifyInit(mctx, nil, md, nil, key))); err != nil {
			return err
		}
		rc, err := checkNonNegative("EVP_DigestVerify",
			int(C.EVP_DigestVerify(mctx, ucharPtr(sig), C.size_t(len(sig)), ucharPtr(data), C.size_t(len(data)))))
		ok = rc == 1
		return err
	})
	return ok, err
}
