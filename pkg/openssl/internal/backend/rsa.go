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

// RSA padding modes.
const (
	RSAPKCS1Padding     = C.RSA_PKCS1_PADDING
	RSAPKCS1OAEPPadding = C.RSA_PKCS1_OAEP_PADDING
	RSANoPadding        = C.RSA_NO_PADDING
)

func FreeRSA(r RSA) { C.RSA_free(r) }

func RSAUpRef(r RSA) error {
	return call(func() error {
		_, err := checkPositive("RSA_up_ref", int(C.RSA_up_ref(r)))
		return err
	})
}

func GenerateRSA(bits int, exponent uint64) (RSA, error) {
	var r RSA
	err := call(func() error {
		e := C.BN_new()
		if err := checkAlloc("BN_new", unsafe.Pointer(e)); err != nil {
			return err
		}
		defer C.BN_free(e)
		if _, err := checkPositive("BN_set_word", int(C.BN_set_word(e, C.ulong(exponent)))); err != nil {
			return err
		}
		r = C.RSA_new()
		if err := checkAlloc("RSA_new", unsafe.Pointer(r)); err != nil {
			return err
		}
		if _, err := checkPositive("RSA_generate_key_ex", int(C.RSA_generate_key_ex(r, C.int(bits), e, nil))); err != nil {
			C.RSA_free(r)
			r = nil
			return err
		}
		return nil
	})
	return r, err
}

// RSAFromPublicComponents builds a public key from its modulus and exponent.
func RSAFromPublicComponents(n, e *big.Int) (RSA, error) {
	bn, err := bigToBN("BN_bin2bn", n)
	if err != nil {
		return nil, err
	}
	be, err := bigToBN("BN_bin2bn", e)
	if err != nil {
		C.BN_free(bn)
		return nil, err
	}
	var r RSA
	err = call(func() error {
		r = C.RSA_new()
		if err := checkAlloc("RSA_new", unsafe.Pointer(r)); err != nil {
			return err
		}
		if _, err := checkPositive("RSA_set0_key", int(C.RSA_set0_key(r, bn, be, nil))); err != nil {
			C.RSA_free(r)
			r = nil
			return err
		}
		return nil
	})
	if err != nil {
		C.BN_free(bn)
		C.BN_free(be)
	}
	return r, err
}

// RSASize is the modulus size in bytes.
func RSASize(r RSA) int { return int(C.RSA_size(r)) }

// RSAComponents copies out n, e and, for private keys, d.
func RSAComponents(r RSA) (n, e, d *big.Int) {
	var bn, be, bd *C.BIGNUM
	C.RSA_get0_key(r, &bn, &be, &bd)
	return bnToBig(bn), bnToBig(be), bnToBig(bd)
}

func RSAIsPrivate(r RSA) bool {
	var bd *C.BIGNUM
	C.RSA_get0_key(r, nil, nil, &bd)
	return bd != nil
}

// RSACheck validates a private key. A key that is well formed but
// inconsistent is (false, nil).
func RSACheck(r RSA) (bool, error) {
	var ok bool
	err := call(func() error {
		rc, err := checkNonNegative("RSA_check_key", int(C.RSA_check_key(r)))
		ok = rc == 1
		return err
	})
	return ok, err
}

func RSAPrivateKeyFromPEM(pem []byte, password PasswordFunc) (RSA, error) {
	k, err := PrivateKeyFromPEM(pem, password)
	if err != nil {
		return nil, err
	}
	defer C.EVP_PKEY_free(k)
	return PKeyRSA(k)
}

// RSAPrivateKeyToPEM writes the traditional PKCS#1 "RSA PRIVATE KEY" form.
func RSAPrivateKeyToPEM(r RSA) ([]byte, error) {
	return writeMem("PEM_write_bio_RSAPrivateKey", func(b *C.BIO) C.int {
		return C.PEM_write_bio_RSAPrivateKey(b, r, nil, nil, 0, nil, nil)
	})
}

func RSAPublicKeyFromPEM(pem []byte) (RSA, error) {
	m, err := newMemBIO("BIO_new_mem_buf", pem)
	if err != nil {
		return nil, err
	}
	defer m.free()
	var r RSA
	err = call(func() error {
		r = C.PEM_read_bio_RSA_PUBKEY(m.bio, nil, nil, nil)
		return checkPointer("PEM_read_bio_RSA_PUBKEY", unsafe.Pointer(r))
	})
	return r, err
}

func RSAPublicKeyToPEM(r RSA) ([]byte, error) {
	return writeMem("PEM_write_bio_RSA_PUBKEY", func(b *C.BIO) C.int { return C.PEM_write_bio_RSA_PUBKEY(b, r) })
}

// RSASign produces a PKCS#1 v1.5 signature over an already computed digest.
// mdType is the NID of the digest algorithm.
func RSASign(r RSA, mdType int, digest []byte) ([]byte, error) {
	sig := make([]byte, RSASize(r))
	var n C.uint
	err := call(func() error {
		_, err := checkPositive("RSA_sign", int(C.RSA_sign(C.int(mdType), ucharPtr(digest), C.uint(len(digest)), ucharPtr(sig), &n, r)))
		return err
	})
	if err != nil {
		return nil, err
	}
	return sig[:n], nil
}

// RSAVerify checks a PKCS#1 v1.5 signature. RSA_verify does not distinguish a
// bad signature from a malformed one, so every failure is (false, nil).
func RSAVerify(r RSA, mdType int, digest, sig []byte) bool {
	ok := false
	_ = call(func() error {
		ok = C.RSA_verify(C.int(mdType), ucharPtr(digest), C.uint(len(digest)), ucharPtr(sig), C.uint(len(sig)), r) == 1
		return nil
	})
	return ok
}

// RSAPublicEncrypt and RSAPrivateDecrypt return -1 on failure, so they follow
// the negative-is-error convention.
func RSAPublicEncrypt(r RSA, from []byte, padding int) ([]byte, error) {
	to := make([]byte, RSASize(r))
	var n int
	err := call(func() error {
		var err error
		n, err = checkNonNegative("RSA_public_encrypt",
			int(C.RSA_public_encrypt(C.int(len(from)), ucharPtr(from), ucharPtr(to), r, C.int(padding))))
		return err
	})
	if err != nil {
		return nil, err
	}
	return to[:n], nil
}

func RSAPrivateDecrypt(r RSA, from []byte, padding int) ([]byte, error) {
	to := make([]byte, RSASize(r))
	var n int
	err := call(func() error {
		var err error
		n, err = checkNonNegative("RSA_private_decrypt",
			int(C.RSA_private_decrypt(C.int(len(from)), ucharPtr(from), ucharPtr(to), r, C.int(padding))))
		return err
	})
	if err != nil {
		return nil, err
	}
	return to[:n], nil
}
