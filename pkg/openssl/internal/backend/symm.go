//go:build cgo && !windows

package backend

/*
#include "shim.h"
*/
import "C"

import "unsafe"

func CipherAES128ECB() EVPCipher        { return (*C.EVP_CIPHER)(C.EVP_aes_128_ecb()) }
func CipherAES128CBC() EVPCipher        { return (*C.EVP_CIPHER)(C.EVP_aes_128_cbc()) }
func CipherAES256CBC() EVPCipher        { return (*C.EVP_CIPHER)(C.EVP_aes_256_cbc()) }
func CipherAES128CTR() EVPCipher        { return (*C.EVP_CIPHER)(C.EVP_aes_128_ctr()) }
func CipherAES128GCM() EVPCipher        { return (*C.EVP_CIPHER)(C.EVP_aes_128_gcm()) }
func CipherAES256GCM() EVPCipher        { return (*C.EVP_CIPHER)(C.EVP_aes_256_gcm()) }
func CipherChaCha20Poly1305() EVPCipher { return (*C.EVP_CIPHER)(C.EVP_chacha20_poly1305()) }

// CipherByName looks up a cipher such as "aes-256-cbc".
func CipherByName(name string) (EVPCipher, error) {
	cn, free := cstring(name)
	defer free()
	var c EVPCipher
	err := call(func() error {
		c = (*C.EVP_CIPHER)(C.EVP_get_cipherbyname(cn))
		if c == nil {
			return newStackError("EVP_get_cipherbyname")
		}
		return nil
	})
	return c, err
}

func CipherKeyLength(c EVPCipher) int { return int(C.X_EVP_CIPHER_key_length(c)) }
func CipherIVLength(c EVPCipher) int  { return int(C.X_EVP_CIPHER_iv_length(c)) }
func CipherBlockSize(c EVPCipher) int { return int(C.X_EVP_CIPHER_block_size(c)) }
func CipherNID(c EVPCipher) int       { return int(C.X_EVP_CIPHER_nid(c)) }
func CipherIsAEAD(c EVPCipher) bool   { return C.X_EVP_CIPHER_is_aead(c) == 1 }
func EVPCipherName(c EVPCipher) string {
	return C.GoString(C.OBJ_nid2sn(C.X_EVP_CIPHER_nid(c)))
}

func NewCipherCtx() (CipherCtx, error) {
	var c CipherCtx
	err := call(func() error {
		c = C.EVP_CIPHER_CTX_new()
		return checkAlloc("EVP_CIPHER_CTX_new", unsafe.Pointer(c))
	})
	return c, err
}

func FreeCipherCtx(c CipherCtx) { C.EVP_CIPHER_CTX_free(c) }

// CipherInit prepares ctx for one message. AEAD ciphers accept an IV of any
// length the mode allows; it is set before the key and IV are loaded.
func CipherInit(ctx CipherCtx, cipher EVPCipher, key, iv []byte, encrypt bool) error {
	enc := boolInt(encrypt)
	return call(func() error {
		if _, err := checkPositive("EVP_CipherInit_ex", int(C.EVP_CipherInit_ex(ctx, cipher, nil, nil, nil, enc))); err != nil {
			return err
		}
		if iv != nil && CipherIsAEAD(cipher) && len(iv) != CipherIVLength(cipher) {
			if _, err := checkPositive("EVP_CTRL_AEAD_SET_IVLEN", int(C.X_EVP_CIPHER_CTX_set_ivlen(ctx, C.int(len(iv))))); err != nil {
				return err
			}
		}
		_, err := checkPositive("EVP_CipherInit_ex", int(C.EVP_CipherInit_ex(ctx, nil, nil, ucharPtr(key), ucharPtr(iv), -1)))
		return err
	})
}

func CipherSetPadding(ctx CipherCtx, on bool) error {
	return call(func() error {
		_, err := checkPositive("EVP_CIPHER_CTX_set_padding", int(C.EVP_CIPHER_CTX_set_padding(ctx, boolInt(on))))
		return err
	})
}

// CipherUpdate writes into out, which must hold len(in)+block size bytes.
func CipherUpdate(ctx CipherCtx, out, in []byte) (int, error) {
	if len(in) == 0 {
		return 0, nil
	}
	var n C.int
	err := call(func() error {
		_, err := checkPositive("EVP_CipherUpdate", int(C.EVP_CipherUpdate(ctx, ucharPtr(out), &n, ucharPtr(in), C.int(len(in)))))
		return err
	})
	return int(n), err
}

// CipherAAD feeds additional authenticated data to an AEAD context.
func CipherAAD(ctx CipherCtx, aad []byte) error {
	if len(aad) == 0 {
		return nil
	}
	var n C.int
	return call(func() error {
		_, err := checkPositive("EVP_CipherUpdate", int(C.EVP_CipherUpdate(ctx, nil, &n, ucharPtr(aad), C.int(len(aad)))))
		return err
	})
}

// CipherFinal flushes the last block into out, which must hold a block.
func CipherFinal(ctx CipherCtx, out []byte) (int, error) {
	var n C.int
	var scratch [C.EVP_MAX_BLOCK_LENGTH]byte
	err := call(func() error {
		_, err := checkPositive("EVP_CipherFinal_ex", int(C.EVP_CipherFinal_ex(ctx, (*C.uchar)(unsafe.Pointer(&scratch[0])), &n)))
		return err
	})
	if err != nil {
		return 0, err
	}
	return copy(out, scratch[:n]), nil
}

func CipherSetTag(ctx CipherCtx, tag []byte) error {
	return call(func() error {
		_, err := checkPositive("EVP_CTRL_AEAD_SET_TAG", int(C.X_EVP_CIPHER_CTX_set_tag(ctx, ucharPtr(tag), C.int(len(tag)))))
		return err
	})
}

func CipherGetTag(ctx CipherCtx, tag []byte) error {
	return call(func() error {
		_, err := checkPositive("EVP_CTRL_AEAD_GET_TAG", int(C.X_EVP_CIPHER_CTX_get_tag(ctx, ucharPtr(tag), C.int(len(tag)))))
		return err
	})
}
