//go:build cgo && !windows

// Package symm wraps OpenSSL's EVP symmetric ciphers.
//
// A Cipher names an algorithm; a Crypter runs one message through it. The
// package-level Encrypt, Decrypt, EncryptAEAD and DecryptAEAD helpers cover the
// common one-shot cases.
package symm
