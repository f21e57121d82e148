//go:build cgo && !windows

// Package pkey wraps OpenSSL asymmetric keys.
//
// PKey is the algorithm-neutral EVP_PKEY used by TLS contexts, certificates
// and PKCS#12 archives. RSA and ECKey expose the algorithm-specific
// operations. Every type owns its OpenSSL object: call Free when done, or let
// the garbage collector release it.
//
// secp256k1 keys convert to and from github.com/btcsuite/btcd/btcec/v2, so
// signatures made here can be checked by that library and the other way round.
package pkey
