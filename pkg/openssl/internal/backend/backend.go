//go:build cgo && !windows

// Package backend holds every cgo call into libssl and libcrypto.
//
// Public packages never import "C" themselves. They hold the pointer aliases
// declared here as opaque values and call the functions in this package, which
// follow a single rule: any call whose return value signals failure is checked
// on the same OS thread that made it, and the OpenSSL error queue is drained
// into a *StackError before control returns to Go code.
package backend

/*
#cgo CFLAGS: -Wno-deprecated-declarations
#cgo linux pkg-config: libssl libcrypto
#cgo darwin CFLAGS: -I/opt/homebrew/opt/openssl@3/include -I/usr/local/opt/openssl@3/include
#cgo darwin LDFLAGS: -L/opt/homebrew/opt/openssl@3/lib -L/usr/local/opt/openssl@3/lib -lssl -lcrypto
#cgo freebsd openbsd netbsd LDFLAGS: -lssl -lcrypto
#include "shim.h"
*/
import "C"

import (
	"sync"
	"unsafe"
)

// Opaque OpenSSL pointers. Other packages hold these without dereferencing them.
type (
	SSLCtx       = *C.SSL_CTX
	SSL          = *C.SSL
	Session      = *C.SSL_SESSION
	Cipher       = *C.SSL_CIPHER
	Method       = *C.SSL_METHOD
	X509         = *C.X509
	X509Name     = *C.X509_NAME
	X509Store    = *C.X509_STORE
	X509StoreCtx = *C.X509_STORE_CTX
	PKey         = *C.EVP_PKEY
	RSA          = *C.RSA
	ECKey        = *C.EC_KEY
	ECGroup      = *C.EC_GROUP
	ECPoint      = *C.EC_POINT
	MD           = *C.EVP_MD
	MDCtx        = *C.EVP_MD_CTX
	EVPCipher    = *C.EVP_CIPHER
	CipherCtx    = *C.EVP_CIPHER_CTX
	HMACCtx      = *C.HMAC_CTX
	PKCS12       = *C.PKCS12
	BIOMethod    = *C.BIO_METHOD
	BIO          = *C.BIO
)

var (
	initOnce sync.Once
	initErr  error
)

func init() {
	_ = ensureInit()
}

func ensureInit() error {
	initOnce.Do(func() {
		initErr = call(func() error {
			_, err := checkPositive("OPENSSL_init_ssl", int(C.X_init()))
			return err
		})
	})
	return initErr
}

// Init initialises libssl and, when configFile is not empty, loads the given
// OpenSSL configuration file. It is safe to call more than once; OpenSSL only
// honours the first configuration load in a process.
func Init(configFile string) error {
	if err := ensureInit(); err != nil {
		return err
	}
	if configFile == "" {
		return nil
	}
	cfile := C.CString(configFile)
	defer C.free(unsafe.Pointer(cfile))
	return call(func() error {
		_, err := checkPositive("OPENSSL_init_crypto", int(C.X_load_config(cfile)))
		return err
	})
}

// Version returns the version text reported by the linked library, for
// example "OpenSSL 3.0.13 30 Jan 2024".
func Version() string {
	return C.GoString(C.X_version_text())
}

// VersionNumber returns OPENSSL_VERSION_NUMBER of the linked library.
func VersionNumber() uint64 {
	return uint64(C.X_version_num())
}

// IsLibreSSL reports whether the headers compiled against belong to LibreSSL.
func IsLibreSSL() bool {
	return C.X_is_libressl() == 1
}

// Built reports whether the cgo backend is compiled in.
func Built() bool { return true }

// RandBytes fills buf from the OpenSSL CSPRNG.
func RandBytes(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	return call(func() error {
		_, err := checkPositive("RAND_bytes", int(C.RAND_bytes(ucharPtr(buf), C.int(len(buf)))))
		return err
	})
}
