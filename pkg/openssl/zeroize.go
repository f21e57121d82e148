package openssl

import "runtime"

// ZeroizeBytes overwrites buf with zeros. Callers use it on passphrases and
// key bytes once OpenSSL has taken its own copy.
//
// The Go runtime may already have copied the data elsewhere, so this is a
// best-effort measure (golang/go#33325).
func ZeroizeBytes(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
	runtime.KeepAlive(buf)
}
