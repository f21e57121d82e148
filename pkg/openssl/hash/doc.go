//go:build cgo && !windows

// Package hash exposes OpenSSL message digests and HMAC as standard
// hash.Hash values.
//
//	h, err := hash.New(hash.SHA256())
//	if err != nil {
//	    return err
//	}
//	defer h.Free()
//	h.Write(data)
//	sum := h.Sum(nil)
//
// Hasher and MAC are not safe for concurrent use. MessageDigest values are
// static and can be shared freely.
package hash
