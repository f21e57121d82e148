// Package openssl is the root of a cgo binding to OpenSSL's libcrypto and
// libssl.
//
// The subpackages wrap one area each: hash, symm, pkey, x509, pkcs12 and ssl.
// This package holds what they share: the structured Error type and its
// sentinels, library initialisation, version and vendor detection, and the
// logger every subpackage writes to.
//
// # Ownership
//
// Every wrapper that owns an OpenSSL object has a Free (or Close) method that
// releases it deterministically. Calling it twice is a no-op, and a finalizer
// releases objects the caller forgot. Accessors that return views into
// another object, such as Certificate.Subject, keep that object reachable for
// as long as the view is.
//
// # Errors
//
// Failed OpenSSL calls return *Error. Its Stack holds the entries drained from
// the OpenSSL error queue of the thread that made the call, so the diagnostics
// always belong to the failure they are attached to:
//
//	cert, err := x509.FromPEM(data)
//	var oe *openssl.Error
//	if errors.As(err, &oe) {
//	    for _, e := range oe.Stack {
//	        log.Println(e.Reason)
//	    }
//	}
//
// Without cgo the package still compiles; Init and RandBytes then return
// ErrNotBuilt and Built reports false.
package openssl
