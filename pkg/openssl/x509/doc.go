//go:build cgo && !windows

// Package x509 wraps OpenSSL certificates, names and trust stores.
//
// A Certificate owns its X509 reference. Names returned by Subject and Issuer
// are borrowed from the certificate and stop working once it is freed. A Store
// is assembled with a StoreBuilder and then used either directly through
// Store.Verify or as the trust anchor of a TLS context.
package x509
