// Package internalcheck holds source policy tests for the openssl packages.
//
// The tests load the packages with golang.org/x/tools/go/packages and walk
// their syntax. They guard rules that the compiler cannot:
//
//   - secrets are never hex formatted;
//   - MACs and digests are compared in constant time;
//   - the OpenSSL error queue is drained in exactly one place.
//
// # Internal Use Only
//
// Nothing here is meant to be imported.
package internalcheck
