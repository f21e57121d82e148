//go:build !cgo || windows

package backend

// Stubs for builds without the native bindings. Only the entry points the
// root package reaches are provided; every other package is cgo only.

func Init(string) error { return ErrNotBuilt }

func Version() string { return "" }

func VersionNumber() uint64 { return 0 }

func IsLibreSSL() bool { return false }

func Built() bool { return false }

func RandBytes([]byte) error { return ErrNotBuilt }
