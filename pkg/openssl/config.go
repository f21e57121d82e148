package openssl

import (
	"sync"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/backend"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/logging"
)

// Config carries the process-wide settings applied by Init.
type Config struct {
	// ConfigFile is an OpenSSL configuration file to load. Empty leaves the
	// library's built-in defaults in place.
	ConfigFile string

	// Logger receives the library's log output. Nil keeps the current
	// logger, which starts out as a no-op.
	Logger logging.Logger
}

var (
	initOnce sync.Once
	initErr  error
)

// Init applies cfg. Only the first call has any effect; later calls return
// the first call's result. Init is optional: the library initialises itself
// with the zero Config on first use.
func Init(cfg Config) error {
	initOnce.Do(func() {
		if cfg.Logger != nil {
			SetLogger(cfg.Logger)
		}
		initErr = RemapError(backend.Init(cfg.ConfigFile))
	})
	return initErr
}

// Built reports whether the native bindings are compiled in.
func Built() bool { return backend.Built() }

// SetLogger replaces the logger used by every package in this module. A nil
// logger restores the no-op default.
func SetLogger(l logging.Logger) {
	backend.SetLogger(l)
}

// Logger returns the logger installed with SetLogger.
func Logger() logging.Logger {
	return backend.Logger()
}
