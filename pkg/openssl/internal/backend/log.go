package backend

import (
	"sync"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl/logging"
)

var (
	logMu sync.RWMutex
	log   = logging.Nop()
)

// SetLogger replaces the logger used for events that have no caller to report
// to, such as a callback panicking while no stream is bound to its connection.
// A nil logger restores the no-op default.
func SetLogger(l logging.Logger) {
	if l == nil {
		l = logging.Nop()
	}
	logMu.Lock()
	log = l
	logMu.Unlock()
}

// Logger returns the logger installed by SetLogger.
func Logger() logging.Logger { return logger() }

func logger() logging.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return log
}
