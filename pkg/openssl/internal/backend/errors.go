package backend

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupported is returned for entry points the linked library lacks.
	ErrUnsupported = errors.New("not supported by the linked OpenSSL")
	// ErrWouldBlock is both what host streams return to signal that no data
	// is ready and what TLS operations report when they need more I/O.
	ErrWouldBlock = errors.New("operation would block")
	// ErrCallbackPanic matches every *CallbackPanic.
	ErrCallbackPanic = errors.New("callback panicked")
	// ErrNotBuilt reports that the native bindings were not linked into the
	// binary: cgo was disabled or the platform is unsupported.
	ErrNotBuilt = errors.New("openssl: native bindings not built")
)

// CallbackPanic is the value re-raised on the Go side of a foreign call when
// a callback panicked while OpenSSL was on the stack.
type CallbackPanic struct {
	Callback string
	Value    any
	Stack    []byte
}

func (p *CallbackPanic) Error() string {
	return fmt.Sprintf("panic in %s callback: %v", p.Callback, p.Value)
}

func (p *CallbackPanic) Unwrap() error { return ErrCallbackPanic }

// ErrorEntry is one record drained from the OpenSSL error queue.
type ErrorEntry struct {
	Code     uint64
	Library  string
	Function string
	Reason   string
	File     string
	Line     int
	Data     string
}

func (e ErrorEntry) String() string {
	s := fmt.Sprintf("error:%08X:%s:%s:%s", e.Code, e.Library, e.Function, e.Reason)
	if e.Data != "" {
		s += ":" + e.Data
	}
	return s
}

// StackError is returned when an OpenSSL call reports failure. Entries is
// never empty. Alloc is set when a constructor returned NULL. Cause is a Go
// callback's error that made the call fail.
type StackError struct {
	Op      string
	Entries []ErrorEntry
	Alloc   bool
	Cause   error
}

func (e *StackError) Error() string {
	parts := make([]string, 0, len(e.Entries))
	for _, entry := range e.Entries {
		parts = append(parts, entry.String())
	}
	return e.Op + ": " + strings.Join(parts, ", ")
}

func (e *StackError) Unwrap() error { return e.Cause }
