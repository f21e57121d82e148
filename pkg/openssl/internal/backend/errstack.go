//go:build cgo && !windows

package backend

/*
#include "shim.h"
*/
import "C"

import (
	"runtime"
	"unsafe"
)

// call pins the goroutine to its OS thread for the duration of fn and clears
// the thread-local error queue first. Every check* helper must run inside it.
func call(fn func() error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	C.ERR_clear_error()
	return fn()
}

// drainErrors empties the current thread's error queue, oldest first.
func drainErrors() []ErrorEntry {
	var out []ErrorEntry
	for {
		var file, fn, data *C.char
		var line, flags C.int
		code := C.X_ERR_get_error_all(&file, &line, &fn, &data, &flags)
		if code == 0 {
			return out
		}
		entry := ErrorEntry{
			Code:     uint64(code),
			File:     C.GoString(file),
			Line:     int(line),
			Function: C.GoString(fn),
			Library:  C.GoString(C.ERR_lib_error_string(code)),
			Reason:   C.GoString(C.ERR_reason_error_string(code)),
		}
		if data != nil && flags&C.ERR_TXT_STRING != 0 {
			entry.Data = C.GoString(data)
		}
		out = append(out, entry)
	}
}

// newStackError drains the queue into a StackError. A failure that left no
// diagnostics behind still produces one entry naming the operation.
func newStackError(op string) *StackError {
	entries := drainErrors()
	if len(entries) == 0 {
		entries = []ErrorEntry{{Function: op, Reason: "call failed without queued diagnostics"}}
	}
	return &StackError{Op: op, Entries: entries}
}

// checkPointer implements the NULL-on-failure convention for calls that do
// work, such as parsers and lookups.
func checkPointer(op string, p unsafe.Pointer) error {
	if p == nil {
		return newStackError(op)
	}
	return nil
}

// checkAlloc is checkPointer for plain constructors, where NULL means the
// object could not be allocated.
func checkAlloc(op string, p unsafe.Pointer) error {
	if p == nil {
		se := newStackError(op)
		se.Alloc = true
		return se
	}
	return nil
}

// checkPositive implements the convention where any rc <= 0 is a failure.
func checkPositive(op string, rc int) (int, error) {
	if rc <= 0 {
		return rc, newStackError(op)
	}
	return rc, nil
}

// checkNonNegative implements the convention where only rc < 0 is a failure
// and 0 is a valid result.
func checkNonNegative(op string, rc int) (int, error) {
	if rc < 0 {
		return rc, newStackError(op)
	}
	return rc, nil
}

// ClearErrors discards anything left on the current thread's queue.
func ClearErrors() {
	C.ERR_clear_error()
}

// CheckPositive is checkPositive behind a locked thread, for tests and callers
// outside this package that already hold a raw return code.
func CheckPositive(op string, rc int) (int, error) {
	var out int
	err := call(func() error {
		var err error
		out, err = checkPositive(op, rc)
		return err
	})
	return out, err
}

// CheckNonNegative is the exported form of checkNonNegative.
func CheckNonNegative(op string, rc int) (int, error) {
	var out int
	err := call(func() error {
		var err error
		out, err = checkNonNegative(op, rc)
		return err
	})
	return out, err
}

// CheckPointer is the exported form of checkPointer.
func CheckPointer(op string, p unsafe.Pointer) error {
	return call(func() error { return checkPointer(op, p) })
}
