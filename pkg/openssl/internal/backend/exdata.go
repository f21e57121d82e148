//go:build cgo && !windows

package backend

/*
#include "shim.h"
*/
import "C"

import (
	"reflect"
	"sync"
	"unsafe"
)

// Category is the OpenSSL object class an ex_data index belongs to.
type Category int

const (
	CategorySSL    Category = C.CRYPTO_EX_INDEX_SSL
	CategorySSLCtx Category = C.CRYPTO_EX_INDEX_SSL_CTX
)

type slotKey struct {
	category Category
	typ      reflect.Type
}

var (
	slotMu sync.Mutex
	slots  = map[slotKey]C.int{}
)

// slotIndex returns the ex_data index reserved for typ within category,
// allocating it on first use. Indexes are never released.
func slotIndex(category Category, typ reflect.Type) (C.int, error) {
	key := slotKey{category: category, typ: typ}

	slotMu.Lock()
	defer slotMu.Unlock()
	if idx, ok := slots[key]; ok {
		return idx, nil
	}
	var idx C.int
	err := call(func() error {
		idx = C.X_new_ex_index(C.int(category))
		_, err := checkNonNegative("CRYPTO_get_ex_new_index", int(idx))
		return err
	})
	if err != nil {
		return -1, err
	}
	slots[key] = idx
	return idx, nil
}

// lookupSlot returns an index only if one was already allocated. Trampolines
// use it so that a callback firing never allocates.
func lookupSlot(category Category, typ reflect.Type) (C.int, bool) {
	slotMu.Lock()
	defer slotMu.Unlock()
	idx, ok := slots[slotKey{category: category, typ: typ}]
	return idx, ok
}

// SlotIndex returns the ex_data index for values of type T in category.
func SlotIndex[T any](category Category) (int, error) {
	idx, err := slotIndex(category, reflect.TypeFor[T]())
	return int(idx), err
}

//export osslGoExFree
func osslGoExFree(ptr unsafe.Pointer) {
	del(handle(uintptr(ptr)))
}

// SetCtxData stores value in ctx under the slot for T, releasing whatever
// was stored there before. The value is released when ctx is freed.
func SetCtxData[T any](ctx SSLCtx, value T) error {
	idx, err := slotIndex(CategorySSLCtx, reflect.TypeFor[T]())
	if err != nil {
		return err
	}
	h, p := put(value)
	return call(func() error {
		old := C.SSL_CTX_get_ex_data(ctx, idx)
		if _, err := checkPositive("SSL_CTX_set_ex_data", int(C.SSL_CTX_set_ex_data(ctx, idx, unsafe.Pointer(p)))); err != nil { //nolint:govet
			del(h)
			return err
		}
		if old != nil {
			del(handle(uintptr(old)))
		}
		return nil
	})
}

// CtxData fetches the value of type T stored in ctx.
func CtxData[T any](ctx SSLCtx) (T, bool) {
	var zero T
	if ctx == nil {
		return zero, false
	}
	idx, ok := lookupSlot(CategorySSLCtx, reflect.TypeFor[T]())
	if !ok {
		return zero, false
	}
	v, ok := get(C.SSL_CTX_get_ex_data(ctx, idx))
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// SetSSLData is SetCtxData for an SSL object.
func SetSSLData[T any](ssl SSL, value T) error {
	idx, err := slotIndex(CategorySSL, reflect.TypeFor[T]())
	if err != nil {
		return err
	}
	h, p := put(value)
	return call(func() error {
		old := C.SSL_get_ex_data(ssl, idx)
		if _, err := checkPositive("SSL_set_ex_data", int(C.SSL_set_ex_data(ssl, idx, unsafe.Pointer(p)))); err != nil { //nolint:govet
			del(h)
			return err
		}
		if old != nil {
			del(handle(uintptr(old)))
		}
		return nil
	})
}

// SSLData is CtxData for an SSL object.
func SSLData[T any](ssl SSL) (T, bool) {
	var zero T
	if ssl == nil {
		return zero, false
	}
	idx, ok := lookupSlot(CategorySSL, reflect.TypeFor[T]())
	if !ok {
		return zero, false
	}
	v, ok := get(C.SSL_get_ex_data(ssl, idx))
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
