package backend

import (
	"sync"
	"unsafe"
)

// handle is an opaque reference to a registered Go value that can travel
// through a C void* user-data pointer.
type handle uintptr

var (
	mu   sync.Mutex
	next handle = 1
	reg         = map[handle]any{}
)

// put registers v and returns its handle. The uintptr form is what gets
// stored in OpenSSL: unsafe.Pointer(uintptr(h)) is never dereferenced by C,
// only handed back to get.
func put(v any) (handle, uintptr) {
	mu.Lock()
	defer mu.Unlock()
	h := next
	next++
	reg[h] = v
	return h, uintptr(h)
}

// get retrieves a registered value from the void* OpenSSL handed back.
func get(ptr unsafe.Pointer) (any, bool) {
	if ptr == nil {
		return nil, false
	}
	h := handle(uintptr(ptr))
	mu.Lock()
	v, ok := reg[h]
	mu.Unlock()
	return v, ok
}

// del removes a registered value.
func del(h handle) {
	mu.Lock()
	delete(reg, h)
	mu.Unlock()
}

// registered reports how many values are live in the registry.
func registered() int {
	mu.Lock()
	defer mu.Unlock()
	return len(reg)
}
