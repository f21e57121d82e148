// Package handle binds OpenSSL pointers to Go object lifetimes.
//
// An Owned value holds exactly one foreign pointer and releases it once, either
// through an explicit Free or through a finalizer when the Go value becomes
// unreachable. A Ref borrows a pointer from a parent and keeps that parent
// reachable for as long as the Ref itself is reachable, which is how the
// garbage collector is prevented from freeing an owner while a borrowed view is
// still being used.
package handle

import (
	"errors"
	"runtime"
	"sync"
)

// ErrNilPointer is returned by Own when the foreign constructor produced NULL.
// The root package exports it as ErrAllocationFailed.
var ErrNilPointer = errors.New("openssl: allocation failed")

// Owned is an owning wrapper around a foreign pointer of type T.
//
// T is normally a pointer alias exported by the backend package, for example
// backend.X509. Owned is safe to Free from multiple goroutines; the free
// function runs exactly once.
type Owned[T comparable] struct {
	mu   sync.Mutex
	ptr  T
	free func(T)
	done bool
}

// Own takes ownership of ptr. free is called at most once to release it.
func Own[T comparable](ptr T, free func(T)) (*Owned[T], error) {
	var zero T
	if ptr == zero {
		return nil, ErrNilPointer
	}
	o := &Owned[T]{ptr: ptr, free: free}
	runtime.SetFinalizer(o, (*Owned[T]).Free)
	return o, nil
}

// Ptr returns the wrapped pointer, or the zero value once freed.
func (o *Owned[T]) Ptr() T {
	var zero T
	if o == nil {
		return zero
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.done {
		return zero
	}
	return o.ptr
}

// Freed reports whether the pointer was released or disowned.
func (o *Owned[T]) Freed() bool {
	if o == nil {
		return true
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.done
}

// Free releases the foreign pointer. Calling Free more than once is a no-op.
func (o *Owned[T]) Free() {
	if o == nil {
		return
	}
	o.mu.Lock()
	if o.done {
		o.mu.Unlock()
		return
	}
	o.done = true
	ptr := o.ptr
	var zero T
	o.ptr = zero
	o.mu.Unlock()

	runtime.SetFinalizer(o, nil)
	if o.free != nil {
		o.free(ptr)
	}
}

// Disown gives up ownership without freeing, returning the pointer so it can be
// handed to a foreign call that takes ownership.
func (o *Owned[T]) Disown() T {
	var zero T
	if o == nil {
		return zero
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.done {
		return zero
	}
	o.done = true
	ptr := o.ptr
	o.ptr = zero
	runtime.SetFinalizer(o, nil)
	return ptr
}

// Ref is a borrowed view of a foreign pointer. It never frees the pointer.
type Ref[T comparable] struct {
	ptr    T
	parent any
}

// Borrow returns a Ref for ptr. parent is any Go value whose lifetime covers
// ptr, typically the Owned that the pointer was read from.
func Borrow[T comparable](ptr T, parent any) Ref[T] {
	return Ref[T]{ptr: ptr, parent: parent}
}

// Ptr returns the borrowed pointer.
func (r Ref[T]) Ptr() T {
	return r.ptr
}

// IsNil reports whether the reference points at nothing.
func (r Ref[T]) IsNil() bool {
	var zero T
	return r.ptr == zero
}

// Parent returns the value keeping this reference valid.
func (r Ref[T]) Parent() any {
	return r.parent
}
