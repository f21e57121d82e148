package handle

import (
	"runtime"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwnRejectsNil(t *testing.T) {
	o, err := Own[unsafe.Pointer](nil, func(unsafe.Pointer) {})
	require.ErrorIs(t, err, ErrNilPointer)
	require.Nil(t, o)
}

func TestFreeRunsOnce(t *testing.T) {
	x := new(int)
	calls := 0
	o, err := Own(x, func(p *int) {
		assert.Same(t, x, p)
		calls++
	})
	require.NoError(t, err)
	require.Same(t, x, o.Ptr())

	o.Free()
	o.Free()
	assert.Equal(t, 1, calls)
	assert.True(t, o.Freed())
	assert.Nil(t, o.Ptr())
}

func TestDisownSkipsFree(t *testing.T) {
	x := new(int)
	calls := 0
	o, err := Own(x, func(*int) { calls++ })
	require.NoError(t, err)

	got := o.Disown()
	assert.Same(t, x, got)
	o.Free()
	assert.Zero(t, calls)
	assert.Nil(t, o.Disown())
}

func TestNilOwnedIsSafe(t *testing.T) {
	var o *Owned[*int]
	o.Free()
	assert.Nil(t, o.Ptr())
	assert.True(t, o.Freed())
}

func TestBorrowKeepsParent(t *testing.T) {
	x := new(int)
	o, err := Own(x, func(*int) {})
	require.NoError(t, err)

	r := Borrow(o.Ptr(), o)
	assert.False(t, r.IsNil())
	assert.Same(t, x, r.Ptr())
	assert.Same(t, o, r.Parent())

	var empty Ref[*int]
	assert.True(t, empty.IsNil())
}

func TestConstructDropLoop(t *testing.T) {
	freed := 0
	for i := 0; i < 1000; i++ {
		o, err := Own(new(int), func(*int) { freed++ })
		require.NoError(t, err)
		o.Free()
	}
	runtime.GC()
	assert.Equal(t, 1000, freed)
}
