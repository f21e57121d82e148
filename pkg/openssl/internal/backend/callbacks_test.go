//go:build cgo && !windows

package backend

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocateProto(t *testing.T) {
	client := []byte("\x02h2\x08http/1.1")

	off, ok := locateProto(client, client[4:12])
	assert.True(t, ok)
	assert.Equal(t, 4, off)

	off, ok = locateProto(client, []byte("h2"))
	assert.True(t, ok)
	assert.Equal(t, 1, off)

	_, ok = locateProto(client, []byte("spdy/3"))
	assert.False(t, ok)

	_, ok = locateProto(client, nil)
	assert.False(t, ok)

	_, ok = locateProto([]byte("\x09short"), []byte("short"))
	assert.False(t, ok)
}

func TestClampInt32(t *testing.T) {
	assert.Equal(t, 0, clampInt32(0))
	assert.Equal(t, 4096, clampInt32(4096))
	assert.Equal(t, math.MaxInt32, clampInt32(math.MaxInt32))
	if strconv.IntSize == 64 {
		over := math.MaxInt32
		over++
		assert.Equal(t, math.MaxInt32, clampInt32(over))
		assert.Equal(t, math.MaxInt32, clampInt32(over<<8))
	}
}
