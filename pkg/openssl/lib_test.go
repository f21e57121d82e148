//go:build cgo && !windows

package openssl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl/logging"
)

func TestInitIsIdempotent(t *testing.T) {
	require.NoError(t, Init(Config{Logger: logging.Nop()}))
	require.NoError(t, Init(Config{ConfigFile: "/does/not/exist"}))
	assert.True(t, Built())
}

func TestLibraryVersion(t *testing.T) {
	v, err := LibraryVersion()
	require.NoError(t, err)
	assert.NotEmpty(t, VersionText())
	assert.NotEqual(t, VendorNone, LibraryVendor())
	assert.GreaterOrEqual(t, v.Segments()[0], 1)
	if LibraryVendor() == VendorOpenSSL {
		assert.True(t, Supports(FeatureProtoVersionSetters))
		assert.NoError(t, Require(FeatureProtoVersionSetters))
	}
}

func TestReader(t *testing.T) {
	buf := make([]byte, 16)
	n, err := Reader.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 16, n)
	assert.NotEqual(t, make([]byte, 16), buf)
}
