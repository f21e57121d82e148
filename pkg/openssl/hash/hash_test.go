//go:build cgo && !windows

package hash_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	stdhash "hash"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/hash"
)

var (
	_ stdhash.Hash = (*hash.Hasher)(nil)
	_ stdhash.Hash = (*hash.MAC)(nil)
)

func TestKnownAnswers(t *testing.T) {
	tests := []struct {
		name string
		md   hash.MessageDigest
		want string
	}{
		{"md5", hash.MD5(), "900150983cd24fb0d6963f7d28e17f72"},
		{"sha1", hash.SHA1(), "a9993e364706816aba3e25717850c26c9cd0d89d"},
		{"sha256", hash.SHA256(), "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := hash.Sum(tt.md, []byte("abc"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, hex.EncodeToString(got))
			assert.Equal(t, len(got), tt.md.Size())
		})
	}
}

func TestHasherMatchesStdlib(t *testing.T) {
	h, err := hash.New(hash.SHA512())
	require.NoError(t, err)
	defer h.Free()

	ref := sha512.New()
	for _, chunk := range []string{"", "hello", " ", "world", string(make([]byte, 1000))} {
		_, err := h.Write([]byte(chunk))
		require.NoError(t, err)
		ref.Write([]byte(chunk))
		assert.Equal(t, ref.Sum(nil), h.Sum(nil), "Sum must not disturb the running state")
	}

	final, err := h.Finish()
	require.NoError(t, err)
	assert.Equal(t, ref.Sum(nil), final)

	empty := sha512.Sum512(nil)
	assert.Equal(t, empty[:], h.Sum(nil), "Finish resets")
	assert.Equal(t, 64, h.Size())
	assert.Equal(t, 128, h.BlockSize())
}

func TestHasherCloneAndReset(t *testing.T) {
	h, err := hash.New(hash.SHA256())
	require.NoError(t, err)
	defer h.Free()
	h.Write([]byte("prefix"))

	c, err := h.Clone()
	require.NoError(t, err)
	defer c.Free()
	c.Write([]byte("-suffix"))

	want := sha256.Sum256([]byte("prefix-suffix"))
	assert.Equal(t, want[:], c.Sum(nil))

	h.Reset()
	empty := sha256.Sum256(nil)
	assert.Equal(t, empty[:], h.Sum(nil))
}

func TestHasherFree(t *testing.T) {
	for i := 0; i < 200; i++ {
		h, err := hash.New(hash.SHA1())
		require.NoError(t, err)
		h.Free()
		h.Free()
	}
	h, err := hash.New(hash.SHA1())
	require.NoError(t, err)
	h.Free()
	_, err = h.Write([]byte("x"))
	assert.ErrorIs(t, err, openssl.ErrClosed)
	assert.Panics(t, func() { h.Sum(nil) })
}

func TestByName(t *testing.T) {
	md, err := hash.ByName("sha256")
	require.NoError(t, err)
	assert.Equal(t, hash.SHA256().NID(), md.NID())
	assert.Equal(t, "SHA256", md.Name())

	byNID, err := hash.FromNID(md.NID())
	require.NoError(t, err)
	assert.Equal(t, md.NID(), byNID.NID())

	_, err = hash.ByName("definitely-not-a-digest")
	require.ErrorIs(t, err, openssl.ErrOperationFailed)
	assert.NotEmpty(t, openssl.StackOf(err))

	_, err = hash.New(hash.MessageDigest{})
	assert.ErrorIs(t, err, hash.ErrInvalidDigest)
}

func TestHMAC(t *testing.T) {
	key := []byte("key")
	msg := []byte("The quick brown fox jumps over the lazy dog")
	ref := hmac.New(sha256.New, key)
	ref.Write(msg)
	want := ref.Sum(nil)
	assert.Equal(t, "f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8", hex.EncodeToString(want))

	got, err := hash.HMAC(hash.SHA256(), key, msg)
	require.NoError(t, err)
	assert.True(t, hash.Equal(want, got))

	m, err := hash.NewHMAC(hash.SHA256(), key)
	require.NoError(t, err)
	defer m.Free()
	m.Write(msg[:10])
	m.Write(msg[10:])
	assert.Equal(t, want, m.Sum(nil))
	assert.Equal(t, want, m.Sum(nil))

	m.Reset()
	m.Write(msg)
	assert.Equal(t, want, m.Sum(nil))

	emptyKey, err := hash.HMAC(hash.SHA256(), nil, msg)
	require.NoError(t, err)
	ref = hmac.New(sha256.New, nil)
	ref.Write(msg)
	assert.Equal(t, ref.Sum(nil), emptyKey)

	assert.False(t, hash.Equal(want, want[:10]))
}
