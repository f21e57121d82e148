//go:build cgo && !windows

package pkey_test

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl/hash"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/pkey"
)

func TestRSAGenerateAndPEM(t *testing.T) {
	r, err := pkey.GenerateRSA(2048)
	require.NoError(t, err)
	defer r.Free()

	assert.Equal(t, 256, r.Size())
	assert.Equal(t, int64(pkey.DefaultExponent), r.E().Int64())
	assert.Equal(t, 2048, r.N().BitLen())
	assert.True(t, r.IsPrivate())
	ok, err := r.Check()
	require.NoError(t, err)
	assert.True(t, ok)

	privPEM, err := r.PrivateKeyToPEM()
	require.NoError(t, err)
	block, _ := pem.Decode(privPEM)
	require.NotNil(t, block)
	assert.Equal(t, "RSA PRIVATE KEY", block.Type)
	std, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	require.NoError(t, err)
	assert.Zero(t, std.N.Cmp(r.N()))

	back, err := pkey.RSAPrivateKeyFromPEM(privPEM, nil)
	require.NoError(t, err)
	defer back.Free()
	again, err := back.PrivateKeyToPEM()
	require.NoError(t, err)
	assert.Equal(t, privPEM, again)

	pubPEM, err := r.PublicKeyToPEM()
	require.NoError(t, err)
	pub, err := pkey.RSAPublicKeyFromPEM(pubPEM)
	require.NoError(t, err)
	defer pub.Free()
	assert.False(t, pub.IsPrivate())
	assert.Zero(t, pub.N().Cmp(r.N()))
}

func TestRSASignMatchesStdlib(t *testing.T) {
	r, err := pkey.GenerateRSA(2048)
	require.NoError(t, err)
	defer r.Free()

	digest := sha256.Sum256([]byte("message"))
	sig, err := r.Sign(hash.SHA256(), digest[:])
	require.NoError(t, err)
	assert.True(t, r.Verify(hash.SHA256(), digest[:], sig))

	stdPub := &rsa.PublicKey{N: r.N(), E: int(r.E().Int64())}
	require.NoError(t, rsa.VerifyPKCS1v15(stdPub, crypto.SHA256, digest[:], sig))

	sig[10] ^= 1
	assert.False(t, r.Verify(hash.SHA256(), digest[:], sig))
}

func TestRSAFromPublicComponents(t *testing.T) {
	r, err := pkey.GenerateRSA(1024)
	require.NoError(t, err)
	defer r.Free()

	pub, err := pkey.RSAFromPublicComponents(r.N(), big.NewInt(pkey.DefaultExponent))
	require.NoError(t, err)
	defer pub.Free()

	ct, err := pub.PublicEncrypt([]byte("secret"), pkey.PaddingOAEP)
	require.NoError(t, err)
	assert.Len(t, ct, pub.Size())

	pt, err := r.PrivateDecrypt(ct, pkey.PaddingOAEP)
	require.NoError(t, err)
	assert.Equal(t, []byte("secret"), pt)

	_, err = r.PrivateDecrypt(make([]byte, r.Size()), pkey.PaddingOAEP)
	require.Error(t, err)
}

func TestRSAViaPKey(t *testing.T) {
	r, err := pkey.GenerateRSA(2048)
	require.NoError(t, err)
	defer r.Free()

	k, err := pkey.FromRSA(r)
	require.NoError(t, err)
	defer k.Free()
	assert.Equal(t, pkey.TypeRSA, k.Type())
	assert.Equal(t, 2048, k.Bits())
	assert.Equal(t, 256, k.Size())

	inner, err := k.RSA()
	require.NoError(t, err)
	defer inner.Free()
	assert.Zero(t, inner.N().Cmp(r.N()))

	_, err = k.EC()
	assert.Error(t, err)
}
