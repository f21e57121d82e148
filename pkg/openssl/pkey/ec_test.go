//go:build cgo && !windows

package pkey_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/pkey"
)

func TestGroups(t *testing.T) {
	tests := []struct {
		curve  pkey.Curve
		degree int
		name   string
	}{
		{pkey.CurveP256, 256, "prime256v1"},
		{pkey.CurveP384, 384, "secp384r1"},
		{pkey.CurveP521, 521, "secp521r1"},
		{pkey.CurveSecp256k1, 256, "secp256k1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := pkey.NewGroup(tt.curve)
			require.NoError(t, err)
			defer g.Free()
			assert.Equal(t, tt.curve, g.Curve())
			assert.Equal(t, tt.degree, g.Degree())
			assert.Equal(t, tt.name, tt.curve.String())
		})
	}

	_, err := pkey.NewGroup(pkey.Curve(1))
	require.ErrorIs(t, err, openssl.ErrOperationFailed)
}

func TestPointEncodings(t *testing.T) {
	k, err := pkey.GenerateEC(pkey.CurveP256)
	require.NoError(t, err)
	defer k.Free()
	require.NoError(t, k.Check())

	uncompressed, err := k.PublicKeyBytes(false)
	require.NoError(t, err)
	require.Len(t, uncompressed, 65)
	assert.Equal(t, byte(0x04), uncompressed[0])

	compressed, err := k.PublicKeyBytes(true)
	require.NoError(t, err)
	require.Len(t, compressed, 33)

	g, err := pkey.NewGroup(pkey.CurveP256)
	require.NoError(t, err)
	defer g.Free()

	p1, err := g.PointFromBytes(uncompressed)
	require.NoError(t, err)
	defer p1.Free()
	p2, err := g.PointFromBytes(compressed)
	require.NoError(t, err)
	defer p2.Free()

	eq, err := p1.Equal(p2)
	require.NoError(t, err)
	assert.True(t, eq)

	round, err := p2.Bytes(false)
	require.NoError(t, err)
	assert.Equal(t, uncompressed, round)

	// The stdlib decodes the same point.
	x, y := elliptic.Unmarshal(elliptic.P256(), uncompressed) //nolint:staticcheck
	require.NotNil(t, x)
	assert.True(t, elliptic.P256().IsOnCurve(x, y)) //nolint:staticcheck

	other, err := pkey.GenerateEC(pkey.CurveP256)
	require.NoError(t, err)
	defer other.Free()
	op, err := other.PublicPoint()
	require.NoError(t, err)
	eq, err = p1.Equal(op)
	require.NoError(t, err)
	assert.False(t, eq)

	_, err = g.PointFromBytes([]byte{0x04, 1, 2, 3})
	require.Error(t, err)
}

func TestBorrowedPointOutlivedByOwner(t *testing.T) {
	k, err := pkey.GenerateEC(pkey.CurveP384)
	require.NoError(t, err)
	pt, err := k.PublicPoint()
	require.NoError(t, err)
	_, err = pt.Bytes(true)
	require.NoError(t, err)

	k.Free()
	_, err = pt.Bytes(true)
	assert.ErrorIs(t, err, openssl.ErrClosed)
}

func TestECPEMAndComponents(t *testing.T) {
	k, err := pkey.GenerateEC(pkey.CurveP521)
	require.NoError(t, err)
	defer k.Free()

	privPEM, err := k.PrivateKeyToPEM()
	require.NoError(t, err)
	assert.Contains(t, string(privPEM), "EC PRIVATE KEY")
	back, err := pkey.ECPrivateKeyFromPEM(privPEM, nil)
	require.NoError(t, err)
	defer back.Free()
	again, err := back.PrivateKeyToPEM()
	require.NoError(t, err)
	assert.Equal(t, privPEM, again)

	pubPEM, err := k.PublicKeyToPEM()
	require.NoError(t, err)
	pub, err := pkey.ECPublicKeyFromPEM(pubPEM)
	require.NoError(t, err)
	defer pub.Free()
	assert.Nil(t, pub.PrivateScalar())
	assert.Equal(t, pkey.CurveP521, pub.Curve())

	rebuilt, err := pkey.ECKeyFromPrivate(pkey.CurveP521, k.PrivateScalar())
	require.NoError(t, err)
	defer rebuilt.Free()
	require.NoError(t, rebuilt.Check())
	a, err := k.PublicKeyBytes(true)
	require.NoError(t, err)
	b, err := rebuilt.PublicKeyBytes(true)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestECDSAAgainstStdlib(t *testing.T) {
	k, err := pkey.GenerateEC(pkey.CurveP256)
	require.NoError(t, err)
	defer k.Free()

	digest := sha256.Sum256([]byte("hello"))
	sig, err := k.SignDigest(digest[:])
	require.NoError(t, err)

	ok, err := k.VerifyDigest(digest[:], sig)
	require.NoError(t, err)
	assert.True(t, ok)

	raw, err := k.PublicKeyBytes(false)
	require.NoError(t, err)
	x, y := elliptic.Unmarshal(elliptic.P256(), raw) //nolint:staticcheck
	std := &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}
	assert.True(t, ecdsa.VerifyASN1(std, digest[:], sig))

	wrong := sha256.Sum256([]byte("bye"))
	ok, err = k.VerifyDigest(wrong[:], sig)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSecp256k1WithBtcec(t *testing.T) {
	k, err := pkey.GenerateEC(pkey.CurveSecp256k1)
	require.NoError(t, err)
	defer k.Free()

	digest := sha256.Sum256([]byte("bitcoin"))
	der, err := k.SignDigest(digest[:])
	require.NoError(t, err)

	pub, err := k.BtcecPublicKey()
	require.NoError(t, err)
	sig, err := btcecdsa.ParseDERSignature(der)
	require.NoError(t, err)
	assert.True(t, sig.Verify(digest[:], pub))

	// And the other direction: btcec signs, OpenSSL verifies.
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	fromBtc, err := pkey.ECKeyFromBtcec(priv)
	require.NoError(t, err)
	defer fromBtc.Free()
	require.NoError(t, fromBtc.Check())

	btcSig := btcecdsa.Sign(priv, digest[:])
	ok, err := fromBtc.VerifyDigest(digest[:], btcSig.Serialize())
	require.NoError(t, err)
	assert.True(t, ok)

	pubOnly, err := pkey.ECPublicKeyFromBtcec(priv.PubKey())
	require.NoError(t, err)
	defer pubOnly.Free()
	ok, err = pubOnly.VerifyDigest(digest[:], btcSig.Serialize())
	require.NoError(t, err)
	assert.True(t, ok)

	back, err := fromBtc.BtcecPrivateKey()
	require.NoError(t, err)
	assert.Equal(t, priv.Serialize(), back.Serialize())

	p256, err := pkey.GenerateEC(pkey.CurveP256)
	require.NoError(t, err)
	defer p256.Free()
	_, err = p256.BtcecPublicKey()
	assert.ErrorIs(t, err, pkey.ErrNotSecp256k1)
}
