//go:build cgo && !windows

package pkey

import (
	"errors"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
)

// ErrNotSecp256k1 is returned when a btcec conversion is asked of a key on
// another curve.
var ErrNotSecp256k1 = errors.New("pkey: key is not on secp256k1")

// BtcecPublicKey converts a secp256k1 public key to its btcec form.
func (k *ECKey) BtcecPublicKey() (*btcec.PublicKey, error) {
	if k.Curve() != CurveSecp256k1 {
		return nil, ErrNotSecp256k1
	}
	raw, err := k.PublicKeyBytes(true)
	if err != nil {
		return nil, err
	}
	return btcec.ParsePubKey(raw)
}

// BtcecPrivateKey converts a secp256k1 key pair to its btcec form.
func (k *ECKey) BtcecPrivateKey() (*btcec.PrivateKey, error) {
	if k.Curve() != CurveSecp256k1 {
		return nil, ErrNotSecp256k1
	}
	d := k.PrivateScalar()
	if d == nil {
		return nil, errors.New("pkey: key has no private part")
	}
	var buf [32]byte
	d.FillBytes(buf[:])
	priv, _ := btcec.PrivKeyFromBytes(buf[:])
	return priv, nil
}

// ECKeyFromBtcec builds an OpenSSL key pair from a btcec private key.
func ECKeyFromBtcec(priv *btcec.PrivateKey) (*ECKey, error) {
	return ECKeyFromPrivate(CurveSecp256k1, new(big.Int).SetBytes(priv.Serialize()))
}

// ECPublicKeyFromBtcec builds an OpenSSL public key from a btcec public key.
func ECPublicKeyFromBtcec(pub *btcec.PublicKey) (*ECKey, error) {
	return ECKeyFromPublicBytes(CurveSecp256k1, pub.SerializeUncompressed())
}
