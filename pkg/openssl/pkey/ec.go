//go:build cgo && !windows

package pkey

import (
	"math/big"
	"runtime"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/backend"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/handle"
)

// Curve is a named elliptic curve, identified by its NID.
type Curve int

const (
	CurveP256      Curve = backend.NIDPrime256v1
	CurveP384      Curve = backend.NIDSecp384r1
	CurveP521      Curve = backend.NIDSecp521r1
	CurveSecp256k1 Curve = backend.NIDSecp256k1
)

func (c Curve) NID() int       { return int(c) }
func (c Curve) String() string { return backend.ShortName(int(c)) }

// Group is an owned EC_GROUP.
type Group struct {
	g *handle.Owned[backend.ECGroup]
}

// NewGroup loads the parameters of a named curve.
func NewGroup(c Curve) (*Group, error) {
	g, err := backend.ECGroupByCurve(int(c))
	if err != nil {
		return nil, openssl.RemapError(err)
	}
	owned, err := handle.Own(g, backend.FreeECGroup)
	if err != nil {
		return nil, err
	}
	return &Group{g: owned}, nil
}

func (g *Group) ptr(op string) (backend.ECGroup, error) {
	p := g.g.Ptr()
	if p == nil {
		return nil, openssl.Closed(op)
	}
	return p, nil
}

func (g *Group) Curve() Curve {
	p := g.g.Ptr()
	if p == nil {
		return 0
	}
	defer runtime.KeepAlive(g)
	return Curve(backend.ECGroupCurve(p))
}

// Degree is the field size in bits.
func (g *Group) Degree() int {
	p := g.g.Ptr()
	if p == nil {
		return 0
	}
	defer runtime.KeepAlive(g)
	return backend.ECGroupDegree(p)
}

// PointFromBytes decodes a SEC1 point on g.
func (g *Group) PointFromBytes(b []byte) (*Point, error) {
	gp, err := g.ptr("Group.PointFromBytes")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(g)
	p, err := backend.ECPointFromBytes(gp, b)
	if err != nil {
		return nil, openssl.RemapError(err)
	}
	owned, err := handle.Own(p, backend.FreeECPoint)
	if err != nil {
		return nil, err
	}
	return &Point{owned: owned, group: handle.Borrow(gp, g), alive: func() bool { return !g.g.Freed() }}, nil
}

func (g *Group) Free() {
	if g == nil {
		return
	}
	g.g.Free()
}

// Point is an EC_POINT. Points returned by ECKey.PublicPoint are borrowed
// from the key and become unusable once the key is freed.
type Point struct {
	owned *handle.Owned[backend.ECPoint]
	ref   handle.Ref[backend.ECPoint]
	group handle.Ref[backend.ECGroup]
	alive func() bool
}

func (pt *Point) raw(op string) (backend.ECGroup, backend.ECPoint, error) {
	if pt.alive != nil && !pt.alive() {
		return nil, nil, openssl.Closed(op)
	}
	p := pt.ref.Ptr()
	if pt.owned != nil {
		p = pt.owned.Ptr()
	}
	if p == nil {
		return nil, nil, openssl.Closed(op)
	}
	return pt.group.Ptr(), p, nil
}

// Bytes encodes the point in SEC1 form.
func (pt *Point) Bytes(compressed bool) ([]byte, error) {
	g, p, err := pt.raw("Point.Bytes")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(pt)
	out, err := backend.ECPointToBytes(g, p, compressed)
	return out, openssl.RemapError(err)
}

// Equal compares two points on the same curve.
func (pt *Point) Equal(other *Point) (bool, error) {
	g, a, err := pt.raw("Point.Equal")
	if err != nil {
		return false, err
	}
	_, b, err := other.raw("Point.Equal")
	if err != nil {
		return false, err
	}
	defer runtime.KeepAlive(other)
	defer runtime.KeepAlive(pt)
	eq, err := backend.ECPointEqual(g, a, b)
	return eq, openssl.RemapError(err)
}

// Free releases an owned point. It does nothing for borrowed points.
func (pt *Point) Free() {
	if pt == nil || pt.owned == nil {
		return
	}
	pt.owned.Free()
}

// ECKey is an EC public key or key pair.
type ECKey struct {
	k *handle.Owned[backend.ECKey]
}

func wrapEC(k backend.ECKey, err error) (*ECKey, error) {
	if err != nil {
		return nil, openssl.RemapError(err)
	}
	owned, err := handle.Own(k, backend.FreeECKey)
	if err != nil {
		return nil, err
	}
	return &ECKey{k: owned}, nil
}

// GenerateEC creates a key pair on c.
func GenerateEC(c Curve) (*ECKey, error) {
	return wrapEC(backend.GenerateEC(int(c)))
}

// ECKeyFromPrivate rebuilds a key pair from its private scalar.
func ECKeyFromPrivate(c Curve, priv *big.Int) (*ECKey, error) {
	return wrapEC(backend.ECKeyFromComponents(int(c), priv, nil))
}

// ECKeyFromPublicBytes builds a public key from a SEC1 point.
func ECKeyFromPublicBytes(c Curve, pub []byte) (*ECKey, error) {
	return wrapEC(backend.ECKeyFromComponents(int(c), nil, pub))
}

func ECPrivateKeyFromPEM(pem []byte, cb PasswordCallback) (*ECKey, error) {
	return wrapEC(backend.ECPrivateKeyFromPEM(pem, cb.backend()))
}

func ECPublicKeyFromPEM(pem []byte) (*ECKey, error) {
	return wrapEC(backend.ECPublicKeyFromPEM(pem))
}

func (k *ECKey) ptr(op string) (backend.ECKey, error) {
	p := k.k.Ptr()
	if p == nil {
		return nil, openssl.Closed(op)
	}
	return p, nil
}

func (k *ECKey) Curve() Curve {
	p := k.k.Ptr()
	if p == nil {
		return 0
	}
	defer runtime.KeepAlive(k)
	return Curve(backend.ECGroupCurve(backend.ECKeyGroup(p)))
}

// Check verifies that the public point matches the private scalar and lies
// on the curve.
func (k *ECKey) Check() error {
	p, err := k.ptr("ECKey.Check")
	if err != nil {
		return err
	}
	defer runtime.KeepAlive(k)
	return openssl.RemapError(backend.ECKeyCheck(p))
}

// PublicPoint returns the public point borrowed from k.
func (k *ECKey) PublicPoint() (*Point, error) {
	p, err := k.ptr("ECKey.PublicPoint")
	if err != nil {
		return nil, err
	}
	return &Point{
		ref:   handle.Borrow(backend.ECKeyPublicPoint(p), k),
		group: handle.Borrow(backend.ECKeyGroup(p), k),
		alive: func() bool { return !k.k.Freed() },
	}, nil
}

// PublicKeyBytes encodes the public point in SEC1 form.
func (k *ECKey) PublicKeyBytes(compressed bool) ([]byte, error) {
	pt, err := k.PublicPoint()
	if err != nil {
		return nil, err
	}
	return pt.Bytes(compressed)
}

// PrivateScalar returns a copy of the private key, or nil for a public key.
func (k *ECKey) PrivateScalar() *big.Int {
	p := k.k.Ptr()
	if p == nil {
		return nil
	}
	defer runtime.KeepAlive(k)
	return backend.ECKeyPrivate(p)
}

// PrivateKeyToPEM writes the SEC1 "EC PRIVATE KEY" form.
func (k *ECKey) PrivateKeyToPEM() ([]byte, error) {
	p, err := k.ptr("ECKey.PrivateKeyToPEM")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(k)
	out, err := backend.ECPrivateKeyToPEM(p)
	return out, openssl.RemapError(err)
}

func (k *ECKey) PublicKeyToPEM() ([]byte, error) {
	p, err := k.ptr("ECKey.PublicKeyToPEM")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(k)
	out, err := backend.ECPublicKeyToPEM(p)
	return out, openssl.RemapError(err)
}

// SignDigest returns a DER ECDSA signature over a precomputed digest.
func (k *ECKey) SignDigest(digest []byte) ([]byte, error) {
	p, err := k.ptr("ECKey.SignDigest")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(k)
	sig, err := backend.ECDSASign(p, digest)
	return sig, openssl.RemapError(err)
}

// VerifyDigest checks a DER ECDSA signature. A wrong signature is (false, nil).
func (k *ECKey) VerifyDigest(digest, sig []byte) (bool, error) {
	p, err := k.ptr("ECKey.VerifyDigest")
	if err != nil {
		return false, err
	}
	defer runtime.KeepAlive(k)
	ok, err := backend.ECDSAVerify(p, digest, sig)
	return ok, openssl.RemapError(err)
}

// Clone returns a second handle to the same key.
func (k *ECKey) Clone() (*ECKey, error) {
	p, err := k.ptr("ECKey.Clone")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(k)
	if err := backend.ECKeyUpRef(p); err != nil {
		return nil, openssl.RemapError(err)
	}
	return wrapEC(p, nil)
}

func (k *ECKey) Free() {
	if k == nil {
		return
	}
	k.k.Free()
}
