//go:build cgo && !windows

package backend

/*
#include "shim.h"
*/
import "C"

import (
	"math/big"
	"unsafe"
)

// Curve NIDs.
const (
	NIDPrime256v1 = C.NID_X9_62_prime256v1
	NIDSecp384r1  = C.NID_secp384r1
	NIDSecp521r1  = C.NID_secp521r1
	NIDSecp256k1  = C.NID_secp256k1
)

func ECGroupByCurve(nid int) (ECGroup, error) {
	var g ECGroup
	err := call(func() error {
		g = C.EC_GROUP_new_by_curve_name(C.int(nid))
		return checkPointer("EC_GROUP_new_by_curve_name", unsafe.Pointer(g))
	})
	return g, err
}

func FreeECGroup(g ECGroup) { C.EC_GROUP_free(g) }

func ECGroupCurve(g ECGroup) int  { return int(C.EC_GROUP_get_curve_name(g)) }
func ECGroupDegree(g ECGroup) int { return int(C.EC_GROUP_get_degree(g)) }

// ShortName returns the OpenSSL short name of an object NID.
func ShortName(nid int) string { return C.GoString(C.OBJ_nid2sn(C.int(nid))) }

func FreeECKey(k ECKey) { C.EC_KEY_free(k) }

func ECKeyUpRef(k ECKey) error {
	return call(func() error {
		_, err := checkPositive("EC_KEY_up_ref", int(C.EC_KEY_up_ref(k)))
		return err
	})
}

func GenerateEC(nid int) (ECKey, error) {
	var k ECKey
	err := call(func() error {
		k = C.EC_KEY_new_by_curve_name(C.int(nid))
		if err := checkPointer("EC_KEY_new_by_curve_name", unsafe.Pointer(k)); err != nil {
			return err
		}
		if _, err := checkPositive("EC_KEY_generate_key", int(C.EC_KEY_generate_key(k))); err != nil {
			C.EC_KEY_free(k)
			k = nil
			return err
		}
		return nil
	})
	return k, err
}

// ECKeyFromComponents assembles a key on curve nid. pub is an encoded point
// and may be nil when priv is set, in which case it is derived.
func ECKeyFromComponents(nid int, priv *big.Int, pub []byte) (ECKey, error) {
	var bnPriv *C.BIGNUM
	if priv != nil {
		var err error
		if bnPriv, err = bigToBN("BN_bin2bn", priv); err != nil {
			return nil, err
		}
		defer C.BN_clear_free(bnPriv)
	}
	var k ECKey
	err := call(func() error {
		k = C.EC_KEY_new_by_curve_name(C.int(nid))
		if err := checkPointer("EC_KEY_new_by_curve_name", unsafe.Pointer(k)); err != nil {
			return err
		}
		group := C.EC_KEY_get0_group(k)
		point := C.EC_POINT_new(group)
		if err := checkAlloc("EC_POINT_new", unsafe.Pointer(point)); err != nil {
			return err
		}
		defer C.EC_POINT_free(point)
		if pub != nil {
			if _, err := checkPositive("EC_POINT_oct2point",
				int(C.EC_POINT_oct2point(group, point, ucharPtr(pub), C.size_t(len(pub)), nil))); err != nil {
				return err
			}
		} else if bnPriv != nil {
			if _, err := checkPositive("EC_POINT_mul", int(C.EC_POINT_mul(group, point, bnPriv, nil, nil, nil))); err != nil {
				return err
			}
		}
		if bnPriv != nil {
			if _, err := checkPositive("EC_KEY_set_private_key", int(C.EC_KEY_set_private_key(k, bnPriv))); err != nil {
				return err
			}
		}
		_, err := checkPositive("EC_KEY_set_public_key", int(C.EC_KEY_set_public_key(k, point)))
		return err
	})
	if err != nil && k != nil {
		C.EC_KEY_free(k)
		k = nil
	}
	return k, err
}

// ECKeyCheck reports whether the key is consistent.
func ECKeyCheck(k ECKey) error {
	return call(func() error {
		_, err := checkPositive("EC_KEY_check_key", int(C.EC_KEY_check_key(k)))
		return err
	})
}

// ECKeyGroup and ECKeyPublicPoint return pointers borrowed from k.
func ECKeyGroup(k ECKey) ECGroup       { return (*C.EC_GROUP)(C.EC_KEY_get0_group(k)) }
func ECKeyPublicPoint(k ECKey) ECPoint { return (*C.EC_POINT)(C.EC_KEY_get0_public_key(k)) }

// ECKeyPrivate returns the private scalar, or nil for a public key.
func ECKeyPrivate(k ECKey) *big.Int {
	return bnToBig((*C.BIGNUM)(C.EC_KEY_get0_private_key(k)))
}

func FreeECPoint(p ECPoint) { C.EC_POINT_free(p) }

// ECPointToBytes encodes p in SEC1 form.
func ECPointToBytes(g ECGroup, p ECPoint, compressed bool) ([]byte, error) {
	form := C.point_conversion_form_t(C.POINT_CONVERSION_UNCOMPRESSED)
	if compressed {
		form = C.POINT_CONVERSION_COMPRESSED
	}
	var out []byte
	err := call(func() error {
		n, err := checkPositive("EC_POINT_point2oct", int(C.EC_POINT_point2oct(g, p, form, nil, 0, nil)))
		if err != nil {
			return err
		}
		out = make([]byte, n)
		n, err = checkPositive("EC_POINT_point2oct", int(C.EC_POINT_point2oct(g, p, form, ucharPtr(out), C.size_t(n), nil)))
		out = out[:n]
		return err
	})
	return out, err
}

// ECPointFromBytes decodes a SEC1 point into a new owned point.
func ECPointFromBytes(g ECGroup, b []byte) (ECPoint, error) {
	var p ECPoint
	err := call(func() error {
		p = C.EC_POINT_new(g)
		if err := checkAlloc("EC_POINT_new", unsafe.Pointer(p)); err != nil {
			return err
		}
		if _, err := checkPositive("EC_POINT_oct2point", int(C.EC_POINT_oct2point(g, p, ucharPtr(b), C.size_t(len(b)), nil))); err != nil {
			C.EC_POINT_free(p)
			p = nil
			return err
		}
		return nil
	})
	return p, err
}

// ECPointEqual uses the negative-is-error convention; EC_POINT_cmp returns
// 0 for equal points.
func ECPointEqual(g ECGroup, a, b ECPoint) (bool, error) {
	var eq bool
	err := call(func() error {
		rc, err := checkNonNegative("EC_POINT_cmp", int(C.EC_POINT_cmp(g, a, b, nil)))
		eq = rc == 0
		return err
	})
	return eq, err
}

func ECPrivateKeyToPEM(k ECKey) ([]byte, error) {
	return writeMem("PEM_write_bio_ECPrivateKey", func(b *C.BIO) C.int {
		return C.PEM_write_bio_ECPrivateKey(b, k, nil, nil, 0, nil, nil)
	})
}

func ECPrivateKeyFromPEM(pem []byte, password PasswordFunc) (ECKey, error) {
	k, err := PrivateKeyFromPEM(pem, password)
	if err != nil {
		return nil, err
	}
	defer C.EVP_PKEY_free(k)
	return PKeyEC(k)
}

func ECPublicKeyToPEM(k ECKey) ([]byte, error) {
	return writeMem("PEM_write_bio_EC_PUBKEY", func(b *C.BIO) C.int { return C.PEM_write_bio_EC_PUBKEY(b, k) })
}

func ECPublicKeyFromPEM(pem []byte) (ECKey, error) {
	m, err := newMemBIO("BIO_new_mem_buf", pem)
	if err != nil {
		return nil, err
	}
	defer m.free()
	var k ECKey
	err = call(func() error {
		k = C.PEM_read_bio_EC_PUBKEY(m.bio, nil, nil, nil)
		return checkPointer("PEM_read_bio_EC_PUBKEY", unsafe.Pointer(k))
	})
	return k, err
}

// ECDSASign signs a digest and returns a DER encoded signature.
func ECDSASign(k ECKey, digest []byte) ([]byte, error) {
	sig := make([]byte, int(C.ECDSA_size(k)))
	var n C.uint
	err := call(func() error {
		_, err := checkPositive("ECDSA_sign", int(C.ECDSA_sign(0, ucharPtr(digest), C.int(len(digest)), ucharPtr(sig), &n, k)))
		return err
	})
	if err != nil {
		return nil, err
	}
	return sig[:n], nil
}

// ECDSAVerify checks a DER signature over digest. A mismatch is (false, nil).
func ECDSAVerify(k ECKey, digest, sig []byte) (bool, error) {
	var ok bool
	err := call(func() error {
		rc, err := checkNonNegative("ECDSA_verify",
			int(C.ECDSA_verify(0, ucharPtr(digest), C.int(len(digest)), ucharPtr(sig), C.int(len(sig)), k)))
		ok = rc == 1
		return err
	})
	return ok, err
}
