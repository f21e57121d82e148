//go:build cgo && !windows

package hash

import (
	"errors"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/backend"
)

// ErrInvalidDigest is returned when a zero MessageDigest is used.
var ErrInvalidDigest = errors.New("hash: invalid message digest")

// MessageDigest identifies a digest algorithm. The zero value is invalid.
type MessageDigest struct {
	md backend.MD
}

func MD5() MessageDigest      { return MessageDigest{backend.MDMD5()} }
func SHA1() MessageDigest     { return MessageDigest{backend.MDSHA1()} }
func SHA224() MessageDigest   { return MessageDigest{backend.MDSHA224()} }
func SHA256() MessageDigest   { return MessageDigest{backend.MDSHA256()} }
func SHA384() MessageDigest   { return MessageDigest{backend.MDSHA384()} }
func SHA512() MessageDigest   { return MessageDigest{backend.MDSHA512()} }
func SHA3_256() MessageDigest { return MessageDigest{backend.MDSHA3_256()} }

// ByName looks a digest up by its OpenSSL name, e.g. "sha256" or "SHA3-512".
func ByName(name string) (MessageDigest, error) {
	md, err := backend.MDByName(name)
	if err != nil {
		return MessageDigest{}, openssl.RemapError(err)
	}
	return MessageDigest{md}, nil
}

// FromNID maps a digest NID back to its MessageDigest.
func FromNID(nid int) (MessageDigest, error) {
	return ByName(backend.ShortName(nid))
}

func (m MessageDigest) Valid() bool    { return m.md != nil }
func (m MessageDigest) Size() int      { return backend.MDSize(m.md) }
func (m MessageDigest) BlockSize() int { return backend.MDBlockSize(m.md) }
func (m MessageDigest) NID() int       { return backend.MDType(m.md) }
func (m MessageDigest) Name() string   { return backend.MDName(m.md) }

// Raw returns the backend pointer for sibling packages.
func (m MessageDigest) Raw() backend.MD { return m.md }

// Sum hashes data in one call.
func Sum(md MessageDigest, data []byte) ([]byte, error) {
	out, err := backend.Digest(md.md, data)
	return out, openssl.RemapError(err)
}
