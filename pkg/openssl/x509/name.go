//go:build cgo && !windows

package x509

import (
	"runtime"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/backend"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/handle"
)

// NIDs of common name attributes.
const (
	NIDCommonName         = backend.NIDCommonName
	NIDCountryName        = backend.NIDCountryName
	NIDLocalityName       = backend.NIDLocalityName
	NIDStateOrProvince    = backend.NIDStateOrProvince
	NIDOrganizationName   = backend.NIDOrganizationName
	NIDOrganizationalUnit = backend.NIDOrganizationalUnit
	NIDEmailAddress       = backend.NIDEmailAddress
)

// NameEntry is one attribute of a distinguished name.
type NameEntry = backend.NameEntry

// Name is a distinguished name borrowed from a certificate.
type Name struct {
	ref   handle.Ref[backend.X509Name]
	alive func() bool
}

func (n *Name) ptr(op string) (backend.X509Name, error) {
	if !n.alive() || n.ref.IsNil() {
		return nil, openssl.Closed(op)
	}
	return n.ref.Ptr(), nil
}

// Entries lists the attributes in order.
func (n *Name) Entries() ([]NameEntry, error) {
	p, err := n.ptr("Name.Entries")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(n)
	out, err := backend.NameEntries(p)
	return out, openssl.RemapError(err)
}

// EntriesByNID returns the values of every attribute with the given NID.
func (n *Name) EntriesByNID(nid int) ([]string, error) {
	p, err := n.ptr("Name.EntriesByNID")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(n)
	out, err := backend.NameEntriesByNID(p, nid)
	return out, openssl.RemapError(err)
}

// CommonName returns the first CN, or "" when there is none.
func (n *Name) CommonName() string {
	vals, err := n.EntriesByNID(NIDCommonName)
	if err != nil || len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// String renders the name in RFC 2253 form.
func (n *Name) String() string {
	p, err := n.ptr("Name.String")
	if err != nil {
		return ""
	}
	defer runtime.KeepAlive(n)
	s, err := backend.NameString(p)
	if err != nil {
		return ""
	}
	return s
}

// DER returns the encoded name.
func (n *Name) DER() ([]byte, error) {
	p, err := n.ptr("Name.DER")
	if err != nil {
		return nil, err
	}
	defer runtime.KeepAlive(n)
	out, err := backend.NameToDER(p)
	return out, openssl.RemapError(err)
}
