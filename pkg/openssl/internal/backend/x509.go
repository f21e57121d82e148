//go:build cgo && !windows

package backend

/*
#include "shim.h"
*/
import "C"

import (
	"math/big"
	"time"
	"unsafe"
)

// NID values the public packages refer to by name.
const (
	NIDCommonName         = C.NID_commonName
	NIDCountryName        = C.NID_countryName
	NIDLocalityName       = C.NID_localityName
	NIDStateOrProvince    = C.NID_stateOrProvinceName
	NIDOrganizationName   = C.NID_organizationName
	NIDOrganizationalUnit = C.NID_organizationalUnitName
	NIDEmailAddress       = C.NID_pkcs9_emailAddress
)

func FreeX509(x X509) { C.X509_free(x) }

func X509UpRef(x X509) error {
	return call(func() error {
		_, err := checkPositive("X509_up_ref", int(C.X509_up_ref(x)))
		return err
	})
}

func X509FromPEM(pem []byte) (X509, error) {
	m, err := newMemBIO("BIO_new_mem_buf", pem)
	if err != nil {
		return nil, err
	}
	defer m.free()
	var x X509
	err = call(func() error {
		x = C.PEM_read_bio_X509(m.bio, nil, nil, nil)
		return checkPointer("PEM_read_bio_X509", unsafe.Pointer(x))
	})
	return x, err
}

// X509StackFromPEM reads every certificate in pem. Running out of PEM blocks
// after at least one certificate is the normal end of input.
func X509StackFromPEM(pem []byte) ([]X509, error) {
	m, err := newMemBIO("BIO_new_mem_buf", pem)
	if err != nil {
		return nil, err
	}
	defer m.free()
	var out []X509
	err = call(func() error {
		for {
			x := C.PEM_read_bio_X509(m.bio, nil, nil, nil)
			if x != nil {
				out = append(out, x)
				continue
			}
			if len(out) > 0 && C.X_ERR_pem_eof() == 1 {
				ClearErrors()
				return nil
			}
			return newStackError("PEM_read_bio_X509")
		}
	})
	if err != nil {
		for _, x := range out {
			C.X509_free(x)
		}
		return nil, err
	}
	return out, nil
}

func X509ToPEM(x X509) ([]byte, error) {
	return writeMem("PEM_write_bio_X509", func(b *C.BIO) C.int { return C.X_PEM_write_bio_X509(b, x) })
}

func X509FromDER(der []byte) (X509, error) {
	buf := C.CBytes(der)
	defer C.free(buf)
	var x X509
	err := call(func() error {
		p := (*C.uchar)(buf)
		x = C.d2i_X509(nil, &p, C.long(len(der)))
		return checkPointer("d2i_X509", unsafe.Pointer(x))
	})
	return x, err
}

func X509ToDER(x X509) ([]byte, error) {
	return i2d("i2d_X509", func(out **C.uchar) C.int { return C.i2d_X509(x, out) })
}

// X509SubjectName and X509IssuerName return names borrowed from x.
func X509SubjectName(x X509) X509Name { return C.X509_get_subject_name(x) }
func X509IssuerName(x X509) X509Name  { return C.X509_get_issuer_name(x) }

// NameEntry is one attribute of a distinguished name.
type NameEntry struct {
	NID   int
	Short string
	Value string
}

func NameEntries(name X509Name) ([]NameEntry, error) {
	n := int(C.X509_NAME_entry_count(name))
	out := make([]NameEntry, 0, n)
	for i := 0; i < n; i++ {
		e := C.X509_NAME_get_entry(name, C.int(i))
		if e == nil {
			continue
		}
		nid := int(C.OBJ_obj2nid(C.X509_NAME_ENTRY_get_object(e)))
		var utf8 *C.uchar
		var l C.int
		err := call(func() error {
			rc, err := checkNonNegative("ASN1_STRING_to_UTF8", int(C.ASN1_STRING_to_UTF8(&utf8, C.X509_NAME_ENTRY_get_data(e))))
			l = C.int(rc)
			return err
		})
		if err != nil {
			return nil, err
		}
		value := C.GoStringN((*C.char)(unsafe.Pointer(utf8)), l)
		C.X_OPENSSL_free(unsafe.Pointer(utf8))
		out = append(out, NameEntry{NID: nid, Short: C.GoString(C.OBJ_nid2sn(C.int(nid))), Value: value})
	}
	return out, nil
}

// NameEntriesByNID returns every value of the given attribute, in order.
func NameEntriesByNID(name X509Name, nid int) ([]string, error) {
	var out []string
	last := C.int(-1)
	for {
		var utf8 *C.uchar
		var idx C.int
		err := call(func() error {
			idx = C.X_X509_NAME_entry_by_nid(name, C.int(nid), last, &utf8)
			if idx == -2 {
				return newStackError("X509_NAME_get_index_by_NID")
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		if idx < 0 {
			return out, nil
		}
		out = append(out, C.GoString((*C.char)(unsafe.Pointer(utf8))))
		C.X_OPENSSL_free(unsafe.Pointer(utf8))
		last = idx
	}
}

// NameString renders name in RFC 2253 form.
func NameString(name X509Name) (string, error) {
	out, err := writeMem("X509_NAME_print_ex", func(b *C.BIO) C.int { return C.X_X509_NAME_print(b, name) })
	return string(out), err
}

func NameToDER(name X509Name) ([]byte, error) {
	return i2d("i2d_X509_NAME", func(out **C.uchar) C.int { return C.i2d_X509_NAME(name, out) })
}

func X509SerialNumber(x X509) (*big.Int, error) {
	var out *big.Int
	err := call(func() error {
		bn := C.ASN1_INTEGER_to_BN(C.X509_get_serialNumber(x), nil)
		if err := checkPointer("ASN1_INTEGER_to_BN", unsafe.Pointer(bn)); err != nil {
			return err
		}
		defer C.BN_free(bn)
		out = bnToBig(bn)
		if C.BN_is_negative(bn) == 1 {
			out.Neg(out)
		}
		return nil
	})
	return out, err
}

func asn1Time(op string, t *C.ASN1_TIME) (time.Time, error) {
	var secs C.int64_t
	err := call(func() error {
		_, err := checkPositive(op, int(C.X_ASN1_TIME_to_unix(t, &secs)))
		return err
	})
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(secs), 0).UTC(), nil
}

func X509NotBefore(x X509) (time.Time, error) {
	return asn1Time("X509_get0_notBefore", C.X509_get0_notBefore(x))
}

func X509NotAfter(x X509) (time.Time, error) {
	return asn1Time("X509_get0_notAfter", C.X509_get0_notAfter(x))
}

func X509Version(x X509) int { return int(C.X509_get_version(x)) + 1 }

func X509Digest(x X509, md MD) ([]byte, error) {
	buf := make([]byte, C.EVP_MAX_MD_SIZE)
	var n C.uint
	err := call(func() error {
		_, err := checkPositive("X509_digest", int(C.X509_digest(x, md, ucharPtr(buf), &n)))
		return err
	})
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// X509PublicKey returns an owned copy of the certificate's key.
func X509PublicKey(x X509) (PKey, error) {
	var k PKey
	err := call(func() error {
		k = C.X509_get_pubkey(x)
		return checkPointer("X509_get_pubkey", unsafe.Pointer(k))
	})
	return k, err
}

// X509Verify checks x's signature with key. It uses the negative-is-error
// convention: 0 is a clean mismatch.
func X509Verify(x X509, key PKey) (bool, error) {
	var ok bool
	err := call(func() error {
		rc, err := checkNonNegative("X509_verify", int(C.X509_verify(x, key)))
		ok = rc == 1
		return err
	})
	return ok, err
}

func X509CheckHost(x X509, host string) (bool, error) {
	ch, free := cstring(host)
	defer free()
	var ok bool
	err := call(func() error {
		rc, err := checkNonNegative("X509_check_host", int(C.X509_check_host(x, ch, C.size_t(len(host)), 0, nil)))
		ok = rc == 1
		return err
	})
	return ok, err
}

func X509CheckIP(x X509, ip string) (bool, error) {
	cip, free := cstring(ip)
	defer free()
	var ok bool
	err := call(func() error {
		rc, err := checkNonNegative("X509_check_ip_asc", int(C.X509_check_ip_asc(x, cip, 0)))
		ok = rc == 1
		return err
	})
	return ok, err
}

func X509CheckIssued(issuer, subject X509) bool {
	return C.X509_check_issued(issuer, subject) == C.X509_V_OK
}

// Stores.

func NewX509Store() (X509Store, error) {
	var s X509Store
	err := call(func() error {
		s = C.X509_STORE_new()
		return checkAlloc("X509_STORE_new", unsafe.Pointer(s))
	})
	return s, err
}

func FreeX509Store(s X509Store) { C.X509_STORE_free(s) }

func X509StoreUpRef(s X509Store) error {
	return call(func() error {
		_, err := checkPositive("X509_STORE_up_ref", int(C.X509_STORE_up_ref(s)))
		return err
	})
}

// X509StoreAddCert takes its own reference to x.
func X509StoreAddCert(s X509Store, x X509) error {
	return call(func() error {
		_, err := checkPositive("X509_STORE_add_cert", int(C.X509_STORE_add_cert(s, x)))
		return err
	})
}

func X509StoreSetDefaultPaths(s X509Store) error {
	return call(func() error {
		_, err := checkPositive("X509_STORE_set_default_paths", int(C.X509_STORE_set_default_paths(s)))
		return err
	})
}

func X509StoreLoadFile(s X509Store, file string) error {
	cf, free := cstring(file)
	defer free()
	return call(func() error {
		_, err := checkPositive("X509_STORE_load_locations", int(C.X509_STORE_load_locations(s, cf, nil)))
		return err
	})
}

func X509StoreSetFlags(s X509Store, flags uint64) error {
	return call(func() error {
		_, err := checkPositive("X509_STORE_set_flags", int(C.X509_STORE_set_flags(s, C.ulong(flags))))
		return err
	})
}

// Verification contexts.

func NewX509StoreCtx() (X509StoreCtx, error) {
	var c X509StoreCtx
	err := call(func() error {
		c = C.X509_STORE_CTX_new()
		return checkAlloc("X509_STORE_CTX_new", unsafe.Pointer(c))
	})
	return c, err
}

func FreeX509StoreCtx(c X509StoreCtx) { C.X509_STORE_CTX_free(c) }

// VerifyOutcome is the state of a store context captured before cleanup.
type VerifyOutcome struct {
	OK    bool
	Error int
	Depth int
}

// VerifyCert verifies leaf against store using untrusted as intermediates.
// A failed verification is reported through the outcome with a nil error; the
// error is set only when verification could not run.
func VerifyCert(c X509StoreCtx, store X509Store, leaf X509, untrusted []X509) (VerifyOutcome, error) {
	var chain *C.struct_stack_st_X509
	if len(untrusted) > 0 {
		chain = C.X_sk_X509_new_null()
		if chain == nil {
			return VerifyOutcome{}, newStackError("sk_X509_new_null")
		}
		defer C.X_sk_X509_free(chain)
		for _, x := range untrusted {
			C.X_sk_X509_push(chain, x)
		}
	}
	var out VerifyOutcome
	err := call(func() error {
		if _, err := checkPositive("X509_STORE_CTX_init", int(C.X509_STORE_CTX_init(c, store, leaf, chain))); err != nil {
			return err
		}
		defer C.X509_STORE_CTX_cleanup(c)
		rc, err := checkNonNegative("X509_verify_cert", int(C.X509_verify_cert(c)))
		out.OK = rc == 1
		out.Error = int(C.X509_STORE_CTX_get_error(c))
		out.Depth = int(C.X509_STORE_CTX_get_error_depth(c))
		return err
	})
	return out, err
}

func X509StoreCtxError(c X509StoreCtx) int { return int(C.X509_STORE_CTX_get_error(c)) }

func X509StoreCtxSetError(c X509StoreCtx, code int) { C.X509_STORE_CTX_set_error(c, C.int(code)) }

func X509StoreCtxErrorDepth(c X509StoreCtx) int { return int(C.X509_STORE_CTX_get_error_depth(c)) }

// X509StoreCtxCurrentCert returns a certificate borrowed from c, or nil.
func X509StoreCtxCurrentCert(c X509StoreCtx) X509 { return C.X509_STORE_CTX_get_current_cert(c) }

// X509StoreCtxSSL returns the connection a verification is running for.
func X509StoreCtxSSL(c X509StoreCtx) SSL { return sslFromStore(c) }

func VerifyErrorString(code int) string {
	return C.GoString(C.X509_verify_cert_error_string(C.long(code)))
}

// X509 verification result codes used outside this package.
const (
	X509VOK                   = C.X509_V_OK
	X509VErrCertHasExpired    = C.X509_V_ERR_CERT_HAS_EXPIRED
	X509VErrSelfSignedInChain = C.X509_V_ERR_SELF_SIGNED_CERT_IN_CHAIN
	X509VErrDepthZeroSelfSign = C.X509_V_ERR_DEPTH_ZERO_SELF_SIGNED_CERT
	X509VErrUnableToGetIssuer = C.X509_V_ERR_UNABLE_TO_GET_ISSUER_CERT_LOCALLY
	X509VErrHostnameMismatch  = C.X509_V_ERR_HOSTNAME_MISMATCH
	X509VErrApplication       = C.X509_V_ERR_APPLICATION_VERIFICATION
)
