//go:build cgo && !windows

package backend

/*
#include "shim.h"
*/
import "C"

import "unsafe"

func FreePKCS12(p PKCS12) { C.PKCS12_free(p) }

func PKCS12FromDER(der []byte) (PKCS12, error) {
	buf := C.CBytes(der)
	defer C.free(buf)
	var p PKCS12
	err := call(func() error {
		ptr := (*C.uchar)(buf)
		p = C.d2i_PKCS12(nil, &ptr, C.long(len(der)))
		return checkPointer("d2i_PKCS12", unsafe.Pointer(p))
	})
	return p, err
}

func PKCS12ToDER(p PKCS12) ([]byte, error) {
	return i2d("i2d_PKCS12", func(out **C.uchar) C.int { return C.i2d_PKCS12(p, out) })
}

// PKCS12Parse decrypts p. Every returned pointer is owned by the caller; key
// and cert may be nil when the archive carries none.
func PKCS12Parse(p PKCS12, password string) (key PKey, cert X509, ca []X509, err error) {
	cpass, free := cstring(password)
	defer free()
	var sk *C.struct_stack_st_X509
	err = call(func() error {
		_, err := checkPositive("PKCS12_parse", int(C.PKCS12_parse(p, cpass, &key, &cert, &sk)))
		return err
	})
	if err != nil {
		return nil, nil, nil, err
	}
	if sk != nil {
		n := int(C.X_sk_X509_num(sk))
		for i := 0; i < n; i++ {
			ca = append(ca, C.X_sk_X509_value(sk, C.int(i)))
		}
		C.X_sk_X509_free(sk)
	}
	return key, cert, ca, nil
}

// PKCS12Create builds an archive with the library's default algorithms.
func PKCS12Create(password, friendlyName string, key PKey, cert X509, ca []X509) (PKCS12, error) {
	cpass, freePass := cstring(password)
	defer freePass()
	var cname *C.char
	if friendlyName != "" {
		var freeName func()
		cname, freeName = cstring(friendlyName)
		defer freeName()
	}
	var sk *C.struct_stack_st_X509
	if len(ca) > 0 {
		sk = C.X_sk_X509_new_null()
		if sk == nil {
			return nil, newStackError("sk_X509_new_null")
		}
		defer C.X_sk_X509_free(sk)
		for _, x := range ca {
			C.X_sk_X509_push(sk, x)
		}
	}
	var p PKCS12
	err := call(func() error {
		p = C.PKCS12_create(cpass, cname, key, cert, sk, 0, 0, 0, 0, 0)
		return checkPointer("PKCS12_create", unsafe.Pointer(p))
	})
	return p, err
}
