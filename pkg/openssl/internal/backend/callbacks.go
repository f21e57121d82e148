//go:build cgo && !windows

package backend

/*
#include "shim.h"
*/
import "C"

import (
	"bytes"
	"context"
	"fmt"
	"runtime/debug"
	"unsafe"
)

// Callback shapes as seen from Go. Public packages adapt their user-facing
// closures to these before installing them.
type (
	// VerifyFunc decides whether certificate verification should proceed.
	VerifyFunc func(preverify bool, store X509StoreCtx) bool
	// ServernameFunc returns an SSL_TLSEXT_ERR_* code and may set *alert.
	ServernameFunc func(ssl SSL, alert *int) int
	// ALPNSelectFunc picks a protocol from the client's wire-format list.
	// The returned slice should alias client; it is located by value otherwise.
	ALPNSelectFunc func(ssl SSL, client []byte) (selected []byte, code int)
	// PSKClientFunc fills identity (NUL terminated) and psk, returning the PSK length.
	PSKClientFunc func(ssl SSL, hint []byte, identity, psk []byte) (int, error)
	// PSKServerFunc fills psk for identity, returning the PSK length.
	PSKServerFunc func(ssl SSL, identity []byte, psk []byte) (int, error)
	// NewSessionFunc may take ownership of session by calling take once the
	// session is wrapped. An untaken session is freed by OpenSSL.
	NewSessionFunc func(ssl SSL, session Session, take func())
	// RemoveSessionFunc is told that session left the internal cache.
	RemoveSessionFunc func(ctx SSLCtx, session Session)
	// KeylogFunc receives one NSS key log line.
	KeylogFunc func(ssl SSL, line string)
	// StatusFunc handles OCSP stapling on either side of the connection.
	StatusFunc func(ssl SSL) (bool, error)
	// CookieGenerateFunc writes a DTLS cookie into buf and returns its length.
	CookieGenerateFunc func(ssl SSL, buf []byte) (int, error)
	// CookieVerifyFunc checks a DTLS cookie.
	CookieVerifyFunc func(ssl SSL, cookie []byte) bool
	// PasswordFunc writes a passphrase into buf and returns its length.
	PasswordFunc func(buf []byte, encrypting bool) (int, error)
)

// recoverCallback must be deferred directly by each exported trampoline. It
// parks a panic on the stream bound to ssl, or logs it when none is bound, and
// rewrites the trampoline's return value to the failure sentinel.
func recoverCallback[T any](ssl *C.SSL, name string, ret *T, fail T) {
	r := recover()
	if r == nil {
		return
	}
	*ret = fail
	p := &CallbackPanic{Callback: name, Value: r, Stack: debug.Stack()}
	if st, ok := SSLData[*StreamState](ssl); ok {
		st.setPanic(p)
		return
	}
	logger().Error(context.Background(), "callback panicked with no stream attached",
		"callback", name, "panic", fmt.Sprint(r))
}

func sslFromStore(store *C.X509_STORE_CTX) *C.SSL {
	if store == nil {
		return nil
	}
	return (*C.SSL)(C.X509_STORE_CTX_get_ex_data(store, C.SSL_get_ex_data_X509_STORE_CTX_idx()))
}

func ctxOf(ssl *C.SSL) *C.SSL_CTX {
	if ssl == nil {
		return nil
	}
	return C.SSL_get_SSL_CTX(ssl)
}

func boolInt(b bool) C.int {
	if b {
		return 1
	}
	return 0
}

//export osslGoVerify
func osslGoVerify(preverify C.int, store *C.X509_STORE_CTX) (ret C.int) {
	ssl := sslFromStore(store)
	defer recoverCallback(ssl, "verify", &ret, 0)
	cb, ok := CtxData[VerifyFunc](ctxOf(ssl))
	if !ok {
		return preverify
	}
	return boolInt(cb(preverify == 1, store))
}

//export osslGoSSLVerify
func osslGoSSLVerify(preverify C.int, store *C.X509_STORE_CTX) (ret C.int) {
	ssl := sslFromStore(store)
	defer recoverCallback(ssl, "verify", &ret, 0)
	cb, ok := SSLData[VerifyFunc](ssl)
	if !ok {
		return preverify
	}
	return boolInt(cb(preverify == 1, store))
}

//export osslGoServername
func osslGoServername(ssl *C.SSL, al *C.int) (ret C.int) {
	defer recoverCallback(ssl, "servername", &ret, C.SSL_TLSEXT_ERR_ALERT_FATAL)
	cb, ok := CtxData[ServernameFunc](ctxOf(ssl))
	if !ok {
		return C.SSL_TLSEXT_ERR_OK
	}
	alert := int(*al)
	code := cb(ssl, &alert)
	*al = C.int(alert)
	return C.int(code)
}

//export osslGoALPNSelect
func osslGoALPNSelect(ssl *C.SSL, out **C.uchar, outlen *C.uchar, in *C.uchar, inlen C.uint) (ret C.int) {
	defer recoverCallback(ssl, "alpn select", &ret, C.SSL_TLSEXT_ERR_ALERT_FATAL)
	cb, ok := CtxData[ALPNSelectFunc](ctxOf(ssl))
	if !ok {
		return C.SSL_TLSEXT_ERR_NOACK
	}
	client := cslice(unsafe.Pointer(in), int(inlen))
	selected, code := cb(ssl, client)
	if code != C.SSL_TLSEXT_ERR_OK {
		return C.int(code)
	}
	off, ok := locateProto(client, selected)
	if !ok {
		return C.SSL_TLSEXT_ERR_ALERT_FATAL
	}
	*out = (*C.uchar)(unsafe.Add(unsafe.Pointer(in), off))
	*outlen = C.uchar(len(selected))
	return C.SSL_TLSEXT_ERR_OK
}

// locateProto finds selected inside the wire-format list client, returning its
// offset. The result must point into client since OpenSSL keeps the pointer.
func locateProto(client, selected []byte) (int, bool) {
	if len(selected) == 0 || len(selected) > 255 || len(client) == 0 {
		return 0, false
	}
	base := uintptr(unsafe.Pointer(unsafe.SliceData(client)))
	sel := uintptr(unsafe.Pointer(unsafe.SliceData(selected)))
	if sel >= base && sel+uintptr(len(selected)) <= base+uintptr(len(client)) {
		return int(sel - base), true
	}
	for i := 0; i < len(client); {
		n := int(client[i])
		start := i + 1
		if start+n > len(client) {
			return 0, false
		}
		if bytes.Equal(client[start:start+n], selected) {
			return start, true
		}
		i = start + n
	}
	return 0, false
}

//export osslGoPSKClient
func osslGoPSKClient(ssl *C.SSL, hint *C.char, identity *C.char, maxIdentity C.uint, psk *C.uchar, maxPSK C.uint) (ret C.uint) {
	defer recoverCallback(ssl, "psk client", &ret, 0)
	cb, ok := CtxData[PSKClientFunc](ctxOf(ssl))
	if !ok {
		return 0
	}
	var hintBytes []byte
	if hint != nil {
		hintBytes = []byte(C.GoString(hint))
	}
	ident := cslice(unsafe.Pointer(identity), int(maxIdentity))
	key := cslice(unsafe.Pointer(psk), int(maxPSK))
	n, err := cb(ssl, hintBytes, ident, key)
	if err != nil || n < 0 || n > int(maxPSK) {
		return 0
	}
	return C.uint(n)
}

//export osslGoPSKServer
func osslGoPSKServer(ssl *C.SSL, identity *C.char, psk *C.uchar, maxPSK C.uint) (ret C.uint) {
	defer recoverCallback(ssl, "psk server", &ret, 0)
	cb, ok := CtxData[PSKServerFunc](ctxOf(ssl))
	if !ok {
		return 0
	}
	var ident []byte
	if identity != nil {
		ident = []byte(C.GoString(identity))
	}
	n, err := cb(ssl, ident, cslice(unsafe.Pointer(psk), int(maxPSK)))
	if err != nil || n < 0 || n > int(maxPSK) {
		return 0
	}
	return C.uint(n)
}

//export osslGoNewSession
func osslGoNewSession(ssl *C.SSL, session *C.SSL_SESSION) (ret C.int) {
	var taken bool
	defer func() {
		if taken {
			ret = 1
		}
	}()
	defer recoverCallback(ssl, "new session", &ret, 0)
	cb, ok := CtxData[NewSessionFunc](ctxOf(ssl))
	if !ok {
		return 0
	}
	cb(ssl, session, func() { taken = true })
	return 0
}

//export osslGoRemoveSession
func osslGoRemoveSession(ctx *C.SSL_CTX, session *C.SSL_SESSION) {
	var ret int
	defer recoverCallback[int](nil, "remove session", &ret, 0)
	cb, ok := CtxData[RemoveSessionFunc](ctx)
	if !ok {
		return
	}
	cb(ctx, session)
}

//export osslGoKeylog
func osslGoKeylog(ssl *C.SSL, line *C.char) {
	var ret int
	defer recoverCallback(ssl, "keylog", &ret, 0)
	cb, ok := CtxData[KeylogFunc](ctxOf(ssl))
	if !ok {
		return
	}
	cb(ssl, C.GoString(line))
}

//export osslGoStatus
func osslGoStatus(ssl *C.SSL) (ret C.int) {
	server := C.SSL_is_server(ssl) == 1
	fail := C.int(-1)
	if server {
		fail = C.SSL_TLSEXT_ERR_ALERT_FATAL
	}
	defer recoverCallback(ssl, "status", &ret, fail)
	cb, ok := CtxData[StatusFunc](ctxOf(ssl))
	if !ok {
		if server {
			return C.SSL_TLSEXT_ERR_NOACK
		}
		return 1
	}
	accepted, err := cb(ssl)
	switch {
	case err != nil:
		return fail
	case server && accepted:
		return C.SSL_TLSEXT_ERR_OK
	case server:
		return C.SSL_TLSEXT_ERR_NOACK
	default:
		return boolInt(accepted)
	}
}

//export osslGoCookieGenerate
func osslGoCookieGenerate(ssl *C.SSL, cookie *C.uchar, cookieLen *C.uint) (ret C.int) {
	defer recoverCallback(ssl, "cookie generate", &ret, 0)
	cb, ok := CtxData[CookieGenerateFunc](ctxOf(ssl))
	if !ok {
		return 0
	}
	n, err := cb(ssl, cslice(unsafe.Pointer(cookie), C.DTLS1_COOKIE_LENGTH))
	if err != nil || n < 0 || n > C.DTLS1_COOKIE_LENGTH {
		return 0
	}
	*cookieLen = C.uint(n)
	return 1
}

//export osslGoCookieVerify
func osslGoCookieVerify(ssl *C.SSL, cookie *C.uchar, cookieLen C.uint) (ret C.int) {
	defer recoverCallback(ssl, "cookie verify", &ret, 0)
	cb, ok := CtxData[CookieVerifyFunc](ctxOf(ssl))
	if !ok {
		return 0
	}
	return boolInt(cb(ssl, cslice(unsafe.Pointer(cookie), int(cookieLen))))
}

//export osslGoPassword
func osslGoPassword(buf *C.char, size C.int, rwflag C.int, u unsafe.Pointer) (ret C.int) {
	defer recoverCallback[C.int](nil, "password", &ret, -1)
	v, ok := get(u)
	if !ok {
		return -1
	}
	cb, ok := v.(PasswordFunc)
	if !ok {
		return -1
	}
	n, err := cb(cslice(unsafe.Pointer(buf), int(size)), rwflag == 1)
	if err != nil || n < 0 || n > int(size) {
		return -1
	}
	return C.int(n)
}
