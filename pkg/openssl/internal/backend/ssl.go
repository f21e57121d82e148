//go:build cgo && !windows

package backend

/*
#include "shim.h"
*/
import "C"

import (
	"errors"
	"math"
	"unsafe"
)

var (
	errALPNProtos  = errors.New("SSL_CTX_set_alpn_protos failed")
	errEmptyLabel  = errors.New("export keying material: empty label")
	errNoPeerCerts = errors.New("no peer certificate chain")
)

// SSL error codes as returned by SSL_get_error.
const (
	SSLErrorNone          = C.SSL_ERROR_NONE
	SSLErrorSSL           = C.SSL_ERROR_SSL
	SSLErrorWantRead      = C.SSL_ERROR_WANT_READ
	SSLErrorWantWrite     = C.SSL_ERROR_WANT_WRITE
	SSLErrorWantX509      = C.SSL_ERROR_WANT_X509_LOOKUP
	SSLErrorSyscall       = C.SSL_ERROR_SYSCALL
	SSLErrorZeroReturn    = C.SSL_ERROR_ZERO_RETURN
	SSLErrorWantConnect   = C.SSL_ERROR_WANT_CONNECT
	SSLErrorWantAccept    = C.SSL_ERROR_WANT_ACCEPT
	TLSExtErrOK           = C.SSL_TLSEXT_ERR_OK
	TLSExtErrAlertWarning = C.SSL_TLSEXT_ERR_ALERT_WARNING
	TLSExtErrAlertFatal   = C.SSL_TLSEXT_ERR_ALERT_FATAL
	TLSExtErrNoAck        = C.SSL_TLSEXT_ERR_NOACK
)

// Methods.

func TLSMethod() Method       { return C.TLS_method() }
func TLSClientMethod() Method { return C.TLS_client_method() }
func TLSServerMethod() Method { return C.TLS_server_method() }
func DTLSMethod() Method      { return C.DTLS_method() }
func DTLSClientMethod() Method {
	return C.DTLS_client_method()
}
func DTLSServerMethod() Method {
	return C.DTLS_server_method()
}

// Context lifecycle.

func NewSSLCtx(m Method) (SSLCtx, error) {
	var ctx SSLCtx
	err := call(func() error {
		ctx = C.SSL_CTX_new(m)
		return checkAlloc("SSL_CTX_new", unsafe.Pointer(ctx))
	})
	return ctx, err
}

func FreeSSLCtx(ctx SSLCtx) { C.SSL_CTX_free(ctx) }

func SSLCtxUpRef(ctx SSLCtx) error {
	return call(func() error {
		_, err := checkPositive("SSL_CTX_up_ref", int(C.SSL_CTX_up_ref(ctx)))
		return err
	})
}

// Verification.

func SSLCtxSetVerify(ctx SSLCtx, mode int) {
	C.X_SSL_CTX_set_verify(ctx, C.int(mode), 0)
}

func SSLCtxSetVerifyCallback(ctx SSLCtx, mode int, cb VerifyFunc) error {
	if err := SetCtxData(ctx, cb); err != nil {
		return err
	}
	C.X_SSL_CTX_set_verify(ctx, C.int(mode), 1)
	return nil
}

func SSLCtxSetVerifyDepth(ctx SSLCtx, depth int) {
	C.SSL_CTX_set_verify_depth(ctx, C.int(depth))
}

func SSLCtxLoadVerifyLocations(ctx SSLCtx, file, dir string) error {
	var cfile, cdir *C.char
	if file != "" {
		var free func()
		cfile, free = cstring(file)
		defer free()
	}
	if dir != "" {
		var free func()
		cdir, free = cstring(dir)
		defer free()
	}
	return call(func() error {
		_, err := checkPositive("SSL_CTX_load_verify_locations", int(C.SSL_CTX_load_verify_locations(ctx, cfile, cdir)))
		return err
	})
}

func SSLCtxSetDefaultVerifyPaths(ctx SSLCtx) error {
	return call(func() error {
		_, err := checkPositive("SSL_CTX_set_default_verify_paths", int(C.SSL_CTX_set_default_verify_paths(ctx)))
		return err
	})
}

// SSLCtxSetCertStore transfers ownership of store to ctx.
func SSLCtxSetCertStore(ctx SSLCtx, store X509Store) {
	C.SSL_CTX_set_cert_store(ctx, store)
}

func SSLCtxCertStore(ctx SSLCtx) X509Store { return C.SSL_CTX_get_cert_store(ctx) }

func SSLCtxLoadClientCAFile(ctx SSLCtx, file string) error {
	cfile, free := cstring(file)
	defer free()
	return call(func() error {
		list := C.SSL_load_client_CA_file(cfile)
		if err := checkPointer("SSL_load_client_CA_file", unsafe.Pointer(list)); err != nil {
			return err
		}
		C.SSL_CTX_set_client_CA_list(ctx, list)
		return nil
	})
}

// Certificates and keys.

// File types for the *_file setters.
const (
	FiletypePEM  = C.SSL_FILETYPE_PEM
	FiletypeASN1 = C.SSL_FILETYPE_ASN1
)

func SSLCtxUseCertificateFile(ctx SSLCtx, file string, typ int) error {
	cfile, free := cstring(file)
	defer free()
	return call(func() error {
		_, err := checkPositive("SSL_CTX_use_certificate_file", int(C.SSL_CTX_use_certificate_file(ctx, cfile, C.int(typ))))
		return err
	})
}

func SSLCtxUseCertificateChainFile(ctx SSLCtx, file string) error {
	cfile, free := cstring(file)
	defer free()
	return call(func() error {
		_, err := checkPositive("SSL_CTX_use_certificate_chain_file", int(C.SSL_CTX_use_certificate_chain_file(ctx, cfile)))
		return err
	})
}

func SSLCtxUseCertificate(ctx SSLCtx, cert X509) error {
	return call(func() error {
		_, err := checkPositive("SSL_CTX_use_certificate", int(C.SSL_CTX_use_certificate(ctx, cert)))
		return err
	})
}

// SSLCtxAddExtraChainCert transfers ownership of cert to ctx on success.
func SSLCtxAddExtraChainCert(ctx SSLCtx, cert X509) error {
	return call(func() error {
		_, err := checkPositive("SSL_CTX_add_extra_chain_cert", int(C.X_SSL_CTX_add_extra_chain_cert(ctx, cert)))
		return err
	})
}

func SSLCtxUsePrivateKeyFile(ctx SSLCtx, file string, typ int) error {
	cfile, free := cstring(file)
	defer free()
	return call(func() error {
		_, err := checkPositive("SSL_CTX_use_PrivateKey_file", int(C.SSL_CTX_use_PrivateKey_file(ctx, cfile, C.int(typ))))
		return err
	})
}

func SSLCtxUsePrivateKey(ctx SSLCtx, key PKey) error {
	return call(func() error {
		_, err := checkPositive("SSL_CTX_use_PrivateKey", int(C.SSL_CTX_use_PrivateKey(ctx, key)))
		return err
	})
}

func SSLCtxCheckPrivateKey(ctx SSLCtx) error {
	return call(func() error {
		_, err := checkPositive("SSL_CTX_check_private_key", int(C.SSL_CTX_check_private_key(ctx)))
		return err
	})
}

func SSLCtxCertificate(ctx SSLCtx) X509 { return C.SSL_CTX_get0_certificate(ctx) }

func SSLCtxPrivateKey(ctx SSLCtx) PKey { return C.SSL_CTX_get0_privatekey(ctx) }

// Protocol parameters.

func SSLCtxSetCipherList(ctx SSLCtx, list string) error {
	cs, free := cstring(list)
	defer free()
	return call(func() error {
		_, err := checkPositive("SSL_CTX_set_cipher_list", int(C.SSL_CTX_set_cipher_list(ctx, cs)))
		return err
	})
}

func SSLCtxSetCiphersuites(ctx SSLCtx, suites string) error {
	cs, free := cstring(suites)
	defer free()
	return call(func() error {
		_, err := checkPositive("SSL_CTX_set_ciphersuites", int(C.X_SSL_CTX_set_ciphersuites(ctx, cs)))
		return err
	})
}

func SSLCtxSetOptions(ctx SSLCtx, op uint64) uint64 {
	return uint64(C.X_SSL_CTX_set_options(ctx, C.uint64_t(op)))
}

func SSLCtxClearOptions(ctx SSLCtx, op uint64) uint64 {
	return uint64(C.X_SSL_CTX_clear_options(ctx, C.uint64_t(op)))
}

func SSLCtxOptions(ctx SSLCtx) uint64 { return uint64(C.X_SSL_CTX_get_options(ctx)) }

func SSLCtxSetMode(ctx SSLCtx, mode int64) int64 {
	return int64(C.X_SSL_CTX_set_mode(ctx, C.long(mode)))
}

func SSLCtxMode(ctx SSLCtx) int64 { return int64(C.X_SSL_CTX_get_mode(ctx)) }

func SSLCtxSetMinProtoVersion(ctx SSLCtx, version int) error {
	return call(func() error {
		_, err := checkPositive("SSL_CTX_set_min_proto_version", int(C.X_SSL_CTX_set_min_proto_version(ctx, C.int(version))))
		return err
	})
}

func SSLCtxSetMaxProtoVersion(ctx SSLCtx, version int) error {
	return call(func() error {
		_, err := checkPositive("SSL_CTX_set_max_proto_version", int(C.X_SSL_CTX_set_max_proto_version(ctx, C.int(version))))
		return err
	})
}

func SSLCtxMinProtoVersion(ctx SSLCtx) int { return int(C.X_SSL_CTX_get_min_proto_version(ctx)) }

func SSLCtxMaxProtoVersion(ctx SSLCtx) int { return int(C.X_SSL_CTX_get_max_proto_version(ctx)) }

func SSLCtxSetReadAhead(ctx SSLCtx, on bool) {
	C.X_SSL_CTX_set_read_ahead(ctx, boolInt(on))
}

// Sessions.

func SSLCtxSetSessionIDContext(ctx SSLCtx, sid []byte) error {
	return call(func() error {
		_, err := checkPositive("SSL_CTX_set_session_id_context",
			int(C.SSL_CTX_set_session_id_context(ctx, ucharPtr(sid), C.uint(len(sid)))))
		return err
	})
}

func SSLCtxSetSessionCacheMode(ctx SSLCtx, mode int64) int64 {
	return int64(C.X_SSL_CTX_set_session_cache_mode(ctx, C.long(mode)))
}

func SSLCtxSessionCacheMode(ctx SSLCtx) int64 {
	return int64(C.X_SSL_CTX_get_session_cache_mode(ctx))
}

func SSLCtxSetTimeout(ctx SSLCtx, seconds int64) int64 {
	return int64(C.SSL_CTX_set_timeout(ctx, C.long(seconds)))
}

// SSLCtxAddSession adds session to the internal cache, taking a reference.
// It reports false if an identical session was already cached.
func SSLCtxAddSession(ctx SSLCtx, session Session) bool {
	return C.SSL_CTX_add_session(ctx, session) == 1
}

func SSLCtxRemoveSession(ctx SSLCtx, session Session) bool {
	return C.SSL_CTX_remove_session(ctx, session) == 1
}

// Callback installation.

func SSLCtxSetServernameCallback(ctx SSLCtx, cb ServernameFunc) error {
	if err := SetCtxData(ctx, cb); err != nil {
		return err
	}
	C.X_SSL_CTX_set_servername_cb(ctx)
	return nil
}

// SSLCtxSetALPNProtos sets the client's protocol list in wire format.
// SSL_CTX_set_alpn_protos returns 0 on success, unlike most of libssl.
func SSLCtxSetALPNProtos(ctx SSLCtx, wire []byte) error {
	var err error
	_ = call(func() error {
		if C.SSL_CTX_set_alpn_protos(ctx, ucharPtr(wire), C.uint(len(wire))) != 0 {
			err = &StackError{Op: "SSL_CTX_set_alpn_protos", Entries: append(drainErrors(), ErrorEntry{Reason: errALPNProtos.Error()})}
		}
		return nil
	})
	return err
}

func SSLCtxSetALPNSelectCallback(ctx SSLCtx, cb ALPNSelectFunc) error {
	if err := SetCtxData(ctx, cb); err != nil {
		return err
	}
	C.X_SSL_CTX_set_alpn_select_cb(ctx)
	return nil
}

func SSLCtxSetPSKClientCallback(ctx SSLCtx, cb PSKClientFunc) error {
	if err := SetCtxData(ctx, cb); err != nil {
		return err
	}
	C.X_SSL_CTX_set_psk_client_cb(ctx)
	return nil
}

func SSLCtxSetPSKServerCallback(ctx SSLCtx, cb PSKServerFunc) error {
	if err := SetCtxData(ctx, cb); err != nil {
		return err
	}
	C.X_SSL_CTX_set_psk_server_cb(ctx)
	return nil
}

func SSLCtxUsePSKIdentityHint(ctx SSLCtx, hint string) error {
	cs, free := cstring(hint)
	defer free()
	return call(func() error {
		_, err := checkPositive("SSL_CTX_use_psk_identity_hint", int(C.SSL_CTX_use_psk_identity_hint(ctx, cs)))
		return err
	})
}

func SSLCtxSetNewSessionCallback(ctx SSLCtx, cb NewSessionFunc) error {
	if err := SetCtxData(ctx, cb); err != nil {
		return err
	}
	C.X_SSL_CTX_set_new_session_cb(ctx)
	return nil
}

func SSLCtxSetRemoveSessionCallback(ctx SSLCtx, cb RemoveSessionFunc) error {
	if err := SetCtxData(ctx, cb); err != nil {
		return err
	}
	C.X_SSL_CTX_set_remove_session_cb(ctx)
	return nil
}

func SSLCtxSetKeylogCallback(ctx SSLCtx, cb KeylogFunc) error {
	if err := SetCtxData(ctx, cb); err != nil {
		return err
	}
	if C.X_SSL_CTX_set_keylog_cb(ctx) != 1 {
		return ErrUnsupported
	}
	return nil
}

func SSLCtxSetStatusCallback(ctx SSLCtx, cb StatusFunc) error {
	if err := SetCtxData(ctx, cb); err != nil {
		return err
	}
	return call(func() error {
		_, err := checkPositive("SSL_CTX_set_tlsext_status_cb", int(C.X_SSL_CTX_set_status_cb(ctx)))
		return err
	})
}

func SSLCtxSetCookieGenerateCallback(ctx SSLCtx, cb CookieGenerateFunc) error {
	if err := SetCtxData(ctx, cb); err != nil {
		return err
	}
	C.X_SSL_CTX_set_cookie_generate_cb(ctx)
	return nil
}

func SSLCtxSetCookieVerifyCallback(ctx SSLCtx, cb CookieVerifyFunc) error {
	if err := SetCtxData(ctx, cb); err != nil {
		return err
	}
	C.X_SSL_CTX_set_cookie_verify_cb(ctx)
	return nil
}

// SSL objects.

func NewSSL(ctx SSLCtx) (SSL, error) {
	var ssl SSL
	err := call(func() error {
		ssl = C.SSL_new(ctx)
		return checkAlloc("SSL_new", unsafe.Pointer(ssl))
	})
	return ssl, err
}

func FreeSSL(ssl SSL) { C.SSL_free(ssl) }

func SSLSetConnectState(ssl SSL) { C.SSL_set_connect_state(ssl) }

func SSLSetAcceptState(ssl SSL) { C.SSL_set_accept_state(ssl) }

// IOResult is the outcome of one handshake, read, write or shutdown step.
// On failure Code holds SSL_get_error and Stack holds whatever the queue
// contained, both captured on the thread that made the call.
type IOResult struct {
	Ret   int
	Code  int
	Stack []ErrorEntry
}

func sslIO(ssl SSL, fn func() C.int) IOResult {
	var res IOResult
	_ = call(func() error {
		rc := fn()
		res.Ret = int(rc)
		if rc <= 0 {
			res.Code = int(C.SSL_get_error(ssl, rc))
			res.Stack = drainErrors()
		}
		return nil
	})
	return res
}

func SSLConnect(ssl SSL) IOResult {
	return sslIO(ssl, func() C.int { return C.SSL_connect(ssl) })
}

func SSLAccept(ssl SSL) IOResult {
	return sslIO(ssl, func() C.int { return C.SSL_accept(ssl) })
}

func SSLDoHandshake(ssl SSL) IOResult {
	return sslIO(ssl, func() C.int { return C.SSL_do_handshake(ssl) })
}

// SSLRead reads at most math.MaxInt32 bytes per call.
func SSLRead(ssl SSL, buf []byte) IOResult {
	n := clampInt32(len(buf))
	return sslIO(ssl, func() C.int { return C.SSL_read(ssl, unsafe.Pointer(ucharPtr(buf)), C.int(n)) })
}

// SSLWrite writes at most math.MaxInt32 bytes per call; callers loop on the
// partial count.
func SSLWrite(ssl SSL, buf []byte) IOResult {
	n := clampInt32(len(buf))
	return sslIO(ssl, func() C.int { return C.SSL_write(ssl, unsafe.Pointer(ucharPtr(buf)), C.int(n)) })
}

func clampInt32(n int) int {
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return n
}

// SSLShutdown returns 0 once close_notify was sent and 1 once the peer's
// close_notify was received. Negative values carry an error code.
func SSLShutdown(ssl SSL) IOResult {
	var res IOResult
	_ = call(func() error {
		rc := C.SSL_shutdown(ssl)
		res.Ret = int(rc)
		if rc < 0 {
			res.Code = int(C.SSL_get_error(ssl, rc))
			res.Stack = drainErrors()
		}
		return nil
	})
	return res
}

func SSLSetHostname(ssl SSL, name string) error {
	cs, free := cstring(name)
	defer free()
	return call(func() error {
		_, err := checkPositive("SSL_set_tlsext_host_name", int(C.X_SSL_set_tlsext_host_name(ssl, cs)))
		return err
	})
}

// SSLSetVerifyHostname enables hostname checking of the peer certificate.
func SSLSetVerifyHostname(ssl SSL, name string) error {
	cs, free := cstring(name)
	defer free()
	return call(func() error {
		_, err := checkPositive("SSL_set1_host", int(C.SSL_set1_host(ssl, cs)))
		return err
	})
}

// SSLSetVerifyIP is SSLSetVerifyHostname for an IP address literal.
func SSLSetVerifyIP(ssl SSL, ip string) error {
	cs, free := cstring(ip)
	defer free()
	return call(func() error {
		_, err := checkPositive("X509_VERIFY_PARAM_set1_ip_asc",
			int(C.X509_VERIFY_PARAM_set1_ip_asc(C.SSL_get0_param(ssl), cs)))
		return err
	})
}

func SSLSetVerify(ssl SSL, mode int) {
	C.X_SSL_set_verify(ssl, C.int(mode), 0)
}

func SSLSetVerifyCallback(ssl SSL, mode int, cb VerifyFunc) error {
	if err := SetSSLData(ssl, cb); err != nil {
		return err
	}
	C.X_SSL_set_verify(ssl, C.int(mode), 1)
	return nil
}

func SSLSetSession(ssl SSL, session Session) error {
	return call(func() error {
		_, err := checkPositive("SSL_set_session", int(C.SSL_set_session(ssl, session)))
		return err
	})
}

func SSLSessionReused(ssl SSL) bool { return C.X_SSL_session_reused(ssl) == 1 }

// SSLSession returns a borrowed pointer to the current session.
func SSLSession(ssl SSL) Session { return C.SSL_get_session(ssl) }

func SSLCurrentCipher(ssl SSL) Cipher { return (*C.SSL_CIPHER)(C.SSL_get_current_cipher(ssl)) }

func SSLVersionString(ssl SSL) string { return C.GoString(C.SSL_get_version(ssl)) }

func SSLProtocolVersion(ssl SSL) int { return int(C.SSL_version(ssl)) }

func SSLStateString(ssl SSL) string { return C.GoString(C.SSL_state_string(ssl)) }

func SSLStateStringLong(ssl SSL) string { return C.GoString(C.SSL_state_string_long(ssl)) }

// SSLPeerCertificate returns an owned certificate, or nil if the peer sent none.
func SSLPeerCertificate(ssl SSL) X509 { return C.X_SSL_get1_peer_certificate(ssl) }

// SSLPeerCertChain returns borrowed pointers into the peer's chain.
func SSLPeerCertChain(ssl SSL) ([]X509, error) {
	sk := C.SSL_get_peer_cert_chain(ssl)
	if sk == nil {
		return nil, errNoPeerCerts
	}
	n := int(C.X_sk_X509_num(sk))
	out := make([]X509, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, C.X_sk_X509_value(sk, C.int(i)))
	}
	return out, nil
}

func SSLServername(ssl SSL) string {
	name := C.SSL_get_servername(ssl, C.TLSEXT_NAMETYPE_host_name)
	if name == nil {
		return ""
	}
	return C.GoString(name)
}

func SSLSelectedALPN(ssl SSL) []byte {
	var data *C.uchar
	var n C.uint
	C.SSL_get0_alpn_selected(ssl, &data, &n)
	if data == nil || n == 0 {
		return nil
	}
	return C.GoBytes(unsafe.Pointer(data), C.int(n))
}

func SSLPending(ssl SSL) int { return int(C.SSL_pending(ssl)) }

func SSLVerifyResult(ssl SSL) int { return int(C.SSL_get_verify_result(ssl)) }

func SSLIsServer(ssl SSL) bool { return C.SSL_is_server(ssl) == 1 }

func SSLExportKeyingMaterial(ssl SSL, out []byte, label string, context []byte) error {
	if label == "" {
		return errEmptyLabel
	}
	cl, free := cstring(label)
	defer free()
	useContext := C.int(0)
	if context != nil {
		useContext = 1
	}
	return call(func() error {
		_, err := checkPositive("SSL_export_keying_material", int(C.SSL_export_keying_material(ssl,
			ucharPtr(out), C.size_t(len(out)), cl, C.size_t(len(label)),
			ucharPtr(context), C.size_t(len(context)), useContext)))
		return err
	})
}

func SSLClientRandom(ssl SSL) []byte {
	n := C.SSL_get_client_random(ssl, nil, 0)
	buf := make([]byte, int(n))
	C.SSL_get_client_random(ssl, ucharPtr(buf), n)
	return buf
}

func SSLServerRandom(ssl SSL) []byte {
	n := C.SSL_get_server_random(ssl, nil, 0)
	buf := make([]byte, int(n))
	C.SSL_get_server_random(ssl, ucharPtr(buf), n)
	return buf
}

func SSLContext(ssl SSL) SSLCtx { return C.SSL_get_SSL_CTX(ssl) }

// SSLSetContext swaps the context used by ssl, typically from a servername
// callback.
func SSLSetContext(ssl SSL, ctx SSLCtx) error {
	return call(func() error {
		return checkPointer("SSL_set_SSL_CTX", unsafe.Pointer(C.SSL_set_SSL_CTX(ssl, ctx)))
	})
}

func SSLRequestOCSP(ssl SSL) error {
	return call(func() error {
		_, err := checkPositive("SSL_set_tlsext_status_type",
			int(C.X_SSL_set_tlsext_status_type(ssl, C.TLSEXT_STATUSTYPE_ocsp)))
		return err
	})
}

func SSLOCSPResponse(ssl SSL) []byte {
	var p *C.uchar
	n := C.X_SSL_get_tlsext_status_ocsp_resp(ssl, &p)
	if p == nil || n <= 0 {
		return nil
	}
	return C.GoBytes(unsafe.Pointer(p), C.int(n))
}

func SSLSetOCSPResponse(ssl SSL, resp []byte) error {
	return call(func() error {
		_, err := checkPositive("SSL_set_tlsext_status_ocsp_resp",
			int(C.X_SSL_set_tlsext_status_ocsp_resp(ssl, ucharPtr(resp), C.long(len(resp)))))
		return err
	})
}

func SSLSetMTU(ssl SSL, mtu int) error {
	return call(func() error {
		_, err := checkPositive("DTLS_set_link_mtu", int(C.X_DTLS_set_link_mtu(ssl, C.long(mtu))))
		return err
	})
}

// Ciphers.

func CipherName(c Cipher) string    { return C.GoString(C.SSL_CIPHER_get_name(c)) }
func CipherVersion(c Cipher) string { return C.GoString(C.SSL_CIPHER_get_version(c)) }

func CipherBits(c Cipher) (secret, algorithm int) {
	var alg C.int
	secret = int(C.SSL_CIPHER_get_bits(c, &alg))
	return secret, int(alg)
}

func CipherDescription(c Cipher) string {
	buf := (*C.char)(C.malloc(128))
	defer C.free(unsafe.Pointer(buf))
	return C.GoString(C.SSL_CIPHER_description(c, buf, 128))
}

// Sessions.

func FreeSession(s Session) { C.SSL_SESSION_free(s) }

func SessionUpRef(s Session) error {
	return call(func() error {
		_, err := checkPositive("SSL_SESSION_up_ref", int(C.SSL_SESSION_up_ref(s)))
		return err
	})
}

func SessionID(s Session) []byte {
	var n C.uint
	p := C.SSL_SESSION_get_id(s, &n)
	return C.GoBytes(unsafe.Pointer(p), C.int(n))
}

func SessionMasterKey(s Session) []byte {
	n := C.SSL_SESSION_get_master_key(s, nil, 0)
	buf := make([]byte, int(n))
	C.SSL_SESSION_get_master_key(s, ucharPtr(buf), n)
	return buf
}

func SessionProtocolVersion(s Session) int { return int(C.SSL_SESSION_get_protocol_version(s)) }

func SessionToDER(s Session) ([]byte, error) {
	return i2d("i2d_SSL_SESSION", func(out **C.uchar) C.int { return C.i2d_SSL_SESSION(s, out) })
}

func SessionFromDER(der []byte) (Session, error) {
	var s Session
	buf := C.CBytes(der)
	defer C.free(buf)
	err := call(func() error {
		p := (*C.uchar)(buf)
		s = C.d2i_SSL_SESSION(nil, &p, C.long(len(der)))
		return checkPointer("d2i_SSL_SESSION", unsafe.Pointer(s))
	})
	return s, err
}
