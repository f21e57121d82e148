//go:build cgo && !windows

package backend

/*
#include "shim.h"
*/
import "C"

// Verify modes.
const (
	VerifyNone             = C.SSL_VERIFY_NONE
	VerifyPeer             = C.SSL_VERIFY_PEER
	VerifyFailIfNoPeerCert = C.SSL_VERIFY_FAIL_IF_NO_PEER_CERT
	VerifyClientOnce       = C.SSL_VERIFY_CLIENT_ONCE
)

// Protocol versions.
const (
	TLS1Version    = C.TLS1_VERSION
	TLS1_1Version  = C.TLS1_1_VERSION
	TLS1_2Version  = C.TLS1_2_VERSION
	TLS1_3Version  = C.TLS1_3_VERSION
	DTLS1_2Version = C.DTLS1_2_VERSION
)

// Options. Only bits below 31 are mirrored here.
const (
	OpNoTicket                = C.SSL_OP_NO_TICKET
	OpNoCompression           = C.SSL_OP_NO_COMPRESSION
	OpCipherServerPreference  = C.SSL_OP_CIPHER_SERVER_PREFERENCE
	OpNoSSLv3                 = C.SSL_OP_NO_SSLv3
	OpNoTLSv1                 = C.SSL_OP_NO_TLSv1
	OpNoTLSv1_1               = C.SSL_OP_NO_TLSv1_1
	OpNoTLSv1_2               = C.SSL_OP_NO_TLSv1_2
	OpNoTLSv1_3               = C.SSL_OP_NO_TLSv1_3
	OpNoRenegotiation         = C.SSL_OP_NO_RENEGOTIATION
	OpSingleECDHUse           = C.SSL_OP_SINGLE_ECDH_USE
	OpAllowUnsafeLegacyRenego = C.SSL_OP_ALLOW_UNSAFE_LEGACY_RENEGOTIATION
)

// Modes.
const (
	ModeEnablePartialWrite      = C.SSL_MODE_ENABLE_PARTIAL_WRITE
	ModeAcceptMovingWriteBuffer = C.SSL_MODE_ACCEPT_MOVING_WRITE_BUFFER
	ModeAutoRetry               = C.SSL_MODE_AUTO_RETRY
	ModeReleaseBuffers          = C.SSL_MODE_RELEASE_BUFFERS
)

// Session cache modes.
const (
	SessCacheOff        = C.SSL_SESS_CACHE_OFF
	SessCacheClient     = C.SSL_SESS_CACHE_CLIENT
	SessCacheServer     = C.SSL_SESS_CACHE_SERVER
	SessCacheBoth       = C.SSL_SESS_CACHE_BOTH
	SessCacheNoInternal = C.SSL_SESS_CACHE_NO_INTERNAL
)
