//go:build cgo && !windows

package ssl

import (
	"fmt"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/backend"
)

// Method selects the protocol family and role of a Context.
type Method struct {
	m    backend.Method
	dtls bool
}

func TLSMethod() Method        { return Method{m: backend.TLSMethod()} }
func TLSClientMethod() Method  { return Method{m: backend.TLSClientMethod()} }
func TLSServerMethod() Method  { return Method{m: backend.TLSServerMethod()} }
func DTLSMethod() Method       { return Method{m: backend.DTLSMethod(), dtls: true} }
func DTLSClientMethod() Method { return Method{m: backend.DTLSClientMethod(), dtls: true} }
func DTLSServerMethod() Method { return Method{m: backend.DTLSServerMethod(), dtls: true} }

// DTLS reports whether the method speaks DTLS.
func (m Method) DTLS() bool { return m.dtls }

// VerifyMode is a set of SSL_VERIFY_* flags.
type VerifyMode int

const (
	VerifyNone             VerifyMode = backend.VerifyNone
	VerifyPeer             VerifyMode = backend.VerifyPeer
	VerifyFailIfNoPeerCert VerifyMode = backend.VerifyFailIfNoPeerCert
	VerifyClientOnce       VerifyMode = backend.VerifyClientOnce
)

// Version is a protocol version number as used on the wire.
type Version int

const (
	VersionTLS1   Version = backend.TLS1Version
	VersionTLS1_1 Version = backend.TLS1_1Version
	VersionTLS1_2 Version = backend.TLS1_2Version
	VersionTLS1_3 Version = backend.TLS1_3Version
	VersionDTLS12 Version = backend.DTLS1_2Version
)

func (v Version) String() string {
	switch v {
	case 0:
		return "any"
	case VersionTLS1:
		return "TLSv1"
	case VersionTLS1_1:
		return "TLSv1.1"
	case VersionTLS1_2:
		return "TLSv1.2"
	case VersionTLS1_3:
		return "TLSv1.3"
	case VersionDTLS12:
		return "DTLSv1.2"
	default:
		return fmt.Sprintf("version(0x%04x)", int(v))
	}
}

// Options is a set of SSL_OP_* flags.
type Options uint64

const (
	OpNoTicket                Options = backend.OpNoTicket
	OpNoCompression           Options = backend.OpNoCompression
	OpCipherServerPreference  Options = backend.OpCipherServerPreference
	OpNoSSLv3                 Options = backend.OpNoSSLv3
	OpNoTLSv1                 Options = backend.OpNoTLSv1
	OpNoTLSv1_1               Options = backend.OpNoTLSv1_1
	OpNoTLSv1_2               Options = backend.OpNoTLSv1_2
	OpNoTLSv1_3               Options = backend.OpNoTLSv1_3
	OpNoRenegotiation         Options = backend.OpNoRenegotiation
	OpSingleECDHUse           Options = backend.OpSingleECDHUse
	OpAllowUnsafeLegacyRenego Options = backend.OpAllowUnsafeLegacyRenego
)

// Mode is a set of SSL_MODE_* flags.
type Mode int64

const (
	ModeEnablePartialWrite      Mode = backend.ModeEnablePartialWrite
	ModeAcceptMovingWriteBuffer Mode = backend.ModeAcceptMovingWriteBuffer
	ModeAutoRetry               Mode = backend.ModeAutoRetry
	ModeReleaseBuffers          Mode = backend.ModeReleaseBuffers
)

// SessionCacheMode is a set of SSL_SESS_CACHE_* flags.
type SessionCacheMode int64

const (
	SessionCacheOff        SessionCacheMode = backend.SessCacheOff
	SessionCacheClient     SessionCacheMode = backend.SessCacheClient
	SessionCacheServer     SessionCacheMode = backend.SessCacheServer
	SessionCacheBoth       SessionCacheMode = backend.SessCacheBoth
	SessionCacheNoInternal SessionCacheMode = backend.SessCacheNoInternal
)

// Filetype is the encoding of a certificate or key file.
type Filetype int

const (
	FiletypePEM  Filetype = backend.FiletypePEM
	FiletypeASN1 Filetype = backend.FiletypeASN1
)

// ShutdownResult is the state reached by Stream.Shutdown.
type ShutdownResult int

const (
	// ShutdownSent means our close_notify went out and the peer's has not
	// arrived yet.
	ShutdownSent ShutdownResult = iota + 1
	// ShutdownReceived means both close_notify alerts have been exchanged.
	ShutdownReceived
)

func (r ShutdownResult) String() string {
	switch r {
	case ShutdownSent:
		return "sent"
	case ShutdownReceived:
		return "received"
	default:
		return "unknown"
	}
}
