//go:build cgo && !windows

package ssl

import (
	"context"
	"errors"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/backend"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/logging"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/x509"
)

// Callback types. Every *SSL handed to a callback is borrowed from the
// connection being handshaken and must not be retained after it returns.
type (
	// VerifyCallback overrides OpenSSL's decision for one certificate in the
	// peer's chain. preverify is that decision.
	VerifyCallback func(preverify bool, ctx *x509.StoreContext) bool
	// ServernameCallback inspects the client's SNI name, typically to swap
	// in another Context with SSL.SetContext. Returning ErrSNINoAck
	// declines the name, an *AlertError picks the alert, and any other
	// error aborts with unrecognized_name.
	ServernameCallback func(s *SSL) error
	// ALPNSelectCallback returns the chosen protocol, which should be a
	// subslice of client as returned by SelectNextProto. ErrALPNNoAck
	// negotiates nothing; any other error aborts the handshake.
	ALPNSelectCallback func(s *SSL, client []byte) ([]byte, error)
	// PSKClientCallback returns the identity and key to use given the
	// server's hint, which may be empty.
	PSKClientCallback func(s *SSL, hint []byte) (identity, psk []byte, err error)
	// PSKServerCallback returns the key for a client's identity.
	PSKServerCallback func(s *SSL, identity []byte) ([]byte, error)
	// NewSessionCallback receives a session the client may resume later.
	// The callback owns session.
	NewSessionCallback func(s *SSL, session *Session)
	// RemoveSessionCallback is told that a session left the internal cache.
	// The callback owns its reference to session.
	RemoveSessionCallback func(session *Session)
	// KeylogCallback receives one NSS key log line.
	KeylogCallback func(s *SSL, line string)
	// StatusCallback handles OCSP stapling; see ContextBuilder.SetStatusCallback.
	StatusCallback func(s *SSL) (bool, error)
	// CookieGenerateCallback returns a DTLS cookie for the client.
	CookieGenerateCallback func(s *SSL) ([]byte, error)
	// CookieVerifyCallback checks a cookie returned by a DTLS client.
	CookieVerifyCallback func(s *SSL, cookie []byte) bool
)

func (cb VerifyCallback) backend() backend.VerifyFunc {
	return func(preverify bool, store backend.X509StoreCtx) bool {
		return cb(preverify, x509.NewStoreContext(store))
	}
}

func (cb ServernameCallback) backend() backend.ServernameFunc {
	return func(p backend.SSL, alert *int) int {
		err := cb(borrowSSL(p))
		var ae *AlertError
		switch {
		case err == nil:
			return backend.TLSExtErrOK
		case errors.Is(err, ErrSNINoAck):
			return backend.TLSExtErrNoAck
		case errors.As(err, &ae):
			*alert = ae.Alert
			if ae.Warning {
				return backend.TLSExtErrAlertWarning
			}
			return backend.TLSExtErrAlertFatal
		default:
			*alert = AlertUnrecognizedName
			return backend.TLSExtErrAlertFatal
		}
	}
}

func (cb ALPNSelectCallback) backend() backend.ALPNSelectFunc {
	return func(p backend.SSL, client []byte) ([]byte, int) {
		selected, err := cb(borrowSSL(p), client)
		switch {
		case errors.Is(err, ErrALPNNoAck):
			return nil, backend.TLSExtErrNoAck
		case err != nil:
			return nil, backend.TLSExtErrAlertFatal
		}
		return selected, backend.TLSExtErrOK
	}
}

func (cb PSKClientCallback) backend() backend.PSKClientFunc {
	return func(p backend.SSL, hint, identity, psk []byte) (int, error) {
		id, key, err := cb(borrowSSL(p), hint)
		if err != nil {
			return 0, err
		}
		// identity must stay NUL terminated.
		if len(id)+1 > len(identity) {
			return 0, ErrIdentityTooLong
		}
		if len(key) > len(psk) {
			return 0, ErrPSKTooLong
		}
		identity[copy(identity, id)] = 0
		openssl.Logger().Debug(context.Background(), "psk client identity chosen",
			logging.Redacted("identity"), "psk_len", len(key))
		return copy(psk, key), nil
	}
}

func (cb PSKServerCallback) backend() backend.PSKServerFunc {
	return func(p backend.SSL, identity, psk []byte) (int, error) {
		key, err := cb(borrowSSL(p), identity)
		if err != nil {
			return 0, err
		}
		if len(key) > len(psk) {
			return 0, ErrPSKTooLong
		}
		return copy(psk, key), nil
	}
}

func (cb NewSessionCallback) backend() backend.NewSessionFunc {
	return func(p backend.SSL, raw backend.Session, take func()) {
		s, err := wrapSession(raw)
		if err != nil {
			return
		}
		take()
		cb(borrowSSL(p), s)
	}
}

func (cb RemoveSessionCallback) backend() backend.RemoveSessionFunc {
	return func(_ backend.SSLCtx, raw backend.Session) {
		s, err := cloneSession(raw)
		if err != nil {
			return
		}
		cb(s)
	}
}

func (cb KeylogCallback) backend() backend.KeylogFunc {
	return func(p backend.SSL, line string) {
		cb(borrowSSL(p), line)
	}
}

func (cb StatusCallback) backend() backend.StatusFunc {
	return func(p backend.SSL) (bool, error) {
		return cb(borrowSSL(p))
	}
}

// maxCookieLength is DTLS1_COOKIE_LENGTH.
const maxCookieLength = 255

func (cb CookieGenerateCallback) backend() backend.CookieGenerateFunc {
	return func(p backend.SSL, buf []byte) (int, error) {
		cookie, err := cb(borrowSSL(p))
		if err != nil {
			return 0, err
		}
		if len(cookie) > len(buf) || len(cookie) > maxCookieLength {
			return 0, ErrCookieTooLong
		}
		return copy(buf, cookie), nil
	}
}

func (cb CookieVerifyCallback) backend() backend.CookieVerifyFunc {
	return func(p backend.SSL, cookie []byte) bool {
		return cb(borrowSSL(p), cookie)
	}
}
