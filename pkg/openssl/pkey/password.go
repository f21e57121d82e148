//go:build cgo && !windows

package pkey

import (
	"errors"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/backend"
)

// ErrPasswordTooLong is returned when a passphrase exceeds OpenSSL's buffer.
var ErrPasswordTooLong = errors.New("pkey: password too long")

// PasswordCallback supplies a passphrase. encrypting is true when OpenSSL
// is writing an encrypted key and false when it is reading one.
type PasswordCallback func(encrypting bool) ([]byte, error)

// Passphrase returns a PasswordCallback that always answers p.
func Passphrase(p []byte) PasswordCallback {
	return func(bool) ([]byte, error) { return p, nil }
}

func (cb PasswordCallback) backend() backend.PasswordFunc {
	if cb == nil {
		return nil
	}
	return func(buf []byte, encrypting bool) (int, error) {
		pw, err := cb(encrypting)
		if err != nil {
			return -1, err
		}
		if len(pw) > len(buf) {
			return -1, ErrPasswordTooLong
		}
		return copy(buf, pw), nil
	}
}
