package openssl

import (
	"io"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/backend"
)

// RandBytes fills buf from OpenSSL's CSPRNG.
func RandBytes(buf []byte) error {
	return RemapError(backend.RandBytes(buf))
}

// Reader is an io.Reader over RandBytes.
var Reader io.Reader = randReader{}

type randReader struct{}

func (randReader) Read(p []byte) (int, error) {
	if err := RandBytes(p); err != nil {
		return 0, err
	}
	return len(p), nil
}
