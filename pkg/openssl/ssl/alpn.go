//go:build cgo && !windows

package ssl

import (
	"bytes"
	"fmt"
)

// EncodeProtocols turns protocol names into the length-prefixed wire list
// used by ALPN.
func EncodeProtocols(protos []string) ([]byte, error) {
	var out []byte
	for _, p := range protos {
		if len(p) == 0 || len(p) > 255 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidProtocols, p)
		}
		out = append(out, byte(len(p)))
		out = append(out, p...)
	}
	return out, nil
}

// DecodeProtocols is the inverse of EncodeProtocols.
func DecodeProtocols(wire []byte) ([]string, error) {
	var out []string
	for len(wire) > 0 {
		n := int(wire[0])
		if n == 0 || 1+n > len(wire) {
			return nil, fmt.Errorf("%w: truncated entry", ErrInvalidProtocols)
		}
		out = append(out, string(wire[1:1+n]))
		wire = wire[1+n:]
	}
	return out, nil
}

// SelectNextProto picks the first protocol in the server's wire list that the
// client also offered. The result aliases client, which is what an ALPN
// select callback must return.
func SelectNextProto(server, client []byte) ([]byte, bool) {
	for len(server) > 0 {
		n := int(server[0])
		if 1+n > len(server) {
			return nil, false
		}
		want := server[1 : 1+n]
		server = server[1+n:]
		for c := client; len(c) > 0; {
			m := int(c[0])
			if 1+m > len(c) {
				break
			}
			if bytes.Equal(c[1:1+m], want) {
				return c[1 : 1+m], true
			}
			c = c[1+m:]
		}
	}
	return nil, false
}
