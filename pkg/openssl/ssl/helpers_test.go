//go:build cgo && !windows

package ssl_test

import (
	"bytes"
	"net"
	"testing"

	"github.com/loopholelabs/testing/conn/pair"
	"github.com/stretchr/testify/require"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/testpki"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/pkey"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/ssl"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/x509"
)

func newPKI(t *testing.T) *testpki.PKI {
	t.Helper()
	pki, err := testpki.New()
	require.NoError(t, err)
	return pki
}

func loadCert(t *testing.T, pem []byte) *x509.Certificate {
	t.Helper()
	c, err := x509.FromPEM(pem)
	require.NoError(t, err)
	t.Cleanup(c.Free)
	return c
}

func loadKey(t *testing.T, pem []byte) *pkey.PKey {
	t.Helper()
	k, err := pkey.PrivateKeyFromPEM(pem)
	require.NoError(t, err)
	t.Cleanup(k.Free)
	return k
}

func trustStore(t *testing.T, pki *testpki.PKI) *x509.Store {
	t.Helper()
	b, err := x509.NewStoreBuilder()
	require.NoError(t, err)
	s, err := b.AddCert(loadCert(t, pki.CACert)).Build()
	require.NoError(t, err)
	t.Cleanup(s.Free)
	return s
}

// serverBuilder returns a server context builder carrying the test server
// certificate.
func serverBuilder(t *testing.T, pki *testpki.PKI) *ssl.ContextBuilder {
	t.Helper()
	b, err := ssl.NewContextBuilder(ssl.TLSServerMethod())
	require.NoError(t, err)
	return b.SetCertificate(loadCert(t, pki.ServerCert)).
		SetPrivateKey(loadKey(t, pki.ServerKey)).
		CheckPrivateKey()
}

// clientBuilder returns a client context builder that trusts the test CA
// and requires a valid server certificate.
func clientBuilder(t *testing.T, pki *testpki.PKI) *ssl.ContextBuilder {
	t.Helper()
	b, err := ssl.NewContextBuilder(ssl.TLSClientMethod())
	require.NoError(t, err)
	return b.SetCertStore(trustStore(t, pki)).SetVerify(ssl.VerifyPeer)
}

func build(t *testing.T, b *ssl.ContextBuilder) *ssl.Context {
	t.Helper()
	ctx, err := b.Build()
	require.NoError(t, err)
	t.Cleanup(ctx.Free)
	return ctx
}

func sockets(t *testing.T) (server, client net.Conn) {
	t.Helper()
	server, client, err := pair.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = server.Close()
		_ = client.Close()
	})
	return server, client
}

type result struct {
	stream *ssl.Stream
	err    error
}

// connect handshakes a server and a client over a socket pair. setup, when
// given, configures the client SSL before the handshake. A side that fails
// closes its socket so the other side cannot block forever.
func connect(t *testing.T, serverCtx, clientCtx *ssl.Context, setup func(*ssl.SSL)) (srv, cli result) {
	t.Helper()
	serverSock, clientSock := sockets(t)

	done := make(chan result, 1)
	go func() {
		s, err := ssl.New(serverCtx)
		if err != nil {
			_ = serverSock.Close()
			done <- result{err: err}
			return
		}
		st, err := s.Accept(serverSock)
		if err != nil {
			_ = serverSock.Close()
		}
		done <- result{stream: st, err: err}
	}()

	c, err := ssl.New(clientCtx)
	require.NoError(t, err)
	if setup != nil {
		setup(c)
	}
	st, err := c.Connect(clientSock)
	if err != nil {
		_ = clientSock.Close()
	}
	cli = result{stream: st, err: err}
	srv = <-done

	for _, r := range []result{srv, cli} {
		if r.stream != nil {
			t.Cleanup(func() { _ = r.stream.Close() })
		}
	}
	return srv, cli
}

// mustConnect is connect for tests that expect the handshake to succeed.
func mustConnect(t *testing.T, serverCtx, clientCtx *ssl.Context, setup func(*ssl.SSL)) (server, client *ssl.Stream) {
	t.Helper()
	srv, cli := connect(t, serverCtx, clientCtx, setup)
	require.NoError(t, srv.err)
	require.NoError(t, cli.err)
	return srv.stream, cli.stream
}

// nbPipe is one end of an in-memory transport whose reads report "no data
// yet" instead of blocking.
type nbPipe struct {
	in, out *bytes.Buffer
}

func (p nbPipe) Read(b []byte) (int, error) {
	if p.in.Len() == 0 {
		return 0, nil
	}
	return p.in.Read(b)
}

func (p nbPipe) Write(b []byte) (int, error) { return p.out.Write(b) }
