//go:build cgo && !windows

package ssl_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/testpki"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/ssl"
	"github.com/hsiuhsiu/openssl-go/pkg/openssl/x509"
)

func TestHandshakeAndRoundTrip(t *testing.T) {
	pki := newPKI(t)
	server, client := mustConnect(t, build(t, serverBuilder(t, pki)), build(t, clientBuilder(t, pki)), nil)

	_, err := client.Write([]byte("ping"))
	require.NoError(t, err)
	buf := make([]byte, 4)
	_, err = io.ReadFull(server, buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf))

	_, err = server.Write([]byte("pong"))
	require.NoError(t, err)
	_, err = io.ReadFull(client, buf)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(buf))

	assert.True(t, server.SSL().IsServer())
	assert.False(t, client.SSL().IsServer())
	assert.True(t, client.SSL().VerifyResult().OK())
	assert.NotEmpty(t, client.SSL().Version())

	cipher, ok := client.SSL().CurrentCipher()
	require.True(t, ok)
	assert.NotEmpty(t, cipher.Name())

	peer, err := client.SSL().PeerCertificate()
	require.NoError(t, err)
	require.NotNil(t, peer)
	defer peer.Free()
	subject, err := peer.Subject()
	require.NoError(t, err)
	assert.Equal(t, "testpki server", subject.CommonName())

	noPeer, err := server.SSL().PeerCertificate()
	require.NoError(t, err)
	assert.Nil(t, noPeer)
}

func TestShutdownSequence(t *testing.T) {
	pki := newPKI(t)
	server, client := mustConnect(t, build(t, serverBuilder(t, pki)), build(t, clientBuilder(t, pki)), nil)

	type outcome struct {
		n        int
		readErr  error
		shutdown ssl.ShutdownResult
		err      error
	}
	done := make(chan outcome, 1)
	go func() {
		var o outcome
		if _, o.err = server.Write([]byte("hello")); o.err != nil {
			done <- o
			return
		}
		o.n, o.readErr = server.Read(make([]byte, 8))
		o.shutdown, o.err = server.Shutdown()
		done <- o
	}()

	buf := make([]byte, 5)
	_, err := io.ReadFull(client, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf))

	res, err := client.Shutdown()
	require.NoError(t, err)
	assert.Equal(t, ssl.ShutdownSent, res)

	o := <-done
	require.NoError(t, o.err)
	assert.Equal(t, 0, o.n)
	assert.ErrorIs(t, o.readErr, io.EOF)
	assert.Equal(t, ssl.ShutdownReceived, o.shutdown)

	res, err = client.Shutdown()
	require.NoError(t, err)
	assert.Equal(t, ssl.ShutdownReceived, res)

	_, err = client.SSLRead(make([]byte, 1))
	var e *ssl.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, ssl.ErrorZeroReturn, e.Code)
	assert.ErrorIs(t, err, openssl.ErrPeerClosed)
	assert.Empty(t, e.Stack())
	assert.NoError(t, e.IOError())

	n, err := client.Read(make([]byte, 1))
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestVerifyCallbackRejects(t *testing.T) {
	pki := newPKI(t)
	var calls int
	clientCtx := build(t, clientBuilder(t, pki).SetVerifyCallback(ssl.VerifyPeer, func(preverify bool, _ *x509.StoreContext) bool {
		calls++
		return false
	}))

	srv, cli := connect(t, build(t, serverBuilder(t, pki)), clientCtx, nil)
	require.Error(t, cli.err)
	require.Error(t, srv.err)
	assert.Positive(t, calls)

	var he *ssl.HandshakeError
	require.ErrorAs(t, cli.err, &he)
	assert.Nil(t, he.Mid)
	assert.NotErrorIs(t, cli.err, openssl.ErrWouldBlock)
	assert.Equal(t, ssl.ErrorSSL, he.Err.Code)
	assert.NoError(t, he.Err.IOError())
	assert.Contains(t, he.Err.Stack().String(), "certificate verify failed")
	assert.ErrorIs(t, cli.err, openssl.ErrOperationFailed)
	assert.NotEmpty(t, openssl.StackOf(cli.err))
}

func TestUntrustedServer(t *testing.T) {
	pki := newPKI(t)
	b, err := ssl.NewContextBuilder(ssl.TLSClientMethod())
	require.NoError(t, err)
	clientCtx := build(t, b.SetVerify(ssl.VerifyPeer))

	_, cli := connect(t, build(t, serverBuilder(t, pki)), clientCtx, nil)
	var he *ssl.HandshakeError
	require.ErrorAs(t, cli.err, &he)
	assert.Equal(t, x509.VerifyUnableToGetIssuerLocal, he.VerifyResult)
	assert.Contains(t, he.Error(), "verify")
}

func TestVerifyNoneAcceptsUntrusted(t *testing.T) {
	pki := newPKI(t)
	b, err := ssl.NewContextBuilder(ssl.TLSClientMethod())
	require.NoError(t, err)
	_, client := mustConnect(t, build(t, serverBuilder(t, pki)), build(t, b.SetVerify(ssl.VerifyNone)), nil)
	assert.Equal(t, x509.VerifyUnableToGetIssuerLocal, client.SSL().VerifyResult())
}

func TestClientCertificate(t *testing.T) {
	pki := newPKI(t)
	serverCtx := build(t, serverBuilder(t, pki).
		SetCertStore(trustStore(t, pki)).
		SetVerify(ssl.VerifyPeer|ssl.VerifyFailIfNoPeerCert))

	_, cli := connect(t, serverCtx, build(t, clientBuilder(t, pki)), nil)
	if cli.err == nil {
		// TLS 1.3 clients finish before the server rejects them; the
		// failure shows up on the first read.
		_, err := cli.stream.Read(make([]byte, 1))
		require.Error(t, err)
	}

	withCert := build(t, clientBuilder(t, pki).
		SetCertificate(loadCert(t, pki.ClientCert)).
		SetPrivateKey(loadKey(t, pki.ClientKey)))
	server, _ := mustConnect(t, serverCtx, withCert, nil)
	peer, err := server.SSL().PeerCertificate()
	require.NoError(t, err)
	require.NotNil(t, peer)
	defer peer.Free()
	subject, err := peer.Subject()
	require.NoError(t, err)
	assert.Equal(t, "testpki client", subject.CommonName())
}

func TestHostnameVerification(t *testing.T) {
	pki := newPKI(t)
	serverCtx := build(t, serverBuilder(t, pki))
	clientCtx := build(t, clientBuilder(t, pki))

	mustConnect(t, serverCtx, clientCtx, func(s *ssl.SSL) {
		require.NoError(t, s.SetVerifyHostname(testpki.ServerName))
	})

	_, cli := connect(t, serverCtx, clientCtx, func(s *ssl.SSL) {
		require.NoError(t, s.SetVerifyHostname("example.com"))
	})
	var he *ssl.HandshakeError
	require.ErrorAs(t, cli.err, &he)
	assert.Equal(t, x509.VerifyHostnameMismatch, he.VerifyResult)
}

func TestNonBlockingHandshake(t *testing.T) {
	pki := newPKI(t)
	serverCtx := build(t, serverBuilder(t, pki))
	clientCtx := build(t, clientBuilder(t, pki))

	var toServer, toClient bytes.Buffer
	cs, err := ssl.New(clientCtx)
	require.NoError(t, err)
	ss, err := ssl.New(serverCtx)
	require.NoError(t, err)

	client, err := cs.Connect(nbPipe{in: &toClient, out: &toServer})
	require.Nil(t, client)
	require.ErrorIs(t, err, openssl.ErrWouldBlock)
	var he *ssl.HandshakeError
	require.ErrorAs(t, err, &he)
	require.NotNil(t, he.Mid)
	assert.Equal(t, ssl.ErrorWantRead, he.Mid.Error().Code)
	assert.ErrorIs(t, he.Mid.Error().IOError(), openssl.ErrWouldBlock)
	clientMid := he.Mid

	server, err := ss.Accept(nbPipe{in: &toServer, out: &toClient})
	require.Nil(t, server)
	require.ErrorAs(t, err, &he)
	require.NotNil(t, he.Mid)
	serverMid := he.Mid
	assert.True(t, serverMid.SSL().IsServer())

	for i := 0; i < 10 && (client == nil || server == nil); i++ {
		if server == nil {
			if server, err = serverMid.Handshake(); err != nil {
				require.ErrorAs(t, err, &he)
				require.NotNil(t, he.Mid, "server: %v", err)
				serverMid = he.Mid
			}
		}
		if client == nil {
			if client, err = clientMid.Handshake(); err != nil {
				require.ErrorAs(t, err, &he)
				require.NotNil(t, he.Mid, "client: %v", err)
				clientMid = he.Mid
			}
		}
	}
	require.NotNil(t, client)
	require.NotNil(t, server)
	defer client.Close()
	defer server.Close()

	n, err := client.SSLWrite([]byte("nb"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	buf := make([]byte, 2)
	n, err = server.SSLRead(buf)
	require.NoError(t, err)
	assert.Equal(t, "nb", string(buf[:n]))

	_, err = server.SSLRead(buf)
	var e *ssl.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, ssl.ErrorWantRead, e.Code)
	assert.ErrorIs(t, err, openssl.ErrWouldBlock)
}

func TestZeroLengthBuffers(t *testing.T) {
	pki := newPKI(t)
	server, client := mustConnect(t, build(t, serverBuilder(t, pki)), build(t, clientBuilder(t, pki)), nil)

	n, err := client.SSLWrite(nil)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
	n, err = server.SSLRead([]byte{})
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
	n, err = client.Write(nil)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
}

type failingStream struct{ err error }

func (f failingStream) Read([]byte) (int, error)  { return 0, f.err }
func (f failingStream) Write([]byte) (int, error) { return 0, f.err }

func TestHostStreamError(t *testing.T) {
	pki := newPKI(t)
	boom := errors.New("link down")
	s, err := ssl.New(build(t, clientBuilder(t, pki)))
	require.NoError(t, err)

	_, err = s.Connect(failingStream{err: boom})
	var he *ssl.HandshakeError
	require.ErrorAs(t, err, &he)
	assert.Nil(t, he.Mid)
	assert.Equal(t, ssl.ErrorSyscall, he.Err.Code)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, boom, he.Err.IOError())
	assert.ErrorIs(t, err, openssl.ErrHostIO)

	var oe *openssl.Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, openssl.KindHostIO, oe.Kind)
	assert.ErrorIs(t, oe, boom)
}

func TestClosedStream(t *testing.T) {
	pki := newPKI(t)
	server, client := mustConnect(t, build(t, serverBuilder(t, pki)), build(t, clientBuilder(t, pki)), nil)
	view := client.SSL()
	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	_, err := client.Write([]byte("x"))
	assert.ErrorIs(t, err, openssl.ErrClosed)
	_, err = client.Shutdown()
	assert.ErrorIs(t, err, openssl.ErrClosed)
	assert.Empty(t, view.Version())
	assert.Equal(t, x509.VerifyApplication, view.VerifyResult())
	_ = server
}

func TestFreeLoop(t *testing.T) {
	pki := newPKI(t)
	for i := 0; i < 200; i++ {
		b := serverBuilder(t, pki)
		ctx, err := b.Build()
		require.NoError(t, err)
		s, err := ssl.New(ctx)
		require.NoError(t, err)
		clone, err := ctx.Clone()
		require.NoError(t, err)
		ctx.Free()
		s.Free()
		s.Free()
		clone.Free()
	}
	b, err := ssl.NewContextBuilder(ssl.TLSMethod())
	require.NoError(t, err)
	ctx, err := b.Build()
	require.NoError(t, err)
	ctx.Free()
	_, err = ssl.New(ctx)
	assert.ErrorIs(t, err, openssl.ErrClosed)
}

func TestBuilderStickyError(t *testing.T) {
	b, err := ssl.NewContextBuilder(ssl.TLSMethod())
	require.NoError(t, err)
	b.SetCipherList("NOT-A-CIPHER").SetVerify(ssl.VerifyPeer)
	require.Error(t, b.Err())
	_, err = b.Build()
	assert.ErrorIs(t, err, openssl.ErrOperationFailed)
	assert.NotEmpty(t, openssl.StackOf(err))
}

func TestContextAccessors(t *testing.T) {
	pki := newPKI(t)
	ctx := build(t, serverBuilder(t, pki).
		SetOptions(ssl.OpNoTicket).
		SetMinProtoVersion(ssl.VersionTLS1_2).
		SetSessionCacheMode(ssl.SessionCacheServer))

	assert.NotZero(t, ctx.Options()&ssl.OpNoTicket)
	assert.Equal(t, ssl.VersionTLS1_2, ctx.MinProtoVersion())
	assert.Equal(t, ssl.SessionCacheServer, ctx.SessionCacheMode())

	cert, err := ctx.Certificate()
	require.NoError(t, err)
	require.NotNil(t, cert)
	defer cert.Free()
	key, err := ctx.PrivateKey()
	require.NoError(t, err)
	require.NotNil(t, key)
	defer key.Free()
	pub, err := cert.PublicKey()
	require.NoError(t, err)
	defer pub.Free()
	assert.True(t, key.PublicEqual(pub))
}

func TestConnectorAndAcceptor(t *testing.T) {
	pki := newPKI(t)
	ab, err := ssl.NewAcceptorBuilder(ssl.TLSServerMethod(), ssl.MozillaIntermediate)
	require.NoError(t, err)
	ab.SetCertificate(loadCert(t, pki.ServerCert)).SetPrivateKey(loadKey(t, pki.ServerKey))
	acceptor, err := ab.Build()
	require.NoError(t, err)
	defer acceptor.Free()
	assert.Equal(t, ssl.VersionTLS1_2, acceptor.Context().MinProtoVersion())

	cb, err := ssl.NewConnectorBuilder(ssl.TLSClientMethod())
	require.NoError(t, err)
	cb.SetCertStore(trustStore(t, pki))
	connector, err := cb.Build()
	require.NoError(t, err)
	defer connector.Free()

	for _, tc := range []struct {
		domain string
		ok     bool
	}{
		{testpki.ServerName, true},
		{"127.0.0.1", true},
		{"example.com", false},
	} {
		t.Run(tc.domain, func(t *testing.T) {
			serverSock, clientSock := sockets(t)
			done := make(chan error, 1)
			go func() {
				st, err := acceptor.Accept(serverSock)
				if err != nil {
					_ = serverSock.Close()
					done <- err
					return
				}
				defer st.Close()
				_, err = st.Write([]byte("ok"))
				done <- err
			}()

			st, err := connector.Connect(tc.domain, clientSock)
			if !tc.ok {
				var he *ssl.HandshakeError
				require.ErrorAs(t, err, &he)
				assert.Equal(t, x509.VerifyHostnameMismatch, he.VerifyResult)
				_ = clientSock.Close()
				<-done
				return
			}
			require.NoError(t, err)
			defer st.Close()
			buf := make([]byte, 2)
			_, err = io.ReadFull(st, buf)
			require.NoError(t, err)
			require.NoError(t, <-done)
			if net.ParseIP(tc.domain) == nil {
				assert.Equal(t, tc.domain, st.SSL().Servername())
			}
		})
	}
}

func TestConnectorDial(t *testing.T) {
	pki := newPKI(t)
	ab, err := ssl.NewAcceptorBuilder(ssl.TLSServerMethod(), ssl.MozillaModern)
	require.NoError(t, err)
	ab.SetCertificate(loadCert(t, pki.ServerCert)).SetPrivateKey(loadKey(t, pki.ServerKey))
	acceptor, err := ab.Build()
	require.NoError(t, err)
	defer acceptor.Free()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	done := make(chan error, 1)
	go func() {
		raw, err := ln.Accept()
		if err != nil {
			done <- err
			return
		}
		conn, err := acceptor.AcceptConn(raw)
		if err != nil {
			_ = raw.Close()
			done <- err
			return
		}
		defer conn.Close()
		_, err = io.Copy(conn, conn)
		done <- err
	}()

	cb, err := ssl.NewConnectorBuilder(ssl.TLSClientMethod())
	require.NoError(t, err)
	cb.SetCertStore(trustStore(t, pki))
	connector, err := cb.Build()
	require.NoError(t, err)
	defer connector.Free()

	conn, err := connector.Dial(context.Background(), "tcp", ln.Addr().String())
	require.NoError(t, err)
	assert.Equal(t, ssl.VersionTLS1_3, conn.SSL().ProtocolVersion())
	assert.Equal(t, ln.Addr().String(), conn.RemoteAddr().String())

	_, err = conn.Write([]byte("echo"))
	require.NoError(t, err)
	buf := make([]byte, 4)
	_, err = io.ReadFull(conn, buf)
	require.NoError(t, err)
	assert.Equal(t, "echo", string(buf))

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	assert.NoError(t, <-done)
}
