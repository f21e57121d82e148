//go:build cgo && !windows

package ssl_test

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl/ssl"
)

// udpPeer is the server end of a UDP association: an unconnected socket
// that only talks to one client address.
type udpPeer struct {
	conn *net.UDPConn
	peer net.Addr
}

func (p udpPeer) Read(b []byte) (int, error) {
	n, _, err := p.conn.ReadFromUDP(b)
	return n, err
}

func (p udpPeer) Write(b []byte) (int, error) { return p.conn.WriteTo(b, p.peer) }

func TestDTLSHandshake(t *testing.T) {
	pki := newPKI(t)

	sb, err := ssl.NewContextBuilder(ssl.DTLSServerMethod())
	require.NoError(t, err)
	serverCtx := build(t, sb.SetCertificate(loadCert(t, pki.ServerCert)).
		SetPrivateKey(loadKey(t, pki.ServerKey)).
		CheckPrivateKey())
	cb, err := ssl.NewContextBuilder(ssl.DTLSClientMethod())
	require.NoError(t, err)
	clientCtx := build(t, cb.SetCertStore(trustStore(t, pki)).SetVerify(ssl.VerifyPeer))
	assert.True(t, ssl.DTLSClientMethod().DTLS())

	srvConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srvConn.Close() })
	cliConn, err := net.DialUDP("udp", nil, srvConn.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cliConn.Close() })
	deadline := time.Now().Add(10 * time.Second)
	require.NoError(t, srvConn.SetDeadline(deadline))
	require.NoError(t, cliConn.SetDeadline(deadline))

	done := make(chan result, 1)
	go func() {
		s, err := ssl.New(serverCtx)
		if err != nil {
			done <- result{err: err}
			return
		}
		if err := s.SetMTU(1200); err != nil {
			done <- result{err: err}
			return
		}
		st, err := s.Accept(udpPeer{conn: srvConn, peer: cliConn.LocalAddr()})
		done <- result{stream: st, err: err}
	}()

	c, err := ssl.New(clientCtx)
	require.NoError(t, err)
	require.NoError(t, c.SetMTU(1200))
	client, err := c.Connect(cliConn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	srv := <-done
	require.NoError(t, srv.err)
	server := srv.stream
	t.Cleanup(func() { _ = server.Close() })

	assert.Equal(t, "DTLSv1.2", client.SSL().Version())
	assert.True(t, client.SSL().VerifyResult().OK())

	_, err = client.Write([]byte("datagram"))
	require.NoError(t, err)
	buf := make([]byte, 64)
	n, err := server.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "datagram", string(buf[:n]))
}
