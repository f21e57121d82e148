//go:build cgo && !windows

package ssl

import (
	"context"
	"io"
	"net"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl"
)

const (
	// defaultCipherList keeps OpenSSL's defaults minus everything without
	// authentication or with a known-broken primitive.
	defaultCipherList = "DEFAULT:!aNULL:!eNULL:!MD5:!3DES:!DES:!RC4:!IDEA:!SEED:!aDSS:!SRP:!PSK"

	mozillaIntermediateCiphers = "ECDHE-ECDSA-AES128-GCM-SHA256:ECDHE-RSA-AES128-GCM-SHA256:" +
		"ECDHE-ECDSA-AES256-GCM-SHA384:ECDHE-RSA-AES256-GCM-SHA384:" +
		"ECDHE-ECDSA-CHACHA20-POLY1305:ECDHE-RSA-CHACHA20-POLY1305:" +
		"DHE-RSA-AES128-GCM-SHA256:DHE-RSA-AES256-GCM-SHA384"
	mozillaCiphersuites = "TLS_AES_128_GCM_SHA256:TLS_AES_256_GCM_SHA384:TLS_CHACHA20_POLY1305_SHA256"

	defaultMode = ModeAutoRetry | ModeAcceptMovingWriteBuffer | ModeEnablePartialWrite
)

// ConnectorBuilder is a ContextBuilder preloaded with client defaults:
// compression and SSLv3 off, a conservative cipher list, the system trust
// store and peer verification.
type ConnectorBuilder struct {
	*ContextBuilder
}

func NewConnectorBuilder(m Method) (*ConnectorBuilder, error) {
	b, err := NewContextBuilder(m)
	if err != nil {
		return nil, err
	}
	b.SetOptions(OpNoCompression | OpNoSSLv3).
		SetMode(defaultMode).
		SetCipherList(defaultCipherList).
		SetDefaultVerifyPaths().
		SetVerify(VerifyPeer)
	return &ConnectorBuilder{ContextBuilder: b}, nil
}

func (b *ConnectorBuilder) Build() (*Connector, error) {
	ctx, err := b.ContextBuilder.Build()
	if err != nil {
		return nil, err
	}
	return &Connector{ctx: ctx}, nil
}

// Connector opens client connections that verify the server's name.
type Connector struct {
	ctx *Context
}

// Context returns the connector's context. It stays owned by the connector.
func (c *Connector) Context() *Context { return c.ctx }

// Configure returns a per-connection configuration that can be adjusted
// before connecting.
func (c *Connector) Configure() (*ConnectConfiguration, error) {
	s, err := New(c.ctx)
	if err != nil {
		return nil, err
	}
	return &ConnectConfiguration{ssl: s, SNI: true, VerifyHostname: true}, nil
}

// Connect handshakes over rw, sending domain as SNI and requiring the
// certificate to match it.
func (c *Connector) Connect(domain string, rw io.ReadWriter) (*Stream, error) {
	cfg, err := c.Configure()
	if err != nil {
		return nil, err
	}
	return cfg.Connect(domain, rw)
}

// Dial connects to addr and handshakes, using the host part of addr as the
// domain.
func (c *Connector) Dial(ctx context.Context, network, addr string) (*Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	var d net.Dialer
	raw, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	stream, err := c.Connect(host, raw)
	if err != nil {
		_ = raw.Close()
		return nil, err
	}
	return NewConn(stream, raw), nil
}

func (c *Connector) Free() { c.ctx.Free() }

// ConnectConfiguration is one pending client connection.
type ConnectConfiguration struct {
	ssl *SSL
	// SNI sends the domain in the server_name extension. It is never sent
	// for IP addresses.
	SNI bool
	// VerifyHostname requires the certificate to match the domain.
	VerifyHostname bool
}

// SSL gives access to the connection for further per-connection settings.
func (c *ConnectConfiguration) SSL() *SSL { return c.ssl }

func (c *ConnectConfiguration) Connect(domain string, rw io.ReadWriter) (*Stream, error) {
	ip := net.ParseIP(domain)
	if c.SNI && ip == nil {
		if err := c.ssl.SetHostname(domain); err != nil {
			c.ssl.Free()
			return nil, err
		}
	}
	if c.VerifyHostname {
		var err error
		if ip != nil {
			err = c.ssl.SetVerifyIP(domain)
		} else {
			err = c.ssl.SetVerifyHostname(domain)
		}
		if err != nil {
			c.ssl.Free()
			return nil, err
		}
	}
	return c.ssl.Connect(rw)
}

// Profile selects the server configuration applied by NewAcceptorBuilder.
type Profile int

const (
	// MozillaIntermediate accepts TLS 1.2 and 1.3 with forward-secret AEAD
	// suites.
	MozillaIntermediate Profile = iota
	// MozillaModern accepts TLS 1.3 only.
	MozillaModern
)

// AcceptorBuilder is a ContextBuilder preloaded with a server profile. The
// certificate and key still have to be set.
type AcceptorBuilder struct {
	*ContextBuilder
}

func NewAcceptorBuilder(m Method, p Profile) (*AcceptorBuilder, error) {
	b, err := NewContextBuilder(m)
	if err != nil {
		return nil, err
	}
	b.SetOptions(OpNoCompression | OpSingleECDHUse | OpNoSSLv3).
		SetMode(defaultMode)
	switch p {
	case MozillaModern:
		b.SetMinProtoVersion(VersionTLS1_3)
	default:
		b.SetMinProtoVersion(VersionTLS1_2).
			SetCipherList(mozillaIntermediateCiphers)
	}
	if openssl.Supports(openssl.FeatureTLS13) {
		b.SetCiphersuites(mozillaCiphersuites)
	}
	return &AcceptorBuilder{ContextBuilder: b}, nil
}

func (b *AcceptorBuilder) Build() (*Acceptor, error) {
	ctx, err := b.ContextBuilder.Build()
	if err != nil {
		return nil, err
	}
	return &Acceptor{ctx: ctx}, nil
}

// Acceptor accepts server connections.
type Acceptor struct {
	ctx *Context
}

func (a *Acceptor) Context() *Context { return a.ctx }

func (a *Acceptor) Accept(rw io.ReadWriter) (*Stream, error) {
	s, err := New(a.ctx)
	if err != nil {
		return nil, err
	}
	return s.Accept(rw)
}

// AcceptConn handshakes over conn and wraps the result as a net.Conn.
func (a *Acceptor) AcceptConn(conn net.Conn) (*Conn, error) {
	stream, err := a.Accept(conn)
	if err != nil {
		return nil, err
	}
	return NewConn(stream, conn), nil
}

func (a *Acceptor) Free() { a.ctx.Free() }
