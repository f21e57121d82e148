//go:build cgo && !windows

package ssl

import (
	"net"
	"sync"
	"time"
)

// Conn is a Stream over a net.Conn that itself satisfies net.Conn.
// Deadlines set on the Conn apply to the underlying socket; an expired
// deadline surfaces as the socket's timeout error.
//
// A Conn is not full duplex. A Read blocked on the socket holds the stream,
// so a concurrent Write waits until data arrives or the read deadline
// passes.
type Conn struct {
	stream    *Stream
	conn      net.Conn
	closeOnce sync.Once
	closeErr  error
}

var _ net.Conn = (*Conn)(nil)

// NewConn pairs a stream with the net.Conn it runs over.
func NewConn(stream *Stream, conn net.Conn) *Conn {
	return &Conn{stream: stream, conn: conn}
}

// Client handshakes as a client over conn with a plain SSL from ctx. Use a
// Connector for hostname verification.
func Client(ctx *Context, conn net.Conn) (*Conn, error) {
	s, err := New(ctx)
	if err != nil {
		return nil, err
	}
	stream, err := s.Connect(conn)
	if err != nil {
		return nil, err
	}
	return NewConn(stream, conn), nil
}

// Server handshakes as a server over conn.
func Server(ctx *Context, conn net.Conn) (*Conn, error) {
	s, err := New(ctx)
	if err != nil {
		return nil, err
	}
	stream, err := s.Accept(conn)
	if err != nil {
		return nil, err
	}
	return NewConn(stream, conn), nil
}

// Stream returns the TLS stream.
func (c *Conn) Stream() *Stream { return c.stream }

// SSL returns a view of the connection state.
func (c *Conn) SSL() *SSL { return c.stream.SSL() }

func (c *Conn) Read(p []byte) (int, error)  { return c.stream.Read(p) }
func (c *Conn) Write(p []byte) (int, error) { return c.stream.Write(p) }

// Close interrupts a blocked Read, sends close_notify without waiting for
// the peer's, then closes the socket and releases the connection.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		_ = c.conn.SetReadDeadline(time.Now())
		_, _ = c.stream.Shutdown()
		c.closeErr = c.conn.Close()
		_ = c.stream.Close()
	})
	return c.closeErr
}

func (c *Conn) LocalAddr() net.Addr                { return c.conn.LocalAddr() }
func (c *Conn) RemoteAddr() net.Addr               { return c.conn.RemoteAddr() }
func (c *Conn) SetDeadline(t time.Time) error      { return c.conn.SetDeadline(t) }
func (c *Conn) SetReadDeadline(t time.Time) error  { return c.conn.SetReadDeadline(t) }
func (c *Conn) SetWriteDeadline(t time.Time) error { return c.conn.SetWriteDeadline(t) }
