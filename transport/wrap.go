package transport

import (
	"io"
	"time"
)

// WrappedConn is a connection whose reads and writes go through other streams,
// such as a reader still holding bytes buffered from the connection.
type WrappedConn struct {
	conn Conn
	r    io.Reader
	w    io.Writer
}

var _ Conn = (*WrappedConn)(nil)

// WrapConn wraps conn. A nil r or w means conn itself.
func WrapConn(conn Conn, r io.Reader, w io.Writer) *WrappedConn {
	if r == nil {
		r = conn
	}
	if w == nil {
		w = conn
	}
	return &WrappedConn{conn: conn, r: r, w: w}
}

func (c *WrappedConn) Close() error { return c.conn.Close() }

func (c *WrappedConn) LocalAddr() Addr  { return c.conn.LocalAddr() }
func (c *WrappedConn) RemoteAddr() Addr { return c.conn.RemoteAddr() }

func (c *WrappedConn) Read(p []byte) (n int, err error)  { return c.r.Read(p) }
func (c *WrappedConn) Write(p []byte) (n int, err error) { return c.w.Write(p) }

func (c *WrappedConn) SetReadDeadLine(t time.Time)  { c.conn.SetReadDeadLine(t) }
func (c *WrappedConn) SetWriteDeadLine(t time.Time) { c.conn.SetWriteDeadLine(t) }

// Unwrap returns the wrapped connection.
func (c *WrappedConn) Unwrap() Conn { return c.conn }
