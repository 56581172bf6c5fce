// Package transport defines the byte stream connections requests are sent over.
package transport

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrConnClosed         = errors.New("connection is closed")
	ErrConnListenerClosed = errors.New("conn listener is closed")
	ErrDeadLineExceeded   = errors.New("deadline exceeded")
	ErrConnRefused        = errors.New("connection refused")
	ErrNetUnreachable     = errors.New("network is unreachable")
	ErrAddrAlreadyInUse   = errors.New("address already in use")
)

// Addr has the method set of net.Addr.
type Addr interface {
	Network() string
	String() string
}

type Conn interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error

	LocalAddr() Addr
	RemoteAddr() Addr

	// Zero value means no deadline.
	SetReadDeadLine(t time.Time)
	SetWriteDeadLine(t time.Time)
}

// BufferedConn is a connection whose writes complete without a reader, up to the buffer size.
type BufferedConn interface {
	Conn

	ReadBufSize() uint
	WriteBufSize() uint
}

type ConnListener interface {
	Accept(ctx context.Context) (Conn, error)
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, addr Addr) (Conn, error)
}

// DialerFunc adapts a function to a [Dialer].
type DialerFunc func(ctx context.Context, addr Addr) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context, addr Addr) (Conn, error) { return f(ctx, addr) }
