package transport

import (
	"context"
	"io"
	"net"
	"net/netip"
	"os"
	"time"

	"http-client/application/util/domain"

	"github.com/pkg/errors"
)

// NetDialer dials TCP connections of the operating system.
type NetDialer struct {
	// Timeout of a connection attempt. Zero means no timeout.
	Timeout time.Duration
	// KeepAlive is the TCP keep-alive period. Zero enables the system default.
	KeepAlive time.Duration
	// Lookuper resolves host names instead of the system resolver, when set.
	Lookuper domain.Lookuper
}

var _ Dialer = (*NetDialer)(nil)

func (d *NetDialer) Dial(ctx context.Context, addr Addr) (Conn, error) {
	nc, err := d.DialNet(ctx, addr.String())
	if err != nil {
		return nil, err
	}
	return WrapNetConn(nc), nil
}

// DialNet dials "host:port" and returns the raw net.Conn.
func (d *NetDialer) DialNet(ctx context.Context, address string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: d.Timeout, KeepAlive: d.KeepAlive}

	hp, err := ParseHostPort(address)
	if err != nil {
		return nil, err
	}

	if d.Lookuper == nil || domain.IsIP(hp.Host) {
		nc, err := dialer.DialContext(ctx, TCP, address)
		if err != nil {
			return nil, mapNetError(err)
		}
		return nc, nil
	}

	addrs, err := d.Lookuper.LookupIP(ctx, hp.Host)
	if err != nil {
		return nil, errors.Wrap(ErrNetUnreachable, err.Error())
	}

	var lastErr error = ErrNetUnreachable
	for _, ip := range addrs {
		target := netip.AddrPortFrom(ip, hp.Port).String()
		nc, err := dialer.DialContext(ctx, TCP, target)
		if err == nil {
			return nc, nil
		}
		lastErr = mapNetError(err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

type netConn struct {
	nc net.Conn
}

var _ Conn = (*netConn)(nil)

// WrapNetConn adapts a net.Conn. Errors are mapped to the ones of this package.
func WrapNetConn(nc net.Conn) Conn { return &netConn{nc: nc} }

func (c *netConn) Read(p []byte) (int, error) {
	n, err := c.nc.Read(p)
	return n, mapNetError(err)
}

func (c *netConn) Write(p []byte) (int, error) {
	n, err := c.nc.Write(p)
	return n, mapNetError(err)
}

func (c *netConn) Close() error     { return c.nc.Close() }
func (c *netConn) LocalAddr() Addr  { return c.nc.LocalAddr() }
func (c *netConn) RemoteAddr() Addr { return c.nc.RemoteAddr() }

func (c *netConn) SetReadDeadLine(t time.Time)  { _ = c.nc.SetReadDeadline(t) }
func (c *netConn) SetWriteDeadLine(t time.Time) { _ = c.nc.SetWriteDeadline(t) }

func mapNetError(err error) error {
	switch {
	case err == nil, err == io.EOF:
		return err
	case errors.Is(err, os.ErrDeadlineExceeded):
		return errors.Wrap(ErrDeadLineExceeded, err.Error())
	case errors.Is(err, net.ErrClosed):
		return errors.Wrap(ErrConnClosed, err.Error())
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return errors.Wrap(ErrConnRefused, err.Error())
	}
	return err
}

type connAdapter struct {
	c Conn
}

var _ net.Conn = (*connAdapter)(nil)

// AsNetConn exposes a [Conn] as net.Conn, for libraries that require one.
func AsNetConn(c Conn) net.Conn {
	if nc, ok := c.(*netConn); ok {
		return nc.nc
	}
	return &connAdapter{c: c}
}

func (a *connAdapter) Read(p []byte) (int, error)  { return a.c.Read(p) }
func (a *connAdapter) Write(p []byte) (int, error) { return a.c.Write(p) }
func (a *connAdapter) Close() error                { return a.c.Close() }
func (a *connAdapter) LocalAddr() net.Addr         { return a.c.LocalAddr() }
func (a *connAdapter) RemoteAddr() net.Addr        { return a.c.RemoteAddr() }

func (a *connAdapter) SetDeadline(t time.Time) error {
	a.c.SetReadDeadLine(t)
	a.c.SetWriteDeadLine(t)
	return nil
}

func (a *connAdapter) SetReadDeadline(t time.Time) error {
	a.c.SetReadDeadLine(t)
	return nil
}

func (a *connAdapter) SetWriteDeadline(t time.Time) error {
	a.c.SetWriteDeadLine(t)
	return nil
}
