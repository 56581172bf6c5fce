package transport

import (
	"context"
	"net"

	"github.com/pkg/errors"
	"golang.org/x/net/proxy"
)

// SOCKS5Dialer dials through a SOCKS5 proxy.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc1928
type SOCKS5Dialer struct {
	// Address of the proxy, "host:port".
	Address  string
	User     string
	Password string
	// Forward dials the proxy itself. A zero NetDialer is used when nil.
	Forward *NetDialer
}

var _ Dialer = (*SOCKS5Dialer)(nil)

func (d *SOCKS5Dialer) Dial(ctx context.Context, addr Addr) (Conn, error) {
	var auth *proxy.Auth
	if d.User != "" {
		auth = &proxy.Auth{User: d.User, Password: d.Password}
	}

	forward := d.Forward
	if forward == nil {
		forward = &NetDialer{}
	}

	pd, err := proxy.SOCKS5(TCP, d.Address, auth, forwardDialer{forward})
	if err != nil {
		return nil, errors.Wrap(err, "creating socks5 dialer")
	}

	cd, ok := pd.(proxy.ContextDialer)
	if !ok {
		return nil, errors.New("socks5 dialer does not support context")
	}

	nc, err := cd.DialContext(ctx, TCP, addr.String())
	if err != nil {
		return nil, errors.Wrap(ErrConnRefused, err.Error())
	}
	return WrapNetConn(nc), nil
}

type forwardDialer struct{ d *NetDialer }

var _ proxy.ContextDialer = forwardDialer{}

func (f forwardDialer) Dial(network, address string) (net.Conn, error) {
	return f.d.DialNet(context.Background(), address)
}

func (f forwardDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return f.d.DialNet(ctx, address)
}
