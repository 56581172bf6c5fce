package transport

import (
	"net"
	"strconv"

	"github.com/pkg/errors"
)

const TCP = "tcp"

// HostPort is a TCP address given by host name or IP literal.
type HostPort struct {
	Host string
	Port uint16
}

var _ Addr = HostPort{}

func (a HostPort) Network() string { return TCP }

func (a HostPort) String() string {
	return net.JoinHostPort(a.Host, strconv.FormatUint(uint64(a.Port), 10))
}

func ParseHostPort(s string) (HostPort, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return HostPort{}, errors.Wrap(err, "splitting host and port")
	}

	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return HostPort{}, errors.Wrapf(err, "invalid port %q", portStr)
	}

	return HostPort{Host: host, Port: uint16(port)}, nil
}
