package client

import (
	"log/slog"

	"http-client/application/http/actor/client/adapter"
	"http-client/application/http/cookie"
	"http-client/transport"

	"github.com/benbjohnson/clock"
)

type Option func(c *Client)

// WithAdapter sets the adapter instead of the one named by [Config.Adapter].
func WithAdapter(a adapter.Adapter) Option {
	return func(c *Client) { c.adapter = a }
}

// WithDialer sets how socket and proxy adapters dial.
func WithDialer(d transport.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithClock(clk clock.Clock) Option {
	return func(c *Client) { c.clock = clk }
}

// WithJar shares a cookie jar between clients.
func WithJar(jar *cookie.Jar) Option {
	return func(c *Client) { c.jar = jar }
}
