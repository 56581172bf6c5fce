package adapter

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"

	"http-client/application/http"
	"http-client/application/http/header"
	"http-client/transport"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

// Proxy is a [Socket] that reaches origins through a forward proxy.
//
// Through an HTTP proxy, plain requests are sent in absolute form and
// secure requests are tunneled with CONNECT. Through a SOCKS5 proxy the
// connection leads to the origin and requests are sent as usual.
// Without a proxy host it behaves as a [Socket].
type Proxy struct {
	*Socket

	negotiated bool
	origin     target
}

var (
	_ StreamAdapter = (*Proxy)(nil)
)

func NewProxy(d transport.Dialer, logger *slog.Logger, clk clock.Clock) *Proxy {
	p := &Proxy{Socket: NewSocket(d, logger, clk)}
	p.Socket.onClose = func() { p.negotiated = false }
	return p
}

func (p *Proxy) SetOptions(opts Options) error {
	if opts.Proxy.Host != "" && opts.Proxy.Port == 0 {
		return errors.Wrap(http.ErrConfiguration, "proxy port is required")
	}
	if opts.Proxy.Auth != "" && !strings.EqualFold(opts.Proxy.Auth, header.AuthBasic) {
		return errors.Wrapf(http.ErrConfiguration, "unsupported proxy authentication: %q", opts.Proxy.Auth)
	}
	return p.Socket.SetOptions(opts)
}

func (p *Proxy) enabled() bool { return p.opts.Proxy.Host != "" }

func (p *Proxy) proxyTarget() target {
	return target{host: strings.ToLower(p.opts.Proxy.Host), port: p.opts.Proxy.Port}
}

// Connect connects to the proxy. host and port name the origin.
func (p *Proxy) Connect(ctx context.Context, host string, port uint16, secure bool) error {
	if !p.enabled() {
		return p.Socket.Connect(ctx, host, port, secure)
	}

	origin := target{host: strings.ToLower(host), port: port, secure: secure}
	if p.conn != nil && p.origin != origin {
		_ = p.Close()
	}
	p.origin = origin

	if p.opts.Proxy.isSOCKS5() {
		d := &transport.SOCKS5Dialer{
			Address:  p.proxyTarget().addr().String(),
			User:     p.opts.Proxy.User,
			Password: p.opts.Proxy.Pass,
		}
		if nd, ok := p.dialer.(*transport.NetDialer); ok {
			d.Forward = nd
		}
		return p.connect(ctx, origin, d)
	}

	return p.connect(ctx, p.proxyTarget(), p.dialer)
}

func (p *Proxy) Write(ctx context.Context, req WriteRequest) ([]byte, error) {
	if !p.enabled() || p.opts.Proxy.isSOCKS5() {
		return p.Socket.Write(ctx, req)
	}

	if p.conn == nil {
		return nil, errors.Wrap(http.ErrWrite, "trying to write but we are not connected")
	}
	if targetOf(req.URI) != p.origin {
		return nil, errors.Wrap(http.ErrWrite, "trying to write but we are connected to the wrong host")
	}

	fields := req.Headers
	if p.opts.Proxy.User != "" && !hasField(fields, "Proxy-Authorization") {
		auth, err := header.EncodeAuthorization(p.opts.Proxy.User, p.opts.Proxy.Pass, p.proxyAuth())
		if err != nil {
			return nil, err
		}
		fields = append(append([]http.Field(nil), fields...), http.NewField("Proxy-Authorization", auth))
	}

	if p.origin.secure {
		if !p.negotiated {
			if err := p.negotiate(ctx, fields); err != nil {
				return nil, err
			}
		}
		// The tunnel is opaque to the proxy.
		fields = withoutField(fields, "Proxy-Authorization")
		return p.writeRequest(ctx, req, req.URI.RequestTarget(), fields)
	}

	return p.writeRequest(ctx, req, absoluteForm(req), fields)
}

func (p *Proxy) proxyAuth() string {
	if p.opts.Proxy.Auth == "" {
		return header.AuthBasic
	}
	return p.opts.Proxy.Auth
}

// negotiate opens a tunnel to the origin and starts TLS over it.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-9.3.6
func (p *Proxy) negotiate(ctx context.Context, fields []http.Field) error {
	authority := p.origin.addr().String()

	connectFields := []http.Field{http.NewField("Host", authority)}
	if p.opts.UserAgent != "" {
		connectFields = append(connectFields, http.NewField("User-Agent", p.opts.UserAgent))
	}
	for _, f := range fields {
		if f.Is("Proxy-Authorization") {
			connectFields = append(connectFields, f)
		}
	}

	if _, err := p.writeRequest(ctx, WriteRequest{Method: "CONNECT", Version: http.Version11}, authority, connectFields); err != nil {
		return errors.Wrap(http.ErrConnection, err.Error())
	}

	head, err := http.NewHeadReader(p.br, http.DefaultDecodeOptions).Read()
	if err != nil {
		_ = p.Close()
		return errors.Wrapf(http.ErrConnection, "reading response to CONNECT: %s", err.Error())
	}
	if head.StatusCode != 200 {
		_ = p.Close()
		return errors.Wrapf(http.ErrConnection, "proxy refused to tunnel to %s: %d %s", authority, head.StatusCode, head.ReasonPhrase)
	}

	// Bytes the proxy sent after its head belong to the tunnel.
	raw := p.conn
	if n := p.br.Buffered(); n > 0 {
		buffered, _ := p.br.Peek(n)
		raw = transport.WrapConn(p.conn, io.MultiReader(bytes.NewReader(bytes.Clone(buffered)), p.conn), nil)
	}

	conn, err := p.startTLS(ctx, raw, p.origin.host)
	if err != nil {
		p.conn = nil
		_ = p.Close()
		return err
	}

	p.setConn(conn, p.connected)
	p.negotiated = true
	p.logger.Debug("tunnel established", slog.String("origin", authority))

	return nil
}

// absoluteForm is the request target sent to a proxy.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3.2.2
func absoluteForm(req WriteRequest) string {
	u := req.URI.Clone()
	u.Fragment = nil
	if u.Path == "" {
		u.Path = "/"
	}
	if u.Authority != nil {
		u.Authority.UserInfo = ""
	}
	return u.String()
}

func withoutField(fields []http.Field, name string) []http.Field {
	out := make([]http.Field, 0, len(fields))
	for _, f := range fields {
		if !f.Is(name) {
			out = append(out, f)
		}
	}
	return out
}
