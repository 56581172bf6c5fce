// Package adapter carries requests of the client over a connection and brings back raw responses.
package adapter

import (
	"context"
	"io"
	"strings"
	"time"

	"http-client/application/http"
	"http-client/application/util/uri"
	"http-client/transport"
)

// Adapter performs one request/response exchange per Write and Read.
// It is not safe for concurrent use.
type Adapter interface {
	SetOptions(opts Options) error
	Connect(ctx context.Context, host string, port uint16, secure bool) error
	// Write sends the request and returns it as written.
	// A streamed body is not part of the returned bytes.
	Write(ctx context.Context, req WriteRequest) ([]byte, error)
	// Read returns the raw response. With an output stream set, the body goes to the stream
	// and only the head is returned.
	Read(ctx context.Context) ([]byte, error)
	Close() error
}

// StreamAdapter can send streamed bodies and write response bodies to a stream.
type StreamAdapter interface {
	Adapter
	// SetOutputStream sets where response bodies go. nil turns streaming off.
	SetOutputStream(w io.Writer)
}

// CredentialInjector computes authentication itself, e.g. for challenge based schemes.
type CredentialInjector interface {
	Adapter
	SetCredentials(user, pass string, auth string)
}

type WriteRequest struct {
	Method  string
	URI     uri.URI
	Version http.Version
	Headers []http.Field

	Body []byte
	// BodyStream is sent instead of Body when set.
	BodyStream io.Reader
}

type Options struct {
	// Timeout limits each read and write. Zero means no limit.
	Timeout time.Duration
	// ConnectTimeout limits dialing. Zero means Timeout.
	ConnectTimeout time.Duration
	// KeepAlive reuses the connection while the target stays the same.
	KeepAlive bool
	UserAgent string

	TLS   transport.TLSOptions
	Proxy ProxyOptions

	// Extra holds options an adapter may understand beyond the ones above.
	Extra map[string]any
}

func (o Options) connectTimeout() time.Duration {
	if o.ConnectTimeout > 0 {
		return o.ConnectTimeout
	}
	return o.Timeout
}

const (
	ProxySchemeHTTP   = "http"
	ProxySchemeSOCKS5 = "socks5"
)

type ProxyOptions struct {
	// Scheme is "http" (the default) or "socks5".
	Scheme string
	Host   string
	Port   uint16
	User   string
	Pass   string
	// Auth is the Proxy-Authorization scheme. Only basic is supported.
	Auth string
}

func (o ProxyOptions) isSOCKS5() bool {
	return strings.EqualFold(o.Scheme, ProxySchemeSOCKS5)
}

// target is where a connection leads.
type target struct {
	host   string
	port   uint16
	secure bool
}

func targetOf(u uri.URI) target {
	return target{
		host:   strings.ToLower(u.Hostname()),
		port:   u.Port(),
		secure: strings.EqualFold(u.Scheme, "https"),
	}
}

func (t target) addr() transport.HostPort {
	return transport.HostPort{Host: t.host, Port: t.port}
}

func hasField(fields []http.Field, name string) bool {
	for _, f := range fields {
		if f.Is(name) {
			return true
		}
	}
	return false
}
