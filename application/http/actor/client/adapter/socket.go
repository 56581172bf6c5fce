package adapter

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"http-client/application/http"
	"http-client/application/http/semantic/status"
	"http-client/application/http/transfer"
	iolib "http-client/lib/io"
	"http-client/transport"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

// Socket speaks HTTP/1.x over a connection of a [transport.Dialer].
type Socket struct {
	dialer transport.Dialer
	logger *slog.Logger
	clock  clock.Clock

	opts      Options
	tlsConfig *tls.Config

	conn      transport.Conn
	br        *bufio.Reader
	connected target
	method    string
	out       io.Writer

	onClose func()
}

var (
	_ StreamAdapter = (*Socket)(nil)
)

// NewSocket creates a socket adapter.
// A nil dialer dials the network, a nil logger discards and a nil clock is the real one.
func NewSocket(d transport.Dialer, logger *slog.Logger, clk clock.Clock) *Socket {
	if d == nil {
		d = &transport.NetDialer{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if clk == nil {
		clk = clock.New()
	}

	return &Socket{
		dialer: d,
		logger: logger,
		clock:  clk,
	}
}

func (s *Socket) SetOptions(opts Options) error {
	if opts.Timeout < 0 || opts.ConnectTimeout < 0 {
		return errors.Wrap(http.ErrConfiguration, "timeout cannot be negative")
	}

	cfg, err := opts.TLS.Config()
	if err != nil {
		return errors.Wrap(http.ErrConfiguration, err.Error())
	}

	s.opts = opts
	s.tlsConfig = cfg
	return nil
}

func (s *Socket) Options() Options { return s.opts }

// SetTLSConfig replaces the TLS configuration derived from the options.
func (s *Socket) SetTLSConfig(cfg *tls.Config) { s.tlsConfig = cfg }

func (s *Socket) SetOutputStream(w io.Writer) { s.out = w }

// IsConnected reports whether a connection is open.
func (s *Socket) IsConnected() bool { return s.conn != nil }

// Connect opens a connection to host:port, unless one to the same target is kept alive.
func (s *Socket) Connect(ctx context.Context, host string, port uint16, secure bool) error {
	t := target{host: strings.ToLower(host), port: port, secure: secure}
	return s.connect(ctx, t, s.dialer)
}

func (s *Socket) connect(ctx context.Context, t target, d transport.Dialer) error {
	if s.conn != nil {
		if s.connected == t && s.opts.KeepAlive {
			return nil
		}
		_ = s.Close()
	}

	if timeout := s.opts.connectTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = s.clock.WithTimeout(ctx, timeout)
		defer cancel()
	}

	conn, err := d.Dial(ctx, t.addr())
	if err != nil {
		return errors.Wrapf(http.ErrConnection, "unable to connect to %s: %s", t.addr(), err.Error())
	}

	if t.secure {
		conn, err = s.startTLS(ctx, conn, t.host)
		if err != nil {
			return err
		}
	}

	s.setConn(conn, t)
	s.logger.Debug("connected", slog.String("addr", t.addr().String()), slog.Bool("secure", t.secure))

	return nil
}

func (s *Socket) startTLS(ctx context.Context, conn transport.Conn, serverName string) (transport.Conn, error) {
	cfg := s.tlsConfig
	if cfg == nil {
		cfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	cfg = cfg.Clone()
	if cfg.ServerName == "" {
		cfg.ServerName = serverName
	}

	tc, err := transport.TLSClient(ctx, conn, cfg)
	if err != nil {
		return nil, errors.Wrapf(http.ErrConnection, "unable to enable crypto on connection to %s: %s", serverName, err.Error())
	}
	return tc, nil
}

func (s *Socket) setConn(conn transport.Conn, t target) {
	s.conn = conn
	s.br = bufio.NewReader(&deadlineReader{s: s})
	s.connected = t
}

func (s *Socket) Write(ctx context.Context, req WriteRequest) ([]byte, error) {
	if s.conn == nil {
		return nil, errors.Wrap(http.ErrWrite, "trying to write but we are not connected")
	}
	if targetOf(req.URI) != s.connected {
		return nil, errors.Wrap(http.ErrWrite, "trying to write but we are connected to the wrong host")
	}

	return s.writeRequest(ctx, req, req.URI.RequestTarget(), req.Headers)
}

// writeRequest writes the head, then the body.
// A streamed body with "Transfer-Encoding: chunked" is sent in chunks.
func (s *Socket) writeRequest(ctx context.Context, req WriteRequest, requestTarget string, fields []http.Field) ([]byte, error) {
	s.method = req.Method

	head := http.RequestHead{
		Method:  req.Method,
		Target:  requestTarget,
		Version: req.Version,
		Fields:  fields,
	}

	raw, err := http.EncodeHead(head, http.DefaultEncodeOptions)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(http.ErrWrite, err.Error())
	}

	conn := s.conn
	if s.opts.Timeout > 0 {
		conn.SetWriteDeadLine(s.clock.Now().Add(s.opts.Timeout))
		defer conn.SetWriteDeadLine(time.Time{})
	}

	var body io.Reader
	if req.BodyStream == nil && len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
		raw = append(raw, req.Body...)
	}

	if err := http.NewRequestEncoder(conn, http.DefaultEncodeOptions).Encode(head, body); err != nil {
		_ = s.Close()
		return nil, errors.Wrapf(http.ErrWrite, "error writing request to server: %s", err.Error())
	}

	if req.BodyStream != nil {
		if err := s.writeStream(conn, req.BodyStream, fields); err != nil {
			_ = s.Close()
			return nil, errors.Wrapf(http.ErrWrite, "error writing request body to server: %s", err.Error())
		}
	}

	return raw, nil
}

func (s *Socket) writeStream(w io.Writer, stream io.Reader, fields []http.Field) error {
	codings := transfer.ParseCodings(strings.Join(http.FieldValues(fields, "Transfer-Encoding"), ","))
	if len(codings) == 0 || codings[len(codings)-1] != transfer.CodingChunked {
		_, err := io.Copy(w, stream)
		return err
	}

	cw := transfer.NewChunkedWriter(w)
	if _, err := io.Copy(cw, stream); err != nil {
		return err
	}
	return cw.Close()
}

// Read reads a response.
// Informational responses are skipped. The body is delimited by chunked framing,
// Content-Length, or the end of the connection.
func (s *Socket) Read(ctx context.Context) ([]byte, error) {
	if s.conn == nil {
		return nil, errors.Wrap(http.ErrRead, "trying to read but we are not connected")
	}

	if err := ctx.Err(); err != nil {
		_ = s.Close()
		return nil, errors.Wrap(http.ErrRead, err.Error())
	}

	conn := s.conn
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	raw, err := s.readResponse()
	if err != nil && ctx.Err() != nil {
		_ = s.Close()
		return nil, errors.Wrap(http.ErrRead, ctx.Err().Error())
	}
	return raw, err
}

func (s *Socket) readResponse() ([]byte, error) {
	hr := http.NewHeadReader(s.br, http.DefaultDecodeOptions)

	var head http.Head
	for {
		h, err := hr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				_ = s.Close()
				return nil, errors.Wrap(http.ErrRead, "unable to read response, or response is empty")
			}
			return nil, s.readFailed(err, "reading response head")
		}

		// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-15.2
		if h.StatusCode == status.Continue.Code || h.StatusCode == status.SwitchingProtocols.Code {
			continue
		}
		head = h
		break
	}

	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.3-2.1
	if head.StatusCode == status.NoContent.Code || head.StatusCode == status.NotModified.Code ||
		strings.EqualFold(s.method, "HEAD") {
		s.closeIfRequested(head)
		return head.Raw(), nil
	}

	var (
		raw []byte
		err error
	)
	switch {
	case len(head.Values("Transfer-Encoding")) > 0:
		raw, err = s.readChunked(head)
	case len(head.Values("Content-Length")) > 0:
		raw, err = s.readContentLength(head)
	default:
		raw, err = s.readUntilClose(head)
	}
	if err != nil {
		return nil, err
	}

	s.closeIfRequested(head)
	return raw, nil
}

// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-7.1
func (s *Socket) readChunked(head http.Head) ([]byte, error) {
	te := strings.Join(head.Values("Transfer-Encoding"), ",")
	codings := transfer.ParseCodings(te)
	if len(codings) != 1 || codings[0] != transfer.CodingChunked {
		_ = s.Close()
		return nil, errors.Wrapf(http.ErrRead, "cannot handle %q transfer encoding", te)
	}

	cr := transfer.NewChunkedReader(s.br)

	if s.out == nil {
		framing := bytes.NewBuffer(head.Raw())
		cr.SetFramingWriter(framing)
		if _, err := io.Copy(io.Discard, cr); err != nil {
			return nil, s.readFailed(err, "reading chunked body")
		}
		return framing.Bytes(), nil
	}

	if _, err := io.Copy(s.out, cr); err != nil {
		return nil, s.readFailed(err, "streaming chunked body")
	}
	return head.Without("Transfer-Encoding"), nil
}

// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.3-2.6
func (s *Socket) readContentLength(head http.Head) ([]byte, error) {
	values := head.Values("Content-Length")
	last := values[len(values)-1]
	if i := strings.LastIndexByte(last, ','); i >= 0 {
		last = last[i+1:]
	}

	length, err := strconv.ParseUint(strings.TrimSpace(last), 10, 64)
	if err != nil {
		_ = s.Close()
		return nil, errors.Wrapf(http.ErrRead, "invalid content length: %q", last)
	}

	dst, raw := s.bodyDst(head)
	body := iolib.ExactReader(s.br, length)
	if _, err := io.Copy(dst, body); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			_ = s.Close()
			return nil, errors.Wrapf(http.ErrRead, "connection closed after %d of %d bytes", body.Count(), length)
		}
		return nil, s.readFailed(err, "reading body")
	}

	return raw(), nil
}

// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.3-2.8
func (s *Socket) readUntilClose(head http.Head) ([]byte, error) {
	dst, raw := s.bodyDst(head)
	if _, err := io.Copy(dst, s.br); err != nil {
		return nil, s.readFailed(err, "reading body")
	}

	_ = s.Close()
	return raw(), nil
}

// bodyDst is where the body goes, and a func returning what Read returns.
func (s *Socket) bodyDst(head http.Head) (io.Writer, func() []byte) {
	if s.out != nil {
		return s.out, head.Raw
	}
	buf := bytes.NewBuffer(head.Raw())
	return buf, buf.Bytes
}

func (s *Socket) closeIfRequested(head http.Head) {
	if head.Has("Connection", "close") {
		_ = s.Close()
	}
}

// readFailed closes the connection, whose state is unknown after a failed read.
func (s *Socket) readFailed(err error, msg string) error {
	addr := s.connected.addr().String()
	_ = s.Close()

	if errors.Is(err, transport.ErrDeadLineExceeded) {
		s.logger.Warn("read timed out", slog.String("addr", addr))
		return errors.Wrapf(http.ErrTimeout, "%s: %s", msg, err.Error())
	}
	return errors.Wrapf(http.ErrRead, "%s: %s", msg, err.Error())
}

func (s *Socket) Close() error {
	if s.onClose != nil {
		s.onClose()
	}
	if s.conn == nil {
		return nil
	}

	err := s.conn.Close()
	s.conn, s.br = nil, nil
	s.logger.Debug("connection closed", slog.String("addr", s.connected.addr().String()))
	s.connected = target{}

	if err != nil {
		return errors.Wrap(err, "closing connection")
	}
	return nil
}

// deadlineReader sets the read deadline ahead of every read,
// and reports a closed connection as the end of the stream.
type deadlineReader struct {
	s *Socket
}

func (r *deadlineReader) Read(p []byte) (int, error) {
	conn := r.s.conn
	if conn == nil {
		return 0, io.EOF
	}

	if r.s.opts.Timeout > 0 {
		conn.SetReadDeadLine(r.s.clock.Now().Add(r.s.opts.Timeout))
	}

	n, err := conn.Read(p)
	if errors.Is(err, transport.ErrConnClosed) {
		return n, io.EOF
	}
	return n, err
}
