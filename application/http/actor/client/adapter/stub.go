package adapter

import (
	"bytes"
	"context"
	"io"

	"http-client/application/http"
	iolib "http-client/lib/io"

	"github.com/pkg/errors"
)

const defaultStubResponse = "HTTP/1.1 400 Bad Request\r\n\r\n"

// Stub answers every request with canned responses, rotating through them per read.
// It records written requests and never touches the network.
type Stub struct {
	opts Options

	responses []string
	index     int
	failNext  bool

	connected bool
	requests  [][]byte
	out       io.Writer

	user, pass, auth string
}

var (
	_ StreamAdapter      = (*Stub)(nil)
	_ CredentialInjector = (*Stub)(nil)
)

func NewStub() *Stub {
	return &Stub{responses: []string{defaultStubResponse}}
}

func (s *Stub) SetOptions(opts Options) error {
	s.opts = opts
	return nil
}

func (s *Stub) Options() Options { return s.opts }

// SetNextRequestWillFail makes the next Connect fail with [http.ErrConnection].
func (s *Stub) SetNextRequestWillFail(fail bool) { s.failNext = fail }

func (s *Stub) Connect(ctx context.Context, host string, port uint16, secure bool) error {
	if s.failNext {
		s.failNext = false
		return errors.Wrapf(http.ErrConnection, "error in stub connecting to %s:%d", host, port)
	}
	s.connected = true
	return nil
}

func (s *Stub) Write(ctx context.Context, req WriteRequest) ([]byte, error) {
	head := http.RequestHead{
		Method:  req.Method,
		Target:  req.URI.RequestTarget(),
		Version: req.Version,
		Fields:  req.Headers,
	}

	raw, err := http.EncodeHead(head, http.DefaultEncodeOptions)
	if err != nil {
		return nil, err
	}
	raw = append(raw, req.Body...)

	recorded := raw
	if req.BodyStream != nil {
		streamed, err := io.ReadAll(req.BodyStream)
		if err != nil {
			return nil, errors.Wrapf(http.ErrWrite, "reading request body: %s", err.Error())
		}
		recorded = append(append([]byte(nil), raw...), streamed...)
	}
	s.requests = append(s.requests, recorded)

	return raw, nil
}

// Read returns the current response and moves to the next one.
// With an output stream, the part after the head goes to the stream.
func (s *Stub) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(http.ErrRead, err.Error())
	}

	res := []byte(s.responses[s.index])
	s.index = (s.index + 1) % len(s.responses)

	if s.out == nil {
		return res, nil
	}

	sep := []byte("\r\n\r\n")
	i := bytes.Index(res, sep)
	if i < 0 {
		return res, nil
	}
	if _, err := iolib.WriteFull(s.out, res[i+len(sep):]); err != nil {
		return nil, errors.Wrapf(http.ErrRead, "writing to output stream: %s", err.Error())
	}
	return res[:i+len(sep)], nil
}

func (s *Stub) Close() error {
	s.connected = false
	return nil
}

func (s *Stub) SetOutputStream(w io.Writer) { s.out = w }

func (s *Stub) SetCredentials(user, pass string, auth string) {
	s.user, s.pass, s.auth = user, pass, auth
}

// Credentials returns what the client passed to SetCredentials.
func (s *Stub) Credentials() (user, pass, auth string) { return s.user, s.pass, s.auth }

// SetResponse replaces the canned responses and rewinds to the first.
func (s *Stub) SetResponse(responses ...string) {
	if len(responses) == 0 {
		responses = []string{defaultStubResponse}
	}
	s.responses = append([]string(nil), responses...)
	s.index = 0
}

func (s *Stub) AddResponse(response string) {
	s.responses = append(s.responses, response)
}

// SetResponseIndex selects the response returned by the next read.
func (s *Stub) SetResponseIndex(i int) error {
	if i < 0 || i >= len(s.responses) {
		return errors.Wrapf(http.ErrConfiguration, "response index %d is out of range", i)
	}
	s.index = i
	return nil
}

func (s *Stub) IsConnected() bool { return s.connected }

// Requests returns every request written so far, streamed bodies included.
func (s *Stub) Requests() [][]byte { return s.requests }

func (s *Stub) LastRequest() []byte {
	if len(s.requests) == 0 {
		return nil
	}
	return s.requests[len(s.requests)-1]
}
