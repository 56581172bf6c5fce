package client

import (
	"bufio"
	"bytes"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"http-client/application/http"
	"http-client/application/http/semantic"

	"github.com/pkg/errors"
)

// StreamResponse is a response whose body stays in a stream, usually the output file of the client.
// The body is read through Read, or loaded at once by Body and RawBody.
type StreamResponse struct {
	*semantic.Response

	body   io.Reader
	file   io.ReadCloser
	name   string
	remove bool
	closed bool
}

var _ io.ReadCloser = (*StreamResponse)(nil)

// FromStream builds a response from its head and the stream holding the rest.
// Bytes of head after the empty line are the start of the body.
// Without an empty line in head, the remaining head lines are read from f.
// A body longer than Content-Length is rejected.
func FromStream(head []byte, f io.ReadCloser) (*StreamResponse, error) {
	br := bufio.NewReader(f)

	raw, rest, ok := cutHead(head)
	for !ok {
		line, err := br.ReadBytes('\n')
		raw = append(raw, line...)
		if isEmptyLine(line) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(http.ErrParse, "stream ended before the end of the response head")
		}
	}

	res, err := semantic.ParseResponse(string(raw))
	if err != nil {
		return nil, err
	}
	res.SetContent(nil)

	var body io.Reader = io.MultiReader(bytes.NewReader(rest), br)
	if v, ok := res.Headers().GetValue("Content-Length"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || n < 0 {
			return nil, errors.Wrapf(http.ErrParse, "invalid Content-Length %q", v)
		}
		if int64(len(rest)) > n {
			return nil, errors.Wrapf(http.ErrParse, "body of %d bytes exceeds Content-Length %d", len(rest), n)
		}
		body = io.LimitReader(body, n)
	}

	return &StreamResponse{Response: res, body: body, file: f}, nil
}

// cutHead splits raw at its first empty line. ok is false when there is none.
func cutHead(raw []byte) (head, rest []byte, ok bool) {
	for _, sep := range []string{"\r\n\r\n", "\n\n"} {
		if i := bytes.Index(raw, []byte(sep)); i >= 0 {
			return raw[:i+len(sep)], raw[i+len(sep):], true
		}
	}
	return bytes.Clone(raw), nil, false
}

func isEmptyLine(line []byte) bool {
	return len(bytes.TrimRight(line, "\r\n")) == 0 && len(line) > 0
}

// Read reads the body not consumed yet. The stream is released once the body is over.
func (s *StreamResponse) Read(p []byte) (int, error) {
	if s.closed {
		return 0, io.EOF
	}
	n, err := s.body.Read(p)
	if err == io.EOF {
		s.release()
	}
	return n, err
}

// RawBody loads the rest of the body into the response. Bytes consumed by Read are not part of it.
func (s *StreamResponse) RawBody() ([]byte, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	return s.Content(), nil
}

// Body is the rest of the body, decoded.
func (s *StreamResponse) Body() ([]byte, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	return s.Response.Body()
}

// Text is the rest of the body, decoded to UTF-8.
func (s *StreamResponse) Text() (string, error) {
	if err := s.load(); err != nil {
		return "", err
	}
	return s.Response.Text()
}

func (s *StreamResponse) load() error {
	if s.closed {
		return nil
	}
	b, err := io.ReadAll(s.body)
	s.release()
	if err != nil {
		return errors.Wrap(http.ErrRead, err.Error())
	}
	s.SetContent(append(s.Content(), b...))
	return nil
}

// StreamName is the path of the file holding the body, if any.
func (s *StreamResponse) StreamName() string { return s.name }

func (s *StreamResponse) release() {
	if s.closed {
		return
	}
	s.closed = true
	_ = s.file.Close()
}

// Close releases the stream, and removes the file when it was temporary.
func (s *StreamResponse) Close() error {
	s.release()
	if s.remove && s.name != "" {
		if err := os.Remove(s.name); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "removing stream file")
		}
	}
	return nil
}

func (c *Client) openStream() (*os.File, error) {
	var (
		f   *os.File
		err error
	)
	if c.cfg.OutputStream == TempFile {
		f, err = os.CreateTemp(c.cfg.StreamTmpDir, "http-client-*")
	} else {
		f, err = os.OpenFile(c.cfg.OutputStream, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	}
	if err != nil {
		return nil, errors.Wrapf(http.ErrConfiguration, "unable to open output stream: %s", err.Error())
	}
	return f, nil
}

func (c *Client) streamResponse(head []byte, out *os.File) (*semantic.Response, error) {
	temp := c.cfg.OutputStream == TempFile
	if _, err := out.Seek(0, io.SeekStart); err != nil {
		discardStream(out, temp)
		return nil, errors.Wrap(http.ErrRead, err.Error())
	}

	sr, err := FromStream(head, out)
	if err != nil {
		discardStream(out, temp)
		return nil, err
	}
	sr.name = out.Name()
	sr.remove = temp

	c.closeStream()
	c.stream = sr
	return sr.Response, nil
}

func (c *Client) closeStream() {
	if c.stream == nil {
		return
	}
	if err := c.stream.Close(); err != nil {
		c.logger.Debug("unable to close stream response", slog.String("error", err.Error()))
	}
	c.stream = nil
}

func discardStream(f *os.File, remove bool) {
	_ = f.Close()
	if remove {
		_ = os.Remove(f.Name())
	}
}
