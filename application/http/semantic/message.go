package semantic

import (
	"http-client/application/http"

	"github.com/pkg/errors"
)

// Message is the part shared by requests and responses.
// The zero value is an HTTP/1.1 message without headers.
type Message struct {
	version http.Version

	headers    *Headers
	rawHeaders *string
	headersErr error

	content []byte
}

// Version defaults to HTTP/1.1.
func (m *Message) Version() http.Version {
	if m.version == (http.Version{}) {
		return http.Version11
	}
	return m.version
}

func (m *Message) SetVersion(v http.Version) error {
	if !v.IsSupported() {
		return errors.Wrapf(http.ErrConfiguration, "not valid or not supported http version: %s", v.Number())
	}
	m.version = v
	return nil
}

// Headers parses raw headers on first access.
// A parse failure leaves the collection empty and is reported by [Message.HeadersErr].
func (m *Message) Headers() *Headers {
	if m.rawHeaders != nil {
		raw := *m.rawHeaders
		m.rawHeaders = nil

		h, err := ParseHeaders(raw)
		if err != nil {
			m.headersErr = err
			h = NewHeaders()
		}
		m.headers = h
	}

	if m.headers == nil {
		m.headers = NewHeaders()
	}

	return m.headers
}

// HeadersErr returns the error of parsing raw headers, if any.
func (m *Message) HeadersErr() error {
	m.Headers()
	return m.headersErr
}

// SetRawHeaders stores a raw header block, parsed by [Message.Headers] when needed.
func (m *Message) SetRawHeaders(raw string) {
	m.rawHeaders = &raw
	m.headers = nil
	m.headersErr = nil
}

func (m *Message) SetHeaders(h *Headers) {
	m.rawHeaders = nil
	m.headers = h
	m.headersErr = nil
}

// Content is the body as stored, without any decoding.
func (m *Message) Content() []byte { return m.content }

func (m *Message) SetContent(content []byte) { m.content = content }
