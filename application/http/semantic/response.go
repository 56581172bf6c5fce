package semantic

import (
	"regexp"
	"strconv"
	"strings"

	"http-client/application/http"
	"http-client/application/http/header"
	"http-client/application/http/semantic/status"
	"http-client/application/http/transfer"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/htmlindex"
)

type Response struct {
	Message

	statusCode   int
	reasonPhrase *string
}

// NewResponse creates a "200 OK" response.
func NewResponse() *Response {
	return &Response{statusCode: status.OK.Code}
}

var statusLineRegexp = regexp.MustCompile(`^HTTP/(1\.[01]) (\d{3})(?:[ ]+(.*))?$`)

// ParseResponse parses a response message.
// Lines are split by CRLF, or by LF when the message has a single CRLF separated line.
// The remainder after the empty line is the raw body.
func ParseResponse(raw string) (*Response, error) {
	lines := strings.Split(raw, "\r\n")
	if len(lines) == 1 {
		lines = strings.Split(raw, "\n")
	}

	m := statusLineRegexp.FindStringSubmatch(lines[0])
	if m == nil {
		return nil, errors.Wrap(http.ErrParse, "a valid response status line was not found")
	}

	res := NewResponse()

	v, err := http.ParseVersionNumber(m[1])
	if err != nil {
		return nil, errors.Wrap(http.ErrParse, err.Error())
	}
	res.version = v

	code, _ := strconv.Atoi(m[2])
	if err := res.SetStatusCode(code); err != nil {
		return nil, errors.Wrap(http.ErrParse, err.Error())
	}
	res.SetReasonPhrase(m[3])

	headerLines, body, err := splitMessage(lines[1:], false)
	if err != nil {
		return nil, err
	}

	if len(headerLines) > 0 {
		res.SetRawHeaders(strings.Join(headerLines, "\r\n"))
		if err := res.HeadersErr(); err != nil {
			return nil, errors.Wrap(http.ErrParse, err.Error())
		}
	}
	if len(body) > 0 {
		res.SetContent([]byte(strings.Join(body, "\r\n")))
	}

	return res, nil
}

func (r *Response) StatusCode() int { return r.statusCode }

// SetStatusCode accepts codes of the status table only.
func (r *Response) SetStatusCode(code int) error {
	if !status.IsKnown(code) {
		return errors.Wrapf(http.ErrConfiguration, "invalid status code provided: %d", code)
	}
	r.SetCustomStatusCode(code)
	return nil
}

// SetCustomStatusCode accepts any code. The reason phrase is reset.
func (r *Response) SetCustomStatusCode(code int) {
	r.statusCode = code
	r.reasonPhrase = nil
}

func (r *Response) SetReasonPhrase(phrase string) {
	phrase = strings.TrimSpace(phrase)
	r.reasonPhrase = &phrase
}

// ReasonPhrase is the phrase set explicitly, or the one of the status table.
func (r *Response) ReasonPhrase() string {
	if r.reasonPhrase != nil {
		return *r.reasonPhrase
	}
	s, _ := status.FromCode(r.statusCode)
	return s.ReasonPhrase
}

// StatusLine renders "HTTP/ver code reason".
func (r *Response) StatusLine() string {
	return strings.TrimSpace(r.Version().String() + " " + strconv.Itoa(r.statusCode) + " " + r.ReasonPhrase())
}

func (r *Response) String() string {
	return r.StatusLine() + "\r\n" + r.Headers().String() + "\r\n" + string(r.Content())
}

// RawBody is the body as received.
func (r *Response) RawBody() []byte { return r.Content() }

// Body removes chunked framing and content codings.
// Corrupt data fails with [http.ErrDecode].
func (r *Response) Body() ([]byte, error) {
	body := r.Content()

	if te, ok := r.Headers().GetValue("Transfer-Encoding"); ok {
		if strings.EqualFold(strings.TrimSpace(te), string(transfer.CodingChunked)) {
			decoded, err := transfer.Dechunk(body)
			if err != nil {
				return nil, err
			}
			body = decoded
		}
	}

	if ce, ok := r.Headers().GetValue("Content-Encoding"); ok {
		decoded, err := transfer.DecodeContent(body, ce)
		if err != nil {
			return nil, err
		}
		body = decoded
	}

	return body, nil
}

// Text is [Response.Body] transcoded to UTF-8 from the Content-Type charset.
// An unknown charset leaves the bytes as they are.
func (r *Response) Text() (string, error) {
	body, err := r.Body()
	if err != nil {
		return "", err
	}

	charset := ""
	if ct, ok := r.ContentType(); ok {
		charset = ct.Charset()
	}
	if charset == "" {
		return string(body), nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return string(body), nil
	}

	text, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", errors.Wrapf(http.ErrDecode, "transcoding from %q: %s", charset, err.Error())
	}
	return string(text), nil
}

// ContentType returns the typed Content-Type header.
func (r *Response) ContentType() (*header.ContentType, bool) {
	h, ok := r.Headers().Get("Content-Type")
	if !ok {
		return nil, false
	}
	ct, ok := h.(*header.ContentType)
	return ct, ok
}

// Location returns the typed Location header.
func (r *Response) Location() (*header.Location, bool) {
	h, ok := r.Headers().Get("Location")
	if !ok {
		return nil, false
	}
	loc, ok := h.(*header.Location)
	return loc, ok
}

// Cookies returns every cookie set by the response.
func (r *Response) Cookies() []*header.SetCookie {
	cookies := make([]*header.SetCookie, 0)
	for _, h := range r.Headers().Values("Set-Cookie") {
		if c, ok := h.(*header.SetCookie); ok {
			cookies = append(cookies, c)
		}
	}
	return cookies
}

func (r *Response) IsInformational() bool { return r.statusCode >= 100 && r.statusCode < 200 }
func (r *Response) IsSuccess() bool       { return r.statusCode >= 200 && r.statusCode < 300 }
func (r *Response) IsOK() bool            { return r.statusCode == status.OK.Code }
func (r *Response) IsRedirect() bool      { return r.statusCode >= 300 && r.statusCode < 400 }
func (r *Response) IsClientError() bool   { return r.statusCode >= 400 && r.statusCode < 500 }
func (r *Response) IsServerError() bool   { return r.statusCode >= 500 && r.statusCode < 600 }
func (r *Response) IsForbidden() bool     { return r.statusCode == status.Forbidden.Code }
func (r *Response) IsNotFound() bool      { return r.statusCode == status.NotFound.Code }
func (r *Response) IsGone() bool          { return r.statusCode == status.Gone.Code }
