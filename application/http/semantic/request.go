package semantic

import (
	"regexp"
	"strings"

	"http-client/application/http"
	"http-client/application/util/uri"

	"github.com/pkg/errors"
)

type Request struct {
	Message

	method Method
	uri    uri.URI

	query *Params
	post  *Params
	files *Files
}

// NewRequest creates a GET request with an empty URI.
func NewRequest() *Request {
	return &Request{
		method: MethodGet,
		query:  NewParams(),
		post:   NewParams(),
		files:  NewFiles(),
	}
}

var (
	requestLineRegexp = regexp.MustCompile(
		`^(OPTIONS|GET|HEAD|POST|PUT|DELETE|TRACE|CONNECT|PATCH)\s([^ ]*)(?:\sHTTP/(\d+\.\d+))?`,
	)
	// A body starting with a bare "name:" line means a header was smuggled in.
	injectedHeaderRegexp = regexp.MustCompile("(?i)^[a-z0-9!#$%&'*+.^_`|~-]+:$")
)

// ParseRequest parses a request message.
// Query parameters are taken from the request target.
func ParseRequest(raw string) (*Request, error) {
	lines := strings.Split(raw, "\r\n")

	m := requestLineRegexp.FindStringSubmatch(lines[0])
	if m == nil {
		return nil, errors.Wrap(http.ErrParse, "a valid request line was not found")
	}

	req := NewRequest()
	req.method = Method(m[1])
	if err := req.SetURI(m[2]); err != nil {
		return nil, errors.Wrap(http.ErrParse, err.Error())
	}
	req.query = ParseQuery(req.uri.RawQuery())

	if m[3] != "" {
		v, err := http.ParseVersionNumber(m[3])
		if err != nil {
			return nil, errors.Wrap(http.ErrParse, err.Error())
		}
		if err := req.SetVersion(v); err != nil {
			return nil, errors.Wrap(http.ErrParse, err.Error())
		}
	}

	headerLines, body, err := splitMessage(lines[1:], true)
	if err != nil {
		return nil, err
	}

	if len(headerLines) > 0 {
		req.SetRawHeaders(strings.Join(headerLines, "\r\n"))
		if err := req.HeadersErr(); err != nil {
			return nil, errors.Wrap(http.ErrParse, err.Error())
		}
	}
	if len(body) > 0 {
		req.SetContent([]byte(strings.Join(body, "\r\n")))
	}

	return req, nil
}

// splitMessage splits the lines after the start line into header lines and body lines.
// With checkInjection, a body starting with a bare "name:" line is rejected.
func splitMessage(lines []string, checkInjection bool) (headers []string, body []string, err error) {
	inHeader := true
	for _, line := range lines {
		if inHeader {
			if line == "" {
				inHeader = false
				continue
			}
			if strings.ContainsAny(line, "\r\n") {
				return nil, nil, errors.Wrap(http.ErrParse, "CRLF injection detected")
			}
			headers = append(headers, line)
			continue
		}

		if checkInjection && len(body) == 0 && injectedHeaderRegexp.MatchString(line) {
			return nil, nil, errors.Wrap(http.ErrParse, "CRLF injection detected")
		}
		body = append(body, line)
	}

	return headers, body, nil
}

func (r *Request) Method() Method { return r.method }

// SetMethod accepts a supported method in any case.
func (r *Request) SetMethod(method string) error {
	m, err := ParseMethod(method)
	if err != nil {
		return err
	}
	r.method = m
	return nil
}

func (r *Request) URI() uri.URI { return r.uri.Clone() }

// SetURI parses and sets raw.
func (r *Request) SetURI(raw string) error {
	u, err := uri.Parse(raw)
	if err != nil {
		return errors.Wrapf(http.ErrConfiguration, "invalid URI passed as string (%s): %s", raw, err.Error())
	}
	r.uri = u
	return nil
}

func (r *Request) SetParsedURI(u uri.URI) { r.uri = u.Clone() }

func (r *Request) Query() *Params { return r.query }

func (r *Request) SetQuery(p *Params) { r.query = p }

func (r *Request) Post() *Params { return r.post }

func (r *Request) SetPost(p *Params) { r.post = p }

func (r *Request) Files() *Files { return r.files }

func (r *Request) SetFiles(f *Files) { r.files = f }

func (r *Request) IsOptions() bool { return r.method == MethodOptions }
func (r *Request) IsGet() bool     { return r.method == MethodGet }
func (r *Request) IsHead() bool    { return r.method == MethodHead }
func (r *Request) IsPost() bool    { return r.method == MethodPost }
func (r *Request) IsPut() bool     { return r.method == MethodPut }
func (r *Request) IsDelete() bool  { return r.method == MethodDelete }
func (r *Request) IsTrace() bool   { return r.method == MethodTrace }
func (r *Request) IsConnect() bool { return r.method == MethodConnect }
func (r *Request) IsPatch() bool   { return r.method == MethodPatch }

// IsXMLHttpRequest checks the X-Requested-With header set by javascript clients.
func (r *Request) IsXMLHttpRequest() bool {
	v, ok := r.Headers().GetValue("X-Requested-With")
	return ok && v == "XMLHttpRequest"
}

// IsFlashRequest checks the User-Agent for a flash player.
func (r *Request) IsFlashRequest() bool {
	v, ok := r.Headers().GetValue("User-Agent")
	return ok && strings.Contains(strings.ToLower(v), "flash")
}

// RequestLine renders "METHOD uri HTTP/ver".
func (r *Request) RequestLine() string {
	return string(r.method) + " " + r.uri.String() + " " + r.Version().String()
}

// String renders the whole message.
func (r *Request) String() string {
	return r.RequestLine() + "\r\n" + r.Headers().String() + "\r\n" + string(r.Content())
}
