package api

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"maps"
	"strings"

	"http-client/application/http"
	"http-client/application/http/actor/client"
	"http-client/application/http/semantic"
	"http-client/application/util/uri"

	"github.com/pkg/errors"
	"golang.org/x/net/html/charset"
)

// StatusError is the response of a call whose status is not valid for its API.
type StatusError struct {
	Code int
	Body []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// API sends the requests of a registry through a client.
// It is not safe for concurrent use.
type API struct {
	client   *client.Client
	registry *Registry
	baseURL  string

	query   map[string]any
	headers map[string]string

	statusCode int
	success    bool
	lastErr    *StatusError
}

// New creates an API calling baseURL. A nil client or registry is created.
func New(baseURL string, c *client.Client, r *Registry) *API {
	if c == nil {
		c = client.New()
	}
	if r == nil {
		r = NewRegistry()
	}
	return &API{client: c, registry: r, baseURL: baseURL}
}

func (a *API) Client() *client.Client { return a.client }
func (a *API) Registry() *Registry    { return a.registry }
func (a *API) BaseURL() string        { return a.baseURL }

func (a *API) SetBaseURL(baseURL string) { a.baseURL = baseURL }

// SetQuery sets query parameters sent with every call.
func (a *API) SetQuery(query map[string]any) { a.query = maps.Clone(query) }

// SetHeaders sets headers sent with every call. Descriptor headers win.
func (a *API) SetHeaders(headers map[string]string) { a.headers = maps.Clone(headers) }

// Call sends the request described for name and decodes the response into out.
// Params fill the placeholders of the path. The others are query parameters for GET, HEAD and DELETE,
// and a JSON body for other methods.
// A response with a status not valid for the API fails with a [*StatusError].
func (a *API) Call(ctx context.Context, name string, params Params, out any) error {
	d, err := a.registry.Build(name, params)
	if err != nil {
		return err
	}

	a.ResetLastResponse()
	a.client.ResetParameters(false)

	res, err := a.send(ctx, d, params)
	if err != nil {
		return err
	}

	a.statusCode = res.StatusCode()
	body, err := a.responseBody(res)
	if err != nil {
		return err
	}

	if !d.isValidCode(a.statusCode) {
		a.lastErr = &StatusError{Code: a.statusCode, Body: body}
		return a.lastErr
	}
	a.success = true

	return decode(body, format(d, res), out)
}

func (a *API) send(ctx context.Context, d Descriptor, params Params) (*semantic.Response, error) {
	method := strings.ToUpper(d.Method)
	if method == "" {
		method = string(semantic.MethodGet)
	}
	if err := a.client.SetMethod(method); err != nil {
		return nil, errors.Wrap(http.ErrConfiguration, err.Error())
	}

	path, rest := expand(d.Path, params)
	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		target = a.baseURL + path
	}
	if err := a.client.SetURI(target); err != nil {
		return nil, err
	}

	query := make(map[string]any, len(a.query)+len(d.Query))
	maps.Copy(query, a.query)
	maps.Copy(query, d.Query)

	bodyless := method == string(semantic.MethodGet) || method == string(semantic.MethodHead) || method == string(semantic.MethodDelete)
	if bodyless {
		maps.Copy(query, rest)
	}
	if len(query) > 0 {
		if err := a.client.SetParameterGet(query); err != nil {
			return nil, errors.Wrap(http.ErrConfiguration, err.Error())
		}
	}

	headers := make(map[string]string, len(a.headers)+len(d.Headers))
	maps.Copy(headers, a.headers)
	maps.Copy(headers, d.Headers)
	if err := a.client.SetHeaders(headers); err != nil {
		return nil, err
	}

	switch {
	case d.Body != "":
		a.client.SetRawBody([]byte(d.Body))
	case !bodyless && len(rest) > 0:
		b, err := json.Marshal(rest)
		if err != nil {
			return nil, errors.Wrapf(http.ErrConfiguration, "encoding params: %s", err.Error())
		}
		a.client.SetRawBody(b)
		a.client.SetEncType("application/json")
	}

	return a.client.Send(ctx, nil)
}

func (a *API) responseBody(res *semantic.Response) ([]byte, error) {
	if sr, ok := a.client.StreamResponse(); ok && sr.Response == res {
		return sr.Body()
	}
	return res.Body()
}

// expand replaces "{name}" placeholders of path, and returns the params left unused.
func expand(path string, params Params) (string, map[string]any) {
	rest := make(map[string]any, len(params))
	for k, v := range params {
		placeholder := "{" + k + "}"
		if !strings.Contains(path, placeholder) {
			rest[k] = v
			continue
		}
		path = strings.ReplaceAll(path, placeholder, uri.QueryEscape(fmt.Sprint(v), true))
	}
	return path, rest
}

// format is the descriptor format, or the one of the response media type.
func format(d Descriptor, res *semantic.Response) string {
	if d.Format != "" {
		return strings.ToLower(d.Format)
	}
	ct, ok := res.ContentType()
	if !ok {
		return FormatRaw
	}
	switch mt := ct.MediaType(); {
	case strings.HasSuffix(mt, "/json") || strings.HasSuffix(mt, "+json"):
		return FormatJSON
	case strings.HasSuffix(mt, "/xml") || strings.HasSuffix(mt, "+xml"):
		return FormatXML
	}
	return FormatRaw
}

func decode(body []byte, format string, out any) error {
	if out == nil {
		return nil
	}

	switch format {
	case FormatJSON:
		if err := json.Unmarshal(body, out); err != nil {
			return errors.Wrapf(http.ErrDecode, "json: %s", err.Error())
		}
		return nil
	case FormatXML:
		// The decoder does not resolve external entities.
		dec := xml.NewDecoder(bytes.NewReader(body))
		dec.CharsetReader = charset.NewReaderLabel
		if err := dec.Decode(out); err != nil {
			return errors.Wrapf(http.ErrDecode, "xml: %s", err.Error())
		}
		return nil
	}

	switch out := out.(type) {
	case *[]byte:
		*out = body
	case *string:
		*out = string(body)
	case io.Writer:
		if _, err := out.Write(body); err != nil {
			return errors.Wrap(http.ErrDecode, err.Error())
		}
	default:
		return errors.Wrapf(http.ErrDecode, "cannot write a raw body into %T", out)
	}
	return nil
}

// StatusCode is the status of the last call, or 0.
func (a *API) StatusCode() int { return a.statusCode }

// IsSuccess reports whether the last call got a valid status.
func (a *API) IsSuccess() bool { return a.success }

// LastError is the error of the last call that got an invalid status.
func (a *API) LastError() *StatusError { return a.lastErr }

// ResponseHeaders are the headers of the last response.
func (a *API) ResponseHeaders() map[string][]string {
	return a.client.Response().Headers().ToMap()
}

func (a *API) ResetLastResponse() {
	a.statusCode = 0
	a.success = false
	a.lastErr = nil
}
