// Package client sends requests through an [adapter.Adapter], following redirects
// and keeping cookies between requests.
package client

import (
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"http-client/application/http"
	"http-client/application/http/actor/client/adapter"
	"http-client/application/http/cookie"
	"http-client/application/http/header"
	"http-client/application/http/semantic"
	"http-client/application/util/uri"
	"http-client/transport"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

// Client holds a request being built, and the state of the last exchange.
// It is not safe for concurrent use.
type Client struct {
	cfg Config

	adapter           adapter.Adapter
	adapterConfigured bool
	dialer            transport.Dialer

	logger *slog.Logger
	clock  clock.Clock
	jar    *cookie.Jar

	request  *semantic.Request
	response *semantic.Response
	stream   *StreamResponse

	encType    string
	bodyStream io.Reader
	auth       *credentials

	lastRawRequest  []byte
	lastRawResponse []byte
	redirects       int
}

type credentials struct {
	user, pass, authType string
}

func New(opts ...Option) *Client {
	return newClient(DefaultConfig(), opts)
}

func NewWithConfig(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Extra == nil {
		cfg.Extra = make(map[string]any)
	}
	return newClient(cfg, opts), nil
}

func newClient(cfg Config, opts []Option) *Client {
	c := &Client{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if c.clock == nil {
		c.clock = clock.New()
	}
	if c.jar == nil {
		c.jar = cookie.New(c.clock)
	}
	c.request = semantic.NewRequest()

	return c
}

func (c *Client) Config() Config {
	cfg := c.cfg
	cfg.Extra = maps.Clone(c.cfg.Extra)
	return cfg
}

// SetOptions applies m to the configuration. See [Config.Apply].
func (c *Client) SetOptions(m map[string]any) error {
	cfg := c.Config()
	if err := cfg.Apply(m); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	c.cfg = cfg
	c.adapterConfigured = false
	return nil
}

// Adapter returns the adapter, creating the one named by the configuration if none is set.
func (c *Client) Adapter() (adapter.Adapter, error) {
	if c.adapter == nil {
		name := c.cfg.Adapter
		if name == "" {
			name = AdapterSocket
			if c.cfg.Proxy.Host != "" {
				name = AdapterProxy
			}
		}

		switch name {
		case AdapterSocket:
			c.adapter = adapter.NewSocket(c.dialer, c.logger, c.clock)
		case AdapterProxy:
			c.adapter = adapter.NewProxy(c.dialer, c.logger, c.clock)
		case AdapterStub:
			c.adapter = adapter.NewStub()
		default:
			return nil, errors.Wrapf(http.ErrConfiguration, "unable to locate adapter %q", name)
		}
		c.adapterConfigured = false
	}

	if !c.adapterConfigured {
		if err := c.adapter.SetOptions(c.cfg.adapterOptions()); err != nil {
			return nil, err
		}
		c.adapterConfigured = true
	}

	return c.adapter, nil
}

func (c *Client) SetAdapter(a adapter.Adapter) error {
	if a == nil {
		return errors.Wrap(http.ErrConfiguration, "adapter cannot be nil")
	}
	c.adapter = a
	c.adapterConfigured = false
	_, err := c.Adapter()
	return err
}

// Close closes the connection of the adapter and the last stream response.
func (c *Client) Close() error {
	var err error
	if c.stream != nil {
		err = c.stream.Close()
		c.stream = nil
	}
	if c.adapter != nil {
		if cerr := c.adapter.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (c *Client) Request() *semantic.Request { return c.request }

func (c *Client) SetRequest(r *semantic.Request) { c.request = r }

// Response is the last response, or an empty "200 OK" one before any request.
func (c *Client) Response() *semantic.Response {
	if c.response == nil {
		return semantic.NewResponse()
	}
	return c.response
}

// StreamResponse is the last response when an output stream was set.
func (c *Client) StreamResponse() (*StreamResponse, bool) {
	return c.stream, c.stream != nil
}

func (c *Client) LastRawRequest() []byte  { return c.lastRawRequest }
func (c *Client) LastRawResponse() []byte { return c.lastRawResponse }
func (c *Client) RedirectionCount() int   { return c.redirects }

func (c *Client) Jar() *cookie.Jar { return c.jar }

// SetURI sets an absolute http or https URI.
// Credentials in the URI are used for basic authentication.
// Authentication is cleared when the host differs from the previous one.
func (c *Client) SetURI(raw string) error {
	u, err := uri.Parse(raw)
	if err != nil {
		return errors.Wrapf(http.ErrConfiguration, "invalid URI %q: %s", raw, err.Error())
	}
	if err := assertHTTPURI(u); err != nil {
		return err
	}

	last := c.request.URI()
	c.request.SetParsedURI(u)

	if lastHost := last.Hostname(); lastHost != "" && !strings.EqualFold(u.Hostname(), lastHost) {
		c.ClearAuth()
	}

	if u.Authority.UserInfo != "" {
		user, pass, _ := strings.Cut(u.Authority.UserInfo, ":")
		if user != "" && pass != "" {
			return c.SetAuth(user, pass, AuthBasic)
		}
	}

	return nil
}

func assertHTTPURI(u uri.URI) error {
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return errors.Wrapf(http.ErrConfiguration, "unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return errors.Wrap(http.ErrConfiguration, "URI has no host")
	}
	return nil
}

func (c *Client) URI() uri.URI { return c.request.URI() }

// methodsWithForm default the encoding type to url-encoded.
var methodsWithForm = []semantic.Method{
	semantic.MethodPost,
	semantic.MethodPut,
	semantic.MethodDelete,
	semantic.MethodPatch,
	semantic.MethodOptions,
}

func (c *Client) SetMethod(method string) error {
	if err := c.request.SetMethod(method); err != nil {
		return err
	}
	if c.encType == "" && slices.Contains(methodsWithForm, c.request.Method()) {
		c.encType = EncURLEncoded
	}
	return nil
}

func (c *Client) Method() semantic.Method { return c.request.Method() }

// SetHeaders replaces the request headers. Names are added in sorted order.
func (c *Client) SetHeaders(headers map[string]string) error {
	h := semantic.NewHeaders()
	for _, name := range slices.Sorted(maps.Keys(headers)) {
		if err := h.AddRaw(name, headers[name]); err != nil {
			return errors.Wrap(http.ErrConfiguration, err.Error())
		}
	}
	c.request.SetHeaders(h)
	return nil
}

func (c *Client) AddHeader(name, value string) error {
	if err := c.request.Headers().AddRaw(name, value); err != nil {
		return errors.Wrap(http.ErrConfiguration, err.Error())
	}
	return nil
}

func (c *Client) HasHeader(name string) bool { return c.request.Headers().Has(name) }

func (c *Client) Header(name string) (string, bool) { return c.request.Headers().GetValue(name) }

// SetParameterGet replaces the query parameters.
func (c *Client) SetParameterGet(query map[string]any) error {
	p, err := semantic.ParamsFromMap(query)
	if err != nil {
		return err
	}
	c.request.SetQuery(p)
	return nil
}

// SetParameterPost replaces the form parameters.
func (c *Client) SetParameterPost(post map[string]any) error {
	p, err := semantic.ParamsFromMap(post)
	if err != nil {
		return err
	}
	c.request.SetPost(p)
	return nil
}

// SetRawBody sets the body, sent as is instead of form parameters.
func (c *Client) SetRawBody(body []byte) { c.request.SetContent(body) }

// SetBodyStream sets a body read while the request is written.
// It requires an adapter implementing [adapter.StreamAdapter].
func (c *Client) SetBodyStream(r io.Reader) { c.bodyStream = r }

func (c *Client) SetEncType(encType string) { c.encType = encType }

func (c *Client) EncType() string { return c.encType }

func (c *Client) SetArgSeparator(sep string) { c.cfg.ArgSeparator = sep }

func (c *Client) ArgSeparator() string { return c.cfg.argSeparator() }

// SetFileUpload adds a file to the multipart body.
// With nil content the file is read from filename.
// An empty content type is detected from the content.
func (c *Client) SetFileUpload(filename, formName string, content []byte, contentType string) error {
	if content == nil {
		data, err := os.ReadFile(filename)
		if err != nil {
			return errors.Wrapf(http.ErrConfiguration, "unable to read file %q for upload: %s", filename, err.Error())
		}
		content = data
	}
	if contentType == "" {
		contentType = DetectContentType(content)
	}

	c.request.Files().Set(semantic.FileUpload{
		FormName:    formName,
		Filename:    filepath.Base(filename),
		ContentType: contentType,
		Data:        content,
	})
	return nil
}

func (c *Client) RemoveFileUpload(filename string) bool {
	return c.request.Files().Remove(filepath.Base(filename))
}

// AddCookie stores c in the jar as if the current URI had set it.
func (c *Client) AddCookie(sc *header.SetCookie) error {
	u := c.request.URI()
	return c.jar.Add(sc, &u)
}

// AddCookieValue is [Client.AddCookie] for a session cookie of the current URI.
func (c *Client) AddCookieValue(name, value string) error {
	sc, err := header.NewSetCookie(name, value)
	if err != nil {
		return err
	}
	return c.AddCookie(sc)
}

// SetCookies replaces every cookie with the given session cookies.
func (c *Client) SetCookies(cookies map[string]string) error {
	c.ClearCookies()
	for _, name := range slices.Sorted(maps.Keys(cookies)) {
		if err := c.AddCookieValue(name, cookies[name]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) ClearCookies() { c.jar.Reset() }

func (c *Client) Cookies() []*header.SetCookie { return c.jar.All() }

// SetAuth sets credentials for basic or digest authentication.
// Digest requires an adapter implementing [adapter.CredentialInjector].
func (c *Client) SetAuth(user, pass, authType string) error {
	authType = strings.ToLower(authType)
	if authType != AuthBasic && authType != AuthDigest {
		return errors.Wrapf(http.ErrConfiguration, "invalid or not supported authentication type: %q", authType)
	}
	if user == "" {
		return errors.Wrap(http.ErrConfiguration, "the username cannot be empty")
	}

	c.auth = &credentials{user: user, pass: pass, authType: authType}
	return nil
}

func (c *Client) ClearAuth() { c.auth = nil }

// SetStream sets where response bodies are written: a path, [TempFile], or "" for off.
func (c *Client) SetStream(path string) { c.cfg.OutputStream = path }

func (c *Client) Stream() string { return c.cfg.OutputStream }

// ResetParameters starts a new request to the same URI.
// Authentication is cleared, and cookies too when clearCookies is set.
func (c *Client) ResetParameters(clearCookies bool) {
	u := c.request.URI()

	c.resetRequest()
	c.request.SetParsedURI(u)
	c.response = nil
	c.lastRawRequest = nil
	c.lastRawResponse = nil

	if clearCookies {
		c.ClearCookies()
	}
	c.ClearAuth()
}

func (c *Client) resetRequest() {
	c.encType = ""
	c.bodyStream = nil
	c.request = semantic.NewRequest()
}

// Reset clears parameters, authentication and cookies.
func (c *Client) Reset() {
	c.ResetParameters(true)
}
