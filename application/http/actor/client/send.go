package client

import (
	"context"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"

	"http-client/application/http"
	"http-client/application/http/actor/client/adapter"
	"http-client/application/http/semantic"
	"http-client/application/util/uri"

	"github.com/pkg/errors"
)

// Send sends req, or the request built on the client when req is nil, and follows redirects.
// Going over the configured number of redirects fails with [http.ErrRedirectLimit];
// the last redirect response is then available from [Client.Response].
func (c *Client) Send(ctx context.Context, req *semantic.Request) (*semantic.Response, error) {
	if req != nil {
		c.request = req
	}
	c.redirects = 0

	ad, err := c.Adapter()
	if err != nil {
		return nil, err
	}

	for {
		u, err := c.requestURI()
		if err != nil {
			return nil, err
		}

		res, err := c.dispatch(ctx, ad, u)
		if err != nil {
			return nil, err
		}
		c.response = res

		if err := c.jar.AddFromResponse(res, &u); err != nil {
			c.logger.Debug("cookie rejected", slog.String("uri", u.String()), slog.String("error", err.Error()))
		}

		followed, err := c.redirect(res)
		if err != nil {
			return nil, err
		}
		if !followed {
			return res, nil
		}

		c.redirects++
		if c.redirects > c.cfg.MaxRedirects {
			return nil, errors.Wrapf(http.ErrRedirectLimit, "more than %d redirects", c.cfg.MaxRedirects)
		}
	}
}

// requestURI is the request URI with the query parameters appended.
func (c *Client) requestURI() (uri.URI, error) {
	u := c.request.URI()
	if err := assertHTTPURI(u); err != nil {
		return uri.URI{}, err
	}

	if q := c.request.Query(); !q.IsEmpty() {
		sep := c.cfg.argSeparator()
		query := q.Encode(sep, c.cfg.RFC3986Strict)
		if existing := u.RawQuery(); existing != "" {
			query = existing + sep + query
		}
		u.SetRawQuery(query)
	}

	return u, nil
}

func (c *Client) dispatch(ctx context.Context, ad adapter.Adapter, u uri.URI) (*semantic.Response, error) {
	// Sets the default encoding type of the method.
	if err := c.SetMethod(string(c.request.Method())); err != nil {
		return nil, err
	}

	b, err := c.prepareBody()
	if err != nil {
		return nil, err
	}

	fields, err := c.prepareHeaders(ad, u, b)
	if err != nil {
		return nil, err
	}

	if cookie, ok := c.jar.CookieHeader(u, c.cfg.EncodeCookies); ok {
		fields = setField(fields, http.NewField("Cookie", cookie.Value()))
	}

	var sa adapter.StreamAdapter
	if b.stream != nil || c.cfg.OutputStream != "" {
		var ok bool
		if sa, ok = ad.(adapter.StreamAdapter); !ok {
			return nil, errors.Wrapf(http.ErrStreamingUnsupported, "%T", ad)
		}
	}

	method := string(c.request.Method())
	c.logger.Debug("sending request", slog.String("method", method), slog.String("uri", u.String()))

	secure := strings.EqualFold(u.Scheme, "https")
	if err := ad.Connect(ctx, u.Hostname(), u.Port(), secure); err != nil {
		c.logger.Warn("unable to connect", slog.String("uri", u.String()), slog.String("error", err.Error()))
		return nil, err
	}

	var out *os.File
	if c.cfg.OutputStream != "" {
		out, err = c.openStream()
		if err != nil {
			_ = ad.Close()
			return nil, err
		}
		sa.SetOutputStream(out)
		defer sa.SetOutputStream(nil)
	}

	res, err := c.exchange(ctx, ad, adapter.WriteRequest{
		Method:     method,
		URI:        u,
		Version:    c.cfg.httpVersion(),
		Headers:    fields,
		Body:       b.data,
		BodyStream: b.stream,
	})
	if err != nil {
		c.logger.Warn("request failed", slog.String("uri", u.String()), slog.String("error", err.Error()))
		if out != nil {
			discardStream(out, c.cfg.OutputStream == TempFile)
		}
		return nil, err
	}

	if out != nil {
		return c.streamResponse(res, out)
	}

	c.closeStream()
	return semantic.ParseResponse(string(res))
}

func (c *Client) exchange(ctx context.Context, ad adapter.Adapter, req adapter.WriteRequest) ([]byte, error) {
	raw, err := ad.Write(ctx, req)
	if err != nil {
		return nil, err
	}
	c.lastRawRequest = raw

	res, err := ad.Read(ctx)
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, errors.Wrap(http.ErrRead, "unable to read response, or response is empty")
	}

	if c.cfg.StoreResponse {
		c.lastRawResponse = res
	} else {
		c.lastRawResponse = nil
	}

	return res, nil
}

// prepareHeaders returns the fields sent with the request.
// Request headers come last and replace fields of the same name.
func (c *Client) prepareHeaders(ad adapter.Adapter, u uri.URI, b body) ([]http.Field, error) {
	var fields []http.Field
	h := c.request.Headers()

	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3.2
	if c.cfg.httpVersion() == http.Version11 {
		host := u.Host()
		if !u.HasDefaultPort() {
			host += ":" + strconv.FormatUint(uint64(u.Port()), 10)
		}
		fields = append(fields, http.NewField("Host", host))
	}

	if !h.Has("Connection") && !c.cfg.KeepAlive {
		fields = append(fields, http.NewField("Connection", "close"))
	}
	if !h.Has("Accept-Encoding") {
		fields = append(fields, http.NewField("Accept-Encoding", "gzip, deflate, br"))
	}
	if !h.Has("User-Agent") && c.cfg.UserAgent != "" {
		fields = append(fields, http.NewField("User-Agent", c.cfg.UserAgent))
	}

	if c.auth != nil {
		switch c.auth.authType {
		case AuthBasic:
			auth, err := EncodeAuthHeader(c.auth.user, c.auth.pass, AuthBasic)
			if err != nil {
				return nil, err
			}
			fields = append(fields, http.NewField("Authorization", auth))
		case AuthDigest:
			injector, ok := ad.(adapter.CredentialInjector)
			if !ok {
				return nil, errors.Wrapf(http.ErrConfiguration, "digest authentication is not available with %T", ad)
			}
			injector.SetCredentials(c.auth.user, c.auth.pass, AuthDigest)
		}
	}

	if c.encType != "" && !b.isEmpty() {
		fields = append(fields, http.NewField("Content-Type", c.encType))
	}

	switch {
	case b.stream != nil && b.size >= 0:
		fields = append(fields, http.NewField("Content-Length", strconv.FormatInt(b.size, 10)))
	case b.stream != nil:
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-7.1
		fields = append(fields, http.NewField("Transfer-Encoding", "chunked"))
	case len(b.data) > 0:
		fields = append(fields, http.NewField("Content-Length", strconv.Itoa(len(b.data))))
	}

	caller := h.Fields()
	fields = slices.DeleteFunc(fields, func(f http.Field) bool { return h.Has(string(f.Name)) })
	fields = append(fields, caller...)

	return fields, nil
}

// setField replaces every field named like f with f.
func setField(fields []http.Field, f http.Field) []http.Field {
	name := string(f.Name)
	fields = slices.DeleteFunc(fields, func(other http.Field) bool { return other.Is(name) })
	return append(fields, f)
}
