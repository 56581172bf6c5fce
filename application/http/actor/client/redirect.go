package client

import (
	"strings"

	"http-client/application/http"
	"http-client/application/http/semantic"
	"http-client/application/http/semantic/status"
	"http-client/application/util/uri"

	"github.com/pkg/errors"
)

// redirect points the request at the location of res, and reports whether it should be sent again.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-15.4
func (c *Client) redirect(res *semantic.Response) (bool, error) {
	if !res.IsRedirect() {
		return false, nil
	}
	location, ok := res.Headers().GetValue("Location")
	if !ok || location == "" {
		return false, nil
	}

	code := res.StatusCode()
	if code == status.SeeOther.Code ||
		(!c.cfg.StrictRedirects && (code == status.MovedPermanently.Code || code == status.Found.Code)) {
		c.dropBody()
		if err := c.SetMethod(string(semantic.MethodGet)); err != nil {
			return false, err
		}
	}

	// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-5.2
	if strings.HasPrefix(location, "http:/") || strings.HasPrefix(location, "https:") {
		if err := c.SetURI(location); err != nil {
			return false, err
		}
		return true, nil
	}

	ref, err := uri.Parse(location)
	if err != nil {
		return false, errors.Wrapf(http.ErrParse, "invalid Location %q: %s", location, err.Error())
	}
	rr, err := uri.NewRefResolver(c.request.URI())
	if err != nil {
		return false, errors.Wrap(http.ErrConfiguration, err.Error())
	}

	u := rr.Resolve(ref)
	if ref.Authority != nil {
		// SetURI decides whether credentials survive the new host.
		return true, c.SetURI(u.String())
	}
	c.request.SetParsedURI(u)

	return true, nil
}

// dropBody clears what a request turned into GET must not send.
// Authentication, cookies and the other headers are kept.
func (c *Client) dropBody() {
	c.request.SetQuery(semantic.NewParams())
	c.request.SetPost(semantic.NewParams())
	c.request.SetFiles(semantic.NewFiles())
	c.request.SetContent(nil)
	c.request.Headers().Del("Content-Type")
	c.request.Headers().Del("Content-Length")
	c.encType = ""
	c.bodyStream = nil
}
