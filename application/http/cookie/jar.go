// Package cookie keeps the cookies received by a client between requests.
package cookie

import (
	"slices"
	"strings"
	"sync"

	"http-client/application/http"
	"http-client/application/http/header"
	"http-client/application/http/semantic"
	"http-client/application/util/domain"
	"http-client/application/util/uri"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

type key struct {
	domain string
	path   string
	name   string
}

// Jar stores cookies by domain, path and name.
// Storing a cookie under an existing key replaces it.
// It is safe for concurrent use.
type Jar struct {
	mu sync.Mutex

	clock   clock.Clock
	keys    []key
	cookies map[key]*header.SetCookie
}

func New(clk clock.Clock) *Jar {
	if clk == nil {
		clk = clock.New()
	}
	return &Jar{
		clock:   clk,
		cookies: make(map[key]*header.SetCookie),
	}
}

// Add stores a copy of c, received in response to refURI.
// An absent domain is the host of refURI, an absent path is the directory of its path.
// A cookie for a public suffix, or for a domain refURI does not belong to, is rejected.
// An expired cookie removes the stored one.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc6265#section-5.3
func (j *Jar) Add(c *header.SetCookie, refURI *uri.URI) error {
	if c == nil {
		return errors.Wrap(http.ErrConfiguration, "nil cookie")
	}

	c = c.Clone()
	c.ApplyMaxAge(j.clock.Now())

	host := ""
	if refURI != nil && refURI.Hostname() != "" {
		h, err := domain.Normalize(refURI.Hostname())
		if err != nil {
			return errors.Wrap(http.ErrConfiguration, err.Error())
		}
		host = h
	}

	if c.Domain == "" {
		if host == "" {
			return errors.Wrapf(http.ErrConfiguration, "cookie %q has no domain", c.CookieName)
		}
		c.Domain = host
	} else {
		d, err := domain.Normalize(c.Domain)
		if err != nil {
			return errors.Wrap(http.ErrConfiguration, err.Error())
		}
		if host != "" {
			if domain.IsPublicSuffix(d) && d != host {
				return errors.Wrapf(http.ErrConfiguration, "cookie domain %q is a public suffix", d)
			}
			if !header.MatchCookieDomain(d, host) {
				return errors.Wrapf(http.ErrConfiguration, "cookie domain %q does not match host %q", d, host)
			}
		}
		c.Domain = d
	}

	if c.Path == "" || c.Path[0] != '/' {
		c.Path = "/"
		if refURI != nil {
			c.Path = DefaultPath(refURI.Path)
		}
	}

	k := key{domain: c.Domain, path: c.Path, name: c.CookieName}

	j.mu.Lock()
	defer j.mu.Unlock()

	if c.IsExpired(j.clock.Now()) || (c.MaxAge != nil && *c.MaxAge <= 0) {
		j.remove(k)
		return nil
	}

	if _, ok := j.cookies[k]; !ok {
		j.keys = append(j.keys, k)
	}
	j.cookies[k] = c
	return nil
}

// AddFromResponse stores every cookie set by resp.
// Rejected cookies are skipped, and the first rejection is returned.
func (j *Jar) AddFromResponse(resp *semantic.Response, refURI *uri.URI) error {
	var first error
	for _, c := range resp.Cookies() {
		if err := j.Add(c, refURI); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Match returns the cookies to be sent to u, longer paths first.
// Expired cookies never match. Session cookies match only with includeSession.
func (j *Jar) Match(u uri.URI, includeSession bool) []*header.SetCookie {
	u = u.Clone()
	if u.Authority != nil {
		if host, err := domain.Normalize(u.Hostname()); err == nil {
			u.Authority.Host = host
		}
	}
	host := u.Hostname()
	now := j.clock.Now()

	j.mu.Lock()
	defer j.mu.Unlock()

	matched := make([]*header.SetCookie, 0)
	for _, k := range j.keys {
		if !header.MatchCookieDomain(k.domain, host) || !header.MatchCookiePath(k.path, u.Path) {
			continue
		}
		c := j.cookies[k]
		if c.Match(u, includeSession, now) {
			matched = append(matched, c.Clone())
		}
	}

	slices.SortStableFunc(matched, func(a, b *header.SetCookie) int {
		return len(b.Path) - len(a.Path)
	})
	return matched
}

// Get returns the most specific cookie of the given name sent to u.
func (j *Jar) Get(u uri.URI, name string) (*header.SetCookie, bool) {
	for _, c := range j.Match(u, true) {
		if c.CookieName == name {
			return c, true
		}
	}
	return nil, false
}

// CookieHeader builds the Cookie request header for u.
// Of two cookies with the same name, the one with the longer path is sent.
func (j *Jar) CookieHeader(u uri.URI, encode bool) (*header.Cookie, bool) {
	matched := j.Match(u, true)
	if len(matched) == 0 {
		return nil, false
	}

	h := header.NewCookie()
	h.EncodeValue = encode
	for _, c := range matched {
		if _, ok := h.Get(c.CookieName); ok {
			continue
		}
		h.Set(c.CookieName, c.CookieValue)
	}
	return h, true
}

// All returns every stored cookie in insertion order.
func (j *Jar) All() []*header.SetCookie {
	j.mu.Lock()
	defer j.mu.Unlock()

	all := make([]*header.SetCookie, 0, len(j.keys))
	for _, k := range j.keys {
		all = append(all, j.cookies[k].Clone())
	}
	return all
}

// Expire drops cookies expired at the current time.
func (j *Jar) Expire() {
	now := j.clock.Now()

	j.mu.Lock()
	defer j.mu.Unlock()

	for _, k := range slices.Clone(j.keys) {
		if j.cookies[k].IsExpired(now) {
			j.remove(k)
		}
	}
}

func (j *Jar) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.keys = nil
	j.cookies = make(map[key]*header.SetCookie)
}

func (j *Jar) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.keys)
}

func (j *Jar) IsEmpty() bool { return j.Len() == 0 }

func (j *Jar) remove(k key) {
	if _, ok := j.cookies[k]; !ok {
		return
	}
	delete(j.cookies, k)
	j.keys = slices.DeleteFunc(j.keys, func(other key) bool { return other == k })
}

// DefaultPath is the directory of a request path.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc6265#section-5.1.4
func DefaultPath(path string) string {
	if path == "" || path[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(path, "/")
	if i == 0 {
		return "/"
	}
	return path[:i]
}
