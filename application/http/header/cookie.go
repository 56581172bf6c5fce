package header

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"http-client/application/http"
	"http-client/application/util/rule"
	"http-client/application/util/uri"

	"github.com/pkg/errors"
)

// Cookie is the request header carrying name-value pairs.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc6265#section-5.4
type Cookie struct {
	pairs []Param

	// EncodeValue percent-encodes values on serialization.
	EncodeValue bool
}

var _ Header = (*Cookie)(nil)

func NewCookie() *Cookie { return &Cookie{EncodeValue: true} }

var cookiePairSep = regexp.MustCompile(`;\s*`)

func ParseCookie(line string) (*Cookie, error) {
	value, err := splitNamed(line, "Cookie")
	if err != nil {
		return nil, err
	}

	h := NewCookie()
	for _, pair := range cookiePairSep.Split(value, -1) {
		name, v, found := strings.Cut(pair, "=")
		if !found {
			return nil, errors.Wrapf(http.ErrParse, "malformed cookie pair: %q", pair)
		}
		h.Set(name, uri.QueryUnescape(v))
	}

	return h, nil
}

// CookieFromSetCookies builds a request header from received cookies.
// Two cookies of the same name are rejected.
func CookieFromSetCookies(cookies []*SetCookie) (*Cookie, error) {
	h := NewCookie()
	for _, c := range cookies {
		if _, ok := h.Get(c.CookieName); ok {
			return nil, errors.Wrapf(http.ErrConfiguration, "two cookies with the same name: %q", c.CookieName)
		}
		h.Set(c.CookieName, c.CookieValue)
	}
	return h, nil
}

func (h *Cookie) Name() string { return "Cookie" }

func (h *Cookie) Value() string {
	parts := make([]string, 0, len(h.pairs))
	for _, p := range h.pairs {
		v := p.Value
		if h.EncodeValue {
			v = uri.QueryEscape(v, false)
		}
		parts = append(parts, p.Key+"="+v)
	}
	return strings.Join(parts, "; ")
}

func (h *Cookie) String() string { return format(h) }

func (h *Cookie) Get(name string) (string, bool) { return lookupParam(h.pairs, name) }

// Set replaces the value of name, or appends a new pair.
func (h *Cookie) Set(name, value string) {
	for i := range h.pairs {
		if h.pairs[i].Key == name {
			h.pairs[i].Value = value
			return
		}
	}
	h.pairs = append(h.pairs, Param{Key: name, Value: value})
}

func (h *Cookie) Del(name string) {
	for i := range h.pairs {
		if h.pairs[i].Key == name {
			h.pairs = append(h.pairs[:i], h.pairs[i+1:]...)
			return
		}
	}
}

func (h *Cookie) Pairs() []Param {
	out := make([]Param, len(h.pairs))
	copy(out, h.pairs)
	return out
}

func (h *Cookie) Len() int { return len(h.pairs) }

// SetCookie is a cookie sent by a server.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc6265#section-4.1
type SetCookie struct {
	CookieName  string
	CookieValue string

	Domain string
	Path   string
	// Expires is nil for session cookies.
	Expires *time.Time
	MaxAge  *int
	Version *int

	Secure   bool
	HttpOnly bool

	// QuoteValue wraps the value with double quotes on serialization.
	QuoteValue bool
}

var _ Header = (*SetCookie)(nil)

func NewSetCookie(name, value string) (*SetCookie, error) {
	if name == "" || !IsValidValue(name) {
		return nil, errors.Wrapf(http.ErrConfiguration, "invalid cookie name: %q", name)
	}
	return &SetCookie{CookieName: name, CookieValue: value}, nil
}

var weekdays = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// splitCookies splits a folded value at commas, except the one following a day name in a date.
func splitCookies(value string) []string {
	parts := make([]string, 0, 1)
	start := 0
	for i := 0; i < len(value); i++ {
		if value[i] != ',' {
			continue
		}

		afterDay := false
		for _, day := range weekdays {
			if strings.HasSuffix(value[:i], day) {
				afterDay = true
				break
			}
		}
		if afterDay {
			continue
		}

		parts = append(parts, value[start:i])
		i += len(value[i+1:]) - len(strings.TrimLeft(value[i+1:], " \t"))
		start = i + 1
	}
	return append(parts, value[start:])
}

var cookieAttribute = regexp.MustCompile(`^([^=]+)=\s*("?)([^"]*)"?`)

// ParseSetCookie parses a Set-Cookie line, which may carry several cookies.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc6265#section-5.2
func ParseSetCookie(line string) ([]*SetCookie, error) {
	value, err := splitNamed(line, "Set-Cookie")
	if err != nil {
		return nil, err
	}

	cookies := make([]*SetCookie, 0, 1)
	for _, raw := range splitCookies(value) {
		c, err := parseSingleCookie(raw)
		if err != nil {
			return nil, err
		}
		cookies = append(cookies, c)
	}

	return cookies, nil
}

func parseSingleCookie(raw string) (*SetCookie, error) {
	var c *SetCookie
	for _, pair := range rule.SplitQuoted(raw, ';') {
		pair = strings.TrimLeft(pair, " \t")

		key, value, hasValue := pair, "", false
		if m := cookieAttribute.FindStringSubmatch(pair); m != nil {
			key, value, hasValue = m[1], m[3], true
		}

		if c == nil {
			if strings.TrimSpace(key) == "" {
				return nil, errors.Wrapf(http.ErrParse, "cookie without name: %q", raw)
			}
			c = &SetCookie{CookieName: strings.TrimSpace(key), CookieValue: uri.QueryUnescape(value)}
			continue
		}

		attr := strings.NewReplacer("-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(key)))
		switch attr {
		case "expires":
			// Unparseable dates are ignored.
			// Reference: https://datatracker.ietf.org/doc/html/rfc6265#section-5.2.1
			if t, err := ParseDate(value); err == nil && hasValue {
				c.Expires = &t
			}
		case "domain":
			c.Domain = value
		case "path":
			c.Path = value
		case "secure":
			c.Secure = true
		case "httponly":
			c.HttpOnly = true
		case "version":
			if v, err := strconv.Atoi(value); err == nil {
				c.Version = &v
			}
		case "maxage":
			if v, err := strconv.Atoi(value); err == nil {
				c.MaxAge = &v
			}
		}
	}

	if c == nil {
		return nil, errors.Wrap(http.ErrParse, "empty cookie")
	}

	return c, nil
}

func (c *SetCookie) Name() string { return "Set-Cookie" }

func (c *SetCookie) Value() string {
	if c.CookieName == "" {
		return ""
	}

	value := uri.QueryEscape(c.CookieValue, false)
	if c.QuoteValue {
		value = `"` + value + `"`
	}

	b := new(strings.Builder)
	b.WriteString(c.CookieName + "=" + value)
	if c.Version != nil {
		b.WriteString("; Version=" + strconv.Itoa(*c.Version))
	}
	if c.MaxAge != nil {
		b.WriteString("; Max-Age=" + strconv.Itoa(*c.MaxAge))
	}
	if c.Expires != nil {
		b.WriteString("; Expires=" + c.Expires.UTC().Format(cookieDateFormat))
	}
	if c.Domain != "" {
		b.WriteString("; Domain=" + c.Domain)
	}
	if c.Path != "" {
		b.WriteString("; Path=" + c.Path)
	}
	if c.Secure {
		b.WriteString("; Secure")
	}
	if c.HttpOnly {
		b.WriteString("; HttpOnly")
	}
	return b.String()
}

func (c *SetCookie) String() string { return format(c) }

// ApplyMaxAge makes Max-Age take precedence over Expires, relative to now.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc6265#section-5.3
func (c *SetCookie) ApplyMaxAge(now time.Time) {
	if c.MaxAge == nil {
		return
	}
	expires := now.Add(time.Duration(*c.MaxAge) * time.Second)
	c.Expires = &expires
}

func (c *SetCookie) IsExpired(now time.Time) bool {
	return c.Expires != nil && c.Expires.Before(now)
}

func (c *SetCookie) IsSessionCookie() bool { return c.Expires == nil }

// IsValidForRequest checks domain, path and the secure flag.
func (c *SetCookie) IsValidForRequest(host, path string, secure bool) bool {
	if c.Domain != "" && !MatchCookieDomain(c.Domain, host) {
		return false
	}
	if c.Path != "" && !MatchCookiePath(c.Path, path) {
		return false
	}
	return !c.Secure || secure
}

// Match reports whether the cookie should be sent to u.
// URIs other than http and https never match.
func (c *SetCookie) Match(u uri.URI, includeSession bool, now time.Time) bool {
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if c.Secure && u.Scheme != "https" {
		return false
	}
	if c.IsExpired(now) {
		return false
	}
	if c.IsSessionCookie() && !includeSession {
		return false
	}
	return MatchCookieDomain(c.Domain, u.Hostname()) && MatchCookiePath(c.Path, u.Path)
}

// Clone returns a deep copy.
func (c *SetCookie) Clone() *SetCookie {
	clone := *c
	if c.Expires != nil {
		t := *c.Expires
		clone.Expires = &t
	}
	if c.MaxAge != nil {
		v := *c.MaxAge
		clone.MaxAge = &v
	}
	if c.Version != nil {
		v := *c.Version
		clone.Version = &v
	}
	return &clone
}

// MatchCookieDomain matches host against the cookie domain on a label boundary.
// A leading dot of the cookie domain is ignored. An empty domain matches any host.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc6265#section-5.1.3
func MatchCookieDomain(cookieDomain, host string) bool {
	cookieDomain = strings.TrimPrefix(strings.ToLower(cookieDomain), ".")
	host = strings.ToLower(host)

	if cookieDomain == "" || cookieDomain == host {
		return true
	}
	return strings.HasSuffix(host, "."+cookieDomain)
}

// MatchCookiePath matches a request path against the cookie path.
// An empty path is "/".
//
// Reference: https://datatracker.ietf.org/doc/html/rfc6265#section-5.1.4
func MatchCookiePath(cookiePath, path string) bool {
	if cookiePath == "" {
		return true
	}
	if path == "" {
		path = "/"
	}

	if cookiePath == path {
		return true
	}
	if !strings.HasPrefix(path, cookiePath) {
		return false
	}
	return strings.HasSuffix(cookiePath, "/") || path[len(cookiePath)] == '/'
}
