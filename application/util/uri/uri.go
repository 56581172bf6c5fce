package uri

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// URI is a parsed URI reference.
//
// Path, host and userinfo are kept unescaped.
// Query is kept in its escaped form, since splitting it into parameters
// must happen before percent-decoding.
type URI struct {
	Scheme    string
	Authority *Authority
	Path      string
	Query     *string
	Fragment  *string
}

type Authority struct {
	UserInfo string
	Host     string

	// NOTE: Port can be digits of any length. But practically it is in range of 0 ~ 65535.
	// Reference: datatracker.ietf.org/doc/html/rfc3986#section-3.2.3
	Port *uint16
}

// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-4.2
func (u *URI) IsRelativeRef() bool {
	return u.Scheme == ""
}

// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-4.3
func (u *URI) IsAbsoluteURI() bool {
	return u.Scheme != "" && u.Fragment == nil
}

func (u *URI) IsValid() error {
	if u.Scheme != "" {
		if err := assertValidScheme(u.Scheme); err != nil {
			return errors.Wrap(err, "scheme is not valid")
		}
	}

	if u.Authority != nil {
		if err := AssertValidHost(u.Authority.Host); err != nil {
			return errors.Wrap(err, "host is not valid")
		}
	}

	hasAuthority := u.Authority != nil
	if hasAuthority && !(u.Path == "" || u.Path[0] == '/') {
		return errors.New("URI with authority must either have empty path or start with '/'")
	}

	if u.Query != nil && !isQueryFragValid(*u.Query) {
		return errors.New("query is not valid")
	}

	return nil
}

// Host returns the host of the authority, or an empty string.
func (u *URI) Host() string {
	if u.Authority == nil {
		return ""
	}
	return u.Authority.Host
}

// Hostname is the host without IP literal brackets.
func (u *URI) Hostname() string {
	return strings.TrimSuffix(strings.TrimPrefix(u.Host(), "["), "]")
}

// Port returns the explicit port, or the default port of the scheme.
func (u *URI) Port() uint16 {
	if u.Authority != nil && u.Authority.Port != nil {
		return *u.Authority.Port
	}
	return DefaultPort(u.Scheme)
}

// HasDefaultPort reports whether the effective port is the default of the scheme.
func (u *URI) HasDefaultPort() bool {
	return u.Port() == DefaultPort(u.Scheme)
}

func (u *URI) SetPort(port uint16) {
	if u.Authority == nil {
		u.Authority = &Authority{}
	}
	u.Authority.Port = &port
}

// RawQuery returns the escaped query, or an empty string.
func (u *URI) RawQuery() string {
	if u.Query == nil {
		return ""
	}
	return *u.Query
}

func (u *URI) SetRawQuery(q string) {
	if q == "" {
		u.Query = nil
		return
	}
	u.Query = &q
}

// RequestTarget returns origin-form of the URI.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3.2.1
func (u *URI) RequestTarget() string {
	b := new(strings.Builder)
	path := escape(u.Path, encodePath)
	if path == "" {
		path = "/"
	}
	b.WriteString(path)
	if u.Query != nil {
		b.WriteByte('?')
		b.WriteString(escape(*u.Query, encodeQuery))
	}
	return b.String()
}

// Clone returns a deep copy of the URI.
func (u URI) Clone() URI {
	if u.Authority != nil {
		a := *u.Authority
		if a.Port != nil {
			p := *a.Port
			a.Port = &p
		}
		u.Authority = &a
	}
	if u.Query != nil {
		q := *u.Query
		u.Query = &q
	}
	if u.Fragment != nil {
		f := *u.Fragment
		u.Fragment = &f
	}
	return u
}

// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-5.3
func (u *URI) String() string {
	b := new(strings.Builder)
	if u.Scheme != "" {
		b.WriteString(u.Scheme)
		b.WriteByte(':')
	}

	if u.Authority != nil {
		b.WriteString("//")
		if u.Authority.UserInfo != "" {
			b.WriteString(escape(u.Authority.UserInfo, encodeUserInfo))
			b.WriteByte('@')
		}
		b.WriteString(escape(u.Authority.Host, encodeHost))
		if u.Authority.Port != nil {
			rawPort := strconv.FormatUint(uint64(*u.Authority.Port), 10)
			b.WriteRune(':')
			b.WriteString(rawPort)
		}
	}

	b.WriteString(escape(u.Path, encodePath))

	if u.Query != nil {
		b.WriteByte('?')
		b.WriteString(escape(*u.Query, encodeQuery))
	}

	if u.Fragment != nil {
		b.WriteByte('#')
		b.WriteString(escape(*u.Fragment, encodeFragment))
	}

	return b.String()
}

func DefaultPort(scheme string) uint16 {
	switch strings.ToLower(scheme) {
	case "http":
		return 80
	case "https":
		return 443
	}
	return 0
}

func Parse(rawURL string) (URI, error) {
	if containsCTL(rawURL) {
		return URI{}, errors.New("URI should not contain CTL bytes")
	}

	var uri URI

	// Get scheme
	scheme, rest, err := cutScheme(rawURL)
	if err != nil {
		return URI{}, errors.Wrap(err, "getting scheme")
	}
	// Scheme is recommended to be lowercase.
	uri.Scheme = strings.ToLower(scheme)

	if strings.HasPrefix(rest, "//") {
		var authorityRaw string
		authorityRaw, rest = rest[2:], ""
		if i := strings.IndexAny(authorityRaw, "/?#"); i >= 0 {
			authorityRaw, rest = authorityRaw[:i], authorityRaw[i:]
		}

		authority, err := parseAuthority(authorityRaw)
		if err != nil {
			return URI{}, errors.Wrap(err, "parsing authority")
		}

		uri.Authority = &authority
	}

	path, query, frag := splitPathQueryFrag(rest)

	hasAuthority := uri.Authority != nil
	if err := assertValidPath(path, hasAuthority, uri.IsRelativeRef()); err != nil {
		return URI{}, errors.Wrap(err, "path is not valid")
	}
	uri.Path, err = unescape(path)
	if err != nil {
		return URI{}, errors.Wrap(err, "unescaping path")
	}

	if len(query) > 0 {
		// Strip '?' from query.
		query = query[1:]
		if !isQueryFragValid(query) {
			return URI{}, errors.New("query is not valid")
		}
		uri.Query = &query
	}

	if len(frag) > 0 {
		// Strip '#' from fragment.
		frag = frag[1:]
		if !isQueryFragValid(frag) {
			return URI{}, errors.New("frag is not valid")
		}

		if frag, err = unescape(frag); err != nil {
			return URI{}, errors.Wrap(err, "unescaping fragment")
		}
		uri.Fragment = &frag
	}

	return uri, nil
}

// cutScheme cuts scheme from rawURL. If scheme is not valid, it returns an error.
func cutScheme(rawURL string) (scheme, rest string, err error) {
	before, after, found := strings.Cut(rawURL, ":")
	if !found || strings.ContainsAny(before, "/?#") {
		// Colon belongs to path, query or fragment. There is no scheme.
		return "", rawURL, nil
	}

	scheme, rest = before, after
	if err := assertValidScheme(scheme); err != nil {
		return "", "", err
	}

	return scheme, rest, nil
}

func parseAuthority(raw string) (authority Authority, err error) {
	var userInfo, host string
	if i := strings.LastIndex(raw, "@"); i >= 0 {
		userInfo, host = raw[:i], raw[i+1:]
	} else {
		host = raw
	}

	if userInfo != "" {
		if !isValidUserInfo(userInfo) {
			return Authority{}, errors.New("user information is not valid")
		}
		authority.UserInfo, err = unescape(userInfo)
		if err != nil {
			return Authority{}, errors.Wrap(err, "unescaping user information")
		}
	}

	host, portPart, err := getHostPort(host)
	if err != nil {
		return Authority{}, errors.Wrap(err, "parsing host")
	}

	port, hasPort, err := ParsePort(portPart)
	if err != nil {
		return Authority{}, errors.Wrap(err, "parsing port")
	}

	if hasPort {
		authority.Port = &port
	}

	if authority.Host, err = unescape(host); err != nil {
		return Authority{}, errors.Wrap(err, "unescaping host")
	}
	authority.Host = strings.ToLower(authority.Host)

	return authority, nil
}

func getHostPort(raw string) (host string, portPart string, err error) {
	if strings.HasPrefix(raw, "[") {
		// This is IP Literal.
		idx := strings.LastIndex(raw, "]")
		if idx < 0 {
			return "", "", errors.New("missing ']' in IP Literal")
		}

		host = raw[:idx+1]
		portPart = raw[idx+1:]
	} else {
		// ipv4 or reg-name.
		host = raw
		if idx := strings.LastIndex(raw, ":"); idx >= 0 {
			host = raw[:idx]
			portPart = raw[idx:]
		}
	}

	if err := AssertValidHost(host); err != nil {
		return "", "", errors.Wrap(err, "host is not valid")
	}

	return host, portPart, nil
}

// ParsePort parses ":port". An empty string means there is no port.
// This is not the same rule as RFC. See [Authority].
func ParsePort(s string) (port uint16, hasPort bool, err error) {
	if s == "" || s == ":" {
		return 0, false, nil
	}

	if s[0] != ':' {
		return 0, false, errors.New("colon delimiter not found on port")
	}

	s = s[1:]

	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, false, errors.Wrap(err, "failed to parse uint")
	}

	return uint16(n), true, nil
}

func splitPathQueryFrag(raw string) (path, query, frag string) {
	if idx := strings.IndexByte(raw, '#'); idx >= 0 {
		frag = raw[idx:]
		raw = raw[:idx]
	}

	if idx := strings.IndexByte(raw, '?'); idx >= 0 {
		query = raw[idx:]
		raw = raw[:idx]
	}

	path = raw
	return
}
