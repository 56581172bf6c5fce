package header

import (
	"strings"

	"http-client/application/http"
	"http-client/application/util/rule"

	"github.com/pkg/errors"
)

// Header is a single header field.
// Typed variants live in this package; [*Generic] holds anything else.
type Header interface {
	Name() string
	Value() string
	// String returns "Name: value".
	String() string
}

// Parser parses a whole "Name: value" line.
// A single line may carry more than one header (e.g. folded Set-Cookie).
type Parser func(line string) ([]Header, error)

func single[T Header](parse func(string) (T, error)) Parser {
	return func(line string) ([]Header, error) {
		h, err := parse(line)
		if err != nil {
			return nil, err
		}
		return []Header{h}, nil
	}
}

var registry = map[string]Parser{
	"accept":                single(ParseAccept),
	"acceptcharset":         single(ParseAcceptCharset),
	"acceptencoding":        single(ParseAcceptEncoding),
	"acceptlanguage":        single(ParseAcceptLanguage),
	"age":                   single(ParseAge),
	"allow":                 single(ParseAllow),
	"cachecontrol":          single(ParseCacheControl),
	"contentsecuritypolicy": single(ParseContentSecurityPolicy),
	"contenttype":           single(ParseContentType),
	"cookie":                single(ParseCookie),
	"date":                  single(ParseDateHeader),
	"expires":               single(ParseExpires),
	"location":              single(ParseLocation),
	"contentlocation":       single(ParseContentLocation),
	"origin":                single(ParseOrigin),
	"referer":               single(ParseReferer),
	"setcookie": func(line string) ([]Header, error) {
		cookies, err := ParseSetCookie(line)
		if err != nil {
			return nil, err
		}
		headers := make([]Header, 0, len(cookies))
		for _, c := range cookies {
			headers = append(headers, c)
		}
		return headers, nil
	},
}

// Normalize returns the key a header name is stored under.
// It is lowercased, and '-', '_', ' ', '.' are removed.
func Normalize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', ' ', '.':
			return -1
		}
		if 'A' <= r && r <= 'Z' {
			return r + 'a' - 'A'
		}
		return r
	}, name)
}

// IsKnown reports whether name has a typed variant.
func IsKnown(name string) bool {
	_, ok := registry[Normalize(name)]
	return ok
}

// Parse parses a raw "Name: value" line into typed headers.
// Unknown names produce a [*Generic].
func Parse(line string) ([]Header, error) {
	name, _, err := SplitLine(line)
	if err != nil {
		return nil, err
	}

	if parse, ok := registry[Normalize(name)]; ok {
		return parse(line)
	}

	h, err := ParseGeneric(line)
	if err != nil {
		return nil, err
	}
	return []Header{h}, nil
}

// New is [Parse] of name and value.
func New(name, value string) ([]Header, error) {
	return Parse(name + ": " + value)
}

// SplitLine splits a header line at the first colon.
// The value is trimmed of optional whitespace.
func SplitLine(line string) (name, value string, err error) {
	name, value, found := strings.Cut(line, ":")
	if !found {
		return "", "", errors.Wrap(http.ErrParse, `header must match with the format "name:value"`)
	}

	if err := AssertValidName(name); err != nil {
		return "", "", err
	}

	value = strings.Trim(value, string(rule.OWS))
	if err := AssertValidValue(value); err != nil {
		return "", "", err
	}

	return name, value, nil
}

// splitNamed is [SplitLine] which also checks the name.
func splitNamed(line, want string) (string, error) {
	name, value, err := SplitLine(line)
	if err != nil {
		return "", err
	}
	if !strings.EqualFold(name, want) {
		return "", errors.Wrapf(http.ErrParse, "invalid header line for %s: %q", want, name)
	}
	return value, nil
}

// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.1
func AssertValidName(name string) error {
	if !rule.IsValidToken(name) {
		return errors.Wrapf(http.ErrParse, "header name is not a valid token: %q", name)
	}
	return nil
}

func AssertValidValue(value string) error {
	if !IsValidValue(value) {
		return errors.Wrapf(http.ErrParse, "invalid header value: %q", value)
	}
	return nil
}

// IsValidValue rejects control characters other than HTAB.
func IsValidValue(value string) bool { return rule.IsValidFieldValue(value) }

func format(h Header) string { return h.Name() + ": " + h.Value() }

// Generic is a header without a typed variant.
type Generic struct {
	name, value string
}

var _ Header = (*Generic)(nil)

func NewGeneric(name, value string) (*Generic, error) {
	if err := AssertValidName(name); err != nil {
		return nil, err
	}
	if err := AssertValidValue(value); err != nil {
		return nil, err
	}
	if strings.TrimSpace(value) == "" {
		value = ""
	}
	return &Generic{name: name, value: value}, nil
}

func ParseGeneric(line string) (*Generic, error) {
	name, value, err := SplitLine(line)
	if err != nil {
		return nil, err
	}
	return NewGeneric(name, value)
}

func (g *Generic) Name() string   { return g.name }
func (g *Generic) Value() string  { return g.value }
func (g *Generic) String() string { return format(g) }
