package header

import (
	"regexp"
	"sort"
	"strings"

	"http-client/application/http"

	"github.com/pkg/errors"
)

// Reference: https://datatracker.ietf.org/doc/html/rfc9111#section-5.2
type CacheControl struct {
	directives map[string]directive
}

// A directive without value has hasValue false (e.g. "no-cache").
type directive struct {
	value    string
	hasValue bool
}

var _ Header = (*CacheControl)(nil)

func NewCacheControl() *CacheControl {
	return &CacheControl{directives: make(map[string]directive)}
}

func ParseCacheControl(line string) (*CacheControl, error) {
	value, err := splitNamed(line, "Cache-Control")
	if err != nil {
		return nil, err
	}

	h := NewCacheControl()
	if err := h.parseValue(value); err != nil {
		return nil, errors.Wrap(http.ErrParse, err.Error())
	}

	return h, nil
}

var (
	directiveName   = regexp.MustCompile(`^[a-zA-Z][a-zA-Z_-]*`)
	directiveQuoted = regexp.MustCompile(`^="[^"]*"`)
	directiveToken  = regexp.MustCompile(`^=[^",\s;]*`)
	directiveSep    = regexp.MustCompile(`^\s*,\s*`)
)

// parseValue walks "directive[=value]" items separated by commas.
func (h *CacheControl) parseValue(value string) error {
	rest := strings.TrimSpace(value)
	if rest == "" {
		return nil
	}

	for {
		name := directiveName.FindString(rest)
		if name == "" {
			return errors.Errorf("expected directive at %q", rest)
		}
		rest = rest[len(name):]

		d := directive{}
		if m := directiveQuoted.FindString(rest); m != "" {
			d = directive{value: m[2 : len(m)-1], hasValue: true}
			rest = rest[len(m):]
		} else if m := directiveToken.FindString(rest); m != "" {
			d = directive{value: strings.TrimRight(m[1:], " \t"), hasValue: true}
			rest = rest[len(m):]
		}
		h.directives[strings.ToLower(name)] = d

		if rest == "" {
			return nil
		}

		sep := directiveSep.FindString(rest)
		if sep == "" {
			return errors.Errorf("expected separator or end at %q", rest)
		}
		rest = rest[len(sep):]
	}
}

func (h *CacheControl) Name() string { return "Cache-Control" }

// Value renders directives sorted by name.
func (h *CacheControl) Value() string {
	names := h.Directives()

	parts := make([]string, 0, len(names))
	for _, name := range names {
		d := h.directives[name]
		if !d.hasValue {
			parts = append(parts, name)
			continue
		}

		value := d.value
		if needsCacheQuote(value) {
			value = `"` + value + `"`
		}
		parts = append(parts, name+"="+value)
	}

	return strings.Join(parts, ", ")
}

func needsCacheQuote(value string) bool {
	for _, c := range value {
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		case c == '.', c == '_', c == '-':
		default:
			return true
		}
	}
	return false
}

func (h *CacheControl) String() string { return format(h) }

func (h *CacheControl) IsEmpty() bool { return len(h.directives) == 0 }

func (h *CacheControl) Has(name string) bool {
	_, ok := h.directives[strings.ToLower(name)]
	return ok
}

// Get returns the directive value. Directives without value return an empty string.
func (h *CacheControl) Get(name string) (string, bool) {
	d, ok := h.directives[strings.ToLower(name)]
	return d.value, ok
}

// Add sets a directive. An empty value adds a directive without value.
func (h *CacheControl) Add(name, value string) error {
	if !directiveName.MatchString(name) || len(directiveName.FindString(name)) != len(name) {
		return errors.Wrapf(http.ErrConfiguration, "invalid cache directive: %q", name)
	}
	if !IsValidValue(value) {
		return errors.Wrapf(http.ErrConfiguration, "invalid cache directive value: %q", value)
	}

	h.directives[strings.ToLower(name)] = directive{value: value, hasValue: value != ""}
	return nil
}

func (h *CacheControl) Remove(name string) { delete(h.directives, strings.ToLower(name)) }

// Directives returns directive names, sorted.
func (h *CacheControl) Directives() []string {
	names := make([]string, 0, len(h.directives))
	for name := range h.directives {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
