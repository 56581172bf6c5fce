package semantic

import (
	"regexp"
	"strings"

	"http-client/application/http"
	"http-client/application/http/header"

	"github.com/pkg/errors"
)

// Headers is an ordered collection of typed headers.
// Names are compared by [header.Normalize], so "Content-Type" and "content_type" collide.
// Every name maps to a list; a single value is a list of length 1.
type Headers struct {
	order   []string
	entries map[string][]header.Header
}

func NewHeaders() *Headers {
	return &Headers{entries: make(map[string][]header.Header)}
}

var (
	headerLineRegexp   = regexp.MustCompile(`^[^()><@,;:"\\/\[\]?={} \t]+:`)
	continuationRegexp = regexp.MustCompile(`^[ \t][^\r\n]*$`)
	blankLineRegexp    = regexp.MustCompile(`^\s*$`)
)

// ParseHeaders parses a raw header block.
// Lines are separated by CRLF, or by LF when the block has no CRLF at all.
// A line starting with SP or HTAB continues the previous one.
// At most two blank lines may end the block, and nothing may follow them.
func ParseHeaders(raw string) (*Headers, error) {
	sep := "\r\n"
	if !strings.Contains(raw, sep) && strings.Contains(raw, "\n") {
		sep = "\n"
	}

	h := NewHeaders()
	current, emptyLines := "", 0
	for _, line := range strings.Split(raw, sep) {
		switch {
		case blankLineRegexp.MatchString(line):
			emptyLines++
			if emptyLines > 2 {
				return nil, errors.Wrap(http.ErrParse, "malformed header: too many empty lines")
			}
			continue
		case emptyLines > 0:
			return nil, errors.Wrapf(http.ErrParse, "malformed header: line after empty line: %q", line)
		case headerLineRegexp.MatchString(line):
			if current != "" {
				if err := h.AddLine(current); err != nil {
					return nil, err
				}
			}
			current = strings.TrimSpace(line)
		case continuationRegexp.MatchString(line):
			if current == "" {
				return nil, errors.Wrapf(http.ErrParse, "malformed header: continuation without header: %q", line)
			}
			current += strings.TrimSpace(line)
		default:
			return nil, errors.Wrapf(http.ErrParse, "malformed header: line does not match header format: %q", line)
		}
	}

	if current != "" {
		if err := h.AddLine(current); err != nil {
			return nil, err
		}
	}

	return h, nil
}

// HeadersFromFields parses fields read off the wire.
func HeadersFromFields(fields []http.Field) (*Headers, error) {
	h := NewHeaders()
	for _, f := range fields {
		if err := h.AddRaw(string(f.Name), string(f.Value)); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Get returns the first header of name.
// For list-based field, use [Headers.Values].
func (h *Headers) Get(name string) (header.Header, bool) {
	values := h.entries[header.Normalize(name)]
	if len(values) == 0 {
		return nil, false
	}
	return values[0], true
}

// GetValue returns the value of the first header of name.
func (h *Headers) GetValue(name string) (string, bool) {
	v, ok := h.Get(name)
	if !ok {
		return "", false
	}
	return v.Value(), true
}

func (h *Headers) Values(name string) []header.Header {
	values := h.entries[header.Normalize(name)]
	out := make([]header.Header, len(values))
	copy(out, values)
	return out
}

func (h *Headers) Has(name string) bool {
	return len(h.entries[header.Normalize(name)]) > 0
}

func (h *Headers) Add(v header.Header) {
	key := header.Normalize(v.Name())
	if _, ok := h.entries[key]; !ok {
		h.order = append(h.order, key)
	}
	h.entries[key] = append(h.entries[key], v)
}

// Set replaces every header of the same name with v.
func (h *Headers) Set(v header.Header) {
	h.Del(v.Name())
	h.Add(v)
}

// AddLine parses a "Name: value" line and adds every header it carries.
func (h *Headers) AddLine(line string) error {
	values, err := header.Parse(line)
	if err != nil {
		return errors.Wrapf(err, "parsing header line %q", line)
	}
	for _, v := range values {
		h.Add(v)
	}
	return nil
}

func (h *Headers) AddRaw(name, value string) error {
	return h.AddLine(name + ": " + value)
}

// SetRaw is [Headers.Set] for a raw name and value.
func (h *Headers) SetRaw(name, value string) error {
	values, err := header.New(name, value)
	if err != nil {
		return errors.Wrapf(err, "parsing header %q", name)
	}

	h.Del(name)
	for _, v := range values {
		h.Add(v)
	}
	return nil
}

// Remove removes v itself, reporting whether it was present.
func (h *Headers) Remove(v header.Header) bool {
	key := header.Normalize(v.Name())
	values := h.entries[key]
	for i := range values {
		if values[i] != v {
			continue
		}

		values = append(values[:i:i], values[i+1:]...)
		if len(values) == 0 {
			h.Del(key)
		} else {
			h.entries[key] = values
		}
		return true
	}
	return false
}

func (h *Headers) Del(name string) {
	key := header.Normalize(name)
	if _, ok := h.entries[key]; !ok {
		return
	}

	delete(h.entries, key)
	for i := range h.order {
		if h.order[i] == key {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Len is the number of distinct names.
func (h *Headers) Len() int { return len(h.order) }

// Each calls fn for every header in order, until fn returns false.
func (h *Headers) Each(fn func(v header.Header) bool) {
	for _, key := range h.order {
		for _, v := range h.entries[key] {
			if !fn(v) {
				return
			}
		}
	}
}

// Clone copies the collection. Headers themselves are shared.
func (h *Headers) Clone() *Headers {
	clone := NewHeaders()
	clone.order = append(clone.order, h.order...)
	for k, v := range h.entries {
		clone.entries[k] = append([]header.Header(nil), v...)
	}
	return clone
}

// ToMap groups values by the display name of their first header.
func (h *Headers) ToMap() map[string][]string {
	m := make(map[string][]string, len(h.order))
	for _, key := range h.order {
		values := h.entries[key]
		name := values[0].Name()
		for _, v := range values {
			m[name] = append(m[name], v.Value())
		}
	}
	return m
}

// Fields converts the collection into wire fields, one per header.
func (h *Headers) Fields() []http.Field {
	fields := make([]http.Field, 0, len(h.order))
	h.Each(func(v header.Header) bool {
		fields = append(fields, http.NewField(v.Name(), v.Value()))
		return true
	})
	return fields
}

// String renders "Name: value\r\n" per header. Repeated names are not folded.
func (h *Headers) String() string {
	b := new(strings.Builder)
	h.Each(func(v header.Header) bool {
		b.WriteString(v.Name() + ": " + v.Value() + "\r\n")
		return true
	})
	return b.String()
}
