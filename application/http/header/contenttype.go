package header

import (
	"regexp"
	"strings"

	"http-client/application/http"

	"github.com/pkg/errors"
)

// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-8.3
type ContentType struct {
	mediaType string
	params    []Param

	// raw is kept until the header is modified.
	raw string
}

var _ Header = (*ContentType)(nil)

func NewContentType(mediaType string, params ...Param) (*ContentType, error) {
	h := &ContentType{}
	if err := h.SetMediaType(mediaType); err != nil {
		return nil, err
	}
	if err := h.SetParams(params...); err != nil {
		return nil, err
	}
	return h, nil
}

var contentTypeParam = regexp.MustCompile(`^([^\s=]+)="?([^\s"]*)"?$`)

func ParseContentType(line string) (*ContentType, error) {
	value, err := splitNamed(line, "Content-Type")
	if err != nil {
		return nil, err
	}

	parts := strings.Split(value, ";")
	h := &ContentType{
		mediaType: strings.ToLower(strings.TrimSpace(parts[0])),
		raw:       value,
	}

	for _, part := range parts[1:] {
		m := contentTypeParam.FindStringSubmatch(strings.TrimSpace(part))
		if m == nil {
			continue
		}
		h.setParam(m[1], m[2])
	}

	return h, nil
}

func (h *ContentType) Name() string { return "Content-Type" }

func (h *ContentType) Value() string {
	if h.raw != "" {
		return h.raw
	}

	if len(h.params) == 0 {
		return h.mediaType
	}

	parts := make([]string, 0, len(h.params))
	for _, p := range h.params {
		parts = append(parts, p.Key+"="+p.Value)
	}
	return h.mediaType + "; " + strings.Join(parts, "; ")
}

func (h *ContentType) String() string { return format(h) }

// MediaType is the lowercased type without parameters (e.g. "text/html").
func (h *ContentType) MediaType() string { return h.mediaType }

func (h *ContentType) SetMediaType(mediaType string) error {
	if !IsValidValue(mediaType) {
		return errors.Wrapf(http.ErrConfiguration, "invalid media type: %q", mediaType)
	}
	h.mediaType = strings.ToLower(mediaType)
	h.raw = ""
	return nil
}

func (h *ContentType) Params() []Param {
	out := make([]Param, len(h.params))
	copy(out, h.params)
	return out
}

func (h *ContentType) Param(key string) (string, bool) { return lookupParam(h.params, key) }

// SetParams merges params into existing ones.
func (h *ContentType) SetParams(params ...Param) error {
	for _, p := range params {
		if !IsValidValue(p.Key) || !IsValidValue(p.Value) {
			return errors.Wrapf(http.ErrConfiguration, "invalid parameter: %q=%q", p.Key, p.Value)
		}
	}
	for _, p := range params {
		h.setParam(p.Key, p.Value)
	}
	if len(params) > 0 {
		h.raw = ""
	}
	return nil
}

func (h *ContentType) setParam(key, value string) {
	for i := range h.params {
		if h.params[i].Key == key {
			h.params[i].Value = value
			return
		}
	}
	h.params = append(h.params, Param{Key: key, Value: value})
}

// Charset returns the charset parameter, or an empty string.
func (h *ContentType) Charset() string {
	charset, _ := h.Param("charset")
	return charset
}

func (h *ContentType) SetCharset(charset string) error {
	return h.SetParams(Param{Key: "charset", Value: charset})
}

type mediaTypeParts struct{ typ, subtype, format string }

func splitMediaType(s string) (mediaTypeParts, bool) {
	typ, subtype, found := strings.Cut(s, "/")
	if !found {
		return mediaTypeParts{}, false
	}

	parts := mediaTypeParts{typ: typ, subtype: subtype, format: subtype}
	if s, f, found := strings.Cut(subtype, "+"); found {
		parts.subtype, parts.format = s, f
	}
	return parts, true
}

// Match returns the first of candidates (a comma separated list) matching the media type.
// Candidates may use wildcards: "*/*", "application/*", "application/*+json"
// and partial wildcards like "application/vnd.*".
func (h *ContentType) Match(candidates string) (string, bool) {
	list := strings.Split(candidates, ",")
	for i := range list {
		list[i] = strings.TrimSpace(list[i])
	}
	return h.MatchAny(list)
}

func (h *ContentType) MatchAny(candidates []string) (string, bool) {
	left, ok := splitMediaType(h.mediaType)

	for _, candidate := range candidates {
		candidate = strings.ToLower(candidate)
		if candidate == h.mediaType {
			return candidate, true
		}
		if !ok {
			continue
		}

		right, valid := splitMediaType(candidate)
		if !valid {
			continue
		}

		if (right.typ == "*" || right.typ == left.typ) && matchSubtype(right, left) {
			return candidate, true
		}
	}

	return "", false
}

func matchSubtype(right, left mediaTypeParts) bool {
	switch {
	case right.subtype == "*", right.subtype == left.subtype:
		return matchFormat(right, left)
	case strings.HasSuffix(right.subtype, "*"):
		if !matchPartialWildcard(right.subtype, left.subtype) {
			return false
		}
		// "vnd.*" without "+format" accepts any format.
		return right.format == right.subtype || matchFormat(right, left)
	case right.subtype == left.format:
		return true
	}
	return false
}

func matchFormat(right, left mediaTypeParts) bool {
	if right.format == "" || left.format == "" {
		return true
	}
	return right.format == "*" || right.format == left.format
}

func matchPartialWildcard(right, left string) bool {
	required := strings.TrimSuffix(right, "*")
	if required == left {
		return true
	}
	if len(required) >= len(left) {
		return false
	}
	return strings.HasPrefix(left, required)
}
