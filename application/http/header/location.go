package header

import (
	"http-client/application/http"
	"http-client/application/util/uri"

	"github.com/pkg/errors"
)

type locationHeader struct {
	name string
	uri  uri.URI
}

func (h *locationHeader) Name() string   { return h.name }
func (h *locationHeader) Value() string  { return h.uri.String() }
func (h *locationHeader) String() string { return h.Name() + ": " + h.Value() }

// URI returns a copy of the URI.
func (h *locationHeader) URI() uri.URI { return h.uri.Clone() }

func (h *locationHeader) SetURI(u uri.URI) { h.uri = u.Clone() }

// IsRelative reports whether the URI lacks a scheme.
func (h *locationHeader) IsRelative() bool { return h.uri.IsRelativeRef() }

func (h *locationHeader) parse(line string) error {
	value, err := splitNamed(line, h.name)
	if err != nil {
		return err
	}

	u, err := uri.Parse(value)
	if err != nil {
		return errors.Wrapf(http.ErrParse, "invalid URI %q: %s", value, err)
	}

	h.uri = u
	return nil
}

// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-10.2.2
type Location struct{ locationHeader }

var _ Header = (*Location)(nil)

func NewLocation(u uri.URI) *Location {
	return &Location{locationHeader{name: "Location", uri: u.Clone()}}
}

func ParseLocation(line string) (*Location, error) {
	h := &Location{locationHeader{name: "Location"}}
	if err := h.parse(line); err != nil {
		return nil, err
	}
	return h, nil
}

// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-8.7
type ContentLocation struct{ locationHeader }

var _ Header = (*ContentLocation)(nil)

func NewContentLocation(u uri.URI) *ContentLocation {
	return &ContentLocation{locationHeader{name: "Content-Location", uri: u.Clone()}}
}

func ParseContentLocation(line string) (*ContentLocation, error) {
	h := &ContentLocation{locationHeader{name: "Content-Location"}}
	if err := h.parse(line); err != nil {
		return nil, err
	}
	return h, nil
}

// Referer never carries a fragment.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-10.1.3
type Referer struct{ locationHeader }

var _ Header = (*Referer)(nil)

func NewReferer(u uri.URI) *Referer {
	h := &Referer{locationHeader{name: "Referer"}}
	h.SetURI(u)
	return h
}

func ParseReferer(line string) (*Referer, error) {
	h := &Referer{locationHeader{name: "Referer"}}
	if err := h.parse(line); err != nil {
		return nil, err
	}
	h.uri.Fragment = nil
	return h, nil
}

func (h *Referer) SetURI(u uri.URI) {
	h.locationHeader.SetURI(u)
	h.uri.Fragment = nil
}

// Reference: https://datatracker.ietf.org/doc/html/rfc6454#section-7
type Origin struct {
	value string
}

var _ Header = (*Origin)(nil)

func NewOrigin(value string) (*Origin, error) {
	if err := AssertValidValue(value); err != nil {
		return nil, err
	}
	if value != "null" {
		u, err := uri.Parse(value)
		if err != nil {
			return nil, errors.Wrapf(http.ErrParse, "invalid origin %q: %s", value, err)
		}
		if err := u.IsValid(); err != nil {
			return nil, errors.Wrapf(http.ErrParse, "invalid origin %q: %s", value, err)
		}
	}
	return &Origin{value: value}, nil
}

func ParseOrigin(line string) (*Origin, error) {
	value, err := splitNamed(line, "Origin")
	if err != nil {
		return nil, err
	}
	return NewOrigin(value)
}

func (h *Origin) Name() string   { return "Origin" }
func (h *Origin) Value() string  { return h.value }
func (h *Origin) String() string { return format(h) }
