package semantic

import (
	"strings"

	"http-client/application/http"

	"github.com/pkg/errors"
)

type Method string

const (
	MethodGet     Method = "GET"
	MethodHead    Method = "HEAD"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodConnect Method = "CONNECT"
	MethodOptions Method = "OPTIONS"
	MethodTrace   Method = "TRACE"
	MethodPatch   Method = "PATCH"
)

// Methods returns every supported method.
func Methods() []Method {
	return []Method{
		MethodOptions, MethodGet, MethodHead, MethodPost, MethodPut,
		MethodDelete, MethodTrace, MethodConnect, MethodPatch,
	}
}

// ParseMethod accepts a supported method in any case.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(s))
	if !m.IsValid() {
		return "", errors.Wrapf(http.ErrConfiguration, "invalid http method: %q", s)
	}
	return m, nil
}

func (m Method) IsValid() bool {
	for _, known := range Methods() {
		if m == known {
			return true
		}
	}
	return false
}

// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-9.2.1-3
func DefaultSafeMethods() []Method {
	return []Method{
		MethodGet, MethodHead, MethodOptions, MethodTrace,
	}
}

// IsSafe reports whether the method is read-only by definition.
func (m Method) IsSafe() bool {
	for _, safe := range DefaultSafeMethods() {
		if m == safe {
			return true
		}
	}
	return false
}
