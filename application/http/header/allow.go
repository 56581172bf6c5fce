package header

import (
	"strings"

	"http-client/application/http"

	"github.com/pkg/errors"
)

var allowMethods = []string{
	"OPTIONS", "GET", "HEAD", "POST", "PUT", "DELETE", "TRACE", "CONNECT", "PATCH",
}

// Allow lists methods supported by the target resource.
// A new header allows GET and POST.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-10.2.1
type Allow struct {
	order   []string
	allowed map[string]bool
}

var _ Header = (*Allow)(nil)

func NewAllow() *Allow {
	h := &Allow{allowed: make(map[string]bool)}
	for _, m := range allowMethods {
		h.order = append(h.order, m)
		h.allowed[m] = false
	}
	h.allowed["GET"], h.allowed["POST"] = true, true
	return h
}

func ParseAllow(line string) (*Allow, error) {
	value, err := splitNamed(line, "Allow")
	if err != nil {
		return nil, err
	}

	h := NewAllow()
	if err := h.DisallowMethods(h.order...); err != nil {
		return nil, err
	}

	methods := make([]string, 0)
	for _, m := range strings.Split(value, ",") {
		if m = strings.TrimSpace(m); m != "" {
			methods = append(methods, m)
		}
	}
	if err := h.AllowMethods(methods...); err != nil {
		return nil, errors.Wrap(http.ErrParse, err.Error())
	}

	return h, nil
}

func (h *Allow) Name() string { return "Allow" }

func (h *Allow) Value() string { return strings.Join(h.AllowedMethods(), ", ") }

func (h *Allow) String() string { return format(h) }

func (h *Allow) AllowedMethods() []string {
	methods := make([]string, 0)
	for _, m := range h.order {
		if h.allowed[m] {
			methods = append(methods, m)
		}
	}
	return methods
}

func (h *Allow) AllowMethods(methods ...string) error { return h.set(methods, true) }

func (h *Allow) DisallowMethods(methods ...string) error { return h.set(methods, false) }

func (h *Allow) set(methods []string, allowed bool) error {
	for _, m := range methods {
		m = strings.ToUpper(strings.TrimSpace(m))
		if m == "" || strings.ContainsAny(m, " \t\r\n") {
			return errors.Wrapf(http.ErrConfiguration, "%q is not a valid method", m)
		}
		if _, ok := h.allowed[m]; !ok {
			h.order = append(h.order, m)
		}
		h.allowed[m] = allowed
	}
	return nil
}

func (h *Allow) IsAllowed(method string) bool {
	return h.allowed[strings.ToUpper(strings.TrimSpace(method))]
}
