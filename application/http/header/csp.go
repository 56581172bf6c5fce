package header

import (
	"slices"
	"strings"

	"http-client/application/http"

	"github.com/pkg/errors"
)

var cspDirectives = []string{
	"default-src", "script-src", "object-src", "style-src", "img-src",
	"media-src", "frame-src", "font-src", "connect-src", "sandbox", "report-uri",
}

// Reference: https://www.w3.org/TR/CSP/
type ContentSecurityPolicy struct {
	order      []string
	directives map[string]string
}

var _ Header = (*ContentSecurityPolicy)(nil)

func NewContentSecurityPolicy() *ContentSecurityPolicy {
	return &ContentSecurityPolicy{directives: make(map[string]string)}
}

func ParseContentSecurityPolicy(line string) (*ContentSecurityPolicy, error) {
	value, err := splitNamed(line, "Content-Security-Policy")
	if err != nil {
		return nil, err
	}

	h := NewContentSecurityPolicy()
	for _, token := range strings.Split(value, ";") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		name, sources, _ := strings.Cut(token, " ")
		if _, ok := h.directives[name]; ok {
			// First one wins.
			continue
		}
		if err := h.SetDirective(name, sources); err != nil {
			return nil, errors.Wrap(http.ErrParse, err.Error())
		}
	}

	return h, nil
}

// SetDirective sets sources of a directive.
// No sources means 'none', except for report-uri which is removed instead.
func (h *ContentSecurityPolicy) SetDirective(name string, sources ...string) error {
	if !slices.Contains(cspDirectives, name) {
		return errors.Wrapf(http.ErrConfiguration, "invalid directive name: %q", name)
	}

	if len(sources) == 0 {
		if name == "report-uri" {
			h.remove(name)
			return nil
		}
		h.put(name, "'none'")
		return nil
	}

	for _, s := range sources {
		if !IsValidValue(s) {
			return errors.Wrapf(http.ErrConfiguration, "invalid source: %q", s)
		}
	}
	h.put(name, strings.Join(sources, " "))
	return nil
}

func (h *ContentSecurityPolicy) put(name, value string) {
	if _, ok := h.directives[name]; !ok {
		h.order = append(h.order, name)
	}
	h.directives[name] = value
}

func (h *ContentSecurityPolicy) remove(name string) {
	delete(h.directives, name)
	h.order = slices.DeleteFunc(h.order, func(n string) bool { return n == name })
}

// Directive returns sources of a directive, separated by spaces.
func (h *ContentSecurityPolicy) Directive(name string) (string, bool) {
	v, ok := h.directives[name]
	return v, ok
}

func (h *ContentSecurityPolicy) Name() string { return "Content-Security-Policy" }

func (h *ContentSecurityPolicy) Value() string {
	parts := make([]string, 0, len(h.order))
	for _, name := range h.order {
		if v := h.directives[name]; v != "" {
			parts = append(parts, name+" "+v+";")
		} else {
			parts = append(parts, name+";")
		}
	}
	return strings.Join(parts, " ")
}

func (h *ContentSecurityPolicy) String() string { return format(h) }
