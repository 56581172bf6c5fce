// Package api calls remote APIs described by named request descriptors.
package api

import (
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"http-client/application/http"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	FormatJSON = "json"
	FormatXML  = "xml"
	FormatRaw  = "raw"
)

// Params are the arguments of a call.
type Params map[string]any

// Descriptor describes the request of an API and how its response is read.
type Descriptor struct {
	Method string `yaml:"method"`
	// Path is appended to the base URL, unless it is an absolute http or https URL.
	// "{name}" placeholders are replaced by escaped params.
	Path    string            `yaml:"path"`
	Headers map[string]string `yaml:"headers"`
	Query   map[string]any    `yaml:"query"`
	// Body is sent as is. It takes precedence over params.
	Body   string `yaml:"body"`
	Format string `yaml:"format"`
	// ValidCodes are the statuses decoded as a result. Empty means 200.
	ValidCodes []int `yaml:"valid_codes"`
}

func (d Descriptor) validate() error {
	switch strings.ToLower(d.Format) {
	case "", FormatJSON, FormatXML, FormatRaw:
	default:
		return errors.Wrapf(http.ErrConfiguration, "unknown response format %q", d.Format)
	}
	for _, code := range d.ValidCodes {
		if code < 100 || code > 999 {
			return errors.Wrapf(http.ErrConfiguration, "invalid status code %d", code)
		}
	}
	return nil
}

func (d Descriptor) isValidCode(code int) bool {
	if len(d.ValidCodes) == 0 {
		return code == 200
	}
	return slices.Contains(d.ValidCodes, code)
}

// Builder returns the descriptor of a call made with params.
type Builder func(params Params) (Descriptor, error)

// Registry maps API names to builders. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

// Register sets the builder of name, replacing any previous one.
func (r *Registry) Register(name string, b Builder) error {
	if name == "" {
		return errors.Wrap(http.ErrConfiguration, "api name cannot be empty")
	}
	if b == nil {
		return errors.Wrapf(http.ErrConfiguration, "nil builder for api %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[name] = b
	return nil
}

// RegisterDescriptor registers a descriptor that does not depend on params.
func (r *Registry) RegisterDescriptor(name string, d Descriptor) error {
	if err := d.validate(); err != nil {
		return errors.Wrapf(err, "api %q", name)
	}
	return r.Register(name, func(Params) (Descriptor, error) { return d, nil })
}

// Build returns the descriptor of name for params.
func (r *Registry) Build(name string, params Params) (Descriptor, error) {
	r.mu.RLock()
	b, ok := r.builders[name]
	r.mu.RUnlock()

	if !ok {
		return Descriptor{}, errors.Wrapf(http.ErrConfiguration, "the request description of api %q is empty", name)
	}

	d, err := b(params)
	if err != nil {
		return Descriptor{}, errors.Wrapf(err, "building api %q", name)
	}
	if err := d.validate(); err != nil {
		return Descriptor{}, errors.Wrapf(err, "api %q", name)
	}
	return d, nil
}

func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.builders[name]
	return ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// LoadYAML registers the descriptors of a YAML mapping from names to descriptors.
func (r *Registry) LoadYAML(rd io.Reader) error {
	descriptors := make(map[string]Descriptor)
	if err := yaml.NewDecoder(rd).Decode(&descriptors); err != nil && !errors.Is(err, io.EOF) {
		return errors.Wrapf(http.ErrConfiguration, "decoding api descriptors: %s", err.Error())
	}

	for name, d := range descriptors {
		if err := r.RegisterDescriptor(name, d); err != nil {
			return err
		}
	}
	return nil
}

// LoadDir registers one descriptor per .yaml or .yml file of dir, named after the file.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrapf(http.ErrConfiguration, "the path %q is not valid: %s", dir, err.Error())
	}

	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}

		if err := r.loadFile(filepath.Join(dir, e.Name()), strings.TrimSuffix(e.Name(), ext)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) loadFile(path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(http.ErrConfiguration, err.Error())
	}
	defer f.Close()

	var d Descriptor
	if err := yaml.NewDecoder(f).Decode(&d); err != nil {
		return errors.Wrapf(http.ErrConfiguration, "decoding %q: %s", path, err.Error())
	}
	return r.RegisterDescriptor(name, d)
}
