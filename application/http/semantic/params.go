package semantic

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"http-client/application/http"
	"http-client/application/util/uri"

	"github.com/pkg/errors"
)

// Params is an ordered parameter set, as sent in a query or a form.
// A value is either a string or a nested *Params. Lists are nested
// params with integer keys.
type Params struct {
	keys      []string
	values    map[string]any
	nextIndex int
}

// Pair is a flattened parameter.
type Pair struct{ Key, Value string }

func NewParams() *Params {
	return &Params{values: make(map[string]any)}
}

// ParamsFromMap converts m. Keys are sorted, since map order is random.
func ParamsFromMap(m map[string]any) (*Params, error) {
	p := NewParams()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := p.Set(k, m[k]); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func toParamValue(v any) (any, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case bool:
		if v {
			return "1", nil
		}
		return "0", nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(v), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case *Params:
		return v, nil
	case []string:
		list := NewParams()
		for _, item := range v {
			list.Append(item)
		}
		return list, nil
	case []any:
		list := NewParams()
		for _, item := range v {
			if err := list.Append(item); err != nil {
				return nil, err
			}
		}
		return list, nil
	case map[string]string:
		converted := make(map[string]any, len(v))
		for k, item := range v {
			converted[k] = item
		}
		return ParamsFromMap(converted)
	case map[string]any:
		return ParamsFromMap(v)
	case fmt.Stringer:
		return v.String(), nil
	}
	return nil, errors.Wrapf(http.ErrConfiguration, "unsupported parameter value type %T", v)
}

// Set replaces the value of key.
// Strings, numbers, booleans, slices, maps and *Params are accepted.
func (p *Params) Set(key string, value any) error {
	converted, err := toParamValue(value)
	if err != nil {
		return errors.Wrapf(err, "parameter %q", key)
	}
	p.put(key, converted)
	return nil
}

func (p *Params) put(key string, value any) {
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value

	if n, err := strconv.Atoi(key); err == nil && n >= p.nextIndex {
		p.nextIndex = n + 1
	}
}

// Append adds value under the next integer key.
func (p *Params) Append(value any) error {
	return p.Set(strconv.Itoa(p.nextIndex), value)
}

// Add appends value to the list under key, turning a single value into a list.
func (p *Params) Add(key, value string) {
	switch existing := p.values[key].(type) {
	case *Params:
		existing.Append(value)
	case string:
		list := NewParams()
		list.Append(existing)
		list.Append(value)
		p.put(key, list)
	default:
		list := NewParams()
		list.Append(value)
		p.put(key, list)
	}
}

// Get returns a string or a *Params.
func (p *Params) Get(key string) (any, bool) {
	v, ok := p.values[key]
	return v, ok
}

// GetString returns the value of key when it is a string.
func (p *Params) GetString(key string) (string, bool) {
	v, ok := p.values[key].(string)
	return v, ok
}

func (p *Params) Del(key string) {
	if _, ok := p.values[key]; !ok {
		return
	}
	delete(p.values, key)
	for i := range p.keys {
		if p.keys[i] == key {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			break
		}
	}
}

func (p *Params) Len() int { return len(p.keys) }

func (p *Params) IsEmpty() bool { return p == nil || len(p.keys) == 0 }

func (p *Params) Keys() []string { return append([]string(nil), p.keys...) }

// Clone copies p and every nested params.
func (p *Params) Clone() *Params {
	clone := NewParams()
	for _, k := range p.keys {
		v := p.values[k]
		if nested, ok := v.(*Params); ok {
			v = nested.Clone()
		}
		clone.put(k, v)
	}
	clone.nextIndex = p.nextIndex
	return clone
}

// Merge sets every parameter of other into p.
func (p *Params) Merge(other *Params) {
	for _, k := range other.keys {
		p.put(k, other.values[k])
	}
}

// Encode builds a form-urlencoded string.
// Nested values are written with bracketed keys: "a[b]=1&a[0]=x".
func (p *Params) Encode(sep string, rfc3986 bool) string {
	if sep == "" {
		sep = "&"
	}

	parts := make([]string, 0, len(p.keys))
	p.walk("", false, func(key, value string) {
		parts = append(parts, uri.QueryEscape(key, rfc3986)+"="+uri.QueryEscape(value, rfc3986))
	})
	return strings.Join(parts, sep)
}

// Flatten returns leaves with bracketed keys. Integer keys of nested lists
// are written as "a[]", as forms expect.
func (p *Params) Flatten() []Pair {
	pairs := make([]Pair, 0, len(p.keys))
	p.walk("", true, func(key, value string) {
		pairs = append(pairs, Pair{Key: key, Value: value})
	})
	return pairs
}

func (p *Params) walk(prefix string, emptyIndex bool, fn func(key, value string)) {
	for _, k := range p.keys {
		key := k
		if prefix != "" {
			if _, err := strconv.Atoi(k); err == nil && emptyIndex {
				key = prefix + "[]"
			} else {
				key = prefix + "[" + k + "]"
			}
		}

		switch v := p.values[k].(type) {
		case *Params:
			v.walk(key, emptyIndex, fn)
		case string:
			fn(key, v)
		}
	}
}

// ToMap converts p into plain maps. Nested params become map[string]any.
func (p *Params) ToMap() map[string]any {
	m := make(map[string]any, len(p.keys))
	for _, k := range p.keys {
		v := p.values[k]
		if nested, ok := v.(*Params); ok {
			v = nested.ToMap()
		}
		m[k] = v
	}
	return m
}

// ParseQuery parses a form-urlencoded string.
// Bracketed keys build nested params: "a[]=1&a[]=2&b[c]=3".
func ParseQuery(raw string) *Params {
	p := NewParams()
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == '&' || r == ';' }) {
		k, v, _ := strings.Cut(part, "=")
		k, v = uri.QueryUnescape(k), uri.QueryUnescape(v)
		if k == "" {
			continue
		}

		base, path := splitBracketKey(k)
		p.insert(base, path, v)
	}
	return p
}

// splitBracketKey splits "a[b][]" into "a" and ["b", ""].
// Keys with unbalanced brackets are taken literally.
func splitBracketKey(key string) (string, []string) {
	open := strings.IndexByte(key, '[')
	if open <= 0 {
		return key, nil
	}

	base, rest := key[:open], key[open:]
	path := make([]string, 0, 1)
	for strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return key, nil
		}
		path = append(path, rest[1:end])
		rest = rest[end+1:]
	}
	if rest != "" {
		return key, nil
	}
	return base, path
}

func (p *Params) insert(key string, path []string, value string) {
	if key == "" {
		key = strconv.Itoa(p.nextIndex)
	}

	if len(path) == 0 {
		p.put(key, value)
		return
	}

	nested, ok := p.values[key].(*Params)
	if !ok {
		nested = NewParams()
		p.put(key, nested)
	}
	nested.insert(path[0], path[1:], value)
}

// Files is an ordered set of uploads, keyed by file name.
type Files struct {
	order []string
	files map[string]FileUpload
}

type FileUpload struct {
	FormName    string
	Filename    string
	ContentType string
	Data        []byte
}

func NewFiles() *Files {
	return &Files{files: make(map[string]FileUpload)}
}

// Set adds f, replacing an upload with the same file name.
func (f *Files) Set(file FileUpload) {
	if _, ok := f.files[file.Filename]; !ok {
		f.order = append(f.order, file.Filename)
	}
	f.files[file.Filename] = file
}

// Remove reports whether an upload of filename was present.
func (f *Files) Remove(filename string) bool {
	if _, ok := f.files[filename]; !ok {
		return false
	}
	delete(f.files, filename)
	for i := range f.order {
		if f.order[i] == filename {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return true
}

func (f *Files) Get(filename string) (FileUpload, bool) {
	file, ok := f.files[filename]
	return file, ok
}

func (f *Files) All() []FileUpload {
	out := make([]FileUpload, 0, len(f.order))
	for _, name := range f.order {
		out = append(out, f.files[name])
	}
	return out
}

func (f *Files) Len() int { return len(f.order) }
