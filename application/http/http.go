package http

import (
	"bytes"
	"strconv"

	"http-client/application/util/rule"

	"github.com/pkg/errors"
)

// [Major, Minor]
type Version [2]uint

var (
	Version10 = Version{1, 0}
	Version11 = Version{1, 1}
)

// ParseVersion parses http version text(e.g. "HTTP/1.1") into [Version].
func ParseVersion(b []byte) (Version, error) {
	prefix := []byte("HTTP/")
	if !bytes.HasPrefix(b, prefix) {
		return Version{}, errors.Errorf("http version prefix not found: %s", b)
	}

	return ParseVersionNumber(string(b[len(prefix):]))
}

// ParseVersionNumber parses version number without prefix (e.g. "1.1").
func ParseVersionNumber(s string) (Version, error) {
	first, second, found := bytes.Cut([]byte(s), []byte{'.'})
	if !found {
		return Version{}, errors.Errorf("dot seperator not found on version: %s", s)
	}

	major, err1 := strconv.ParseUint(string(first), 10, 64)
	minor, err2 := strconv.ParseUint(string(second), 10, 64)
	if err1 != nil || err2 != nil {
		return Version{}, errors.Errorf("http version is not convertable to int: %s", s)
	}

	return Version{uint(major), uint(minor)}, nil
}

// IsSupported reports whether the version is HTTP/1.0 or HTTP/1.1.
func (ver Version) IsSupported() bool {
	return ver == Version10 || ver == Version11
}

// Number is the version without prefix (e.g. "1.1").
func (ver Version) Number() string {
	return strconv.FormatUint(uint64(ver[0]), 10) + "." + strconv.FormatUint(uint64(ver[1]), 10)
}

func (ver Version) Text() []byte {
	buf := bytes.NewBuffer(nil)
	buf.Write([]byte("HTTP/"))
	buf.Write([]byte(ver.Number()))
	return buf.Bytes()
}

func (ver Version) String() string { return string(ver.Text()) }

type Field struct{ Name, Value []byte }

func ParseField(fieldLine []byte) (Field, error) {
	name, value, found := bytes.Cut(fieldLine, []byte{':'})
	if !found {
		return Field{}, errors.Errorf("colon seperator not found on header: %q", string(fieldLine))
	}

	// No whitespace is allowed between field name and colon.
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-5.1-2
	for _, c := range rule.OWS {
		if bytes.HasSuffix(name, []byte{c}) {
			return Field{}, errors.New("field name has trailing whitespace")
		}
	}

	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-5.1-3
	value = bytes.TrimFunc(value, func(r rune) bool { return rule.IsOWS(r) })

	return Field{Name: name, Value: value}, nil
}

func NewField(name, value string) Field {
	return Field{Name: []byte(name), Value: []byte(value)}
}

func (f *Field) Text() []byte {
	buf := bytes.NewBuffer(nil)
	buf.Write(f.Name)
	buf.Write([]byte(": "))
	buf.Write(f.Value)
	return buf.Bytes()
}

// Is reports whether the field name equals name, case-insensitively.
func (f *Field) Is(name string) bool {
	return bytes.EqualFold(f.Name, []byte(name))
}

// FieldValues returns values of every field named name, in order.
func FieldValues(fields []Field, name string) []string {
	values := make([]string, 0)
	for _, f := range fields {
		if f.Is(name) {
			values = append(values, string(f.Value))
		}
	}
	return values
}
