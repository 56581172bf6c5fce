package http

import (
	"bufio"
	"bytes"
	"strconv"

	"http-client/application/util/rule"
	bytesutil "http-client/util/bytes"

	"github.com/pkg/errors"
)

type DecodeOptions struct {
	// AllowSoleLF specifies wheter a single LF character should be recognized as a valid line terminator.
	//
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-3
	AllowSoleLF bool

	// MaxFieldLineLength sets the limit of field line length on headers.
	MaxFieldLineLength uint

	// MaxStatusLineLength sets the limit of status line length.
	MaxStatusLineLength uint
}

// Servers in the wild still terminate lines with a sole LF.
var DefaultDecodeOptions = DecodeOptions{
	AllowSoleLF:         true,
	MaxFieldLineLength:  0,
	MaxStatusLineLength: 0,
}

var (
	ErrMissingCRBeforeLF  = errors.New("missing CR before LF")
	ErrFieldLineTooLong   = errors.New("field line length exceeds limit")
	ErrStatusLineTooLong  = errors.New("status line length exceeds limit")
	ErrMalformedFieldLine = errors.New("field line is malformed")
)

// Head is a status line followed by a header block.
type Head struct {
	Version      Version
	StatusCode   int
	ReasonPhrase string
	Fields       []Field

	raw []byte
}

// Raw returns the head exactly as it was received, including the empty line.
func (h *Head) Raw() []byte { return h.raw }

// Values returns values of every field named name.
func (h *Head) Values(name string) []string { return FieldValues(h.Fields, name) }

// Has reports whether any field named name holds value (case-insensitive).
// Comma separated lists are split before comparison.
func (h *Head) Has(name, value string) bool {
	for _, v := range h.Values(name) {
		for _, elem := range bytes.Split([]byte(v), []byte{','}) {
			if bytes.EqualFold(bytes.TrimSpace(elem), []byte(value)) {
				return true
			}
		}
	}
	return false
}

// Without removes fields named name and returns a re-serialized head.
func (h *Head) Without(name string) []byte {
	buf := bytes.NewBuffer(nil)

	buf.Write(h.Version.Text())
	buf.WriteByte(rule.SP)
	buf.WriteString(strconv.Itoa(h.StatusCode))
	if h.ReasonPhrase != "" {
		buf.WriteByte(rule.SP)
		buf.WriteString(h.ReasonPhrase)
	}
	buf.Write(rule.CRLF)

	for _, f := range h.Fields {
		if f.Is(name) {
			continue
		}
		buf.Write(f.Text())
		buf.Write(rule.CRLF)
	}
	buf.Write(rule.CRLF)

	return buf.Bytes()
}

// HeadReader reads response heads off a shared buffered reader.
// Bytes after the head are left in the reader for the body.
type HeadReader struct {
	br   *bufio.Reader
	opts DecodeOptions

	raw *bytes.Buffer
}

func NewHeadReader(br *bufio.Reader, opts DecodeOptions) *HeadReader {
	return &HeadReader{br: br, opts: opts}
}

var errLineTooLong = errors.New("line length exceeeds limit")

// ReadLine reads a single line without its terminator.
// Zero limit means no limit.
func (hr *HeadReader) ReadLine(limit uint) ([]byte, error) {
	b, err := bytesutil.ReadUntilLimit(hr.br, []byte{rule.LF}, limit)
	if err != nil {
		if errors.Is(err, bytesutil.ErrLimitExceeded) {
			return nil, errLineTooLong
		}
		return nil, err
	}

	if hr.raw != nil {
		hr.raw.Write(b)
	}

	if limit > 0 && uint(len(b)) > limit {
		return nil, errLineTooLong
	}

	b = b[:len(b)-1] // Remove LF.

	if len(b) > 0 && b[len(b)-1] == rule.CR {
		return b[:len(b)-1], nil
	}
	if !hr.opts.AllowSoleLF {
		return nil, ErrMissingCRBeforeLF
	}

	return b, nil
}

// Read reads a status line and header fields until an empty line.
// Malformed input is reported as [ErrParse]; I/O errors are returned as is.
func (hr *HeadReader) Read() (Head, error) {
	hr.raw = bytes.NewBuffer(nil)
	defer func() { hr.raw = nil }()

	var head Head
	if err := hr.readStatusLine(&head); err != nil {
		return Head{}, errors.Wrap(err, "reading status line")
	}

	if err := hr.readFields(&head.Fields); err != nil {
		return Head{}, errors.Wrap(err, "reading fields")
	}

	head.raw = hr.raw.Bytes()

	return head, nil
}

func (hr *HeadReader) readStatusLine(head *Head) error {
	var line []byte
	for {
		b, err := hr.ReadLine(hr.opts.MaxStatusLineLength)
		if err != nil {
			if errors.Is(err, errLineTooLong) {
				return errors.Wrap(ErrParse, ErrStatusLineTooLong.Error())
			}
			return err
		}

		// Servers may send empty lines ahead of the status line.
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-6
		if len(b) > 0 {
			line = b
			break
		}
		hr.raw.Reset()
	}

	version, code, reason, err := parseStatusLine(line)
	if err != nil {
		return errors.Wrap(ErrParse, err.Error())
	}

	head.Version = version
	head.StatusCode = code
	head.ReasonPhrase = reason

	return nil
}

// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-4
func parseStatusLine(line []byte) (Version, int, string, error) {
	rawVersion, rest, found := bytes.Cut(line, []byte{rule.SP})
	if !found {
		return Version{}, 0, "", errors.Errorf("status line is malformed: %q", line)
	}

	version, err := ParseVersion(rawVersion)
	if err != nil {
		return Version{}, 0, "", err
	}

	rawCode, reason, _ := bytes.Cut(rest, []byte{rule.SP})
	if len(rawCode) != 3 {
		return Version{}, 0, "", errors.Errorf("status code must be 3 digits: %q", rawCode)
	}

	code, err := strconv.Atoi(string(rawCode))
	if err != nil {
		return Version{}, 0, "", errors.Errorf("status code is not a number: %q", rawCode)
	}

	return version, code, string(bytes.TrimSpace(reason)), nil
}

func (hr *HeadReader) readFields(fields *[]Field) error {
	tmpFields := make([]Field, 0)
	for {
		fieldLine, err := hr.ReadLine(hr.opts.MaxFieldLineLength)
		if err != nil {
			if errors.Is(err, errLineTooLong) {
				return errors.Wrap(ErrParse, ErrFieldLineTooLong.Error())
			}
			return err
		}

		if len(fieldLine) == 0 {
			// An empty line. This means that there are no more headers.
			break
		}

		// Obsolete line folding.
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-5.2
		if rule.IsOWS(rune(fieldLine[0])) {
			if len(tmpFields) == 0 {
				return errors.Wrap(ErrParse, ErrMalformedFieldLine.Error())
			}
			last := &tmpFields[len(tmpFields)-1]
			last.Value = append(append(last.Value, rule.SP), bytes.TrimSpace(fieldLine)...)
			continue
		}

		field, err := ParseField(fieldLine)
		if err != nil {
			return errors.Wrap(ErrParse, ErrMalformedFieldLine.Error())
		}

		tmpFields = append(tmpFields, field)
	}

	*fields = tmpFields

	return nil
}
