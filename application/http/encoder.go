package http

import (
	"bufio"
	"bytes"
	"io"

	"http-client/application/util/rule"

	"github.com/pkg/errors"
)

type EncodeOptions struct {
	// UseSoleLF specifies wheter a single LF character should be used as a line terminator.
	//
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-3
	UseSoleLF bool
}

var DefaultEncodeOptions = EncodeOptions{
	UseSoleLF: false,
}

// RequestHead is everything of a request before its body.
type RequestHead struct {
	Method  string
	Target  string
	Version Version
	Fields  []Field
}

type RequestEncoder struct {
	bw   *bufio.Writer
	opts EncodeOptions
}

func NewRequestEncoder(w io.Writer, opts EncodeOptions) *RequestEncoder {
	return &RequestEncoder{bw: bufio.NewWriter(w), opts: opts}
}

// EncodeHead renders head into bytes.
func EncodeHead(head RequestHead, opts EncodeOptions) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := NewRequestEncoder(buf, opts).Encode(head, nil); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes head and then copies body until EOF. body can be nil.
func (re *RequestEncoder) Encode(head RequestHead, body io.Reader) error {
	if !rule.IsValidToken(head.Method) {
		return errors.Wrapf(ErrConfiguration, "method is not a valid token: %q", head.Method)
	}

	if err := re.encodeRequestLine(head); err != nil {
		return errors.Wrap(err, "encoding request line")
	}

	if err := re.encodeHeaders(head.Fields); err != nil {
		return errors.Wrap(err, "encoding headers")
	}

	if err := re.bw.Flush(); err != nil {
		return errors.Wrap(err, "flushing requst line & header")
	}

	if body == nil {
		return nil
	}

	if _, err := re.bw.ReadFrom(body); err != nil {
		return errors.Wrap(err, "writing request body")
	}

	if err := re.bw.Flush(); err != nil {
		return errors.Wrap(err, "flushing request body")
	}

	return nil
}

func (re *RequestEncoder) writeLine(line []byte) error {
	if _, err := re.bw.Write(line); err != nil {
		return errors.Wrap(err, "writing line")
	}

	term := rule.CRLF
	if re.opts.UseSoleLF {
		term = term[1:]
	}

	if _, err := re.bw.Write(term); err != nil {
		return errors.Wrap(err, "writing line terminator")
	}

	return nil
}

func (re *RequestEncoder) encodeHeaders(headers []Field) error {
	for _, field := range headers {
		if bytes.ContainsAny(field.Value, "\r\n") {
			return errors.Wrapf(ErrConfiguration, "field %q contains line terminator", field.Name)
		}
		if err := re.writeLine(field.Text()); err != nil {
			return errors.Wrap(err, "writing field")
		}
	}

	// Write a empty line as all the headers are written.
	if err := re.writeLine(nil); err != nil {
		return errors.Wrap(err, "writing line terminator")
	}

	return nil
}

func (re *RequestEncoder) encodeRequestLine(head RequestHead) error {
	buf := bytes.NewBuffer(nil)

	buf.Write([]byte(head.Method))
	buf.WriteByte(rule.SP)
	buf.Write([]byte(head.Target))
	buf.WriteByte(rule.SP)
	buf.Write(head.Version.Text())

	if err := re.writeLine(buf.Bytes()); err != nil {
		return errors.Wrap(err, "writing line")
	}

	return nil
}
