package transfer

import (
	"bufio"
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"io"
	"strings"

	"http-client/application/http"

	"github.com/andybalholm/brotli"
	"github.com/pkg/errors"
)

type Coding string

const (
	CodingChunked  Coding = "chunked"
	CodingGzip     Coding = "gzip"
	CodingDeflate  Coding = "deflate"
	CodingBrotli   Coding = "br"
	CodingIdentity Coding = "identity"
)

// ParseCodings splits a Transfer-Encoding or Content-Encoding value.
func ParseCodings(value string) []Coding {
	codings := make([]Coding, 0, 1)
	for _, part := range strings.Split(value, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		codings = append(codings, Coding(part))
	}
	return codings
}

type Coder interface {
	Coding() Coding
	NewReader(r io.Reader) (io.Reader, error)
}

type CodingPipeliner struct{ coders map[Coding]Coder }

// NewCodingPipeliner knows chunked, gzip, deflate, br and identity.
// customs are added on top of them.
func NewCodingPipeliner(customs []Coder) *CodingPipeliner {
	cp := &CodingPipeliner{}
	cp.coders = map[Coding]Coder{}

	defaults := []Coder{
		NewChunkedCoder(), gzipCoder{}, deflateCoder{}, brotliCoder{}, identityCoder{},
	}
	for _, coder := range append(defaults, customs...) {
		cp.coders[coder.Coding()] = coder
	}

	return cp
}

var ErrUnsupportedCoding = errors.New("coding is unsupported")

// Supports reports whether every coding has a coder.
func (cp *CodingPipeliner) Supports(codings []Coding) bool {
	for _, coding := range codings {
		if _, ok := cp.coders[coding]; !ok {
			return false
		}
	}
	return true
}

// Decode undoes codings, which are listed in the order they were applied.
func (cp *CodingPipeliner) Decode(r io.Reader, codings []Coding) (io.Reader, error) {
	for idx := len(codings) - 1; idx >= 0; idx-- {
		coding := codings[idx]
		coder, ok := cp.coders[coding]
		if !ok {
			return nil, errors.Wrapf(ErrUnsupportedCoding, "coding %q", coding)
		}

		var err error
		r, err = coder.NewReader(r)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding %q", coding)
		}
	}

	return r, nil
}

// DecodeContent decodes a body held in memory according to its Content-Encoding value.
// Corrupt data fails with [http.ErrDecode]. Unknown codings leave the body as it is.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-8.4
func DecodeContent(body []byte, contentEncoding string) ([]byte, error) {
	codings := ParseCodings(contentEncoding)
	if len(codings) == 0 || len(body) == 0 {
		return body, nil
	}

	cp := NewCodingPipeliner(nil)
	if !cp.Supports(codings) {
		return body, nil
	}

	r, err := cp.Decode(bytes.NewReader(body), codings)
	if err != nil {
		return nil, errors.Wrap(http.ErrDecode, err.Error())
	}

	decoded, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(http.ErrDecode, err.Error())
	}

	return decoded, nil
}

type ChunkedCoder struct{}

func NewChunkedCoder() ChunkedCoder { return ChunkedCoder{} }

func (ChunkedCoder) Coding() Coding { return CodingChunked }

func (ChunkedCoder) NewReader(r io.Reader) (io.Reader, error) { return NewChunkedReader(r), nil }

func (ChunkedCoder) NewWriter(w io.Writer) *ChunkedWriter { return NewChunkedWriter(w) }

type gzipCoder struct{}

func (gzipCoder) Coding() Coding { return CodingGzip }

func (gzipCoder) NewReader(r io.Reader) (io.Reader, error) { return gzip.NewReader(r) }

// deflateCoder accepts both zlib wrapped and raw deflate streams,
// since servers send either for "deflate".
type deflateCoder struct{}

func (deflateCoder) Coding() Coding { return CodingDeflate }

func (deflateCoder) NewReader(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	header, err := br.Peek(2)
	if err != nil {
		return nil, errors.Wrap(err, "peeking zlib header")
	}

	// Reference: https://datatracker.ietf.org/doc/html/rfc1950#section-2.2
	if (uint(header[0])<<8|uint(header[1]))%31 == 0 && header[0]&0x0f == 8 {
		return zlib.NewReader(br)
	}
	return flate.NewReader(br), nil
}

type brotliCoder struct{}

func (brotliCoder) Coding() Coding { return CodingBrotli }

func (brotliCoder) NewReader(r io.Reader) (io.Reader, error) { return brotli.NewReader(r), nil }

type identityCoder struct{}

func (identityCoder) Coding() Coding { return CodingIdentity }

func (identityCoder) NewReader(r io.Reader) (io.Reader, error) { return r, nil }
