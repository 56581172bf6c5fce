package client

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
	"strings"
	"sync"

	"http-client/application/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
)

const (
	EncURLEncoded = "application/x-www-form-urlencoded"
	EncFormData   = "multipart/form-data"
)

const defaultContentType = "application/octet-stream"

// mimeReadLimit is how many leading bytes content type detection looks at.
const mimeReadLimit = 1 << 14

var mimeOnce sync.Once

// DetectContentType guesses the media type of content, defaulting to application/octet-stream.
func DetectContentType(content []byte) string {
	mimeOnce.Do(func() { mimetype.SetLimit(mimeReadLimit) })

	if len(content) == 0 {
		return defaultContentType
	}
	mt := mimetype.Detect(content)
	if mt == nil || mt.String() == "" {
		return defaultContentType
	}
	return mt.String()
}

// body is what goes after the request head.
type body struct {
	data   []byte
	stream io.Reader
	// size of stream, or -1 when unknown.
	size int64
}

func (b body) isEmpty() bool { return b.stream == nil && len(b.data) == 0 }

// prepareBody builds the body from the raw body, the stream, or the form parameters.
func (c *Client) prepareBody() (body, error) {
	// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-9.3.8
	if c.request.IsTrace() {
		return body{}, nil
	}

	if raw := c.request.Content(); len(raw) > 0 {
		return body{data: raw}, nil
	}
	if c.bodyStream != nil {
		return body{stream: c.bodyStream, size: streamSize(c.bodyStream)}, nil
	}

	files := c.request.Files().Len()
	if ct, ok := c.request.Headers().GetValue("Content-Type"); ok {
		c.encType = ct
	} else if files > 0 {
		c.encType = EncFormData
	}

	post := c.request.Post()
	if post.IsEmpty() && files == 0 {
		return body{}, nil
	}

	encType := strings.ToLower(c.encType)
	switch {
	case strings.HasPrefix(encType, EncFormData):
		boundary := c.boundary()
		c.encType = EncFormData + "; boundary=" + boundary
		if c.request.Headers().Has("Content-Type") {
			if err := c.request.Headers().SetRaw("Content-Type", c.encType); err != nil {
				return body{}, errors.Wrap(http.ErrConfiguration, err.Error())
			}
		}
		return body{data: c.encodeMultipart(boundary)}, nil
	case strings.HasPrefix(encType, EncURLEncoded):
		return body{data: []byte(post.Encode("&", false))}, nil
	}

	return body{}, errors.Wrapf(http.ErrConfiguration, "cannot handle content type %q automatically", c.encType)
}

func (c *Client) boundary() string {
	sum := md5.Sum([]byte(c.clock.Now().String()))
	return "---HTTPCLIENT-" + hex.EncodeToString(sum[:])
}

func (c *Client) encodeMultipart(boundary string) []byte {
	buf := bytes.NewBuffer(nil)
	for _, pair := range c.request.Post().Flatten() {
		EncodeFormData(buf, boundary, pair.Key, []byte(pair.Value), "", "")
	}
	for _, f := range c.request.Files().All() {
		EncodeFormData(buf, boundary, f.FormName, f.Data, f.Filename, f.ContentType)
	}
	buf.WriteString("--" + boundary + "--\r\n")
	return buf.Bytes()
}

// EncodeFormData writes one part of a multipart/form-data body.
// filename and contentType are omitted when empty.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc7578#section-4
func EncodeFormData(buf *bytes.Buffer, boundary, name string, value []byte, filename, contentType string) {
	buf.WriteString("--" + boundary + "\r\n")
	buf.WriteString(`Content-Disposition: form-data; name="` + name + `"`)
	if filename != "" {
		buf.WriteString(`; filename="` + filename + `"`)
	}
	buf.WriteString("\r\n")
	if contentType != "" {
		buf.WriteString("Content-Type: " + contentType + "\r\n")
	}
	buf.WriteString("\r\n")
	buf.Write(value)
	buf.WriteString("\r\n")
}

func streamSize(r io.Reader) int64 {
	switch r := r.(type) {
	case interface{ Len() int }:
		return int64(r.Len())
	case *os.File:
		if fi, err := r.Stat(); err == nil && fi.Mode().IsRegular() {
			return fi.Size()
		}
	}
	return -1
}
