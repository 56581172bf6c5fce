package client

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"http-client/application/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestFromStream(t *testing.T) {
	testcases := []struct {
		desc    string
		head    string
		stream  string
		body    string
		wantErr bool
	}{
		{
			desc:   "head only",
			head:   "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\n",
			stream: "hello, and more",
			body:   "hello",
		},
		{
			desc:   "start of body in head",
			head:   "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhe",
			stream: "llo",
			body:   "hello",
		},
		{
			desc:   "head continues in stream",
			head:   "HTTP/1.1 200 OK\r\n",
			stream: "X-Foo: bar\r\n\r\nhello",
			body:   "hello",
		},
		{
			desc:    "body longer than content length",
			head:    "HTTP/1.1 200 OK\r\nContent-Length: 1\r\n\r\nhello",
			wantErr: true,
		},
		{
			desc:    "stream ends in head",
			head:    "HTTP/1.1 200 OK\r\n",
			stream:  "X-Foo: bar\r\n",
			wantErr: true,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			f := &closeRecorder{Reader: strings.NewReader(tc.stream)}

			sr, err := FromStream([]byte(tc.head), f)
			if tc.wantErr {
				assert.ErrorIs(t, err, http.ErrParse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 200, sr.StatusCode())

			b, err := io.ReadAll(sr)
			require.NoError(t, err)
			assert.Equal(t, tc.body, string(b))
			assert.True(t, f.closed)
		})
	}
}

func TestStreamResponseBody(t *testing.T) {
	f := &closeRecorder{Reader: strings.NewReader("hello world")}
	sr, err := FromStream([]byte("HTTP/1.1 200 OK\r\nX-Foo: bar\r\n\r\n"), f)
	require.NoError(t, err)

	v, ok := sr.Headers().GetValue("X-Foo")
	require.True(t, ok)
	assert.Equal(t, "bar", v)

	p := make([]byte, 6)
	n, err := sr.Read(p)
	require.NoError(t, err)
	assert.Equal(t, "hello ", string(p[:n]))

	body, err := sr.Body()
	require.NoError(t, err)
	assert.Equal(t, "world", string(body))
	assert.True(t, f.closed)

	raw, err := sr.RawBody()
	require.NoError(t, err)
	assert.Equal(t, "world", string(raw))
	n, err = sr.Read(p)
	assert.Zero(t, n)
	assert.ErrorIs(t, err, io.EOF)
	require.NoError(t, sr.Close())
}

func TestStreamResponseReadFailure(t *testing.T) {
	testcases := []struct {
		desc string
		load func(sr *StreamResponse) error
	}{
		{
			desc: "raw body",
			load: func(sr *StreamResponse) error {
				_, err := sr.RawBody()
				return err
			},
		},
		{
			desc: "body",
			load: func(sr *StreamResponse) error {
				_, err := sr.Body()
				return err
			},
		},
		{
			desc: "text",
			load: func(sr *StreamResponse) error {
				_, err := sr.Text()
				return err
			},
		},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			f := &closeRecorder{Reader: iotest.ErrReader(errors.New("disk gone"))}
			sr, err := FromStream([]byte("HTTP/1.1 200 OK\r\n\r\npartial"), f)
			require.NoError(t, err)

			err = tc.load(sr)
			assert.ErrorIs(t, err, http.ErrRead)
			assert.ErrorContains(t, err, "disk gone")
			assert.True(t, f.closed)
		})
	}
}
