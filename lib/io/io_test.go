package iolib

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFull(t *testing.T) {
	data := []byte("Hello, World!")
	var buf bytes.Buffer

	written, err := WriteFull(&buf, data)
	assert.NoError(t, err)
	assert.Equal(t, uint(len(data)), written)
	assert.Equal(t, data, buf.Bytes())
}

type zeroWriter struct{}

func (zeroWriter) Write(p []byte) (int, error) { return 0, nil }

func TestWriteFullShortWrite(t *testing.T) {
	_, err := WriteFull(zeroWriter{}, []byte("data"))
	assert.Error(t, err)
}

func TestExactReader(t *testing.T) {
	testcases := []struct {
		desc     string
		input    string
		n        uint64
		expected string
		wantErr  error
	}{
		{desc: "shorter than input", input: "Hello, World!", n: 5, expected: "Hello"},
		{desc: "same as input", input: "Hi", n: 2, expected: "Hi"},
		{desc: "zero", input: "Hi", n: 0, expected: ""},
		{desc: "input ends early", input: "Hi", n: 10, expected: "Hi", wantErr: io.ErrUnexpectedEOF},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			r := ExactReader(strings.NewReader(tc.input), tc.n)
			b, err := io.ReadAll(r)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.expected, string(b))
			assert.Equal(t, uint64(len(tc.expected)), r.Count())
		})
	}
}
