package http

import (
	"bufio"
	"io"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type HeadReaderTestSuite struct {
	suite.Suite
}

func TestHeadReaderTestSuite(t *testing.T) {
	suite.Run(t, new(HeadReaderTestSuite))
}

func (s *HeadReaderTestSuite) TestReadLine() {
	testcases := []struct {
		desc     string
		opts     DecodeOptions
		limit    uint
		input    string
		expected string
		wantErr  error
	}{
		{
			desc:     "simple line with CRLF",
			input:    "Hello\r\n",
			expected: "Hello",
		},
		{
			desc:    "line exceeding limit",
			input:   "Hey\r\n",
			limit:   1,
			wantErr: errLineTooLong,
		},
		{
			desc:    "Sole LF (fail)",
			input:   "Hello\n",
			wantErr: ErrMissingCRBeforeLF,
		},
		{
			desc:     "Sole LF (success)",
			opts:     DecodeOptions{AllowSoleLF: true},
			input:    "Hello\n",
			expected: "Hello",
		},
		{
			desc:    "no line terminator",
			input:   "Hello",
			wantErr: io.ErrUnexpectedEOF,
		},
	}
	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			hr := NewHeadReader(bufio.NewReader(strings.NewReader(tc.input)), tc.opts)

			b, err := hr.ReadLine(tc.limit)
			if tc.wantErr != nil {
				s.ErrorIs(err, tc.wantErr)
				return
			}

			s.NoError(err)
			s.Equal(tc.expected, string(b))
		})
	}
}

func (s *HeadReaderTestSuite) TestRead() {
	testcases := []struct {
		desc     string
		input    string
		expected Head
		rest     string
		wantErr  error
	}{
		{
			desc:  "status line and fields",
			input: "HTTP/1.1 200 OK\r\nContent-Length: 5\r\nHost: example.com\r\n\r\nHello",
			expected: Head{
				Version:      Version11,
				StatusCode:   200,
				ReasonPhrase: "OK",
				Fields: []Field{
					NewField("Content-Length", "5"),
					NewField("Host", "example.com"),
				},
			},
			rest: "Hello",
		},
		{
			desc:  "no reason phrase",
			input: "HTTP/1.0 204\r\n\r\n",
			expected: Head{
				Version:    Version10,
				StatusCode: 204,
				Fields:     []Field{},
			},
		},
		{
			desc:  "reason phrase with spaces",
			input: "HTTP/1.1 404 Not Found\r\n\r\n",
			expected: Head{
				Version:      Version11,
				StatusCode:   404,
				ReasonPhrase: "Not Found",
				Fields:       []Field{},
			},
		},
		{
			desc:  "folded field",
			input: "HTTP/1.1 200 OK\r\nX-Long: first\r\n  second\r\n\r\n",
			expected: Head{
				Version:      Version11,
				StatusCode:   200,
				ReasonPhrase: "OK",
				Fields:       []Field{NewField("X-Long", "first second")},
			},
		},
		{
			desc:  "leading empty lines",
			input: "\r\n\r\nHTTP/1.1 200 OK\r\n\r\n",
			expected: Head{
				Version:      Version11,
				StatusCode:   200,
				ReasonPhrase: "OK",
				Fields:       []Field{},
			},
		},
		{
			desc:    "malformed status code",
			input:   "HTTP/1.1 20 OK\r\n\r\n",
			wantErr: ErrParse,
		},
		{
			desc:    "not a http version",
			input:   "HTTX/1.1 200 OK\r\n\r\n",
			wantErr: ErrParse,
		},
		{
			desc:    "fold without previous field",
			input:   "HTTP/1.1 200 OK\r\n folded\r\n\r\n",
			wantErr: ErrParse,
		},
		{
			desc:    "missing colon",
			input:   "HTTP/1.1 200 OK\r\nbroken\r\n\r\n",
			wantErr: ErrParse,
		},
		{
			desc:    "truncated head",
			input:   "HTTP/1.1 200 OK\r\nHost: a",
			wantErr: io.ErrUnexpectedEOF,
		},
		{
			desc:    "empty input",
			input:   "",
			wantErr: io.EOF,
		},
	}
	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			br := bufio.NewReader(strings.NewReader(tc.input))
			hr := NewHeadReader(br, DefaultDecodeOptions)

			head, err := hr.Read()
			if tc.wantErr != nil {
				s.True(errors.Is(err, tc.wantErr), "got %v", err)
				return
			}

			s.Require().NoError(err)
			s.Equal(tc.expected.Version, head.Version)
			s.Equal(tc.expected.StatusCode, head.StatusCode)
			s.Equal(tc.expected.ReasonPhrase, head.ReasonPhrase)
			s.Equal(tc.expected.Fields, head.Fields)

			rest, err := io.ReadAll(br)
			s.NoError(err)
			s.Equal(tc.rest, string(rest))
		})
	}
}

func (s *HeadReaderTestSuite) TestRawAndWithout() {
	input := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\nConnection: keep-alive, Upgrade\r\n\r\n"
	hr := NewHeadReader(bufio.NewReader(strings.NewReader(input)), DefaultDecodeOptions)

	head, err := hr.Read()
	s.Require().NoError(err)

	s.Equal(input, string(head.Raw()))
	s.True(head.Has("connection", "upgrade"))
	s.False(head.Has("connection", "close"))
	s.Equal(
		"HTTP/1.1 200 OK\r\nConnection: keep-alive, Upgrade\r\n\r\n",
		string(head.Without("Transfer-Encoding")),
	)
}

func (s *HeadReaderTestSuite) TestReadConsecutive() {
	input := "HTTP/1.1 100 Continue\r\n\r\nHTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n"
	hr := NewHeadReader(bufio.NewReader(strings.NewReader(input)), DefaultDecodeOptions)

	first, err := hr.Read()
	s.Require().NoError(err)
	s.Equal(100, first.StatusCode)
	s.Equal("HTTP/1.1 100 Continue\r\n\r\n", string(first.Raw()))

	second, err := hr.Read()
	s.Require().NoError(err)
	s.Equal(200, second.StatusCode)
	s.Equal([]string{"0"}, second.Values("Content-Length"))
}

func (s *HeadReaderTestSuite) TestFieldLineTooLong() {
	opts := DefaultDecodeOptions
	opts.MaxFieldLineLength = 8

	input := "HTTP/1.1 200 OK\r\nX-Very-Long-Field: value\r\n\r\n"
	hr := NewHeadReader(bufio.NewReader(strings.NewReader(input)), opts)

	_, err := hr.Read()
	s.ErrorIs(err, ErrParse)
}
