package header

import (
	"testing"

	"http-client/application/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContentType(t *testing.T) {
	h, err := ParseContentType(`Content-Type: Text/HTML; charset="UTF-8"; boundary=abc`)
	require.NoError(t, err)

	assert.Equal(t, "text/html", h.MediaType())
	assert.Equal(t, "UTF-8", h.Charset())
	boundary, ok := h.Param("boundary")
	assert.True(t, ok)
	assert.Equal(t, "abc", boundary)

	// Unmodified header keeps its raw value.
	assert.Equal(t, `Text/HTML; charset="UTF-8"; boundary=abc`, h.Value())

	require.NoError(t, h.SetCharset("iso-8859-1"))
	assert.Equal(t, "Content-Type: text/html; charset=iso-8859-1; boundary=abc", h.String())

	_, err = ParseContentType("Content-Length: 5")
	assert.ErrorIs(t, err, http.ErrParse)
}

func TestNewContentType(t *testing.T) {
	h, err := NewContentType("application/JSON")
	require.NoError(t, err)
	assert.Equal(t, "application/json", h.Value())
	assert.Equal(t, "", h.Charset())

	_, err = NewContentType("text/html\n")
	assert.ErrorIs(t, err, http.ErrConfiguration)
}

func TestContentTypeMatch(t *testing.T) {
	testcases := []struct {
		desc       string
		mediaType  string
		candidates string
		expected   string
		ok         bool
	}{
		{desc: "exact", mediaType: "text/html", candidates: "application/json, TEXT/HTML", expected: "text/html", ok: true},
		{desc: "any", mediaType: "text/html", candidates: "*/*", expected: "*/*", ok: true},
		{desc: "subtype wildcard", mediaType: "text/html", candidates: "text/*", expected: "text/*", ok: true},
		{desc: "format wildcard", mediaType: "application/vnd.api+json", candidates: "application/*+json", expected: "application/*+json", ok: true},
		{desc: "format as subtype", mediaType: "application/vnd.api+json", candidates: "application/json", expected: "application/json", ok: true},
		{desc: "partial wildcard", mediaType: "application/vnd.api+json", candidates: "application/vnd.*", expected: "application/vnd.*", ok: true},
		{desc: "partial wildcard with format", mediaType: "application/vnd.api+json", candidates: "application/vnd.*+xml"},
		{desc: "partial wildcard too long", mediaType: "application/vnd", candidates: "application/vnd.api*"},
		{desc: "type mismatch", mediaType: "text/html", candidates: "image/*"},
		{desc: "invalid candidate", mediaType: "text/html", candidates: "html"},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			h, err := NewContentType(tc.mediaType)
			require.NoError(t, err)

			got, ok := h.Match(tc.candidates)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.expected, got)
		})
	}
}
