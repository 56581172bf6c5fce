package header

import (
	"testing"
	"time"

	"http-client/application/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	expected := time.Date(1994, time.November, 6, 8, 49, 37, 0, time.UTC)

	testcases := []struct {
		desc  string
		input string
	}{
		{desc: "IMF-fixdate", input: "Sun, 06 Nov 1994 08:49:37 GMT"},
		{desc: "RFC 850", input: "Sunday, 06-Nov-94 08:49:37 GMT"},
		{desc: "asctime", input: "Sun Nov  6 08:49:37 1994"},
		{desc: "cookie", input: "Sun, 06-Nov-1994 08:49:37 GMT"},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := ParseDate(tc.input)
			require.NoError(t, err)
			assert.True(t, expected.Equal(got), "got %s", got)
		})
	}

	_, err := ParseDate("yesterday")
	assert.Error(t, err)
}

func TestDateHeader(t *testing.T) {
	h, err := ParseDateHeader("Date: Sun, 06 Nov 1994 08:49:37 GMT")
	require.NoError(t, err)
	assert.Equal(t, "Date: Sun, 06 Nov 1994 08:49:37 GMT", h.String())

	h.SetFormat(DateRFC1036)
	assert.Equal(t, "Sun, 06 Nov 94 08:49:37 GMT", h.Value())
	h.SetFormat(DateANSIC)
	assert.Equal(t, "Sun Nov  6 08:49:37 1994", h.Value())

	at := time.Date(1994, time.November, 6, 8, 49, 37, 0, time.UTC)
	assert.Equal(t, 0, h.CompareTo(at))
	assert.Equal(t, 1, h.CompareTo(at.Add(-time.Second)))
	assert.Equal(t, -1, h.CompareTo(at.Add(time.Second)))

	_, err = ParseDateHeader("Date: not a date")
	assert.ErrorIs(t, err, http.ErrParse)
}

func TestExpires(t *testing.T) {
	testcases := []struct {
		desc  string
		input string
	}{
		{desc: "zero", input: "Expires: 0"},
		{desc: "negative", input: "Expires: -1"},
		{desc: "garbage", input: "Expires: not a date"},
		{desc: "empty", input: "Expires:"},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			h, err := ParseExpires(tc.input)
			require.NoError(t, err)
			assert.True(t, h.Time().Equal(time.Unix(0, 0)))
			assert.Equal(t, "Thu, 01 Jan 1970 00:00:00 GMT", h.Value())
		})
	}

	_, err := ParseExpires("Date: 0")
	assert.ErrorIs(t, err, http.ErrParse)

	h, err := ParseExpires("Expires: Wed, 21 Oct 2015 07:28:00 GMT")
	require.NoError(t, err)
	assert.Equal(t, 2015, h.Time().Year())

	h = NewExpires(time.Date(2020, time.January, 2, 3, 4, 5, 0, time.FixedZone("KST", 9*60*60)))
	assert.Equal(t, "Expires: Wed, 01 Jan 2020 18:04:05 GMT", h.String())
}
