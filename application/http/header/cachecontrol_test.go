package header

import (
	"testing"

	"http-client/application/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCacheControl(t *testing.T) {
	testcases := []struct {
		desc       string
		input      string
		directives map[string]string
		value      string
		wantErr    bool
	}{
		{
			desc:       "directives with and without value",
			input:      "Cache-Control: max-age=0, no-cache",
			directives: map[string]string{"max-age": "0", "no-cache": ""},
			value:      "max-age=0, no-cache",
		},
		{
			desc:       "quoted value",
			input:      `Cache-Control: private="Set-Cookie, X-A", no-store`,
			directives: map[string]string{"private": "Set-Cookie, X-A", "no-store": ""},
			value:      `no-store, private="Set-Cookie, X-A"`,
		},
		{
			desc:       "case insensitive names",
			input:      "Cache-Control: No-Cache,MAX-AGE=5",
			directives: map[string]string{"no-cache": "", "max-age": "5"},
			value:      "max-age=5, no-cache",
		},
		{
			desc:       "empty",
			input:      "Cache-Control: ",
			directives: map[string]string{},
			value:      "",
		},
		{
			desc:    "missing separator",
			input:   "Cache-Control: no-cache no-store",
			wantErr: true,
		},
		{
			desc:    "directive must start with a letter",
			input:   "Cache-Control: 1max-age=0",
			wantErr: true,
		},
		{
			desc:    "unterminated quote",
			input:   `Cache-Control: private="a`,
			wantErr: true,
		},
		{
			desc:    "other header",
			input:   "Pragma: no-cache",
			wantErr: true,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			h, err := ParseCacheControl(tc.input)
			if tc.wantErr {
				assert.ErrorIs(t, err, http.ErrParse)
				return
			}

			require.NoError(t, err)
			for name, value := range tc.directives {
				got, ok := h.Get(name)
				assert.True(t, ok, name)
				assert.Equal(t, value, got)
			}
			assert.Len(t, h.Directives(), len(tc.directives))
			assert.Equal(t, tc.value, h.Value())
		})
	}
}

func TestCacheControlRoundTrip(t *testing.T) {
	first, err := ParseCacheControl("Cache-Control: max-age=0, no-cache")
	require.NoError(t, err)

	second, err := ParseCacheControl(first.String())
	require.NoError(t, err)

	assert.Equal(t, first.Directives(), second.Directives())
	assert.Equal(t, first.Value(), second.Value())
}

func TestCacheControlModify(t *testing.T) {
	h := NewCacheControl()
	assert.True(t, h.IsEmpty())

	require.NoError(t, h.Add("public", ""))
	require.NoError(t, h.Add("max-age", "3600"))
	require.NoError(t, h.Add("community", "UCI web"))
	assert.Equal(t, `Cache-Control: community="UCI web", max-age=3600, public`, h.String())

	assert.True(t, h.Has("PUBLIC"))
	h.Remove("public")
	assert.False(t, h.Has("public"))

	assert.ErrorIs(t, h.Add("bad name", ""), http.ErrConfiguration)
	assert.ErrorIs(t, h.Add("max-age", "1\r\n"), http.ErrConfiguration)
}
