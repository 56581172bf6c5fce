package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	testcases := []struct {
		desc     string
		input    string
		expected string
		wantErr  bool
	}{
		{desc: "lowercase", input: "WWW.Example.COM", expected: "www.example.com"},
		{desc: "leading dot", input: ".example.com", expected: "example.com"},
		{desc: "unicode label", input: "bücher.example", expected: "xn--bcher-kva.example"},
		{desc: "ip address", input: "192.168.0.1", expected: "192.168.0.1"},
		{desc: "empty", input: " ", wantErr: true},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := Normalize(tc.input)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDomain)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestIsPublicSuffix(t *testing.T) {
	assert.True(t, IsPublicSuffix("com"))
	assert.True(t, IsPublicSuffix("co.uk"))
	assert.False(t, IsPublicSuffix("example.com"))
	assert.False(t, IsPublicSuffix("example.co.uk"))
	assert.False(t, IsPublicSuffix("127.0.0.1"))
}
