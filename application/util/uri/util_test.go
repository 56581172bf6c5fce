package uri

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssertValidScheme(t *testing.T) {
	testcases := []struct {
		desc    string
		input   string
		wantErr bool
	}{
		{desc: "http", input: "http"},
		{desc: "mixed case", input: "HTTPS"},
		{desc: "single letter", input: "a"},
		{desc: "plus, minus and dot", input: "svn+ssh.v-2"},
		{desc: "empty", input: "", wantErr: true},
		{desc: "leading digit", input: "1http", wantErr: true},
		{desc: "underscore", input: "ht_tp", wantErr: true},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			err := assertValidScheme(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAssertValidHost(t *testing.T) {
	testcases := []struct {
		desc    string
		input   string
		wantErr bool
	}{
		{desc: "reg-name", input: "api.example.com"},
		{desc: "ipv4", input: "192.168.0.1"},
		{desc: "ipv6 literal", input: "[2001:db8::1]"},
		{desc: "ipvfuture literal", input: "[v1.fe80::a+en1]"},
		{desc: "percent-encoded reg-name", input: "xn--caf%C3%A9"},
		{desc: "empty", input: ""},
		{desc: "at the length limit", input: strings.Repeat("a", 255)},
		{desc: "over the length limit", input: strings.Repeat("a", 256), wantErr: true},
		{desc: "ipv4 in brackets", input: "[127.0.0.1]", wantErr: true},
		{desc: "unclosed literal", input: "[::1", wantErr: true},
		{desc: "space", input: "exa mple.com", wantErr: true},
		{desc: "broken percent-encoding", input: "a%zz", wantErr: true},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			err := AssertValidHost(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCharacterRules(t *testing.T) {
	testcases := []struct {
		desc  string
		rule  func(string) bool
		input string
		valid bool
	}{
		{desc: "user info with password", rule: isValidUserInfo, input: "user:p%40ss", valid: true},
		{desc: "user info with at sign", rule: isValidUserInfo, input: "user@host", valid: false},
		{desc: "reg-name with sub-delims", rule: isValidRegName, input: "a!b$c", valid: true},
		{desc: "reg-name with colon", rule: isValidRegName, input: "host:80", valid: false},
		{desc: "pchar with colon and at", rule: isAllPchar, input: "a:b@c", valid: true},
		{desc: "pchar with slash", rule: isAllPchar, input: "a/b", valid: false},
		{desc: "query with slash and question mark", rule: isQueryFragValid, input: "a=/b?c", valid: true},
		{desc: "query with hash", rule: isQueryFragValid, input: "a#b", valid: false},
		{desc: "query with space", rule: isQueryFragValid, input: "a b", valid: false},
		{desc: "ipvfuture", rule: isIPvFuture, input: "vA.x:y", valid: true},
		{desc: "ipvfuture without version", rule: isIPvFuture, input: "v.1:2", valid: false},
		{desc: "ipvfuture with slash", rule: isIPvFuture, input: "v1.a/b", valid: false},
		{desc: "control byte", rule: containsCTL, input: "a\r\nb", valid: true},
		{desc: "delete byte", rule: containsCTL, input: "a\x7fb", valid: true},
		{desc: "no control byte", rule: containsCTL, input: "a b", valid: false},
		{desc: "percent-encoded triplet", rule: isPercentEncoded, input: "%2F", valid: true},
		{desc: "short triplet", rule: isPercentEncoded, input: "%2", valid: false},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.valid, tc.rule(tc.input))
		})
	}
}

func TestAssertValidPath(t *testing.T) {
	testcases := []struct {
		desc         string
		input        string
		hasAuthority bool
		isRelative   bool
		wantErr      bool
	}{
		{desc: "absolute with authority", input: "/a/b", hasAuthority: true},
		{desc: "empty with authority", input: "", hasAuthority: true},
		{desc: "rootless with authority", input: "a/b", hasAuthority: true, wantErr: true},
		{desc: "double slash without authority", input: "//a", wantErr: true},
		{desc: "dot segments in reference", input: "../a/./b", isRelative: true},
		{desc: "colon after first segment", input: "a/b:c", isRelative: true},
		{desc: "colon in first segment", input: "a:b/c", isRelative: true, wantErr: true},
		{desc: "colon in first segment of absolute URI", input: "a:b/c"},
		{desc: "space in segment", input: "/a b", hasAuthority: true, wantErr: true},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			err := assertValidPath(tc.input, tc.hasAuthority, tc.isRelative)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDefaultPort(t *testing.T) {
	testcases := []struct {
		desc     string
		scheme   string
		expected uint16
	}{
		{desc: "http", scheme: "http", expected: 80},
		{desc: "https", scheme: "https", expected: 443},
		{desc: "case insensitive", scheme: "HTTPS", expected: 443},
		{desc: "unknown scheme", scheme: "ftp", expected: 0},
		{desc: "no scheme", scheme: "", expected: 0},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.expected, DefaultPort(tc.scheme))
		})
	}
}

func TestRequestTargetOfReference(t *testing.T) {
	testcases := []struct {
		desc     string
		input    string
		expected string
	}{
		{desc: "query without path", input: "http://example.com?x=1", expected: "/?x=1"},
		{desc: "user info dropped", input: "http://user:pw@example.com/a", expected: "/a"},
		{desc: "port dropped", input: "http://example.com:8080/a", expected: "/a"},
		{desc: "trailing slash kept", input: "http://example.com/a/", expected: "/a/"},
		{desc: "query and fragment", input: "http://example.com/a?x=1#top", expected: "/a?x=1"},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			u, err := Parse(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, u.RequestTarget())
		})
	}
}
