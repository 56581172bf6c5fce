package rule

import (
	"bytes"
	"strings"
)

// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6.2-2
func IsValidToken(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, c := range s {
		if IsAlpha(c) || IsDigit(c) {
			continue
		}

		switch c {
		case '!', '#', '$', '%', '&', '\'', '*', '+',
			'-', '.', '^', '_', '`', '|', '~':
			continue
		}

		return false
	}

	return true
}

// IsValidFieldValue reports whether s can be carried as a field value.
// Control characters other than HTAB are rejected, and so are DEL and 0xFF.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.5
func IsValidFieldValue(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == HTAB {
			continue
		}
		if c < 32 || c == DEL || c > 254 {
			return false
		}
	}
	return true
}

// IsHex reports whether s is a non-empty run of hexadecimal digits.
func IsHex(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, c := range s {
		if !IsHexDigit(c) {
			return false
		}
	}
	return true
}

// Unquote unquotes token if it was quoted with double quotes.
// If quoted string includes escaped character, it will be un-escaped.
func Unquote(token []byte) []byte {
	quoted := false
	if len(token) >= 2 {
		// Unquote the token if it's wrapped with quotes.
		first, last := 0, len(token)-1
		if token[first] == '"' && token[last] == '"' {
			token = token[first+1 : last]
			quoted = true
		}
	}

	if !quoted {
		return bytes.Clone(token)
	}

	buf := bytes.NewBuffer(make([]byte, 0, len(token)))
	for idx := 0; idx < len(token); idx++ {
		c := token[idx]
		if c == '\\' && idx+1 < len(token) {
			// Escaped character inside quote.
			idx++
			c = token[idx]
		}
		buf.WriteByte(c)
	}

	return buf.Bytes()
}

// Quote wraps s with double quotes, escaping '"' and '\'.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6.4
func Quote(s string) string {
	b := new(strings.Builder)
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('"')
	return b.String()
}

// SplitQuoted splits s by sep, ignoring separators inside double-quoted strings.
// Parts are returned as-is, without trimming.
func SplitQuoted(s string, sep byte) []string {
	parts := make([]string, 0)
	quoted, escaped := false, false
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case quoted && c == '\\':
			escaped = true
		case c == '"':
			quoted = !quoted
		case c == sep && !quoted:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
