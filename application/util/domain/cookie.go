package domain

import (
	"net/netip"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

var ErrInvalidDomain = errors.New("invalid domain")

// Normalize lowercases the host, drops a leading and a trailing dot
// and converts internationalized labels to their ASCII form.
// IP addresses are returned unchanged.
func Normalize(host string) (string, error) {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimPrefix(host, ".")
	host = strings.TrimSuffix(host, ".")
	if host == "" {
		return "", errors.Wrap(ErrInvalidDomain, "empty domain")
	}
	if IsIP(host) {
		return host, nil
	}

	ascii, err := idna.ToASCII(host)
	if err != nil {
		return "", errors.Wrapf(ErrInvalidDomain, "%q: %s", host, err.Error())
	}
	return ascii, nil
}

func IsIP(host string) bool {
	_, err := netip.ParseAddr(strings.Trim(host, "[]"))
	return err == nil
}

// IsPublicSuffix reports whether the domain is a public suffix such as "com" or "co.uk",
// under which nobody may set cookies.
// Reference: https://datatracker.ietf.org/doc/html/rfc6265#section-5.3
func IsPublicSuffix(domain string) bool {
	if IsIP(domain) {
		return false
	}
	suffix, _ := publicsuffix.PublicSuffix(domain)
	return suffix == domain
}
