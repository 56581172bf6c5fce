package header

import (
	"encoding/base64"
	"strings"

	"http-client/application/http"

	"github.com/pkg/errors"
)

const (
	AuthBasic  = "basic"
	AuthDigest = "digest"
)

// EncodeAuthorization renders credentials as an Authorization or Proxy-Authorization value.
// Only the basic scheme can be computed without a challenge.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc7617#section-2
func EncodeAuthorization(user, pass, authType string) (string, error) {
	switch strings.ToLower(authType) {
	case AuthBasic:
		if strings.Contains(user, ":") {
			return "", errors.Wrap(http.ErrConfiguration, "the user name cannot contain ':' in basic authentication")
		}
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass)), nil
	default:
		return "", errors.Wrapf(http.ErrConfiguration, "not a supported authentication type: %q", authType)
	}
}
