package client

import "http-client/application/http/header"

const (
	AuthBasic  = header.AuthBasic
	AuthDigest = header.AuthDigest
)

// EncodeAuthHeader returns the value of an Authorization header.
// Only basic authentication can be encoded; a user name containing ':' is rejected.
func EncodeAuthHeader(user, pass, authType string) (string, error) {
	return header.EncodeAuthorization(user, pass, authType)
}
