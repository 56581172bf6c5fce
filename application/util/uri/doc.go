// Package uri parses and serializes URIs, and resolves relative references
// such as the targets of redirects.
//
// Reference:
//
// - https://datatracker.ietf.org/doc/html/rfc3986
//
// - TODO: https://datatracker.ietf.org/doc/html/rfc6874
package uri
