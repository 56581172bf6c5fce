// Package http holds the wire-level pieces of HTTP/1.x shared by the client:
// protocol version, raw field lines, the response head reader,
// the request encoder and the error taxonomy.
//
// Reference:
//
// - https://datatracker.ietf.org/doc/html/rfc9110
//
// - https://datatracker.ietf.org/doc/html/rfc9112
package http
