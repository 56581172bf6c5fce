package http

import "github.com/pkg/errors"

// Every failure surfaced by the client wraps one of these.
// Use [errors.Is] to classify them.
var (
	// ErrParse is a malformed header, cookie or message.
	ErrParse = errors.New("malformed message")
	// ErrConfiguration is an invalid option or argument.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrConnection means the transport could not be established.
	ErrConnection = errors.New("unable to connect")
	ErrWrite      = errors.New("unable to write request")
	ErrRead       = errors.New("unable to read response")
	// ErrTimeout is a kind of [ErrRead]. The connection is closed before it is returned.
	ErrTimeout error = &subError{msg: "read timed out", parent: ErrRead}
	// ErrRedirectLimit is returned once redirects exceed the configured maximum.
	ErrRedirectLimit = errors.New("redirect limit exceeded")
	// ErrStreamingUnsupported is returned before any I/O when the adapter cannot stream.
	ErrStreamingUnsupported = errors.New("adapter does not support streaming")
	// ErrDecode is a corrupt content-coded body.
	ErrDecode = errors.New("unable to decode content")
)

type subError struct {
	msg    string
	parent error
}

func (e *subError) Error() string        { return e.msg }
func (e *subError) Is(target error) bool { return target == e.parent }
